package domain

// Phase is the lifecycle state of the messaging session.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhasePairing         Phase = "pairing"
	PhaseConnected       Phase = "connected"
	PhaseClosed          Phase = "closed"
)

// SessionStatus is a point-in-time snapshot of the session state,
// returned by the lifecycle manager and serialized by the gateway.
type SessionStatus struct {
	Phase       Phase  `json:"phase"`
	Connected   bool   `json:"connected"`
	Active      bool   `json:"active"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}
