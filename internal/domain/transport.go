package domain

import (
	"context"
	"time"
)

// ConnState is the transport's reported connection state.
type ConnState string

const (
	ConnOpen   ConnState = "open"
	ConnClosed ConnState = "closed"
)

// EventKind discriminates transport events.
type EventKind string

const (
	EventConnection EventKind = "connection"
	EventMessage    EventKind = "message"
)

// TransportEvent is one event from the messaging transport. Kind selects
// which of the embedded payloads is populated.
type TransportEvent struct {
	Kind       EventKind
	Connection ConnectionUpdate
	Message    InboundMessage
}

// ConnectionUpdate reports a transport connection state change.
// LoggedOut distinguishes a deliberate account logout from any other
// closure cause; only the former is terminal.
type ConnectionUpdate struct {
	State     ConnState
	LoggedOut bool
	Cause     string
}

// InboundMessage is a message received from the messaging network.
type InboundMessage struct {
	ID         string         `json:"id"`
	ChatID     ConversationID `json:"chatId"`
	SenderID   string         `json:"senderId"`
	SenderName string         `json:"senderName"`
	Body       string         `json:"body"`
	IsGroup    bool           `json:"isGroup"`
	FromSelf   bool           `json:"fromSelf"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Transport is the messaging-network collaborator. The wire protocol,
// encryption, and credential storage live entirely behind this interface.
type Transport interface {
	// Start connects the transport and begins delivering events. It
	// returns once the underlying connection attempt has resolved.
	Start(ctx context.Context) error

	// Events returns the stream of connection updates and inbound
	// messages. The channel is closed when the transport shuts down.
	Events() <-chan TransportEvent

	// SendMessage delivers text to a conversation.
	SendMessage(ctx context.Context, chatID ConversationID, text string) error

	// RequestPairingCode asks the network for a device-link code bound
	// to the given phone number (digits only).
	RequestPairingCode(ctx context.Context, phoneNumber string) (string, error)

	// Close tears down the connection. Idempotent.
	Close()
}
