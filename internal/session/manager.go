// Package session owns the messaging-session lifecycle: the phase state
// machine, reconnect-on-drop, pairing, and the active/silent flag.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/logging"
)

// PairingError reports a failed pairing request: a malformed phone
// number or an unavailable transport. It is the only error surfaced to
// the control API as a user-visible failure.
type PairingError struct {
	Message string
	Err     error
}

func (e *PairingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pairing: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("pairing: %s", e.Message)
}

func (e *PairingError) Unwrap() error { return e.Err }

// Backoff controls the reconnect schedule after a non-logout closure.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultBackoff doubles from 2s up to a 60s ceiling.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
	}
}

// Inbound receives inbound messages that survive the lifecycle filters.
// Satisfied by routing.Router.
type Inbound interface {
	Route(ctx context.Context, msg domain.InboundMessage)
}

// Manager is the connection lifecycle state machine. It is the sole
// writer of the session phase and paired number; the active flag may
// also be toggled through SetActive by the control surface.
type Manager struct {
	transport domain.Transport
	inbound   Inbound
	backoff   Backoff
	log       *logging.Logger

	mu           sync.RWMutex
	phase        domain.Phase
	active       bool
	pairedPhone  string
	loggedOut    bool
	reconnecting bool
}

// NewManager creates a lifecycle manager. The bot starts active.
func NewManager(transport domain.Transport, inbound Inbound, backoff Backoff, log *logging.Logger) *Manager {
	if backoff.InitialDelay <= 0 {
		backoff = DefaultBackoff()
	}
	return &Manager{
		transport: transport,
		inbound:   inbound,
		backoff:   backoff,
		log:       log.Sub("session"),
		phase:     domain.PhaseUnauthenticated,
		active:    true,
	}
}

// Run connects the transport and consumes its event stream until the
// context is cancelled or the account is logged out. Non-logout
// closures trigger automatic reconnects with exponential backoff; a
// logout leaves the session permanently Closed while Run keeps the
// process responsive to the control surface.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.transport.Start(ctx); err != nil {
		m.log.Warn().Err(err).Msg("initial transport connect failed, will retry")
		m.setPhase(domain.PhaseClosed)
		m.spawnReconnect(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			m.transport.Close()
			return ctx.Err()
		case ev, ok := <-m.transport.Events():
			if !ok {
				return nil
			}
			m.handleEvent(ctx, ev)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev domain.TransportEvent) {
	switch ev.Kind {
	case domain.EventConnection:
		m.handleConnection(ctx, ev.Connection)
	case domain.EventMessage:
		m.handleMessage(ctx, ev.Message)
	}
}

func (m *Manager) handleConnection(ctx context.Context, upd domain.ConnectionUpdate) {
	switch upd.State {
	case domain.ConnOpen:
		m.log.Info().Msg("connection opened")
		m.setPhase(domain.PhaseConnected)

	case domain.ConnClosed:
		m.mu.Lock()
		m.phase = domain.PhaseClosed
		m.loggedOut = upd.LoggedOut
		m.mu.Unlock()

		if upd.LoggedOut {
			// Terminal: a logged-out session never reconnects on its own.
			m.log.Warn().Str("cause", upd.Cause).Msg("logged out, session closed permanently")
			return
		}

		m.log.Warn().Str("cause", upd.Cause).Msg("connection closed, reconnecting")
		m.spawnReconnect(ctx)
	}
}

// spawnReconnect starts the backoff loop unless one is already
// running. The transport can report the same drop more than once (a
// close frame and the socket loss), and only one loop may dial.
func (m *Manager) spawnReconnect(ctx context.Context) {
	m.mu.Lock()
	if m.reconnecting {
		m.mu.Unlock()
		m.log.Debug().Msg("reconnect already in progress")
		return
	}
	m.reconnecting = true
	m.mu.Unlock()

	go m.reconnect(ctx)
}

// handleMessage filters self-echo and empty bodies before handing the
// message to the per-conversation router.
func (m *Manager) handleMessage(ctx context.Context, msg domain.InboundMessage) {
	if msg.FromSelf || msg.Body == "" {
		return
	}
	if m.Phase() != domain.PhaseConnected {
		m.log.Debug().Str("chatId", string(msg.ChatID)).Msg("message while not connected, ignoring")
		return
	}
	m.inbound.Route(ctx, msg)
}

// reconnect retries transport.Start with exponential backoff until it
// succeeds, the context ends, or a logout intervenes.
func (m *Manager) reconnect(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.reconnecting = false
		m.mu.Unlock()
	}()

	delay := m.backoff.InitialDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if m.isLoggedOut() {
			return
		}

		m.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting transport")
		err := m.transport.Start(ctx)
		if err == nil {
			return
		}
		m.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")

		delay *= 2
		if delay > m.backoff.MaxDelay {
			delay = m.backoff.MaxDelay
		}
	}
}

// RequestPairing normalizes the phone number, asks the transport for a
// pairing code, and moves the session into the Pairing phase.
func (m *Manager) RequestPairing(ctx context.Context, phoneNumber string) (string, error) {
	digits, ok := domain.NormalizePhoneNumber(phoneNumber)
	if !ok {
		return "", &PairingError{Message: fmt.Sprintf("invalid phone number %q", phoneNumber)}
	}

	code, err := m.transport.RequestPairingCode(ctx, digits)
	if err != nil {
		return "", &PairingError{Message: "transport unavailable", Err: err}
	}

	m.mu.Lock()
	m.pairedPhone = digits
	m.loggedOut = false
	if m.phase != domain.PhaseConnected {
		m.phase = domain.PhasePairing
	}
	m.mu.Unlock()

	m.log.Info().Str("phone", digits).Msg("pairing code issued")
	return code, nil
}

// SetActive flips the active/silent flag. It never affects the phase.
func (m *Manager) SetActive(flag bool) {
	m.mu.Lock()
	m.active = flag
	m.mu.Unlock()
	m.log.Info().Bool("active", flag).Msg("bot mode changed")
}

// Active reports the current active/silent flag.
func (m *Manager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Phase reports the current lifecycle phase.
func (m *Manager) Phase() domain.Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Status returns a snapshot of the session state. Pure read.
func (m *Manager) Status() domain.SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.SessionStatus{
		Phase:       m.phase,
		Connected:   m.phase == domain.PhaseConnected,
		Active:      m.active,
		PhoneNumber: m.pairedPhone,
	}
}

func (m *Manager) setPhase(p domain.Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

func (m *Manager) isLoggedOut() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loggedOut
}
