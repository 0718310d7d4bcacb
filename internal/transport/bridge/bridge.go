// Package bridge connects to the messaging bridge sidecar over a
// WebSocket and exposes it as a domain.Transport. The sidecar owns the
// actual account session; this client speaks a small JSON frame
// protocol with it: connection updates and inbound messages flow in,
// send and pairing requests flow out with correlated results.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/logging"
)

const (
	requestTimeout = 30 * time.Second
	eventBuffer    = 100
)

// Transport is a WebSocket client for the bridge sidecar. It
// implements domain.Transport. Events survives reconnects: Start may
// be called again after a socket loss and the same channel keeps
// delivering.
type Transport struct {
	url       string
	authToken string
	log       *logging.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan Frame

	events    chan domain.TransportEvent
	closeOnce sync.Once
	done      chan struct{}
}

var _ domain.Transport = (*Transport)(nil)

// New creates a bridge transport. url must be a ws:// or wss://
// endpoint; authToken, when set, is sent as a bearer token on dial.
func New(url, authToken string, log *logging.Logger) *Transport {
	return &Transport{
		url:       url,
		authToken: authToken,
		log:       log.Sub("bridge"),
		pending:   make(map[string]chan Frame),
		events:    make(chan domain.TransportEvent, eventBuffer),
		done:      make(chan struct{}),
	}
}

// Start dials the bridge and launches the read loop. A previous dead
// connection, if any, is discarded first.
func (t *Transport) Start(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}

	header := http.Header{}
	if t.authToken != "" {
		header.Set("Authorization", "Bearer "+t.authToken)
	}

	t.log.Info().Str("url", t.url).Msg("dialing bridge")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, header)
	if err != nil {
		return fmt.Errorf("dial bridge: %w", err)
	}
	t.conn = conn

	go t.readLoop(conn)
	return nil
}

// Events returns the transport event stream.
func (t *Transport) Events() <-chan domain.TransportEvent {
	return t.events
}

// SendMessage delivers text to a chat through the bridge and waits for
// the correlated result.
func (t *Transport) SendMessage(ctx context.Context, chatID domain.ConversationID, text string) error {
	res, err := t.request(ctx, Frame{
		Type:   FrameSend,
		ChatID: string(chatID),
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if !res.OK {
		return fmt.Errorf("send message: bridge rejected: %s", res.Error)
	}
	return nil
}

// RequestPairingCode asks the bridge to start phone-number pairing and
// returns the code the account owner must enter on their device.
func (t *Transport) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	res, err := t.request(ctx, Frame{
		Type:  FramePair,
		Phone: phone,
	})
	if err != nil {
		return "", fmt.Errorf("request pairing code: %w", err)
	}
	if !res.OK {
		return "", fmt.Errorf("request pairing code: bridge rejected: %s", res.Error)
	}
	return res.Code, nil
}

// Close shuts the transport down permanently and closes the event
// stream. Idempotent.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.connMu.Lock()
		if t.conn != nil {
			t.conn.Close()
			t.conn = nil
		}
		t.connMu.Unlock()
		close(t.events)
	})
}

// request sends a correlated frame and waits for its result.
func (t *Transport) request(ctx context.Context, f Frame) (Frame, error) {
	f.ID = uuid.New().String()

	respCh := make(chan Frame, 1)
	t.pendingMu.Lock()
	t.pending[f.ID] = respCh
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, f.ID)
		t.pendingMu.Unlock()
	}()

	// connMu stays held across the write: gorilla/websocket allows at
	// most one concurrent writer per connection, and conversation
	// workers send in parallel.
	t.connMu.Lock()
	conn := t.conn
	if conn == nil {
		t.connMu.Unlock()
		return Frame{}, fmt.Errorf("bridge not connected")
	}
	err := conn.WriteJSON(f)
	t.connMu.Unlock()
	if err != nil {
		return Frame{}, fmt.Errorf("write frame: %w", err)
	}

	select {
	case res := <-respCh:
		return res, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-time.After(requestTimeout):
		return Frame{}, fmt.Errorf("timeout waiting for bridge result")
	}
}

// readLoop consumes frames from one socket until it dies. A read
// failure is surfaced as a closed-connection event so the lifecycle
// layer can reconnect; logout closures come from the bridge itself as
// connection frames before the socket drops.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			t.log.Warn().Err(err).Msg("bridge socket lost")
			t.emit(domain.TransportEvent{
				Kind: domain.EventConnection,
				Connection: domain.ConnectionUpdate{
					State: domain.ConnClosed,
					Cause: "bridge socket lost",
				},
			})
			return
		}

		frame, err := decodeFrame(data)
		if err != nil {
			t.log.Warn().Err(err).Msg("undecodable bridge frame")
			continue
		}
		t.dispatch(frame)
	}
}

func (t *Transport) dispatch(f Frame) {
	switch f.Type {
	case FrameConnection:
		upd := domain.ConnectionUpdate{
			State:     domain.ConnClosed,
			LoggedOut: f.LoggedOut,
			Cause:     f.Cause,
		}
		if f.State == "open" {
			upd = domain.ConnectionUpdate{State: domain.ConnOpen}
		}
		t.emit(domain.TransportEvent{Kind: domain.EventConnection, Connection: upd})

	case FrameMessage:
		if f.Message == nil {
			return
		}
		t.emit(domain.TransportEvent{Kind: domain.EventMessage, Message: f.Message.toDomain()})

	case FrameResult:
		t.pendingMu.Lock()
		if ch, ok := t.pending[f.ID]; ok {
			ch <- f
		}
		t.pendingMu.Unlock()

	default:
		t.log.Debug().Str("type", f.Type).Msg("unhandled bridge frame")
	}
}

func (t *Transport) emit(ev domain.TransportEvent) {
	select {
	case <-t.done:
		return
	default:
	}
	select {
	case t.events <- ev:
	default:
		t.log.Warn().Msg("event channel full, dropping event")
	}
}
