package bridge

import (
	"encoding/json"
	"time"

	"github.com/soyeahso/wabot/internal/domain"
)

// Frame types exchanged with the messaging bridge sidecar.
const (
	// Bridge → bot.
	FrameConnection = "connection"
	FrameMessage    = "message"
	FrameResult     = "result"

	// Bot → bridge.
	FrameSend = "send"
	FramePair = "pair"
)

// Frame is the wire envelope for every bridge message. Fields are
// populated according to Type; the rest stay zero.
type Frame struct {
	Type string `json:"type"`

	// Request correlation. Set on send/pair requests and echoed back
	// on the matching result frame.
	ID string `json:"id,omitempty"`

	// connection frames.
	State     string `json:"state,omitempty"` // "open" | "closed"
	LoggedOut bool   `json:"loggedOut,omitempty"`
	Cause     string `json:"cause,omitempty"`

	// message frames.
	Message *WireMessage `json:"message,omitempty"`

	// send requests.
	ChatID string `json:"chatId,omitempty"`
	Text   string `json:"text,omitempty"`

	// pair requests and their results.
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code,omitempty"`

	// result frames.
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// WireMessage is an inbound chat message as the bridge reports it.
type WireMessage struct {
	ID          string `json:"id"`
	ChatID      string `json:"chatId"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName,omitempty"`
	Body        string `json:"body"`
	IsGroup     bool   `json:"isGroup"`
	FromSelf    bool   `json:"fromSelf"`
	TimestampMS int64  `json:"timestamp"`
}

// toDomain converts a wire message into the internal representation.
func (w *WireMessage) toDomain() domain.InboundMessage {
	return domain.InboundMessage{
		ID:         w.ID,
		ChatID:     domain.ConversationID(w.ChatID),
		SenderID:   w.SenderID,
		SenderName: w.SenderName,
		Body:       w.Body,
		IsGroup:    w.IsGroup,
		FromSelf:   w.FromSelf,
		Timestamp:  time.UnixMilli(w.TimestampMS),
	}
}

// decodeFrame parses a raw websocket payload into a Frame.
func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}
