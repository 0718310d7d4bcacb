package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/wabot/internal/config"
	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/history"
	"github.com/soyeahso/wabot/internal/logging"
	"github.com/soyeahso/wabot/internal/session"
)

type fakeSession struct {
	status   domain.SessionStatus
	active   bool
	pairCode string
	pairErr  error
	paired   []string
}

func (f *fakeSession) RequestPairing(ctx context.Context, phoneNumber string) (string, error) {
	if f.pairErr != nil {
		return "", f.pairErr
	}
	f.paired = append(f.paired, phoneNumber)
	return f.pairCode, nil
}

func (f *fakeSession) Status() domain.SessionStatus {
	st := f.status
	st.Active = f.active
	return st
}

func (f *fakeSession) SetActive(flag bool) { f.active = flag }
func (f *fakeSession) Active() bool        { return f.active }

func newTestServer(sess *fakeSession, turns *history.Store) *Server {
	if turns == nil {
		turns = history.NewStore()
	}
	cfg := config.GatewayConfig{Port: 3001, Bind: "loopback"}
	return New(cfg, sess, turns, logging.New(nil, "silent"))
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeSession{}, nil)
	rr := doRequest(s, "GET", "/health", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "connected")
	assert.Contains(t, body, "active")
}

func TestStatusReportsSessionSnapshot(t *testing.T) {
	sess := &fakeSession{
		status: domain.SessionStatus{
			Phase:       domain.PhaseConnected,
			Connected:   true,
			PhoneNumber: "27847826044",
		},
		active: true,
	}
	s := newTestServer(sess, nil)
	s.startedAt = time.Now()

	rr := doRequest(s, "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody[StatusResponse](t, rr)
	assert.Equal(t, "connected", body.Phase)
	assert.True(t, body.Connected)
	assert.True(t, body.Active)
	require.NotNil(t, body.PhoneNumber)
	assert.Equal(t, "27847826044", *body.PhoneNumber)
}

func TestStatusUnpairedReportsNullPhoneNumber(t *testing.T) {
	sess := &fakeSession{
		status: domain.SessionStatus{Phase: domain.PhaseUnauthenticated},
	}
	s := newTestServer(sess, nil)

	rr := doRequest(s, "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	// The key must be present with an explicit null, not omitted.
	raw := decodeBody[map[string]any](t, rr)
	require.Contains(t, raw, "phoneNumber")
	assert.Nil(t, raw["phoneNumber"])
}

func TestGeneratePairSuccess(t *testing.T) {
	sess := &fakeSession{pairCode: "ABCD-1234"}
	s := newTestServer(sess, nil)

	rr := doRequest(s, "POST", "/api/generate-pair", `{"phoneNumber":"+27 84 782 6044"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody[PairResponse](t, rr)
	assert.True(t, body.Success)
	assert.Equal(t, "ABCD-1234", body.PairCode)
	assert.Equal(t, "27847826044", body.PhoneNumber)
	assert.Equal(t, []string{"+27 84 782 6044"}, sess.paired)
}

func TestGeneratePairMissingNumber(t *testing.T) {
	s := newTestServer(&fakeSession{pairCode: "X"}, nil)

	rr := doRequest(s, "POST", "/api/generate-pair", `{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody[map[string]string](t, rr)
	assert.Equal(t, "Phone number is required", body["error"])
}

func TestGeneratePairInvalidNumber(t *testing.T) {
	sess := &fakeSession{pairErr: &session.PairingError{Message: `invalid phone number "abc"`}}
	s := newTestServer(sess, nil)

	rr := doRequest(s, "POST", "/api/generate-pair", `{"phoneNumber":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGeneratePairTransportFailure(t *testing.T) {
	sess := &fakeSession{pairErr: &session.PairingError{
		Message: "transport unavailable",
		Err:     errors.New("bridge down"),
	}}
	s := newTestServer(sess, nil)

	rr := doRequest(s, "POST", "/api/generate-pair", `{"phoneNumber":"27847826044"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	body := decodeBody[map[string]string](t, rr)
	assert.Equal(t, "Failed to generate pairing code", body["error"])
}

func TestToggleModeFlipsWithoutBody(t *testing.T) {
	sess := &fakeSession{active: true}
	s := newTestServer(sess, nil)

	rr := doRequest(s, "POST", "/api/toggle-mode", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[ModeResponse](t, rr)
	assert.True(t, body.Success)
	assert.False(t, body.Active)
	assert.False(t, sess.Active())

	rr = doRequest(s, "POST", "/api/toggle-mode", "")
	body = decodeBody[ModeResponse](t, rr)
	assert.True(t, body.Active)
}

func TestToggleModeSetsExplicitValue(t *testing.T) {
	sess := &fakeSession{active: true}
	s := newTestServer(sess, nil)

	rr := doRequest(s, "POST", "/api/toggle-mode", `{"active":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[ModeResponse](t, rr)
	assert.True(t, body.Active)
	assert.True(t, sess.Active())

	rr = doRequest(s, "POST", "/api/toggle-mode", `{"active":false}`)
	body = decodeBody[ModeResponse](t, rr)
	assert.False(t, body.Active)
	assert.False(t, sess.Active())
}

func TestConversationsListing(t *testing.T) {
	turns := history.NewStore()
	turns.Append("alice@s.whatsapp.net", domain.Turn{Speaker: "Alice", Text: "hi", Origin: domain.OriginHuman, Timestamp: time.Now()})
	turns.Append("team@g.us", domain.Turn{Speaker: "Bob", Text: "yo", Origin: domain.OriginHuman, Timestamp: time.Now()})
	turns.Append("team@g.us", domain.Turn{Speaker: "Wabot", Text: "hey", Origin: domain.OriginBot, Timestamp: time.Now()})

	s := newTestServer(&fakeSession{}, turns)
	rr := doRequest(s, "GET", "/api/conversations", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Conversations []ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Conversations, 2)

	byID := map[string]ConversationSummary{}
	for _, c := range body.Conversations {
		byID[c.ChatID] = c
	}
	assert.Equal(t, 1, byID["alice@s.whatsapp.net"].Turns)
	assert.False(t, byID["alice@s.whatsapp.net"].IsGroup)
	assert.Equal(t, 2, byID["team@g.us"].Turns)
	assert.True(t, byID["team@g.us"].IsGroup)
}

func TestTranscript(t *testing.T) {
	turns := history.NewStore()
	turns.Append("alice@s.whatsapp.net", domain.Turn{Speaker: "Alice", Text: "hello", Origin: domain.OriginHuman, Timestamp: time.Now()})
	turns.Append("alice@s.whatsapp.net", domain.Turn{Speaker: "Wabot", Text: "hi Alice", Origin: domain.OriginBot, Timestamp: time.Now()})

	s := newTestServer(&fakeSession{}, turns)
	rr := doRequest(s, "GET", "/api/conversations/alice@s.whatsapp.net", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		ChatID string           `json:"chatId"`
		Turns  []TranscriptTurn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "alice@s.whatsapp.net", body.ChatID)
	require.Len(t, body.Turns, 2)
	assert.Equal(t, "Alice", body.Turns[0].Speaker)
	assert.Equal(t, "hi Alice", body.Turns[1].Text)
	assert.Equal(t, "bot", body.Turns[1].Origin)
}

func TestTranscriptUnknownConversation(t *testing.T) {
	s := newTestServer(&fakeSession{}, nil)
	rr := doRequest(s, "GET", "/api/conversations/nobody@s.whatsapp.net", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(&fakeSession{}, nil)
	rr := doRequest(s, "GET", "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:3001", resolveBindAddr(config.GatewayConfig{Bind: "loopback", Port: 3001}))
	assert.Equal(t, "0.0.0.0:3001", resolveBindAddr(config.GatewayConfig{Bind: "lan", Port: 3001}))
	assert.Equal(t, "10.0.0.5:8080", resolveBindAddr(config.GatewayConfig{Bind: "custom", CustomBindHost: "10.0.0.5", Port: 8080}))
	assert.Equal(t, "127.0.0.1:3001", resolveBindAddr(config.GatewayConfig{Bind: "", Port: 3001}))
}
