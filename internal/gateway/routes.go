package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/history"
	"github.com/soyeahso/wabot/internal/session"
)

// pairTimeout bounds how long a pairing request may wait on the
// transport before the API reports failure.
const pairTimeout = 30 * time.Second

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/generate-pair", s.handleGeneratePair)
	mux.HandleFunc("POST /api/toggle-mode", s.handleToggleMode)
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleTranscript)

	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.session.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"connected": st.Connected,
		"active":    st.Active,
	})
}

// StatusResponse is the body of GET /api/status. PhoneNumber is a
// pointer so an unpaired session serializes it as an explicit null.
type StatusResponse struct {
	Phase       string  `json:"phase"`
	Connected   bool    `json:"connected"`
	Active      bool    `json:"active"`
	PhoneNumber *string `json:"phoneNumber"`
	UptimeSecs  int64   `json:"uptimeSecs"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.session.Status()
	var phone *string
	if st.PhoneNumber != "" {
		phone = &st.PhoneNumber
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Phase:       string(st.Phase),
		Connected:   st.Connected,
		Active:      st.Active,
		PhoneNumber: phone,
		UptimeSecs:  int64(time.Since(s.startedAt).Seconds()),
	})
}

type generatePairRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// PairResponse is the body of a successful POST /api/generate-pair.
type PairResponse struct {
	Success     bool   `json:"success"`
	PairCode    string `json:"pairCode"`
	PhoneNumber string `json:"phoneNumber"`
}

func (s *Server) handleGeneratePair(w http.ResponseWriter, r *http.Request) {
	var req generatePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "Phone number is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pairTimeout)
	defer cancel()

	code, err := s.session.RequestPairing(ctx, req.PhoneNumber)
	if err != nil {
		var perr *session.PairingError
		if errors.As(err, &perr) && perr.Err == nil {
			// Malformed input, not a transport failure.
			writeError(w, http.StatusBadRequest, perr.Message)
			return
		}
		s.log.Error().Err(err).Msg("pairing request failed")
		writeError(w, http.StatusInternalServerError, "Failed to generate pairing code")
		return
	}

	digits, _ := domain.NormalizePhoneNumber(req.PhoneNumber)
	writeJSON(w, http.StatusOK, PairResponse{Success: true, PairCode: code, PhoneNumber: digits})
}

type toggleModeRequest struct {
	Active *bool `json:"active"`
}

// ModeResponse is the body of POST /api/toggle-mode.
type ModeResponse struct {
	Success bool `json:"success"`
	Active  bool `json:"active"`
}

// handleToggleMode sets the active/silent flag. A body with an
// explicit active value sets it; an empty body flips the current
// value, which is what the dashboard's single toggle button sends.
func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	var req toggleModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	next := !s.session.Active()
	if req.Active != nil {
		next = *req.Active
	}
	s.session.SetActive(next)

	writeJSON(w, http.StatusOK, ModeResponse{Success: true, Active: next})
}

// ConversationSummary is one entry of GET /api/conversations.
type ConversationSummary struct {
	ChatID  string `json:"chatId"`
	IsGroup bool   `json:"isGroup"`
	Turns   int    `json:"turns"`
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	ids := s.turns.Conversations()
	out := make([]ConversationSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, ConversationSummary{
			ChatID:  string(id),
			IsGroup: id.IsGroup(),
			Turns:   s.turns.Len(id),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

// TranscriptTurn is one entry of GET /api/conversations/{id}.
type TranscriptTurn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := domain.ConversationID(r.PathValue("id"))
	turns := s.turns.Recent(id, history.MaxTurns)
	if len(turns) == 0 {
		writeError(w, http.StatusNotFound, "unknown conversation")
		return
	}

	out := make([]TranscriptTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, TranscriptTurn{
			Speaker:   t.Speaker,
			Text:      t.Text,
			Origin:    string(t.Origin),
			Timestamp: t.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chatId": string(id),
		"turns":  out,
	})
}
