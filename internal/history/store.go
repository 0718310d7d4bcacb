// Package history provides the bounded per-conversation message log.
package history

import (
	"sync"

	"github.com/soyeahso/wabot/internal/domain"
)

// MaxTurns is the retention cap per conversation. Once exceeded, the
// oldest turns are evicted first.
const MaxTurns = 50

// Store keeps a bounded, append-only log of turns per conversation.
// Logs are created lazily on first append and live for the process
// lifetime. Operations on different conversations do not contend: the
// top-level lock only guards the map, each log has its own.
type Store struct {
	mu   sync.RWMutex
	logs map[domain.ConversationID]*conversationLog
}

type conversationLog struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

// NewStore creates an empty history store.
func NewStore() *Store {
	return &Store{logs: make(map[domain.ConversationID]*conversationLog)}
}

// Append adds a turn to the conversation's log, evicting the oldest
// entries beyond MaxTurns. It never fails.
func (s *Store) Append(id domain.ConversationID, turn domain.Turn) {
	log := s.logFor(id)

	log.mu.Lock()
	defer log.mu.Unlock()

	log.turns = append(log.turns, turn)
	if len(log.turns) > MaxTurns {
		overflow := len(log.turns) - MaxTurns
		log.turns = append(log.turns[:0], log.turns[overflow:]...)
	}
}

// Recent returns up to limit most-recent turns in chronological order.
// Unknown conversations yield an empty slice.
func (s *Store) Recent(id domain.ConversationID, limit int) []domain.Turn {
	s.mu.RLock()
	log, ok := s.logs[id]
	s.mu.RUnlock()
	if !ok || limit <= 0 {
		return nil
	}

	log.mu.RLock()
	defer log.mu.RUnlock()

	start := len(log.turns) - limit
	if start < 0 {
		start = 0
	}
	out := make([]domain.Turn, len(log.turns)-start)
	copy(out, log.turns[start:])
	return out
}

// Len returns the number of retained turns for a conversation.
func (s *Store) Len(id domain.ConversationID) int {
	s.mu.RLock()
	log, ok := s.logs[id]
	s.mu.RUnlock()
	if !ok {
		return 0
	}

	log.mu.RLock()
	defer log.mu.RUnlock()
	return len(log.turns)
}

// Conversations returns the IDs of all conversations with recorded turns.
func (s *Store) Conversations() []domain.ConversationID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.ConversationID, 0, len(s.logs))
	for id := range s.logs {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) logFor(id domain.ConversationID) *conversationLog {
	s.mu.RLock()
	log, ok := s.logs[id]
	s.mu.RUnlock()
	if ok {
		return log
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if log, ok = s.logs[id]; ok {
		return log
	}
	log = &conversationLog{}
	s.logs[id] = log
	return log
}
