package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/wabot/internal/domain"
)

func turn(text string) domain.Turn {
	return domain.Turn{
		Speaker:   "Alice",
		Text:      text,
		Timestamp: time.Now(),
		Origin:    domain.OriginHuman,
	}
}

func TestAppendAndRecent(t *testing.T) {
	s := NewStore()
	id := domain.ConversationID("chat@s.whatsapp.net")

	s.Append(id, turn("one"))
	s.Append(id, turn("two"))
	s.Append(id, turn("three"))

	got := s.Recent(id, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "three", got[2].Text)
}

func TestRecentLimitWindow(t *testing.T) {
	s := NewStore()
	id := domain.ConversationID("chat")

	for i := 1; i <= 20; i++ {
		s.Append(id, turn(fmt.Sprintf("msg-%d", i)))
	}

	got := s.Recent(id, 10)
	require.Len(t, got, 10)
	// Oldest of the selected window comes first.
	assert.Equal(t, "msg-11", got[0].Text)
	assert.Equal(t, "msg-20", got[9].Text)
}

func TestRecentUnknownConversation(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Recent("nobody", 10))
	assert.Zero(t, s.Len("nobody"))
}

func TestFIFOEvictionAtCap(t *testing.T) {
	s := NewStore()
	id := domain.ConversationID("busy")

	for i := 1; i <= MaxTurns+1; i++ {
		s.Append(id, turn(fmt.Sprintf("msg-%d", i)))
	}

	require.Equal(t, MaxTurns, s.Len(id))

	got := s.Recent(id, MaxTurns)
	require.Len(t, got, MaxTurns)
	// After the 51st append, msg-1 is gone and 2..51 remain in order.
	assert.Equal(t, "msg-2", got[0].Text)
	assert.Equal(t, fmt.Sprintf("msg-%d", MaxTurns+1), got[MaxTurns-1].Text)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, fmt.Sprintf("msg-%d", i+2), got[i].Text)
	}
}

func TestConversationsAreIndependent(t *testing.T) {
	s := NewStore()
	s.Append("a", turn("for a"))
	s.Append("b", turn("for b"))

	assert.Equal(t, 1, s.Len("a"))
	assert.Equal(t, 1, s.Len("b"))
	assert.Equal(t, "for a", s.Recent("a", 1)[0].Text)
	assert.Equal(t, "for b", s.Recent("b", 1)[0].Text)
	assert.ElementsMatch(t,
		[]domain.ConversationID{"a", "b"}, s.Conversations())
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		id := domain.ConversationID(fmt.Sprintf("chat-%d", c))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(id, turn("x"))
				s.Recent(id, 10)
			}
		}()
	}
	wg.Wait()

	for c := 0; c < 8; c++ {
		id := domain.ConversationID(fmt.Sprintf("chat-%d", c))
		assert.Equal(t, MaxTurns, s.Len(id))
	}
}
