package routing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/logging"
)

type recordingHandler struct {
	mu    sync.Mutex
	seen  map[domain.ConversationID][]string
	delay time.Duration
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(map[domain.ConversationID][]string)}
}

func (h *recordingHandler) HandleInbound(_ context.Context, msg domain.InboundMessage) {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[msg.ChatID] = append(h.seen[msg.ChatID], msg.Body)
}

func TestRoutePreservesPerConversationOrder(t *testing.T) {
	h := newRecordingHandler()
	h.delay = time.Millisecond
	r := NewRouter(h, logging.New(nil, "silent"))

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		r.Route(ctx, domain.InboundMessage{ChatID: "a", Body: fmt.Sprintf("a-%d", i)})
		r.Route(ctx, domain.InboundMessage{ChatID: "b", Body: fmt.Sprintf("b-%d", i)})
	}
	r.Close()

	require.Len(t, h.seen["a"], 10)
	require.Len(t, h.seen["b"], 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprintf("a-%d", i), h.seen["a"][i])
		assert.Equal(t, fmt.Sprintf("b-%d", i), h.seen["b"][i])
	}
}

func TestRouteAfterCloseDrops(t *testing.T) {
	h := newRecordingHandler()
	r := NewRouter(h, logging.New(nil, "silent"))
	r.Close()

	r.Route(context.Background(), domain.InboundMessage{ChatID: "a", Body: "late"})
	assert.Empty(t, h.seen["a"])
}

func TestCloseIsIdempotent(t *testing.T) {
	r := NewRouter(newRecordingHandler(), logging.New(nil, "silent"))
	r.Route(context.Background(), domain.InboundMessage{ChatID: "a", Body: "x"})
	r.Close()
	r.Close()
}
