// Package routing fans inbound messages out to per-conversation
// workers: one conversation is always processed in arrival order, while
// different conversations run concurrently.
package routing

import (
	"context"
	"sync"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/logging"
)

// queueDepth bounds how many messages may wait per conversation before
// enqueueing blocks the transport event loop.
const queueDepth = 16

// Handler processes one inbound message to completion, including the
// LLM call and outbound send.
type Handler interface {
	HandleInbound(ctx context.Context, msg domain.InboundMessage)
}

// Router owns one serial queue per conversation. Workers are created
// lazily on the first message for a conversation and live until Close.
type Router struct {
	handler Handler
	log     *logging.Logger

	mu     sync.Mutex
	queues map[domain.ConversationID]chan domain.InboundMessage
	closed bool
	wg     sync.WaitGroup
}

// NewRouter creates a router delivering to the given handler.
func NewRouter(handler Handler, log *logging.Logger) *Router {
	return &Router{
		handler: handler,
		log:     log.Sub("routing"),
		queues:  make(map[domain.ConversationID]chan domain.InboundMessage),
	}
}

// Route enqueues a message on its conversation's queue, creating the
// worker if needed. Blocks only when that conversation's queue is full.
func (r *Router) Route(ctx context.Context, msg domain.InboundMessage) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn().Str("chatId", string(msg.ChatID)).Msg("router closed, dropping message")
		return
	}
	q, ok := r.queues[msg.ChatID]
	if !ok {
		q = make(chan domain.InboundMessage, queueDepth)
		r.queues[msg.ChatID] = q
		r.wg.Add(1)
		go r.worker(ctx, msg.ChatID, q)
	}
	r.mu.Unlock()

	select {
	case q <- msg:
	case <-ctx.Done():
	}
}

// Close stops all workers after their queued messages drain.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, q := range r.queues {
		close(q)
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Router) worker(ctx context.Context, chatID domain.ConversationID, q <-chan domain.InboundMessage) {
	defer r.wg.Done()
	r.log.Debug().Str("chatId", string(chatID)).Msg("conversation worker started")

	for msg := range q {
		r.handler.HandleInbound(ctx, msg)
	}

	r.log.Debug().Str("chatId", string(chatID)).Msg("conversation worker stopped")
}
