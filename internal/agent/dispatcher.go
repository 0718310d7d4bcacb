// Package agent implements the reply pipeline: inbound message in,
// at most one outbound reply out.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/history"
	"github.com/soyeahso/wabot/internal/llm"
	"github.com/soyeahso/wabot/internal/logging"
	"github.com/soyeahso/wabot/internal/prompt"
	"github.com/soyeahso/wabot/internal/store"
)

// FallbackReply is sent when generation fails. It is never recorded as
// a bot turn, so a non-answer cannot pollute future context.
const FallbackReply = "I'm having trouble processing your message right now. Please try again later."

// Sender delivers outbound text to a conversation. Satisfied by
// domain.Transport.
type Sender interface {
	SendMessage(ctx context.Context, chatID domain.ConversationID, text string) error
}

// DispatcherConfig configures the reply pipeline.
type DispatcherConfig struct {
	BotName     string
	OwnerNumber string // digits only
	MaxTokens   int
	Temperature *float64
	// LLMTimeout bounds the generation call; an overrun is treated as
	// a generation failure, not a hang.
	LLMTimeout time.Duration
}

// Dispatcher turns one inbound message into at most one outbound reply,
// recording both sides of the exchange in the history store.
type Dispatcher struct {
	cfg     DispatcherConfig
	client  llm.Client
	sender  Sender
	turns   *history.Store
	prompts *prompt.Builder
	archive store.Archive
	active  func() bool
	log     *logging.Logger
}

// NewDispatcher creates a dispatcher. active reports the bot's
// active/silent flag at dispatch time; archive may be store.NopArchive{}.
func NewDispatcher(
	cfg DispatcherConfig,
	client llm.Client,
	sender Sender,
	turns *history.Store,
	prompts *prompt.Builder,
	archive store.Archive,
	active func() bool,
	log *logging.Logger,
) *Dispatcher {
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 60 * time.Second
	}
	if archive == nil {
		archive = store.NopArchive{}
	}
	return &Dispatcher{
		cfg:     cfg,
		client:  client,
		sender:  sender,
		turns:   turns,
		prompts: prompts,
		archive: archive,
		active:  active,
		log:     log.Sub("dispatch"),
	}
}

// HandleInbound processes one inbound message to completion. Empty
// bodies are ignored. While the bot is silent the message is still
// recorded as a human turn, but no reply is produced. All failures are
// absorbed here: generation errors fall back to a fixed apology, send
// errors are logged and the undelivered bot turn is not recorded.
func (d *Dispatcher) HandleInbound(ctx context.Context, msg domain.InboundMessage) {
	if strings.TrimSpace(msg.Body) == "" {
		return
	}

	isOwner := domain.NormalizeSenderID(msg.SenderID) == d.cfg.OwnerNumber
	speaker := senderDisplayName(msg)

	d.record(msg.ChatID, domain.Turn{
		Speaker:   speaker,
		Text:      msg.Body,
		Timestamp: msg.Timestamp,
		Origin:    inboundOrigin(isOwner),
	})

	if !d.active() {
		d.log.Debug().
			Str("chatId", string(msg.ChatID)).
			Str("from", speaker).
			Msg("silent mode, message recorded without reply")
		return
	}

	d.log.Info().
		Str("chatId", string(msg.ChatID)).
		Str("from", speaker).
		Bool("group", msg.IsGroup).
		Bool("owner", isOwner).
		Msg("processing message")

	promptText := d.prompts.Build(prompt.Input{
		ChatID:     msg.ChatID,
		Text:       msg.Body,
		SenderName: speaker,
		IsGroup:    msg.IsGroup,
		IsOwner:    isOwner,
	})

	llmCtx, cancel := context.WithTimeout(ctx, d.cfg.LLMTimeout)
	defer cancel()

	resp, err := d.client.Complete(llmCtx, llm.CompletionRequest{
		System:      promptText,
		UserMessage: msg.Body,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		d.log.Error().Err(err).
			Str("chatId", string(msg.ChatID)).
			Msg("generation failed, sending fallback")
		if sendErr := d.sender.SendMessage(ctx, msg.ChatID, FallbackReply); sendErr != nil {
			d.log.Error().Err(sendErr).
				Str("chatId", string(msg.ChatID)).
				Msg("failed to send fallback reply")
		}
		return
	}

	if err := d.sender.SendMessage(ctx, msg.ChatID, resp.Content); err != nil {
		// Undelivered replies are never recorded as bot turns.
		d.log.Error().Err(err).
			Str("chatId", string(msg.ChatID)).
			Msg("failed to send reply")
		return
	}

	d.record(msg.ChatID, domain.Turn{
		Speaker:   d.cfg.BotName,
		Text:      resp.Content,
		Timestamp: time.Now(),
		Origin:    domain.OriginBot,
	})

	d.log.Info().
		Str("chatId", string(msg.ChatID)).
		Str("model", resp.Model).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", resp.Duration).
		Msg("reply sent")
}

func (d *Dispatcher) record(chatID domain.ConversationID, turn domain.Turn) {
	d.turns.Append(chatID, turn)
	d.archive.Record(chatID, turn)
}

func inboundOrigin(isOwner bool) domain.TurnOrigin {
	if isOwner {
		return domain.OriginOwner
	}
	return domain.OriginHuman
}

// senderDisplayName resolves the speaker label for a turn: the push
// name when present, otherwise the number portion of the sender ID.
func senderDisplayName(msg domain.InboundMessage) string {
	if msg.SenderName != "" {
		return msg.SenderName
	}
	id := msg.SenderID
	if at := strings.IndexByte(id, '@'); at >= 0 {
		id = id[:at]
	}
	return id
}
