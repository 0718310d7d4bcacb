// Package prompt assembles LLM prompts from conversation history.
package prompt

import (
	"fmt"
	"strings"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/history"
)

// contextWindow is how many prior turns are rendered into the prompt.
const contextWindow = 10

// Builder turns a conversation's recent history plus a new inbound
// message into a single prompt. Building is deterministic: identical
// inputs and identical store state yield an identical prompt.
type Builder struct {
	botName     string
	ownerName   string
	ownerNumber string
	store       *history.Store
}

// NewBuilder creates a prompt builder bound to a history store.
func NewBuilder(botName, ownerName, ownerNumber string, store *history.Store) *Builder {
	return &Builder{
		botName:     botName,
		ownerName:   ownerName,
		ownerNumber: ownerNumber,
		store:       store,
	}
}

// Input describes the inbound message a prompt is built for.
type Input struct {
	ChatID     domain.ConversationID
	Text       string
	SenderName string
	IsGroup    bool
	IsOwner    bool
}

// Build renders the full prompt: persona preamble, chat annotation,
// recent history, the new message, and the instruction block. A
// conversation with no prior turns just omits the history section.
func (p *Builder) Build(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s's smart WhatsApp assistant. You are helpful, conversational, and context-aware.\n\n", p.ownerName)
	fmt.Fprintf(&b, "Owner: %s (+%s)\n", p.ownerName, p.ownerNumber)
	fmt.Fprintf(&b, "Current chat: %s\n", chatKind(in.IsGroup))
	fmt.Fprintf(&b, "Sender: %s\n\n", in.SenderName)

	recent := p.store.Recent(in.ChatID, contextWindow)
	if len(recent) > 0 {
		b.WriteString("Recent conversation context:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Current message from %s: %s\n\n", in.SenderName, in.Text)

	b.WriteString("Instructions:\n")
	b.WriteString("- Be helpful and conversational\n")
	b.WriteString("- Use the context above to give relevant responses\n")
	fmt.Fprintf(&b, "- If the sender is the owner (%s), be more personal and prioritize their requests\n", p.ownerName)
	b.WriteString("- For group chats, acknowledge the group dynamic\n")
	b.WriteString("- Keep responses concise but informative\n")
	b.WriteString("- You can analyze past messages to understand ongoing topics or provide advice\n\n")
	b.WriteString("Respond naturally:")

	return b.String()
}

func chatKind(isGroup bool) string {
	if isGroup {
		return "Group Chat"
	}
	return "Private Chat"
}
