// Package domain holds the core types shared across wabot's packages.
package domain

import "time"

// TurnOrigin classifies who produced a recorded turn.
type TurnOrigin string

const (
	// OriginOwner marks a message sent by the configured owner.
	OriginOwner TurnOrigin = "owner"
	// OriginHuman marks a message from any other human sender.
	OriginHuman TurnOrigin = "human"
	// OriginBot marks a reply generated by wabot itself.
	OriginBot TurnOrigin = "bot"
)

// ConversationID identifies a one-to-one or group chat. It is opaque to
// wabot; group chats carry the network's group suffix (e.g. "@g.us").
type ConversationID string

// IsGroup reports whether the conversation is a group chat.
func (id ConversationID) IsGroup() bool {
	const groupSuffix = "@g.us"
	s := string(id)
	return len(s) > len(groupSuffix) && s[len(s)-len(groupSuffix):] == groupSuffix
}

// Turn is one recorded message in a conversation. Turns are immutable
// once created; Speaker and Text are never empty.
type Turn struct {
	Speaker   string     `json:"speaker"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Origin    TurnOrigin `json:"origin"`
}
