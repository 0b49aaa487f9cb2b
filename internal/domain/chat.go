// Package domain defines the core domain models for the chat server.
package domain

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Conversation is a titled container of ordered messages.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is a single chat turn.
type Message struct {
	ID             int64     `json:"id"`
	Content        string    `json:"content"`
	Sender         Sender    `json:"sender"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID int64     `json:"conversationId"`
}

// NewMessage holds the caller-supplied fields of a message. ID and
// Timestamp are assigned by the store.
type NewMessage struct {
	Content        string `json:"content"`
	Sender         Sender `json:"sender"`
	ConversationID int64  `json:"conversationId"`
}
