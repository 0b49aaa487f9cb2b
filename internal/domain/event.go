package domain

// EventType names a realtime conversation event.
type EventType string

const (
	EventTypeMessageCreated      EventType = "message_created"
	EventTypeConversationDeleted EventType = "conversation_deleted"
)

// ConversationEvent is pushed to stream subscribers of a conversation.
type ConversationEvent struct {
	Type           EventType `json:"type"`
	ConversationID int64     `json:"conversationId"`
	Message        *Message  `json:"message,omitempty"`
	Ts             int64     `json:"ts"` // Unix milliseconds
}
