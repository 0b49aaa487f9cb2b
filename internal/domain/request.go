package domain

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	Title *string `json:"title"`
}

// CreateMessageRequest is the body of POST /api/messages. Pointer fields
// distinguish a missing field from a zero value.
type CreateMessageRequest struct {
	Content        *string `json:"content"`
	Sender         *string `json:"sender"`
	ConversationID *int64  `json:"conversationId"`
}

// StartChatRequest is the body of POST /api/chat.
type StartChatRequest struct {
	Content *string `json:"content"`
	Title   string  `json:"title,omitempty"`
}

// StartChatResponse is returned by POST /api/chat.
type StartChatResponse struct {
	Conversation *Conversation `json:"conversation"`
	Message      *Message      `json:"message"`
}

// SessionStatusRequest is the body of POST /api/admin/sessions/:id/status.
type SessionStatusRequest struct {
	Active *bool `json:"active"`
}

// AdminActionResponse reports the outcome of an admin mutation.
type AdminActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
