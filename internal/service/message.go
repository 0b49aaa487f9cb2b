package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

// chatTitleLayout formats the title of a conversation opened by a first send.
const chatTitleLayout = "1/2/2006, 3:04:05 PM"

func (s *Service) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		s.logger.Warn("get message failed", "message_id", id, "error", err)
		return nil, newError(ErrorNotFound, "Message not found", err)
	}
	if msg == nil {
		return nil, newError(ErrorNotFound, "Message not found", nil)
	}
	return msg, nil
}

// ListMessages returns the messages of an existing conversation, oldest
// first.
func (s *Service) ListMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		s.logger.Warn("list messages failed", "conversation_id", conversationID, "error", err)
		return []domain.Message{}, nil
	}
	return msgs, nil
}

func validateMessage(req domain.CreateMessageRequest) (domain.NewMessage, error) {
	var problems []string
	if req.Content == nil {
		problems = append(problems, "content is required")
	}
	if req.Sender == nil {
		problems = append(problems, "sender is required")
	} else if !domain.Sender(*req.Sender).Valid() {
		problems = append(problems, fmt.Sprintf("sender must be %q or %q", domain.SenderUser, domain.SenderAI))
	}
	if req.ConversationID == nil {
		problems = append(problems, "conversationId is required")
	}
	if len(problems) > 0 {
		return domain.NewMessage{}, newError(ErrorInvalidInput, strings.Join(problems, "; "), nil)
	}
	return domain.NewMessage{
		Content:        *req.Content,
		Sender:         domain.Sender(*req.Sender),
		ConversationID: *req.ConversationID,
	}, nil
}

// CreateMessage stores a message in an existing conversation. A user message
// schedules the AI reply; the call returns without waiting for it.
func (s *Service) CreateMessage(ctx context.Context, req domain.CreateMessageRequest) (*domain.Message, error) {
	in, err := validateMessage(req)
	if err != nil {
		return nil, err
	}
	return s.createMessage(ctx, in)
}

func (s *Service) createMessage(ctx context.Context, in domain.NewMessage) (*domain.Message, error) {
	msg, ok, err := s.store.CreateMessageInConversation(ctx, in)
	if err != nil {
		return nil, newError(ErrorInternal, "Failed to create message", err)
	}
	if !ok {
		return nil, newError(ErrorNotFound, "Conversation not found", nil)
	}
	s.publish(domain.ConversationEvent{
		Type:           domain.EventTypeMessageCreated,
		ConversationID: msg.ConversationID,
		Message:        msg,
	})

	if msg.Sender == domain.SenderUser && s.replier != nil {
		if err := s.replier.OnUserMessage(ctx, msg.Content, msg.ConversationID); err != nil {
			s.logger.Warn("schedule reply failed", "conversation_id", msg.ConversationID, "error", err)
		}
	}
	return msg, nil
}

// StartChat opens a conversation and posts the first user message into it.
// Without a title the conversation is named after the current local time.
func (s *Service) StartChat(ctx context.Context, req domain.StartChatRequest) (*domain.StartChatResponse, error) {
	if req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		return nil, newError(ErrorInvalidInput, "content is required", nil)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Chat " + s.now().Local().Format(chatTitleLayout)
	}

	conv, err := s.store.CreateConversation(ctx, title)
	if err != nil {
		return nil, newError(ErrorInternal, "Failed to create conversation", err)
	}
	msg, err := s.createMessage(ctx, domain.NewMessage{
		Content:        *req.Content,
		Sender:         domain.SenderUser,
		ConversationID: conv.ID,
	})
	if err != nil {
		return nil, err
	}
	return &domain.StartChatResponse{Conversation: conv, Message: msg}, nil
}
