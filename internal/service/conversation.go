package service

import (
	"context"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/repository"
)

// ListConversations returns every conversation, newest first. Store failures
// degrade to an empty list.
func (s *Service) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		s.logger.Warn("list conversations failed", "error", err)
		return []domain.Conversation{}, nil
	}
	return convs, nil
}

func (s *Service) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		s.logger.Warn("get conversation failed", "conversation_id", id, "error", err)
		return nil, newError(ErrorNotFound, "Conversation not found", err)
	}
	if conv == nil {
		return nil, newError(ErrorNotFound, "Conversation not found", nil)
	}
	return conv, nil
}

func (s *Service) CreateConversation(ctx context.Context, req domain.CreateConversationRequest) (*domain.Conversation, error) {
	if req.Title == nil {
		return nil, newError(ErrorInvalidInput, "title is required", nil)
	}
	conv, err := s.store.CreateConversation(ctx, *req.Title)
	if err != nil {
		return nil, newError(ErrorInternal, "Failed to create conversation", err)
	}
	return conv, nil
}

// DeleteConversation removes a conversation with its messages and drops any
// reply still pending for it. It reports false when nothing was removed.
func (s *Service) DeleteConversation(ctx context.Context, id int64) bool {
	ok, err := s.store.DeleteConversation(ctx, id)
	if err != nil {
		s.logger.Warn("delete conversation failed", "conversation_id", id, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if s.replier != nil {
		s.replier.Cancel(ctx, id)
	}
	s.publish(domain.ConversationEvent{Type: domain.EventTypeConversationDeleted, ConversationID: id})
	return true
}

// SeedSample writes the welcome conversation into an empty store.
func (s *Service) SeedSample(ctx context.Context) error {
	seeded, err := repository.SeedSampleConversation(ctx, s.store)
	if err != nil {
		return newError(ErrorInternal, "Failed to seed sample conversation", err)
	}
	if seeded {
		s.logger.Info("sample conversation seeded")
	}
	return nil
}
