package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/policy"
	"github.com/appleater7/chatgpt-ui/internal/repository"
)

// Replier produces the delayed AI reply to a user message.
type Replier interface {
	OnUserMessage(ctx context.Context, content string, conversationID int64) error
	Cancel(ctx context.Context, conversationID int64)
}

// Notifier receives conversation events for realtime subscribers.
type Notifier interface {
	Publish(event domain.ConversationEvent)
}

type Service struct {
	store        repository.Store
	replier      Replier
	sessions     repository.SessionStore
	policyEngine *policy.Engine
	notifier     Notifier
	logger       *slog.Logger
	now          func() time.Time
}

func New(store repository.Store, replier Replier, sessions repository.SessionStore, policyEngine *policy.Engine, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:        store,
		replier:      replier,
		sessions:     sessions,
		policyEngine: policyEngine,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) publish(event domain.ConversationEvent) {
	if s.notifier == nil {
		return
	}
	event.Ts = s.now().UnixMilli()
	s.notifier.Publish(event)
}
