// Package repository defines the chat storage interface and its
// implementations, plus the admin session directory.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/idgen"
)

// Store defines the interface for conversation and message persistence.
// Lookups of absent records return (nil, nil).
type Store interface {
	// Conversation operations
	CreateConversation(ctx context.Context, title string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, id int64) (*domain.Conversation, error)
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	// DeleteConversation removes the conversation and all of its messages.
	// It returns false when the conversation does not exist.
	DeleteConversation(ctx context.Context, id int64) (bool, error)

	// Message operations. CreateMessage does not check that the
	// conversation exists.
	CreateMessage(ctx context.Context, msg domain.NewMessage) (*domain.Message, error)
	// CreateMessageInConversation inserts msg only if its conversation
	// exists, checking and writing atomically. ok is false when the
	// conversation is absent.
	CreateMessageInConversation(ctx context.Context, msg domain.NewMessage) (created *domain.Message, ok bool, err error)
	GetMessage(ctx context.Context, id int64) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]domain.Message, error)

	// Lifecycle
	Close() error
}

// Option configures a Store implementation.
type Option func(*options)

type options struct {
	clock     func() time.Time
	generator idgen.Generator
}

// WithClock sets the time source used for createdAt and timestamp.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithGenerator replaces the store's id generator.
func WithGenerator(g idgen.Generator) Option {
	return func(o *options) { o.generator = g }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// sortConversations orders newest first; ties go to the higher id.
func sortConversations(convs []domain.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i], convs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// sortMessages orders oldest first; ties go to the lower id.
func sortMessages(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
}
