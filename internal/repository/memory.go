package repository

import (
	"context"
	"sync"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/idgen"
)

// MemoryStore keeps conversations and messages for the life of the process.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[int64]domain.Conversation
	messages      map[int64]domain.Message
	opts          options
}

// NewMemoryStore creates an empty store with its own in-process counters.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	if o.generator == nil {
		o.generator = idgen.NewMemory()
	}
	return &MemoryStore{
		conversations: make(map[int64]domain.Conversation),
		messages:      make(map[int64]domain.Message),
		opts:          o,
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateConversation creates a new conversation.
func (s *MemoryStore) CreateConversation(ctx context.Context, title string) (*domain.Conversation, error) {
	id, err := s.opts.generator.Next(ctx, idgen.KindConversation)
	if err != nil {
		return nil, err
	}
	conv := domain.Conversation{ID: id, Title: title, CreatedAt: s.opts.clock()}

	s.mu.Lock()
	s.conversations[id] = conv
	s.mu.Unlock()
	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *MemoryStore) GetConversation(_ context.Context, id int64) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

// ListConversations returns all conversations, newest first.
func (s *MemoryStore) ListConversations(_ context.Context) ([]domain.Conversation, error) {
	s.mu.RLock()
	convs := make([]domain.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		convs = append(convs, c)
	}
	s.mu.RUnlock()

	sortConversations(convs)
	return convs, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *MemoryStore) DeleteConversation(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return false, nil
	}
	delete(s.conversations, id)
	for msgID, m := range s.messages {
		if m.ConversationID == id {
			delete(s.messages, msgID)
		}
	}
	return true, nil
}

// CreateMessage creates a new message.
func (s *MemoryStore) CreateMessage(ctx context.Context, in domain.NewMessage) (*domain.Message, error) {
	id, err := s.opts.generator.Next(ctx, idgen.KindMessage)
	if err != nil {
		return nil, err
	}
	msg := domain.Message{
		ID:             id,
		Content:        in.Content,
		Sender:         in.Sender,
		Timestamp:      s.opts.clock(),
		ConversationID: in.ConversationID,
	}

	s.mu.Lock()
	s.messages[id] = msg
	s.mu.Unlock()
	return &msg, nil
}

// CreateMessageInConversation creates a message if its conversation exists.
func (s *MemoryStore) CreateMessageInConversation(ctx context.Context, in domain.NewMessage) (*domain.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[in.ConversationID]; !ok {
		return nil, false, nil
	}
	id, err := s.opts.generator.Next(ctx, idgen.KindMessage)
	if err != nil {
		return nil, true, err
	}
	msg := domain.Message{
		ID:             id,
		Content:        in.Content,
		Sender:         in.Sender,
		Timestamp:      s.opts.clock(),
		ConversationID: in.ConversationID,
	}
	s.messages[id] = msg
	return &msg, true, nil
}

// GetMessage retrieves a message by ID.
func (s *MemoryStore) GetMessage(_ context.Context, id int64) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

// ListMessages returns the messages of a conversation, oldest first.
func (s *MemoryStore) ListMessages(_ context.Context, conversationID int64) ([]domain.Message, error) {
	s.mu.RLock()
	msgs := make([]domain.Message, 0)
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			msgs = append(msgs, m)
		}
	}
	s.mu.RUnlock()

	sortMessages(msgs)
	return msgs, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
