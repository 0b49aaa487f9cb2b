package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/idgen"
	"github.com/appleater7/chatgpt-ui/internal/kv"
)

// Keys of the persisted client-side layout.
const (
	ConversationsKey = "chatgpt_conversations"
	MessagesKey      = "chatgpt_messages"
	CurrentIDsKey    = "chatgpt_current_ids"
)

// KVStore persists conversations and messages as JSON collections in a
// kv.Store namespace. Every mutation rewrites the affected collections.
type KVStore struct {
	mu    sync.Mutex
	store kv.Store
	opts  options
}

// storedConversation and storedMessage keep timestamps as text so a
// malformed value does not make the whole collection unreadable.
type storedConversation struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

type storedMessage struct {
	ID             int64         `json:"id"`
	Content        string        `json:"content"`
	Sender         domain.Sender `json:"sender"`
	Timestamp      string        `json:"timestamp"`
	ConversationID int64         `json:"conversationId"`
}

// NewKVStore opens a store over kvs. Counters persist under CurrentIDsKey
// and are raised past any id already present in the collections.
func NewKVStore(ctx context.Context, kvs kv.Store, opts ...Option) (*KVStore, error) {
	o := buildOptions(opts)
	if o.generator == nil {
		o.generator = idgen.NewKV(kvs, CurrentIDsKey)
	}
	s := &KVStore{store: kvs, opts: o}
	if err := s.reconcile(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var _ Store = (*KVStore)(nil)

// reconcile keeps the counter record ahead of the stored ids.
func (s *KVStore) reconcile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.loadConversations(ctx)
	if err != nil {
		return err
	}
	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return err
	}
	var maxConv, maxMsg int64
	for _, c := range convs {
		maxConv = max(maxConv, c.ID)
	}
	for _, m := range msgs {
		maxMsg = max(maxMsg, m.ID)
	}
	if err := s.opts.generator.Observe(ctx, idgen.KindConversation, maxConv); err != nil {
		return err
	}
	return s.opts.generator.Observe(ctx, idgen.KindMessage, maxMsg)
}

// CreateConversation creates a new conversation.
func (s *KVStore) CreateConversation(ctx context.Context, title string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.loadConversations(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.opts.generator.Next(ctx, idgen.KindConversation)
	if err != nil {
		return nil, err
	}
	conv := domain.Conversation{ID: id, Title: title, CreatedAt: s.opts.clock()}
	if err := s.saveConversations(ctx, append(convs, conv)); err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *KVStore) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.loadConversations(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

// ListConversations returns all conversations, newest first.
func (s *KVStore) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.loadConversations(ctx)
	if err != nil {
		return nil, err
	}
	sortConversations(convs)
	return convs, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *KVStore) DeleteConversation(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.loadConversations(ctx)
	if err != nil {
		return false, err
	}
	kept := convs[:0]
	for _, c := range convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(convs) {
		return false, nil
	}

	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return false, err
	}
	keptMsgs := msgs[:0]
	for _, m := range msgs {
		if m.ConversationID != id {
			keptMsgs = append(keptMsgs, m)
		}
	}

	// Messages go first so a failed write leaves the conversation to retry.
	if len(keptMsgs) != len(msgs) {
		if err := s.saveMessages(ctx, keptMsgs); err != nil {
			return false, err
		}
	}
	if err := s.saveConversations(ctx, kept); err != nil {
		return false, err
	}
	return true, nil
}

// CreateMessage creates a new message.
func (s *KVStore) CreateMessage(ctx context.Context, in domain.NewMessage) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertMessage(ctx, in)
}

// CreateMessageInConversation creates a message if its conversation exists.
func (s *KVStore) CreateMessageInConversation(ctx context.Context, in domain.NewMessage) (*domain.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.loadConversations(ctx)
	if err != nil {
		return nil, false, err
	}
	found := false
	for _, c := range convs {
		if c.ID == in.ConversationID {
			found = true
			break
		}
	}
	if !found {
		return nil, false, nil
	}
	msg, err := s.insertMessage(ctx, in)
	return msg, true, err
}

// insertMessage appends a message. The caller holds s.mu.
func (s *KVStore) insertMessage(ctx context.Context, in domain.NewMessage) (*domain.Message, error) {
	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return nil, err
	}
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
	if err := s.saveMessages(ctx, append(msgs, msg)); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessage retrieves a message by ID.
func (s *KVStore) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, nil
}

// ListMessages returns the messages of a conversation, oldest first.
func (s *KVStore) ListMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0)
	for _, m := range msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sortMessages(out)
	return out, nil
}

// Close closes the underlying key-value store.
func (s *KVStore) Close() error {
	return s.store.Close()
}

func (s *KVStore) loadConversations(ctx context.Context) ([]domain.Conversation, error) {
	var stored []storedConversation
	if err := s.loadJSON(ctx, ConversationsKey, &stored); err != nil {
		return nil, err
	}
	convs := make([]domain.Conversation, 0, len(stored))
	for _, c := range stored {
		convs = append(convs, domain.Conversation{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: s.parseTime(c.CreatedAt),
		})
	}
	return convs, nil
}

func (s *KVStore) saveConversations(ctx context.Context, convs []domain.Conversation) error {
	stored := make([]storedConversation, 0, len(convs))
	for _, c := range convs {
		stored = append(stored, storedConversation{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	if len(stored) == 0 {
		return s.clear(ctx, ConversationsKey)
	}
	return s.saveJSON(ctx, ConversationsKey, stored)
}

func (s *KVStore) loadMessages(ctx context.Context) ([]domain.Message, error) {
	var stored []storedMessage
	if err := s.loadJSON(ctx, MessagesKey, &stored); err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, domain.Message{
			ID:             m.ID,
			Content:        m.Content,
			Sender:         m.Sender,
			Timestamp:      s.parseTime(m.Timestamp),
			ConversationID: m.ConversationID,
		})
	}
	return msgs, nil
}

func (s *KVStore) saveMessages(ctx context.Context, msgs []domain.Message) error {
	stored := make([]storedMessage, 0, len(msgs))
	for _, m := range msgs {
		stored = append(stored, storedMessage{
			ID:             m.ID,
			Content:        m.Content,
			Sender:         m.Sender,
			Timestamp:      m.Timestamp.Format(time.RFC3339Nano),
			ConversationID: m.ConversationID,
		})
	}
	if len(stored) == 0 {
		return s.clear(ctx, MessagesKey)
	}
	return s.saveJSON(ctx, MessagesKey, stored)
}

// parseTime replaces an unreadable timestamp with the current time.
func (s *KVStore) parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return s.opts.clock()
	}
	return t
}

func (s *KVStore) loadJSON(ctx context.Context, key string, v any) error {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) saveJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// clear removes an emptied collection; an absent key reads as empty.
func (s *KVStore) clear(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}
