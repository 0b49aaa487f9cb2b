package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/idgen"
	"github.com/appleater7/chatgpt-ui/internal/kv"
)

func TestKVStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()

	first, err := NewKVStore(ctx, backend)
	require.NoError(t, err)
	conv, err := first.CreateConversation(ctx, "persisted")
	require.NoError(t, err)
	_, err = first.CreateMessage(ctx, domain.NewMessage{Content: "hello", Sender: domain.SenderUser, ConversationID: conv.ID})
	require.NoError(t, err)

	second, err := NewKVStore(ctx, backend)
	require.NoError(t, err)
	got, err := second.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.Title)

	next, err := second.CreateConversation(ctx, "after reload")
	require.NoError(t, err)
	assert.Equal(t, conv.ID+1, next.ID)

	msgs, err := second.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestKVStoreLayout(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	s, err := NewKVStore(ctx, backend, WithClock(func() time.Time { return at(0) }))
	require.NoError(t, err)

	conv, err := s.CreateConversation(ctx, "layout")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, domain.NewMessage{Content: "x", Sender: domain.SenderAI, ConversationID: conv.ID})
	require.NoError(t, err)

	raw, ok, err := backend.Get(ctx, ConversationsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"title":"layout","createdAt":"2025-05-20T10:00:00Z"}]`, string(raw))

	raw, ok, err = backend.Get(ctx, MessagesKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"content":"x","sender":"ai","timestamp":"2025-05-20T10:00:00Z","conversationId":1}]`, string(raw))

	raw, ok, err = backend.Get(ctx, CurrentIDsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"message":2,"conversation":2}`, string(raw))
}

func TestKVStoreReconcilesStaleCounters(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()

	convs, _ := json.Marshal([]storedConversation{{ID: 7, Title: "imported", CreatedAt: "2025-05-20T10:00:00Z"}})
	msgs, _ := json.Marshal([]storedMessage{{ID: 12, Content: "old", Sender: domain.SenderUser, Timestamp: "2025-05-20T10:00:00Z", ConversationID: 7}})
	require.NoError(t, backend.Set(ctx, ConversationsKey, convs))
	require.NoError(t, backend.Set(ctx, MessagesKey, msgs))
	require.NoError(t, backend.Set(ctx, CurrentIDsKey, []byte(`{"message":1,"conversation":1}`)))

	s, err := NewKVStore(ctx, backend)
	require.NoError(t, err)

	conv, err := s.CreateConversation(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, int64(8), conv.ID)

	msg, err := s.CreateMessage(ctx, domain.NewMessage{Content: "new", Sender: domain.SenderUser, ConversationID: conv.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(13), msg.ID)
}

func TestKVStoreReplacesUnreadableTimestamps(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	convs, _ := json.Marshal([]storedConversation{{ID: 1, Title: "broken", CreatedAt: "yesterday-ish"}})
	require.NoError(t, backend.Set(ctx, ConversationsKey, convs))

	now := at(30)
	s, err := NewKVStore(ctx, backend, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, now, got.CreatedAt)
}

func TestKVStoreSurfacesCorruptCollections(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(ctx, MessagesKey, []byte("not json")))

	_, err := NewKVStore(ctx, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), MessagesKey)
}

func TestKVStoreDeleteAbsentDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	s, err := NewKVStore(ctx, backend)
	require.NoError(t, err)

	ok, err := s.DeleteConversation(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, present, err := backend.Get(ctx, ConversationsKey)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestKVStoreDeletingLastConversationClearsCollections(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	s, err := NewKVStore(ctx, backend)
	require.NoError(t, err)

	conv, err := s.CreateConversation(ctx, "only")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, domain.NewMessage{Content: "x", Sender: domain.SenderUser, ConversationID: conv.ID})
	require.NoError(t, err)

	ok, err := s.DeleteConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.True(t, ok)

	for _, key := range []string{ConversationsKey, MessagesKey} {
		_, present, err := backend.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, present, key)
	}
	raw, present, err := backend.Get(ctx, CurrentIDsKey)
	require.NoError(t, err)
	require.True(t, present)
	assert.JSONEq(t, `{"message":2,"conversation":2}`, string(raw))

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

// failingSetStore fails every write to one key.
type failingSetStore struct {
	kv.Store
	key string
}

func (f failingSetStore) Set(ctx context.Context, key string, value []byte) error {
	if key == f.key {
		return errors.New("write refused")
	}
	return f.Store.Set(ctx, key, value)
}

func (f failingSetStore) Delete(ctx context.Context, key string) error {
	if key == f.key {
		return errors.New("write refused")
	}
	return f.Store.Delete(ctx, key)
}

func TestKVStoreFailedMessageWriteKeepsConversation(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	s, err := NewKVStore(ctx, backend)
	require.NoError(t, err)

	conv, err := s.CreateConversation(ctx, "keep me")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, domain.NewMessage{Content: "x", Sender: domain.SenderUser, ConversationID: conv.ID})
	require.NoError(t, err)

	broken, err := NewKVStore(ctx, failingSetStore{Store: backend, key: MessagesKey})
	require.NoError(t, err)
	ok, err := broken.DeleteConversation(ctx, conv.ID)
	require.Error(t, err)
	assert.False(t, ok)

	got, err := broken.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	msgs, err := broken.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	ok, err = s.DeleteConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoresSharingGeneratorNeverCollide(t *testing.T) {
	ctx := context.Background()
	gen := idgen.NewKV(kv.NewMemory(), CurrentIDsKey)
	a := NewMemoryStore(WithGenerator(gen))
	b := NewMemoryStore(WithGenerator(gen))

	seen := map[int64]bool{}
	for i := 0; i < 3; i++ {
		for _, s := range []Store{a, b} {
			conv, err := s.CreateConversation(ctx, "shared")
			require.NoError(t, err)
			assert.False(t, seen[conv.ID], "id %d handed out twice", conv.ID)
			seen[conv.ID] = true
		}
	}
	assert.Len(t, seen, 6)

	counters, err := gen.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), counters.Conversation)
}
