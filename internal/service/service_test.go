package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/repository"
	"github.com/appleater7/chatgpt-ui/internal/service"
	"github.com/appleater7/chatgpt-ui/tests/helpers"
)

func ptr[T any](v T) *T { return &v }

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.ConversationEvent
}

func (n *recordingNotifier) Publish(e domain.ConversationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []domain.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func sendUser(t *testing.T, svc *service.Service, convID int64, content string) *domain.Message {
	t.Helper()
	msg, err := svc.CreateMessage(context.Background(), domain.CreateMessageRequest{
		Content:        ptr(content),
		Sender:         ptr("user"),
		ConversationID: ptr(convID),
	})
	require.NoError(t, err)
	return msg
}

func countAI(t *testing.T, svc *service.Service, convID int64) []domain.Message {
	t.Helper()
	msgs, err := svc.ListMessages(context.Background(), convID)
	require.NoError(t, err)
	var out []domain.Message
	for _, m := range msgs {
		if m.Sender == domain.SenderAI {
			out = append(out, m)
		}
	}
	return out
}

func TestGreetingReplyAfterDelay(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, 100*time.Millisecond, nil)

	conv, err := fx.Service.CreateConversation(ctx, domain.CreateConversationRequest{Title: ptr("Chat A")})
	require.NoError(t, err)

	msg := sendUser(t, fx.Service, conv.ID, "hello")
	assert.Equal(t, domain.SenderUser, msg.Sender)
	assert.Empty(t, countAI(t, fx.Service, conv.ID), "reply must not be inserted synchronously")

	require.Eventually(t, func() bool {
		return len(countAI(t, fx.Service, conv.ID)) == 1
	}, 3*time.Second, 20*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	replies := countAI(t, fx.Service, conv.ID)
	require.Len(t, replies, 1)
	assert.Equal(t, "Hello! How can I assist you today?", replies[0].Content)
}

func TestQuantumComputingReply(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, 10*time.Millisecond, nil)

	conv, err := fx.Service.CreateConversation(ctx, domain.CreateConversationRequest{Title: ptr("physics")})
	require.NoError(t, err)
	sendUser(t, fx.Service, conv.ID, "Can you explain quantum computing?")

	require.Eventually(t, func() bool {
		return len(countAI(t, fx.Service, conv.ID)) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, strings.HasPrefix(countAI(t, fx.Service, conv.ID)[0].Content, "Quantum computing is like traditional computing"))
}

func TestAIMessageDoesNotTriggerReply(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, 10*time.Millisecond, nil)

	conv, err := fx.Service.CreateConversation(ctx, domain.CreateConversationRequest{Title: ptr("quiet")})
	require.NoError(t, err)
	_, err = fx.Service.CreateMessage(ctx, domain.CreateMessageRequest{
		Content: ptr("hello"), Sender: ptr("ai"), ConversationID: ptr(conv.ID),
	})
	require.NoError(t, err)
	assert.Zero(t, fx.Scheduler.Pending())
}

func TestCreateMessageValidation(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	conv, err := fx.Service.CreateConversation(ctx, domain.CreateConversationRequest{Title: ptr("v")})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  domain.CreateMessageRequest
		code service.ErrorCode
	}{
		{"missing content", domain.CreateMessageRequest{Sender: ptr("user"), ConversationID: ptr(conv.ID)}, service.ErrorInvalidInput},
		{"bad sender", domain.CreateMessageRequest{Content: ptr("x"), Sender: ptr("robot"), ConversationID: ptr(conv.ID)}, service.ErrorInvalidInput},
		{"missing conversation id", domain.CreateMessageRequest{Content: ptr("x"), Sender: ptr("user")}, service.ErrorInvalidInput},
		{"unknown conversation", domain.CreateMessageRequest{Content: ptr("x"), Sender: ptr("user"), ConversationID: ptr(int64(404))}, service.ErrorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.Service.CreateMessage(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, service.CodeOf(err))
		})
	}
	assert.Zero(t, fx.Scheduler.Pending())
}

func TestCreateConversationRequiresTitle(t *testing.T) {
	fx := helpers.NewTestService(t, time.Hour, nil)
	_, err := fx.Service.CreateConversation(context.Background(), domain.CreateConversationRequest{})
	require.Error(t, err)
	assert.Equal(t, service.ErrorInvalidInput, service.CodeOf(err))
	assert.Equal(t, "title is required", service.ReasonOf(err))
}

func TestDeleteConversationCascadesAndCancels(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	fx := helpers.NewTestService(t, 200*time.Millisecond, notifier)

	conv, err := fx.Service.CreateConversation(ctx, domain.CreateConversationRequest{Title: ptr("three")})
	require.NoError(t, err)
	for _, content := range []string{"one", "two", "three"} {
		sendUser(t, fx.Service, conv.ID, content)
	}
	assert.Equal(t, 3, fx.Scheduler.Pending())

	assert.True(t, fx.Service.DeleteConversation(ctx, conv.ID))
	assert.Zero(t, fx.Scheduler.Pending())

	msgs, err := fx.Store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = fx.Service.ListMessages(ctx, conv.ID)
	assert.Equal(t, service.ErrorNotFound, service.CodeOf(err))

	assert.False(t, fx.Service.DeleteConversation(ctx, conv.ID))

	time.Sleep(300 * time.Millisecond)
	msgs, err = fx.Store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "cancelled replies must not resurrect the conversation")

	types := notifier.types()
	require.Len(t, types, 4)
	assert.Equal(t, domain.EventTypeConversationDeleted, types[3])
}

func TestStartChat(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, 10*time.Millisecond, nil)

	resp, err := fx.Service.StartChat(ctx, domain.StartChatRequest{Content: ptr("plan a trip to Seoul")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Conversation.Title, "Chat "))
	assert.Equal(t, resp.Conversation.ID, resp.Message.ConversationID)

	require.Eventually(t, func() bool {
		return len(countAI(t, fx.Service, resp.Conversation.ID)) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, strings.HasPrefix(countAI(t, fx.Service, resp.Conversation.ID)[0].Content, "Here's a 7-day Seoul itinerary"))

	titled, err := fx.Service.StartChat(ctx, domain.StartChatRequest{Content: ptr("x"), Title: "  Named  "})
	require.NoError(t, err)
	assert.Equal(t, "Named", titled.Conversation.Title)

	_, err = fx.Service.StartChat(ctx, domain.StartChatRequest{Content: ptr("   ")})
	assert.Equal(t, service.ErrorInvalidInput, service.CodeOf(err))
}

func TestGetMessage(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	conv, err := fx.Service.CreateConversation(ctx, domain.CreateConversationRequest{Title: ptr("m")})
	require.NoError(t, err)
	sent := sendUser(t, fx.Service, conv.ID, "hello")

	got, err := fx.Service.GetMessage(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	_, err = fx.Service.GetMessage(ctx, sent.ID+100)
	assert.Equal(t, service.ErrorNotFound, service.CodeOf(err))
}

func TestSeedSample(t *testing.T) {
	ctx := context.Background()
	fx := helpers.NewTestService(t, time.Hour, nil)

	require.NoError(t, fx.Service.SeedSample(ctx))
	require.NoError(t, fx.Service.SeedSample(ctx))

	convs, err := fx.Service.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, repository.SampleConversationTitle, convs[0].Title)
}

type brokenStore struct {
	repository.Store
}

func (brokenStore) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	return nil, errors.New("storage offline")
}

func (brokenStore) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	return nil, errors.New("storage offline")
}

func (brokenStore) DeleteConversation(ctx context.Context, id int64) (bool, error) {
	return false, errors.New("storage offline")
}

func (brokenStore) CreateConversation(ctx context.Context, title string) (*domain.Conversation, error) {
	return nil, errors.New("storage offline")
}

func TestStoreFailuresDegrade(t *testing.T) {
	ctx := context.Background()
	svc := service.New(brokenStore{}, nil, nil, nil, nil, helpers.DiscardLogger())

	convs, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	assert.NotNil(t, convs)
	assert.Empty(t, convs)

	_, err = svc.GetConversation(ctx, 1)
	assert.Equal(t, service.ErrorNotFound, service.CodeOf(err))

	assert.False(t, svc.DeleteConversation(ctx, 1))

	_, err = svc.CreateConversation(ctx, domain.CreateConversationRequest{Title: ptr("t")})
	assert.Equal(t, service.ErrorInternal, service.CodeOf(err))
}
