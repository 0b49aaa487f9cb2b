package v1

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

func TestCreateMessageSchedulesReply(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, 20*time.Millisecond)

	doJSON(t, e, http.MethodPost, "/api/conversations", `{"title":"Chat A"}`, nil, h.CreateConversation)

	rec := doJSON(t, e, http.MethodPost, "/api/messages", `{"content":"hello","sender":"user","conversationId":1}`, nil, h.CreateMessage)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	msg := decode[domain.Message](t, rec)
	if msg.Sender != domain.SenderUser || msg.Content != "hello" || msg.ConversationID != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		rec = doJSON(t, e, http.MethodGet, "/api/conversations/1/messages", "", map[string]string{"id": "1"}, h.ListMessages)
		msgs := decode[[]domain.Message](t, rec)
		if len(msgs) == 2 {
			if msgs[1].Sender != domain.SenderAI || msgs[1].Content != "Hello! How can I assist you today?" {
				t.Fatalf("unexpected reply: %+v", msgs[1])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("reply not delivered, messages: %+v", msgs)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateMessageErrors(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, time.Hour)
	doJSON(t, e, http.MethodPost, "/api/conversations", `{"title":"c"}`, nil, h.CreateConversation)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"content":`, http.StatusBadRequest},
		{"missing sender", `{"content":"x","conversationId":1}`, http.StatusBadRequest},
		{"unknown sender", `{"content":"x","sender":"bot","conversationId":1}`, http.StatusBadRequest},
		{"unknown conversation", `{"content":"x","sender":"user","conversationId":77}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/api/messages", tt.body, nil, h.CreateMessage)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetMessage(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, time.Hour)
	doJSON(t, e, http.MethodPost, "/api/conversations", `{"title":"c"}`, nil, h.CreateConversation)
	doJSON(t, e, http.MethodPost, "/api/messages", `{"content":"x","sender":"ai","conversationId":1}`, nil, h.CreateMessage)

	rec := doJSON(t, e, http.MethodGet, "/api/messages/1", "", map[string]string{"id": "1"}, h.GetMessage)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/api/messages/2", "", map[string]string{"id": "2"}, h.GetMessage)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/api/messages/-1", "", map[string]string{"id": "-1"}, h.GetMessage)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a negative id, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/api/messages/x", "", map[string]string{"id": "x"}, h.GetMessage)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartChat(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, time.Hour)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", `{"content":"write me a poem"}`, nil, h.StartChat)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[domain.StartChatResponse](t, rec)
	if resp.Conversation == nil || resp.Message == nil {
		t.Fatalf("incomplete response: %s", rec.Body.String())
	}
	if !strings.HasPrefix(resp.Conversation.Title, "Chat ") {
		t.Fatalf("unexpected title: %q", resp.Conversation.Title)
	}
	if resp.Message.ConversationID != resp.Conversation.ID {
		t.Fatalf("message not attached to new conversation: %+v", resp.Message)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/chat", `{"title":"no content"}`, nil, h.StartChat)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
