package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleater7/chatgpt-ui/internal/config"
	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/hub"
)

func testConfig() *config.Config {
	return &config.Config{
		PingInterval:   time.Second,
		WriteTimeout:   time.Second,
		ReadTimeout:    5 * time.Second,
		MaxMessageSize: 4096,
	}
}

func startStream(t *testing.T, conversationID int64) (*hub.Hub, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.NewHub(nil)
	go h.Run(ctx)

	srv := NewServer(testConfig(), h, nil)
	e := echo.New()
	e.GET("/stream", func(c echo.Context) error { return srv.Serve(c, conversationID) })
	ts := httptest.NewServer(e)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		ts.Close()
	})
	return h, conn
}

func readFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestServeSendsHelloAndEvents(t *testing.T) {
	h, conn := startStream(t, 7)

	var hello Frame
	readFrame(t, conn, &hello)
	assert.Equal(t, TypeHelloAck, hello.Type)
	assert.Equal(t, int64(7), hello.ConversationID)
	assert.NotEmpty(t, hello.ConnectionID)
	assert.Equal(t, 1, h.Subscribers(7))

	h.Publish(domain.ConversationEvent{
		Type:           domain.EventTypeMessageCreated,
		ConversationID: 7,
		Message:        &domain.Message{ID: 1, Content: "hi", Sender: domain.SenderAI, ConversationID: 7},
	})

	var event domain.ConversationEvent
	readFrame(t, conn, &event)
	assert.Equal(t, domain.EventTypeMessageCreated, event.Type)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hi", event.Message.Content)
}

func TestServeAnswersPing(t *testing.T) {
	_, conn := startStream(t, 1)

	var hello Frame
	readFrame(t, conn, &hello)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypePing}))
	var pong Frame
	readFrame(t, conn, &pong)
	assert.Equal(t, TypePong, pong.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var bad Frame
	readFrame(t, conn, &bad)
	assert.Equal(t, TypeError, bad.Type)
	assert.Equal(t, "invalid JSON message", bad.Message)
}

func TestServeClosesOnConversationDeleted(t *testing.T) {
	h, conn := startStream(t, 3)

	var hello Frame
	readFrame(t, conn, &hello)

	h.Publish(domain.ConversationEvent{Type: domain.EventTypeConversationDeleted, ConversationID: 3})

	var event domain.ConversationEvent
	readFrame(t, conn, &event)
	assert.Equal(t, domain.EventTypeConversationDeleted, event.Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	require.Eventually(t, func() bool { return h.Subscribers(3) == 0 }, time.Second, 10*time.Millisecond)
}
