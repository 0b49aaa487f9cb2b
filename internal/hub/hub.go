// Package hub fans conversation events out to WebSocket subscribers.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

const sendBuffer = 256

// Connection is one subscriber of a conversation stream.
type Connection struct {
	ID             string
	ConversationID int64
	Conn           *websocket.Conn
	Send           chan []byte
	mu             sync.Mutex
}

// Hub tracks stream connections per conversation.
type Hub struct {
	connections   map[string]*Connection
	conversations map[int64]map[string]bool

	unregister chan *Connection
	broadcast  chan *conversationMessage

	done   chan struct{}
	logger *slog.Logger
	mu     sync.RWMutex
}

type conversationMessage struct {
	ConversationID int64
	Data           []byte
	// Close asks subscribers to disconnect after Data is delivered.
	Close bool
}

// NewHub creates a Hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections:   make(map[string]*Connection),
		conversations: make(map[int64]map[string]bool),
		unregister:    make(chan *Connection),
		broadcast:     make(chan *conversationMessage, sendBuffer),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// Run processes unregistrations and broadcasts until ctx is done. Open
// connections are released on return.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.unregister:
			h.remove(conn)
			h.logger.Debug("stream connection unregistered", "conn_id", conn.ID)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *conversationMessage) {
	h.mu.RLock()
	var stale []*Connection
	for connID := range h.conversations[msg.ConversationID] {
		conn, ok := h.connections[connID]
		if !ok {
			continue
		}
		select {
		case conn.Send <- msg.Data:
			if msg.Close {
				stale = append(stale, conn)
			}
		default:
			h.logger.Warn("stream buffer full, closing", "conn_id", connID)
			stale = append(stale, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stale {
		h.remove(conn)
	}
}

// remove drops conn and closes its send channel so the write pump exits.
func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if ids := h.conversations[conn.ConversationID]; ids != nil {
		delete(ids, conn.ID)
		if len(ids) == 0 {
			delete(h.conversations, conn.ConversationID)
		}
	}
	close(conn.Send)
}

func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.Send)
		delete(h.connections, id)
	}
	h.conversations = make(map[int64]map[string]bool)
}

// NewConnection wraps ws as a subscriber of conversationID.
func (h *Hub) NewConnection(ws *websocket.Conn, conversationID int64) *Connection {
	return &Connection{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Conn:           ws,
		Send:           make(chan []byte, sendBuffer),
	}
}

// Register adds conn to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.connections[conn.ID] = conn
	if h.conversations[conn.ConversationID] == nil {
		h.conversations[conn.ConversationID] = make(map[string]bool)
	}
	h.conversations[conn.ConversationID][conn.ID] = true
	h.logger.Debug("stream connection registered", "conn_id", conn.ID, "conversation_id", conn.ConversationID)
	return true
}

// Unregister removes conn from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish implements the dispatcher and service notifier. Events are dropped
// when the broadcast queue is full or the hub has stopped.
func (h *Hub) Publish(event domain.ConversationEvent) {
	if event.Ts == 0 {
		event.Ts = time.Now().UnixMilli()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("encode conversation event", "error", err)
		return
	}
	msg := &conversationMessage{
		ConversationID: event.ConversationID,
		Data:           data,
		Close:          event.Type == domain.EventTypeConversationDeleted,
	}
	select {
	case <-h.done:
	case h.broadcast <- msg:
	default:
		h.logger.Warn("event queue full, dropping", "conversation_id", event.ConversationID, "type", event.Type)
	}
}

// SendJSONToConnection queues v for a single connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrClosed
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// GetConnectionCount returns the number of open stream connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Subscribers returns the number of connections streaming conversationID.
func (h *Hub) Subscribers(conversationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conversations[conversationID])
}

// WriteMessage writes to the socket with the connection's write lock held.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// ErrClosed is returned for a connection that is no longer registered.
var ErrClosed = errors.New("connection closed")

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
