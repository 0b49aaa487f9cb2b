// Package ws serves conversation event streams over WebSocket.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/appleater7/chatgpt-ui/internal/config"
	"github.com/appleater7/chatgpt-ui/internal/hub"
)

// Client frames.
const (
	TypePing     = "ping"
	TypePong     = "pong"
	TypeHelloAck = "hello_ack"
	TypeError    = "error"
)

// Frame is a control message exchanged on the stream besides conversation
// events.
type Frame struct {
	Type           string `json:"type"`
	Ts             int64  `json:"ts"`
	ConversationID int64  `json:"conversationId,omitempty"`
	ConnectionID   string `json:"connectionId,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Server upgrades requests and pumps hub traffic to the socket.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a stream server.
func NewServer(cfg *config.Config, h *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg: cfg,
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// Serve upgrades the request and subscribes it to conversationID.
func (s *Server) Serve(c echo.Context, conversationID int64) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return err
	}

	conn := s.hub.NewConnection(ws, conversationID)
	if !s.hub.Register(conn) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		return ws.Close()
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	_ = s.hub.SendJSONToConnection(conn, Frame{
		Type:           TypeHelloAck,
		Ts:             time.Now().UnixMilli(),
		ConversationID: conversationID,
		ConnectionID:   conn.ID,
	})
	return nil
}

func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "conn_id", conn.ID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.handleFrame(conn, message)
	}
}

func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("websocket write failed", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame answers client pings. The stream is otherwise one-way.
func (s *Server) handleFrame(conn *hub.Connection, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "invalid JSON message")
		return
	}
	switch frame.Type {
	case TypePing:
		_ = s.hub.SendJSONToConnection(conn, Frame{
			Type:           TypePong,
			Ts:             time.Now().UnixMilli(),
			ConversationID: conn.ConversationID,
		})
	default:
		s.sendError(conn, "unknown message type: "+frame.Type)
	}
}

func (s *Server) sendError(conn *hub.Connection, message string) {
	_ = s.hub.SendJSONToConnection(conn, Frame{
		Type:           TypeError,
		Ts:             time.Now().UnixMilli(),
		ConversationID: conn.ConversationID,
		Message:        message,
	})
}
