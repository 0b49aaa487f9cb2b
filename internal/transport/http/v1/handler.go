// Package v1 provides the chat HTTP handlers.
package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/appleater7/chatgpt-ui/internal/hub"
	"github.com/appleater7/chatgpt-ui/internal/service"
	"github.com/appleater7/chatgpt-ui/internal/ws"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Handler handles chat HTTP requests.
type Handler struct {
	service *service.Service
	streams *ws.Server
	hub     *hub.Hub
}

// NewHandler creates a new handler. streams and h may be nil when realtime
// streaming is disabled.
func NewHandler(service *service.Service, streams *ws.Server, h *hub.Hub) *Handler {
	return &Handler{
		service: service,
		streams: streams,
		hub:     h,
	}
}

// RegisterRoutes registers chat routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversations
	e.GET("/api/conversations", h.ListConversations)
	e.POST("/api/conversations", h.CreateConversation)
	e.GET("/api/conversations/:id", h.GetConversation)
	e.DELETE("/api/conversations/:id", h.DeleteConversation)
	e.GET("/api/conversations/:id/messages", h.ListMessages)
	e.GET("/api/conversations/:id/stream", h.StreamConversation)

	// Messages
	e.POST("/api/messages", h.CreateMessage)
	e.GET("/api/messages/:id", h.GetMessage)
	e.POST("/api/chat", h.StartChat)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	connections := 0
	if h.hub != nil {
		connections = h.hub.GetConnectionCount()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"version":     Version,
		"connections": connections,
	})
}

func errorBody(message string) map[string]string {
	return map[string]string{"message": message}
}

// parseID reads an integer path parameter. Ids that were never assigned,
// zero and negatives included, are left to the lookup to report as missing.
func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// serviceError writes err with the status its code maps to.
func serviceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch service.CodeOf(err) {
	case service.ErrorNotFound:
		status = http.StatusNotFound
	case service.ErrorInvalidInput:
		status = http.StatusBadRequest
	case service.ErrorUnauthorized:
		status = http.StatusUnauthorized
	}
	return c.JSON(status, errorBody(service.ReasonOf(err)))
}
