package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

// CreateMessage stores a message. A user message schedules the AI reply,
// which clients pick up by polling or streaming.
// POST /api/messages
func (h *Handler) CreateMessage(c echo.Context) error {
	var req domain.CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	msg, err := h.service.CreateMessage(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// GetMessage returns one message.
// GET /api/messages/:id
func (h *Handler) GetMessage(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid message ID"))
	}

	msg, err := h.service.GetMessage(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, msg)
}

// StartChat opens a conversation with its first user message.
// POST /api/chat
func (h *Handler) StartChat(c echo.Context) error {
	var req domain.StartChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	resp, err := h.service.StartChat(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}
