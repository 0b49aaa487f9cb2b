package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

// ListConversations lists every conversation, newest first.
// GET /api/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.service.ListConversations(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, convs)
}

// CreateConversation creates a conversation.
// POST /api/conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	var req domain.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	conv, err := h.service.CreateConversation(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// GetConversation returns one conversation.
// GET /api/conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid conversation ID"))
	}

	conv, err := h.service.GetConversation(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// DeleteConversation deletes a conversation and its messages.
// DELETE /api/conversations/:id
func (h *Handler) DeleteConversation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid conversation ID"))
	}

	if !h.service.DeleteConversation(c.Request().Context(), id) {
		return c.JSON(http.StatusNotFound, errorBody("Conversation not found"))
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMessages lists the messages of a conversation, oldest first.
// GET /api/conversations/:id/messages
func (h *Handler) ListMessages(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid conversation ID"))
	}

	msgs, err := h.service.ListMessages(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// StreamConversation upgrades to a WebSocket carrying the conversation's
// message events.
// GET /api/conversations/:id/stream
func (h *Handler) StreamConversation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid conversation ID"))
	}
	if h.streams == nil {
		return c.JSON(http.StatusNotImplemented, errorBody("streaming is disabled"))
	}
	if _, err := h.service.GetConversation(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}
	return h.streams.Serve(c, id)
}
