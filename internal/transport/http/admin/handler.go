// Package admin provides the session monitoring HTTP handlers.
package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/service"
)

// Handler handles admin HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers admin routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/admin")
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id", h.GetSession)
	g.GET("/sessions/:id/activities", h.GetSessionActivities)
	g.POST("/sessions/:id/terminate", h.TerminateSession)
	g.POST("/sessions/:id/status", h.SetSessionStatus)
}

// authenticated reads the demo authentication flag. Only the literal
// "true" counts.
func authenticated(c echo.Context) bool {
	return c.QueryParam("authenticated") == "true"
}

func readError(c echo.Context, err error) error {
	switch service.CodeOf(err) {
	case service.ErrorNotFound:
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	case service.ErrorUnauthorized:
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load session data"})
	}
}

func actionError(c echo.Context, status int, message string) error {
	return c.JSON(status, domain.AdminActionResponse{Success: false, Error: message})
}

// ListSessions lists sessions, most recently active first.
// GET /api/admin/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), authenticated(c))
	if err != nil {
		return readError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSession returns one session.
// GET /api/admin/sessions/:id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("id"), authenticated(c))
	if err != nil {
		return readError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// GetSessionActivities returns a session's activity log.
// GET /api/admin/sessions/:id/activities
func (h *Handler) GetSessionActivities(c echo.Context) error {
	activities, err := h.service.GetSessionActivities(c.Request().Context(), c.Param("id"), authenticated(c))
	if err != nil {
		return readError(c, err)
	}
	return c.JSON(http.StatusOK, activities)
}

// TerminateSession deactivates a session.
// POST /api/admin/sessions/:id/terminate
func (h *Handler) TerminateSession(c echo.Context) error {
	if !authenticated(c) {
		return actionError(c, http.StatusUnauthorized, "Unauthorized")
	}

	if !h.service.TerminateSession(c.Request().Context(), c.Param("id"), true) {
		return actionError(c, http.StatusBadRequest, "Unable to terminate session")
	}
	return c.JSON(http.StatusOK, domain.AdminActionResponse{
		Success: true,
		Message: "Session terminated successfully",
	})
}

// SetSessionStatus activates or deactivates a session.
// POST /api/admin/sessions/:id/status
func (h *Handler) SetSessionStatus(c echo.Context) error {
	if !authenticated(c) {
		return actionError(c, http.StatusUnauthorized, "Unauthorized")
	}

	var req domain.SessionStatusRequest
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return actionError(c, http.StatusBadRequest, "active must be a boolean")
	}

	if !h.service.SetSessionStatus(c.Request().Context(), c.Param("id"), *req.Active, true) {
		return actionError(c, http.StatusBadRequest, "Unable to change session status")
	}

	message := "Session deactivated successfully"
	if *req.Active {
		message = "Session activated successfully"
	}
	return c.JSON(http.StatusOK, domain.AdminActionResponse{Success: true, Message: message})
}
