// Package http assembles the echo server of the chat backend.
package http

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/appleater7/chatgpt-ui/internal/hub"
	"github.com/appleater7/chatgpt-ui/internal/service"
	"github.com/appleater7/chatgpt-ui/internal/transport/http/admin"
	v1 "github.com/appleater7/chatgpt-ui/internal/transport/http/v1"
	"github.com/appleater7/chatgpt-ui/internal/ws"
)

// NewServer creates the HTTP server for the chat API, the admin API and the
// conversation streams.
func NewServer(svc *service.Service, streams *ws.Server, h *hub.Hub, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= 500 {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, streams, h)
	adminHandler := admin.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	adminHandler.RegisterRoutes(e)

	return e
}
