package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appleater7/chatgpt-ui/internal/config"
	"github.com/appleater7/chatgpt-ui/internal/dispatcher"
	"github.com/appleater7/chatgpt-ui/internal/hub"
	"github.com/appleater7/chatgpt-ui/internal/kv"
	"github.com/appleater7/chatgpt-ui/internal/logging"
	"github.com/appleater7/chatgpt-ui/internal/policy"
	"github.com/appleater7/chatgpt-ui/internal/repository"
	"github.com/appleater7/chatgpt-ui/internal/service"
	httpserver "github.com/appleater7/chatgpt-ui/internal/transport/http"
	"github.com/appleater7/chatgpt-ui/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("chat server failed", "error", err)
		os.Exit(1)
	}
}

// run starts the server and blocks until a signal or a server failure. Every
// resource opened here is closed before it returns.
func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting chat server",
		"http_port", cfg.HTTPPort,
		"store_backend", cfg.StoreBackend,
		"kv_driver", cfg.KVDriver,
		"scheduler", cfg.Scheduler,
		"reply_locale", cfg.ReplyLocale,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize chat store
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer closeLogged(logger, "store", store.Close)

	// Initialize admin session directory
	sessions, err := repository.NewSQLiteSessionStore(cfg.AdminDatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize session directory: %w", err)
	}
	defer closeLogged(logger, "session directory", sessions.Close)

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("initialize policy engine: %w", err)
	}

	table, err := dispatcher.TableFor(cfg.ReplyLocale)
	if err != nil {
		return fmt.Errorf("load reply rules: %w", err)
	}

	// Initialize hub
	connectionHub := hub.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		connectionHub.Run(hubCtx)
	}()
	defer func() {
		stopHub()
		<-hubDone
	}()

	// Initialize reply dispatcher
	scheduler, err := openScheduler(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}
	replies, err := dispatcher.New(store, scheduler,
		dispatcher.WithDelay(cfg.ReplyDelay),
		dispatcher.WithTable(table),
		dispatcher.WithNotifier(connectionHub),
		dispatcher.WithLogger(logger),
	)
	if err != nil {
		_ = scheduler.Close()
		return fmt.Errorf("start reply dispatcher: %w", err)
	}
	defer closeLogged(logger, "reply dispatcher", replies.Close)

	// Initialize service
	svc := service.New(store, replies, sessions, policyEngine, connectionHub, logger)
	if cfg.SeedSampleData {
		if err := svc.SeedSample(ctx); err != nil {
			logger.Warn("failed to seed sample conversation", "error", err)
		}
	}

	// Create HTTP server
	streams := ws.NewServer(cfg, connectionHub, logger)
	server := httpserver.NewServer(svc, streams, connectionHub, logger)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("HTTP server started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	}

	logger.Info("shutting down chat server")

	// Graceful shutdown; deferred closes then stop the dispatcher, the hub
	// and the stores in that order.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown HTTP server gracefully", "error", err)
	}
	return runErr
}

func closeLogged(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("close failed", "component", name, "error", err)
	}
}

// openStore builds the chat store selected by STORE_BACKEND and KV_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StoreBackend == config.BackendMemory {
		return repository.NewMemoryStore(), nil
	}

	var backend kv.Store
	switch cfg.KVDriver {
	case config.KVDriverRedis:
		r, err := kv.NewRedis(ctx, cfg.RedisURL, cfg.KVNamespace)
		if err != nil {
			return nil, err
		}
		backend = r
	case config.KVDriverMemory:
		backend = kv.NewMemory()
	default:
		s, err := kv.NewSQLite(cfg.DatabaseURL, cfg.KVNamespace)
		if err != nil {
			return nil, err
		}
		backend = s
	}

	store, err := repository.NewKVStore(ctx, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}

func openScheduler(cfg *config.Config, logger *slog.Logger) (dispatcher.Scheduler, error) {
	if cfg.Scheduler == config.SchedulerAsynq {
		return dispatcher.NewAsynqScheduler(cfg.RedisURL, logger)
	}
	return dispatcher.NewTimerScheduler(), nil
}
