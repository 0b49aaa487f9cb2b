package helpers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/appleater7/chatgpt-ui/internal/dispatcher"
	"github.com/appleater7/chatgpt-ui/internal/kv"
	"github.com/appleater7/chatgpt-ui/internal/policy"
	"github.com/appleater7/chatgpt-ui/internal/repository"
	"github.com/appleater7/chatgpt-ui/internal/service"
)

func NewTestSessionStore(t *testing.T) *repository.SQLiteSessionStore {
	t.Helper()

	s, err := repository.NewSQLiteSessionStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create session store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestKVStore returns a conversation store persisted in an in-memory
// SQLite key-value table.
func NewTestKVStore(t *testing.T) *repository.KVStore {
	t.Helper()

	backend, err := kv.NewSQLite(":memory:", "test")
	if err != nil {
		t.Fatalf("failed to create kv backend: %v", err)
	}
	s, err := repository.NewKVStore(context.Background(), backend)
	if err != nil {
		_ = backend.Close()
		t.Fatalf("failed to create kv store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fixture bundles a service with the components behind it.
type Fixture struct {
	Service    *service.Service
	Store      repository.Store
	Sessions   *repository.SQLiteSessionStore
	Dispatcher *dispatcher.Dispatcher
	Scheduler  *dispatcher.TimerScheduler
}

// NewTestService wires a service over an in-memory store, a timer scheduler
// with the given reply delay, the SQLite session directory and the default
// admin policy. notifier may be nil.
func NewTestService(t *testing.T, delay time.Duration, notifier service.Notifier) *Fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	sessions := NewTestSessionStore(t)
	logger := DiscardLogger()

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	sched := dispatcher.NewTimerScheduler()
	opts := []dispatcher.Option{dispatcher.WithDelay(delay), dispatcher.WithLogger(logger)}
	if notifier != nil {
		opts = append(opts, dispatcher.WithNotifier(notifier))
	}
	d, err := dispatcher.New(store, sched, opts...)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	return &Fixture{
		Service:    service.New(store, d, sessions, engine, notifier, logger),
		Store:      store,
		Sessions:   sessions,
		Dispatcher: d,
		Scheduler:  sched,
	}
}
