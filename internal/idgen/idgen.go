// Package idgen hands out monotonically increasing integer ids per entity kind.
package idgen

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/appleater7/chatgpt-ui/internal/kv"
)

// Kind is an entity kind with its own counter.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindMessage      Kind = "message"
)

// Generator assigns ids. Ids start at 1 and are never reused.
type Generator interface {
	Next(ctx context.Context, kind Kind) (int64, error)
	// Observe raises the counter for kind so the next id is greater than id.
	Observe(ctx context.Context, kind Kind, id int64) error
}

// Counters is the next id to hand out for each kind. Its JSON form is the
// persisted counter record.
type Counters struct {
	Message      int64 `json:"message"`
	Conversation int64 `json:"conversation"`
}

// InitialCounters is the record used before any id is assigned.
func InitialCounters() Counters {
	return Counters{Message: 1, Conversation: 1}
}

func (c *Counters) slot(kind Kind) (*int64, error) {
	switch kind {
	case KindConversation:
		return &c.Conversation, nil
	case KindMessage:
		return &c.Message, nil
	default:
		return nil, fmt.Errorf("idgen: unknown kind %q", kind)
	}
}

// take returns the next id for kind and advances the counter.
func (c *Counters) take(kind Kind) (int64, error) {
	p, err := c.slot(kind)
	if err != nil {
		return 0, err
	}
	if *p < 1 {
		*p = 1
	}
	id := *p
	*p++
	return id, nil
}

// observe reports whether the counter had to move.
func (c *Counters) observe(kind Kind, id int64) (bool, error) {
	p, err := c.slot(kind)
	if err != nil {
		return false, err
	}
	if *p <= id {
		*p = id + 1
		return true, nil
	}
	return false, nil
}

// Memory keeps counters for the lifetime of the process.
type Memory struct {
	mu       sync.Mutex
	counters Counters
}

// NewMemory creates a generator starting at 1 for every kind.
func NewMemory() *Memory {
	return &Memory{counters: InitialCounters()}
}

var _ Generator = (*Memory)(nil)

// Next returns the next id for kind.
func (m *Memory) Next(_ context.Context, kind Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters.take(kind)
}

// Observe raises the counter past id.
func (m *Memory) Observe(_ context.Context, kind Kind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.counters.observe(kind, id)
	return err
}

// KV persists counters as a JSON record under a single key.
type KV struct {
	mu    sync.Mutex
	store kv.Store
	key   string
}

// NewKV creates a generator persisting its counters in store under key.
func NewKV(store kv.Store, key string) *KV {
	return &KV{store: store, key: key}
}

var _ Generator = (*KV)(nil)

// Next loads the counter record, takes an id and writes the record back.
func (g *KV) Next(ctx context.Context, kind Kind) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters, err := g.load(ctx)
	if err != nil {
		return 0, err
	}
	id, err := counters.take(kind)
	if err != nil {
		return 0, err
	}
	if err := g.save(ctx, counters); err != nil {
		return 0, err
	}
	return id, nil
}

// Observe raises the persisted counter past id. The record is only written
// when it changes.
func (g *KV) Observe(ctx context.Context, kind Kind, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters, err := g.load(ctx)
	if err != nil {
		return err
	}
	moved, err := counters.observe(kind, id)
	if err != nil || !moved {
		return err
	}
	return g.save(ctx, counters)
}

// Counters returns the persisted record.
func (g *KV) Counters(ctx context.Context) (Counters, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load(ctx)
}

func (g *KV) load(ctx context.Context) (Counters, error) {
	raw, ok, err := g.store.Get(ctx, g.key)
	if err != nil {
		return Counters{}, fmt.Errorf("idgen: load counters: %w", err)
	}
	if !ok {
		return InitialCounters(), nil
	}
	counters := InitialCounters()
	if err := json.Unmarshal(raw, &counters); err != nil {
		return Counters{}, fmt.Errorf("idgen: decode counters: %w", err)
	}
	return counters, nil
}

func (g *KV) save(ctx context.Context, c Counters) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, g.key, raw); err != nil {
		return fmt.Errorf("idgen: save counters: %w", err)
	}
	return nil
}
