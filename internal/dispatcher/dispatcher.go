// Package dispatcher produces the canned AI reply to a user message and
// inserts it after a simulated thinking delay.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

// DefaultDelay is the simulated generation latency.
const DefaultDelay = 1500 * time.Millisecond

// Store is the subset of the entity store the dispatcher writes through.
type Store interface {
	CreateMessageInConversation(ctx context.Context, in domain.NewMessage) (*domain.Message, bool, error)
}

// Notifier receives every delivered reply.
type Notifier interface {
	Publish(event domain.ConversationEvent)
}

// Dispatcher selects replies and hands them to a Scheduler.
type Dispatcher struct {
	store     Store
	scheduler Scheduler
	table     Table
	delay     time.Duration
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.delay = d }
}

// WithTable replaces the English reply table.
func WithTable(t Table) Option {
	return func(dp *Dispatcher) { dp.table = t }
}

// WithNotifier publishes delivered replies.
func WithNotifier(n Notifier) Option {
	return func(dp *Dispatcher) { dp.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(dp *Dispatcher) { dp.logger = l }
}

// New creates a dispatcher and starts scheduler with Deliver as its job
// runner.
func New(store Store, scheduler Scheduler, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		store:     store,
		scheduler: scheduler,
		table:     English(),
		delay:     DefaultDelay,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := scheduler.Start(d.Deliver); err != nil {
		return nil, err
	}
	return d, nil
}

// Reply returns the reply the table selects for content.
func (d *Dispatcher) Reply(content string) string {
	_, reply := d.table.Select(content)
	return reply
}

// OnUserMessage schedules the reply to a stored user message.
func (d *Dispatcher) OnUserMessage(ctx context.Context, content string, conversationID int64) error {
	rule, reply := d.table.Select(content)
	if err := d.scheduler.Schedule(ctx, Job{ConversationID: conversationID, Reply: reply}, d.delay); err != nil {
		return err
	}
	d.logger.Debug("reply scheduled", "conversation_id", conversationID, "rule", rule, "delay", d.delay)
	return nil
}

// Deliver inserts a reply whose delay has elapsed. A reply for a conversation
// that no longer exists is dropped. Failures are logged, never returned.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) {
	msg, ok, err := d.store.CreateMessageInConversation(ctx, domain.NewMessage{
		Content:        job.Reply,
		Sender:         domain.SenderAI,
		ConversationID: job.ConversationID,
	})
	if err != nil {
		d.logger.Warn("reply dropped: insert failed", "conversation_id", job.ConversationID, "error", err)
		return
	}
	if !ok {
		d.logger.Info("reply dropped: conversation deleted", "conversation_id", job.ConversationID)
		return
	}

	if d.notifier != nil {
		d.notifier.Publish(domain.ConversationEvent{
			Type:           domain.EventTypeMessageCreated,
			ConversationID: msg.ConversationID,
			Message:        msg,
			Ts:             d.now().UnixMilli(),
		})
	}
}

// Cancel drops the pending replies of a conversation.
func (d *Dispatcher) Cancel(ctx context.Context, conversationID int64) {
	n, err := d.scheduler.Cancel(ctx, conversationID)
	if err != nil {
		d.logger.Warn("cancel pending replies", "conversation_id", conversationID, "error", err)
		return
	}
	if n > 0 {
		d.logger.Info("pending replies cancelled", "conversation_id", conversationID, "count", n)
	}
}

// Close stops the scheduler.
func (d *Dispatcher) Close() error {
	return d.scheduler.Close()
}
