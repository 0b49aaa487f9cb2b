package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeAIReply is the asynq task type of a delayed reply.
const TaskTypeAIReply = "chat:ai_reply"

const defaultQueue = "chat"

// exit is swapped out in tests.
var exit = os.Exit

// AsynqScheduler stores pending jobs in Redis as asynq scheduled tasks, so
// replies survive a restart of the process that accepted the message.
type AsynqScheduler struct {
	client    *asynq.Client
	server    *asynq.Server
	inspector *asynq.Inspector
	queue     string
	logger    *slog.Logger
}

// NewAsynqScheduler connects client, worker and inspector to redisURL.
func NewAsynqScheduler(redisURL string, logger *slog.Logger) (*AsynqScheduler, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &AsynqScheduler{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     defaultQueue,
		logger:    logger,
	}
	s.server = asynq.NewServer(opt, asynq.Config{
		Concurrency:              4,
		Queues:                   map[string]int{defaultQueue: 1},
		DelayedTaskCheckInterval: time.Second,
		Logger:                   asynqLogger{logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("asynq task failed", "type", task.Type(), "error", err)
		}),
	})
	return s, nil
}

var _ Scheduler = (*AsynqScheduler)(nil)

// Start registers the reply handler and starts the worker.
func (s *AsynqScheduler) Start(run RunFunc) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeAIReply, func(ctx context.Context, t *asynq.Task) error {
		var job Job
		if err := json.Unmarshal(t.Payload(), &job); err != nil {
			return fmt.Errorf("decode reply job: %v: %w", err, asynq.SkipRetry)
		}
		run(ctx, job)
		return nil
	})
	return s.server.Start(mux)
}

// Schedule enqueues job to be processed after delay.
func (s *AsynqScheduler) Schedule(ctx context.Context, job Job, delay time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeAIReply, payload),
		asynq.Queue(s.queue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return fmt.Errorf("asynq: enqueue reply: %w", err)
	}
	s.logger.Debug("reply scheduled", "task_id", info.ID, "conversation_id", job.ConversationID)
	return nil
}

// Cancel deletes the scheduled reply tasks of a conversation.
func (s *AsynqScheduler) Cancel(ctx context.Context, conversationID int64) (int, error) {
	const pageSize = 100
	var doomed []string
	for page := 1; ; page++ {
		tasks, err := s.inspector.ListScheduledTasks(s.queue, asynq.PageSize(pageSize), asynq.Page(page))
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("asynq: list scheduled: %w", err)
		}
		for _, t := range tasks {
			if t.Type != TaskTypeAIReply {
				continue
			}
			var job Job
			if err := json.Unmarshal(t.Payload, &job); err != nil {
				continue
			}
			if job.ConversationID == conversationID {
				doomed = append(doomed, t.ID)
			}
		}
		if len(tasks) < pageSize {
			break
		}
	}

	deleted := 0
	for _, id := range doomed {
		// The task may have moved to pending between listing and deleting.
		if err := s.inspector.DeleteTask(s.queue, id); err != nil {
			s.logger.Debug("asynq delete task", "task_id", id, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Close stops the worker and releases the Redis connections.
func (s *AsynqScheduler) Close() error {
	s.server.Shutdown()
	return errors.Join(s.client.Close(), s.inspector.Close())
}

// asynqLogger routes asynq's internal logging into slog.
type asynqLogger struct {
	l *slog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...), "component", "asynq") }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...), "component", "asynq") }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...), "component", "asynq") }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...), "component", "asynq") }

// Fatal logs and exits, as asynq's own logger does.
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...), "component", "asynq", "fatal", true)
	exit(1)
}
