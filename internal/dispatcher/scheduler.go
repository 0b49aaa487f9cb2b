package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSchedulerClosed is returned by Schedule after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Job is one pending AI reply.
type Job struct {
	ConversationID int64  `json:"conversationId"`
	Reply          string `json:"reply"`
}

// RunFunc executes a job once its delay has elapsed.
type RunFunc func(ctx context.Context, job Job)

// Scheduler runs jobs after a delay. Pending jobs are keyed by conversation
// so they can be dropped together.
type Scheduler interface {
	Start(run RunFunc) error
	Schedule(ctx context.Context, job Job, delay time.Duration) error
	// Cancel drops every pending job of a conversation and reports how many
	// were dropped.
	Cancel(ctx context.Context, conversationID int64) (int, error)
	Close() error
}

// TimerScheduler keeps pending jobs in process on time.AfterFunc timers.
type TimerScheduler struct {
	mu      sync.Mutex
	run     RunFunc
	seq     uint64
	pending map[int64]map[uint64]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewTimerScheduler creates an in-process scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{pending: make(map[int64]map[uint64]*time.Timer)}
}

var _ Scheduler = (*TimerScheduler)(nil)

// Start sets the function jobs are handed to.
func (s *TimerScheduler) Start(run RunFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = run
	return nil
}

// Schedule arms a timer for job.
func (s *TimerScheduler) Schedule(ctx context.Context, job Job, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if s.run == nil {
		return errors.New("scheduler not started")
	}

	s.seq++
	id := s.seq
	run := s.run
	jobs, ok := s.pending[job.ConversationID]
	if !ok {
		jobs = make(map[uint64]*time.Timer)
		s.pending[job.ConversationID] = jobs
	}
	s.wg.Add(1)
	jobs[id] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		if !s.claim(job.ConversationID, id) {
			return
		}
		run(context.Background(), job)
	})
	return nil
}

// claim removes a fired timer from the pending set. It returns false when
// the job was cancelled in the meantime.
func (s *TimerScheduler) claim(conversationID int64, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs, ok := s.pending[conversationID]
	if !ok {
		return false
	}
	if _, ok := jobs[id]; !ok {
		return false
	}
	delete(jobs, id)
	if len(jobs) == 0 {
		delete(s.pending, conversationID)
	}
	return true
}

// Cancel stops the pending timers of a conversation.
func (s *TimerScheduler) Cancel(ctx context.Context, conversationID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := s.pending[conversationID]
	delete(s.pending, conversationID)
	for _, t := range jobs {
		if t.Stop() {
			s.wg.Done()
		}
	}
	return len(jobs), nil
}

// Pending reports the number of armed timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, jobs := range s.pending {
		n += len(jobs)
	}
	return n
}

// Close stops every pending timer and waits for running jobs to return.
func (s *TimerScheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for convID, jobs := range s.pending {
		for _, t := range jobs {
			if t.Stop() {
				s.wg.Done()
			}
		}
		delete(s.pending, convID)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
