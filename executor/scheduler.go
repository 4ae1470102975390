package executor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSchedulerClosed is returned when scheduling on a shut down Scheduler.
var ErrSchedulerClosed = errors.New("scheduler is shut down")

// Scheduler runs delayed tasks on a bounded number of goroutines, sized by
// its configuration's core pool size.
type Scheduler struct {
	config *Configuration
	slots  chan struct{}

	mu      sync.Mutex
	closed  bool
	timers  map[*time.Timer]struct{}
	running sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler for cfg. A configuration without a core
// pool size runs one task at a time.
func NewScheduler(cfg *Configuration) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	size := cfg.CorePoolSize
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config: cfg,
		slots:  make(chan struct{}, size),
		timers: make(map[*time.Timer]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Config returns the scheduler's configuration.
func (s *Scheduler) Config() *Configuration {
	return s.config
}

// Schedule runs task after delay. The returned function cancels the task if
// it has not started yet.
func (s *Scheduler) Schedule(delay time.Duration, task func(ctx context.Context)) (cancel func() bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSchedulerClosed
	}

	s.running.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer s.running.Done()
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()

		select {
		case s.slots <- struct{}{}:
		case <-s.ctx.Done():
			return
		}
		defer func() { <-s.slots }()
		task(s.ctx)
	})
	s.timers[t] = struct{}{}

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, pending := s.timers[t]; !pending || !t.Stop() {
			return false
		}
		delete(s.timers, t)
		s.running.Done()
		return true
	}, nil
}

// OnShutdown stops pending tasks, cancels the context of running ones and
// waits for them to return or for ctx to end.
func (s *Scheduler) OnShutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for t := range s.timers {
		if t.Stop() {
			s.running.Done()
		}
		delete(s.timers, t)
	}
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
