package periodic

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task runs fn every interval on its own goroutine until Stop is called.
// Start and Stop are idempotent; the owning component stops its tasks in
// Destroy.
type Task struct {
	name     string
	interval time.Duration
	fn       func()
	logger   *zap.Logger

	mu      sync.Mutex
	done    chan struct{}
	stopped sync.WaitGroup
}

func NewTask(name string, interval time.Duration, fn func(), logger *zap.Logger) *Task {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger,
	}
}

func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		return
	}
	t.done = make(chan struct{})
	t.stopped.Add(1)

	go t.run(t.done)

	t.logger.Debug("Periodic task started",
		zap.String("task", t.name),
		zap.Duration("interval", t.interval),
	)
}

func (t *Task) run(done chan struct{}) {
	defer t.stopped.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.fn()
		}
	}
}

// Stop halts the task and waits for any in-flight tick to finish.
func (t *Task) Stop() {
	t.mu.Lock()
	if t.done == nil {
		t.mu.Unlock()
		return
	}
	close(t.done)
	t.done = nil
	t.mu.Unlock()

	t.stopped.Wait()

	t.logger.Debug("Periodic task stopped", zap.String("task", t.name))
}
