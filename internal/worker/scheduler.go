package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type schedule struct {
	every time.Duration
	task  Task
}

// Scheduler turns clock ticks into Task messages on a WorkerPool. A tick that
// finds the queue full is dropped rather than stacked behind the running
// task.
type Scheduler struct {
	clock     clockwork.Clock
	pool      *WorkerPool
	schedules []schedule
	onDrop    func(task string)
	wg        sync.WaitGroup
}

func NewScheduler(clock clockwork.Clock, pool *WorkerPool) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, pool: pool}
}

// Every registers task to be queued once per interval. Non-positive
// intervals are ignored. Must be called before Start.
func (s *Scheduler) Every(interval time.Duration, task Task) {
	if interval <= 0 {
		return
	}
	s.schedules = append(s.schedules, schedule{every: interval, task: task})
}

// OnDrop is called with the task name whenever a tick is dropped.
func (s *Scheduler) OnDrop(fn func(task string)) {
	s.onDrop = fn
}

func (s *Scheduler) Len() int {
	return len(s.schedules)
}

func (s *Scheduler) Start(ctx context.Context) {
	for _, sch := range s.schedules {
		s.wg.Add(1)
		go s.run(ctx, sch)
	}
}

func (s *Scheduler) run(ctx context.Context, sch schedule) {
	defer s.wg.Done()
	slog.Info("starting schedule", "task", sch.task.Name, "interval", sch.every)

	ticker := s.clock.NewTicker(sch.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("schedule shutting down", "task", sch.task.Name)
			return
		case <-ticker.Chan():
			if !s.pool.TrySubmit(sch.task) {
				slog.Warn("scheduled task dropped", "task", sch.task.Name)
				if s.onDrop != nil {
					s.onDrop(sch.task.Name)
				}
			}
		}
	}
}

// Wait blocks until every schedule loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
