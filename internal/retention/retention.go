package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/pulsemap/internal/metrics"
	"github.com/mr1hm/pulsemap/internal/models"
	"github.com/mr1hm/pulsemap/internal/repository"
)

// Policy maps an event type to its maximum age. Zero or a missing entry
// keeps the type forever.
type Policy map[models.EventType]time.Duration

func (p Policy) MaxAge(t models.EventType) time.Duration {
	return p[t]
}

// Result is the number of rows removed per type.
type Result map[models.EventType]int64

func (r Result) Total() int64 {
	var n int64
	for _, c := range r {
		n += c
	}
	return n
}

// Sweeper deletes events older than their type's max age. It only removes
// rows with time < cutoff, so it can run beside a refresh of the same type.
type Sweeper struct {
	store   repository.EventRepository
	policy  Policy
	clock   clockwork.Clock
	metrics *metrics.Metrics
}

func NewSweeper(store repository.EventRepository, policy Policy, clock clockwork.Clock, m *metrics.Metrics) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweeper{store: store, policy: policy, clock: clock, metrics: m}
}

func (s *Sweeper) Policy() Policy {
	return s.policy
}

// Sweep applies the policy to every type. Running it twice in a row removes
// nothing the second time.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	now := s.clock.Now()
	result := make(Result, len(models.EventTypes))

	for _, t := range models.EventTypes {
		age := s.policy.MaxAge(t)
		if age <= 0 {
			continue
		}
		n, err := s.store.DeleteOlderThan(ctx, &t, now.Add(-age))
		if err != nil {
			return result, fmt.Errorf("error sweeping %s: %w", t, err)
		}
		result[t] = n
		s.observe(t, n)
	}

	slog.Info("retention sweep complete", "removed", result.Total())
	return result, nil
}

// SweepAll removes events of every type older than age.
func (s *Sweeper) SweepAll(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, fmt.Errorf("age must be positive, got %s", age)
	}

	n, err := s.store.DeleteOlderThan(ctx, nil, s.clock.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("error sweeping events older than %s: %w", age, err)
	}
	if s.metrics != nil {
		s.metrics.EventsSwept.WithLabelValues("all").Add(float64(n))
	}
	slog.Info("cleanup complete", "max_age", age, "removed", n)
	return n, nil
}

func (s *Sweeper) observe(t models.EventType, n int64) {
	if s.metrics != nil && n > 0 {
		s.metrics.EventsSwept.WithLabelValues(string(t)).Add(float64(n))
	}
	if n > 0 {
		slog.Debug("swept events", "type", t, "count", n)
	}
}
