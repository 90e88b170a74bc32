package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mr1hm/pulsemap/internal/config"
	"github.com/mr1hm/pulsemap/internal/metrics"
	"github.com/mr1hm/pulsemap/internal/models"
	"github.com/mr1hm/pulsemap/internal/repository"
	"github.com/mr1hm/pulsemap/internal/telemetry"
)

// Mode is how a refreshed batch is written to the store.
type Mode string

const (
	// ModeReplace swaps every row of the type for the new batch.
	ModeReplace Mode = "replace"
	// ModeUpsert updates rows in place by external id, then trims to the cap.
	ModeUpsert Mode = "upsert"
)

// ErrAllSourcesFailed is returned by RefreshAll when no source succeeded.
var ErrAllSourcesFailed = errors.New("all sources failed")

type SourceResult struct {
	Type     models.EventType `json:"type"`
	Mode     Mode             `json:"mode"`
	Fetched  int              `json:"fetched"`
	Stored   int              `json:"stored"`
	Trimmed  int64            `json:"trimmed,omitempty"`
	Duration time.Duration    `json:"-"`
	Err      error            `json:"-"`
	Error    string           `json:"error,omitempty"`
}

func (r SourceResult) OK() bool {
	return r.Err == nil
}

// Report summarizes one refresh across every enabled source.
type Report struct {
	StartedAt time.Time      `json:"startedAt"`
	Results   []SourceResult `json:"results"`
}

func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Manager runs every source concurrently and persists what each returns.
type Manager struct {
	store   repository.EventRepository
	sources []Source
	refresh config.RefreshConfig
	metrics *metrics.Metrics
	tracer  trace.Tracer
	group   singleflight.Group
}

func NewManager(store repository.EventRepository, sources []Source, refresh config.RefreshConfig, m *metrics.Metrics) *Manager {
	return &Manager{
		store:   store,
		sources: sources,
		refresh: refresh,
		metrics: m,
		tracer:  telemetry.Tracer("ingestion"),
	}
}

// NewSources builds the enabled sources on one shared client.
func NewSources(cfg config.SourcesConfig, refresh config.RefreshConfig, m *metrics.Metrics) []Source {
	client := NewClient(cfg.FetchTimeout, cfg.UserAgent, func(err *ParseError) {
		if m != nil {
			m.RecordsSkipped.WithLabelValues(string(err.Source)).Inc()
		}
	})

	var sources []Source
	for _, t := range models.EventTypes {
		sc := cfg.Source(t)
		if !sc.Enabled {
			continue
		}
		limit := refresh.Cap(t)
		switch t {
		case models.EventTypeEarthquake:
			sources = append(sources, NewEarthquakeSource(client, sc.URL, limit))
		case models.EventTypeTsunami:
			sources = append(sources, NewTsunamiSource(client, sc.URL, limit))
		case models.EventTypeVolcano:
			sources = append(sources, NewVolcanoSource(client, sc.URL, limit, cfg.VolcanoSinceYear))
		case models.EventTypeWildfire:
			sources = append(sources, NewWildfireSource(client, sc.URL, limit))
		case models.EventTypeFlood:
			sources = append(sources, NewFloodSource(client, sc.URL, limit))
		}
	}
	return sources
}

func (m *Manager) Mode(t models.EventType) Mode {
	if m.refresh.UpsertTypes[t] {
		return ModeUpsert
	}
	return ModeReplace
}

// RefreshAll fetches and stores every source. Concurrent callers share the
// run already in flight. A failing source never stops its siblings; the
// returned error is non-nil only when every source failed.
//
// The shared run ignores the cancellation of whichever caller started it and
// is bounded by the per-request fetch timeout instead. A caller whose ctx is
// done stops waiting and gets ctx.Err() while the run completes for the rest.
func (m *Manager) RefreshAll(ctx context.Context) (*Report, error) {
	ch := m.group.DoChan("refresh", func() (any, error) {
		return m.refreshAll(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			slog.Debug("joined in-flight refresh")
		}
		report, _ := res.Val.(*Report)
		return report, res.Err
	case <-ctx.Done():
		slog.Warn("stopped waiting for refresh", "error", ctx.Err())
		return nil, ctx.Err()
	}
}

func (m *Manager) refreshAll(ctx context.Context) (*Report, error) {
	ctx, span := m.tracer.Start(ctx, "ingestion.refresh_all")
	defer span.End()

	report := &Report{
		StartedAt: time.Now(),
		Results:   make([]SourceResult, len(m.sources)),
	}
	slog.Info("refreshing all sources", "count", len(m.sources))

	var g errgroup.Group
	for i, src := range m.sources {
		g.Go(func() error {
			report.Results[i] = m.refreshSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	failed := report.Failed()
	slog.Info("refresh complete", "sources", len(report.Results), "failed", failed)

	if len(report.Results) > 0 && failed == len(report.Results) {
		errs := make([]error, 0, failed)
		for _, res := range report.Results {
			errs = append(errs, res.Err)
		}
		err := fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	return report, nil
}

func (m *Manager) refreshSource(ctx context.Context, src Source) SourceResult {
	t := src.Type()
	ctx, span := m.tracer.Start(ctx, "ingestion.refresh_source", trace.WithAttributes(attribute.String("type", string(t))))
	defer span.End()

	res := SourceResult{Type: t, Mode: m.Mode(t)}
	start := time.Now()

	events, err := src.Fetch(ctx)
	res.Duration = time.Since(start)
	if m.metrics != nil {
		m.metrics.FetchDuration.WithLabelValues(string(t)).Observe(res.Duration.Seconds())
	}
	if err != nil {
		slog.Error("fetch failed", "source", t, "error", err)
		return m.fail(span, res, "fetch_error", err)
	}

	events = m.clean(t, events)
	res.Fetched = len(events)
	limit := m.refresh.Cap(t)

	switch res.Mode {
	case ModeUpsert:
		err = m.store.UpsertMany(ctx, t, events)
		if err == nil {
			res.Trimmed, err = m.store.TrimType(ctx, t, limit)
		}
	default:
		if len(events) > limit {
			events = events[:limit]
		}
		err = m.store.ReplaceType(ctx, t, events)
	}
	if err != nil {
		slog.Error("store failed", "source", t, "mode", res.Mode, "error", err)
		return m.fail(span, res, "store_error", err)
	}

	res.Stored = len(events)
	if m.metrics != nil {
		m.metrics.Refreshes.WithLabelValues(string(t), "success").Inc()
		m.metrics.EventsStored.WithLabelValues(string(t)).Add(float64(res.Stored))
	}
	span.SetAttributes(attribute.Int("stored", res.Stored))
	slog.Info("source refreshed", "source", t, "mode", res.Mode, "count", res.Stored, "trimmed", res.Trimmed, "duration_ms", res.Duration.Milliseconds())
	return res
}

func (m *Manager) fail(span trace.Span, res SourceResult, outcome string, err error) SourceResult {
	res.Err = err
	res.Error = err.Error()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	if m.metrics != nil {
		m.metrics.Refreshes.WithLabelValues(string(res.Type), outcome).Inc()
	}
	return res
}

// clean drops duplicate external ids, keeping the first in ranked order, and
// anything that would violate the event invariants.
func (m *Manager) clean(t models.EventType, events []models.Event) []models.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, e := range events {
		if _, dup := seen[e.ExternalID]; dup {
			continue
		}
		if err := e.Validate(); err != nil || e.Type != t {
			slog.Debug("record skipped", "source", t, "record", e.ExternalID, "error", err)
			if m.metrics != nil {
				m.metrics.RecordsSkipped.WithLabelValues(string(t)).Inc()
			}
			continue
		}
		seen[e.ExternalID] = struct{}{}
		out = append(out, e)
	}
	return out
}
