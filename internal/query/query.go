package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mr1hm/pulsemap/internal/models"
	"github.com/mr1hm/pulsemap/internal/repository"
)

// RecentLimit is the size of the cross-type "recent" feed.
const RecentLimit = 20

type Options struct {
	Type  *models.EventType
	Limit int
}

// Stats holds per-type counts. It marshals flat, {"earthquake": n, ..., "total": n},
// with every type present.
type Stats struct {
	Counts map[models.EventType]int
	Total  int
}

func (s Stats) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, len(models.EventTypes)+1)
	for _, t := range models.EventTypes {
		out[string(t)] = s.Counts[t]
	}
	out["total"] = s.Total
	return json.Marshal(out)
}

// Service is the read side of the event store.
type Service struct {
	store repository.EventRepository
	caps  func(models.EventType) int
}

// NewService takes the per-type cap lookup used to bound list queries.
func NewService(store repository.EventRepository, caps func(models.EventType) int) *Service {
	return &Service{store: store, caps: caps}
}

// List returns events newest first. A typed query is bounded by that type's
// cap; an untyped query is the union of every type's capped list.
func (s *Service) List(ctx context.Context, opts Options) ([]models.Event, error) {
	if opts.Type != nil {
		limit := s.caps(*opts.Type)
		if opts.Limit > 0 && opts.Limit < limit {
			limit = opts.Limit
		}
		return s.store.List(ctx, repository.Filter{Type: opts.Type, Limit: limit})
	}

	var all []models.Event
	for _, t := range models.EventTypes {
		events, err := s.store.List(ctx, repository.Filter{Type: &t, Limit: s.caps(t)})
		if err != nil {
			return nil, fmt.Errorf("error listing %s events: %w", t, err)
		}
		all = append(all, events...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Time.Equal(all[j].Time) {
			return all[i].Time.After(all[j].Time)
		}
		return all[i].ID > all[j].ID
	})
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	if all == nil {
		all = []models.Event{}
	}
	return all, nil
}

func (s *Service) Recent(ctx context.Context) ([]models.Event, error) {
	return s.List(ctx, Options{Limit: RecentLimit})
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Event, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.store.CountByType(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Counts: make(map[models.EventType]int, len(models.EventTypes))}
	for _, t := range models.EventTypes {
		stats.Counts[t] = counts[t]
		stats.Total += counts[t]
	}
	return stats, nil
}
