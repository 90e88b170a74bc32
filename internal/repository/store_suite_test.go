package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

var baseTime = time.UnixMilli(1_700_000_000_000)

func newEvent(t models.EventType, externalID string, at time.Time) models.Event {
	sev := models.Severity{Kind: t.SeverityKind(), Value: 1}
	if t == models.EventTypeEarthquake {
		sev = models.Richter(3.5)
	}
	return models.Event{
		ExternalID: externalID,
		Type:       t,
		Title:      "event " + externalID,
		Severity:   sev,
		Latitude:   10,
		Longitude:  20,
		Time:       at,
	}
}

func batch(t models.EventType, prefix string, n int) []models.Event {
	events := make([]models.Event, n)
	for i := range events {
		events[i] = newEvent(t, fmt.Sprintf("%s_%d", prefix, i), baseTime.Add(time.Duration(i)*time.Minute))
	}
	return events
}

func countOf(t *testing.T, s Store, typ models.EventType) int {
	t.Helper()
	counts, err := s.CountByType(context.Background())
	if err != nil {
		t.Fatalf("CountByType failed: %v", err)
	}
	return counts[typ]
}

// runStoreSuite exercises the Store contract against one implementation.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	t.Run("UpsertAndGet", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		depth, radius := 10.0, 25.0
		e := newEvent(models.EventTypeEarthquake, "us123", baseTime)
		e.Depth = &depth
		e.AffectedRadiusKm = &radius
		e.Description = "desc"
		e.Location = "10km N of Somewhere"
		e.URL = "https://example.com/us123"

		if err := s.Upsert(ctx, &e); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if e.ID == 0 {
			t.Fatal("expected store to assign an id")
		}

		got, err := s.GetByID(ctx, e.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.ExternalID != "us123" || got.Type != models.EventTypeEarthquake {
			t.Errorf("unexpected identity: %+v", got)
		}
		if got.Severity != models.Richter(3.5) {
			t.Errorf("expected richter 3.5, got %+v", got.Severity)
		}
		if got.Depth == nil || *got.Depth != 10 {
			t.Errorf("expected depth 10, got %v", got.Depth)
		}
		if got.AffectedRadiusKm == nil || *got.AffectedRadiusKm != 25 {
			t.Errorf("expected radius 25, got %v", got.AffectedRadiusKm)
		}
		if !got.Time.Equal(baseTime) {
			t.Errorf("expected time %v, got %v", baseTime, got.Time)
		}
		if got.Location != "10km N of Somewhere" || got.URL != "https://example.com/us123" || got.Description != "desc" {
			t.Errorf("unexpected display fields: %+v", got)
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
	})

	t.Run("GetByIDNotFound", func(t *testing.T) {
		s := open(t)
		if _, err := s.GetByID(context.Background(), 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpsertIsIdempotent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		first := newEvent(models.EventTypeTsunami, "tsunami_a_1", baseTime)
		if err := s.Upsert(ctx, &first); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		second := newEvent(models.EventTypeTsunami, "tsunami_a_1", baseTime)
		second.Title = "updated"
		second.Severity = models.ThreatLevel(3)
		if err := s.Upsert(ctx, &second); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		if second.ID != first.ID {
			t.Errorf("expected id %d to be stable across upserts, got %d", first.ID, second.ID)
		}
		if n := countOf(t, s, models.EventTypeTsunami); n != 1 {
			t.Errorf("expected 1 tsunami row, got %d", n)
		}
		got, _ := s.GetByID(ctx, first.ID)
		if got.Title != "updated" || got.Severity.Value != 3 {
			t.Errorf("expected upsert to update fields, got %+v", got)
		}
	})

	t.Run("UpsertManyTwiceKeepsCount", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			if err := s.UpsertMany(ctx, models.EventTypeTsunami, batch(models.EventTypeTsunami, "ts", 5)); err != nil {
				t.Fatalf("UpsertMany failed: %v", err)
			}
		}
		if n := countOf(t, s, models.EventTypeTsunami); n != 5 {
			t.Errorf("expected 5 rows after repeated upsert, got %d", n)
		}
	})

	t.Run("ReplaceTypeIsolation", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.ReplaceType(ctx, models.EventTypeEarthquake, batch(models.EventTypeEarthquake, "old", 4)); err != nil {
			t.Fatalf("ReplaceType failed: %v", err)
		}
		if err := s.ReplaceType(ctx, models.EventTypeFlood, batch(models.EventTypeFlood, "fl", 3)); err != nil {
			t.Fatalf("ReplaceType failed: %v", err)
		}

		if err := s.ReplaceType(ctx, models.EventTypeEarthquake, batch(models.EventTypeEarthquake, "new", 2)); err != nil {
			t.Fatalf("ReplaceType failed: %v", err)
		}

		if n := countOf(t, s, models.EventTypeFlood); n != 3 {
			t.Errorf("expected flood rows untouched (3), got %d", n)
		}
		eq := models.EventTypeEarthquake
		rows, err := s.List(ctx, Filter{Type: &eq})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 earthquakes after replace, got %d", len(rows))
		}
		for _, r := range rows {
			if r.ExternalID[:3] != "new" {
				t.Errorf("stale row survived replace: %s", r.ExternalID)
			}
		}
	})

	t.Run("ReplaceTypeCollapsesDuplicates", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		events := batch(models.EventTypeWildfire, "wf", 3)
		events = append(events, newEvent(models.EventTypeWildfire, "wf_0", baseTime))
		if err := s.ReplaceType(ctx, models.EventTypeWildfire, events); err != nil {
			t.Fatalf("ReplaceType failed: %v", err)
		}
		if n := countOf(t, s, models.EventTypeWildfire); n != 3 {
			t.Errorf("expected duplicates to collapse to 3 rows, got %d", n)
		}
	})

	t.Run("ReplaceTypeRejectsForeignType", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.ReplaceType(ctx, models.EventTypeVolcano, batch(models.EventTypeVolcano, "vo", 2)); err != nil {
			t.Fatalf("ReplaceType failed: %v", err)
		}

		mixed := batch(models.EventTypeVolcano, "vo_new", 1)
		mixed = append(mixed, newEvent(models.EventTypeFlood, "fl_x", baseTime))
		if err := s.ReplaceType(ctx, models.EventTypeVolcano, mixed); err == nil {
			t.Fatal("expected error for mixed-type batch")
		}

		if n := countOf(t, s, models.EventTypeVolcano); n != 2 {
			t.Errorf("expected previous volcano rows to survive a failed replace, got %d", n)
		}
		if n := countOf(t, s, models.EventTypeFlood); n != 0 {
			t.Errorf("expected no partial write, got %d flood rows", n)
		}
	})

	t.Run("ListOrderingAndFilters", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		s.ReplaceType(ctx, models.EventTypeEarthquake, batch(models.EventTypeEarthquake, "eq", 3))
		s.ReplaceType(ctx, models.EventTypeFlood, batch(models.EventTypeFlood, "fl", 2))

		all, err := s.List(ctx, Filter{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 5 {
			t.Fatalf("expected 5 rows, got %d", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].Time.After(all[i-1].Time) {
				t.Errorf("rows not sorted by time desc at %d", i)
			}
		}

		limited, _ := s.List(ctx, Filter{Limit: 2})
		if len(limited) != 2 {
			t.Errorf("expected 2 rows with limit, got %d", len(limited))
		}

		since := baseTime.Add(2 * time.Minute)
		recent, _ := s.List(ctx, Filter{Since: &since})
		if len(recent) != 1 {
			t.Errorf("expected 1 row since +2m, got %d", len(recent))
		}
	})

	t.Run("TrimType", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		s.UpsertMany(ctx, models.EventTypeTsunami, batch(models.EventTypeTsunami, "ts", 6))
		removed, err := s.TrimType(ctx, models.EventTypeTsunami, 4)
		if err != nil {
			t.Fatalf("TrimType failed: %v", err)
		}
		if removed != 2 {
			t.Errorf("expected 2 rows trimmed, got %d", removed)
		}

		ts := models.EventTypeTsunami
		rows, _ := s.List(ctx, Filter{Type: &ts})
		if len(rows) != 4 || rows[len(rows)-1].ExternalID != "ts_2" {
			t.Errorf("expected the newest 4 rows to remain, got %d ending at %s", len(rows), rows[len(rows)-1].ExternalID)
		}
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		s.ReplaceType(ctx, models.EventTypeEarthquake, batch(models.EventTypeEarthquake, "eq", 5))
		s.ReplaceType(ctx, models.EventTypeFlood, batch(models.EventTypeFlood, "fl", 5))

		// rows at +0m, +1m, +2m are strictly older than +3m
		cutoff := baseTime.Add(3 * time.Minute)
		eq := models.EventTypeEarthquake
		n, err := s.DeleteOlderThan(ctx, &eq, cutoff)
		if err != nil {
			t.Fatalf("DeleteOlderThan failed: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 rows removed, got %d", n)
		}
		if c := countOf(t, s, models.EventTypeFlood); c != 5 {
			t.Errorf("expected flood rows untouched, got %d", c)
		}

		n, _ = s.DeleteOlderThan(ctx, &eq, cutoff)
		if n != 0 {
			t.Errorf("expected second sweep to be a no-op, removed %d", n)
		}

		n, _ = s.DeleteOlderThan(ctx, nil, cutoff)
		if n != 3 {
			t.Errorf("expected 3 flood rows removed by an all-type sweep, got %d", n)
		}
	})

	t.Run("DeleteByID", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		e := newEvent(models.EventTypeVolcano, "vo_1", baseTime)
		s.Upsert(ctx, &e)

		if err := s.DeleteByID(ctx, e.ID); err != nil {
			t.Fatalf("DeleteByID failed: %v", err)
		}
		if err := s.DeleteByID(ctx, e.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		e := newEvent(models.EventTypeEarthquake, "us1", baseTime)
		s.Upsert(ctx, &e)

		lat, lon, title := -33.9, 151.2, "moved"
		updated, err := s.Update(ctx, e.ID, models.EventPatch{Latitude: &lat, Longitude: &lon, Title: &title})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Latitude != lat || updated.Longitude != lon {
			t.Errorf("unexpected updated coordinates: %+v", updated)
		}

		got, _ := s.GetByID(ctx, e.ID)
		if got.Latitude != lat || got.Longitude != lon || got.Title != "moved" {
			t.Errorf("update not persisted: %+v", got)
		}
		if got.ExternalID != "us1" || !got.Time.Equal(baseTime) || got.Type != models.EventTypeEarthquake {
			t.Errorf("immutable fields changed: %+v", got)
		}

		if _, err := s.Update(ctx, 424242, models.EventPatch{Latitude: &lat}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		bad := 91.0
		_, err = s.Update(ctx, e.ID, models.EventPatch{Latitude: &bad})
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
		got, _ = s.GetByID(ctx, e.ID)
		if got.Latitude != lat {
			t.Errorf("rejected update was written: %v", got.Latitude)
		}
	})

	t.Run("UpdateAfterReplaceIsNotFound", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		old := newEvent(models.EventTypeFlood, "fl_old", baseTime)
		if err := s.Upsert(ctx, &old); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if err := s.ReplaceType(ctx, models.EventTypeFlood, batch(models.EventTypeFlood, "fl_new", 3)); err != nil {
			t.Fatalf("ReplaceType failed: %v", err)
		}

		title := "edited"
		if _, err := s.Update(ctx, old.ID, models.EventPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for a replaced row, got %v", err)
		}
	})

	t.Run("UpdateRacingReplace", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.ReplaceType(ctx, models.EventTypeFlood, batch(models.EventTypeFlood, "gen0", 10)); err != nil {
			t.Fatalf("ReplaceType failed: %v", err)
		}
		rows, err := s.List(ctx, Filter{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ReplaceType(ctx, models.EventTypeFlood, batch(models.EventTypeFlood, "gen1", 10)); err != nil {
				t.Errorf("ReplaceType failed: %v", err)
			}
		}()
		for _, r := range rows {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				title := "edited"
				if _, err := s.Update(ctx, id, models.EventPatch{Title: &title}); err != nil && !errors.Is(err, ErrNotFound) {
					t.Errorf("Update %d: expected success or ErrNotFound, got %v", id, err)
				}
			}(r.ID)
		}
		wg.Wait()

		after, err := s.List(ctx, Filter{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(after) != 10 {
			t.Fatalf("expected one generation of 10 rows, got %d", len(after))
		}
		for _, e := range after {
			if len(e.ExternalID) < 4 || e.ExternalID[:4] != "gen1" {
				t.Errorf("stale row survived the replace: %s", e.ExternalID)
			}
		}
	})

	t.Run("ConcurrentReplaceDifferentTypes", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for _, typ := range models.EventTypes {
			for round := 0; round < 3; round++ {
				wg.Add(1)
				go func(typ models.EventType, round int) {
					defer wg.Done()
					if err := s.ReplaceType(ctx, typ, batch(typ, fmt.Sprintf("%s_%d", typ, round), 10)); err != nil {
						t.Errorf("ReplaceType %s failed: %v", typ, err)
					}
				}(typ, round)
			}
		}
		wg.Wait()

		for _, typ := range models.EventTypes {
			if n := countOf(t, s, typ); n != 10 {
				t.Errorf("expected exactly one generation (10 rows) of %s, got %d", typ, n)
			}
		}
	})

	t.Run("Admins", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		n, err := s.CountAdmins(ctx)
		if err != nil || n != 0 {
			t.Fatalf("expected no admins, got %d (%v)", n, err)
		}

		u := &models.AdminUser{Username: "admin", PasswordHash: "hash"}
		if err := s.CreateAdmin(ctx, u); err != nil {
			t.Fatalf("CreateAdmin failed: %v", err)
		}
		if u.ID == 0 {
			t.Fatal("expected admin id to be assigned")
		}
		if err := s.CreateAdmin(ctx, &models.AdminUser{Username: "admin", PasswordHash: "x"}); !errors.Is(err, ErrUsernameTaken) {
			t.Errorf("expected ErrUsernameTaken, got %v", err)
		}

		other := &models.AdminUser{Username: "other", PasswordHash: "x"}
		s.CreateAdmin(ctx, other)
		if err := s.UpdateAdminUsername(ctx, u.ID, "other"); !errors.Is(err, ErrUsernameTaken) {
			t.Errorf("expected ErrUsernameTaken on rename, got %v", err)
		}
		if err := s.UpdateAdminUsername(ctx, u.ID, "root"); err != nil {
			t.Fatalf("UpdateAdminUsername failed: %v", err)
		}
		if err := s.UpdateAdminPassword(ctx, u.ID, "newhash"); err != nil {
			t.Fatalf("UpdateAdminPassword failed: %v", err)
		}

		got, err := s.GetAdminByUsername(ctx, "root")
		if err != nil {
			t.Fatalf("GetAdminByUsername failed: %v", err)
		}
		if got.ID != u.ID || got.PasswordHash != "newhash" {
			t.Errorf("unexpected admin: %+v", got)
		}
		if _, err := s.GetAdminByUsername(ctx, "admin"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected old username to be gone, got %v", err)
		}
		if _, err := s.GetAdminByID(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.UpdateAdminPassword(ctx, 999, "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
