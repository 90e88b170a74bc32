package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

type dialect struct {
	name   string
	schema string
	rebind func(string) string
}

// SQLDB implements Store on database/sql for the SQLite and PostgreSQL
// dialects.
type SQLDB struct {
	db      *sql.DB
	dialect dialect
	locks   typeLocks
}

const eventColumns = `id, external_id, type, title, description, location, severity_kind, magnitude, depth,
	latitude, longitude, occurred_at, url, affected_radius_km, created_at`

const upsertEventSQL = `
	INSERT INTO events (external_id, type, title, description, location, severity_kind, magnitude, depth,
		latitude, longitude, occurred_at, url, affected_radius_km, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (type, external_id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		location = excluded.location,
		severity_kind = excluded.severity_kind,
		magnitude = excluded.magnitude,
		depth = excluded.depth,
		latitude = excluded.latitude,
		longitude = excluded.longitude,
		occurred_at = excluded.occurred_at,
		url = excluded.url,
		affected_radius_km = excluded.affected_radius_km
	RETURNING id, created_at`

func newSQLDB(db *sql.DB, d dialect) (*SQLDB, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLDB{
		db:      db,
		dialect: d,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating %s database: %w", d.name, err)
	}

	return s, nil
}

func (s *SQLDB) migrate() error {
	_, err := s.db.Exec(s.dialect.schema)
	return err
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}

func (s *SQLDB) q(query string) string {
	return s.dialect.rebind(query)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLDB) upsert(ctx context.Context, q queryer, e *models.Event) error {
	var created int64
	err := q.QueryRowContext(ctx, s.q(upsertEventSQL),
		e.ExternalID,
		string(e.Type),
		e.Title,
		e.Description,
		e.Location,
		string(e.Severity.Kind),
		nullSeverity(e.Severity),
		nullFloat(e.Depth),
		e.Latitude,
		e.Longitude,
		e.TimeMillis(),
		e.URL,
		nullFloat(e.AffectedRadiusKm),
		time.Now().UnixMilli(),
	).Scan(&e.ID, &created)
	if err != nil {
		return fmt.Errorf("error upserting event %s/%s: %w", e.Type, e.ExternalID, err)
	}
	e.CreatedAt = time.UnixMilli(created)
	return nil
}

func (s *SQLDB) ReplaceType(ctx context.Context, t models.EventType, events []models.Event) error {
	unlock := s.locks.lock(t)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM events WHERE type = ?`), string(t)); err != nil {
		return fmt.Errorf("error clearing %s events: %w", t, err)
	}

	for i := range events {
		if events[i].Type != t {
			return fmt.Errorf("event %s has type %s, expected %s", events[i].ExternalID, events[i].Type, t)
		}
		if err := s.upsert(ctx, tx, &events[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing %s replace: %w", t, err)
	}
	return nil
}

func (s *SQLDB) Upsert(ctx context.Context, e *models.Event) error {
	unlock := s.locks.lock(e.Type)
	defer unlock()

	return s.upsert(ctx, s.db, e)
}

func (s *SQLDB) UpsertMany(ctx context.Context, t models.EventType, events []models.Event) error {
	unlock := s.locks.lock(t)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range events {
		if events[i].Type != t {
			return fmt.Errorf("event %s has type %s, expected %s", events[i].ExternalID, events[i].Type, t)
		}
		if err := s.upsert(ctx, tx, &events[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing %s upsert: %w", t, err)
	}
	return nil
}

func (s *SQLDB) TrimType(ctx context.Context, t models.EventType, keep int) (int64, error) {
	unlock := s.locks.lock(t)
	defer unlock()

	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM events WHERE type = ? AND id NOT IN (
			SELECT id FROM events WHERE type = ? ORDER BY occurred_at DESC, id DESC LIMIT ?
		)`), string(t), string(t), keep)
	if err != nil {
		return 0, fmt.Errorf("error trimming %s events: %w", t, err)
	}
	return res.RowsAffected()
}

func (s *SQLDB) List(ctx context.Context, opts Filter) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var (
		where []string
		args  []any
	)
	if opts.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*opts.Type))
	}
	if opts.Since != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error listing events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func (s *SQLDB) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *SQLDB) CountByType(ctx context.Context) (map[models.EventType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("error counting events: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.EventType]int)
	for rows.Next() {
		var (
			t string
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("error scanning count: %w", err)
		}
		counts[models.EventType(t)] = n
	}
	return counts, rows.Err()
}

func (s *SQLDB) DeleteOlderThan(ctx context.Context, t *models.EventType, cutoff time.Time) (int64, error) {
	query := `DELETE FROM events WHERE occurred_at < ?`
	args := []any{cutoff.UnixMilli()}
	if t != nil {
		query += ` AND type = ?`
		args = append(args, string(*t))
	}

	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return 0, fmt.Errorf("error deleting old events: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLDB) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("error deleting event %d: %w", id, err)
	}
	return rowsOrNotFound(res)
}

// rowsOrNotFound maps a statement that touched no rows to ErrNotFound.
func rowsOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Update holds the type lock of the row, serializing it with ReplaceType
// and TrimType.
func (s *SQLDB) Update(ctx context.Context, id int64, patch models.EventPatch) (*models.Event, error) {
	var typ string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT type FROM events WHERE id = ?`), id).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading event %d: %w", id, err)
	}
	unlock := s.locks.lock(models.EventType(typ))
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	e, err := scanEvent(tx.QueryRowContext(ctx, s.q(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(e); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE events
		SET title = ?, severity_kind = ?, magnitude = ?, depth = ?, latitude = ?, longitude = ?, location = ?
		WHERE id = ?`),
		e.Title,
		string(e.Severity.Kind),
		nullSeverity(e.Severity),
		nullFloat(e.Depth),
		e.Latitude,
		e.Longitude,
		e.Location,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating event %d: %w", id, err)
	}
	if err := rowsOrNotFound(res); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing update: %w", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*models.Event, error) {
	var (
		e                        models.Event
		typ, kind                string
		magnitude, depth, radius sql.NullFloat64
		occurredAt, createdAt    int64
	)
	err := row.Scan(
		&e.ID,
		&e.ExternalID,
		&typ,
		&e.Title,
		&e.Description,
		&e.Location,
		&kind,
		&magnitude,
		&depth,
		&e.Latitude,
		&e.Longitude,
		&occurredAt,
		&e.URL,
		&radius,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning event: %w", err)
	}

	e.Type = models.EventType(typ)
	if magnitude.Valid {
		e.Severity = models.Severity{Kind: models.SeverityKind(kind), Value: magnitude.Float64}
	}
	if depth.Valid {
		e.Depth = &depth.Float64
	}
	if radius.Valid {
		e.AffectedRadiusKm = &radius.Float64
	}
	e.Time = time.UnixMilli(occurredAt)
	e.CreatedAt = time.UnixMilli(createdAt)
	return &e, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullSeverity(s models.Severity) sql.NullFloat64 {
	if s.Kind == "" {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: s.Value, Valid: true}
}
