package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = dialect{
	name:   "postgres",
	rebind: rebindDollar,
	schema: `
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			external_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			severity_kind TEXT NOT NULL DEFAULT '',
			magnitude DOUBLE PRECISION,
			depth DOUBLE PRECISION,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			occurred_at BIGINT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			affected_radius_km DOUBLE PRECISION,
			created_at BIGINT NOT NULL,
			UNIQUE (type, external_id)
		);

		CREATE TABLE IF NOT EXISTS admin_users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at);
		CREATE INDEX IF NOT EXISTS idx_events_type_occurred_at ON events(type, occurred_at);
	`,
}

// NewPostgresDB opens a PostgreSQL store through the pgx database/sql driver.
// dsn accepts both URL and keyword forms.
func NewPostgresDB(dsn string) (*SQLDB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(10)

	return newSQLDB(db, postgresDialect)
}

// rebindDollar rewrites ? placeholders to $1..$n.
func rebindDollar(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
