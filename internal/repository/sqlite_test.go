package repository

import (
	"errors"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) Store {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDB(t *testing.T) {
	runStoreSuite(t, setupTestDB)
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestNewSQLiteDB_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pulsemap.db")
	db, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("NewSQLiteDB failed: %v", err)
	}
	defer db.Close()

	// reopening runs the migration against an existing schema
	db2, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	db2.Close()
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar("SELECT * FROM events WHERE type = ? AND occurred_at < ? LIMIT ?")
	want := "SELECT * FROM events WHERE type = $1 AND occurred_at < $2 LIMIT $3"
	if got != want {
		t.Errorf("rebindDollar = %q, want %q", got, want)
	}
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestRowsOrNotFound(t *testing.T) {
	if err := rowsOrNotFound(fakeResult{rows: 1}); err != nil {
		t.Errorf("expected nil for one affected row, got %v", err)
	}
	if err := rowsOrNotFound(fakeResult{rows: 0}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for zero affected rows, got %v", err)
	}
	driverErr := errors.New("driver does not support RowsAffected")
	if err := rowsOrNotFound(fakeResult{err: driverErr}); !errors.Is(err, driverErr) {
		t.Errorf("expected driver error, got %v", err)
	}
}
