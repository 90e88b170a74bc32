package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already exists")
)

type Filter struct {
	Limit int
	Type  *models.EventType
	Since *time.Time
}

// EventRepository owns the persisted event rows. Writes for one type are
// serialized; different types may be written concurrently.
type EventRepository interface {
	// ReplaceType atomically swaps every row of t for events.
	ReplaceType(ctx context.Context, t models.EventType, events []models.Event) error
	// Upsert inserts or updates by (Type, ExternalID) and writes the
	// assigned ID back into e.
	Upsert(ctx context.Context, e *models.Event) error
	UpsertMany(ctx context.Context, t models.EventType, events []models.Event) error
	// TrimType keeps the newest keep rows of t and returns how many were removed.
	TrimType(ctx context.Context, t models.EventType, keep int) (int64, error)
	List(ctx context.Context, opts Filter) ([]models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	CountByType(ctx context.Context) (map[models.EventType]int, error)
	// DeleteOlderThan removes rows with Time before cutoff. A nil type
	// applies to every type.
	DeleteOlderThan(ctx context.Context, t *models.EventType, cutoff time.Time) (int64, error)
	DeleteByID(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, patch models.EventPatch) (*models.Event, error)
}

type AdminRepository interface {
	CountAdmins(ctx context.Context) (int, error)
	CreateAdmin(ctx context.Context, u *models.AdminUser) error
	GetAdminByID(ctx context.Context, id int64) (*models.AdminUser, error)
	GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	UpdateAdminUsername(ctx context.Context, id int64, username string) error
	UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error
}

// Store is the full persistence surface the service wires together.
type Store interface {
	EventRepository
	AdminRepository
	Close() error
}

// typeLocks hands out one mutex per event type.
type typeLocks struct {
	mu    sync.Mutex
	locks map[models.EventType]*sync.Mutex
}

func (l *typeLocks) lock(t models.EventType) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[models.EventType]*sync.Mutex)
	}
	m, ok := l.locks[t]
	if !ok {
		m = &sync.Mutex{}
		l.locks[t] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
