package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

type eventKey struct {
	typ        models.EventType
	externalID string
}

// MemoryStore is a process-local Store used by tests and throwaway runs.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	events  map[int64]models.Event
	byKey   map[eventKey]int64
	admins  map[int64]models.AdminUser
	adminID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[int64]models.Event),
		byKey:  make(map[eventKey]int64),
		admins: make(map[int64]models.AdminUser),
	}
}

func (m *MemoryStore) Close() error {
	return nil
}

// upsertLocked expects m.mu to be held for writing.
func (m *MemoryStore) upsertLocked(e *models.Event) {
	key := eventKey{typ: e.Type, externalID: e.ExternalID}
	if id, ok := m.byKey[key]; ok {
		e.ID = id
		e.CreatedAt = m.events[id].CreatedAt
	} else {
		m.nextID++
		e.ID = m.nextID
		e.CreatedAt = time.Now()
		m.byKey[key] = e.ID
	}
	m.events[e.ID] = *e
}

func (m *MemoryStore) deleteLocked(id int64) {
	e, ok := m.events[id]
	if !ok {
		return
	}
	delete(m.byKey, eventKey{typ: e.Type, externalID: e.ExternalID})
	delete(m.events, id)
}

func (m *MemoryStore) ReplaceType(ctx context.Context, t models.EventType, events []models.Event) error {
	for _, e := range events {
		if e.Type != t {
			return &typeMismatchError{externalID: e.ExternalID, got: e.Type, want: t}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.events {
		if e.Type == t {
			m.deleteLocked(id)
		}
	}
	for i := range events {
		m.upsertLocked(&events[i])
	}
	return nil
}

func (m *MemoryStore) Upsert(ctx context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertLocked(e)
	return nil
}

func (m *MemoryStore) UpsertMany(ctx context.Context, t models.EventType, events []models.Event) error {
	for _, e := range events {
		if e.Type != t {
			return &typeMismatchError{externalID: e.ExternalID, got: e.Type, want: t}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range events {
		m.upsertLocked(&events[i])
	}
	return nil
}

func (m *MemoryStore) TrimType(ctx context.Context, t models.EventType, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sortedLocked(Filter{Type: &t})
	if len(rows) <= keep {
		return 0, nil
	}
	for _, e := range rows[keep:] {
		m.deleteLocked(e.ID)
	}
	return int64(len(rows) - keep), nil
}

func (m *MemoryStore) List(ctx context.Context, opts Filter) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.sortedLocked(opts)
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows, nil
}

func (m *MemoryStore) sortedLocked(opts Filter) []models.Event {
	var rows []models.Event
	for _, e := range m.events {
		if opts.Type != nil && e.Type != *opts.Type {
			continue
		}
		if opts.Since != nil && e.Time.Before(*opts.Since) {
			continue
		}
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Time.Equal(rows[j].Time) {
			return rows[i].Time.After(rows[j].Time)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) CountByType(ctx context.Context) (map[models.EventType]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[models.EventType]int)
	for _, e := range m.events {
		counts[e.Type]++
	}
	return counts, nil
}

func (m *MemoryStore) DeleteOlderThan(ctx context.Context, t *models.EventType, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, e := range m.events {
		if t != nil && e.Type != *t {
			continue
		}
		if e.Time.Before(cutoff) {
			m.deleteLocked(id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteByID(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	m.deleteLocked(id)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id int64, patch models.EventPatch) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := patch.Apply(&e); err != nil {
		return nil, err
	}
	m.events[id] = e
	return &e, nil
}

func (m *MemoryStore) CountAdmins(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.admins), nil
}

func (m *MemoryStore) CreateAdmin(ctx context.Context, u *models.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usernameTakenLocked(u.Username, 0) {
		return ErrUsernameTaken
	}
	m.adminID++
	u.ID = m.adminID
	u.CreatedAt = time.Now()
	m.admins[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetAdminByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.admins {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateAdminUsername(ctx context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.admins[id]
	if !ok {
		return ErrNotFound
	}
	if m.usernameTakenLocked(username, id) {
		return ErrUsernameTaken
	}
	u.Username = username
	m.admins[id] = u
	return nil
}

func (m *MemoryStore) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.admins[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.admins[id] = u
	return nil
}

func (m *MemoryStore) usernameTakenLocked(username string, exceptID int64) bool {
	for id, u := range m.admins {
		if id != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

type typeMismatchError struct {
	externalID string
	got, want  models.EventType
}

func (e *typeMismatchError) Error() string {
	return "event " + e.externalID + " has type " + string(e.got) + ", expected " + string(e.want)
}
