package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

var testDay = time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func room(id string, capacity int) models.Space {
	return models.Space{
		ID:           id,
		Name:         "Room " + id,
		Building:     "Main",
		Capacity:     capacity,
		Type:         models.SpaceTypeClassroom,
		Status:       models.SpaceStatusAvailable,
		OpeningHours: models.OpeningHours{Open: models.Clock(8, 0), Close: models.Clock(18, 0)},
	}
}

type spaceDirectoryStub struct {
	spaces  []models.Space
	listErr error
}

func (s *spaceDirectoryStub) List(ctx context.Context) ([]models.Space, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.spaces, nil
}

func (s *spaceDirectoryStub) FindByID(ctx context.Context, id string) (*models.Space, error) {
	for i := range s.spaces {
		if s.spaces[i].ID == id {
			space := s.spaces[i]
			return &space, nil
		}
	}
	return nil, sql.ErrNoRows
}

type reservationStoreStub struct {
	mu       sync.Mutex
	items    []models.Reservation
	filters  []models.ReservationFilter
	appended [][]models.Reservation
	execs    []sqlx.ExtContext
}

func (s *reservationStoreStub) ListActive(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	var out []models.Reservation
	for _, r := range s.items {
		if !r.IsActive() {
			continue
		}
		if filter.SpaceID != "" && r.SpaceID != filter.SpaceID {
			continue
		}
		if filter.TeacherID != "" && r.TeacherID != filter.TeacherID {
			continue
		}
		if filter.From != nil && !r.End.After(*filter.From) {
			continue
		}
		if filter.To != nil && !r.Start.Before(*filter.To) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *reservationStoreStub) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			r := s.items[i]
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *reservationStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, reservations []models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reservations {
		for _, existing := range s.items {
			if r.ID != "" && existing.ID == r.ID {
				return fmt.Errorf("insert reservation %s: duplicate key", r.ID)
			}
		}
	}
	s.store(exec, reservations)
	return nil
}

func (s *reservationStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, reservations []models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(exec, reservations)
	return nil
}

func (s *reservationStoreStub) store(exec sqlx.ExtContext, reservations []models.Reservation) {
	s.execs = append(s.execs, exec)
	batch := make([]models.Reservation, len(reservations))
	for i := range reservations {
		if reservations[i].ID == "" {
			reservations[i].ID = "generated-" + reservations[i].SpaceID
		}
		batch[i] = reservations[i]
		s.upsert(reservations[i])
	}
	s.appended = append(s.appended, batch)
}

func (s *reservationStoreStub) upsert(r models.Reservation) {
	for i := range s.items {
		if s.items[i].ID == r.ID {
			s.items[i] = r
			return
		}
	}
	s.items = append(s.items, r)
}

func (s *reservationStoreStub) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *reservationStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type timetableStoreStub struct {
	mu         sync.Mutex
	timetables map[string]*models.Timetable
	statuses   []models.TimetableStatus
	metas      []types.JSONText
}

func newTimetableStoreStub(timetables ...*models.Timetable) *timetableStoreStub {
	stub := &timetableStoreStub{timetables: map[string]*models.Timetable{}}
	for _, t := range timetables {
		stub.timetables[t.ID] = t
	}
	return stub
}

func (s *timetableStoreStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timetable.ID == "" {
		timetable.ID = "tt-created"
	}
	version := 1
	for _, existing := range s.timetables {
		if existing.Name == timetable.Name && existing.Version >= version {
			version = existing.Version + 1
		}
	}
	timetable.Version = version
	s.timetables[timetable.ID] = timetable
	return nil
}

func (s *timetableStoreStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timetables[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *timetableStoreStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timetables[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status = status
	s.statuses = append(s.statuses, status)
	s.metas = append(s.metas, meta)
	return nil
}

func (s *timetableStoreStub) lastStatus() (models.TimetableStatus, types.JSONText) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return "", nil
	}
	return s.statuses[len(s.statuses)-1], s.metas[len(s.metas)-1]
}

// memoryCache stores JSON payloads like the redis repository does.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCache) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
