package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
)

var reservationRowColumns = []string{
	"id", "space_id", "teacher_id", "title", "start_at", "end_at", "participant_count", "priority", "status",
	"equipment", "session_type", "source", "created_at", "updated_at",
}

func TestReservationRepositoryListActiveFilters(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)

	from := time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	start := from.Add(9 * time.Hour)
	rows := sqlmock.NewRows(reservationRowColumns).
		AddRow("r1", "room-101", "teacher-1", "Algebra", start, start.Add(time.Hour), 25, 1, "confirmed",
			"{projector}", "lecture", "timetable", from, from)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE status IN ('pending', 'confirmed') AND space_id = $1 AND end_at > $2 AND start_at < $3 ORDER BY start_at ASC")).
		WithArgs("room-101", from, to).
		WillReturnRows(rows)

	list, err := repo.ListActive(context.Background(), models.ReservationFilter{SpaceID: "room-101", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, models.PriorityUrgent, got.Priority)
	assert.Equal(t, models.ReservationStatusConfirmed, got.Status)
	assert.True(t, got.Start.Equal(start))
	assert.Equal(t, time.Hour, got.Duration())
	assert.Equal(t, models.ReservationSourceTimetable, got.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryListActiveTeacherOnly(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND teacher_id = $1 ORDER BY")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows(reservationRowColumns))

	list, err := repo.ListActive(context.Background(), models.ReservationFilter{TeacherID: "teacher-1"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUpsertOverwrites(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)

	start := time.Date(2024, time.September, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("session-1", "room-101", "teacher-1", "", start, start.Add(90*time.Minute), 25, 1, "confirmed",
			`{"projector","microphone"}`, "lecture", "timetable", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WithArgs(sqlmock.AnyArg(), "room-102", "", "Meeting", start, start.Add(time.Hour), 5, 3, "pending",
			"{}", "", "manual", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	items := []models.Reservation{
		{
			ID: "session-1", SpaceID: "room-101", TeacherID: "teacher-1",
			TimeRange:        models.TimeRange{Start: start, End: start.Add(90 * time.Minute)},
			ParticipantCount: 25, Priority: models.PriorityUrgent, Status: models.ReservationStatusConfirmed,
			Equipment: []string{"projector", "microphone"}, SessionType: models.SessionLecture, Source: models.ReservationSourceTimetable,
		},
		{
			SpaceID: "room-102", Title: "Meeting",
			TimeRange:        models.TimeRange{Start: start, End: start.Add(time.Hour)},
			ParticipantCount: 5, Priority: models.PriorityNormal, Status: models.ReservationStatusPending,
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), nil, items))
	assert.NotEmpty(t, items[1].ID)
	assert.Equal(t, models.ReservationSourceManual, items[1].Source)
	assert.False(t, items[0].UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryInsertDoesNotOverwrite(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)

	start := time.Date(2024, time.September, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`^\s*INSERT INTO reservations \([^)]*\)\s*VALUES \([^)]*\)\s*$`).
		WithArgs("r1", "room-101", "", "Exam", start, start.Add(time.Hour), 30, 4, "pending",
			"{}", "", "manual", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "reservations_pkey"`))

	items := []models.Reservation{{
		ID: "r1", SpaceID: "room-101", Title: "Exam",
		TimeRange:        models.TimeRange{Start: start, End: start.Add(time.Hour)},
		ParticipantCount: 30, Priority: models.PriorityLow, Status: models.ReservationStatusPending,
	}}
	err := repo.Insert(context.Background(), nil, items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert reservation r1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUpdateStatus(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("cancelled", sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status")).
		WithArgs("cancelled", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), "r1", models.ReservationStatusCancelled))
	err := repo.UpdateStatus(context.Background(), "missing", models.ReservationStatusCancelled)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
