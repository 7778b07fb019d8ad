package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
)

const reservationColumns = `id, space_id, teacher_id, title, start_at, end_at, participant_count, priority, status,
equipment, session_type, source, created_at, updated_at`

// ReservationRepository persists reservations.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListActive returns pending and confirmed reservations matching filter,
// ordered by start. From/To select reservations intersecting [From, To).
func (r *ReservationRepository) ListActive(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	conditions := []string{"status IN ('pending', 'confirmed')"}
	args := make([]interface{}, 0, 4)
	if filter.SpaceID != "" {
		args = append(args, filter.SpaceID)
		conditions = append(conditions, fmt.Sprintf("space_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("end_at > $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_at < $%d", len(args)))
	}

	var builder strings.Builder
	builder.WriteString("SELECT " + reservationColumns + " FROM reservations WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY start_at ASC, id ASC")

	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	return reservations, nil
}

// FindByID returns sql.ErrNoRows when the reservation does not exist.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

const insertReservation = `
INSERT INTO reservations (id, space_id, teacher_id, title, start_at, end_at, participant_count, priority, status, equipment, session_type, source, created_at, updated_at)
VALUES (:id, :space_id, :teacher_id, :title, :start_at, :end_at, :participant_count, :priority, :status, :equipment, :session_type, :source, :created_at, :updated_at)`

// Insert stores new reservations. An id that already exists fails with a
// unique violation instead of replacing the stored booking.
func (r *ReservationRepository) Insert(ctx context.Context, exec sqlx.ExtContext, reservations []models.Reservation) error {
	return r.write(ctx, exec, reservations, insertReservation, "insert")
}

// Upsert stores reservations by id, overwriting existing rows. Timetable
// publication relies on it to stay idempotent.
func (r *ReservationRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, reservations []models.Reservation) error {
	const query = insertReservation + `
ON CONFLICT (id) DO UPDATE
SET space_id = EXCLUDED.space_id,
    teacher_id = EXCLUDED.teacher_id,
    title = EXCLUDED.title,
    start_at = EXCLUDED.start_at,
    end_at = EXCLUDED.end_at,
    participant_count = EXCLUDED.participant_count,
    priority = EXCLUDED.priority,
    status = EXCLUDED.status,
    equipment = EXCLUDED.equipment,
    session_type = EXCLUDED.session_type,
    source = EXCLUDED.source,
    updated_at = EXCLUDED.updated_at`
	return r.write(ctx, exec, reservations, query, "upsert")
}

func (r *ReservationRepository) write(ctx context.Context, exec sqlx.ExtContext, reservations []models.Reservation, query, op string) error {
	if len(reservations) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	for i := range reservations {
		res := &reservations[i]
		if res.ID == "" {
			res.ID = uuid.NewString()
		}
		if res.Source == "" {
			res.Source = models.ReservationSourceManual
		}
		if res.Equipment == nil {
			res.Equipment = []string{}
		}
		if res.CreatedAt.IsZero() {
			res.CreatedAt = now
		}
		res.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, res); err != nil {
			return fmt.Errorf("%s reservation %s: %w", op, res.ID, err)
		}
	}
	return nil
}

// UpdateStatus sets the status and returns sql.ErrNoRows for unknown ids.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	const query = `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reservation status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
