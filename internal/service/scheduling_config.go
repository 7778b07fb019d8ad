package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

const dateLayout = "2006-01-02"

// SchedulingConfig carries the engine defaults shared by the scheduling services.
type SchedulingConfig struct {
	Location          *time.Location
	WorkingHours      models.OpeningHours
	SlotGranularity   int
	HorizonDays       int
	WeekCount         int
	GenerationWorkers int
	Weights           scheduler.Weights
	CacheTTL          time.Duration
}

func (c SchedulingConfig) withDefaults() SchedulingConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if !c.WorkingHours.Valid() {
		c.WorkingHours = scheduler.DefaultWorkingHours()
	}
	if c.SlotGranularity <= 0 {
		c.SlotGranularity = scheduler.DefaultGranularityMinutes
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = scheduler.DefaultHorizonDays
	}
	if c.WeekCount <= 0 {
		c.WeekCount = scheduler.DefaultWeekCount
	}
	if c.GenerationWorkers <= 0 {
		c.GenerationWorkers = 1
	}
	if c.Weights == (scheduler.Weights{}) {
		c.Weights = scheduler.DefaultWeights()
	}
	return c
}

// SpaceDirectory is the read side of the space catalogue.
type SpaceDirectory interface {
	List(ctx context.Context) ([]models.Space, error)
	FindByID(ctx context.Context, id string) (*models.Space, error)
}

// ReservationStore persists reservations.
type ReservationStore interface {
	ListActive(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, reservations []models.Reservation) error
	Upsert(ctx context.Context, exec sqlx.ExtContext, reservations []models.Reservation) error
	UpdateStatus(ctx context.Context, id string, status models.ReservationStatus) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, appErrors.Inputf("date %q must use YYYY-MM-DD", raw)
	}
	return date, nil
}

// dateIn re-anchors a stored calendar date at midnight in loc.
func dateIn(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func findSpace(ctx context.Context, spaces SpaceDirectory, id string) (*models.Space, error) {
	space, err := spaces.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrResourceNotFound, fmt.Sprintf("space %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load space")
	}
	return space, nil
}

func listSpaces(ctx context.Context, spaces SpaceDirectory) ([]models.Space, error) {
	list, err := spaces.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list spaces")
	}
	return list, nil
}

func listActive(ctx context.Context, store ReservationStore, filter models.ReservationFilter) ([]models.Reservation, error) {
	list, err := store.ListActive(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	return list, nil
}

// maxBuffer is the largest cleaning buffer among spaces. Queries for a day
// start that much earlier so buffered bookings from the previous evening count.
func maxBuffer(spaces ...models.Space) time.Duration {
	var longest time.Duration
	for _, s := range spaces {
		if b := s.CleaningBuffer(); b > longest {
			longest = b
		}
	}
	return longest
}
