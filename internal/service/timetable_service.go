package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-space-scheduler/internal/dto"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

// TimetableStore persists versioned weekly templates.
type TimetableStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error
}

// TimetableService validates, stores and expands weekly timetables.
type TimetableService struct {
	spaces     SpaceDirectory
	timetables TimetableStore
	tx         txProvider
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        SchedulingConfig
}

// NewTimetableService wires the timetable service.
func NewTimetableService(spaces SpaceDirectory, timetables TimetableStore, tx txProvider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SchedulingConfig) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		spaces:     spaces,
		timetables: timetables,
		tx:         tx,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// GenerateSessions expands the payload entries into dated sessions without
// storing anything.
func (s *TimetableService) GenerateSessions(ctx context.Context, req dto.GenerateSessionsRequest) (*models.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	yearStart, err := parseDate(req.YearStart, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	weeks := req.WeekCount
	if weeks == 0 {
		weeks = s.cfg.WeekCount
	}
	return s.expand(ctx, req.Entries, yearStart, weeks)
}

// Validate checks entries against each other, the working hours and the
// space directory.
func (s *TimetableService) Validate(ctx context.Context, req dto.ValidateTimetableRequest) (models.ValidationResult, error) {
	return s.validate(ctx, req.Entries)
}

// Create stores a new version of a named template. Invalid templates are
// refused with ErrValidation and the validation result.
func (s *TimetableService) Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, *models.ValidationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	yearStart, err := parseDate(req.YearStart, s.cfg.Location)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]models.TimetableEntry, len(req.Entries))
	copy(entries, req.Entries)
	for i := range entries {
		if strings.TrimSpace(entries[i].ID) == "" {
			entries[i].ID = uuid.NewString()
		}
	}
	result, err := s.validate(ctx, entries)
	if err != nil {
		return nil, nil, err
	}
	if !result.IsValid {
		return nil, &result, appErrors.Clone(appErrors.ErrValidation, "timetable has conflicts")
	}
	if s.tx == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	weeks := req.WeekCount
	if weeks == 0 {
		weeks = s.cfg.WeekCount
	}
	timetable := &models.Timetable{
		Name:      strings.TrimSpace(req.Name),
		YearStart: yearStart,
		WeekCount: weeks,
		Status:    models.TimetableStatusDraft,
		Entries:   entries,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.CreateVersioned(ctx, tx, timetable); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
	}

	s.logger.Info("timetable stored",
		zap.String("timetable_id", timetable.ID),
		zap.String("name", timetable.Name),
		zap.Int("version", timetable.Version),
		zap.Int("entries", len(timetable.Entries)),
	)
	return timetable, &result, nil
}

// Get loads a template with its entries.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	return loadTimetable(ctx, s.timetables, id)
}

func (s *TimetableService) validate(ctx context.Context, entries []models.TimetableEntry) (models.ValidationResult, error) {
	spaces, err := listSpaces(ctx, s.spaces)
	if err != nil {
		return models.ValidationResult{}, err
	}
	rooms := make(map[string]models.Space, len(spaces))
	for _, space := range spaces {
		rooms[space.ID] = space
	}
	return scheduler.ValidateTimetable(entries, scheduler.ValidateOptions{
		WorkingHours: s.cfg.WorkingHours,
		KnownRooms:   rooms,
	}), nil
}

func (s *TimetableService) expand(ctx context.Context, entries []models.TimetableEntry, yearStart time.Time, weeks int) (*models.GenerationResult, error) {
	result, err := scheduler.GenerateSemesterSessions(ctx, entries, yearStart, weeks, scheduler.GenerateOptions{Workers: s.cfg.GenerationWorkers})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordGeneration(result)
	if len(result.Skipped) > 0 {
		s.logger.Warn("timetable entries skipped", zap.Int("skipped", len(result.Skipped)))
	}
	return result, nil
}

func loadTimetable(ctx context.Context, timetables TimetableStore, id string) (*models.Timetable, error) {
	timetable, err := timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrResourceNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return timetable, nil
}
