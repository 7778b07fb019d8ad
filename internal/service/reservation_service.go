package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-space-scheduler/internal/dto"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/scheduler"
	"github.com/noah-isme/sma-space-scheduler/pkg/cache"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

// ReservationService checks, books and transitions reservations and answers
// availability queries.
type ReservationService struct {
	spaces       SpaceDirectory
	reservations ReservationStore
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          SchedulingConfig
}

// NewReservationService wires the reservation service.
func NewReservationService(spaces SpaceDirectory, reservations ReservationStore, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SchedulingConfig) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		spaces:       spaces,
		reservations: reservations,
		cache:        cacheSvc,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg.withDefaults(),
	}
}

// CheckConflicts reports every conflict of the candidate without storing it.
func (s *ReservationService) CheckConflicts(ctx context.Context, req dto.ReservationRequest) (*dto.ConflictCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	candidate := reservationFromRequest(req, models.ReservationStatusPending)
	conflicts, err := s.detect(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return &dto.ConflictCheckResponse{Conflicts: conflicts, HasBlocking: hasBlocking(conflicts)}, nil
}

// Create books a space. When blocking conflicts exist and Force is false the
// reservation is refused with ErrConflict and the conflicts are returned.
func (s *ReservationService) Create(ctx context.Context, req dto.CreateReservationRequest) (*models.Reservation, []models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	status := models.ReservationStatus(req.Status)
	if status == "" {
		status = models.ReservationStatusPending
	}
	candidate := reservationFromRequest(req.ReservationRequest, status)
	if candidate.ID != "" {
		if err := s.ensureNewID(ctx, candidate.ID); err != nil {
			return nil, nil, err
		}
	}

	conflicts, err := s.detect(ctx, candidate)
	if err != nil {
		return nil, nil, err
	}
	if hasBlocking(conflicts) && !req.Force {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "reservation conflicts with existing bookings")
	}

	batch := []models.Reservation{candidate}
	if err := s.reservations.Insert(ctx, nil, batch); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reservation")
	}
	created := batch[0]
	s.cache.InvalidateAvailability(ctx, created.SpaceID)
	s.logger.Info("reservation created",
		zap.String("reservation_id", created.ID),
		zap.String("space_id", created.SpaceID),
		zap.Int("conflicts", len(conflicts)),
		zap.Bool("forced", req.Force && len(conflicts) > 0),
	)
	return &created, conflicts, nil
}

func (s *ReservationService) ensureNewID(ctx context.Context, id string) error {
	_, err := s.reservations.FindByID(ctx, id)
	switch {
	case err == nil:
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("reservation %s already exists", id))
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
}

// UpdateStatus applies a lifecycle transition.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, req dto.UpdateReservationStatusRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	current, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	next := models.ReservationStatus(req.Status)
	if !current.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move reservation from %s to %s", current.Status, next))
	}
	if err := s.reservations.UpdateStatus(ctx, id, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}
	current.Status = next
	current.UpdatedAt = time.Now().UTC()
	s.cache.InvalidateAvailability(ctx, current.SpaceID)
	return current, nil
}

// FreeSlots enumerates candidate slots of a space on one day.
func (s *ReservationService) FreeSlots(ctx context.Context, spaceID string, query dto.FreeSlotsQuery) ([]models.TimeSlot, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid free slots query")
	}
	date, err := parseDate(query.Date, s.cfg.Location)
	if err != nil {
		return nil, false, err
	}
	granularity := query.Granularity
	if granularity == 0 {
		granularity = s.cfg.SlotGranularity
	}

	key := cache.Key(cacheFamilySlots, spaceID, query.Date, strconv.Itoa(query.Duration), strconv.Itoa(granularity))
	var cached []models.TimeSlot
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	space, err := findSpace(ctx, s.spaces, spaceID)
	if err != nil {
		return nil, false, err
	}
	day := models.DayRange(date)
	from := day.Start.Add(-space.CleaningBuffer())
	existing, err := listActive(ctx, s.reservations, models.ReservationFilter{SpaceID: space.ID, From: &from, To: &day.End})
	if err != nil {
		return nil, false, err
	}
	slots, err := scheduler.ComputeFreeSlots(*space, date, existing, query.Duration, granularity)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, slots, s.cfg.CacheTTL)
	return slots, false, nil
}

// FreeDays lists, per day of the horizon, the spaces without any booking.
func (s *ReservationService) FreeDays(ctx context.Context, query dto.FreeDaysQuery) ([]models.FreeDay, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid free days query")
	}
	from := models.Midnight(time.Now().In(s.cfg.Location))
	if query.From != "" {
		parsed, err := parseDate(query.From, s.cfg.Location)
		if err != nil {
			return nil, false, err
		}
		from = parsed
	}
	horizon := query.Horizon
	if horizon == 0 {
		horizon = s.cfg.HorizonDays
	}

	key := cache.Key(cacheFamilyFreeDays, from.Format(dateLayout), strconv.Itoa(horizon))
	var cached []models.FreeDay
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	spaces, err := listSpaces(ctx, s.spaces)
	if err != nil {
		return nil, false, err
	}
	to := from.AddDate(0, 0, horizon)
	existing, err := listActive(ctx, s.reservations, models.ReservationFilter{From: &from, To: &to})
	if err != nil {
		return nil, false, err
	}
	days, err := scheduler.FreeDaysInHorizon(spaces, existing, from, horizon)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, days, s.cfg.CacheTTL)
	return days, false, nil
}

// detect loads the reservations that can clash with candidate and runs the
// conflict detector over them.
func (s *ReservationService) detect(ctx context.Context, candidate models.Reservation) ([]models.Conflict, error) {
	if err := scheduler.ValidateRange(candidate.TimeRange); err != nil {
		return nil, err
	}
	space, err := findSpace(ctx, s.spaces, candidate.SpaceID)
	if err != nil {
		return nil, err
	}

	from := candidate.Start.Add(-space.CleaningBuffer())
	existing, err := listActive(ctx, s.reservations, models.ReservationFilter{SpaceID: space.ID, From: &from, To: &candidate.End})
	if err != nil {
		return nil, err
	}
	if candidate.TeacherID != "" {
		byTeacher, err := listActive(ctx, s.reservations, models.ReservationFilter{TeacherID: candidate.TeacherID, From: &candidate.Start, To: &candidate.End})
		if err != nil {
			return nil, err
		}
		existing = mergeReservations(existing, byTeacher)
	}

	conflicts, err := scheduler.DetectConflicts(candidate, existing, space)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordConflicts(conflicts)
	return conflicts, nil
}

func reservationFromRequest(req dto.ReservationRequest, status models.ReservationStatus) models.Reservation {
	priority := models.Priority(req.Priority)
	if priority == 0 {
		priority = models.PriorityNormal
	}
	return models.Reservation{
		ID:               req.ID,
		SpaceID:          req.SpaceID,
		TeacherID:        req.TeacherID,
		Title:            req.Title,
		TimeRange:        models.TimeRange{Start: req.Start, End: req.End},
		ParticipantCount: req.ParticipantCount,
		Priority:         priority,
		Status:           status,
		Equipment:        req.Equipment,
		SessionType:      models.SessionType(req.SessionType),
		Source:           models.ReservationSourceManual,
	}
}

func mergeReservations(a, b []models.Reservation) []models.Reservation {
	seen := make(map[string]struct{}, len(a))
	out := make([]models.Reservation, 0, len(a)+len(b))
	for _, r := range a {
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	for _, r := range b {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasBlocking(conflicts []models.Conflict) bool {
	for _, c := range conflicts {
		if c.Blocking() {
			return true
		}
	}
	return false
}
