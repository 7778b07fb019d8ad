package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
	"github.com/noah-isme/sma-space-scheduler/pkg/jobs"
)

const publishJobType = "timetable.publish"

// PublicationConfig sizes the publication worker pool.
type PublicationConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

type publicationMeta struct {
	Sessions    int                   `json:"sessions"`
	Skipped     []models.SkippedEntry `json:"skipped"`
	WeekCount   int                   `json:"weekCount"`
	PublishedAt time.Time             `json:"publishedAt"`
}

// PublicationService turns stored timetables into reservations on a
// background queue. Session ids are deterministic and reservations are
// upserted, so publishing the same timetable twice changes nothing.
type PublicationService struct {
	timetables   TimetableStore
	reservations ReservationStore
	tx           txProvider
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          SchedulingConfig
	queue        *jobs.Queue
}

// NewPublicationService wires the service and its queue. Call Start before
// publishing.
func NewPublicationService(timetables TimetableStore, reservations ReservationStore, tx txProvider, cacheSvc *CacheService, metrics *MetricsService, logger *zap.Logger, cfg SchedulingConfig, pubCfg PublicationConfig) *PublicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PublicationService{
		timetables:   timetables,
		reservations: reservations,
		tx:           tx,
		cache:        cacheSvc,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg.withDefaults(),
	}
	s.queue = jobs.NewQueue("timetable-publication", s.handle, jobs.QueueConfig{
		Workers:    pubCfg.Workers,
		MaxRetries: pubCfg.Retries,
		RetryDelay: pubCfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the publication workers.
func (s *PublicationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop cancels the workers and waits for them to exit.
func (s *PublicationService) Stop() {
	s.queue.Stop()
}

// Publish queues the publication of a stored timetable and returns the job status.
func (s *PublicationService) Publish(ctx context.Context, timetableID string) (jobs.Status, error) {
	timetable, err := loadTimetable(ctx, s.timetables, timetableID)
	if err != nil {
		return jobs.Status{}, err
	}
	if len(timetable.Entries) == 0 {
		return jobs.Status{}, appErrors.Clone(appErrors.ErrValidation, "timetable has no entries")
	}

	jobID := PublishJobID(timetable)
	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: publishJobType, Payload: timetable.ID}); err != nil {
		return jobs.Status{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue publication")
	}
	status, _ := s.queue.Status(jobID)
	return status, nil
}

// Status returns the state of a publication job.
func (s *PublicationService) Status(jobID string) (jobs.Status, error) {
	status, ok := s.queue.Status(jobID)
	if !ok {
		return jobs.Status{}, appErrors.Clone(appErrors.ErrNotFound, "publication job not found")
	}
	return status, nil
}

// PublishJobID names the job publishing one version of a timetable.
func PublishJobID(t *models.Timetable) string {
	return fmt.Sprintf("publish:%s:v%d", t.ID, t.Version)
}

func (s *PublicationService) handle(ctx context.Context, job jobs.Job) error {
	timetableID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	err := s.publish(ctx, timetableID)
	s.metrics.RecordPublication(err)
	return err
}

func (s *PublicationService) publish(ctx context.Context, timetableID string) (err error) {
	timetable, err := loadTimetable(ctx, s.timetables, timetableID)
	if err != nil {
		return err
	}
	result, err := scheduler.GenerateSemesterSessions(ctx, timetable.Entries, dateIn(timetable.YearStart, s.cfg.Location), timetable.WeekCount,
		scheduler.GenerateOptions{Workers: s.cfg.GenerationWorkers})
	if err != nil {
		return err
	}
	s.metrics.RecordGeneration(result)

	reservations := make([]models.Reservation, 0, len(result.Sessions))
	spaceIDs := make(map[string]struct{})
	for _, session := range result.Sessions {
		reservations = append(reservations, session.Reservation)
		spaceIDs[session.Reservation.SpaceID] = struct{}{}
	}
	meta, err := json.Marshal(publicationMeta{
		Sessions:    len(result.Sessions),
		Skipped:     result.Skipped,
		WeekCount:   result.WeekCount,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode publication meta: %w", err)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publication: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.reservations.Upsert(ctx, tx, reservations); err != nil {
		return err
	}
	if err = s.timetables.UpdateStatus(ctx, tx, timetable.ID, models.TimetableStatusPublished, types.JSONText(meta)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit publication: %w", err)
	}

	ids := make([]string, 0, len(spaceIDs))
	for id := range spaceIDs {
		ids = append(ids, id)
	}
	s.cache.InvalidateAvailability(ctx, ids...)
	s.logger.Info("timetable published",
		zap.String("timetable_id", timetable.ID),
		zap.Int("version", timetable.Version),
		zap.Int("sessions", len(reservations)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return nil
}
