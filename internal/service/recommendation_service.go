package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-space-scheduler/internal/dto"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/scheduler"
	"github.com/noah-isme/sma-space-scheduler/pkg/cache"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

// RecommendationService ranks spaces for a search.
type RecommendationService struct {
	spaces       SpaceDirectory
	reservations ReservationStore
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          SchedulingConfig
}

// NewRecommendationService wires the recommender.
func NewRecommendationService(spaces SpaceDirectory, reservations ReservationStore, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SchedulingConfig) *RecommendationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationService{
		spaces:       spaces,
		reservations: reservations,
		cache:        cacheSvc,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg.withDefaults(),
	}
}

// Recommend returns candidate spaces best first. The bool reports a cache hit.
func (s *RecommendationService) Recommend(ctx context.Context, req dto.RecommendationRequest) ([]models.Recommendation, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recommendation payload")
	}
	criteria, err := s.criteria(req)
	if err != nil {
		return nil, false, err
	}

	key := recommendationKey(req, criteria)
	var cached []models.Recommendation
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	spaces, err := listSpaces(ctx, s.spaces)
	if err != nil {
		return nil, false, err
	}
	day := models.DayRange(criteria.Date)
	from := day.Start.Add(-maxBuffer(spaces...))
	existing, err := listActive(ctx, s.reservations, models.ReservationFilter{From: &from, To: &day.End})
	if err != nil {
		return nil, false, err
	}

	results, err := scheduler.Recommend(criteria, spaces, existing, s.cfg.Weights)
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveRecommendations(len(results))
	s.logger.Debug("spaces recommended",
		zap.String("date", req.Date),
		zap.String("start", req.StartTime),
		zap.Int("candidates", len(results)),
	)
	_ = s.cache.Set(ctx, key, results, s.cfg.CacheTTL)
	return results, false, nil
}

func (s *RecommendationService) criteria(req dto.RecommendationRequest) (models.RecommendationCriteria, error) {
	date, err := parseDate(req.Date, s.cfg.Location)
	if err != nil {
		return models.RecommendationCriteria{}, err
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return models.RecommendationCriteria{}, appErrors.Inputf("start time: %v", err)
	}
	granularity := req.Granularity
	if granularity == 0 {
		granularity = s.cfg.SlotGranularity
	}
	return models.RecommendationCriteria{
		Date:               date,
		Start:              start,
		DurationMinutes:    req.DurationMinutes,
		ParticipantCount:   req.ParticipantCount,
		Type:               models.SpaceType(req.Type),
		Equipment:          req.Equipment,
		Building:           req.Building,
		GranularityMinutes: granularity,
	}, nil
}

func recommendationKey(req dto.RecommendationRequest, c models.RecommendationCriteria) string {
	equipment := append([]string(nil), req.Equipment...)
	sort.Strings(equipment)
	return cache.Key(cacheFamilyRecommendations,
		req.Date,
		c.Start.String(),
		strconv.Itoa(c.DurationMinutes),
		strconv.Itoa(c.ParticipantCount),
		"type="+string(c.Type),
		"eq="+strings.Join(equipment, ","),
		"b="+strings.ToLower(c.Building),
		strconv.Itoa(c.GranularityMinutes),
	)
}
