package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-space-scheduler/api/swagger"
	"github.com/noah-isme/sma-space-scheduler/internal/handler"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/repository"
	"github.com/noah-isme/sma-space-scheduler/internal/scheduler"
	"github.com/noah-isme/sma-space-scheduler/internal/service"
	"github.com/noah-isme/sma-space-scheduler/pkg/cache"
	"github.com/noah-isme/sma-space-scheduler/pkg/config"
	"github.com/noah-isme/sma-space-scheduler/pkg/database"
	"github.com/noah-isme/sma-space-scheduler/pkg/logger"
	"github.com/noah-isme/sma-space-scheduler/pkg/storage"
)

// @title SMA Space Scheduler API
// @version 1.0.0
// @description Room reservations, conflict detection, availability search and semester timetable generation.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if rdb, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(rdb)
		defer cacheRepo.Close() //nolint:errcheck
	}

	schedCfg, err := schedulingConfig(cfg)
	if err != nil {
		logr.Fatal("invalid scheduler configuration", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	var cacheStore service.CacheRepository
	if cacheRepo != nil {
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	spaces := repository.NewSpaceRepository(db)
	reservations := repository.NewReservationRepository(db)
	timetables := repository.NewTimetableRepository(db)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	reservationSvc := service.NewReservationService(spaces, reservations, cacheSvc, metricsSvc, nil, logr, schedCfg)
	recommendationSvc := service.NewRecommendationService(spaces, reservations, cacheSvc, metricsSvc, nil, logr, schedCfg)
	timetableSvc := service.NewTimetableService(spaces, timetables, db, metricsSvc, nil, logr, schedCfg)
	publicationSvc := service.NewPublicationService(timetables, reservations, db, cacheSvc, metricsSvc, logr, schedCfg, service.PublicationConfig{
		Workers: cfg.Publish.Workers,
		Retries: cfg.Publish.Retries,
	})
	exportSvc := service.NewExportService(timetables, files, signer, logr, schedCfg, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	})
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	publicationSvc.Start(ctx)
	defer publicationSvc.Stop()
	go sweepExports(ctx, exportSvc, cfg.Exports.SignedURLTTL, logr)

	dependencies := map[string]handler.Pinger{"postgres": db}
	if cacheRepo != nil {
		dependencies["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	r := newRouter(cfg, logr, routeDeps{
		tokens:          tokenSvc,
		metrics:         metricsSvc,
		reservations:    handler.NewReservationHandler(reservationSvc),
		recommendations: handler.NewRecommendationHandler(recommendationSvc),
		timetables:      handler.NewTimetableHandler(timetableSvc, publicationSvc, exportSvc),
		exports:         handler.NewExportHandler(exportSvc),
		ops:             handler.NewMetricsHandler(metricsSvc, dependencies),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func schedulingConfig(cfg *config.Config) (service.SchedulingConfig, error) {
	open, err := models.ParseTimeOfDay(cfg.Scheduler.OpenTime)
	if err != nil {
		return service.SchedulingConfig{}, fmt.Errorf("SCHEDULER_OPEN_TIME: %w", err)
	}
	closing, err := models.ParseTimeOfDay(cfg.Scheduler.CloseTime)
	if err != nil {
		return service.SchedulingConfig{}, fmt.Errorf("SCHEDULER_CLOSE_TIME: %w", err)
	}
	hours := models.OpeningHours{Open: open, Close: closing}
	if !hours.Valid() {
		return service.SchedulingConfig{}, fmt.Errorf("working hours %s-%s are empty", open, closing)
	}

	s := cfg.Scoring
	return service.SchedulingConfig{
		Location:          cfg.Scheduler.Location,
		WorkingHours:      hours,
		SlotGranularity:   cfg.Scheduler.SlotGranularity,
		HorizonDays:       cfg.Scheduler.HorizonDays,
		WeekCount:         cfg.Scheduler.WeekCount,
		GenerationWorkers: cfg.Scheduler.GenerationWorkers,
		CacheTTL:          cfg.Cache.TTL,
		Weights: scheduler.Weights{
			ExactSlot:          s.ExactSlot,
			AlternativePenalty: s.AlternativePenalty,
			CapacityIdeal:      s.CapacityIdeal,
			CapacityTight:      s.CapacityTight,
			TypeMatch:          s.TypeMatch,
			Equipment:          s.Equipment,
			Building:           s.Building,
			Accessibility:      s.Accessibility,
			AirConditioning:    s.AirConditioning,
			NaturalLight:       s.NaturalLight,
			OptimalThreshold:   s.OptimalThreshold,
		},
	}, nil
}

func sweepExports(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
