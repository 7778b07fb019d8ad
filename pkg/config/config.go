package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Scoring   ScoringConfig
	Cache     CacheConfig
	Publish   PublishConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds engine defaults applied when a request leaves them out.
type SchedulerConfig struct {
	Location          *time.Location
	OpenTime          string
	CloseTime         string
	SlotGranularity   int
	WeekCount         int
	HorizonDays       int
	GenerationWorkers int
}

// ScoringConfig mirrors the recommendation weights.
type ScoringConfig struct {
	ExactSlot          float64
	AlternativePenalty float64
	CapacityIdeal      float64
	CapacityTight      float64
	TypeMatch          float64
	Equipment          float64
	Building           float64
	Accessibility      float64
	AirConditioning    float64
	NaturalLight       float64
	OptimalThreshold   float64
}

// CacheConfig toggles redis caching of read endpoints.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// PublishConfig sizes the timetable publication worker pool.
type PublishConfig struct {
	Workers int
	Retries int
}

// ExportsConfig configures rendered session exports.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	loc, err := time.LoadLocation(v.GetString("SCHEDULER_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("load SCHEDULER_TIMEZONE: %w", err)
	}
	cfg.Scheduler = SchedulerConfig{
		Location:          loc,
		OpenTime:          v.GetString("SCHEDULER_OPEN_TIME"),
		CloseTime:         v.GetString("SCHEDULER_CLOSE_TIME"),
		SlotGranularity:   positiveOr(v.GetInt("SCHEDULER_SLOT_GRANULARITY"), 30),
		WeekCount:         positiveOr(v.GetInt("SCHEDULER_WEEK_COUNT"), 16),
		HorizonDays:       positiveOr(v.GetInt("SCHEDULER_HORIZON_DAYS"), 7),
		GenerationWorkers: positiveOr(v.GetInt("SCHEDULER_WORKERS"), 4),
	}

	cfg.Scoring = ScoringConfig{
		ExactSlot:          v.GetFloat64("SCORING_EXACT_SLOT"),
		AlternativePenalty: v.GetFloat64("SCORING_ALTERNATIVE_PENALTY"),
		CapacityIdeal:      v.GetFloat64("SCORING_CAPACITY_IDEAL"),
		CapacityTight:      v.GetFloat64("SCORING_CAPACITY_TIGHT"),
		TypeMatch:          v.GetFloat64("SCORING_TYPE_MATCH"),
		Equipment:          v.GetFloat64("SCORING_EQUIPMENT"),
		Building:           v.GetFloat64("SCORING_BUILDING"),
		Accessibility:      v.GetFloat64("SCORING_ACCESSIBILITY"),
		AirConditioning:    v.GetFloat64("SCORING_AIR_CONDITIONING"),
		NaturalLight:       v.GetFloat64("SCORING_NATURAL_LIGHT"),
		OptimalThreshold:   v.GetFloat64("SCORING_OPTIMAL_THRESHOLD"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Publish = PublishConfig{
		Workers: positiveOr(v.GetInt("PUBLISH_WORKERS"), 1),
		Retries: v.GetInt("PUBLISH_RETRIES"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "space_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_OPEN_TIME", "08:00")
	v.SetDefault("SCHEDULER_CLOSE_TIME", "23:00")
	v.SetDefault("SCHEDULER_SLOT_GRANULARITY", 30)
	v.SetDefault("SCHEDULER_WEEK_COUNT", 16)
	v.SetDefault("SCHEDULER_HORIZON_DAYS", 7)
	v.SetDefault("SCHEDULER_WORKERS", 4)

	v.SetDefault("SCORING_EXACT_SLOT", 50)
	v.SetDefault("SCORING_ALTERNATIVE_PENALTY", 20)
	v.SetDefault("SCORING_CAPACITY_IDEAL", 30)
	v.SetDefault("SCORING_CAPACITY_TIGHT", 20)
	v.SetDefault("SCORING_TYPE_MATCH", 25)
	v.SetDefault("SCORING_EQUIPMENT", 20)
	v.SetDefault("SCORING_BUILDING", 15)
	v.SetDefault("SCORING_ACCESSIBILITY", 5)
	v.SetDefault("SCORING_AIR_CONDITIONING", 3)
	v.SetDefault("SCORING_NATURAL_LIGHT", 3)
	v.SetDefault("SCORING_OPTIMAL_THRESHOLD", 80)

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("PUBLISH_WORKERS", 1)
	v.SetDefault("PUBLISH_RETRIES", 3)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
