package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

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

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Availability AvailabilityConfig
	BulkImport   BulkImportConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AvailabilityConfig tunes the availability slot pipeline.
type AvailabilityConfig struct {
	CacheEnabled       bool
	CacheTTL           time.Duration
	DefaultMergePolicy string
	// SlotTypes lists accepted slot type tags in addition to the built-in ones.
	SlotTypes   []string
	LockEnabled bool
}

// BulkImportConfig controls the asynchronous bulk import queue.
type BulkImportConfig struct {
	QueueEnabled bool
	Workers      int
	Retries      int
	MaxItems     int
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Availability = AvailabilityConfig{
		CacheEnabled:       v.GetBool("ENABLE_AVAILABILITY_CACHE"),
		CacheTTL:           parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 5*time.Minute),
		DefaultMergePolicy: v.GetString("AVAILABILITY_DEFAULT_MERGE_POLICY"),
		SlotTypes:          splitAndTrim(v.GetString("AVAILABILITY_SLOT_TYPES")),
		LockEnabled:        v.GetBool("AVAILABILITY_LOCK_ENABLED"),
	}

	maxItems := v.GetInt("BULK_IMPORT_MAX_ITEMS")
	if maxItems <= 0 {
		maxItems = 1000
	}
	cfg.BulkImport = BulkImportConfig{
		QueueEnabled: v.GetBool("ENABLE_BULK_IMPORT_QUEUE"),
		Workers:      v.GetInt("BULK_IMPORT_WORKERS"),
		Retries:      v.GetInt("BULK_IMPORT_RETRIES"),
		MaxItems:     maxItems,
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
	v.SetDefault("DB_NAME", "availability")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_AVAILABILITY_CACHE", false)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "5m")
	v.SetDefault("AVAILABILITY_DEFAULT_MERGE_POLICY", "REPLACE")
	v.SetDefault("AVAILABILITY_SLOT_TYPES", "")
	v.SetDefault("AVAILABILITY_LOCK_ENABLED", true)

	v.SetDefault("ENABLE_BULK_IMPORT_QUEUE", false)
	v.SetDefault("BULK_IMPORT_WORKERS", 1)
	v.SetDefault("BULK_IMPORT_RETRIES", 3)
	v.SetDefault("BULK_IMPORT_MAX_ITEMS", 1000)
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
