// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Log      LogConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	IngestPort     string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MaxEvents bounds how many events one engine call may read.
	MaxEvents int
}

type AppConfig struct {
	UploadDir string
	DataDir   string
}

type LogConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// EngineConfig holds the scalar analysis parameters.
type EngineConfig struct {
	Timezone                string
	LookbackDays            int
	ForecastHorizonDays     int
	LeadTimeDays            int
	SafetyStockDays         int
	SlowMovingThresholdDays int
	StockoutWindowDays      int
}

type PipelineConfig struct {
	Workers int
	Tenants []string
}

type StorageConfig struct {
	Enabled   bool
	Driver    string // minio or s3
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
	Tenant          string
	PollSeconds     int
	DownloadDir     string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())

		// Ensure upload and data directories exist
		ensureDir(instance.App.UploadDir)
		ensureDir(instance.App.DataDir)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("INGEST_PORT", "8081")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pantrywise")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_EVENTS", 1000)

	v.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	v.SetDefault("APP_DATA_DIR", "./data/output")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)

	v.SetDefault("ENGINE_TIMEZONE", "UTC")
	v.SetDefault("ENGINE_LOOKBACK_DAYS", analytics.DefaultLookbackDays)
	v.SetDefault("ENGINE_FORECAST_HORIZON_DAYS", analytics.DefaultForecastHorizonDays)
	v.SetDefault("ENGINE_LEAD_TIME_DAYS", analytics.DefaultLeadTimeDays)
	v.SetDefault("ENGINE_SAFETY_STOCK_DAYS", analytics.DefaultSafetyStockDays)
	v.SetDefault("ENGINE_SLOW_MOVING_DAYS", analytics.DefaultSlowMovingThresholdDays)
	v.SetDefault("ENGINE_STOCKOUT_WINDOW_DAYS", analytics.DefaultStockoutWindowDays)

	v.SetDefault("PIPELINE_WORKERS", 4)
	v.SetDefault("PIPELINE_TENANTS", []string{})

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_DRIVER", "minio")
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "pantrywise-reports")
	v.SetDefault("STORAGE_REGION", "")
	v.SetDefault("STORAGE_USE_SSL", false)
	v.SetDefault("STORAGE_PREFIX", "reports")

	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("DRIVE_TENANT", "")
	v.SetDefault("DRIVE_POLL_SECONDS", 300)
	v.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/downloads")
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			IngestPort:     v.GetString("INGEST_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:       v.GetString("DATABASE_URL"),
			Host:      v.GetString("DB_HOST"),
			Port:      v.GetString("DB_PORT"),
			User:      v.GetString("DB_USER"),
			Password:  v.GetString("DB_PASSWORD"),
			DBName:    v.GetString("DB_NAME"),
			SSLMode:   v.GetString("DB_SSLMODE"),
			MaxEvents: v.GetInt("DB_MAX_EVENTS"),
		},
		App: AppConfig{
			UploadDir: v.GetString("APP_UPLOAD_DIR"),
			DataDir:   v.GetString("APP_DATA_DIR"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Engine: EngineConfig{
			Timezone:                v.GetString("ENGINE_TIMEZONE"),
			LookbackDays:            v.GetInt("ENGINE_LOOKBACK_DAYS"),
			ForecastHorizonDays:     v.GetInt("ENGINE_FORECAST_HORIZON_DAYS"),
			LeadTimeDays:            v.GetInt("ENGINE_LEAD_TIME_DAYS"),
			SafetyStockDays:         v.GetInt("ENGINE_SAFETY_STOCK_DAYS"),
			SlowMovingThresholdDays: v.GetInt("ENGINE_SLOW_MOVING_DAYS"),
			StockoutWindowDays:      v.GetInt("ENGINE_STOCKOUT_WINDOW_DAYS"),
		},
		Pipeline: PipelineConfig{
			Workers: v.GetInt("PIPELINE_WORKERS"),
			Tenants: v.GetStringSlice("PIPELINE_TENANTS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Driver:    strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
			Tenant:          v.GetString("DRIVE_TENANT"),
			PollSeconds:     v.GetInt("DRIVE_POLL_SECONDS"),
			DownloadDir:     v.GetString("DRIVE_DOWNLOAD_DIR"),
		},
	}

	if cfg.Database.MaxEvents <= 0 {
		cfg.Database.MaxEvents = 1000
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 1
	}
	cfg.Engine = cfg.Engine.clamped()

	return cfg
}

// clamped replaces out-of-range engine parameters with their defaults.
func (e EngineConfig) clamped() EngineConfig {
	opts := analytics.Options{
		Now:                     time.Unix(0, 0),
		LookbackDays:            e.LookbackDays,
		ForecastHorizonDays:     e.ForecastHorizonDays,
		LeadTimeDays:            e.LeadTimeDays,
		SafetyStockDays:         e.SafetyStockDays,
		SlowMovingThresholdDays: e.SlowMovingThresholdDays,
		StockoutWindowDays:      e.StockoutWindowDays,
	}.Normalize()

	e.LookbackDays = opts.LookbackDays
	e.ForecastHorizonDays = opts.ForecastHorizonDays
	e.LeadTimeDays = opts.LeadTimeDays
	e.SafetyStockDays = opts.SafetyStockDays
	e.SlowMovingThresholdDays = opts.SlowMovingThresholdDays
	e.StockoutWindowDays = opts.StockoutWindowDays
	return e
}

// Location resolves the configured timezone, falling back to UTC.
func (e EngineConfig) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		log.Printf("invalid ENGINE_TIMEZONE %q, using UTC: %v", e.Timezone, err)
		return time.UTC
	}
	return loc
}

// Options returns engine options anchored at now.
func (e EngineConfig) Options(now time.Time) analytics.Options {
	return analytics.Options{
		Now:                     now,
		Location:                e.Location(),
		LookbackDays:            e.LookbackDays,
		ForecastHorizonDays:     e.ForecastHorizonDays,
		LeadTimeDays:            e.LeadTimeDays,
		SafetyStockDays:         e.SafetyStockDays,
		SlowMovingThresholdDays: e.SlowMovingThresholdDays,
		StockoutWindowDays:      e.StockoutWindowDays,
	}.Normalize()
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
