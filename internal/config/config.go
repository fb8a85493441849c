package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	DB      DBConfig
	Redis   RedisConfig
	Minio   MinioConfig
	JWT     JWTConfig
	Locks   LockConfig
	Jobs    JobConfig
	Reports ReportConfig
	API     APIConfig
}

type AppConfig struct {
	Env      string // development, staging, production
	LogLevel string
}

type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address host:port
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	URL      string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string // empty disables the cache and the distributed lock
	Password string
	DB       int
	StockTTL time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type MinioConfig struct {
	Endpoint  string // empty disables report export
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func (c MinioConfig) Enabled() bool {
	return c.Endpoint != ""
}

type JWTConfig struct {
	Secret string // empty leaves the API unauthenticated
}

// LockConfig selects the ledger locker. "redis" serializes across instances, "local" within one process.
type LockConfig struct {
	Backend string
	Timeout time.Duration
	TTL     time.Duration
}

type JobConfig struct {
	Enabled       bool
	SweepInterval time.Duration
	ReportHourUTC uint
}

type ReportConfig struct {
	URLExpiry time.Duration
}

// APIConfig schedules the retirement of the v1 surface. A nil sunset keeps v1 active.
type APIConfig struct {
	V1Sunset        *time.Time
	DeprecationNote string
}

// Load reads an optional .env file and then the environment, which takes precedence.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			StockTTL: v.GetDuration("STOCK_CACHE_TTL"),
		},
		Minio: MinioConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("REPORT_BUCKET"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Locks: LockConfig{
			Backend: strings.ToLower(v.GetString("LOCK_BACKEND")),
			Timeout: v.GetDuration("LOCK_TIMEOUT"),
			TTL:     v.GetDuration("LOCK_TTL"),
		},
		Jobs: JobConfig{
			Enabled:       v.GetBool("JOBS_ENABLED"),
			SweepInterval: v.GetDuration("ALERT_SWEEP_INTERVAL"),
			ReportHourUTC: v.GetUint("REPORT_HOUR_UTC"),
		},
		Reports: ReportConfig{
			URLExpiry: v.GetDuration("REPORT_URL_EXPIRY"),
		},
	}

	if raw := v.GetString("API_V1_SUNSET"); raw != "" {
		sunset, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("API_V1_SUNSET must be YYYY-MM-DD: %w", err)
		}
		cfg.API = APIConfig{V1Sunset: &sunset, DeprecationNote: v.GetString("API_DEPRECATION_NOTE")}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STOCK_CACHE_TTL", 30*time.Second)
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("REPORT_BUCKET", "stockflow-reports")
	v.SetDefault("LOCK_BACKEND", "local")
	v.SetDefault("LOCK_TIMEOUT", 5*time.Second)
	v.SetDefault("LOCK_TTL", 30*time.Second)
	v.SetDefault("JOBS_ENABLED", true)
	v.SetDefault("ALERT_SWEEP_INTERVAL", 15*time.Minute)
	v.SetDefault("REPORT_HOUR_UTC", 1)
	v.SetDefault("REPORT_URL_EXPIRY", 24*time.Hour)
}

func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.Locks.Backend {
	case "local":
	case "redis":
		if !c.Redis.Enabled() {
			return fmt.Errorf("LOCK_BACKEND=redis needs REDIS_ADDR")
		}
		if c.Locks.TTL <= c.Locks.Timeout {
			return fmt.Errorf("LOCK_TTL (%s) must exceed LOCK_TIMEOUT (%s)", c.Locks.TTL, c.Locks.Timeout)
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.Locks.Backend)
	}
	if c.Locks.Timeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.Jobs.ReportHourUTC > 23 {
		return fmt.Errorf("REPORT_HOUR_UTC must be between 0 and 23")
	}
	return nil
}
