package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Draft service
	ServiceURL      string        `yaml:"service_url"`
	ImageServiceURL string        `yaml:"image_service_url"`
	ServiceAPIKey   string        `yaml:"service_api_key"`
	ServiceTimeout  time.Duration `yaml:"service_timeout"`
	AnchorTimeout   time.Duration `yaml:"anchor_timeout"`
	ImageTimeout    time.Duration `yaml:"image_timeout"`

	// Client-side deadlines for guarded actions. A call still running when
	// its deadline passes is abandoned.
	ActionDeadline time.Duration `yaml:"action_deadline"`
	AnchorDeadline time.Duration `yaml:"anchor_deadline"`
	ImageDeadline  time.Duration `yaml:"image_deadline"`

	// Blob store
	BlobBackend     string        `yaml:"blob_backend"`
	PathstoreURL    string        `yaml:"pathstore_url"`
	PathstoreAPIKey string        `yaml:"pathstore_api_key"`
	RedisURL        string        `yaml:"redis_url"`
	RedisTTL        time.Duration `yaml:"redis_ttl"`

	// Background persistence
	PersistWorkers   int           `yaml:"persist_workers"`
	PersistQueueSize int           `yaml:"persist_queue_size"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	WriteRecordTTL   time.Duration `yaml:"write_record_ttl"`

	// Sessions
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:     "8095",
		LogLevel: "info",

		ServiceURL:     "http://localhost:8000",
		ServiceTimeout: 120 * time.Second,
		AnchorTimeout:  25 * time.Second,
		ImageTimeout:   55 * time.Second,

		ActionDeadline: 130 * time.Second,
		AnchorDeadline: 30 * time.Second,
		ImageDeadline:  60 * time.Second,

		BlobBackend:  "memory",
		PathstoreURL: "http://localhost:8080",

		PersistWorkers:   4,
		PersistQueueSize: 100,
		WriteTimeout:     30 * time.Second,
		WriteRecordTTL:   1 * time.Hour,

		SessionTTL: 2 * time.Hour,

		MaxUploadBytes: 52428800, // 50MB

		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// DRAFTLENS_CONFIG if set, then the environment. Non-positive sizes and
// durations fall back to the defaults.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DRAFTLENS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.APIKey = envOr("DRAFTLENS_API_KEY", cfg.APIKey)

	cfg.ServiceURL = envOr("SERVICE_URL", cfg.ServiceURL)
	cfg.ImageServiceURL = envOr("IMAGE_SERVICE_URL", cfg.ImageServiceURL)
	cfg.ServiceAPIKey = envOr("SERVICE_API_KEY", cfg.ServiceAPIKey)
	cfg.ServiceTimeout = envDuration("SERVICE_TIMEOUT", cfg.ServiceTimeout)
	cfg.AnchorTimeout = envDuration("ANCHOR_TIMEOUT", cfg.AnchorTimeout)
	cfg.ImageTimeout = envDuration("IMAGE_TIMEOUT", cfg.ImageTimeout)
	cfg.ActionDeadline = envDuration("ACTION_DEADLINE", cfg.ActionDeadline)
	cfg.AnchorDeadline = envDuration("ANCHOR_DEADLINE", cfg.AnchorDeadline)
	cfg.ImageDeadline = envDuration("IMAGE_DEADLINE", cfg.ImageDeadline)

	cfg.BlobBackend = strings.ToLower(envOr("BLOB_BACKEND", cfg.BlobBackend))
	cfg.PathstoreURL = envOr("PATHSTORE_URL", cfg.PathstoreURL)
	cfg.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", cfg.PathstoreAPIKey)
	cfg.RedisURL = envOr("REDIS_URL", cfg.RedisURL)
	cfg.RedisTTL = envDuration("REDIS_TTL", cfg.RedisTTL)

	cfg.PersistWorkers = envInt("PERSIST_WORKERS", cfg.PersistWorkers)
	cfg.PersistQueueSize = envInt("PERSIST_QUEUE_SIZE", cfg.PersistQueueSize)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.WriteRecordTTL = envDuration("WRITE_RECORD_TTL", cfg.WriteRecordTTL)

	cfg.SessionTTL = envDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.clamp()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) clamp() {
	d := Defaults()
	if c.ImageServiceURL == "" {
		c.ImageServiceURL = c.ServiceURL
	}
	if c.ServiceTimeout <= 0 {
		c.ServiceTimeout = d.ServiceTimeout
	}
	if c.AnchorTimeout <= 0 {
		c.AnchorTimeout = d.AnchorTimeout
	}
	if c.ImageTimeout <= 0 {
		c.ImageTimeout = d.ImageTimeout
	}
	if c.ActionDeadline <= 0 {
		c.ActionDeadline = d.ActionDeadline
	}
	if c.AnchorDeadline <= 0 {
		c.AnchorDeadline = d.AnchorDeadline
	}
	if c.ImageDeadline <= 0 {
		c.ImageDeadline = d.ImageDeadline
	}
	if c.PersistWorkers <= 0 {
		c.PersistWorkers = d.PersistWorkers
	}
	if c.PersistQueueSize <= 0 {
		c.PersistQueueSize = d.PersistQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.WriteRecordTTL <= 0 {
		c.WriteRecordTTL = d.WriteRecordTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.RedisTTL < 0 {
		c.RedisTTL = 0
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DRAFTLENS_API_KEY is required")
	}
	if c.ServiceURL == "" {
		return fmt.Errorf("SERVICE_URL is required")
	}
	switch c.BlobBackend {
	case "memory":
	case "pathstore":
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required for the pathstore backend")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level; unknown names mean info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
