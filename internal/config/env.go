package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// RenderConfig defines rasterization behavior.
type RenderConfig struct {
	// Zoom scales a page's natural size when rendering.
	Zoom float64
	// CacheMaxMB caps the raster cache; -1 disables eviction.
	CacheMaxMB int
	// MaxInflight caps concurrent rasterizations; 0 leaves them
	// unbounded.
	MaxInflight int
}

// SessionConfig defines where viewer sessions are kept.
type SessionConfig struct {
	Backend  string // "memory" | "redis"
	RedisURL string
	TTL      time.Duration
}

// DataConfig points at the bundled records and document plus the
// upload area.
type DataConfig struct {
	RecordsPath  string
	DocumentPath string
	UploadDir    string
	UploadMaxMB  int
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Render  RenderConfig
	Session SessionConfig
	Data    DataConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/traceview.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_traceview",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	// Server defaults
	cfg.Server = ServerConfig{
		Port:            parseInt(getEnv("PORT", "8080"), 8080),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	// Render defaults
	cfg.Render = RenderConfig{
		Zoom:        parseFloat(getEnv("RENDER_ZOOM", "2.0"), 2.0),
		CacheMaxMB:  parseInt(getEnv("RENDER_CACHE_MAX_MB", "256"), 256),
		MaxInflight: parseInt(getEnv("RENDER_MAX_INFLIGHT", "2"), 2),
	}
	if cfg.Render.Zoom <= 0 {
		cfg.Render.Zoom = 2.0
	}

	// Session defaults
	cfg.Session = SessionConfig{
		Backend:  strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		TTL:      parseDuration(getEnv("SESSION_TTL", "24h"), 24*time.Hour),
	}

	// Data defaults
	cfg.Data = DataConfig{
		RecordsPath:  getEnv("DATA_PATH", "tracing_positional.json"),
		DocumentPath: getEnv("PDF_PATH", "documents/tracing_positional_bias_in_finance_decision_making.pdf"),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		UploadMaxMB:  parseInt(getEnv("UPLOAD_MAX_MB", "64"), 64),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
