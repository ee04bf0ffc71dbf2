package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// Console and gateway share one struct; each binary reads the fields it needs.
type Config struct {
	// Runtime
	Env      string `mapstructure:"APP_ENV"` // development | production
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"` // console only; the TUI owns stdout

	// Remote weighbridge API
	APIBaseURL         string `mapstructure:"API_BASE_URL"`
	WSURL              string `mapstructure:"WS_URL"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	// Persisted client state
	StateBackend string `mapstructure:"STATE_BACKEND"` // file | redis
	StatePath    string `mapstructure:"STATE_PATH"`
	RedisURL     string `mapstructure:"REDIS_URL"`

	// Tickets / planillas
	DownloadPath string `mapstructure:"DOWNLOAD_PATH"`
	PDFOpener    string `mapstructure:"PDF_OPENER"` // e.g. xdg-open; empty = only save
	ExportPath   string `mapstructure:"EXPORT_PATH"`

	// Gateway
	GatewayPort        int    `mapstructure:"GATEWAY_PORT"`
	UpstreamURL        string `mapstructure:"UPSTREAM_URL"`
	CacheVersion       string `mapstructure:"CACHE_VERSION"`
	CacheBackend       string `mapstructure:"CACHE_BACKEND"` // memory | redis
	CacheAllowedHosts  string `mapstructure:"CACHE_ALLOWED_HOSTS"`
	CacheMaxBodyMB     int    `mapstructure:"CACHE_MAX_BODY_MB"`
	WorkerPoolSize     int    `mapstructure:"WORKER_POOL_SIZE"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for a scale-house workstation
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "balanza.log")
	viper.SetDefault("API_BASE_URL", "http://127.0.0.1:8001")
	viper.SetDefault("WS_URL", "ws://127.0.0.1:8001/ws")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	viper.SetDefault("STATE_BACKEND", "file")
	viper.SetDefault("STATE_PATH", ".balanza/state.json")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("DOWNLOAD_PATH", "Pesadas")
	viper.SetDefault("EXPORT_PATH", "Pesadas/daily_log.xlsx")
	viper.SetDefault("GATEWAY_PORT", 8080)
	viper.SetDefault("UPSTREAM_URL", "http://127.0.0.1:8001")
	viper.SetDefault("CACHE_VERSION", "v1.0.1")
	viper.SetDefault("CACHE_BACKEND", "memory")
	viper.SetDefault("CACHE_ALLOWED_HOSTS", "cdnjs.cloudflare.com,cdn.jsdelivr.net,fonts.googleapis.com,fonts.gstatic.com")
	viper.SetDefault("CACHE_MAX_BODY_MB", 32)
	viper.SetDefault("WORKER_POOL_SIZE", 4)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 300)

	// Optional .env file for local development; a missing file is fine
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPTimeout returns the per-request timeout for the remote API client.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// AllowedHosts splits CACHE_ALLOWED_HOSTS into trimmed, non-empty host names.
func (c *Config) AllowedHosts() []string {
	var hosts []string
	for _, h := range strings.Split(c.CacheAllowedHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
