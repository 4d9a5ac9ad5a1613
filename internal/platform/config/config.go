package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Mode selects which base URL each search endpoint is reached on.
type Mode string

const (
	ModeDev      Mode = "dev"
	ModeInternal Mode = "internal"
	ModePublic   Mode = "public"
)

// ParseMode validates a deployment mode; empty means dev.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDev:
		return ModeDev, nil
	case ModeInternal:
		return ModeInternal, nil
	case ModePublic:
		return ModePublic, nil
	default:
		return "", fmt.Errorf("DEPLOYMENT_MODE %q must be one of dev, internal, public", s)
	}
}

// Server captures process level configuration.
type Server struct {
	Addr            string
	Mode            Mode
	LogLevel        string
	EndpointsFile   string
	ShutdownTimeout time.Duration

	Search Search
	Redis  RedisConfig
}

// Search holds the dispatcher and health checker settings.
type Search struct {
	DiscoveryTimeout    time.Duration
	SearchTimeout       time.Duration
	HealthTimeout       time.Duration
	HealthCheckInterval time.Duration
	IndexCacheTTL       time.Duration
	BackendUsername     string
	BackendPassword     string
	MaxIdleConns        int
}

// RedisConfig configures the optional shared index cache. An empty URL
// disables Redis and the in-process cache is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	e := &envReader{}

	mode, err := ParseMode(os.Getenv("DEPLOYMENT_MODE"))
	if err != nil {
		return Server{}, err
	}

	cfg := Server{
		Addr:            e.str("IDENTITYPULSE_ADDR", ":8080"),
		Mode:            mode,
		LogLevel:        e.str("LOG_LEVEL", "info"),
		EndpointsFile:   e.str("ENDPOINTS_FILE", ""),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Search: Search{
			DiscoveryTimeout:    e.duration("DISCOVERY_TIMEOUT", 5*time.Second),
			SearchTimeout:       e.duration("SEARCH_TIMEOUT", 10*time.Second),
			HealthTimeout:       e.duration("HEALTH_TIMEOUT", 5*time.Second),
			HealthCheckInterval: e.duration("HEALTH_CHECK_INTERVAL", 60*time.Second),
			IndexCacheTTL:       e.duration("INDEX_CACHE_TTL", 15*time.Minute),
			BackendUsername:     e.str("SEARCH_BACKEND_USERNAME", ""),
			BackendPassword:     e.str("SEARCH_BACKEND_PASSWORD", ""),
			MaxIdleConns:        e.integer("SEARCH_BACKEND_MAX_IDLE_CONNS", 50),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if e.err != nil {
		return Server{}, e.err
	}
	for name, d := range map[string]time.Duration{
		"DISCOVERY_TIMEOUT":     cfg.Search.DiscoveryTimeout,
		"SEARCH_TIMEOUT":        cfg.Search.SearchTimeout,
		"HEALTH_TIMEOUT":        cfg.Search.HealthTimeout,
		"HEALTH_CHECK_INTERVAL": cfg.Search.HealthCheckInterval,
		"INDEX_CACHE_TTL":       cfg.Search.IndexCacheTTL,
	} {
		if d <= 0 {
			return Server{}, fmt.Errorf("%s must be positive", name)
		}
	}
	return cfg, nil
}

// envReader reads typed environment variables and keeps the first error.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("%s: %w", key, err)
	}
	return d
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("%s: %w", key, err)
	}
	return i
}
