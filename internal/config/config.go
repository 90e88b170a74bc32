package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Sources   SourcesConfig
	Refresh   RefreshConfig
	Retention RetentionConfig
	Admin     AdminConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
	// AdminOrigins may call /admin cross-origin with the session cookie.
	// Empty means the admin routes are same-origin only.
	AdminOrigins []string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type SourceConfig struct {
	Enabled bool
	URL     string
}

type SourcesConfig struct {
	Earthquake       SourceConfig
	Tsunami          SourceConfig
	Volcano          SourceConfig
	Wildfire         SourceConfig
	Flood            SourceConfig
	FetchTimeout     time.Duration
	UserAgent        string
	VolcanoSinceYear int
}

// Source returns the settings for one event type.
func (s SourcesConfig) Source(t models.EventType) SourceConfig {
	switch t {
	case models.EventTypeEarthquake:
		return s.Earthquake
	case models.EventTypeTsunami:
		return s.Tsunami
	case models.EventTypeVolcano:
		return s.Volcano
	case models.EventTypeWildfire:
		return s.Wildfire
	case models.EventTypeFlood:
		return s.Flood
	}
	return SourceConfig{}
}

type RefreshConfig struct {
	Caps        map[models.EventType]int
	UpsertTypes map[models.EventType]bool
	// Interval of 0 disables the periodic refresh; the startup refresh and
	// manual triggers still run.
	Interval time.Duration
}

// Cap returns the row cap for t.
func (r RefreshConfig) Cap(t models.EventType) int {
	if n, ok := r.Caps[t]; ok && n > 0 {
		return n
	}
	return DefaultCap(t)
}

type RetentionConfig struct {
	MaxAge        map[models.EventType]time.Duration
	SweepInterval time.Duration
	CleanupMaxAge time.Duration
}

type AdminConfig struct {
	Username   string
	Password   string
	SessionTTL time.Duration
}

type DatabaseConfig struct {
	Driver string
	Path   string
	URL    string
}

type LoggingConfig struct {
	Level string
}

type TracingConfig struct {
	Stdout bool
}

const (
	DefaultTypeCap     = 100
	DefaultWildfireCap = 300
)

// DefaultCap is the per-type row cap: wildfire detections are far more
// numerous than the other feeds.
func DefaultCap(t models.EventType) int {
	if t == models.EventTypeWildfire {
		return DefaultWildfireCap
	}
	return DefaultTypeCap
}

// DefaultRetention keeps short-lived detections for a day and alerts for
// longer. Volcano eruptions are archival and never swept by default.
func DefaultRetention() map[models.EventType]time.Duration {
	return map[models.EventType]time.Duration{
		models.EventTypeEarthquake: 24 * time.Hour,
		models.EventTypeWildfire:   24 * time.Hour,
		models.EventTypeFlood:      72 * time.Hour,
		models.EventTypeTsunami:    7 * 24 * time.Hour,
		models.EventTypeVolcano:    0,
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 3000),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 20),
			AdminOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 1),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 4),
		},
		Sources: SourcesConfig{
			Earthquake: SourceConfig{
				Enabled: getEnvBool("EARTHQUAKE_ENABLED", true),
				URL:     getEnv("EARTHQUAKE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"),
			},
			Tsunami: SourceConfig{
				Enabled: getEnvBool("TSUNAMI_ENABLED", true),
				URL:     getEnv("TSUNAMI_URL", "https://api.weather.gov/alerts/active?event=Tsunami%20Warning,Tsunami%20Watch,Tsunami%20Advisory"),
			},
			Volcano: SourceConfig{
				Enabled: getEnvBool("VOLCANO_ENABLED", true),
				URL:     getEnv("VOLCANO_URL", "https://webservices.volcano.si.edu/geoserver/GVP-VOTW/ows?service=WFS&version=1.0.0&request=GetFeature&typeName=GVP-VOTW:Smithsonian_VOTW_Holocene_Eruptions&maxFeatures=1000&outputFormat=application/json"),
			},
			Wildfire: SourceConfig{
				Enabled: getEnvBool("WILDFIRE_ENABLED", true),
				URL:     getEnv("WILDFIRE_URL", "https://firms.modaps.eosdis.nasa.gov/data/active_fire/suomi-npp-viirs-c2/csv/SUOMI_VIIRS_C2_Global_24h.csv"),
			},
			Flood: SourceConfig{
				Enabled: getEnvBool("FLOOD_ENABLED", true),
				URL:     getEnv("FLOOD_URL", "https://api.weather.gov/alerts/active?event=Flood%20Warning,Flood%20Watch,Flood%20Advisory,Flash%20Flood%20Warning,Flash%20Flood%20Watch,Flash%20Flood%20Statement,River%20Flood%20Warning,River%20Flood%20Statement,Coastal%20Flood%20Warning,Coastal%20Flood%20Watch,Coastal%20Flood%20Advisory,Urban%20and%20Small%20Stream%20Flood%20Advisory"),
			},
			FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
			UserAgent:        getEnv("USER_AGENT", "pulsemap/1.0 (disaster dashboard)"),
			VolcanoSinceYear: getEnvInt("VOLCANO_SINCE_YEAR", 2010),
		},
		Refresh: RefreshConfig{
			Caps:        make(map[models.EventType]int, len(models.EventTypes)),
			UpsertTypes: parseTypeSet(getEnv("UPSERT_TYPES", "tsunami")),
			Interval:    getEnvDuration("REFRESH_INTERVAL", 0),
		},
		Retention: RetentionConfig{
			MaxAge:        DefaultRetention(),
			SweepInterval: getEnvDuration("SWEEP_INTERVAL", 0),
			CleanupMaxAge: getEnvDuration("CLEANUP_MAX_AGE", 24*time.Hour),
		},
		Admin: AdminConfig{
			Username:   getEnv("ADMIN_USERNAME", "admin"),
			Password:   getEnv("ADMIN_PASSWORD", "admin123"),
			SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		DB: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "./data/pulsemap.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Stdout: getEnvBool("TRACING_STDOUT", false),
		},
	}

	for _, t := range models.EventTypes {
		key := strings.ToUpper(string(t))
		cfg.Refresh.Caps[t] = getEnvInt("CAP_"+key, DefaultCap(t))
		cfg.Retention.MaxAge[t] = getEnvDuration("RETENTION_"+key, cfg.Retention.MaxAge[t])
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("invalid rate limit: %d", c.Server.RateLimitRPS)
	}

	for _, origin := range c.Server.AdminOrigins {
		if origin == "*" || !(strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")) {
			return fmt.Errorf("invalid CORS origin %q: must be an explicit http(s) origin", origin)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.DB.Driver {
	case "memory":
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s", c.DB.Driver)
	}

	if c.Worker.Count < 1 || c.Worker.BufferSize < 1 {
		return fmt.Errorf("worker count and buffer size must be positive")
	}
	if c.Sources.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Refresh.Interval != 0 && c.Refresh.Interval < time.Minute {
		return fmt.Errorf("refresh interval must be at least 1 minute")
	}
	if c.Retention.SweepInterval != 0 && c.Retention.SweepInterval < time.Minute {
		return fmt.Errorf("sweep interval must be at least 1 minute")
	}
	for t, n := range c.Refresh.Caps {
		if n < 1 {
			return fmt.Errorf("cap for %s must be positive", t)
		}
	}
	for t, age := range c.Retention.MaxAge {
		if age < 0 {
			return fmt.Errorf("retention for %s must not be negative", t)
		}
	}
	if len(c.Admin.Username) < 2 || len(c.Admin.Username) > 20 {
		return fmt.Errorf("admin username must be between 2 and 20 characters")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("admin password is required")
	}

	return nil
}

func parseTypeSet(s string) map[models.EventType]bool {
	set := make(map[models.EventType]bool)
	for _, part := range strings.Split(s, ",") {
		if t, ok := models.ParseEventType(part); ok {
			set[t] = true
		}
	}
	return set
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
