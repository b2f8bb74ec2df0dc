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

// DefaultAPIBaseURL is used when no backend address is configured.
const DefaultAPIBaseURL = "http://127.0.0.1:5000"

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend   BackendConfig
	Redis     RedisConfig
	Cache     CacheConfig
	CORS      CORSConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Dashboard DashboardConfig
	Export    ExportConfig
}

// BackendConfig points the console at the enrollment REST backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig governs the read-through cache for collection reads.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// DashboardConfig tunes the dashboard student search.
type DashboardConfig struct {
	SearchLimit int
}

// ExportConfig controls roster exports. Archived exports are enabled when both Dir and
// LinkSecret are set.
type ExportConfig struct {
	Title      string
	Dir        string
	LinkSecret string
	LinkTTL    time.Duration
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	baseURL := strings.TrimSpace(v.GetString("API_BASE_URL"))
	if baseURL == "" {
		baseURL = strings.TrimSpace(v.GetString("VITE_API_URL"))
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	cfg.Backend = BackendConfig{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: parseDuration(v.GetString("API_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	limit := v.GetInt("DASHBOARD_SEARCH_LIMIT")
	if limit <= 0 {
		limit = 6
	}
	cfg.Dashboard = DashboardConfig{SearchLimit: limit}

	cfg.Export = ExportConfig{
		Title:      v.GetString("EXPORT_TITLE"),
		Dir:        v.GetString("EXPORT_DIR"),
		LinkSecret: v.GetString("EXPORT_LINK_SECRET"),
		LinkTTL:    parseDuration(v.GetString("EXPORT_LINK_TTL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("API_BASE_URL", "")
	v.SetDefault("VITE_API_URL", "")
	v.SetDefault("API_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "1m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("DASHBOARD_SEARCH_LIMIT", 6)
	v.SetDefault("EXPORT_TITLE", "Student Course Enrollment")
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_LINK_SECRET", "")
	v.SetDefault("EXPORT_LINK_TTL", "1h")
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
