package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Uploads  UploadsConfig  `mapstructure:"uploads"`
	OMDb     OMDbConfig     `mapstructure:"omdb"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig holds the collection-file store configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// UploadsConfig holds image upload configuration
type UploadsConfig struct {
	Dir          string   `mapstructure:"dir"`
	BaseURL      string   `mapstructure:"base_url"`
	MaxBytes     int64    `mapstructure:"max_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// OMDbConfig holds the external movie-metadata service configuration
type OMDbConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds bearer-token configuration. AdminToken is the
// server-held secret granting override access to userCard operations.
type AuthConfig struct {
	AdminToken     string `mapstructure:"admin_token"`
	TokenHeader    string `mapstructure:"token_header"`
	AdminHeader    string `mapstructure:"admin_header"`
	MinTokenLength int    `mapstructure:"min_token_length"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	// Configure viper
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "CineLog")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Store defaults
	viper.SetDefault("store.path", "data/collection.json")

	// Upload defaults
	viper.SetDefault("uploads.dir", "data/uploads")
	viper.SetDefault("uploads.base_url", "/uploads")
	viper.SetDefault("uploads.max_bytes", 5*1024*1024)
	viper.SetDefault("uploads.allowed_types", []string{"image/jpeg", "image/png", "image/gif", "image/webp"})

	// OMDb defaults
	viper.SetDefault("omdb.api_key", "")
	viper.SetDefault("omdb.base_url", "https://www.omdbapi.com/")
	viper.SetDefault("omdb.timeout", "10s")

	// Auth defaults
	viper.SetDefault("auth.admin_token", "")
	viper.SetDefault("auth.token_header", "X-Auth-Token")
	viper.SetDefault("auth.admin_header", "X-Admin-Token")
	viper.SetDefault("auth.min_token_length", 16)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output", "stdout")

	// Security defaults
	viper.SetDefault("security.cors_allowed_origins", "*")
	viper.SetDefault("security.rate_limit_requests", 100)
	viper.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
}

func bindEnvVars() {
	// App
	viper.BindEnv("app.name", "APP_NAME")
	viper.BindEnv("app.version", "APP_VERSION")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("app.debug", "APP_DEBUG")

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Store
	viper.BindEnv("store.path", "STORE_PATH")

	// Uploads
	viper.BindEnv("uploads.dir", "UPLOADS_DIR")
	viper.BindEnv("uploads.base_url", "UPLOADS_BASE_URL")
	viper.BindEnv("uploads.max_bytes", "UPLOADS_MAX_BYTES")

	// OMDb
	viper.BindEnv("omdb.api_key", "OMDB_API_KEY")
	viper.BindEnv("omdb.base_url", "OMDB_BASE_URL")
	viper.BindEnv("omdb.timeout", "OMDB_TIMEOUT")

	// Auth
	viper.BindEnv("auth.admin_token", "ADMIN_TOKEN")
	viper.BindEnv("auth.token_header", "AUTH_TOKEN_HEADER")
	viper.BindEnv("auth.admin_header", "AUTH_ADMIN_HEADER")
	viper.BindEnv("auth.min_token_length", "AUTH_MIN_TOKEN_LENGTH")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.format", "LOG_FORMAT")
	viper.BindEnv("logger.output", "LOG_OUTPUT")
	viper.BindEnv("logger.filename", "LOG_FILENAME")

	// Security
	viper.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	viper.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	viper.BindEnv("metrics.enabled", "ENABLE_METRICS")
	viper.BindEnv("metrics.port", "METRICS_PORT")
}

func validateConfig(cfg *Config) error {
	if cfg.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads max_bytes must be positive")
	}

	if cfg.Auth.MinTokenLength < 1 {
		return fmt.Errorf("auth min_token_length must be positive")
	}

	// Admin token shares the caller-token length contract so a short
	// secret can never pass the gate callers are held to.
	if t := cfg.Auth.AdminToken; t != "" && len(t) < cfg.Auth.MinTokenLength {
		return fmt.Errorf("admin token must be at least %d characters", cfg.Auth.MinTokenLength)
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
