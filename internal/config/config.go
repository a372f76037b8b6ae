package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Backend     BackendConfig
	Blast       BlastConfig
	FilterStore FilterStoreConfig
	Storage     StorageConfig
	Export      ExportConfig
	BudgetWatch BudgetWatchConfig
	Logging     LoggingConfig
	Server      ServerConfig
	CORS        CORSConfig
	Security    SecurityConfig
	RateLimit   RateLimitConfig
	Metrics     MetricsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

// BackendConfig points the console at the calling backend.
type BackendConfig struct {
	// BaseURL is the calling API root, e.g. https://host/api/v1/calling
	BaseURL string
	// TimeoutSeconds of 0 keeps the http.Client default (no timeout)
	TimeoutSeconds int
	UserAgent      string
}

// BlastConfig controls how a text blast is split and paced.
type BlastConfig struct {
	// BatchSize is the maximum number of recipients per send-blast request
	BatchSize int
	// BatchDelayMs is the pause between two consecutive batches (milliseconds)
	BatchDelayMs int
	// MaxMessageLength is the hard cap on trimmed message length (code points)
	MaxMessageLength int
	// AbortOnFailure stops the run at the first failed batch when true;
	// otherwise the failed batch is counted as failed and the run continues
	AbortOnFailure bool
}

// FilterStoreConfig holds the database used to persist custom recipient filters.
// SQLite is the default; postgres allows several consoles to share filters.
type FilterStoreConfig struct {
	Driver          string
	Path            string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	AutoMigrate     bool
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

// ExportConfig controls CSV export formatting and archiving
type ExportConfig struct {
	// ArchiveEnabled stores a copy of every export through the storage backend
	ArchiveEnabled bool
	// TimeZone is an IANA zone name used to render call dates ("Local" by default)
	TimeZone   string
	DateFormat string
	TimeFormat string
}

// BudgetWatchConfig configures the scheduled cost refresh
type BudgetWatchConfig struct {
	Enabled            bool
	Cron               string
	LowBudgetThreshold float64
	TimeoutSeconds     int
}

type LoggingConfig struct {
	Level  string
	Format string
	// Output is stdout, stderr or a file path
	Output string
}

type ServerConfig struct {
	ReadTimeout  int
	WriteTimeout int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins (not recommended for production)
	AllowedOrigins []string
	// AllowedMethods is a list of allowed HTTP methods
	AllowedMethods []string
	// AllowedHeaders is a list of allowed request headers
	AllowedHeaders []string
	// ExposedHeaders is a list of headers exposed to the client
	ExposedHeaders []string
	// AllowCredentials indicates whether credentials are allowed
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the limit per client IP
	RequestsPerMinute int
	// WhitelistIPs is a list of IPs that bypass rate limiting
	WhitelistIPs []string
	// WhitelistPaths is a list of paths that bypass rate limiting (e.g., /health)
	WhitelistPaths []string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ConnectionString builds the PostgreSQL connection string for the filter store
func (d *FilterStoreConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *FilterStoreConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// Timeout returns the backend request timeout; zero means none
func (b *BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// BatchDelay returns the inter-batch pause as duration
func (b *BlastConfig) BatchDelay() time.Duration {
	return time.Duration(b.BatchDelayMs) * time.Millisecond
}

// Location resolves the configured export time zone, falling back to time.Local
func (e *ExportConfig) Location() *time.Location {
	if e.TimeZone == "" || strings.EqualFold(e.TimeZone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Timeout returns the per-run timeout of the budget watch job
func (b *BudgetWatchConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if url := v.GetString("CALLING_API_URL"); url != "" {
		cfg.Backend.BaseURL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the managers cannot run with
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseURL is required")
	}
	if c.Blast.BatchSize <= 0 {
		return fmt.Errorf("blast.batchSize must be positive, got %d", c.Blast.BatchSize)
	}
	if c.Blast.MaxMessageLength <= 0 {
		return fmt.Errorf("blast.maxMessageLength must be positive, got %d", c.Blast.MaxMessageLength)
	}
	if c.Blast.BatchDelayMs < 0 {
		return fmt.Errorf("blast.batchDelayMs must not be negative")
	}
	switch c.FilterStore.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported filterStore.driver: %s", c.FilterStore.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Warhol Ringmaster Console")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Calling backend
	v.SetDefault("backend.baseURL", "https://warhol-backend-main-app.vercel.app/api/v1/calling")
	v.SetDefault("backend.timeoutSeconds", 0)
	v.SetDefault("backend.userAgent", "warhol-ringmaster-console")

	// Text blast pacing
	v.SetDefault("blast.batchSize", 20)
	v.SetDefault("blast.batchDelayMs", 1000)
	v.SetDefault("blast.maxMessageLength", 160)
	v.SetDefault("blast.abortOnFailure", true)

	// Custom filter store
	v.SetDefault("filterStore.driver", "sqlite")
	v.SetDefault("filterStore.path", "./data/console.db")
	v.SetDefault("filterStore.host", "localhost")
	v.SetDefault("filterStore.port", 5432)
	v.SetDefault("filterStore.name", "ringmaster")
	v.SetDefault("filterStore.user", "ringmaster")
	v.SetDefault("filterStore.password", "ringmaster")
	v.SetDefault("filterStore.sslMode", "disable")
	v.SetDefault("filterStore.maxOpenConns", 5)
	v.SetDefault("filterStore.maxIdleConns", 2)
	v.SetDefault("filterStore.connMaxLifetime", 300)
	v.SetDefault("filterStore.autoMigrate", true)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "call-log-exports")
	v.SetDefault("storage.maxUploadSizeMB", 25)

	// Export defaults
	v.SetDefault("export.archiveEnabled", false)
	v.SetDefault("export.timeZone", "Local")
	v.SetDefault("export.dateFormat", "1/2/2006")
	v.SetDefault("export.timeFormat", "3:04:05 PM")

	// Budget watch
	v.SetDefault("budgetWatch.enabled", false)
	v.SetDefault("budgetWatch.cron", "@every 15m")
	v.SetDefault("budgetWatch.lowBudgetThreshold", 10.0)
	v.SetDefault("budgetWatch.timeoutSeconds", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Content-Disposition", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready", "/health/jobs", "/metrics"})

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
