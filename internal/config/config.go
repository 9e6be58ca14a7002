package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Cache    CacheConfig
	Report   ReportConfig
	Export   ExportConfig
	Auth     AuthConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// BackendConfig points at the hosted data store. Mode "rest" talks to its
// HTTP API with the public key; mode "sql" opens the database directly; mode
// "demo" serves generated data from memory.
type BackendConfig struct {
	Mode              string
	URL               string
	APIKey            string
	Driver            string
	DSN               string
	TransactionsTable string
	LineItemsTable    string
	InventoryTable    string
	RequestTimeout    time.Duration
	DemoSeed          int64
	DemoDays          int
}

type CacheConfig struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

type ReportConfig struct {
	Timezone          string
	LowStockThreshold int
	TopProducts       int
	ViewIdleTimeout   time.Duration
}

type ExportConfig struct {
	PDFEnabled      bool
	ChromeRemoteURL string
	NoSandbox       bool
	RenderTimeout   time.Duration
}

// AuthConfig controls the session layer. With Required off every visitor gets
// an anonymous session and backend reads use the public key.
type AuthConfig struct {
	Required      bool
	JWTSecret     string
	RefreshMargin time.Duration
	CookieName    string
	CookieSecure  bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableCSRF      bool
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

func Load() (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Backend: BackendConfig{
			Mode:              getEnvString("BACKEND_MODE", "rest"),
			URL:               strings.TrimRight(getEnvString("BACKEND_URL", "http://localhost:54321"), "/"),
			APIKey:            getEnvString("BACKEND_API_KEY", ""),
			Driver:            getEnvString("BACKEND_DB_DRIVER", "postgres"),
			DSN:               getEnvString("BACKEND_DB_DSN", ""),
			TransactionsTable: getEnvString("BACKEND_TRANSACTIONS_TABLE", "bills"),
			LineItemsTable:    getEnvString("BACKEND_LINE_ITEMS_TABLE", "bill_items"),
			InventoryTable:    getEnvString("BACKEND_INVENTORY_TABLE", "products"),
			RequestTimeout:    getEnvDuration("BACKEND_REQUEST_TIMEOUT", 15*time.Second),
			DemoSeed:          int64(getEnvInt("BACKEND_DEMO_SEED", 42)),
			DemoDays:          getEnvInt("BACKEND_DEMO_DAYS", 400),
		},
		Cache: CacheConfig{
			Backend:       getEnvString("CACHE_BACKEND", "memory"),
			TTL:           getEnvDuration("CACHE_TTL", 2*time.Minute),
			RedisAddr:     getEnvString("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvString("CACHE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("CACHE_REDIS_DB", 0),
			KeyPrefix:     getEnvString("CACHE_KEY_PREFIX", "retail:query:"),
		},
		Report: ReportConfig{
			Timezone:          getEnvString("REPORT_TIMEZONE", "Local"),
			LowStockThreshold: getEnvInt("REPORT_LOW_STOCK_THRESHOLD", 10),
			TopProducts:       getEnvInt("REPORT_TOP_PRODUCTS", 5),
			ViewIdleTimeout:   getEnvDuration("REPORT_VIEW_IDLE_TIMEOUT", 30*time.Minute),
		},
		Export: ExportConfig{
			PDFEnabled:      getEnvBool("EXPORT_PDF_ENABLED", false),
			ChromeRemoteURL: getEnvString("EXPORT_CHROME_REMOTE_URL", ""),
			NoSandbox:       getEnvBool("EXPORT_CHROME_NO_SANDBOX", false),
			RenderTimeout:   getEnvDuration("EXPORT_RENDER_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Required:      getEnvBool("AUTH_REQUIRED", true),
			JWTSecret:     getEnvString("AUTH_JWT_SECRET", ""),
			RefreshMargin: getEnvDuration("AUTH_REFRESH_MARGIN", time.Minute),
			CookieName:    getEnvString("AUTH_COOKIE_NAME", "retail_session"),
			CookieSecure:  getEnvBool("AUTH_COOKIE_SECURE", false),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableCSRF:      getEnvBool("SECURITY_CSRF_ENABLED", true),
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Backend.Mode {
	case "rest":
		if c.Backend.URL == "" {
			return fmt.Errorf("backend URL cannot be empty in rest mode")
		}
	case "sql":
		if c.Backend.DSN == "" {
			return fmt.Errorf("backend DSN cannot be empty in sql mode")
		}
		if !slices.Contains([]string{"postgres", "sqlite"}, c.Backend.Driver) {
			return fmt.Errorf("invalid backend driver %q, must be one of: postgres, sqlite", c.Backend.Driver)
		}
	case "demo":
		if c.Backend.DemoDays <= 0 {
			return fmt.Errorf("demo days must be positive")
		}
	default:
		return fmt.Errorf("invalid backend mode %q, must be one of: rest, sql, demo", c.Backend.Mode)
	}

	validCacheBackends := []string{"memory", "redis", "none"}
	if !slices.Contains(validCacheBackends, c.Cache.Backend) {
		return fmt.Errorf("invalid cache backend %q, must be one of: %s", c.Cache.Backend, strings.Join(validCacheBackends, ", "))
	}

	if c.Cache.Backend != "none" && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid report timezone %q: %w", c.Report.Timezone, err)
	}

	if c.Report.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold cannot be negative")
	}

	if c.Report.TopProducts <= 0 {
		return fmt.Errorf("top products count must be positive")
	}

	if c.Auth.CookieName == "" {
		return fmt.Errorf("auth cookie name cannot be empty")
	}

	// Only the rest backend can confirm a token it issued, so other modes
	// must be able to check signatures locally.
	if c.Auth.Required && c.Auth.JWTSecret == "" && c.Backend.Mode != "rest" {
		return fmt.Errorf("auth JWT secret is required when auth is enabled in %s mode", c.Backend.Mode)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location resolves the report timezone. Calendar buckets and "today" are
// computed in this zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.Timezone == "" || c.Report.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.Timezone)
}
