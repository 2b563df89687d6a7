package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/adhocore/gronx"
	"github.com/shopspring/decimal"

	pkgconfig "github.com/utafrali/EcommerceGo/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// maxStoredNameLength matches the wishlist_lists.name column width.
const maxStoredNameLength = 255

// Config holds all configuration for the wishlist service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"WISHLIST_HTTP_PORT" envDefault:"8012"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB   string `env:"WISHLIST_DB_NAME" envDefault:"wishlist_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"DB_SLOW_QUERY_THRESHOLD_MS" envDefault:"500"`

	// Redis (sessions, notices, contacts, consumer idempotency)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`

	// Browser access. Sessions ride on a cookie, so credentials are allowed.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Pprof (IP allowlist)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Collaborators
	ProductServiceURL   string `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:8001"`
	CartServiceURL      string `env:"CART_SERVICE_URL" envDefault:"http://localhost:8003"`
	InventoryServiceURL string `env:"INVENTORY_SERVICE_URL" envDefault:"http://localhost:8007"`
	StorefrontURL       string `env:"STOREFRONT_URL" envDefault:"http://localhost:3000"`

	// Circuit breaker settings for collaborator calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Catalog lookup cache
	CatalogCacheSize       int `env:"CATALOG_CACHE_SIZE" envDefault:"5000"`
	CatalogCacheTTLSeconds int `env:"CATALOG_CACHE_TTL_SECONDS" envDefault:"300"`

	// Wishlist behaviour
	MergeOnLogin      bool   `env:"WISHLIST_MERGE_ON_LOGIN" envDefault:"true"`
	DefaultListName   string `env:"WISHLIST_DEFAULT_LIST_NAME" envDefault:"My Wishlist"`
	MaxNameLength     int    `env:"WISHLIST_MAX_NAME_LENGTH" envDefault:"100"`
	SessionCookie     string `env:"WISHLIST_SESSION_COOKIE" envDefault:"wishlist_session"`
	SessionTTLHours   int    `env:"WISHLIST_SESSION_TTL_HOURS" envDefault:"720"`
	GuestExpiryDays   int    `env:"WISHLIST_GUEST_EXPIRY_DAYS" envDefault:"30"`
	SweepCron         string `env:"WISHLIST_SWEEP_CRON" envDefault:"15 3 * * *"`
	MoveToCartRemoves bool   `env:"MOVE_TO_CART_REMOVES_ITEM" envDefault:"true"`
	NoticeTTLDays     int    `env:"WISHLIST_NOTICE_TTL_DAYS" envDefault:"30"`
	ContactTTLDays    int    `env:"WISHLIST_CONTACT_TTL_DAYS" envDefault:"90"`

	// Write rate limiting (per principal)
	WriteRateLimitRPS   float64 `env:"WISHLIST_WRITE_RPS" envDefault:"5"`
	WriteRateLimitBurst int     `env:"WISHLIST_WRITE_BURST" envDefault:"20"`

	// Price-drop scanning and notification
	PriceDropThresholdPct  float64 `env:"PRICE_DROP_THRESHOLD_PCT" envDefault:"5"`
	PriceDropCron          string  `env:"PRICE_DROP_CRON" envDefault:"0 6 * * *"`
	PriceDropEmailEnabled  bool    `env:"PRICE_DROP_EMAIL_ENABLED" envDefault:"true"`
	PriceDropNoticeEnabled bool    `env:"PRICE_DROP_NOTICE_ENABLED" envDefault:"true"`
	PriceDropSuppress      bool    `env:"PRICE_DROP_SUPPRESS_REPEATS" envDefault:"true"`

	// Outbound email. An empty API key logs messages instead of sending.
	SendGridAPIKey string `env:"SENDGRID_API_KEY" envDefault:""`
	MailFromEmail  string `env:"MAIL_FROM_EMAIL" envDefault:"wishlist@example.com"`
	MailFromName   string `env:"MAIL_FROM_NAME" envDefault:"Wishlist"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load wishlist config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.Environment != "development" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
	}
	for name, rawURL := range map[string]string{
		"PRODUCT_SERVICE_URL":   c.ProductServiceURL,
		"CART_SERVICE_URL":      c.CartServiceURL,
		"INVENTORY_SERVICE_URL": c.InventoryServiceURL,
		"STOREFRONT_URL":        c.StorefrontURL,
	} {
		if rawURL == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, rawURL, err)
		}
	}
	if c.MaxNameLength < 1 || c.MaxNameLength > maxStoredNameLength {
		return fmt.Errorf("WISHLIST_MAX_NAME_LENGTH must be between 1 and %d, got %d", maxStoredNameLength, c.MaxNameLength)
	}
	if c.SessionCookie == "" {
		return fmt.Errorf("WISHLIST_SESSION_COOKIE is required")
	}
	if c.GuestExpiryDays < 1 {
		return fmt.Errorf("WISHLIST_GUEST_EXPIRY_DAYS must be positive, got %d", c.GuestExpiryDays)
	}
	if c.PriceDropThresholdPct <= 0 || c.PriceDropThresholdPct >= 100 {
		return fmt.Errorf("PRICE_DROP_THRESHOLD_PCT must be between 0 and 100, got %f", c.PriceDropThresholdPct)
	}
	gron := gronx.New()
	for name, expr := range map[string]string{
		"PRICE_DROP_CRON":     c.PriceDropCron,
		"WISHLIST_SWEEP_CRON": c.SweepCron,
	} {
		if !gron.IsValid(expr) {
			return fmt.Errorf("invalid %s %q", name, expr)
		}
	}
	if c.SendGridAPIKey != "" {
		if _, err := mail.ParseAddress(c.MailFromEmail); err != nil {
			return fmt.Errorf("invalid MAIL_FROM_EMAIL %q: %w", c.MailFromEmail, err)
		}
	}
	return nil
}

// SessionTTL returns the anonymous session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// NoticeTTL returns how long undelivered notices are kept.
func (c *Config) NoticeTTL() time.Duration {
	return time.Duration(c.NoticeTTLDays) * 24 * time.Hour
}

// ContactTTL returns how long a remembered account email is kept.
func (c *Config) ContactTTL() time.Duration {
	return time.Duration(c.ContactTTLDays) * 24 * time.Hour
}

// CatalogCacheTTL returns how long product lookups are cached.
func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLSeconds) * time.Second
}

// PriceDropThreshold returns the threshold percentage as a decimal.
func (c *Config) PriceDropThreshold() decimal.Decimal {
	return decimal.NewFromFloat(c.PriceDropThresholdPct)
}
