package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/shopperslink/variant-service/pkg/config"
)

// Attribute catalog sources.
const (
	AttributeSourcePostgres = "postgres"
	AttributeSourceRemote   = "remote"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds all configuration for the variant service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"VARIANT_HTTP_PORT" envDefault:"8012"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	CatalogCacheMaxAge int           `env:"CATALOG_CACHE_MAX_AGE" envDefault:"60"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"variants"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"variants_secret"`
	PostgresDB   string `env:"VARIANT_DB_NAME" envDefault:"variant_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Variant drafts
	DraftTTL          time.Duration `env:"VARIANT_DRAFT_TTL" envDefault:"24h"`
	MaxRows           int           `env:"VARIANT_MAX_ROWS" envDefault:"1000"`
	PersistRowRemoval bool          `env:"VARIANT_PERSIST_ROW_REMOVAL" envDefault:"true"`
	DefaultCurrency   string        `env:"VARIANT_DEFAULT_CURRENCY" envDefault:"USD"`

	// Attribute catalog
	AttributeSource     string        `env:"ATTRIBUTE_SOURCE" envDefault:"postgres"`
	AttributeCatalogURL string        `env:"ATTRIBUTE_CATALOG_URL" envDefault:"http://localhost:8001"`
	AttributeCacheTTL   time.Duration `env:"ATTRIBUTE_CACHE_TTL" envDefault:"1m"`
	CatalogMaxRetries   int           `env:"CATALOG_MAX_RETRIES" envDefault:"2"`
	CatalogCBTimeout    time.Duration `env:"CATALOG_CB_TIMEOUT" envDefault:"30s"`
	CatalogCBMinReqs    uint32        `env:"CATALOG_CB_MIN_REQUESTS" envDefault:"5"`
	CatalogCBRatio      float64       `env:"CATALOG_CB_FAILURE_RATIO" envDefault:"0.5"`

	// Kafka
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"variant-service"`
	KafkaDLQEnabled    bool     `env:"KAFKA_DLQ_ENABLED" envDefault:"true"`

	// JWT authentication
	JWTSecret string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load variant config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.CatalogCacheMaxAge < 0 {
		return fmt.Errorf("CATALOG_CACHE_MAX_AGE must not be negative, got %d", c.CatalogCacheMaxAge)
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("VARIANT_DRAFT_TTL must be positive, got %s", c.DraftTTL)
	}
	if c.MaxRows < 1 {
		return fmt.Errorf("VARIANT_MAX_ROWS must be at least 1, got %d", c.MaxRows)
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("VARIANT_DEFAULT_CURRENCY must be a 3-letter code, got %q", c.DefaultCurrency)
	}
	switch c.AttributeSource {
	case AttributeSourcePostgres:
	case AttributeSourceRemote:
		u, err := url.Parse(c.AttributeCatalogURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("ATTRIBUTE_CATALOG_URL must be an absolute URL, got %q", c.AttributeCatalogURL)
		}
	default:
		return fmt.Errorf("ATTRIBUTE_SOURCE must be %q or %q, got %q", AttributeSourcePostgres, AttributeSourceRemote, c.AttributeSource)
	}
	if c.CatalogCBRatio <= 0 || c.CatalogCBRatio > 1.0 {
		return fmt.Errorf("CATALOG_CB_FAILURE_RATIO must be in (0, 1], got %f", c.CatalogCBRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.Environment != "development" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed from default value in %s environment", c.Environment)
	}
	return nil
}
