package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Identity  IdentityConfig
	Booking   BookingConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	R2        R2Config
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"8080"`
	Host           string   `envconfig:"HOST" default:"localhost"`
	Env            string   `envconfig:"ENV" default:"development"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	UploadDir      string   `envconfig:"UPLOAD_DIR" default:"./uploads"`
}

type DatabaseConfig struct {
	URL      string `envconfig:"DATABASE_URL"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME" default:"event_marketplace"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

type SessionConfig struct {
	Secret string `envconfig:"SESSION_SECRET" default:"your-secret-key-change-in-production"`
	MaxAge int    `envconfig:"SESSION_MAX_AGE" default:"86400"`
}

// IdentityConfig describes how tokens from the identity provider are verified
type IdentityConfig struct {
	JWTSecret string `envconfig:"IDP_JWT_SECRET"`
	Issuer    string `envconfig:"IDP_ISSUER"`
	Audience  string `envconfig:"IDP_AUDIENCE" default:"authenticated"`
}

type BookingConfig struct {
	ConvenienceFee     int64         `envconfig:"CONVENIENCE_FEE" default:"45"`
	ReserveMaxAttempts int           `envconfig:"RESERVE_MAX_ATTEMPTS" default:"3"`
	IdempotencyTTL     time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

type RedisConfig struct {
	URL string `envconfig:"REDIS_URL"`
}

type AMQPConfig struct {
	URL      string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"bookings"`
}

type R2Config struct {
	AccountID       string `envconfig:"R2_ACCOUNT_ID"`
	AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"R2_SECRET_ACCESS_KEY"`
	BucketName      string `envconfig:"R2_BUCKET_NAME" default:"event-banners"`
	PublicURL       string `envconfig:"R2_PUBLIC_URL"`
	Region          string `envconfig:"R2_REGION" default:"auto"`
	Endpoint        string `envconfig:"R2_ENDPOINT"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT"`
}

type RateLimitConfig struct {
	Bookings int           `envconfig:"RATE_LIMIT_BOOKINGS" default:"10"`
	Window   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.Database.URL != "" {
		cfg.Database = parseDatabaseURL(cfg.Database.URL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the booking workflow cannot run with
func (c *Config) Validate() error {
	if c.Booking.ConvenienceFee < 0 {
		return errors.New("CONVENIENCE_FEE cannot be negative")
	}
	if c.Booking.ReserveMaxAttempts < 1 {
		return errors.New("RESERVE_MAX_ATTEMPTS must be at least 1")
	}
	if c.IsProduction() && c.Identity.JWTSecret == "" {
		return errors.New("IDP_JWT_SECRET is required in production")
	}
	return nil
}

// IsProduction returns true when running with ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// BaseURL is the externally visible address of this server
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.Server.Host, c.Server.Port)
}

func parseDatabaseURL(databaseURL string) DatabaseConfig {
	config := DatabaseConfig{
		URL: databaseURL,
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return config
	}

	config.Host = u.Hostname()
	config.Port = 5432
	if u.Port() != "" {
		if port, err := strconv.Atoi(u.Port()); err == nil {
			config.Port = port
		}
	}

	if u.User != nil {
		config.User = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	config.DBName = strings.TrimPrefix(u.Path, "/")

	config.SSLMode = u.Query().Get("sslmode")
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config
}
