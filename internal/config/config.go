package config

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Env       string `env:"APP_ENV"    envDefault:"development"`
	HTTPAddr  string `env:"HTTP_ADDR"  envDefault:":5000"`
	ClientURL string `env:"CLIENT_URL"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`

	DB      DBConfig
	JWT     JWTConfig
	Kafka   KafkaConfig
	Elastic ElasticConfig
}

type DBConfig struct {
	Driver      string `env:"DB_DRIVER"    envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"  envDefault:"sessions.db"`
}

type JWTConfig struct {
	AccessSecret  string   `env:"JWT_SECRET"`
	RefreshSecret string   `env:"REFRESH_TOKEN_SECRET"`
	AccessTTL     Lifetime `env:"JWT_EXPIRE"           envDefault:"15m"`
	RefreshTTL    Lifetime `env:"REFRESH_TOKEN_EXPIRE" envDefault:"7d"`
}

type KafkaConfig struct {
	Brokers   []string `env:"KAFKA_BROKERS"    envSeparator:","`
	UserTopic string   `env:"KAFKA_USER_TOPIC" envDefault:"user_events"`
}

type ElasticConfig struct {
	URL        string `env:"ES_URL"`
	User       string `env:"ES_USER"`
	Password   string `env:"ES_PASSWORD"`
	AuditIndex string `env:"ES_AUDIT_INDEX" envDefault:"auth_audit"`
}

// Load reads .env (when present) and the process environment once at startup.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return Parse()
}

// Parse builds the config from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalid)
	}
	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("%w: REFRESH_TOKEN_SECRET is required", ErrInvalid)
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("%w: JWT_SECRET and REFRESH_TOKEN_SECRET must differ", ErrInvalid)
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrInvalid)
	}
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for postgres", ErrInvalid)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown DB_DRIVER %q", ErrInvalid, c.DB.Driver)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// RefreshCookie describes the attributes of the refresh-token cookie.
type RefreshCookie struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

func (c *Config) RefreshCookie() RefreshCookie {
	rc := RefreshCookie{
		Name:     "jwt",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   c.JWT.RefreshTTL.Duration(),
	}
	// SameSite=None is only honored by browsers together with Secure.
	if c.IsProduction() {
		rc.Secure = true
		rc.SameSite = http.SameSiteNoneMode
	}
	return rc
}
