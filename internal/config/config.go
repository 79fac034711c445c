package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	ResetStorePostgres = "postgres"
	ResetStoreRedis    = "redis"

	minAppKeyLength = 32
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	AppURL        string `env:"APP_URL" envDefault:"http://localhost:8080"`
	AppKey        string `env:"APP_KEY,required"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"10080"`

	VerifyLinkTTLMinutes int    `env:"VERIFY_LINK_TTL_MINUTES" envDefault:"60"`
	ResetTokenTTLMinutes int    `env:"RESET_TOKEN_TTL_MINUTES" envDefault:"60"`
	ResetThrottleSeconds int    `env:"RESET_THROTTLE_SECONDS" envDefault:"60"`
	ResetTokenStore      string `env:"RESET_TOKEN_STORE" envDefault:"postgres"`
	RateLimitPerMinute   int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"5"`
	BcryptCost           int    `env:"BCRYPT_COST" envDefault:"12"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	SeedAdminUsername string `env:"SEED_ADMIN_USERNAME" envDefault:"admin"`
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza combinaciones que el servicio no puede usar.
func (c *Config) Validate() error {
	if len(c.AppKey) < minAppKeyLength {
		return fmt.Errorf("APP_KEY must be at least %d bytes", minAppKeyLength)
	}
	c.ResetTokenStore = strings.ToLower(strings.TrimSpace(c.ResetTokenStore))
	switch c.ResetTokenStore {
	case ResetStorePostgres:
	case ResetStoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("RESET_TOKEN_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown RESET_TOKEN_STORE %q", c.ResetTokenStore)
	}
	if c.VerifyLinkTTLMinutes <= 0 || c.ResetTokenTTLMinutes <= 0 {
		return errors.New("link and token ttl must be positive")
	}
	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 10
	}
	return nil
}

func (c *Config) VerifyLinkTTL() time.Duration {
	return time.Duration(c.VerifyLinkTTLMinutes) * time.Minute
}

func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTLMinutes) * time.Minute
}

func (c *Config) ResetThrottle() time.Duration {
	return time.Duration(c.ResetThrottleSeconds) * time.Second
}

func (c *Config) JWTAccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c *Config) JWTRefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLMinutes) * time.Minute
}

// SMTPEnabled indica si hay datos suficientes para enviar correos reales.
func (c *Config) SMTPEnabled() bool {
	return strings.TrimSpace(c.SMTPHost) != "" && strings.TrimSpace(c.SMTPFrom) != ""
}
