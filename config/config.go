package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// OTP storage. Both backends expire records natively.
	OTPStore      string `env:"OTP_STORE" envDefault:"mongo" validate:"oneof=mongo redis"`
	OTPExclusive  bool   `env:"OTP_EXCLUSIVE" envDefault:"false"`
	MongoURL      string `env:"MONGO_URL" validate:"required_if=OTPStore mongo"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"xblt"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379" validate:"required_if=OTPStore redis"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"min=0,max=15"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret    string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h" validate:"min=1m"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required" validate:"required"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required" validate:"required"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL" envDefault:"http://localhost:8080/users/google/callback" validate:"required,url"`

	FrontendURL  string `env:"FRONTEND_URL" envDefault:"http://localhost:3000" validate:"required,url"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
