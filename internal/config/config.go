package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every process-wide setting. It is built once at startup and
// handed to components by value; nothing re-reads the environment afterwards.
type Config struct {
	Port        string
	Environment string // "development" or "production"

	PostgresDSN string

	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration
	OTPTTL         time.Duration

	GoogleClientID string

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string
}

const (
	defaultAccessTTL  = 10 * time.Hour
	defaultRefreshTTL = 3 * 24 * time.Hour
	defaultOTPTTL     = time.Hour
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// Production reports whether the process runs with production hardening.
// OTP codes are only echoed in responses outside production.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// New reads configuration from the environment and validates it.
func New() (*Config, error) {
	c := &Config{
		Port:        getenv("PORT", "8080"),
		Environment: strings.ToLower(getenv("STAFFHUB_ENV", "development")),

		PostgresDSN: getenv("STAFFHUB_PG_DSN", ""),

		JWTSecret:      getenv("JWT_SECRET", ""),
		JWTIssuer:      getenv("JWT_ISSUER", "staffhub"),
		AccessTokenTTL: defaultAccessTTL,
		RefreshTTL:     defaultRefreshTTL,
		OTPTTL:         defaultOTPTTL,

		GoogleClientID: getenv("GOOGLE_CLIENT_ID", ""),

		MailHost: getenv("MAIL_HOST", "smtp.gmail.com"),
		MailPort: 587,
		MailUser: getenv("MAIL_USER", ""),
		MailPass: getenv("MAIL_PASS", ""),
		MailFrom: getenv("MAIL_FROM", "StaffHub Security <noreply@staffhub.org>"),
	}

	if raw := os.Getenv("MAIL_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MAIL_PORT: %s", raw)
		}
		c.MailPort = port
	}
	if raw := os.Getenv("ACCESS_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL: %s", raw)
		}
		c.AccessTokenTTL = ttl
	}

	// Signing without a secret is a startup failure, never a request failure.
	if strings.TrimSpace(c.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}
	if c.Environment != "development" && c.Environment != "production" {
		return nil, fmt.Errorf("invalid STAFFHUB_ENV: %s", c.Environment)
	}

	return c, nil
}
