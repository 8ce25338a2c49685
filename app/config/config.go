// Package config loads service configuration from the environment.
//
// Missing credentials degrade features instead of failing startup: an
// absent AI key disables that backend, an absent Paystack key disables the
// payment endpoints, and absent Postgres settings disable (fail closed)
// every record-dependent endpoint.
package config

import (
	"fmt"
	"os"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

// Quota enforcement modes. The source service drifted between quota-aware
// multi-backend selection and a hard-coded single backend with no
// enforcement; we keep both as one explicit switch.
const (
	QuotaEnforced      = "enforced"
	QuotaSingleBackend = "single-backend"
)

type Config struct {
	Port string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	PaystackSecretKey string
	PaystackBaseURL   string

	DB PostgresConfig

	QuotaEnforcement string
	RequestTimeout   time.Duration

	// Account-specific Paystack plan codes; empty keeps the built-ins.
	PlanCodeBasic    string
	PlanCodeStandard string
	PlanCodePremium  string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Name     string
	SSLMode  string
}

// Configured reports whether enough is set to reach Postgres at all.
func (c PostgresConfig) Configured() bool {
	return c.Username != "" && c.URL != ""
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", ""),

		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			Name:     getEnv("POSTGRES_DB", "glowscan"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "require"),
		},

		QuotaEnforcement: getEnv("QUOTA_ENFORCEMENT", QuotaEnforced),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT_SECONDS", 90*time.Second),

		PlanCodeBasic:    os.Getenv("PAYSTACK_PLAN_CODE_BASIC"),
		PlanCodeStandard: os.Getenv("PAYSTACK_PLAN_CODE_STANDARD"),
		PlanCodePremium:  os.Getenv("PAYSTACK_PLAN_CODE_PREMIUM"),
	}

	if cfg.QuotaEnforcement != QuotaEnforced && cfg.QuotaEnforcement != QuotaSingleBackend {
		return nil, fmt.Errorf("invalid QUOTA_ENFORCEMENT %q: want %q or %q",
			cfg.QuotaEnforcement, QuotaEnforced, QuotaSingleBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var seconds int
	if _, err := fmt.Sscanf(v, "%d", &seconds); err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
