package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures every knob the service reads from the environment so main
// stays lean. Development defaults are deliberate: the service boots with no
// Redis and no Postgres using in-memory stores.
type Config struct {
	Addr string

	// RedisURL enables the shared limiter and session stores when set.
	RedisURL string
	// PostgresDSN enables durable profile and submission stores when set.
	PostgresDSN string

	// ProviderBaseURL points at the GST portal scraping service.
	ProviderBaseURL string
	ProviderTimeout time.Duration

	// LinkServiceURL points at the SMS short-link generator.
	LinkServiceURL string
	LinkExpiry     time.Duration

	// FilingNumber is the GST portal SMS destination.
	FilingNumber string

	CaptchaSessionTTL   time.Duration
	RateLimitMax        int
	RateLimitWindow     time.Duration
	WorkflowIdleTimeout time.Duration

	// JWTSigningKey guards the webhook API when non-empty.
	JWTSigningKey string
}

// FromEnv builds a Config from environment variables with defaults suitable
// for local development.
func FromEnv() Config {
	return Config{
		Addr:                envString("NILEASY_ADDR", ":8080"),
		RedisURL:            os.Getenv("NILEASY_REDIS_URL"),
		PostgresDSN:         os.Getenv("NILEASY_POSTGRES_DSN"),
		ProviderBaseURL:     envString("NILEASY_GST_PROVIDER_URL", "http://localhost:9090"),
		ProviderTimeout:     envDuration("NILEASY_GST_PROVIDER_TIMEOUT", 10*time.Second),
		LinkServiceURL:      envString("NILEASY_LINK_SERVICE_URL", "https://sm-snacc.vercel.app"),
		LinkExpiry:          envDuration("NILEASY_LINK_EXPIRY", 10*time.Minute),
		FilingNumber:        envString("NILEASY_FILING_NUMBER", "14409"),
		CaptchaSessionTTL:   envDuration("NILEASY_CAPTCHA_TTL", 3*time.Minute),
		RateLimitMax:        envInt("NILEASY_RATE_LIMIT_MAX", 3),
		RateLimitWindow:     envDuration("NILEASY_RATE_LIMIT_WINDOW", time.Hour),
		WorkflowIdleTimeout: envDuration("NILEASY_WORKFLOW_IDLE_TIMEOUT", 30*time.Minute),
		JWTSigningKey:       os.Getenv("NILEASY_JWT_SIGNING_KEY"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
