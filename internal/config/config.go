// Package config reads portal settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hostel-portal/internal/apiclient"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	// APIBaseURL is the origin of the hostel backend, without a trailing slash.
	APIBaseURL string
	APITimeout time.Duration
	// BookingStatusMethod is PATCH or PUT; backend versions disagree.
	BookingStatusMethod string

	DBPath      string
	TemplateDir string
	StaticDir   string

	SecureCookie   bool
	SessionSecret  string
	CSRFKey        string
	TrustedOrigins []string

	// ProfileWait bounds how long a guarded page waits for a restored
	// student profile before showing the loading placeholder.
	ProfileWait time.Duration

	Redis     RedisConfig
	RateLimit RateLimitConfig

	AMQPURL    string
	AuditQueue string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

type RateLimitConfig struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
}

// Load reads the environment, loading .env first when present.
func Load() Config {
	// Convenience for local dev; production relies on real variables.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":" + env("PORT", "8081")
	}

	return Config{
		AppEnv:   env("APP_ENV", "dev"),
		HTTPAddr: httpAddr,
		LogLevel: env("LOG_LEVEL", "info"),

		APIBaseURL:          apiclient.NormalizeBaseURL(os.Getenv("API_BASE_URL")),
		APITimeout:          envDuration("API_TIMEOUT", 15*time.Second),
		BookingStatusMethod: strings.ToUpper(env("BOOKING_STATUS_METHOD", "PATCH")),

		DBPath:      env("DB_PATH", "portal.db"),
		TemplateDir: env("TEMPLATE_DIR", "web/templates"),
		StaticDir:   env("STATIC_DIR", "web/static"),

		SecureCookie:   envBool("SECURE_COOKIE", false),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		CSRFKey:        os.Getenv("CSRF_KEY"),
		TrustedOrigins: envList("TRUSTED_ORIGINS", ""),

		ProfileWait: envDuration("PROFILE_WAIT", 2*time.Second),

		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
			TLS:      envBool("REDIS_TLS", false),
		},
		RateLimit: RateLimitConfig{
			Capacity:       envInt("LOGIN_RATE_CAPACITY", 10),
			RefillTokens:   envInt("LOGIN_RATE_REFILL", 1),
			RefillInterval: envDuration("LOGIN_RATE_INTERVAL", 30*time.Second),
		},

		AMQPURL:    os.Getenv("AMQP_URL"),
		AuditQueue: env("AUDIT_QUEUE", "hostel.booking.status"),
	}
}

// IsProduction reports whether APP_ENV is prod or production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

// envDuration accepts Go durations ("2s") or whole seconds ("2").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
