package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// Postgres connection string for payment, student, violation and audit
	// storage. Empty means storage-backed features run on in-memory stores
	// (dev/demo only).
	PostgresDSN string

	Redis RedisConfig

	Gateway GatewayConfig

	RateLimit RateLimitConfig

	Audit AuditConfig

	// SuperadminTokenHash is a bcrypt hash of the static admin bearer token
	// protecting /api/admin routes.
	SuperadminTokenHash string
}

// RedisConfig captures Redis client tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GatewayConfig captures the external payment gateway connection.
type GatewayConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// RateLimitConfig captures limiter toggles.
type RateLimitConfig struct {
	// Disabled turns the limiter into a pass-through (demo/load-test mode).
	Disabled bool
	// Strict halves the effective limit for anonymous (fingerprint) callers.
	Strict bool
	// BaseBackoff seeds the exponential penalty; doubles per violation.
	BaseBackoff time.Duration
	// CacheSize bounds the in-process record cache.
	CacheSize int
	// CacheTTL expires idle in-process records.
	CacheTTL time.Duration
	// SweepInterval drives the background cleanup of the in-process cache.
	SweepInterval time.Duration
}

// AuditConfig captures the audit pipeline shape.
type AuditConfig struct {
	// QueueSize bounds the fire-and-forget inbox; overflow drops entries.
	QueueSize int
	// KafkaBrokers enables the Kafka mirror when non-empty.
	KafkaBrokers []string
	// KafkaTopic is the audit topic name.
	KafkaTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("PORTALPAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("AUDIT_KAFKA_TOPIC")
	if topic == "" {
		topic = "portalpay.payment.audit"
	}

	return Server{
		Addr:        addr,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Gateway: GatewayConfig{
			BaseURL:   envDefault("GATEWAY_BASE_URL", "https://api.flutterwave.com"),
			SecretKey: os.Getenv("GATEWAY_SECRET_KEY"),
			Timeout:   envDuration("GATEWAY_TIMEOUT", 15*time.Second),
		},
		RateLimit: RateLimitConfig{
			Disabled:      os.Getenv("RATE_LIMIT_DISABLED") == "true",
			Strict:        os.Getenv("RATE_LIMIT_STRICT") == "true",
			BaseBackoff:   envDuration("RATE_LIMIT_BASE_BACKOFF", 60*time.Second),
			CacheSize:     envInt("RATE_LIMIT_CACHE_SIZE", 10000),
			CacheTTL:      envDuration("RATE_LIMIT_CACHE_TTL", 10*time.Minute),
			SweepInterval: envDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
		},
		Audit: AuditConfig{
			QueueSize:    envInt("AUDIT_QUEUE_SIZE", 1024),
			KafkaBrokers: splitNonEmpty(os.Getenv("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   topic,
		},
		SuperadminTokenHash: os.Getenv("SUPERADMIN_TOKEN_HASH"),
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
