package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values come from
// the environment only, so main stays lean and deploys stay declarative.
type Config struct {
	Addr     string
	LogLevel string

	// DatabaseURL is a lib/pq DSN. Empty means run on in-memory stores
	// (useful for local development and the handler test harness).
	DatabaseURL string

	Redis RedisConfig

	Authority AuthorityConfig

	Sweep SweepConfig

	Kafka KafkaConfig

	// JWTSigningKey signs access tokens for the admin API.
	JWTSigningKey string
	// AdminUsername / AdminPassword are the bootstrap credentials accepted
	// by POST /auth/login.
	AdminUsername string
	AdminPassword string
}

// RedisConfig configures the optional Redis client. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthorityConfig points at the external SIM status authority.
type AuthorityConfig struct {
	BaseURL string
	// Timeout bounds every status lookup; the engine must never block on the
	// authority indefinitely.
	Timeout time.Duration
}

// SweepConfig drives the periodic reconciliation of assigned cards.
type SweepConfig struct {
	Enabled bool
	// Interval between full sweep iterations.
	Interval time.Duration
	// Pause between individual cards, bounding outbound request rate.
	Pause time.Duration
}

// KafkaConfig configures the optional transition-log Kafka sink. Empty
// brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables with development
// defaults for everything but credentials.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("SIMTRACK_ADDR", ":8080"),
		LogLevel:      envOr("SIMTRACK_LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminUsername: envOr("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Authority: AuthorityConfig{
			BaseURL: envOr("AUTHORITY_BASE_URL", "http://localhost:9020"),
			Timeout: envDuration("AUTHORITY_TIMEOUT", 10*time.Second),
		},
		Sweep: SweepConfig{
			Enabled:  os.Getenv("SWEEP_ENABLED") == "true",
			Interval: envDuration("SWEEP_INTERVAL", 30*time.Minute),
			Pause:    envDuration("SWEEP_PAUSE", time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("KAFKA_TRANSITIONS_TOPIC", "simtrack.transitions"),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
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
