package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Server struct {
	Addr          string
	DatabaseURL   string // empty: in-memory stores
	Redis         RedisConfig
	KafkaBrokers  string // comma-separated; empty: audit relay disabled
	KafkaTopic    string
	JWTSigningKey string
	OTPTTL        time.Duration
	// SimulatedDelivery echoes the OTP code in issuance responses instead of
	// handing it to an SMS gateway. For demo environments only.
	SimulatedDelivery bool
	// SeedDemoData loads the DEMO_BANK templates and default operator account.
	SeedDemoData bool
	// OTPIssuesPerWindow / OTPIssueWindow bound issuance per mobile number.
	OTPIssuesPerWindow int
	OTPIssueWindow     time.Duration
}

// RedisConfig holds connection settings for the evidence transaction store.
type RedisConfig struct {
	URL          string // empty: Redis not configured
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CONSENTD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	kafkaTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "consent.audit.compliance"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:    kafkaTopic,
		JWTSigningKey: jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		OTPTTL:             envDuration("OTP_TTL", 5*time.Minute),
		SimulatedDelivery:  os.Getenv("OTP_SIMULATED_DELIVERY") == "true",
		SeedDemoData:       os.Getenv("SEED_DEMO_DATA") == "true",
		OTPIssuesPerWindow: envInt("OTP_ISSUES_PER_WINDOW", 5),
		OTPIssueWindow:     envDuration("OTP_ISSUE_WINDOW", 15*time.Minute),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
