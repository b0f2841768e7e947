package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Domain configuration (the
// statutory template) lives in the store and is owned by the regulator.
type Server struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string
	RegionCode    string

	ConfigCacheTTL time.Duration
	ExpirySweep    time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Empty PostgresDSN, RedisURL, or KafkaBrokers select the in-memory fallbacks.
func FromEnv() Server {
	addr := os.Getenv("RENTLEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	region := os.Getenv("RENTLEDGER_REGION")
	if region == "" {
		region = "01"
	}

	topic := os.Getenv("AUDIT_TOPIC")
	if topic == "" {
		topic = "rentledger.audit"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:           addr,
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   brokers,
		AuditTopic:     topic,
		JWTSigningKey:  jwtSigningKey,
		RegionCode:     region,
		ConfigCacheTTL: durationEnv("CONFIG_CACHE_TTL", 5*time.Minute),
		ExpirySweep:    durationEnv("EXPIRY_SWEEP_INTERVAL", time.Hour),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
