// Package config loads server configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr string `env:"DRIVEGATE_ADDR" envDefault:":8080"`

	// Signing key for access tokens. The default exists for development
	// only and must be overridden in any real deployment.
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"drivegate"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"60m"`
	AuthCodeTTL     time.Duration `env:"AUTH_CODE_TTL" envDefault:"60s"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// How long a user gets to finish login and consent.
	AuthRequestTTL time.Duration `env:"AUTH_REQUEST_TTL" envDefault:"10m"`

	// Where /authorize sends unauthenticated and consent-pending users.
	LoginURL   string `env:"LOGIN_URL" envDefault:"/login"`
	ConsentURL string `env:"CONSENT_URL" envDefault:"/oauth/consent"`

	// Empty DatabaseURL selects the in-memory stores.
	DatabaseURL string `env:"DATABASE_URL"`

	Redis RedisConfig `envPrefix:"REDIS_"`

	// Empty broker list disables the Kafka audit sink.
	KafkaBrokers    []string `env:"KAFKA_BROKERS"`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"drivegate.audit.v1"`
	AuditBuffer     int      `env:"AUDIT_BUFFER" envDefault:"1024"`
}

// RedisConfig controls the optional Redis-backed stores. An empty URL means
// Redis is not configured and memory implementations are used.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
