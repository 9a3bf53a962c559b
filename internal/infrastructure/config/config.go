package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
}

// AuthConfig is the security-policy surface of the demo. Defaults mirror the
// documented policy: 5 attempts, 5-minute lockout, 30-second TOTP step with
// one step of skew, 5-minute pending-challenge TTL.
type AuthConfig struct {
	MaxAttempts         int  `env:"AUTH_MAX_ATTEMPTS,     default=5"`
	LockoutMinutes      int  `env:"AUTH_LOCKOUT_MINUTES,  default=5"`
	TOTPStepSeconds     uint `env:"TOTP_STEP_SECONDS,     default=30"`
	TOTPSkewSteps       uint `env:"TOTP_SKEW_STEPS,       default=1"`
	ChallengeTTLMinutes int  `env:"CHALLENGE_TTL_MINUTES, default=5"`
}

// MongoConfig selects the durable user directory. An empty URI switches the
// server to the in-memory store.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=security_demo"`
}

// RedisConfig selects the pending-challenge registry. An empty Addr switches
// to the in-memory registry.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// LockoutFor returns the lockout window as a duration.
func (a AuthConfig) LockoutFor() time.Duration {
	return time.Duration(a.LockoutMinutes) * time.Minute
}

// ChallengeTTL returns the pending-challenge lifetime as a duration.
func (a AuthConfig) ChallengeTTL() time.Duration {
	return time.Duration(a.ChallengeTTLMinutes) * time.Minute
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
