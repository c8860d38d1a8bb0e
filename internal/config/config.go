// Package config loads server configuration from the environment,
// after a best-effort read of a local .env file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr string `env:"RADAR_ADDR" envDefault:":8080"`

	// Access codes. Plain strings, or bcrypt hashes ("$2" prefix) when
	// the deployment does not want codes readable in the environment.
	ParticipantCode string `env:"RADAR_ACCESS_CODE" envDefault:"RADAR2024"`
	AdminCode       string `env:"RADAR_ADMIN_CODE" envDefault:"ADMIN2024"`

	SessionDuration time.Duration `env:"RADAR_SESSION_DURATION" envDefault:"3h"`
	TokenSecret     string        `env:"RADAR_TOKEN_SECRET" envDefault:"radar-dev-secret"`

	// DBPath selects the sqlite session store; empty keeps the session
	// in memory only.
	DBPath    string `env:"RADAR_DB"`
	StaticDir string `env:"RADAR_STATIC_DIR"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionDuration <= 0 {
		return nil, fmt.Errorf("RADAR_SESSION_DURATION must be positive, got %v", cfg.SessionDuration)
	}
	return &cfg, nil
}
