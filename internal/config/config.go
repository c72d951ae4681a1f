package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is built once in main and handed to each constructor. Core packages
// never look anything up from the environment themselves.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// AuthToken is the shared secret the game client must present as the
	// ?token= query parameter. Empty means open mode: every connection is
	// admitted. main logs a warning when that is the case.
	AuthToken string `env:"AUTH_TOKEN"`

	CaptureDir string `env:"CAPTURE_DIR" envDefault:"captures"`

	// AssetsDir enables the image asset listing tool when set.
	AssetsDir string `env:"ASSETS_DIR"`

	Debug bool `env:"DEBUG"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"15s"`
	DebounceWindow    time.Duration `env:"DEBOUNCE_WINDOW" envDefault:"500ms"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
