package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds the service configuration, populated from the environment.
type Config struct {
	ListenAddr string `env:"SHOTBOX_LISTEN_ADDR" envDefault:":8080"`
	DBPath     string `env:"SHOTBOX_DB_PATH" envDefault:"/data/db/shotbox.db"`
	UploadPath string `env:"SHOTBOX_UPLOAD_PATH" envDefault:"/data/uploads"`
	BaseURL    string `env:"SHOTBOX_BASE_URL" envDefault:"http://localhost:8080"`

	// Upload admission bounds in bytes.
	MinUploadBytes int64 `env:"SHOTBOX_MIN_UPLOAD_BYTES" envDefault:"4096"`
	MaxUploadBytes int64 `env:"SHOTBOX_MAX_UPLOAD_BYTES" envDefault:"20971520"`

	// DuplicateWindow is the recency window for duplicate caption detection.
	DuplicateWindow time.Duration `env:"SHOTBOX_DUP_WINDOW" envDefault:"168h"`

	// FullLadder generates all four derivative tiers regardless of source
	// resolution; false limits the ladder to natively covered tiers.
	FullLadder bool `env:"SHOTBOX_FULL_LADDER" envDefault:"true"`

	PageSize int `env:"SHOTBOX_PAGE_SIZE" envDefault:"10"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
