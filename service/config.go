// Package service exposes the extraction engine over HTTP and MCP, with
// optional persistence of results and attempt records.
package service

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/chatgrab/extractor"
	"github.com/hazyhaar/chatgrab/fetchsnap"
	"github.com/hazyhaar/chatgrab/livepage"
	"github.com/hazyhaar/chatgrab/shield"
)

// Config is the top-level service configuration.
type Config struct {
	// Listen is the HTTP listen address. Default ":8741".
	Listen string `yaml:"listen"`

	// DBPath is the SQLite database path. Empty disables persistence.
	DBPath string `yaml:"db_path"`

	// MCP enables the MCP stdio server alongside HTTP.
	MCP bool `yaml:"mcp"`

	// ShutdownGrace bounds graceful shutdown. Default 10s.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// Extractor tunes the engine.
	Extractor extractor.Config `yaml:"extractor"`

	// Browser configures the shared headless browser for live sources.
	Browser livepage.BrowserConfig `yaml:"browser"`

	// Fetch tunes snapshot retrieval.
	Fetch fetchsnap.Config `yaml:"fetch"`

	// RateLimit bounds per-IP request rates on the HTTP API.
	RateLimit shield.RateLimitConfig `yaml:"rate_limit"`

	// MaxBodyBytes caps HTTP request bodies. Default 12MB, sized for a full
	// page snapshot plus JSON overhead.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("service: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("service: parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a ready-to-run configuration.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8741"
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 10 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 12 * 1024 * 1024
	}
}
