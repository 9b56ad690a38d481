package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pukagames/moonrace/go/internal/session"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Game struct {
		WinThreshold   int `yaml:"win_threshold"`
		GraceWindowSec int `yaml:"grace_window_sec"`
	} `yaml:"game"`
	Gateway struct {
		Port string `yaml:"port"`
	} `yaml:"gateway"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
}

// loadConfig reads the optional yaml config, filling defaults for anything
// unset. Environment variables win over the file.
func loadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if config.Gateway.Port == "" {
		config.Gateway.Port = getEnv("GATEWAY_PORT", "8081")
	}
	if config.NATS.URL == "" {
		config.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	return &config, nil
}

// gameConfig converts the yaml knobs into the session package's config.
func (c *Config) gameConfig() session.Config {
	cfg := session.DefaultConfig()
	if c.Game.WinThreshold > 0 {
		cfg.WinThreshold = c.Game.WinThreshold
	}
	if c.Game.GraceWindowSec > 0 {
		cfg.GraceWindow = time.Duration(c.Game.GraceWindowSec) * time.Second
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
