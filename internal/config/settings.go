package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds process-level options read from the environment.
type Settings struct {
	Addr            string `env:"CMDGRAPH_ADDR" envDefault:":8080"`
	ConfigPath      string `env:"CMDGRAPH_CONFIG" envDefault:"configs/commands.yaml"`
	LogLevel        string `env:"CMDGRAPH_LOG_LEVEL" envDefault:"info"`
	ReloadPerMinute int    `env:"CMDGRAPH_RELOAD_PER_MINUTE" envDefault:"6"`
	QueueDepth      int    `env:"CMDGRAPH_QUEUE_DEPTH" envDefault:"8"`
}

// LoadSettings reads an optional .env file and then the environment.
func LoadSettings() (*Settings, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return &s, nil
}

// Level parses LogLevel, defaulting to info.
func (s *Settings) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
