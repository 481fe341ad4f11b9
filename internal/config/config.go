// Package config loads runtime settings for the mdflow process from an
// optional YAML file. Settings here tune the process (logging, worker
// count); the workflow itself is declared separately in HCL.
package config

import (
	"fmt"
	"os"

	"github.com/mdflow/mdflow/internal/errdefs"
	"gopkg.in/yaml.v3"
)

// Settings holds process-level runtime configuration.
type Settings struct {
	// Workers bounds ensemble execution concurrency.
	Workers int `yaml:"workers"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is one of text, json.
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Workers:   4,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads settings from a YAML file, filling unset fields with
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	if loaded.Workers != 0 {
		s.Workers = loaded.Workers
	}
	if loaded.LogLevel != "" {
		s.LogLevel = loaded.LogLevel
	}
	if loaded.LogFormat != "" {
		s.LogFormat = loaded.LogFormat
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks field values.
func (s *Settings) Validate() error {
	if s.Workers < 1 {
		return errdefs.Usagef("workers must be at least 1, got %d", s.Workers)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errdefs.Usagef("invalid log_level %q: must be debug, info, warn, or error", s.LogLevel)
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return errdefs.Usagef("invalid log_format %q: must be text or json", s.LogFormat)
	}
	return nil
}
