package app

import "errors"

// Config holds all the configuration an App instance needs to run.
// CLI flags override the corresponding YAML settings when set.
type Config struct {
	WorkflowPath string
	SettingsPath string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates a Config value.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
