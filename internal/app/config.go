package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelPath string // hcl definition file or directory

	LogFormat   string
	LogLevel    string
	OpsPort     int
	WorkerCount int
}

// NewConfig validates and returns a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("ModelPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
