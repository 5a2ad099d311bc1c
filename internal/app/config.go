package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	OptionsPath string // hcl options file, optional
	ScanPath    string // directory scanned for style fragments

	ArtifactPath string // overrides the options file's artifact path
	LogFormat    string
	LogLevel     string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScanPath == "" {
		return nil, errors.New("ScanPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
