package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BuildPath string // build file or directory tree to load

	FetchDir string // workspace for executed fetches
	CacheDir string // archive download cache
	DoFetch  bool   // execute fetch plans instead of only printing them

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it ready for use.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BuildPath == "" {
		return nil, errors.New("BuildPath is a required configuration field and cannot be empty")
	}
	if cfg.DoFetch && cfg.FetchDir == "" {
		return nil, errors.New("FetchDir is required when fetch execution is enabled")
	}
	return &cfg, nil
}
