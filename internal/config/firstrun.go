package config

import (
	"os"
)

// IsFirstRun reports whether no global config file exists yet.
func IsFirstRun() bool {
	_, err := os.Stat(GlobalConfigPath())
	return os.IsNotExist(err)
}

// NeedsSetup reports whether cfg lacks a remote server to sync with.
func NeedsSetup(cfg *Config) bool {
	return cfg == nil || cfg.Server.URL == ""
}
