// Package config provides configuration management for the cadence CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/sjson"
)

const appName = "cadence"

// Realtime transports.
const (
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
	TransportOff       = "off"
)

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig        `json:"server"`
	Realtime      RealtimeConfig      `json:"realtime"`
	Scheduler     SchedulerConfig     `json:"scheduler"`
	Orchestrator  OrchestratorConfig  `json:"orchestrator"`
	Activity      ActivityConfig      `json:"activity"`
	Deferred      DeferredConfig      `json:"deferred"`
	Notifications NotificationsConfig `json:"notifications"`
	Options       *Options            `json:"options,omitempty"`
}

// ServerConfig points at the remote data store.
type ServerConfig struct {
	URL string `json:"url,omitempty"`
	// Token may reference an environment variable, e.g. "$CADENCE_TOKEN".
	Token   string   `json:"token,omitempty"`
	Timeout Duration `json:"timeout,omitempty"`
	Retries int      `json:"retries,omitempty"`
}

// RealtimeConfig configures the push channel.
//
//nolint:govet // Field order is intentional for JSON readability.
type RealtimeConfig struct {
	Transport    string   `json:"transport,omitempty"`
	URL          string   `json:"url,omitempty"`
	RedisAddr    string   `json:"redis_addr,omitempty"`
	Inbox        string   `json:"inbox,omitempty"`
	Outbox       string   `json:"outbox,omitempty"`
	BaseDelay    Duration `json:"base_delay,omitempty"`
	MaxDelay     Duration `json:"max_delay,omitempty"`
	MaxAttempts  int      `json:"max_attempts,omitempty"`
	WriteTimeout Duration `json:"write_timeout,omitempty"`
}

// SchedulerConfig holds optional extra tasks.
type SchedulerConfig struct {
	// NightlySchedule is a standard cron expression, empty to disable.
	NightlySchedule string `json:"nightly_schedule,omitempty"`
}

// OrchestratorConfig holds the sync cadences.
type OrchestratorConfig struct {
	ProbeInterval    Duration `json:"probe_interval,omitempty"`
	FullSyncInterval Duration `json:"full_sync_interval,omitempty"`
	HealthInterval   Duration `json:"health_interval,omitempty"`
	HealthGrace      Duration `json:"health_grace,omitempty"`
	DebounceWindow   Duration `json:"debounce_window,omitempty"`
	ProcessedCap     int      `json:"processed_cap,omitempty"`
}

// ActivityConfig configures idle detection.
type ActivityConfig struct {
	IdleThreshold Duration `json:"idle_threshold,omitempty"`
}

// DeferredConfig configures the deferred-sync spool.
type DeferredConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	SpoolDir string `json:"spool_directory,omitempty"`
}

// IsEnabled reports whether deferred sync is on. It defaults to true.
func (d DeferredConfig) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// NotificationsConfig configures terminal notifications.
type NotificationsConfig struct {
	Bell bool `json:"bell,omitempty"`
}

// Options holds optional configuration settings.
//
//nolint:govet // Field order is intentional for JSON readability.
type Options struct {
	DataDir string `json:"data_directory,omitempty"`
	Debug   bool   `json:"debug,omitempty"`
}

// NewConfig creates a new Config with initialized sections.
func NewConfig() *Config {
	return &Config{
		Options: &Options{},
	}
}

// SetConfigField updates a single field in the global config file using
// JSON path notation. Only the specified field is modified.
func (c *Config) SetConfigField(key string, value any) error {
	return setField(GlobalConfigPath(), key, value)
}

func setField(path, key string, value any) error {
	//nolint:gosec // G304: path is the trusted global config path.
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading config file: %w", err)
		}
		data = []byte("{}")
	}

	if d, ok := value.(time.Duration); ok {
		value = d.String()
	}

	newData, err := sjson.Set(string(data), key, value)
	if err != nil {
		return fmt.Errorf("setting config field %q: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	//nolint:gosec // 0o600 is intentionally restrictive for security.
	if err := os.WriteFile(path, []byte(newData), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
