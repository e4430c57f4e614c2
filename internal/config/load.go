package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const (
	configFileName = "cadence.json"

	defaultServerTimeout = 10 * time.Second
	defaultServerRetries = 3

	defaultBaseDelay    = time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultMaxAttempts  = 10
	defaultWriteTimeout = 10 * time.Second
	defaultInbox        = "cadence:inbox"
	defaultOutbox       = "cadence:outbox"

	defaultProbeInterval    = 30 * time.Second
	defaultFullSyncInterval = 2 * time.Minute
	defaultHealthInterval   = 5 * time.Minute
	defaultHealthGrace      = time.Minute
	defaultDebounceWindow   = time.Second
	defaultProcessedCap     = 100

	defaultIdleThreshold = 5 * time.Minute
)

// Load finds and loads configuration from standard locations.
// The project config is layered over the global one, field by field.
func Load() (*Config, error) {
	cfg := NewConfig()
	if err := loadFile(GlobalConfigPath(), cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	if projectPath := findProjectConfig(); projectPath != "" {
		if err := loadFile(projectPath, cfg); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return finish(cfg)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	resolveSecrets(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	//nolint:gosec // G304: Path is from trusted config locations, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		hiddenPath := filepath.Join(dir, "."+configFileName)
		if _, err := os.Stat(hiddenPath); err == nil {
			return hiddenPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	if cfg.Options.DataDir == "" {
		cfg.Options.DataDir = filepath.Join(xdg.DataHome, appName)
	}

	s := &cfg.Server
	defaultDuration(&s.Timeout, defaultServerTimeout)
	if s.Retries == 0 {
		s.Retries = defaultServerRetries
	}

	rt := &cfg.Realtime
	if rt.Transport == "" {
		rt.Transport = TransportWebSocket
	}
	if rt.Inbox == "" {
		rt.Inbox = defaultInbox
	}
	if rt.Outbox == "" {
		rt.Outbox = defaultOutbox
	}
	defaultDuration(&rt.BaseDelay, defaultBaseDelay)
	defaultDuration(&rt.MaxDelay, defaultMaxDelay)
	defaultDuration(&rt.WriteTimeout, defaultWriteTimeout)
	if rt.MaxAttempts == 0 {
		rt.MaxAttempts = defaultMaxAttempts
	}

	o := &cfg.Orchestrator
	defaultDuration(&o.ProbeInterval, defaultProbeInterval)
	defaultDuration(&o.FullSyncInterval, defaultFullSyncInterval)
	defaultDuration(&o.HealthInterval, defaultHealthInterval)
	defaultDuration(&o.HealthGrace, defaultHealthGrace)
	defaultDuration(&o.DebounceWindow, defaultDebounceWindow)
	if o.ProcessedCap == 0 {
		o.ProcessedCap = defaultProcessedCap
	}

	defaultDuration(&cfg.Activity.IdleThreshold, defaultIdleThreshold)

	if cfg.Deferred.SpoolDir == "" {
		cfg.Deferred.SpoolDir = filepath.Join(cfg.Options.DataDir, "spool")
	}
}

func defaultDuration(d *Duration, def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}

// resolveSecrets expands environment references. A token whose variable is
// unset is cleared so credential lookup falls through to the keyring.
func resolveSecrets(cfg *Config) {
	if token, err := Resolve(cfg.Server.Token); err == nil {
		cfg.Server.Token = token
	} else {
		cfg.Server.Token = ""
	}
	for _, v := range []*string{&cfg.Server.URL, &cfg.Realtime.URL, &cfg.Realtime.RedisAddr} {
		if resolved, err := Resolve(*v); err == nil {
			*v = resolved
		}
	}
}

func validate(cfg *Config) error {
	switch cfg.Realtime.Transport {
	case TransportWebSocket, TransportRedis, TransportOff:
	default:
		return fmt.Errorf("realtime.transport: unknown transport %q", cfg.Realtime.Transport)
	}
	if cfg.Realtime.MaxAttempts < 0 {
		return fmt.Errorf("realtime.max_attempts must not be negative")
	}
	if cfg.Orchestrator.ProcessedCap < 0 {
		return fmt.Errorf("orchestrator.processed_cap must not be negative")
	}
	return nil
}

// Resolve expands $VAR and ${VAR} references in value. It fails when a
// referenced variable is unset.
func Resolve(value string) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	var missing []string
	out := os.Expand(value, func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("environment variable %s is not set", strings.Join(missing, ", "))
	}
	return out, nil
}

// GlobalConfigPath returns the path to the global configuration file.
func GlobalConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// DataDir returns the data directory path from configuration.
func (c *Config) DataDir() string {
	if c.Options != nil && c.Options.DataDir != "" {
		return c.Options.DataDir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DatabasePath returns the SQLite file backing the local store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), "cadence.db")
}

// LogPath returns the debug log location.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir(), "debug.log")
}
