package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.json")
	writeFile(t, path, `{"server": {"url": "https://sync.example.com"}}`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	checks := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"probe interval", cfg.Orchestrator.ProbeInterval.Std(), 30 * time.Second},
		{"full sync interval", cfg.Orchestrator.FullSyncInterval.Std(), 2 * time.Minute},
		{"health interval", cfg.Orchestrator.HealthInterval.Std(), 5 * time.Minute},
		{"health grace", cfg.Orchestrator.HealthGrace.Std(), time.Minute},
		{"debounce window", cfg.Orchestrator.DebounceWindow.Std(), time.Second},
		{"base delay", cfg.Realtime.BaseDelay.Std(), time.Second},
		{"max delay", cfg.Realtime.MaxDelay.Std(), 30 * time.Second},
		{"idle threshold", cfg.Activity.IdleThreshold.Std(), 5 * time.Minute},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if cfg.Orchestrator.ProcessedCap != 100 {
		t.Errorf("ProcessedCap = %d, want 100", cfg.Orchestrator.ProcessedCap)
	}
	if cfg.Realtime.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", cfg.Realtime.MaxAttempts)
	}
	if cfg.Realtime.Transport != TransportWebSocket {
		t.Errorf("Transport = %q, want %q", cfg.Realtime.Transport, TransportWebSocket)
	}
	if !cfg.Deferred.IsEnabled() {
		t.Error("deferred sync should default to enabled")
	}
	if cfg.Deferred.SpoolDir != filepath.Join(cfg.DataDir(), "spool") {
		t.Errorf("SpoolDir = %q", cfg.Deferred.SpoolDir)
	}
}

func TestLoadFromFileParsesDurations(t *testing.T) {
	t.Run("strings and milliseconds", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cadence.json")
		writeFile(t, path, `{
			"orchestrator": {"probe_interval": "45s", "debounce_window": 250},
			"activity": {"idle_threshold": "90s"},
			"deferred": {"enabled": false}
		}`)

		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile() error = %v", err)
		}
		if got := cfg.Orchestrator.ProbeInterval.Std(); got != 45*time.Second {
			t.Errorf("ProbeInterval = %v", got)
		}
		if got := cfg.Orchestrator.DebounceWindow.Std(); got != 250*time.Millisecond {
			t.Errorf("DebounceWindow = %v", got)
		}
		if got := cfg.Activity.IdleThreshold.Std(); got != 90*time.Second {
			t.Errorf("IdleThreshold = %v", got)
		}
		if cfg.Deferred.IsEnabled() {
			t.Error("deferred sync should be disabled")
		}
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cadence.json")
		writeFile(t, path, `{"orchestrator": {"probe_interval": "soon"}}`)

		if _, err := LoadFromFile(path); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("rejects unknown transports", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cadence.json")
		writeFile(t, path, `{"realtime": {"transport": "carrier-pigeon"}}`)

		if _, err := LoadFromFile(path); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestResolve(t *testing.T) {
	t.Setenv("CADENCE_TEST_TOKEN", "secret")

	got, err := Resolve("$CADENCE_TEST_TOKEN")
	if err != nil || got != "secret" {
		t.Errorf("Resolve() = %q, %v", got, err)
	}

	got, err = Resolve("Bearer ${CADENCE_TEST_TOKEN}")
	if err != nil || got != "Bearer secret" {
		t.Errorf("Resolve() = %q, %v", got, err)
	}

	if _, err := Resolve("$CADENCE_TEST_MISSING"); err == nil {
		t.Error("expected an error for an unset variable")
	}

	got, err = Resolve("plain")
	if err != nil || got != "plain" {
		t.Errorf("Resolve() = %q, %v", got, err)
	}
}

func TestUnsetTokenVariableIsCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.json")
	writeFile(t, path, `{"server": {"token": "$CADENCE_TEST_UNSET_TOKEN"}}`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Server.Token != "" {
		t.Errorf("Token = %q, want empty", cfg.Server.Token)
	}
}

func TestSaveToFileKeepsTokenTemplate(t *testing.T) {
	t.Setenv("CADENCE_TEST_TOKEN", "secret")
	path := filepath.Join(t.TempDir(), "nested", "cadence.json")

	if err := setField(path, "server.token", "$CADENCE_TEST_TOKEN"); err != nil {
		t.Fatalf("setField() error = %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Server.Token != "secret" {
		t.Fatalf("Token = %q, want resolved value", cfg.Server.Token)
	}

	cfg.Server.URL = "https://sync.example.com"
	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if got := string(data); !strings.Contains(got, `"$CADENCE_TEST_TOKEN"`) || strings.Contains(got, `"secret"`) {
		t.Errorf("saved config leaks or drops the token template:\n%s", got)
	}
	if !strings.Contains(string(data), `"probe_interval": "30s"`) {
		t.Errorf("durations should be written as strings:\n%s", data)
	}
}

func TestSetFieldPreservesOtherFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.json")
	writeFile(t, path, `{"server": {"url": "https://a.example.com"}}`)

	if err := setField(path, "orchestrator.probe_interval", 45*time.Second); err != nil {
		t.Fatalf("setField() error = %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Server.URL != "https://a.example.com" {
		t.Errorf("URL = %q", cfg.Server.URL)
	}
	if got := cfg.Orchestrator.ProbeInterval.Std(); got != 45*time.Second {
		t.Errorf("ProbeInterval = %v", got)
	}
}

func TestNeedsSetup(t *testing.T) {
	if !NeedsSetup(nil) {
		t.Error("nil config needs setup")
	}
	if !NeedsSetup(NewConfig()) {
		t.Error("config without a server needs setup")
	}
	cfg := NewConfig()
	cfg.Server.URL = "https://sync.example.com"
	if NeedsSetup(cfg) {
		t.Error("configured server should not need setup")
	}
}
