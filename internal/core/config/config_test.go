package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}

	if cfg.Scope != "default" {
		t.Errorf("Scope = %q, want default", cfg.Scope)
	}
	if cfg.TickInterval != time.Minute {
		t.Errorf("TickInterval = %v, want 1m", cfg.TickInterval)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 10s", cfg.HeartbeatInterval)
	}
	if cfg.HeartbeatTimeout != 30*time.Second {
		t.Errorf("HeartbeatTimeout = %v, want 30s", cfg.HeartbeatTimeout)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CP_SCHEDULER_TICK_INTERVAL", "30s")
	t.Setenv("CP_SCHEDULER_SCOPE", "staging")
	t.Setenv("CP_DB_URL", "sqlite:///tmp/cardpilot.db")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}

	if cfg.TickInterval != 30*time.Second {
		t.Errorf("TickInterval = %v, want 30s from environment", cfg.TickInterval)
	}
	if cfg.Scope != "staging" {
		t.Errorf("Scope = %q, want staging", cfg.Scope)
	}
	if cfg.DBURL != "sqlite:///tmp/cardpilot.db" {
		t.Errorf("DBURL = %q, want env value", cfg.DBURL)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cardpilot.yaml")
	content := []byte("scheduler:\n  scope: prod\n  tick_interval: 2m\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}
	if cfg.Scope != "prod" {
		t.Errorf("Scope = %q, want prod from file", cfg.Scope)
	}
	if cfg.TickInterval != 2*time.Minute {
		t.Errorf("TickInterval = %v, want 2m from file", cfg.TickInterval)
	}
	// Unset keys fall back to defaults.
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v, want default 10s", cfg.HeartbeatInterval)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/cardpilot.yaml"); err == nil {
		t.Error("LoadConfig() with missing file error = nil, want error")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SchedulerConfig)
		wantErr bool
	}{
		{"defaults valid", func(cfg *SchedulerConfig) {}, false},
		{"empty scope", func(cfg *SchedulerConfig) { cfg.Scope = "" }, true},
		{"zero tick interval", func(cfg *SchedulerConfig) { cfg.TickInterval = 0 }, true},
		{"negative heartbeat", func(cfg *SchedulerConfig) { cfg.HeartbeatInterval = -time.Second }, true},
		{"timeout below heartbeat", func(cfg *SchedulerConfig) {
			cfg.HeartbeatInterval = 30 * time.Second
			cfg.HeartbeatTimeout = 10 * time.Second
		}, true},
		{"timeout equal to heartbeat", func(cfg *SchedulerConfig) {
			cfg.HeartbeatInterval = 30 * time.Second
			cfg.HeartbeatTimeout = 30 * time.Second
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSchedulerConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
