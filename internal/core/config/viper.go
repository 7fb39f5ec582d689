package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*SchedulerConfig, error) {
	v := viper.New()

	// Defaults matching DefaultSchedulerConfig
	v.SetDefault("db.url", "")
	v.SetDefault("scheduler.scope", "default")
	v.SetDefault("scheduler.tick_interval", "60s")
	v.SetDefault("scheduler.heartbeat_interval", "10s")
	v.SetDefault("scheduler.heartbeat_timeout", "30s")

	// Bind environment variables with CP_ prefix
	v.SetEnvPrefix("CP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &SchedulerConfig{
		DBURL:             v.GetString("db.url"),
		Scope:             v.GetString("scheduler.scope"),
		TickInterval:      v.GetDuration("scheduler.tick_interval"),
		HeartbeatInterval: v.GetDuration("scheduler.heartbeat_interval"),
		HeartbeatTimeout:  v.GetDuration("scheduler.heartbeat_timeout"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks intervals are positive and the heartbeat timeout
// exceeds the heartbeat interval, otherwise every instance would depose
// the leader between its own beats.
func validateConfig(cfg *SchedulerConfig) error {
	if cfg.Scope == "" {
		return fmt.Errorf("scheduler.scope must not be empty")
	}
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("scheduler.tick_interval must be positive, got %v", cfg.TickInterval)
	}
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("scheduler.heartbeat_interval must be positive, got %v", cfg.HeartbeatInterval)
	}
	if cfg.HeartbeatTimeout <= cfg.HeartbeatInterval {
		return fmt.Errorf("scheduler.heartbeat_timeout (%v) must exceed scheduler.heartbeat_interval (%v)",
			cfg.HeartbeatTimeout, cfg.HeartbeatInterval)
	}
	return nil
}
