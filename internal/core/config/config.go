// Package config provides configuration management for Cardpilot services.
package config

import "time"

// SchedulerConfig holds configuration for the scheduler daemon.
type SchedulerConfig struct {
	DBURL             string
	Scope             string
	TickInterval      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

// DefaultSchedulerConfig returns configuration with default values.
// The tick interval sits well under the 5-minute minimum schedule
// granularity; the heartbeat timeout spans three missed beats.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Scope:             "default",
		TickInterval:      60 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		HeartbeatTimeout:  30 * time.Second,
	}
}
