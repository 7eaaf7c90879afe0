package config

import "time"

// SimulatorConfig holds everything the binary assembles at startup that
// is not a scheduling parameter: pacing, logging, and the optional
// sidecars.
type SimulatorConfig struct {
	TickDuration time.Duration // wall-clock length of one simulated tick
	LogLevel     string        // debug, info, warn, error
	LogFormat    string        // text, json
	StatsDB      string        // SQLite path for run history; empty disables
	MonitorAddr  string        // listen address for the monitor; empty disables
}

// DefaultSimulatorConfig returns sensible defaults.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		TickDuration: 10 * time.Millisecond,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}
