package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // .hcl file or directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	Speed        float64
	TickInterval time.Duration
	TransitDelay time.Duration
	Timeout      time.Duration // zero waits forever
	StrictTimers bool          // reject nested delays that are not shorter
	Seed         uint64        // zero seeds from the clock
	MultipleEnds bool          // let fan-out branches finish at separate end nodes

	SocketURL       string
	SocketNamespace string
	SocketInsecure  bool
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1
	}
	if cfg.Speed < 0 {
		return nil, fmt.Errorf("speed must be positive, got %v", cfg.Speed)
	}
	if cfg.TickInterval < 0 || cfg.TransitDelay < 0 || cfg.Timeout < 0 {
		return nil, errors.New("durations must not be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d is out of range", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
