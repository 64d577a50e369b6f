package syncengine

import (
	"io"
	"log/slog"
	"time"
)

type Config struct {
	// DriftThreshold is the position difference in seconds tolerated without seeking.
	DriftThreshold float64
	// EchoGrace is how long player notifications are swallowed after the engine commands the player.
	EchoGrace time.Duration
	// ReadinessPollInterval spaces LoadOrCreate attempts while the backend is unavailable.
	ReadinessPollInterval time.Duration
	ReconnectInterval     time.Duration
	MaxReconnectDelay     time.Duration
	PingInterval          time.Duration
	OutboundQueueSize     int
	Logger                *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		DriftThreshold:        1.5,
		EchoGrace:             150 * time.Millisecond,
		ReadinessPollInterval: 100 * time.Millisecond,
		ReconnectInterval:     500 * time.Millisecond,
		MaxReconnectDelay:     30 * time.Second,
		PingInterval:          30 * time.Second,
		OutboundQueueSize:     16,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = def.DriftThreshold
	}
	if cfg.EchoGrace <= 0 {
		cfg.EchoGrace = def.EchoGrace
	}
	if cfg.ReadinessPollInterval <= 0 {
		cfg.ReadinessPollInterval = def.ReadinessPollInterval
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = def.ReconnectInterval
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectInterval {
		cfg.MaxReconnectDelay = cfg.ReconnectInterval
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.OutboundQueueSize <= 0 {
		cfg.OutboundQueueSize = def.OutboundQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg
}
