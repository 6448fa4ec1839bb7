// Package config defines the runtime configuration, layered through viper:
// built-in defaults, an optional config file, NFCTAP_* environment
// variables, then command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"

	"github.com/rfnet/nfctap/internal/conftree"
	"github.com/rfnet/nfctap/internal/errors"
)

// Protocols is the fixed protocol set the decoder understands.
var Protocols = []string{"nfca", "nfcb", "nfcf", "nfcv"}

// Config represents the complete runtime configuration.
type Config struct {
	Loop     LoopConfig                `mapstructure:"loop"`
	Executor ExecutorConfig            `mapstructure:"executor"`
	Decoder  DecoderConfig             `mapstructure:"decoder"`
	Receiver map[string]map[string]any `mapstructure:"receiver"`
	Sim      SimConfig                 `mapstructure:"sim"`
}

// LoopConfig controls the reconciliation loop.
type LoopConfig struct {
	// TickMs is the reconciliation tick interval in milliseconds.
	TickMs int `mapstructure:"tick_ms"`
	// TimeLimitSec is the wall-clock capture budget in seconds (0 = unlimited).
	TimeLimitSec int `mapstructure:"time_limit_sec"`
}

// ExecutorConfig bounds the task worker pool.
type ExecutorConfig struct {
	CoreWorkers int `mapstructure:"core_workers"`
	MaxWorkers  int `mapstructure:"max_workers"`
}

// DecoderConfig shapes the decoder's desired configuration document.
type DecoderConfig struct {
	// Protocols lists enabled protocols. Entries are matched as glob
	// patterns over the protocol set, so "nfca" and "nfc?" both work.
	// A protocol matching no entry is disabled.
	Protocols []string `mapstructure:"protocols"`
	// Debug enables the raw-signal capture artifact (performance impact).
	Debug bool `mapstructure:"debug"`
}

// SimConfig controls the built-in simulated devices.
type SimConfig struct {
	// Device is the identity the simulated receiver reports.
	Device string `mapstructure:"device"`
	// StatusIntervalMs paces the simulated status snapshots.
	StatusIntervalMs int `mapstructure:"status_interval_ms"`
}

// SetDefaults registers defaults so they apply even without a config file.
func SetDefaults() {
	viper.SetDefault("loop.tick_ms", 500)
	viper.SetDefault("loop.time_limit_sec", 0)
	viper.SetDefault("executor.core_workers", 1)
	viper.SetDefault("executor.max_workers", 4)
	viper.SetDefault("decoder.protocols", Protocols)
	viper.SetDefault("decoder.debug", false)
	viper.SetDefault("sim.device", "airspy:0")
	viper.SetDefault("sim.status_interval_ms", 100)
}

// Load unmarshals the current viper state into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Loop.TickMs <= 0 {
		return fmt.Errorf("loop.tick_ms must be positive, got %d", c.Loop.TickMs)
	}
	if c.Loop.TimeLimitSec < 0 {
		return fmt.Errorf("loop.time_limit_sec must not be negative, got %d", c.Loop.TimeLimitSec)
	}
	if c.Executor.MaxWorkers < 1 {
		return fmt.Errorf("executor.max_workers must be at least 1, got %d", c.Executor.MaxWorkers)
	}
	if c.Executor.CoreWorkers > c.Executor.MaxWorkers {
		return fmt.Errorf("executor.core_workers %d exceeds max_workers %d",
			c.Executor.CoreWorkers, c.Executor.MaxWorkers)
	}
	if _, err := ProtocolEnable(c.Decoder.Protocols); err != nil {
		return err
	}
	return nil
}

// Tick returns the reconciliation interval.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Loop.TickMs) * time.Millisecond
}

// TimeLimit returns the capture budget, zero for unlimited.
func (c *Config) TimeLimit() time.Duration {
	return time.Duration(c.Loop.TimeLimitSec) * time.Second
}

// StatusInterval returns the simulated device snapshot pace.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Sim.StatusIntervalMs) * time.Millisecond
}

// DecoderParams builds the decoder's desired configuration document from
// the protocol list and debug flag.
func (c *Config) DecoderParams() (conftree.Tree, error) {
	enabled, err := ProtocolEnable(c.Decoder.Protocols)
	if err != nil {
		return nil, err
	}
	params := conftree.Tree{"debugEnabled": c.Decoder.Debug}
	for _, proto := range Protocols {
		params[proto] = conftree.Tree{"enabled": enabled[proto]}
	}
	return params, nil
}

// ReceiverOverrides converts the receiver section into per-prefix desired
// parameter documents for the device catalog.
func (c *Config) ReceiverOverrides() map[string]conftree.Tree {
	if len(c.Receiver) == 0 {
		return nil
	}
	overrides := make(map[string]conftree.Tree, len(c.Receiver))
	for prefix, params := range c.Receiver {
		tree := make(conftree.Tree, len(params))
		for k, v := range params {
			tree[k] = v
		}
		overrides[prefix] = tree
	}
	return overrides
}

// ProtocolEnable resolves a protocol pattern list into per-protocol enable
// flags. Each entry is a glob pattern; a protocol is enabled when any
// entry matches it. An unparsable pattern or one matching no protocol at
// all is a usage error.
func ProtocolEnable(patterns []string) (map[string]bool, error) {
	enabled := make(map[string]bool, len(Protocols))
	for _, proto := range Protocols {
		enabled[proto] = false
	}

	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: bad protocol pattern %q", errors.ErrUsage, pattern)
		}
		matched := false
		for _, proto := range Protocols {
			if g.Match(proto) {
				enabled[proto] = true
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: unknown protocol %q", errors.ErrUsage, pattern)
		}
	}
	return enabled, nil
}
