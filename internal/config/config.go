// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

// Package config loads the bridge configuration from a YAML file with
// PYLONLINK_-prefixed environment overrides. Every knob has a working
// default; a missing config file only errors when one was named explicitly.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stromdock/pylonlink/pkg/pylon"
)

type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

type BridgeConfig struct {
	// ReadTimeout bounds one polling cycle: a cycle with no complete
	// request frame inside this window counts as "no request".
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ProtocolConfig struct {
	// VoltageScale selects the pack-voltage wire convention:
	// "centivolt", "empirical" or "rated_cell".
	VoltageScale            string        `mapstructure:"voltage_scale"`
	DefaultCurrentLimitAmps float64       `mapstructure:"default_current_limit_amps"`
	MaxCurrentLimitAmps     float64       `mapstructure:"max_current_limit_amps"`
	WarmupWindow            time.Duration `mapstructure:"warmup_window"`
	WarmupAddress           int           `mapstructure:"warmup_address"`
}

type TelemetryConfig struct {
	// SnapshotPath points at the aggregator's JSON snapshot dump.
	SnapshotPath string `mapstructure:"snapshot_path"`
	// ModulePaths optionally lists per-module snapshot dumps.
	ModulePaths []string `mapstructure:"module_paths"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the configuration. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := pylon.DefaultTuning()
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 9600)
	v.SetDefault("bridge.read_timeout", "500ms")
	v.SetDefault("bridge.shutdown_timeout", "5s")
	v.SetDefault("protocol.voltage_scale", "centivolt")
	v.SetDefault("protocol.default_current_limit_amps", defaults.DefaultCurrentLimitAmps)
	v.SetDefault("protocol.max_current_limit_amps", defaults.MaxCurrentLimitAmps)
	v.SetDefault("protocol.warmup_window", defaults.WarmupWindow.String())
	v.SetDefault("protocol.warmup_address", int(defaults.WarmupAddress))
	v.SetDefault("telemetry.snapshot_path", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("PYLONLINK")
	// Nested keys map to underscored env names: serial.port becomes
	// PYLONLINK_SERIAL_PORT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Tuning maps the protocol section onto the engine's tuning parameters,
// starting from the built-in defaults.
func (c *Config) Tuning() (pylon.Tuning, error) {
	t := pylon.DefaultTuning()

	switch c.Protocol.VoltageScale {
	case "", "centivolt":
		t.VoltageScale = pylon.VoltageScaleCentivolt
	case "empirical":
		t.VoltageScale = pylon.VoltageScaleEmpirical
	case "rated_cell":
		t.VoltageScale = pylon.VoltageScaleRatedCell
	default:
		return t, fmt.Errorf("unknown voltage_scale %q", c.Protocol.VoltageScale)
	}

	if c.Protocol.DefaultCurrentLimitAmps > 0 {
		t.DefaultCurrentLimitAmps = c.Protocol.DefaultCurrentLimitAmps
	}
	if c.Protocol.MaxCurrentLimitAmps > 0 {
		t.MaxCurrentLimitAmps = c.Protocol.MaxCurrentLimitAmps
	}
	if c.Protocol.WarmupWindow > 0 {
		t.WarmupWindow = c.Protocol.WarmupWindow
	}
	if c.Protocol.WarmupAddress > 0 && c.Protocol.WarmupAddress <= 0xFF {
		t.WarmupAddress = byte(c.Protocol.WarmupAddress)
	}

	return t, nil
}
