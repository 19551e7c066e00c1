// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stromdock/pylonlink/pkg/pylon"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Serial.Baud != 9600 {
		t.Errorf("baud = %d, want 9600", cfg.Serial.Baud)
	}
	if cfg.Bridge.ReadTimeout != 500*time.Millisecond {
		t.Errorf("read timeout = %v, want 500ms", cfg.Bridge.ReadTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}

	tuning, err := cfg.Tuning()
	if err != nil {
		t.Fatalf("Tuning error: %v", err)
	}
	defaults := pylon.DefaultTuning()
	if tuning != defaults {
		t.Errorf("default tuning = %+v, want %+v", tuning, defaults)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pylonlink.yaml")
	yaml := `
serial:
  port: /dev/ttyUSB1
  baud: 115200
protocol:
  voltage_scale: empirical
  default_current_limit_amps: 25
  warmup_window: 10s
  warmup_address: 3
telemetry:
  snapshot_path: /var/run/bms/pack.json
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyUSB1" || cfg.Serial.Baud != 115200 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.Telemetry.SnapshotPath != "/var/run/bms/pack.json" {
		t.Errorf("snapshot path = %q", cfg.Telemetry.SnapshotPath)
	}

	tuning, err := cfg.Tuning()
	if err != nil {
		t.Fatalf("Tuning error: %v", err)
	}
	if tuning.VoltageScale != pylon.VoltageScaleEmpirical {
		t.Errorf("voltage scale = %v, want empirical", tuning.VoltageScale)
	}
	if tuning.DefaultCurrentLimitAmps != 25 {
		t.Errorf("default current limit = %v, want 25", tuning.DefaultCurrentLimitAmps)
	}
	if tuning.WarmupWindow != 10*time.Second {
		t.Errorf("warmup window = %v, want 10s", tuning.WarmupWindow)
	}
	if tuning.WarmupAddress != 3 {
		t.Errorf("warmup address = %d, want 3", tuning.WarmupAddress)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PYLONLINK_SERIAL_PORT", "/dev/ttyAMA0")
	t.Setenv("PYLONLINK_SERIAL_BAUD", "115200")
	t.Setenv("PYLONLINK_TELEMETRY_SNAPSHOT_PATH", "/run/bms/pack.json")
	t.Setenv("PYLONLINK_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyAMA0" {
		t.Errorf("port = %q, want /dev/ttyAMA0", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("baud = %d, want 115200", cfg.Serial.Baud)
	}
	if cfg.Telemetry.SnapshotPath != "/run/bms/pack.json" {
		t.Errorf("snapshot path = %q", cfg.Telemetry.SnapshotPath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/pylonlink.yaml"); err == nil {
		t.Error("Load succeeded on missing file")
	}
}

func TestTuning_UnknownVoltageScale(t *testing.T) {
	cfg := &Config{}
	cfg.Protocol.VoltageScale = "percent"
	if _, err := cfg.Tuning(); err == nil {
		t.Error("Tuning accepted unknown voltage_scale")
	}
}
