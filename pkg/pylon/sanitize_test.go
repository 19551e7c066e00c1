// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import (
	"testing"

	"github.com/stromdock/pylonlink/pkg/battery"
)

func TestSanitizeSOC(t *testing.T) {
	tuning := DefaultTuning()

	tests := []struct {
		name string
		pack battery.Pack
		want int
	}{
		{
			name: "reported SOC passes through",
			pack: battery.Pack{PackSOC: 755},
			want: 755,
		},
		{
			name: "full pack clamps to 100 percent",
			pack: battery.Pack{PackVoltage: 280, NumberOfCells: 8}, // 3.5 V/cell
			want: 1000,
		},
		{
			name: "dead cells report empty",
			pack: battery.Pack{PackVoltage: 200, NumberOfCells: 8}, // 2.5 V/cell
			want: 0,
		},
		{
			name: "no data falls back to default",
			pack: battery.Pack{},
			want: 800,
		},
		{
			name: "resting voltage between cutoffs uses default",
			pack: battery.Pack{PackVoltage: 236, NumberOfCells: 8}, // 2.95 V/cell
			want: 800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tuning.SanitizeSOC(&tt.pack); got != tt.want {
				t.Errorf("SanitizeSOC = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSanitizeSOC_VoltageEstimateInRange(t *testing.T) {
	tuning := DefaultTuning()

	// 3.2 V per cell on an 8s pack must land strictly inside (0, 1000).
	pack := battery.Pack{PackSOC: 0, PackVoltage: 256, NumberOfCells: 8}
	got := tuning.SanitizeSOC(&pack)
	if got <= 0 || got >= 1000 {
		t.Fatalf("SanitizeSOC = %d, want strictly between 0 and 1000", got)
	}
	// (3.2 - 3.0) / 0.45 of full scale.
	if got != 444 {
		t.Errorf("SanitizeSOC = %d, want 444", got)
	}
}

func TestSanitizeTemperature(t *testing.T) {
	tuning := DefaultTuning()

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"plausible reading passes", 180, 180},
		{"negative reading passes", -150, -150},
		{"zero is treated as missing", 0, 250},
		{"below range", -400, 250},
		{"above range", 1000, 250},
		{"sensor fault value", 2550, 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tuning.SanitizeTemperature(tt.in); got != tt.want {
				t.Errorf("SanitizeTemperature(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveCurrentLimit(t *testing.T) {
	tuning := DefaultTuning()

	tests := []struct {
		name string
		raw  int
		want uint16
	}{
		{"zero gets default", 0, 200},
		{"negative magnitude kept", -1000, 1000},
		{"sentinel gets default", 0xFFFF, 200},
		{"plausible passes", 1000, 1000},
		{"clamped to 200 A", 3000, 2000},
		{"exactly at clamp", 2000, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tuning.ResolveCurrentLimit(tt.raw); got != tt.want {
				t.Errorf("ResolveCurrentLimit(%d) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveCurrentLimit_Idempotent(t *testing.T) {
	tuning := DefaultTuning()

	for _, raw := range []int{1, 150, 200, 1000, 2000} {
		once := tuning.ResolveCurrentLimit(raw)
		twice := tuning.ResolveCurrentLimit(int(once))
		if once != twice {
			t.Errorf("ResolveCurrentLimit not idempotent: %d -> %d -> %d", raw, once, twice)
		}
	}
}
