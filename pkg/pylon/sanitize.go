// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import (
	"math"

	"github.com/stromdock/pylonlink/pkg/battery"
)

// Per-cell SOC estimation curve: linear between socEmptyCellVolt (0 %) and
// socFullCellVolt (100 %); below socDeadCellVolt the pack is reported empty.
const (
	socEmptyCellVolt = 3.0
	socFullCellVolt  = 3.45
	socDeadCellVolt  = 2.8
)

// currentLimitSentinel marks "no limit / unknown" in some BMS firmwares.
const currentLimitSentinel = 0xFFFF

// SanitizeSOC returns a displayable state of charge in 0.1 % units. A
// reported SOC > 0 passes through; otherwise the value is estimated from the
// per-cell voltage curve, and when that is impossible the configured default
// applies.
func (t Tuning) SanitizeSOC(p *battery.Pack) int {
	if p.PackSOC > 0 {
		return p.PackSOC
	}

	if p.PackVoltage > 0 && p.NumberOfCells > 0 {
		perCell := float64(p.PackVoltage) / 10.0 / float64(p.NumberOfCells)
		estimated := (perCell - socEmptyCellVolt) / (socFullCellVolt - socEmptyCellVolt)
		soc := int(math.Round(math.Min(1.0, math.Max(0.0, estimated)) * 1000))

		if soc > 0 {
			return soc
		}
		if perCell < socDeadCellVolt {
			return 0
		}
	}

	return t.DefaultSOCTenths
}

// SanitizeTemperature returns a displayable temperature in 0.1 degC. Zero
// readings and values outside (-40 degC, 100 degC) are replaced with the
// configured default.
func (t Tuning) SanitizeTemperature(tenths int) int {
	if tenths != 0 && tenths > -400 && tenths < 1000 {
		return tenths
	}
	return t.DefaultTemperatureTenths
}

// ResolveCurrentLimit turns a raw 0.1 A limit into the unsigned wire value,
// amps x10. Absent, non-positive and sentinel limits get the configured
// default; magnitudes above MaxCurrentLimitAmps are clamped. Resolving an
// already-resolved value is a no-op.
func (t Tuning) ResolveCurrentLimit(raw int) uint16 {
	amps := math.Abs(float64(raw)) / 10.0

	if raw == currentLimitSentinel || amps <= 0 {
		amps = t.DefaultCurrentLimitAmps
	}
	if amps > t.MaxCurrentLimitAmps {
		amps = t.MaxCurrentLimitAmps
	}

	encoded := math.Round(amps * 10.0)
	if encoded > 0xFFFF {
		return 0xFFFF
	}
	return uint16(encoded)
}
