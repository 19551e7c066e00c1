// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import "time"

// VoltageScale selects how pack-voltage limits are scaled in the 0x63
// charge/discharge control document. The conventions come from field
// calibration against real inverters and disagree between firmware
// generations, so the choice is explicit rather than baked in.
type VoltageScale int

const (
	// VoltageScaleCentivolt reports limits in 0.01 V units derived
	// directly from the pack's configured limits.
	VoltageScaleCentivolt VoltageScale = iota
	// VoltageScaleEmpirical multiplies the centivolt value by
	// EmpiricalVoltageFactor. Some installations needed this to keep the
	// inverter's charge controller inside the pack's real window.
	VoltageScaleEmpirical
	// VoltageScaleRatedCell derives limits from a rated per-cell voltage
	// times the number of cells in series, ignoring the pack's own limit
	// fields.
	VoltageScaleRatedCell
)

// Tuning collects every protocol constant that field calibration has been
// known to move. Defaults match the latest deployed revision; confirm them
// against the target inverter before shipping.
type Tuning struct {
	// DefaultCurrentLimitAmps substitutes for absent, zero or sentinel
	// current limits so the inverter never sees 0 A.
	DefaultCurrentLimitAmps float64
	// MaxCurrentLimitAmps clamps implausibly large BMS limits.
	MaxCurrentLimitAmps float64

	// DefaultSOCTenths is reported when SOC is unknown and no voltage
	// estimate is possible, in 0.1 %.
	DefaultSOCTenths int
	// DefaultTemperatureTenths substitutes for missing or implausible
	// temperature readings, in 0.1 degC.
	DefaultTemperatureTenths int

	// VoltageScale picks the 0x63 pack-voltage convention.
	VoltageScale VoltageScale
	// EmpiricalVoltageFactor applies under VoltageScaleEmpirical.
	EmpiricalVoltageFactor float64
	// RatedCellChargeMilliVolt and RatedCellDischargeMilliVolt apply
	// under VoltageScaleRatedCell.
	RatedCellChargeMilliVolt    int
	RatedCellDischargeMilliVolt int

	// DefaultChargeVoltage and DefaultDischargeVoltage are the 0x63
	// fallbacks (volts) when the pack reports no usable limits.
	DefaultChargeVoltage    float64
	DefaultDischargeVoltage float64

	// MaxChargeTempC and MinChargeTempC are the fixed temperature limits
	// advertised in the 0x47 document.
	MaxChargeTempC int
	MinChargeTempC int

	// MaxCycles is the fixed cycle-life figure in the 0x61 document.
	MaxCycles uint16

	// WarmupWindow is how long after construction the processor keeps
	// nudging the inverter with unsolicited control-info frames.
	WarmupWindow time.Duration
	// WarmupAddress is the ADR byte on those unsolicited frames.
	WarmupAddress byte
}

// DefaultTuning returns the latest-revision defaults.
func DefaultTuning() Tuning {
	return Tuning{
		DefaultCurrentLimitAmps:     20.0,
		MaxCurrentLimitAmps:         200.0,
		DefaultSOCTenths:            800,
		DefaultTemperatureTenths:    250,
		VoltageScale:                VoltageScaleCentivolt,
		EmpiricalVoltageFactor:      0.3,
		RatedCellChargeMilliVolt:    3450,
		RatedCellDischargeMilliVolt: 3000,
		DefaultChargeVoltage:        57.4,
		DefaultDischargeVoltage:     44.0,
		MaxChargeTempC:              50,
		MinChargeTempC:              -40,
		MaxCycles:                   10000,
		WarmupWindow:                5 * time.Second,
		WarmupAddress:               0x12,
	}
}
