// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import (
	"fmt"
	"math"

	"github.com/stromdock/pylonlink/pkg/battery"
)

// Encoder builds the binary payloads for every information document. All
// encoders are pure functions of the snapshot(s); the frame builder does the
// ASCII-hex expansion afterwards.
type Encoder struct {
	tuning Tuning
}

// NewEncoder creates an Encoder with the given tuning.
func NewEncoder(t Tuning) *Encoder {
	return &Encoder{tuning: t}
}

// Tuning returns the encoder's active tuning.
func (e *Encoder) Tuning() Tuning {
	return e.tuning
}

// ProtocolVersion builds the 0x4F document: the software version narrowed to
// one byte.
func (e *Encoder) ProtocolVersion(p *battery.Pack) []byte {
	return PadString(p.SoftwareVersion, 1)
}

// ManufacturerInfo builds the 0x51 document: brand, version byte,
// manufacturer code.
func (e *Encoder) ManufacturerInfo(p *battery.Pack) []byte {
	payload := make([]byte, 0, 31)
	payload = append(payload, PadString("PYLON", 10)...)
	payload = append(payload, PadString(p.SoftwareVersion, 1)...)
	payload = append(payload, PadString(p.ManufacturerCode, 20)...)
	return payload
}

// ChargeManagementInfo builds the 0x92 document: pack-voltage limits in mV,
// resolved current limits and the MOSFET/force-charge status byte.
func (e *Encoder) ChargeManagementInfo(p *battery.Pack) []byte {
	payload := make([]byte, 0, 9)
	payload = putU16(payload, e.packLimitMilliVolt(p.MaxPackVoltageLimit))
	payload = putU16(payload, e.packLimitMilliVolt(p.MinPackVoltageLimit))
	payload = putU16(payload, e.tuning.ResolveCurrentLimit(p.MaxPackChargeCurrent))
	payload = putU16(payload, e.tuning.ResolveCurrentLimit(p.MaxPackDischargeCurrent))
	payload = append(payload, statusByte(p))
	return payload
}

// CellInfo builds the 0x42 document: per-cell voltages, per-sensor
// temperatures in 0.1 K, pack current/voltage and capacity figures.
// Temperatures pass through unsanitized here; the inverter displays this
// document raw and a substituted reading would mask a dead sensor.
func (e *Encoder) CellInfo(p *battery.Pack) []byte {
	payload := make([]byte, 0, 2+2*(p.NumberOfCells+p.NumOfTempSensors)+16)

	payload = append(payload, byte(p.NumberOfCells))
	for cell := 0; cell < p.NumberOfCells; cell++ {
		payload = putU16(payload, uint16(p.CellVoltage(cell)))
	}

	payload = append(payload, byte(p.NumOfTempSensors))
	for sensor := 0; sensor < p.NumOfTempSensors; sensor++ {
		payload = putU16(payload, uint16(p.SensorTemperature(sensor)+Kelvin0CTenths))
	}

	payload = putU16(payload, uint16(int16(p.PackCurrent)))
	payload = putU16(payload, uint16(p.PackVoltage))
	payload = putU16(payload, uint16(p.RemainingCapacitymAh/100))
	payload = append(payload, capacityClass(p.RatedCapacitymAh))
	payload = putU16(payload, uint16(p.RatedCapacitymAh/100))
	payload = append(payload, byte(p.BMSCycles))
	payload = append(payload, 0, 0, 0, 0, 0, 0) // legacy reserved block

	return payload
}

// VoltageCurrentLimits builds the 0x47 document: cell and pack voltage
// windows, fixed temperature windows and resolved current limits.
func (e *Encoder) VoltageCurrentLimits(p *battery.Pack) []byte {
	maxChargeTemp := uint16(e.tuning.MaxChargeTempC*10 + Kelvin0CTenths)
	minChargeTemp := uint16(e.tuning.MinChargeTempC*10 + Kelvin0CTenths)

	payload := make([]byte, 0, 24)
	payload = putU16(payload, uint16(p.MaxCellVoltageLimit))
	payload = putU16(payload, uint16(p.MinCellVoltageLimit)) // warning
	payload = putU16(payload, uint16(p.MinCellVoltageLimit)) // protection
	payload = putU16(payload, maxChargeTemp)
	payload = putU16(payload, minChargeTemp)
	payload = putU16(payload, e.tuning.ResolveCurrentLimit(p.MaxPackChargeCurrent))
	payload = putU16(payload, e.packLimitMilliVolt(p.MaxPackVoltageLimit))
	payload = putU16(payload, e.packLimitMilliVolt(p.MinPackVoltageLimit)) // warning
	payload = putU16(payload, e.packLimitMilliVolt(p.MinPackVoltageLimit)) // protection
	payload = putU16(payload, maxChargeTemp)
	payload = putU16(payload, minChargeTemp)
	payload = putU16(payload, e.tuning.ResolveCurrentLimit(p.MaxPackDischargeCurrent))
	return payload
}

// SystemInfo builds the 0x60 document: identity strings plus one synthesized
// serial number per cell.
func (e *Encoder) SystemInfo(p *battery.Pack) []byte {
	payload := make([]byte, 0, 33+16*p.NumberOfCells)
	payload = append(payload, PadString("Battery", 10)...)
	payload = append(payload, PadString(p.ManufacturerCode, 20)...)
	payload = append(payload, PadString(p.SoftwareVersion, 2)...)
	payload = append(payload, byte(p.NumberOfCells))
	for cell := 0; cell < p.NumberOfCells; cell++ {
		payload = append(payload, PadString(fmt.Sprintf("Battery S/N #%d", cell), 16)...)
	}
	return payload
}

// BatteryInfo builds the 0x61 document: pack summary, cell-voltage extremes
// with the module index owning each, and three temperature blocks. The
// MOSFET and BMS temperature blocks are proxied from the cell sensors; this
// hardware has no dedicated probes there.
func (e *Encoder) BatteryInfo(p *battery.Pack, modules []*battery.Pack) []byte {
	payload := make([]byte, 0, 49)

	payload = putU16(payload, clampU16(p.PackVoltage*100))          // mV
	payload = putU16(payload, uint16(int16(p.PackCurrent*10)))      // 0.01 A
	payload = append(payload, byte(clampPercent(e.tuning.SanitizeSOC(p)/10)))
	payload = putU16(payload, uint16(p.BMSCycles))
	payload = putU16(payload, e.tuning.MaxCycles)

	sohAvg := sanitizePercent(p.PackSOH / 10)
	payload = append(payload, byte(sohAvg), byte(minModuleSOH(modules, sohAvg)))

	payload = putU16(payload, uint16(p.MaxCellmV))
	payload = putU16(payload, uint16(moduleWithMaxCell(p, modules)))
	payload = putU16(payload, uint16(p.MinCellmV))
	payload = putU16(payload, uint16(moduleWithMinCell(p, modules)))

	avgK := uint16(e.tuning.SanitizeTemperature(p.TempAverage) + Kelvin0CTenths)
	maxK := uint16(e.tuning.SanitizeTemperature(p.TempMax) + Kelvin0CTenths)
	minK := uint16(e.tuning.SanitizeTemperature(p.TempMin) + Kelvin0CTenths)
	maxIdx := uint16(moduleWithMaxTemp(p, modules))
	minIdx := uint16(moduleWithMinTemp(p, modules))

	// Cell, MOSFET and BMS temperature blocks share one shape:
	// avg, max, max-module, min, min-module.
	for i := 0; i < 3; i++ {
		payload = putU16(payload, avgK)
		payload = putU16(payload, maxK)
		payload = putU16(payload, maxIdx)
		payload = putU16(payload, minK)
		payload = putU16(payload, minIdx)
	}

	return payload
}

// Alarms builds the 0x62 document: four bitfield bytes, two for warnings and
// two for protections, over a fixed alarm ordering.
func (e *Encoder) Alarms(p *battery.Pack) []byte {
	warn := func(a battery.Alarm) bool { return p.AlarmLevelOf(a) == battery.LevelWarning }
	prot := func(a battery.Alarm) bool { return p.AlarmLevelOf(a) == battery.LevelAlarm }

	var warn1 byte
	warn1 = setBit(warn1, 7, warn(battery.AlarmPackVoltageHigh))
	warn1 = setBit(warn1, 6, warn(battery.AlarmPackVoltageLow))
	warn1 = setBit(warn1, 5, warn(battery.AlarmCellVoltageHigh))
	warn1 = setBit(warn1, 4, warn(battery.AlarmCellVoltageLow))
	warn1 = setBit(warn1, 3, warn(battery.AlarmCellTemperatureHigh))
	warn1 = setBit(warn1, 2, warn(battery.AlarmCellTemperatureLow))
	warn1 = setBit(warn1, 0, warn(battery.AlarmCellVoltageDifferenceHigh))

	var warn2 byte
	warn2 = setBit(warn2, 7, warn(battery.AlarmTemperatureSensorDifferenceHigh))
	warn2 = setBit(warn2, 6, warn(battery.AlarmChargeCurrentHigh))
	warn2 = setBit(warn2, 5, warn(battery.AlarmDischargeCurrentHigh))
	warn2 = setBit(warn2, 4, warn(battery.AlarmFailureCommunicationInternal))

	var prot1 byte
	prot1 = setBit(prot1, 7, prot(battery.AlarmPackVoltageHigh))
	prot1 = setBit(prot1, 6, prot(battery.AlarmPackVoltageLow))
	prot1 = setBit(prot1, 5, prot(battery.AlarmCellVoltageHigh))
	prot1 = setBit(prot1, 4, prot(battery.AlarmCellVoltageLow))
	prot1 = setBit(prot1, 3, prot(battery.AlarmCellTemperatureHigh))
	prot1 = setBit(prot1, 2, prot(battery.AlarmCellTemperatureLow))

	var prot2 byte
	prot2 = setBit(prot2, 6, prot(battery.AlarmChargeCurrentHigh))
	prot2 = setBit(prot2, 5, prot(battery.AlarmDischargeCurrentHigh))
	prot2 = setBit(prot2, 3, prot(battery.AlarmFailureOther))

	return []byte{warn1, warn2, prot1, prot2}
}

// ChargeDischargeControl builds the 0x63 document: the charge/discharge
// voltage window in 0.01 V, resolved current limits and the status byte.
func (e *Encoder) ChargeDischargeControl(p *battery.Pack) []byte {
	payload := make([]byte, 0, 9)
	payload = putU16(payload, e.chargeVoltageCentivolt(p))
	payload = putU16(payload, e.dischargeVoltageCentivolt(p))
	payload = putU16(payload, e.tuning.ResolveCurrentLimit(p.MaxPackChargeCurrent))
	payload = putU16(payload, e.tuning.ResolveCurrentLimit(p.MaxPackDischargeCurrent))
	payload = append(payload, statusByte(p))
	return payload
}

// packLimitMilliVolt converts a 0.1 V pack limit to the mV wire value used
// by 0x92 and 0x47, honoring the empirical scale when selected.
func (e *Encoder) packLimitMilliVolt(tenths int) uint16 {
	v := float64(tenths) * 100
	if e.tuning.VoltageScale == VoltageScaleEmpirical {
		v *= e.tuning.EmpiricalVoltageFactor
	}
	return clampU16(int(math.Round(v)))
}

// chargeVoltageCentivolt resolves the 0x63 max-charge voltage in 0.01 V.
func (e *Encoder) chargeVoltageCentivolt(p *battery.Pack) uint16 {
	if e.tuning.VoltageScale == VoltageScaleRatedCell && p.NumberOfCells > 0 {
		return clampU16(e.tuning.RatedCellChargeMilliVolt * p.NumberOfCells / 10)
	}

	volts := float64(p.MaxPackVoltageLimit) / 10.0
	if volts <= 0 {
		volts = e.tuning.DefaultChargeVoltage
	}
	cv := volts * 100
	if e.tuning.VoltageScale == VoltageScaleEmpirical {
		cv *= e.tuning.EmpiricalVoltageFactor
	}
	return clampU16(int(math.Round(cv)))
}

// dischargeVoltageCentivolt resolves the 0x63 min-discharge voltage in
// 0.01 V.
func (e *Encoder) dischargeVoltageCentivolt(p *battery.Pack) uint16 {
	if e.tuning.VoltageScale == VoltageScaleRatedCell && p.NumberOfCells > 0 {
		return clampU16(e.tuning.RatedCellDischargeMilliVolt * p.NumberOfCells / 10)
	}

	volts := float64(p.MinPackVoltageLimit) / 10.0
	if volts <= 0 {
		volts = e.tuning.DefaultDischargeVoltage
	}
	cv := volts * 100
	if e.tuning.VoltageScale == VoltageScaleEmpirical {
		cv *= e.tuning.EmpiricalVoltageFactor
	}
	return clampU16(int(math.Round(cv)))
}

// statusByte packs the MOSFET and force-charge flags.
func statusByte(p *battery.Pack) byte {
	var b byte
	b = setBit(b, statusBitChargeMOS, p.ChargeMOSState)
	b = setBit(b, statusBitDischargeMOS, p.DischargeMOSState)
	b = setBit(b, statusBitForceCharge, p.ForceCharge)
	return b
}

// capacityClass distinguishes the large-capacity document variant: packs
// above 65 Ah report class 4, smaller packs class 2.
func capacityClass(ratedCapacitymAh int) byte {
	if ratedCapacitymAh/1000 > 65 {
		return 4
	}
	return 2
}

// sanitizePercent maps out-of-range SOH percentages to the healthy default.
func sanitizePercent(pct int) int {
	if pct <= 0 || pct > 100 {
		return 100
	}
	return pct
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func clampU16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

func putU16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func setBit(b byte, pos int, on bool) byte {
	if on {
		return b | 1<<pos
	}
	return b
}

// minModuleSOH returns the lowest sanitized module SOH percentage, falling
// back to the aggregate figure when no modules are known.
func minModuleSOH(modules []*battery.Pack, aggregate int) int {
	min := aggregate
	for _, m := range modules {
		if soh := sanitizePercent(m.PackSOH / 10); soh < min {
			min = soh
		}
	}
	return min
}

// The module-extreme scans answer "which physical module holds the pack's
// reported global extreme". First match wins; when no module matches the
// aggregate (stale snapshots, ties already consumed) index 0 is reported.

func moduleWithMaxCell(p *battery.Pack, modules []*battery.Pack) int {
	for i, m := range modules {
		if m.MaxCellmV == p.MaxCellmV {
			return i
		}
	}
	return 0
}

func moduleWithMinCell(p *battery.Pack, modules []*battery.Pack) int {
	for i, m := range modules {
		if m.MinCellmV == p.MinCellmV {
			return i
		}
	}
	return 0
}

func moduleWithMaxTemp(p *battery.Pack, modules []*battery.Pack) int {
	for i, m := range modules {
		if m.TempMax == p.TempMax {
			return i
		}
	}
	return 0
}

func moduleWithMinTemp(p *battery.Pack, modules []*battery.Pack) int {
	for i, m := range modules {
		if m.TempMin == p.TempMin {
			return i
		}
	}
	return 0
}
