// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

// Package battery defines the aggregated battery-pack snapshot consumed by the
// Pylontech protocol engine.
//
// A Pack is produced by an external aggregator (one snapshot for the whole
// system plus one per physical module) and is treated as read-only by
// everything in this repository. Field units follow the BMS conventions:
// voltages in 0.1 V, currents in 0.1 A (positive = charge), SOC/SOH in 0.1 %,
// temperatures in 0.1 degC, cell voltages in mV, capacities in mAh.
package battery

// Pack is one aggregated battery-pack snapshot.
type Pack struct {
	PackVoltage int `json:"packVoltage"` // 0.1 V
	PackCurrent int `json:"packCurrent"` // 0.1 A, signed, positive = charge
	PackSOC     int `json:"packSOC"`     // 0.1 %
	PackSOH     int `json:"packSOH"`     // 0.1 %

	MaxPackVoltageLimit     int `json:"maxPackVoltageLimit"`     // 0.1 V
	MinPackVoltageLimit     int `json:"minPackVoltageLimit"`     // 0.1 V
	MaxPackChargeCurrent    int `json:"maxPackChargeCurrent"`    // 0.1 A
	MaxPackDischargeCurrent int `json:"maxPackDischargeCurrent"` // 0.1 A

	MaxCellVoltageLimit int `json:"maxCellVoltageLimit"` // mV
	MinCellVoltageLimit int `json:"minCellVoltageLimit"` // mV

	NumberOfCells int   `json:"numberOfCells"`
	CellVmV       []int `json:"cellVmV"` // mV, indexed by cell number

	NumOfTempSensors int   `json:"numOfTempSensors"`
	CellTemperature  []int `json:"cellTemperature"` // 0.1 degC, indexed by sensor

	MaxCellmV   int `json:"maxCellmV"`
	MaxCellVNum int `json:"maxCellVNum"`
	MinCellmV   int `json:"minCellmV"`
	MinCellVNum int `json:"minCellVNum"`

	TempMax        int `json:"tempMax"`     // 0.1 degC
	TempMin        int `json:"tempMin"`     // 0.1 degC
	TempAverage    int `json:"tempAverage"` // 0.1 degC
	TempMaxCellNum int `json:"tempMaxCellNum"`
	TempMinCellNum int `json:"tempMinCellNum"`

	ChargeMOSState    bool `json:"chargeMOSState"`
	DischargeMOSState bool `json:"dischargeMOSState"`
	ForceCharge       bool `json:"forceCharge"`

	BMSCycles            int `json:"bmsCycles"`
	RatedCapacitymAh     int `json:"ratedCapacitymAh"`
	RemainingCapacitymAh int `json:"remainingCapacitymAh"`

	ManufacturerCode string `json:"manufacturerCode"`
	SoftwareVersion  string `json:"softwareVersion"`

	Alarms AlarmMap `json:"alarms,omitempty"`
}

// AlarmLevelOf returns the severity recorded for the given alarm kind,
// LevelNone when the kind was never set or the map is nil.
func (p *Pack) AlarmLevelOf(a Alarm) AlarmLevel {
	if p == nil || p.Alarms == nil {
		return LevelNone
	}
	return p.Alarms[a]
}

// SetAlarm records the severity for an alarm kind, allocating the map on
// first use.
func (p *Pack) SetAlarm(a Alarm, level AlarmLevel) {
	if p.Alarms == nil {
		p.Alarms = make(AlarmMap)
	}
	p.Alarms[a] = level
}

// CellVoltage returns the voltage of the given cell in mV, 0 when the index
// is outside the populated range.
func (p *Pack) CellVoltage(cell int) int {
	if cell < 0 || cell >= len(p.CellVmV) {
		return 0
	}
	return p.CellVmV[cell]
}

// SensorTemperature returns the reading of the given temperature sensor in
// 0.1 degC, 0 when the index is outside the populated range.
func (p *Pack) SensorTemperature(sensor int) int {
	if sensor < 0 || sensor >= len(p.CellTemperature) {
		return 0
	}
	return p.CellTemperature[sensor]
}
