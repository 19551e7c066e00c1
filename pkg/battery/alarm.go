// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package battery

import (
	"encoding/json"
	"fmt"
)

// Alarm identifies a monitored fault condition on a pack.
type Alarm int

const (
	AlarmPackVoltageHigh Alarm = iota
	AlarmPackVoltageLow
	AlarmCellVoltageHigh
	AlarmCellVoltageLow
	AlarmCellTemperatureHigh
	AlarmCellTemperatureLow
	AlarmCellVoltageDifferenceHigh
	AlarmTemperatureSensorDifferenceHigh
	AlarmChargeCurrentHigh
	AlarmDischargeCurrentHigh
	AlarmFailureCommunicationInternal
	AlarmFailureOther
)

// AlarmLevel is the severity the BMS assigned to an alarm condition.
type AlarmLevel int

const (
	LevelNone AlarmLevel = iota
	LevelWarning
	LevelAlarm
)

// String returns the human-readable name for an alarm kind.
func (a Alarm) String() string {
	switch a {
	case AlarmPackVoltageHigh:
		return "PACK_VOLTAGE_HIGH"
	case AlarmPackVoltageLow:
		return "PACK_VOLTAGE_LOW"
	case AlarmCellVoltageHigh:
		return "CELL_VOLTAGE_HIGH"
	case AlarmCellVoltageLow:
		return "CELL_VOLTAGE_LOW"
	case AlarmCellTemperatureHigh:
		return "CELL_TEMPERATURE_HIGH"
	case AlarmCellTemperatureLow:
		return "CELL_TEMPERATURE_LOW"
	case AlarmCellVoltageDifferenceHigh:
		return "CELL_VOLTAGE_DIFFERENCE_HIGH"
	case AlarmTemperatureSensorDifferenceHigh:
		return "TEMPERATURE_SENSOR_DIFFERENCE_HIGH"
	case AlarmChargeCurrentHigh:
		return "CHARGE_CURRENT_HIGH"
	case AlarmDischargeCurrentHigh:
		return "DISCHARGE_CURRENT_HIGH"
	case AlarmFailureCommunicationInternal:
		return "FAILURE_COMMUNICATION_INTERNAL"
	case AlarmFailureOther:
		return "FAILURE_OTHER"
	default:
		return "UNKNOWN"
	}
}

// String returns the human-readable name for an alarm level.
func (l AlarmLevel) String() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelWarning:
		return "WARNING"
	case LevelAlarm:
		return "ALARM"
	default:
		return "UNKNOWN"
	}
}

// alarmNames maps the aggregator's JSON alarm names back onto the kinds.
var alarmNames = func() map[string]Alarm {
	m := make(map[string]Alarm)
	for a := AlarmPackVoltageHigh; a <= AlarmFailureOther; a++ {
		m[a.String()] = a
	}
	return m
}()

// AlarmFromString parses an alarm kind name as written by Alarm.String.
func AlarmFromString(name string) (Alarm, error) {
	a, ok := alarmNames[name]
	if !ok {
		return 0, fmt.Errorf("battery: unknown alarm kind %q", name)
	}
	return a, nil
}

// AlarmLevelFromString parses a severity name as written by
// AlarmLevel.String.
func AlarmLevelFromString(name string) (AlarmLevel, error) {
	switch name {
	case "NONE":
		return LevelNone, nil
	case "WARNING":
		return LevelWarning, nil
	case "ALARM":
		return LevelAlarm, nil
	default:
		return 0, fmt.Errorf("battery: unknown alarm level %q", name)
	}
}

// AlarmMap is the severity recorded per alarm kind. On the wire it is a JSON
// object keyed by alarm name with level names as values, matching the
// aggregator's snapshot dump.
type AlarmMap map[Alarm]AlarmLevel

func (m AlarmMap) MarshalJSON() ([]byte, error) {
	named := make(map[string]string, len(m))
	for a, l := range m {
		named[a.String()] = l.String()
	}
	return json.Marshal(named)
}

func (m *AlarmMap) UnmarshalJSON(data []byte) error {
	var named map[string]string
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	out := make(AlarmMap, len(named))
	for name, level := range named {
		a, err := AlarmFromString(name)
		if err != nil {
			return err
		}
		l, err := AlarmLevelFromString(level)
		if err != nil {
			return err
		}
		out[a] = l
	}
	*m = out
	return nil
}
