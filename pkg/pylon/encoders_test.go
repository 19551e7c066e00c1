// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import (
	"bytes"
	"testing"

	"github.com/stromdock/pylonlink/pkg/battery"
)

// testPack returns a healthy 4s snapshot with known values.
func testPack() *battery.Pack {
	return &battery.Pack{
		PackVoltage: 532, // 53.2 V
		PackCurrent: -25, // 2.5 A discharge
		PackSOC:     850,
		PackSOH:     990,

		MaxPackVoltageLimit:     576,
		MinPackVoltageLimit:     448,
		MaxPackChargeCurrent:    1000,
		MaxPackDischargeCurrent: 0xFFFF, // sentinel: BMS reports no limit

		MaxCellVoltageLimit: 3600,
		MinCellVoltageLimit: 2900,

		NumberOfCells: 4,
		CellVmV:       []int{3320, 3330, 3310, 3325},

		NumOfTempSensors: 2,
		CellTemperature:  []int{180, 210},

		MaxCellmV:   3330,
		MaxCellVNum: 1,
		MinCellmV:   3310,
		MinCellVNum: 2,

		TempMax:     210,
		TempMin:     180,
		TempAverage: 195,

		ChargeMOSState:    true,
		DischargeMOSState: true,

		BMSCycles:            12,
		RatedCapacitymAh:     100000,
		RemainingCapacitymAh: 85000,

		ManufacturerCode: "STROMDOCK",
		SoftwareVersion:  "NW",
	}
}

func u16At(t *testing.T, payload []byte, offset int) uint16 {
	t.Helper()
	if offset+2 > len(payload) {
		t.Fatalf("offset %d out of range for %d-byte payload", offset, len(payload))
	}
	return uint16(payload[offset])<<8 | uint16(payload[offset+1])
}

func TestProtocolVersion(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.ProtocolVersion(testPack())
	if !bytes.Equal(got, []byte{'N'}) {
		t.Errorf("payload = %v, want ['N']", got)
	}
}

func TestManufacturerInfo(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.ManufacturerInfo(testPack())

	if len(got) != 31 {
		t.Fatalf("payload length = %d, want 31", len(got))
	}
	if !bytes.Equal(got[:10], []byte{'P', 'Y', 'L', 'O', 'N', 0, 0, 0, 0, 0}) {
		t.Errorf("brand field = %v", got[:10])
	}
	if got[10] != 'N' {
		t.Errorf("version byte = 0x%02X, want 'N'", got[10])
	}
	if !bytes.HasPrefix(got[11:], []byte("STROMDOCK")) {
		t.Errorf("manufacturer field = %q", got[11:])
	}
}

func TestChargeManagementInfo(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.ChargeManagementInfo(testPack())

	if len(got) != 9 {
		t.Fatalf("payload length = %d, want 9", len(got))
	}
	if v := u16At(t, got, 0); v != 57600 {
		t.Errorf("max voltage = %d mV, want 57600", v)
	}
	if v := u16At(t, got, 2); v != 44800 {
		t.Errorf("min voltage = %d mV, want 44800", v)
	}
	if v := u16At(t, got, 4); v != 1000 {
		t.Errorf("charge limit = %d, want 1000", v)
	}
	// The sentinel discharge limit resolves to the 20 A default.
	if v := u16At(t, got, 6); v != 200 {
		t.Errorf("discharge limit = %d, want 200", v)
	}
	if got[8] != 0xC0 {
		t.Errorf("status byte = 0x%02X, want 0xC0", got[8])
	}
}

func TestCellInfo(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	pack := testPack()
	got := enc.CellInfo(pack)

	// count + 4 cells + count + 2 sensors + current + voltage + remaining
	// + class + rated + cycles + 6 reserved
	want := 1 + 8 + 1 + 4 + 2 + 2 + 2 + 1 + 2 + 1 + 6
	if len(got) != want {
		t.Fatalf("payload length = %d, want %d", len(got), want)
	}

	if got[0] != 4 {
		t.Errorf("cell count = %d, want 4", got[0])
	}
	if v := u16At(t, got, 1); v != 3320 {
		t.Errorf("cell 0 = %d mV, want 3320", v)
	}
	if got[9] != 2 {
		t.Errorf("sensor count = %d, want 2", got[9])
	}
	// 18.0 degC -> 2911 in 0.1 K.
	if v := u16At(t, got, 10); v != 2911 {
		t.Errorf("sensor 0 = %d, want 2911", v)
	}
	// Discharge current is negative on the wire.
	if v := u16At(t, got, 14); v != 0xFFE7 {
		t.Errorf("pack current = 0x%04X, want 0xFFE7", v)
	}
	if v := u16At(t, got, 16); v != 532 {
		t.Errorf("pack voltage = %d, want 532", v)
	}
	if v := u16At(t, got, 18); v != 850 {
		t.Errorf("remaining capacity = %d, want 850", v)
	}
	if got[20] != 4 {
		t.Errorf("capacity class = %d, want 4", got[20])
	}
	if v := u16At(t, got, 21); v != 1000 {
		t.Errorf("rated capacity = %d, want 1000", v)
	}
	if got[23] != 12 {
		t.Errorf("cycle count = %d, want 12", got[23])
	}
	if !bytes.Equal(got[24:], make([]byte, 6)) {
		t.Errorf("reserved block = %v, want zeros", got[24:])
	}
}

func TestCapacityClass(t *testing.T) {
	if c := capacityClass(50000); c != 2 {
		t.Errorf("50 Ah class = %d, want 2", c)
	}
	if c := capacityClass(280000); c != 4 {
		t.Errorf("280 Ah class = %d, want 4", c)
	}
}

func TestVoltageCurrentLimits(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.VoltageCurrentLimits(testPack())

	if len(got) != 24 {
		t.Fatalf("payload length = %d, want 24", len(got))
	}
	if v := u16At(t, got, 0); v != 3600 {
		t.Errorf("max cell limit = %d, want 3600", v)
	}
	if v := u16At(t, got, 2); v != 2900 {
		t.Errorf("min cell warning = %d, want 2900", v)
	}
	if v := u16At(t, got, 4); v != 2900 {
		t.Errorf("min cell protection = %d, want 2900", v)
	}
	// 50 degC and -40 degC in 0.1 K.
	if v := u16At(t, got, 6); v != 3231 {
		t.Errorf("max charge temp = %d, want 3231", v)
	}
	if v := u16At(t, got, 8); v != 2331 {
		t.Errorf("min charge temp = %d, want 2331", v)
	}
	if v := u16At(t, got, 10); v != 1000 {
		t.Errorf("charge limit = %d, want 1000", v)
	}
	if v := u16At(t, got, 12); v != 57600 {
		t.Errorf("max pack voltage = %d, want 57600", v)
	}
	if v := u16At(t, got, 22); v != 200 {
		t.Errorf("discharge limit = %d, want 200", v)
	}
}

func TestSystemInfo(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.SystemInfo(testPack())

	want := 10 + 20 + 2 + 1 + 4*16
	if len(got) != want {
		t.Fatalf("payload length = %d, want %d", len(got), want)
	}
	if !bytes.HasPrefix(got, []byte("Battery")) {
		t.Errorf("identity field = %q", got[:10])
	}
	if got[32] != 4 {
		t.Errorf("cell count = %d, want 4", got[32])
	}
	for cell := 0; cell < 4; cell++ {
		serial := got[33+cell*16 : 33+(cell+1)*16]
		if !bytes.HasPrefix(serial, []byte("Battery S/N #")) {
			t.Errorf("serial %d = %q", cell, serial)
		}
	}
}

func TestBatteryInfo(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	pack := testPack()

	// Module 1 owns the max cell, module 2 the min cell, module 0 both
	// temperature extremes.
	modules := []*battery.Pack{
		{MaxCellmV: 3300, MinCellmV: 3290, TempMax: 210, TempMin: 180, PackSOH: 970},
		{MaxCellmV: 3330, MinCellmV: 3315, TempMax: 205, TempMin: 185, PackSOH: 990},
		{MaxCellmV: 3310, MinCellmV: 3310, TempMax: 200, TempMin: 190, PackSOH: 980},
	}

	got := enc.BatteryInfo(pack, modules)
	if len(got) != 49 {
		t.Fatalf("payload length = %d, want 49", len(got))
	}

	if v := u16At(t, got, 0); v != 53200 {
		t.Errorf("pack voltage = %d mV, want 53200", v)
	}
	if v := u16At(t, got, 2); v != 0xFF06 {
		t.Errorf("pack current = 0x%04X, want 0xFF06 (-2.50 A)", v)
	}
	if got[4] != 85 {
		t.Errorf("SOC = %d %%, want 85", got[4])
	}
	if v := u16At(t, got, 5); v != 12 {
		t.Errorf("cycles = %d, want 12", v)
	}
	if v := u16At(t, got, 7); v != 10000 {
		t.Errorf("max cycles = %d, want 10000", v)
	}
	if got[9] != 99 {
		t.Errorf("SOH avg = %d, want 99", got[9])
	}
	if got[10] != 97 {
		t.Errorf("SOH min = %d, want 97", got[10])
	}
	if v := u16At(t, got, 11); v != 3330 {
		t.Errorf("max cell = %d mV, want 3330", v)
	}
	if v := u16At(t, got, 13); v != 1 {
		t.Errorf("max cell module = %d, want 1", v)
	}
	if v := u16At(t, got, 15); v != 3310 {
		t.Errorf("min cell = %d mV, want 3310", v)
	}
	if v := u16At(t, got, 17); v != 2 {
		t.Errorf("min cell module = %d, want 2", v)
	}

	// Three identical temperature blocks: avg, max, max-module, min,
	// min-module.
	for block := 0; block < 3; block++ {
		base := 19 + block*10
		if v := u16At(t, got, base); v != 195+2731 {
			t.Errorf("block %d avg = %d, want %d", block, v, 195+2731)
		}
		if v := u16At(t, got, base+2); v != 210+2731 {
			t.Errorf("block %d max = %d, want %d", block, v, 210+2731)
		}
		if v := u16At(t, got, base+4); v != 0 {
			t.Errorf("block %d max module = %d, want 0", block, v)
		}
		if v := u16At(t, got, base+6); v != 180+2731 {
			t.Errorf("block %d min = %d, want %d", block, v, 180+2731)
		}
		if v := u16At(t, got, base+8); v != 0 {
			t.Errorf("block %d min module = %d, want 0", block, v)
		}
	}
}

func TestBatteryInfo_NoModules(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.BatteryInfo(testPack(), nil)

	if len(got) != 49 {
		t.Fatalf("payload length = %d, want 49", len(got))
	}
	// Module indices fall back to 0, SOH min falls back to the aggregate.
	if v := u16At(t, got, 13); v != 0 {
		t.Errorf("max cell module = %d, want 0", v)
	}
	if got[10] != 99 {
		t.Errorf("SOH min = %d, want 99", got[10])
	}
}

func TestAlarms_SingleWarning(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	pack := testPack()
	pack.SetAlarm(battery.AlarmPackVoltageHigh, battery.LevelWarning)

	got := enc.Alarms(pack)
	if len(got) != 4 {
		t.Fatalf("payload length = %d, want 4", len(got))
	}
	if got[0] != 0x80 {
		t.Errorf("warning byte 1 = 0x%02X, want 0x80", got[0])
	}
	if got[1] != 0 || got[2] != 0 || got[3] != 0 {
		t.Errorf("other bytes = %02X %02X %02X, want all zero", got[1], got[2], got[3])
	}
}

func TestAlarms_Bitfields(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	pack := testPack()
	pack.SetAlarm(battery.AlarmCellVoltageLow, battery.LevelWarning)
	pack.SetAlarm(battery.AlarmDischargeCurrentHigh, battery.LevelWarning)
	pack.SetAlarm(battery.AlarmCellTemperatureHigh, battery.LevelAlarm)
	pack.SetAlarm(battery.AlarmFailureOther, battery.LevelAlarm)

	got := enc.Alarms(pack)
	if got[0] != 0x10 {
		t.Errorf("warning byte 1 = 0x%02X, want 0x10", got[0])
	}
	if got[1] != 0x20 {
		t.Errorf("warning byte 2 = 0x%02X, want 0x20", got[1])
	}
	if got[2] != 0x08 {
		t.Errorf("protection byte 1 = 0x%02X, want 0x08", got[2])
	}
	if got[3] != 0x08 {
		t.Errorf("protection byte 2 = 0x%02X, want 0x08", got[3])
	}
}

func TestAlarms_NoAlarms(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.Alarms(testPack())
	if !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Errorf("payload = %v, want all zero", got)
	}
}

func TestChargeDischargeControl(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	got := enc.ChargeDischargeControl(testPack())

	if len(got) != 9 {
		t.Fatalf("payload length = %d, want 9", len(got))
	}
	// 57.6 V and 44.8 V in 0.01 V units.
	if v := u16At(t, got, 0); v != 5760 {
		t.Errorf("charge voltage = %d, want 5760", v)
	}
	if v := u16At(t, got, 2); v != 4480 {
		t.Errorf("discharge voltage = %d, want 4480", v)
	}
	if v := u16At(t, got, 4); v != 1000 {
		t.Errorf("charge limit = %d, want 1000", v)
	}
	if v := u16At(t, got, 6); v != 200 {
		t.Errorf("discharge limit = %d, want 200", v)
	}
	if got[8] != 0xC0 {
		t.Errorf("status byte = 0x%02X, want 0xC0", got[8])
	}
}

func TestChargeDischargeControl_Defaults(t *testing.T) {
	enc := NewEncoder(DefaultTuning())
	pack := testPack()
	pack.MaxPackVoltageLimit = 0
	pack.MinPackVoltageLimit = 0

	got := enc.ChargeDischargeControl(pack)
	if v := u16At(t, got, 0); v != 5740 {
		t.Errorf("charge voltage = %d, want default 5740", v)
	}
	if v := u16At(t, got, 2); v != 4400 {
		t.Errorf("discharge voltage = %d, want default 4400", v)
	}
}

func TestChargeDischargeControl_RatedCellScale(t *testing.T) {
	tuning := DefaultTuning()
	tuning.VoltageScale = VoltageScaleRatedCell
	enc := NewEncoder(tuning)

	got := enc.ChargeDischargeControl(testPack())
	// 3450 mV x 4 cells = 13.8 V -> 1380 in 0.01 V.
	if v := u16At(t, got, 0); v != 1380 {
		t.Errorf("charge voltage = %d, want 1380", v)
	}
	// 3000 mV x 4 cells = 12.0 V -> 1200.
	if v := u16At(t, got, 2); v != 1200 {
		t.Errorf("discharge voltage = %d, want 1200", v)
	}
}

func TestChargeDischargeControl_EmpiricalScale(t *testing.T) {
	tuning := DefaultTuning()
	tuning.VoltageScale = VoltageScaleEmpirical
	enc := NewEncoder(tuning)

	got := enc.ChargeDischargeControl(testPack())
	// 5760 x 0.3 = 1728.
	if v := u16At(t, got, 0); v != 1728 {
		t.Errorf("charge voltage = %d, want 1728", v)
	}
}
