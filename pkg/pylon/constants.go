// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

// Package pylon implements the Pylontech low-voltage RS485 protocol: the
// ASCII-hex frame codec, both checksum algorithms, the per-command payload
// encoders and the request/response processor that answers an inverter's
// polling traffic from an aggregated battery-pack snapshot.
//
// Frames are ASCII-hex on the wire: a raw SOI byte, the VER/ADR/CID1/CID2/
// LENGTH/INFO/CHKSUM fields with every logical byte expanded to two hex
// characters, and a raw EOI byte. See the Pylontech RS485 protocol
// specification V2.8 for the field definitions.
package pylon

// Protocol framing bytes
const (
	SOI = 0x7E // start of information
	EOI = 0x0D // end of information
)

// Fixed protocol identifiers
const (
	// Version is the protocol version field, ASCII "20" (V2.0).
	Version = 0x20
	// CID1 is the device-class identifier for low-voltage battery groups.
	// Requests carrying any other CID1 are answered with silence.
	CID1 = 0x46
)

// Command is a CID2 information-document code. The set is closed: every code
// outside it is CmdUnsupported and produces no response.
type Command byte

const (
	CmdProtocolVersion        Command = 0x4F
	CmdManufacturerInfo       Command = 0x51
	CmdChargeManagementInfo   Command = 0x92
	CmdCellInfo               Command = 0x42
	CmdVoltageCurrentLimits   Command = 0x47
	CmdSystemInfo             Command = 0x60
	CmdBatteryInfo            Command = 0x61
	CmdAlarms                 Command = 0x62
	CmdChargeDischargeControl Command = 0x63

	CmdUnsupported Command = 0x00
)

// CommandFromCID2 maps a request's CID2 byte onto the closed command set.
func CommandFromCID2(cid2 byte) Command {
	switch Command(cid2) {
	case CmdProtocolVersion, CmdManufacturerInfo, CmdChargeManagementInfo,
		CmdCellInfo, CmdVoltageCurrentLimits, CmdSystemInfo,
		CmdBatteryInfo, CmdAlarms, CmdChargeDischargeControl:
		return Command(cid2)
	default:
		return CmdUnsupported
	}
}

// String returns the document name for a command code.
func (c Command) String() string {
	switch c {
	case CmdProtocolVersion:
		return "PROTOCOL_VERSION"
	case CmdManufacturerInfo:
		return "MANUFACTURER_INFO"
	case CmdChargeManagementInfo:
		return "CHARGE_MANAGEMENT_INFO"
	case CmdCellInfo:
		return "CELL_INFO"
	case CmdVoltageCurrentLimits:
		return "VOLTAGE_CURRENT_LIMITS"
	case CmdSystemInfo:
		return "SYSTEM_INFO"
	case CmdBatteryInfo:
		return "BATTERY_INFO"
	case CmdAlarms:
		return "ALARMS"
	case CmdChargeDischargeControl:
		return "CHARGE_DISCHARGE_CONTROL_INFO"
	default:
		return "UNSUPPORTED"
	}
}

// Frame size limits
const (
	// MaxFrameSize bounds an inbound frame. The largest document (cell info
	// for a full pack) stays well under this.
	MaxFrameSize = 4096
	// headerASCIILen is SOI + VER + ADR + CID1 + CID2 + LENGTH in wire bytes.
	headerASCIILen = 1 + 2 + 2 + 2 + 2 + 4
)

// Kelvin0CTenths converts 0.1 degC readings to the protocol's 0.1 K fields:
// wire value = tenths of degC + Kelvin0CTenths.
const Kelvin0CTenths = 2731

// MOSFET/force-charge status bit positions shared by the 0x92 and 0x63
// documents.
const (
	statusBitChargeMOS    = 7
	statusBitDischargeMOS = 6
	statusBitForceCharge  = 5
)
