// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import (
	"time"

	"go.uber.org/zap"

	"github.com/stromdock/pylonlink/pkg/battery"
)

// Processor answers inverter polling traffic. One call to Frames consumes at
// most one inbound request and produces zero or one outbound frames; during
// the warm-up window it instead produces exactly one unsolicited
// charge/discharge control frame per call to nudge inverters that wait for
// the battery to speak first.
//
// Every failure mode - malformed request, foreign CID1, unknown CID2, empty
// payload - resolves to silence. Nothing here is fatal and nothing retries.
type Processor struct {
	enc   *Encoder
	start time.Time
	log   *zap.Logger
}

// NewProcessor creates a Processor. The start instant anchors the warm-up
// window; pass the construction time in production and a fixed instant in
// tests. A nil logger disables tracing.
func NewProcessor(tuning Tuning, start time.Time, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		enc:   NewEncoder(tuning),
		start: start,
		log:   log,
	}
}

// WarmupActive reports whether the warm-up window is still open at the
// given instant.
func (p *Processor) WarmupActive(now time.Time) bool {
	return now.Sub(p.start) < p.enc.tuning.WarmupWindow
}

// Frames processes one polling cycle: raw is the inbound frame as delivered
// by the transport, or nil when the read timed out. The returned slice holds
// zero or one complete wire frames to transmit.
func (p *Processor) Frames(raw []byte, pack *battery.Pack, modules []*battery.Pack, now time.Time) [][]byte {
	if pack == nil {
		// No snapshot means nothing to answer with, warm-up included.
		p.log.Debug("no pack snapshot")
		return nil
	}

	if p.WarmupActive(now) {
		return p.warmupFrames(pack)
	}

	if raw == nil {
		return nil
	}

	req, err := ParseRequest(raw)
	if err != nil {
		// Treated exactly like "no request": line noise and partial
		// frames are routine on a shared RS485 bus.
		p.log.Debug("discarding malformed request", zap.Error(err))
		return nil
	}

	if !req.Matches() {
		p.log.Debug("request for foreign device class",
			zap.Uint8("cid1", req.CID1))
		return nil
	}

	cmd := req.Command()
	if cmd == CmdUnsupported {
		p.log.Debug("unsupported command", zap.Uint8("cid2", req.CID2))
		return nil
	}

	switch cmd {
	case CmdChargeManagementInfo, CmdVoltageCurrentLimits, CmdChargeDischargeControl:
		p.logResolvedLimits(pack)
	}

	payload := p.payloadFor(cmd, pack, modules)
	frame, err := BuildResponse(req.Address, CID1, byte(cmd), payload)
	if err != nil {
		p.log.Debug("no payload for command", zap.Stringer("command", cmd))
		return nil
	}

	p.log.Debug("responding",
		zap.Stringer("command", cmd),
		zap.Int("payload_bytes", len(payload)),
		zap.ByteString("tx_ascii", frame))

	return [][]byte{frame}
}

// logResolvedLimits traces the current limits as they will appear on the
// wire, in 0.1 A units, for the documents that carry them.
func (p *Processor) logResolvedLimits(pack *battery.Pack) {
	p.log.Debug("resolved current limits",
		zap.Uint16("charge_a10", p.enc.tuning.ResolveCurrentLimit(pack.MaxPackChargeCurrent)),
		zap.Uint16("discharge_a10", p.enc.tuning.ResolveCurrentLimit(pack.MaxPackDischargeCurrent)))
}

// warmupFrames builds the single unsolicited frame of a warm-up cycle,
// bypassing request dispatch entirely.
func (p *Processor) warmupFrames(pack *battery.Pack) [][]byte {
	p.logResolvedLimits(pack)

	frame, err := BuildResponse(
		p.enc.tuning.WarmupAddress,
		CID1,
		byte(CmdChargeDischargeControl),
		p.enc.ChargeDischargeControl(pack),
	)
	if err != nil {
		return nil
	}

	p.log.Debug("warm-up frame", zap.ByteString("tx_ascii", frame))
	return [][]byte{frame}
}

// payloadFor matches a command to its document encoder. The command set is
// closed; callers have already rejected CmdUnsupported.
func (p *Processor) payloadFor(cmd Command, pack *battery.Pack, modules []*battery.Pack) []byte {
	switch cmd {
	case CmdProtocolVersion:
		return p.enc.ProtocolVersion(pack)
	case CmdManufacturerInfo:
		return p.enc.ManufacturerInfo(pack)
	case CmdChargeManagementInfo:
		return p.enc.ChargeManagementInfo(pack)
	case CmdCellInfo:
		return p.enc.CellInfo(pack)
	case CmdVoltageCurrentLimits:
		return p.enc.VoltageCurrentLimits(pack)
	case CmdSystemInfo:
		return p.enc.SystemInfo(pack)
	case CmdBatteryInfo:
		return p.enc.BatteryInfo(pack, modules)
	case CmdAlarms:
		return p.enc.Alarms(pack)
	case CmdChargeDischargeControl:
		return p.enc.ChargeDischargeControl(pack)
	default:
		return nil
	}
}
