// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import "fmt"

// ErrMalformedFrame is returned for inbound frames that are too short or
// contain non-hex field characters. Callers treat it as "no request present",
// never as fatal.
var ErrMalformedFrame = fmt.Errorf("pylon: malformed frame")

// ErrNilPayload is returned when a response is requested for a command whose
// encoder produced no data.
var ErrNilPayload = fmt.Errorf("pylon: nil payload")

// Request is a decoded inbound polling frame.
type Request struct {
	Address byte
	CID1    byte
	CID2    byte
	// Info holds the request's INFO field as wire ASCII characters,
	// LENID characters long.
	Info []byte
}

// Matches reports whether the request addresses this protocol's device
// class. A mismatch is not an error: the frame parsed fine, the engine just
// must not answer it.
func (r *Request) Matches() bool {
	return r.CID1 == CID1
}

// Command maps the request's CID2 onto the closed command set.
func (r *Request) Command() Command {
	return CommandFromCID2(r.CID2)
}

// ParseRequest decodes an inbound wire frame starting at SOI. The declared
// LENGTH is masked to its 12-bit LENID to recover the INFO character count;
// the LCHKSUM nibble and trailing frame checksum are not re-verified, which
// matches how tolerant real inverter firmwares are with their own requests.
func ParseRequest(frame []byte) (*Request, error) {
	if len(frame) < headerASCIILen {
		return nil, fmt.Errorf("frame too short: %d bytes: %w", len(frame), ErrMalformedFrame)
	}
	if frame[0] != SOI {
		return nil, fmt.Errorf("missing SOI: %w", ErrMalformedFrame)
	}

	adr, err := DecodeByte(frame[3], frame[4])
	if err != nil {
		return nil, fmt.Errorf("bad ADR field: %w", ErrMalformedFrame)
	}
	cid1, err := DecodeByte(frame[5], frame[6])
	if err != nil {
		return nil, fmt.Errorf("bad CID1 field: %w", ErrMalformedFrame)
	}
	cid2, err := DecodeByte(frame[7], frame[8])
	if err != nil {
		return nil, fmt.Errorf("bad CID2 field: %w", ErrMalformedFrame)
	}
	length, err := DecodeUint16(frame[9:13])
	if err != nil {
		return nil, fmt.Errorf("bad LENGTH field: %w", ErrMalformedFrame)
	}

	infoLen := int(length & 0x0FFF)
	if len(frame) < headerASCIILen+infoLen {
		return nil, fmt.Errorf("INFO truncated: declared %d, have %d: %w",
			infoLen, len(frame)-headerASCIILen, ErrMalformedFrame)
	}

	info := make([]byte, infoLen)
	copy(info, frame[headerASCIILen:headerASCIILen+infoLen])

	return &Request{Address: adr, CID1: cid1, CID2: cid2, Info: info}, nil
}

// BuildResponse assembles a complete outbound wire frame for the given
// binary payload: SOI, ASCII "20", ADR, CID1, RTN, LENGTH over the doubled
// payload size, the hex-expanded INFO, CHKSUM over everything since VER, EOI.
func BuildResponse(address, cid1, rtn byte, payload []byte) ([]byte, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}

	frame := make([]byte, 0, headerASCIILen+len(payload)*2+5)
	frame = append(frame, SOI)
	frame = append(frame, '2', '0')
	frame = AppendByte(frame, address)
	frame = AppendByte(frame, cid1)
	frame = AppendByte(frame, rtn)
	frame = AppendUint16(frame, LengthField(len(payload)*2))
	for _, b := range payload {
		frame = AppendByte(frame, b)
	}
	frame = AppendUint16(frame, FrameChecksum(frame[1:]))
	frame = append(frame, EOI)

	return frame, nil
}

// BuildRequest assembles an inverter-side polling frame for the given
// command. Requests share the response layout with CID2 in the RTN slot;
// the information documents expect the target address echoed in INFO.
func BuildRequest(address byte, cmd Command) ([]byte, error) {
	return BuildResponse(address, CID1, byte(cmd), []byte{address})
}

// Decoder states
const (
	stateIdle = iota
	stateBody
)

// Decoder accumulates a byte stream into whole frames, SOI through EOI.
// Bytes outside a frame are discarded; an oversized frame resets the decoder
// with an error.
type Decoder struct {
	state  int
	buffer []byte
}

// NewDecoder creates a frame decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		state:  stateIdle,
		buffer: make([]byte, 0, MaxFrameSize),
	}
}

// Reset discards any partial frame.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buffer = d.buffer[:0]
}

// DecodeByte feeds one byte through the decoder. It returns a completed
// frame (SOI through EOI inclusive) when the end byte arrives, or nil while
// a frame is still accumulating.
func (d *Decoder) DecodeByte(b byte) ([]byte, error) {
	if b == SOI {
		// A new SOI always restarts accumulation, even mid-frame.
		d.Reset()
		d.state = stateBody
		d.buffer = append(d.buffer, b)
		return nil, nil
	}

	if d.state == stateIdle {
		return nil, nil
	}

	if len(d.buffer) >= MaxFrameSize {
		d.Reset()
		return nil, fmt.Errorf("frame exceeds %d bytes: %w", MaxFrameSize, ErrMalformedFrame)
	}

	d.buffer = append(d.buffer, b)

	if b == EOI {
		frame := make([]byte, len(d.buffer))
		copy(frame, d.buffer)
		d.Reset()
		return frame, nil
	}

	return nil, nil
}
