// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import "fmt"

// ErrMalformedHex is returned when a wire byte pair contains a character that
// is not an upper- or lowercase hex digit.
var ErrMalformedHex = fmt.Errorf("pylon: malformed hex digit")

const hexDigits = "0123456789ABCDEF"

// EncodeByte expands one logical byte to its two uppercase ASCII-hex wire
// characters: 0x4F -> '4','F'.
func EncodeByte(b byte) [2]byte {
	return [2]byte{hexDigits[b>>4], hexDigits[b&0x0F]}
}

// AppendByte appends the two-character expansion of b to dst.
func AppendByte(dst []byte, b byte) []byte {
	return append(dst, hexDigits[b>>4], hexDigits[b&0x0F])
}

// AppendUint16 appends the four-character big-endian expansion of v to dst.
func AppendUint16(dst []byte, v uint16) []byte {
	dst = AppendByte(dst, byte(v>>8))
	return AppendByte(dst, byte(v))
}

// DecodeByte parses a two-character ASCII-hex pair back into one byte.
func DecodeByte(hi, lo byte) (byte, error) {
	h, err := hexNibble(hi)
	if err != nil {
		return 0, err
	}
	l, err := hexNibble(lo)
	if err != nil {
		return 0, err
	}
	return h<<4 | l, nil
}

// DecodeUint16 parses four ASCII-hex characters into a big-endian 16-bit
// value.
func DecodeUint16(chars []byte) (uint16, error) {
	if len(chars) < 4 {
		return 0, fmt.Errorf("pylon: need 4 hex chars, have %d: %w", len(chars), ErrMalformedHex)
	}
	hi, err := DecodeByte(chars[0], chars[1])
	if err != nil {
		return 0, err
	}
	lo, err := DecodeByte(chars[2], chars[3])
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// PadString copies the string's bytes into a fixed-width field of exactly
// width raw bytes, truncating or zero-padding as needed. The result is placed
// verbatim into a payload; the frame builder hex-expands it together with the
// numeric fields.
func PadString(s string, width int) []byte {
	out := make([]byte, width)
	copy(out, s)
	return out
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("pylon: %q is not a hex digit: %w", c, ErrMalformedHex)
	}
}
