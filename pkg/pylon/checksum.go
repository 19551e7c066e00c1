// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

// LengthField packs the INFO length (in wire ASCII characters) into the
// 16-bit LENGTH field: the low 12 bits carry LENID, the top nibble carries
// LCHKSUM, the modulo-16 two's complement of the sum of LENID's three
// nibbles.
func LengthField(infoASCIILen int) uint16 {
	lenID := uint16(infoASCIILen) & 0x0FFF

	sum := lenID>>8&0x0F + lenID>>4&0x0F + lenID&0x0F
	lchk := (^sum + 1) & 0x0F

	return lchk<<12 | lenID
}

// FrameChecksum computes the CHKSUM field over the already-encoded wire
// bytes from VER through the last INFO character (SOI excluded): the
// modulo-65536 two's complement of the unsigned byte sum.
func FrameChecksum(body []byte) uint16 {
	var sum uint16
	for _, b := range body {
		sum += uint16(b)
	}
	return ^sum + 1
}

// ChecksumOK reports whether a complete wire frame's trailing CHKSUM field
// matches a recomputation over its VER..INFO bytes.
func ChecksumOK(frame []byte) bool {
	if len(frame) < headerASCIILen+5 {
		return false
	}
	embedded, err := DecodeUint16(frame[len(frame)-5 : len(frame)-1])
	if err != nil {
		return false
	}
	return FrameChecksum(frame[1:len(frame)-5]) == embedded
}
