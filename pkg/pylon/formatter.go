// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import (
	"fmt"
	"strings"
)

// FormatFrame renders a wire frame (request or response) in human-readable
// form for the passive monitor. Frames that do not parse are shown as a raw
// hex dump so bus noise stays visible.
func FormatFrame(frame []byte) string {
	req, err := ParseRequest(frame)
	if err != nil {
		return fmt.Sprintf("UNPARSEABLE (%v)\n%s", err, hexDump(frame))
	}

	cmd := CommandFromCID2(req.CID2)
	var b strings.Builder
	fmt.Fprintf(&b, "%s (0x%02X) adr=0x%02X cid1=0x%02X info_len=%d chksum=%s\n",
		cmd, req.CID2, req.Address, req.CID1, len(req.Info), checksumVerdict(frame))

	if len(req.Info) > 0 {
		fmt.Fprintf(&b, "  INFO: %s\n", req.Info)
	}

	return b.String()
}

// checksumVerdict compares the embedded CHKSUM field with a recomputation.
func checksumVerdict(frame []byte) string {
	// VER through end of INFO, then 4 CHKSUM chars and EOI.
	if len(frame) < headerASCIILen+5 {
		return "short"
	}
	if !ChecksumOK(frame) {
		return fmt.Sprintf("BAD (want %04X)", FrameChecksum(frame[1:len(frame)-5]))
	}
	return "ok"
}

// hexDump renders raw bytes, 16 per line, for unparseable traffic.
func hexDump(data []byte) string {
	var b strings.Builder
	b.WriteString("  raw: ")
	for i, v := range data {
		if i > 0 && i%16 == 0 {
			b.WriteString("\n       ")
		}
		fmt.Fprintf(&b, "%02X ", v)
	}
	b.WriteString("\n")
	return b.String()
}
