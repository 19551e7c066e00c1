// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stromdock/pylonlink/pkg/pylon"
)

var (
	discoverTimeout   int
	discoverFirstAddr int
	discoverLastAddr  int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover battery addresses on the bus",
	Long: `Poll a range of addresses with PROTOCOL_VERSION requests and report which
ones answer.

Pylontech batteries are daisy-chained with one address per module; this
command plays the inverter side and walks the address range one request at a
time, waiting up to the per-address timeout for each reply. Run it against a
bus without an active inverter: two masters polling at once confuses both.

Exit codes:
  0 - Discovery successful (at least one address answered)
  1 - Discovery failed (no answers)
  2 - Connection error`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 1, "Per-address timeout in seconds")
	discoverCmd.Flags().IntVar(&discoverFirstAddr, "first", 1, "First address to poll")
	discoverCmd.Flags().IntVar(&discoverLastAddr, "last", 16, "Last address to poll")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if discoverFirstAddr < 0 || discoverLastAddr > 0xFF || discoverFirstAddr > discoverLastAddr {
		return fmt.Errorf("invalid address range %d..%d", discoverFirstAddr, discoverLastAddr)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Pylonlink - Address Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Addresses: 0x%02X..0x%02X, %ds per address\n\n",
		discoverFirstAddr, discoverLastAddr, discoverTimeout)

	// One reader goroutine feeds complete frames for the whole scan; the
	// per-address loop below decides which replies count.
	frames := make(chan []byte, 4)
	readErr := make(chan error, 1)
	go func() {
		decoder := pylon.NewDecoder()
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				readErr <- err
				return
			}
			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					continue
				}
				if frame != nil {
					frames <- frame
				}
			}
		}
	}()

	var found []byte
	for addr := discoverFirstAddr; addr <= discoverLastAddr; addr++ {
		request, err := pylon.BuildRequest(byte(addr), pylon.CmdProtocolVersion)
		if err != nil {
			return err
		}
		if _, err := conn.Write(request); err != nil {
			fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
			os.Exit(2)
		}

		if reply := awaitReply(frames, readErr, byte(addr)); reply != nil {
			found = append(found, byte(addr))
			fmt.Printf("0x%02X: %s", addr, pylon.FormatFrame(reply))
		} else {
			fmt.Printf("0x%02X: no answer\n", addr)
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Addresses answering: %d\n", len(found))
	for _, addr := range found {
		fmt.Printf("  0x%02X\n", addr)
	}

	if len(found) == 0 {
		fmt.Printf("No batteries discovered. Check wiring, baud rate and that no inverter is polling.\n")
		os.Exit(1)
	}

	return nil
}

// awaitReply waits for a checksum-valid frame addressed from addr, dropping
// everything else, until the per-address timeout expires. A read error ends
// the whole scan.
func awaitReply(frames <-chan []byte, readErr <-chan error, addr byte) []byte {
	deadline := time.After(time.Duration(discoverTimeout) * time.Second)
	for {
		select {
		case frame := <-frames:
			if !pylon.ChecksumOK(frame) {
				continue
			}
			reply, err := pylon.ParseRequest(frame)
			if err != nil || reply.Address != addr {
				continue
			}
			return frame

		case err := <-readErr:
			fmt.Fprintf(os.Stderr, "READ FAILED: %v\n", err)
			os.Exit(2)

		case <-deadline:
			return nil
		}
	}
}
