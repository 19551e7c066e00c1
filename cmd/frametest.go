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

var frameTestTimeout int

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid Pylontech frame",
	Long: `Wait for a valid Pylontech frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
complete Pylontech frame with a correct checksum. Invalid bytes and broken
frames are skipped silently.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking whether an inverter is polling on the bus at all.`,
	RunE: runFrameTest,
}

func init() {
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	rootCmd.AddCommand(frameTestCmd)
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Pylonlink - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid Pylontech frame...\n\n")

	frameChan := make(chan []byte, 1)
	errChan := make(chan error, 1)

	go func() {
		decoder := pylon.NewDecoder()
		buf := make([]byte, 256)
		invalidFrames := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					continue
				}
				if frame == nil {
					continue
				}
				if !pylon.ChecksumOK(frame) {
					invalidFrames++
					continue
				}
				if invalidFrames > 0 {
					fmt.Printf("(skipped %d bad frames before sync)\n", invalidFrames)
				}
				frameChan <- frame
				return
			}
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Print(pylon.FormatFrame(frame))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
