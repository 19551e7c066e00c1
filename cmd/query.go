// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stromdock/pylonlink/pkg/pylon"
)

var (
	queryAddress int
	queryTimeout int
)

var queryCmd = &cobra.Command{
	Use:   "query <command>",
	Short: "Poll one information document from a battery",
	Long: `Send a single polling request and print the decoded reply.

The command argument is a document name (e.g. battery_info, alarms,
cell_info) or a CID2 byte in hex (e.g. 0x61). This plays the inverter side
of the protocol, so run it against a battery, not against a running bridge.

Exit codes:
  0 - Reply received
  1 - Timeout
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryAddress, "address", 2, "Target battery address")
	queryCmd.Flags().IntVar(&queryTimeout, "timeout", 3, "Timeout in seconds")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	command, err := parseCommandArg(args[0])
	if err != nil {
		return err
	}
	if queryAddress < 0 || queryAddress > 0xFF {
		return fmt.Errorf("invalid address %d", queryAddress)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Pylonlink - Query\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Document: %s (0x%02X), address 0x%02X\n\n", command, byte(command), queryAddress)

	request, err := pylon.BuildRequest(byte(queryAddress), command)
	if err != nil {
		return err
	}
	if _, err := conn.Write(request); err != nil {
		fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
		os.Exit(2)
	}

	frameChan := make(chan []byte, 1)
	errChan := make(chan error, 1)
	go func() {
		decoder := pylon.NewDecoder()
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil || frame == nil {
					continue
				}
				if !pylon.ChecksumOK(frame) {
					continue
				}
				frameChan <- frame
				return
			}
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Print(pylon.FormatFrame(frame))
		printPayload(frame)
		return nil

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(queryTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No reply within %d seconds\n", queryTimeout)
		os.Exit(1)
	}

	return nil
}

// printPayload decodes the reply's INFO field back to binary payload bytes.
func printPayload(frame []byte) {
	reply, err := pylon.ParseRequest(frame)
	if err != nil || len(reply.Info) == 0 {
		return
	}

	fmt.Printf("  payload (%d bytes):", len(reply.Info)/2)
	for i := 0; i+1 < len(reply.Info); i += 2 {
		b, err := pylon.DecodeByte(reply.Info[i], reply.Info[i+1])
		if err != nil {
			fmt.Printf(" ??")
			continue
		}
		fmt.Printf(" %02X", b)
	}
	fmt.Println()
}

// parseCommandArg accepts a document name or a hex CID2 byte.
func parseCommandArg(arg string) (pylon.Command, error) {
	if v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 8); err == nil {
		if cmd := pylon.CommandFromCID2(byte(v)); cmd != pylon.CmdUnsupported {
			return cmd, nil
		}
		return 0, fmt.Errorf("0x%02X is not a known CID2", v)
	}

	name := strings.ToUpper(arg)
	for _, cmd := range []pylon.Command{
		pylon.CmdProtocolVersion, pylon.CmdManufacturerInfo,
		pylon.CmdChargeManagementInfo, pylon.CmdCellInfo,
		pylon.CmdVoltageCurrentLimits, pylon.CmdSystemInfo,
		pylon.CmdBatteryInfo, pylon.CmdAlarms,
		pylon.CmdChargeDischargeControl,
	} {
		if cmd.String() == name {
			return cmd, nil
		}
	}
	return 0, fmt.Errorf("unknown document %q", arg)
}
