// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/stromdock/pylonlink/pkg/pylon"
)

var statsInterval int

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Passively decode and display bus traffic",
	Long: `Continuously decode and display Pylontech frames as they arrive.

Each frame is shown with its timestamp, command name, addressing fields and a
checksum verdict, so a misbehaving inverter or battery can be diagnosed
without joining the conversation. Nothing is ever written to the bus.

A statistics summary (frame rate, error rate, per-command counts) is printed
at a configurable interval.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 30, "Statistics update interval (seconds)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Pylonlink - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := pylon.NewDecoder()
	stats := pylon.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking reads
	serialBuf := make(chan []byte, 10)
	go func() {
		defer close(serialBuf)
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if err == ErrConnectionClosed {
					return
				}
				log.Printf("Read error: %v", err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			serialBuf <- data
		}
	}()

	for {
		select {
		case data, ok := <-serialBuf:
			if !ok {
				log.Printf("Connection closed")
				return nil
			}
			for _, b := range data {
				frame, err := decoder.DecodeByte(b)
				if err != nil {
					fmt.Printf("[ERROR] %v\n", err)
					continue
				}
				if frame != nil {
					stats.Observe(frame)
					fmt.Printf("[%s] %s", time.Now().Format("15:04:05.000"), pylon.FormatFrame(frame))
				}
			}

		case <-statsTicker.C:
			// Print statistics
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
