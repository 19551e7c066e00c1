// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stromdock/pylonlink/internal/config"
	"github.com/stromdock/pylonlink/internal/telemetry"
	"github.com/stromdock/pylonlink/pkg/pylon"
)

var (
	snapshotPath string
	modulePaths  []string
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Answer inverter polling traffic from battery snapshots",
	Long: `Run the responder daemon: decode polling frames from the inverter and
answer them from the aggregator's battery snapshots.

For the first seconds after startup the daemon emits unsolicited
charge/discharge control frames so inverters that wait for the battery to
speak first pick up the bus. After that it only ever answers.

Snapshots are re-read from the JSON dump files on every polling cycle.`,
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Aggregate snapshot JSON file")
	bridgeCmd.Flags().StringArrayVar(&modulePaths, "module", nil, "Per-module snapshot JSON file (repeatable)")
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tuning, err := cfg.Tuning()
	if err != nil {
		return err
	}

	// Flags win over the config file.
	if snapshotPath == "" {
		snapshotPath = cfg.Telemetry.SnapshotPath
	}
	if len(modulePaths) == 0 {
		modulePaths = cfg.Telemetry.ModulePaths
	}
	if snapshotPath == "" {
		return fmt.Errorf("no snapshot source: use --snapshot or telemetry.snapshot_path")
	}
	source := telemetry.NewFileSource(snapshotPath, modulePaths)

	if portName == "" {
		portName = cfg.Serial.Port
		if cfg.Serial.Baud > 0 {
			baudRate = cfg.Serial.Baud
		}
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("bridge started",
		zap.String("connection", connInfo),
		zap.String("snapshot", snapshotPath),
		zap.Int("modules", len(modulePaths)))

	proc := pylon.NewProcessor(tuning, time.Now(), logger)

	requests := make(chan []byte, 4)
	go readRequests(conn, requests, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		// One polling cycle: a complete request frame, or silence for a
		// full read window, whichever comes first. Both feed the
		// processor; during warm-up even silence produces a frame.
		var raw []byte
		select {
		case sig := <-sigChan:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			return nil
		case frame, ok := <-requests:
			if !ok {
				logger.Info("connection closed")
				return nil
			}
			raw = frame
		case <-time.After(cfg.Bridge.ReadTimeout):
			raw = nil
		}

		pack, modules, err := source.Snapshot()
		if err != nil {
			// Stale or missing telemetry means we cannot answer this
			// cycle. The inverter retries; the daemon keeps running.
			logger.Warn("snapshot unavailable", zap.Error(err))
			continue
		}

		for _, frame := range proc.Frames(raw, pack, modules, time.Now()) {
			if _, err := conn.Write(frame); err != nil {
				logger.Error("write failed", zap.Error(err))
				return err
			}
		}
	}
}

// readRequests feeds complete inbound frames to the bridge loop. The channel
// is closed when the connection dies.
func readRequests(conn Connection, out chan<- []byte, logger *zap.Logger) {
	defer close(out)

	decoder := pylon.NewDecoder()
	buf := make([]byte, 256)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				return
			}
			logger.Error("read failed", zap.Error(err))
			return
		}

		for i := 0; i < n; i++ {
			frame, err := decoder.DecodeByte(buf[i])
			if err != nil {
				// Oversized or broken accumulation; the decoder has
				// already reset itself.
				logger.Debug("decode error", zap.Error(err))
				continue
			}
			if frame != nil {
				out <- frame
			}
		}
	}
}

// buildLogger constructs the production logger at the configured level.
func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
