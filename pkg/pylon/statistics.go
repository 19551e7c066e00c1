// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package pylon

import (
	"fmt"
	"sort"
	"time"
)

// Statistics tracks frame counts and error rates for the passive monitor.
type Statistics struct {
	StartTime time.Time

	// Counters
	TotalFrames        uint64
	ValidFrames        uint64
	ParseFailures      uint64
	ChecksumMismatches uint64
	ForeignDeviceClass uint64
	UnsupportedCmds    uint64
	PerCommand         map[Command]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:  time.Now(),
		PerCommand: make(map[Command]uint64),
	}
}

// Observe classifies one complete wire frame and updates the counters.
func (s *Statistics) Observe(frame []byte) {
	s.TotalFrames++

	req, err := ParseRequest(frame)
	if err != nil {
		s.ParseFailures++
		return
	}

	if !ChecksumOK(frame) {
		s.ChecksumMismatches++
		return
	}

	if !req.Matches() {
		s.ForeignDeviceClass++
		return
	}

	cmd := req.Command()
	if cmd == CmdUnsupported {
		s.UnsupportedCmds++
		return
	}

	s.ValidFrames++
	s.PerCommand[cmd]++
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		errorCount := s.ParseFailures + s.ChecksumMismatches + s.UnsupportedCmds
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, parsePercent, checksumPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		parsePercent = float64(s.ParseFailures) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumMismatches) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.ParseFailures > 0 {
		result += fmt.Sprintf("Parse Failures:  %8d (%.1f%%)\n", s.ParseFailures, parsePercent)
	}
	if s.ChecksumMismatches > 0 {
		result += fmt.Sprintf("Bad Checksums:   %8d (%.1f%%)\n", s.ChecksumMismatches, checksumPercent)
	}
	if s.ForeignDeviceClass > 0 {
		result += fmt.Sprintf("Foreign CID1:    %8d\n", s.ForeignDeviceClass)
	}
	if s.UnsupportedCmds > 0 {
		result += fmt.Sprintf("Unsupported CID2:%8d\n", s.UnsupportedCmds)
	}

	if len(s.PerCommand) > 0 {
		cmds := make([]Command, 0, len(s.PerCommand))
		for cmd := range s.PerCommand {
			cmds = append(cmds, cmd)
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i] < cmds[j] })
		result += "Per Command:\n"
		for _, cmd := range cmds {
			result += fmt.Sprintf("  %-28s %6d\n", cmd.String(), s.PerCommand[cmd])
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.StartTime = time.Now()
	s.TotalFrames = 0
	s.ValidFrames = 0
	s.ParseFailures = 0
	s.ChecksumMismatches = 0
	s.ForeignDeviceClass = 0
	s.UnsupportedCmds = 0
	s.PerCommand = make(map[Command]uint64)
	s.FrameRate = 0
	s.ErrorRate = 0
}
