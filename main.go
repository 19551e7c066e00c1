// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock
//
// Pylonlink - Pylontech RS485 battery bridge
//
// Presents aggregated battery-pack telemetry to a Pylontech-compatible
// inverter over RS485, and passively monitors bus traffic for diagnosis.

package main

import (
	"os"

	"github.com/stromdock/pylonlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
