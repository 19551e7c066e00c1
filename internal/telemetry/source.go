// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

// Package telemetry supplies battery snapshots to the bridge daemon. The
// aggregator producing them lives outside this repository; here a Source is
// anything that can hand over the current aggregate pack plus the per-module
// packs behind it.
package telemetry

import "github.com/stromdock/pylonlink/pkg/battery"

// Source yields the current snapshot set. Implementations must return a
// usable aggregate even when no per-module data exists; modules may be nil.
type Source interface {
	Snapshot() (pack *battery.Pack, modules []*battery.Pack, err error)
}

// StaticSource returns fixed snapshots. Used in tests and for dry runs.
type StaticSource struct {
	Pack    *battery.Pack
	Modules []*battery.Pack
}

func (s *StaticSource) Snapshot() (*battery.Pack, []*battery.Pack, error) {
	return s.Pack, s.Modules, nil
}
