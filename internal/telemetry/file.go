// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Stromdock

package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/stromdock/pylonlink/pkg/battery"
)

// FileSource reads snapshots from JSON dumps written by the aggregator: one
// file for the system aggregate, optionally one per physical module. Files
// are re-read on every Snapshot call so the bridge always answers with the
// freshest data the aggregator has flushed.
type FileSource struct {
	PackPath    string
	ModulePaths []string
}

// NewFileSource creates a FileSource over the given snapshot files.
func NewFileSource(packPath string, modulePaths []string) *FileSource {
	return &FileSource{PackPath: packPath, ModulePaths: modulePaths}
}

func (f *FileSource) Snapshot() (*battery.Pack, []*battery.Pack, error) {
	pack, err := readPack(f.PackPath)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate snapshot: %w", err)
	}

	var modules []*battery.Pack
	for _, path := range f.ModulePaths {
		m, err := readPack(path)
		if err != nil {
			return nil, nil, fmt.Errorf("module snapshot %s: %w", path, err)
		}
		modules = append(modules, m)
	}

	return pack, modules, nil
}

func readPack(path string) (*battery.Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack battery.Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &pack, nil
}
