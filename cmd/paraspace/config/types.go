// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/AleutianAI/paraspace/services/planner/solver"
	"github.com/AleutianAI/paraspace/services/planner/telemetry"
)

// CurrentConfigVersion is written to new config files.
const CurrentConfigVersion = "1"

type ParaspaceConfig struct {
	Meta MetaConfig `yaml:"meta"`

	// Solver: default search limits for solve and serve
	Solver solver.Config `yaml:"solver"`

	Log LogConfig `yaml:"log"`

	Server ServerConfig `yaml:"server"`

	// Telemetry: exporters for traces and metrics
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type MetaConfig struct {
	Version string `yaml:"version"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN ERROR"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"` // e.g. ~/.paraspace/logs, empty disables file logging
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ParaspaceConfig {
	tel := telemetry.DefaultConfig()
	tel.MetricExporter = telemetry.ExporterPrometheus
	return ParaspaceConfig{
		Meta:      MetaConfig{Version: CurrentConfigVersion},
		Solver:    *solver.DefaultConfig(),
		Log:       LogConfig{Level: "info"},
		Server:    ServerConfig{Port: 12250},
		Telemetry: tel,
	}
}
