// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

// =============================================================================
// Personality Tests
// =============================================================================

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		in   string
		want PersonalityLevel
	}{
		{"machine", PersonalityMachine},
		{"PLAIN", PersonalityMachine},
		{"q", PersonalityMachine},
		{"standard", PersonalityStandard},
		{"", PersonalityStandard},
		{"anything", PersonalityStandard},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParsePersonalityLevel(tt.in); got != tt.want {
				t.Errorf("ParsePersonalityLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetectPersonality(t *testing.T) {
	t.Run("buffer is not a terminal", func(t *testing.T) {
		t.Setenv("PARASPACE_PERSONALITY", "")
		if got := DetectPersonality(&bytes.Buffer{}); got != PersonalityMachine {
			t.Errorf("DetectPersonality(buffer) = %q, want machine", got)
		}
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("PARASPACE_PERSONALITY", "standard")
		if got := DetectPersonality(&bytes.Buffer{}); got != PersonalityStandard {
			t.Errorf("DetectPersonality() = %q, want standard", got)
		}
	})
}

func TestIsTerminal_NonFile(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true")
	}
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestPrinter_Machine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PersonalityMachine)

	p.Title("ignored title")
	p.Success("plan found")
	p.Warning("bounded")
	p.Error("no plan")
	p.Bullet("issue one")
	p.Muted("ignored detail")

	want := "OK: plan found\nWARN: bounded\nERROR: no plan\n- issue one\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPrinter_Standard(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PersonalityStandard)

	p.Title("Plan")
	p.Success("plan found")
	p.Error("no plan")

	out := buf.String()
	for _, want := range []string{"Plan", "plan found", "no plan", string(IconSuccess), string(IconError)} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestPrinter_Table(t *testing.T) {
	headers := []string{"TIMELINE", "VALUE"}
	rows := [][]string{{"obj", "s1"}, {"obj", "s2"}}

	t.Run("machine", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, PersonalityMachine).Table(headers, rows)

		want := "TIMELINE\tVALUE\nobj\ts1\nobj\ts2\n"
		if got := buf.String(); got != want {
			t.Errorf("table = %q, want %q", got, want)
		}
	})

	t.Run("standard", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, PersonalityStandard).Table(headers, rows)

		out := buf.String()
		for _, want := range []string{"TIMELINE", "VALUE", "s1", "s2", "╭"} {
			if !strings.Contains(out, want) {
				t.Errorf("table %q missing %q", out, want)
			}
		}
	})
}

func TestNewPrinter_DetectsLevel(t *testing.T) {
	t.Setenv("PARASPACE_PERSONALITY", "")
	if got := NewPrinter(&bytes.Buffer{}, "").Level(); got != PersonalityMachine {
		t.Errorf("Level() = %q, want machine", got)
	}
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconBullet} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("Render() of %q lost the glyph", icon)
		}
	}
}
