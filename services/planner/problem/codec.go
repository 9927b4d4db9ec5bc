// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a problem document. YAML and JSON are both accepted.
func Parse(data []byte) (*Problem, error) {
	var p Problem
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode problem: %w", err)
	}
	return &p, nil
}

// Load reads and decodes the problem document at path.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem %s: %w", path, err)
	}
	return Parse(data)
}

// -----------------------------------------------------------------------------
// Duration: [min, max] with max null for an open bound
// -----------------------------------------------------------------------------

// MarshalJSON encodes the bound as [min, max], max null when open.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.IsOpen() {
		return json.Marshal([]any{d.Min, nil})
	}
	return json.Marshal([]float64{d.Min, d.Max})
}

// UnmarshalJSON decodes [min, max] with max null for an open bound.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var pair []*float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, err)
	}
	return d.fromPair(pair)
}

// MarshalYAML encodes the bound as a flow sequence.
func (d Duration) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	node.Content = append(node.Content, floatNode(d.Min))
	if d.IsOpen() {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
	} else {
		node.Content = append(node.Content, floatNode(d.Max))
	}
	return node, nil
}

// UnmarshalYAML decodes [min, max] or {min, max}; a null or missing max is open.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		pair := make([]*float64, len(node.Content))
		for i, item := range node.Content {
			if item.Tag == "!!null" {
				continue
			}
			var v float64
			if err := item.Decode(&v); err != nil {
				return fmt.Errorf("%w: line %d: %v", ErrInvalidDuration, item.Line, err)
			}
			pair[i] = &v
		}
		return d.fromPair(pair)
	case yaml.MappingNode:
		var m struct {
			Min *float64 `yaml:"min"`
			Max *float64 `yaml:"max"`
		}
		if err := node.Decode(&m); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidDuration, node.Line, err)
		}
		return d.fromPair([]*float64{m.Min, m.Max})
	default:
		return fmt.Errorf("%w: line %d: expected [min, max]", ErrInvalidDuration, node.Line)
	}
}

func (d *Duration) fromPair(pair []*float64) error {
	if len(pair) != 2 || pair[0] == nil {
		return fmt.Errorf("%w: expected [min, max]", ErrInvalidDuration)
	}
	d.Min = *pair[0]
	if pair[1] == nil {
		d.Max = math.Inf(1)
	} else {
		d.Max = *pair[1]
	}
	return nil
}

// -----------------------------------------------------------------------------
// TokenTime: "goal" | "free" | {start, end}
// -----------------------------------------------------------------------------

type fixedTime struct {
	Start *float64 `json:"start,omitempty" yaml:"start,omitempty"`
	End   *float64 `json:"end,omitempty" yaml:"end,omitempty"`
}

// MarshalJSON encodes goal and free as strings and fixed times as an object.
func (t TokenTime) MarshalJSON() ([]byte, error) {
	if t.Kind == TimeFixed {
		return json.Marshal(fixedTime{Start: t.Start, End: t.End})
	}
	return json.Marshal(t.Kind.String())
}

// UnmarshalJSON decodes "goal", "free", null (goal) or {start, end}.
func (t *TokenTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = Goal()
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		return t.fromKeyword(s)
	}
	var f fixedTime
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	*t = Fact(f.Start, f.End)
	return nil
}

// MarshalYAML encodes goal and free as scalars and fixed times as a mapping.
func (t TokenTime) MarshalYAML() (any, error) {
	if t.Kind == TimeFixed {
		return fixedTime{Start: t.Start, End: t.End}, nil
	}
	return t.Kind.String(), nil
}

// UnmarshalYAML decodes goal, free, null (goal) or {start, end}.
func (t *TokenTime) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*t = Goal()
			return nil
		}
		return t.fromKeyword(node.Value)
	case yaml.MappingNode:
		var f fixedTime
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidTime, node.Line, err)
		}
		*t = Fact(f.Start, f.End)
		return nil
	default:
		return fmt.Errorf("%w: line %d: expected goal, free or {start, end}", ErrInvalidTime, node.Line)
	}
}

func (t *TokenTime) fromKeyword(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "goal", "":
		*t = Goal()
	case "free", "fact":
		*t = Free()
	default:
		return fmt.Errorf("%w: unknown const_time %q", ErrInvalidTime, s)
	}
	return nil
}

// -----------------------------------------------------------------------------
// SolutionToken: JSON has no infinity, an unbounded end is null
// -----------------------------------------------------------------------------

type solutionTokenJSON struct {
	TimelineName string   `json:"timeline_name"`
	Value        string   `json:"value"`
	StartTime    float64  `json:"start_time"`
	EndTime      *float64 `json:"end_time"`
}

// MarshalJSON encodes an unbounded end time as null.
func (t SolutionToken) MarshalJSON() ([]byte, error) {
	w := solutionTokenJSON{TimelineName: t.TimelineName, Value: t.Value, StartTime: t.StartTime}
	if !t.Unbounded() {
		end := t.EndTime
		w.EndTime = &end
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a null end time as +Inf.
func (t *SolutionToken) UnmarshalJSON(data []byte) error {
	var w solutionTokenJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.TimelineName, t.Value, t.StartTime = w.TimelineName, w.Value, w.StartTime
	t.EndTime = math.Inf(1)
	if w.EndTime != nil {
		t.EndTime = *w.EndTime
	}
	return nil
}

func floatNode(v float64) *yaml.Node {
	node := &yaml.Node{}
	_ = node.Encode(v)
	return node
}
