// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model is the read-only timeline model of a planning problem.
//
// A Model is compiled once from a problem.Problem. Compilation validates
// the problem and resolves every name to an index, so the solver works on
// integers only. The Model is never mutated afterwards and may be shared
// by any number of goroutines.
package model

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/paraspace/services/planner/problem"
)

// ValueRef addresses a value by timeline and value index.
type ValueRef struct {
	Timeline int
	Value    int
}

// Timeline is a compiled timeline.
type Timeline struct {
	Index  int
	Name   string
	Values []*Value

	byName map[string]int
}

// Value is a compiled value.
type Value struct {
	Ref        ValueRef
	Name       string
	Duration   problem.Duration
	Capacity   int
	Conditions []problem.Condition
}

// Model is the compiled, immutable timeline model.
type Model struct {
	timelines []*Timeline
	byName    map[string]int
	groups    map[string][]int
}

// Compile validates p and builds its timeline model.
//
// Outputs:
//   - *Model: The model. Nil on error.
//   - error: A *problem.MalformedProblemError listing every shape and
//     reference issue, so callers see all defects at once.
func Compile(p *problem.Problem) (*Model, error) {
	var issues []*problem.ValidationIssue
	if err := problem.Validate(p); err != nil {
		var malformed *problem.MalformedProblemError
		if !errors.As(err, &malformed) {
			return nil, err
		}
		if p == nil {
			return nil, err
		}
		issues = append(issues, malformed.Issues...)
	}

	m := &Model{
		timelines: make([]*Timeline, 0, len(p.Timelines)),
		byName:    make(map[string]int, len(p.Timelines)),
		groups:    make(map[string][]int, len(p.Groups)),
	}

	for _, tl := range p.Timelines {
		if _, dup := m.byName[tl.Name]; dup {
			continue // reported by problem.Validate
		}
		ct := &Timeline{Index: len(m.timelines), Name: tl.Name, byName: make(map[string]int, len(tl.Values))}
		for _, v := range tl.Values {
			if _, dup := ct.byName[v.Name]; dup {
				continue
			}
			ref := ValueRef{Timeline: ct.Index, Value: len(ct.Values)}
			ct.byName[v.Name] = ref.Value
			ct.Values = append(ct.Values, &Value{
				Ref:        ref,
				Name:       v.Name,
				Duration:   v.Duration,
				Capacity:   v.Capacity,
				Conditions: v.Conditions,
			})
		}
		m.byName[tl.Name] = ct.Index
		m.timelines = append(m.timelines, ct)
	}

	for gi, g := range p.Groups {
		if _, dup := m.groups[g.Name]; dup {
			continue
		}
		members := make([]int, 0, len(g.Members))
		for _, name := range g.Members {
			idx, ok := m.byName[name]
			if !ok {
				issues = append(issues, problem.NewIssue(fmt.Sprintf("groups[%d]", gi),
					problem.ErrUnknownTimeline, "member %q of group %q", name, g.Name))
				continue
			}
			members = append(members, idx)
		}
		m.groups[g.Name] = members
	}

	for ti, tl := range p.Timelines {
		for vi, v := range tl.Values {
			for ci, c := range v.Conditions {
				path := fmt.Sprintf("timelines[%d].values[%d].conditions[%d]", ti, vi, ci)
				issues = append(issues, m.checkReference(path, c)...)
			}
		}
	}

	for ki, tok := range p.Tokens {
		path := fmt.Sprintf("tokens[%d]", ki)
		if _, err := m.Value(tok.TimelineName, tok.Value); err != nil {
			var issue *problem.ValidationIssue
			if errors.As(err, &issue) {
				issue.Path = path
				issues = append(issues, issue)
			}
		} else if issue := m.checkFactDuration(path, tok); issue != nil {
			issues = append(issues, issue)
		}
		for ci, c := range tok.Conditions {
			issues = append(issues, m.checkReference(fmt.Sprintf("%s.conditions[%d]", path, ci), c)...)
		}
	}

	if len(issues) > 0 {
		return nil, &problem.MalformedProblemError{Issues: issues}
	}
	return m, nil
}

func (m *Model) checkReference(path string, c problem.Condition) []*problem.ValidationIssue {
	var issues []*problem.ValidationIssue
	for _, obj := range c.Objects {
		if !m.isObject(obj) {
			issues = append(issues, problem.NewIssue(path, problem.ErrUnknownTimeline, "object %q", obj))
		}
	}
	if len(issues) == 0 && len(c.Objects) > 0 {
		if _, err := m.ResolveObjects(c.Objects, c.Value); err != nil {
			issues = append(issues, problem.NewIssue(path, problem.ErrUnknownValue,
				"no object of %v declares value %q", c.Objects, c.Value))
		}
	}
	return issues
}

// checkFactDuration rejects fixed tokens whose own span violates the value's duration.
func (m *Model) checkFactDuration(path string, tok problem.Token) *problem.ValidationIssue {
	t := tok.ConstTime
	if t.Kind != problem.TimeFixed || t.Start == nil || t.End == nil {
		return nil
	}
	v, _ := m.Value(tok.TimelineName, tok.Value)
	if length := *t.End - *t.Start; !v.Duration.Contains(length, 1e-9) {
		return problem.NewIssue(path, problem.ErrInvalidTime,
			"length %v outside duration [%v, %v] of %s.%s", length, v.Duration.Min, v.Duration.Max, tok.TimelineName, tok.Value)
	}
	return nil
}

func (m *Model) isObject(name string) bool {
	if _, ok := m.byName[name]; ok {
		return true
	}
	_, ok := m.groups[name]
	return ok
}

// -----------------------------------------------------------------------------
// Lookup
// -----------------------------------------------------------------------------

// Timelines returns every timeline in declaration order.
func (m *Model) Timelines() []*Timeline {
	return m.timelines
}

// Timeline returns the timeline named name.
func (m *Model) Timeline(name string) (*Timeline, error) {
	idx, ok := m.byName[name]
	if !ok {
		return nil, problem.NewIssue("", problem.ErrUnknownTimeline, "%q", name)
	}
	return m.timelines[idx], nil
}

// Value returns the value named value on timeline.
func (m *Model) Value(timeline, value string) (*Value, error) {
	tl, err := m.Timeline(timeline)
	if err != nil {
		return nil, err
	}
	v, ok := tl.Value(value)
	if !ok {
		return nil, problem.NewIssue("", problem.ErrUnknownValue, "%q on timeline %q", value, timeline)
	}
	return v, nil
}

// At returns the value addressed by ref.
func (m *Model) At(ref ValueRef) *Value {
	return m.timelines[ref.Timeline].Values[ref.Value]
}

// Value returns the value named name.
func (t *Timeline) Value(name string) (*Value, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.Values[idx], true
}

// ResolveObjects expands condition objects to the values that can support them.
//
// Description:
//
//	Each object is a timeline or a group name; groups expand to their
//	members. The result keeps the listed order, drops duplicates, and
//	keeps only timelines that declare value.
//
// Outputs:
//   - []ValueRef: The candidate values, never empty on success.
//   - error: ErrUnknownTimeline for an undeclared object, ErrUnknownValue
//     when no resolved timeline declares value.
func (m *Model) ResolveObjects(objects []string, value string) ([]ValueRef, error) {
	seen := make(map[int]bool)
	var refs []ValueRef
	for _, obj := range objects {
		var members []int
		if idx, ok := m.byName[obj]; ok {
			members = []int{idx}
		} else if g, ok := m.groups[obj]; ok {
			members = g
		} else {
			return nil, problem.NewIssue("", problem.ErrUnknownTimeline, "%q", obj)
		}
		for _, idx := range members {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			if v, ok := m.timelines[idx].Value(value); ok {
				refs = append(refs, v.Ref)
			}
		}
	}
	if len(refs) == 0 {
		return nil, problem.NewIssue("", problem.ErrUnknownValue, "%q on %v", value, objects)
	}
	return refs, nil
}
