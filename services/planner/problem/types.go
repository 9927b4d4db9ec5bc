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
	"math"
	"time"
)

// -----------------------------------------------------------------------------
// Problem
// -----------------------------------------------------------------------------

// Problem is the declarative input of a planning run.
//
// Description:
//
//	A problem lists the timelines (objects whose state evolves over time),
//	the values each timeline may occupy, and the tokens that must appear in
//	the plan. Tokens whose time is Goal must be causally explained by the
//	conditions of their value; Fixed and Free tokens are given facts.
//
// Thread Safety: Immutable once handed to the solver.
type Problem struct {
	// Groups name sets of timelines that a condition may reference as one object.
	Groups []Group `json:"groups" yaml:"groups" validate:"dive"`

	// Timelines are the objects of the problem.
	Timelines []Timeline `json:"timelines" yaml:"timelines" validate:"required,min=1,dive"`

	// Tokens are the facts and goals the plan must contain.
	Tokens []Token `json:"tokens" yaml:"tokens" validate:"dive"`
}

// Group is a named set of timelines.
type Group struct {
	Name    string   `json:"name" yaml:"name" validate:"required"`
	Members []string `json:"members" yaml:"members" validate:"required,min=1,dive,required"`
}

// Timeline is an object that occupies one of its values at a time.
type Timeline struct {
	Name   string  `json:"name" yaml:"name" validate:"required"`
	Values []Value `json:"values" yaml:"values" validate:"required,min=1,dive"`
}

// Value is a state a timeline can occupy.
type Value struct {
	// Name identifies the value within its timeline.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Conditions must be supported whenever a goal token of this value is active.
	Conditions []Condition `json:"conditions" yaml:"conditions" validate:"dive"`

	// Duration bounds end - start of every token of this value.
	Duration Duration `json:"duration" yaml:"duration"`

	// Capacity is 0 for an exclusive value, or the number of tokens of this
	// value that may be active on the timeline at the same time.
	Capacity int `json:"capacity" yaml:"capacity" validate:"gte=0"`
}

// Condition requires a supporting token related to the conditioned one.
type Condition struct {
	// Relationship is the required interval relation between the
	// conditioned token (A) and the supporting token (B).
	Relationship TemporalRelationship `json:"temporal_relationship" yaml:"temporal_relationship"`

	// Amount offsets the relation, e.g. MetBy with amount a means
	// A.start - B.end == a.
	Amount float64 `json:"amount" yaml:"amount"`

	// Objects are timeline or group names that may host the support.
	Objects []string `json:"objects" yaml:"objects" validate:"required,min=1,dive,required"`

	// Value is the value the supporting token must have.
	Value string `json:"value" yaml:"value" validate:"required"`
}

// Token is a value occupation the plan must contain.
type Token struct {
	TimelineName string    `json:"timeline_name" yaml:"timeline_name" validate:"required"`
	Value        string    `json:"value" yaml:"value" validate:"required"`
	ConstTime    TokenTime `json:"const_time" yaml:"const_time"`

	// Capacity, when non-zero, replaces the value's capacity for this token.
	Capacity int `json:"capacity" yaml:"capacity" validate:"gte=0"`

	// Conditions are required in addition to the value's conditions.
	Conditions []Condition `json:"conditions" yaml:"conditions" validate:"dive"`
}

// -----------------------------------------------------------------------------
// Duration
// -----------------------------------------------------------------------------

// Duration is a closed bound [Min, Max] on the length of a token.
// An open-ended bound has Max == +Inf.
type Duration struct {
	Min float64
	Max float64
}

// Bounded returns the duration bound [min, max].
func Bounded(min, max float64) Duration {
	return Duration{Min: min, Max: max}
}

// AtLeast returns the open-ended duration bound [min, +Inf).
func AtLeast(min float64) Duration {
	return Duration{Min: min, Max: math.Inf(1)}
}

// IsOpen reports whether the bound has no maximum.
func (d Duration) IsOpen() bool {
	return math.IsInf(d.Max, 1)
}

// Contains reports whether length lies within the bound, with tolerance eps.
func (d Duration) Contains(length, eps float64) bool {
	return length >= d.Min-eps && length <= d.Max+eps
}

// -----------------------------------------------------------------------------
// Token time
// -----------------------------------------------------------------------------

// TimeKind tags the placement of a token.
type TimeKind int

const (
	// TimeGoal marks a token whose presence must be explained. It is the
	// zero value, so a token without const_time is a goal.
	TimeGoal TimeKind = iota

	// TimeFree marks a given fact with no time bounds.
	TimeFree

	// TimeFixed marks a given fact with an exact start and/or end.
	TimeFixed
)

// String returns the string representation of the kind.
func (k TimeKind) String() string {
	switch k {
	case TimeGoal:
		return "goal"
	case TimeFree:
		return "free"
	case TimeFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// TokenTime is the tagged placement variant of a token.
//
// Description:
//
//	The solver consumes every kind through the same two questions: which
//	window may the start and end points occupy, and must the value's
//	conditions be supported. Start and End are only meaningful for
//	TimeFixed; either may be nil.
type TokenTime struct {
	Kind  TimeKind
	Start *float64
	End   *float64
}

// Goal returns the placement of a goal token.
func Goal() TokenTime {
	return TokenTime{Kind: TimeGoal}
}

// Free returns the placement of an unbounded fact.
func Free() TokenTime {
	return TokenTime{Kind: TimeFree}
}

// Fact returns the placement of a fact with optional start and end.
// A fact with neither bound is Free.
func Fact(start, end *float64) TokenTime {
	if start == nil && end == nil {
		return Free()
	}
	return TokenTime{Kind: TimeFixed, Start: start, End: end}
}

// FixedAt returns the placement of a fact occupying exactly [start, end].
func FixedAt(start, end float64) TokenTime {
	return Fact(&start, &end)
}

// RequiresSupport reports whether the value's conditions must be supported.
func (t TokenTime) RequiresSupport() bool {
	return t.Kind == TimeGoal
}

// StartWindow returns the interval the start point may occupy.
func (t TokenTime) StartWindow() (lo, hi float64) {
	return window(t.Kind, t.Start)
}

// EndWindow returns the interval the end point may occupy.
func (t TokenTime) EndWindow() (lo, hi float64) {
	return window(t.Kind, t.End)
}

func window(kind TimeKind, at *float64) (float64, float64) {
	if kind == TimeFixed && at != nil {
		return *at, *at
	}
	return 0, math.Inf(1)
}

// -----------------------------------------------------------------------------
// Solution
// -----------------------------------------------------------------------------

// Solution is a consistent plan.
//
// Description:
//
//	Tokens are listed in instantiation order: problem tokens first, then the
//	supports the search created. The order carries no meaning; callers
//	should match tokens by timeline, value and time.
type Solution struct {
	Tokens []SolutionToken `json:"tokens" yaml:"tokens"`
	Stats  *SearchStats    `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// SolutionToken is a token with resolved times. EndTime is +Inf when
// nothing bounds the end of the token.
type SolutionToken struct {
	TimelineName string  `json:"timeline_name" yaml:"timeline_name"`
	Value        string  `json:"value" yaml:"value"`
	StartTime    float64 `json:"start_time" yaml:"start_time"`
	EndTime      float64 `json:"end_time" yaml:"end_time"`
}

// Unbounded reports whether the token never ends.
func (t SolutionToken) Unbounded() bool {
	return math.IsInf(t.EndTime, 1)
}

// Length returns EndTime - StartTime.
func (t SolutionToken) Length() float64 {
	return t.EndTime - t.StartTime
}

// Find returns the tokens of value on timeline, in solution order.
func (s *Solution) Find(timeline, value string) []SolutionToken {
	var out []SolutionToken
	for _, t := range s.Tokens {
		if t.TimelineName == timeline && t.Value == value {
			out = append(out, t)
		}
	}
	return out
}

// SearchStats summarizes the search that produced a solution.
type SearchStats struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Steps         int64         `json:"steps" yaml:"steps"`
	Decisions     int64         `json:"decisions" yaml:"decisions"`
	Backtracks    int64         `json:"backtracks" yaml:"backtracks"`
	TokensCreated int64         `json:"tokens_created" yaml:"tokens_created"`
	Elapsed       time.Duration `json:"elapsed" yaml:"elapsed"`
}
