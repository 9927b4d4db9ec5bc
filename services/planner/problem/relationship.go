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
	"fmt"
	"strings"
)

// TemporalRelationship is an interval relation between a conditioned token
// A and its supporting token B.
type TemporalRelationship int

const (
	// RelationshipUnknown is the zero value and is rejected by validation.
	RelationshipUnknown TemporalRelationship = iota

	// MetBy: B ends exactly amount before A starts.
	MetBy

	// MetByTransitionFrom: MetBy, with B on A's own timeline.
	MetByTransitionFrom

	// Meets: A ends exactly amount before B starts.
	Meets

	// Before: A ends at least amount before B starts.
	Before

	// After: A starts at least amount after B ends.
	After

	// StartsAfter: A starts at least amount after B starts.
	StartsAfter

	// During: A lies within B, with margin amount on both sides.
	During

	// Cover: B covers A. Same constraints as During.
	Cover

	// Contains: B lies within A, with margin amount on both sides.
	Contains

	// Equals: B starts and ends amount after A does.
	Equals
)

var relationshipNames = map[TemporalRelationship]string{
	MetBy:               "MetBy",
	MetByTransitionFrom: "MetByTransitionFrom",
	Meets:               "Meets",
	Before:              "Before",
	After:               "After",
	StartsAfter:         "StartsAfter",
	During:              "During",
	Cover:               "Cover",
	Contains:            "Contains",
	Equals:              "Equals",
}

// relationshipAliases maps lower-cased spellings to relationships.
var relationshipAliases = func() map[string]TemporalRelationship {
	m := make(map[string]TemporalRelationship, len(relationshipNames)+1)
	for r, name := range relationshipNames {
		m[strings.ToLower(name)] = r
	}
	m["equal"] = Equals
	return m
}()

// String returns the canonical name of the relationship.
func (r TemporalRelationship) String() string {
	if name, ok := relationshipNames[r]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether r is a known relationship.
func (r TemporalRelationship) Valid() bool {
	_, ok := relationshipNames[r]
	return ok
}

var separators = strings.NewReplacer("_", "", "-", "", " ", "")

// ParseRelationship parses a relationship name, ignoring case and word
// separators: "MetBy", "met_by" and "met-by" are the same relationship.
func ParseRelationship(s string) (TemporalRelationship, error) {
	if r, ok := relationshipAliases[separators.Replace(strings.ToLower(strings.TrimSpace(s)))]; ok {
		return r, nil
	}
	return RelationshipUnknown, fmt.Errorf("%w: %q", ErrInvalidRelationship, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r TemporalRelationship) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRelationship, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *TemporalRelationship) UnmarshalText(text []byte) error {
	parsed, err := ParseRelationship(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
