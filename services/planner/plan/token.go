// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package plan holds the tokens instantiated during a search.
package plan

import (
	"fmt"

	"github.com/AleutianAI/paraspace/services/planner/model"
	"github.com/AleutianAI/paraspace/services/planner/stn"
)

// Token is an instantiated value occupation.
//
// A Token is immutable once created; its timing lives in the temporal
// network under the Start and End points.
type Token struct {
	// ID is the instantiation index, unique within one search.
	ID int

	// Ref is the value the token occupies.
	Ref model.ValueRef

	// Start and End are the token's time points.
	Start stn.Point
	End   stn.Point

	// Capacity is the effective capacity: the token's own override, or
	// the value's declared capacity.
	Capacity int
}

// Timeline returns the timeline index of the token.
func (t *Token) Timeline() int {
	return t.Ref.Timeline
}

// Shares reports whether t and o may overlap: same value on the same
// timeline, and both shared.
func (t *Token) Shares(o *Token) bool {
	return t.Ref == o.Ref && t.Capacity > 0 && o.Capacity > 0
}

// Precedes returns the constraint "t ends no later than o starts".
func (t *Token) Precedes(o *Token) stn.Constraint {
	return stn.Constraint{From: t.End, To: o.Start, Lo: 0, Hi: stn.Inf}
}

func (t *Token) String() string {
	return fmt.Sprintf("token#%d(%d.%d)", t.ID, t.Ref.Timeline, t.Ref.Value)
}
