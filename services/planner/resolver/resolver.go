// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"fmt"

	"github.com/AleutianAI/paraspace/services/planner/model"
	"github.com/AleutianAI/paraspace/services/planner/plan"
	"github.com/AleutianAI/paraspace/services/planner/problem"
	"github.com/AleutianAI/paraspace/services/planner/stn"
)

// -----------------------------------------------------------------------------
// Relationship constraints
// -----------------------------------------------------------------------------

// Constraints returns the difference constraints that realize rel between
// the conditioned token a and the supporting token b.
//
// Description:
//
//	A relationship is a conjunction of bounds between the four endpoints
//	of a and b. Exact relations (MetBy, Meets, Equals) use lo == hi.
//	The amount offsets the relation as documented on each
//	problem.TemporalRelationship constant.
func Constraints(rel problem.TemporalRelationship, amount float64, a, b *plan.Token) []stn.Constraint {
	switch rel {
	case problem.MetBy, problem.MetByTransitionFrom:
		return []stn.Constraint{exactly(b.End, a.Start, amount)}
	case problem.Meets:
		return []stn.Constraint{exactly(a.End, b.Start, amount)}
	case problem.Before:
		return []stn.Constraint{atLeast(a.End, b.Start, amount)}
	case problem.After:
		return []stn.Constraint{atLeast(b.End, a.Start, amount)}
	case problem.StartsAfter:
		return []stn.Constraint{atLeast(b.Start, a.Start, amount)}
	case problem.During, problem.Cover:
		return []stn.Constraint{atLeast(b.Start, a.Start, amount), atLeast(a.End, b.End, amount)}
	case problem.Contains:
		return []stn.Constraint{atLeast(a.Start, b.Start, amount), atLeast(b.End, a.End, amount)}
	case problem.Equals:
		return []stn.Constraint{exactly(a.Start, b.Start, amount), exactly(a.End, b.End, amount)}
	default:
		return nil
	}
}

// exactly posts to - from == d.
func exactly(from, to stn.Point, d float64) stn.Constraint {
	return stn.Constraint{From: from, To: to, Lo: d, Hi: d}
}

// atLeast posts to - from >= d.
func atLeast(from, to stn.Point, d float64) stn.Constraint {
	return stn.Constraint{From: from, To: to, Lo: d, Hi: stn.Inf}
}

// -----------------------------------------------------------------------------
// Candidates
// -----------------------------------------------------------------------------

// Candidate is one way to support a condition.
type Candidate struct {
	// Existing is the supporting token when reusing one; nil for a new token.
	Existing *plan.Token

	// Ref is the value of the support. For a new token it is where the
	// token will be instantiated.
	Ref model.ValueRef
}

// IsNew reports whether the candidate instantiates a new token.
func (c Candidate) IsNew() bool {
	return c.Existing == nil
}

func (c Candidate) String() string {
	if c.IsNew() {
		return fmt.Sprintf("new(%d.%d)", c.Ref.Timeline, c.Ref.Value)
	}
	return "reuse(" + c.Existing.String() + ")"
}

// Resolver enumerates supports for conditions.
//
// Thread Safety: Safe for concurrent use; it only reads the model.
type Resolver struct {
	model *model.Model
}

// New creates a resolver over m.
func New(m *model.Model) *Resolver {
	return &Resolver{model: m}
}

// Candidates returns the supports of cond on owner, in the order the search tries them.
//
// Description:
//
//	Existing tokens come first, in instantiation order: every token other
//	than owner whose value matches and for which the relationship can be
//	posted without inconsistency. New-token candidates follow, one per
//	resolved timeline in listed order, when allowNew is set. Reuse is
//	preferred because it keeps the plan small; creation stays available
//	so that a failed reuse does not hide a plan.
//
// Inputs:
//   - net: The current network. Left unchanged.
//   - tokens: Every instantiated token.
//   - owner: The conditioned token.
//   - cond: The condition to support.
//   - allowNew: Whether the token budget permits a new token.
//
// Outputs:
//   - []Candidate: Possibly empty.
//   - error: Non-nil only if cond references undeclared names.
func (r *Resolver) Candidates(net *stn.Network, tokens []*plan.Token, owner *plan.Token, cond problem.Condition, allowNew bool) ([]Candidate, error) {
	refs, err := r.Targets(owner, cond)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, tok := range tokens {
		if tok.ID == owner.ID || !containsRef(refs, tok.Ref) {
			continue
		}
		if net.Admits(Constraints(cond.Relationship, cond.Amount, owner, tok)) {
			out = append(out, Candidate{Existing: tok, Ref: tok.Ref})
		}
	}
	if allowNew {
		for _, ref := range refs {
			out = append(out, Candidate{Ref: ref})
		}
	}
	return out, nil
}

// Targets returns the values that may support cond on owner.
// MetByTransitionFrom only accepts supports on the owner's own timeline.
func (r *Resolver) Targets(owner *plan.Token, cond problem.Condition) ([]model.ValueRef, error) {
	refs, err := r.model.ResolveObjects(cond.Objects, cond.Value)
	if err != nil {
		return nil, err
	}
	if cond.Relationship != problem.MetByTransitionFrom {
		return refs, nil
	}
	kept := refs[:0:0]
	for _, ref := range refs {
		if ref.Timeline == owner.Timeline() {
			kept = append(kept, ref)
		}
	}
	return kept, nil
}

func containsRef(refs []model.ValueRef, ref model.ValueRef) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
