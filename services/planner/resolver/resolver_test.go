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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/paraspace/services/planner/model"
	"github.com/AleutianAI/paraspace/services/planner/plan"
	"github.com/AleutianAI/paraspace/services/planner/problem"
	"github.com/AleutianAI/paraspace/services/planner/stn"
)

// newToken adds a token fixed at [start, end] to net.
func newToken(t *testing.T, net *stn.Network, id int, ref model.ValueRef, start, end float64) *plan.Token {
	t.Helper()
	tok := &plan.Token{ID: id, Ref: ref, Start: net.AddTimepoint(), End: net.AddTimepoint()}
	require.NoError(t, net.AddConstraint(stn.Origin, tok.Start, start, start))
	require.NoError(t, net.AddConstraint(stn.Origin, tok.End, end, end))
	return tok
}

// freeToken adds a token that may start at any time >= 0 with the given length.
func freeToken(t *testing.T, net *stn.Network, id int, ref model.ValueRef, length float64) *plan.Token {
	t.Helper()
	tok := &plan.Token{ID: id, Ref: ref, Start: net.AddTimepoint(), End: net.AddTimepoint()}
	require.NoError(t, net.AddConstraint(stn.Origin, tok.Start, 0, stn.Inf))
	require.NoError(t, net.AddConstraint(tok.Start, tok.End, length, length))
	return tok
}

func TestConstraints(t *testing.T) {
	a0 := model.ValueRef{Timeline: 0, Value: 0}
	b0 := model.ValueRef{Timeline: 1, Value: 0}

	tests := []struct {
		name      string
		rel       problem.TemporalRelationship
		amount    float64
		wantStart float64
	}{
		// b occupies [10, 20]; a has length 5 and starts as early as allowed.
		{"met by", problem.MetBy, 0, 20},
		{"met by with gap", problem.MetBy, 3, 23},
		{"after", problem.After, 1, 21},
		{"starts after", problem.StartsAfter, 2, 12},
		{"during", problem.During, 0, 10},
		{"meets", problem.Meets, 0, 5},
		{"before", problem.Before, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := stn.New()
			b := newToken(t, net, 0, b0, 10, 20)
			a := freeToken(t, net, 1, a0, 5)

			require.NoError(t, net.PostAll(Constraints(tt.rel, tt.amount, a, b)))
			assert.InDelta(t, tt.wantStart, net.Earliest(a.Start), 1e-9)
		})
	}

	t.Run("equals pins both ends", func(t *testing.T) {
		net := stn.New()
		b := newToken(t, net, 0, b0, 10, 20)
		a := &plan.Token{ID: 1, Ref: a0, Start: net.AddTimepoint(), End: net.AddTimepoint()}

		require.NoError(t, net.PostAll(Constraints(problem.Equals, 0, a, b)))
		assert.True(t, net.Entails(stn.Origin, a.Start, 10, 10))
		assert.True(t, net.Entails(stn.Origin, a.End, 20, 20))
	})

	t.Run("contains rejects a shorter container", func(t *testing.T) {
		net := stn.New()
		b := newToken(t, net, 0, b0, 10, 20)
		a := freeToken(t, net, 1, a0, 5)

		assert.False(t, net.Admits(Constraints(problem.Contains, 0, a, b)))
	})

	t.Run("cover matches during", func(t *testing.T) {
		a := &plan.Token{Start: 1, End: 2}
		b := &plan.Token{Start: 3, End: 4}
		assert.Equal(t, Constraints(problem.During, 1, a, b), Constraints(problem.Cover, 1, a, b))
	})

	t.Run("unknown relationship", func(t *testing.T) {
		assert.Nil(t, Constraints(problem.RelationshipUnknown, 0, &plan.Token{}, &plan.Token{}))
	})
}

func resolverProblem() *problem.Problem {
	return &problem.Problem{
		Groups: []problem.Group{{Name: "both", Members: []string{"left", "right"}}},
		Timelines: []problem.Timeline{
			{Name: "left", Values: []problem.Value{
				{Name: "on", Duration: problem.Bounded(1, 100)},
				{Name: "off", Duration: problem.AtLeast(1)},
			}},
			{Name: "right", Values: []problem.Value{
				{Name: "on", Duration: problem.Bounded(1, 100)},
			}},
		},
	}
}

func TestCandidates(t *testing.T) {
	m, err := model.Compile(resolverProblem())
	require.NoError(t, err)
	r := New(m)

	leftOn := model.ValueRef{Timeline: 0, Value: 0}
	leftOff := model.ValueRef{Timeline: 0, Value: 1}
	rightOn := model.ValueRef{Timeline: 1, Value: 0}

	metBy := problem.Condition{Relationship: problem.MetBy, Objects: []string{"both"}, Value: "on"}

	t.Run("reuse before create", func(t *testing.T) {
		net := stn.New()
		owner := freeToken(t, net, 0, leftOff, 1)
		early := newToken(t, net, 1, rightOn, 0, 5)
		tokens := []*plan.Token{owner, early}

		cands, err := r.Candidates(net, tokens, owner, metBy, true)
		require.NoError(t, err)
		require.Len(t, cands, 3)
		assert.Same(t, early, cands[0].Existing)
		assert.False(t, cands[0].IsNew())
		assert.Equal(t, leftOn, cands[1].Ref)
		assert.True(t, cands[1].IsNew())
		assert.Equal(t, rightOn, cands[2].Ref)
	})

	t.Run("inconsistent reuse is skipped", func(t *testing.T) {
		net := stn.New()
		owner := newToken(t, net, 0, leftOff, 2, 3)
		late := newToken(t, net, 1, rightOn, 4, 6)
		tokens := []*plan.Token{owner, late}

		cands, err := r.Candidates(net, tokens, owner, metBy, true)
		require.NoError(t, err)
		for _, c := range cands {
			assert.True(t, c.IsNew(), c.String())
		}
		assert.Len(t, cands, 2)
		assert.Equal(t, 5, net.Len())
	})

	t.Run("budget exhausted", func(t *testing.T) {
		net := stn.New()
		owner := freeToken(t, net, 0, leftOff, 1)

		cands, err := r.Candidates(net, []*plan.Token{owner}, owner, metBy, false)
		require.NoError(t, err)
		assert.Empty(t, cands)
	})

	t.Run("transition stays on the owner's timeline", func(t *testing.T) {
		net := stn.New()
		owner := freeToken(t, net, 0, leftOff, 1)
		other := newToken(t, net, 1, rightOn, 0, 5)

		cond := metBy
		cond.Relationship = problem.MetByTransitionFrom
		cands, err := r.Candidates(net, []*plan.Token{owner, other}, owner, cond, true)
		require.NoError(t, err)
		require.Len(t, cands, 1)
		assert.Equal(t, leftOn, cands[0].Ref)
		assert.Equal(t, "new(0.0)", cands[0].String())
	})

	t.Run("owner is never its own support", func(t *testing.T) {
		net := stn.New()
		owner := freeToken(t, net, 0, leftOn, 1)
		cond := problem.Condition{Relationship: problem.StartsAfter, Objects: []string{"left"}, Value: "on"}

		cands, err := r.Candidates(net, []*plan.Token{owner}, owner, cond, true)
		require.NoError(t, err)
		require.Len(t, cands, 1)
		assert.True(t, cands[0].IsNew())
	})

	t.Run("unknown object", func(t *testing.T) {
		net := stn.New()
		owner := freeToken(t, net, 0, leftOff, 1)
		cond := problem.Condition{Relationship: problem.MetBy, Objects: []string{"middle"}, Value: "on"}

		_, err := r.Candidates(net, []*plan.Token{owner}, owner, cond, true)
		assert.ErrorIs(t, err, problem.ErrUnknownTimeline)
	})
}
