// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stn

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	n := New()
	assert.Equal(t, 1, n.Len())
	assert.True(t, n.IsConsistent())

	lo, hi := n.Bounds(Origin)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)
}

func TestNetwork_AddTimepoint(t *testing.T) {
	n := New()
	p := n.AddTimepoint()
	assert.Equal(t, Point(1), p)
	assert.Equal(t, 2, n.Len())

	lo, hi := n.Bounds(p)
	assert.True(t, math.IsInf(lo, -1), "fresh point is unbounded below")
	assert.True(t, math.IsInf(hi, 1), "fresh point is unbounded above")
	assert.True(t, n.UnboundedAbove(p))
}

func TestNetwork_AddConstraint(t *testing.T) {
	t.Run("propagates chained bounds", func(t *testing.T) {
		n := New()
		a := n.AddTimepoint()
		b := n.AddTimepoint()

		require.NoError(t, n.AddConstraint(Origin, a, 2, 4))
		require.NoError(t, n.AddConstraint(a, b, 5, 6))

		lo, hi := n.Bounds(b)
		assert.Equal(t, 7.0, lo)
		assert.Equal(t, 10.0, hi)
		assert.Equal(t, 6.0, n.Distance(a, b))
		assert.Equal(t, -5.0, n.Distance(b, a))
	})

	t.Run("open upper bound stays infinite", func(t *testing.T) {
		n := New()
		a := n.AddTimepoint()
		require.NoError(t, n.AddConstraint(Origin, a, 1, Inf))

		lo, hi := n.Bounds(a)
		assert.Equal(t, 1.0, lo)
		assert.True(t, math.IsInf(hi, 1))
	})

	t.Run("rejects negative cycle atomically", func(t *testing.T) {
		n := New()
		a := n.AddTimepoint()
		b := n.AddTimepoint()
		require.NoError(t, n.AddConstraint(a, b, 5, 10))

		before := n.Checkpoint()
		err := n.AddConstraint(b, a, 1, 2) // a after b contradicts b >= a + 5
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInconsistent))
		assert.Equal(t, before, n.Checkpoint(), "failed post leaves no trail")
		assert.True(t, n.IsConsistent())
		assert.Equal(t, 10.0, n.Distance(a, b))
	})

	t.Run("rejects empty interval", func(t *testing.T) {
		n := New()
		a := n.AddTimepoint()
		err := n.AddConstraint(Origin, a, 3, 2)
		assert.ErrorIs(t, err, ErrInconsistent)
	})

	t.Run("rejects unknown point", func(t *testing.T) {
		n := New()
		err := n.AddConstraint(Origin, Point(7), 0, 1)
		assert.ErrorIs(t, err, ErrUnknownPoint)
	})

	t.Run("rejects NaN", func(t *testing.T) {
		n := New()
		a := n.AddTimepoint()
		assert.ErrorIs(t, n.AddConstraint(Origin, a, math.NaN(), 1), ErrInvalidBound)
	})

	t.Run("equality constraints", func(t *testing.T) {
		n := New()
		a := n.AddTimepoint()
		b := n.AddTimepoint()
		require.NoError(t, n.AddConstraint(Origin, a, 5, 6))
		require.NoError(t, n.AddConstraint(a, b, 0, 0))

		assert.True(t, n.Entails(a, b, 0, 0))
		lo, hi := n.Bounds(b)
		assert.Equal(t, 5.0, lo)
		assert.Equal(t, 6.0, hi)
	})
}

func TestNetwork_Entails(t *testing.T) {
	n := New()
	a := n.AddTimepoint()
	b := n.AddTimepoint()
	require.NoError(t, n.AddConstraint(a, b, 1, 3))

	assert.True(t, n.Entails(a, b, 0, Inf))
	assert.True(t, n.Entails(a, b, 1, 3))
	assert.False(t, n.Entails(a, b, 2, 3))
	assert.False(t, n.Entails(b, a, 0, Inf))
}

func TestNetwork_Admits(t *testing.T) {
	n := New()
	a := n.AddTimepoint()
	b := n.AddTimepoint()
	require.NoError(t, n.AddConstraint(a, b, 1, 3))
	mark := n.Checkpoint()

	assert.True(t, n.Admits([]Constraint{{From: a, To: b, Lo: 2, Hi: 2}}))
	assert.False(t, n.Admits([]Constraint{
		{From: a, To: b, Lo: 2, Hi: 2},
		{From: b, To: a, Lo: 0, Hi: Inf},
	}))
	assert.Equal(t, mark, n.Checkpoint(), "Admits leaves the network unchanged")
}

func TestNetwork_PostAll(t *testing.T) {
	n := New()
	a := n.AddTimepoint()
	b := n.AddTimepoint()
	mark := n.Checkpoint()

	err := n.PostAll([]Constraint{
		{From: Origin, To: a, Lo: 1, Hi: 1},
		{From: a, To: b, Lo: 2, Hi: 2},
		{From: Origin, To: b, Lo: 0, Hi: 2},
	})
	require.ErrorIs(t, err, ErrInconsistent)
	assert.Equal(t, mark, n.Checkpoint())

	lo, _ := n.Bounds(a)
	assert.True(t, math.IsInf(lo, -1), "partial posts are undone")
}

func TestNetwork_Rollback(t *testing.T) {
	n := New()
	a := n.AddTimepoint()
	require.NoError(t, n.AddConstraint(Origin, a, 0, 10))

	mark := n.Checkpoint()
	b := n.AddTimepoint()
	require.NoError(t, n.AddConstraint(a, b, 1, 1))
	require.NoError(t, n.AddConstraint(Origin, b, 4, 4))

	lo, hi := n.Bounds(a)
	assert.Equal(t, 3.0, lo)
	assert.Equal(t, 3.0, hi)

	n.Rollback(mark)
	assert.Equal(t, 2, n.Len())
	lo, hi = n.Bounds(a)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 10.0, hi)

	// Points added after a rollback start unconstrained.
	c := n.AddTimepoint()
	assert.Equal(t, b, c)
	assert.True(t, n.UnboundedAbove(c))
	assert.True(t, math.IsInf(n.Distance(c, a), 1))
}

func TestNetwork_NestedRollback(t *testing.T) {
	n := New()
	a := n.AddTimepoint()

	outer := n.Checkpoint()
	require.NoError(t, n.AddConstraint(Origin, a, 1, 9))
	inner := n.Checkpoint()
	require.NoError(t, n.AddConstraint(Origin, a, 2, 3))

	n.Rollback(inner)
	lo, hi := n.Bounds(a)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 9.0, hi)

	n.Rollback(outer)
	lo, hi = n.Bounds(a)
	assert.True(t, math.IsInf(lo, -1))
	assert.True(t, math.IsInf(hi, 1))
}

func TestNetwork_Clone(t *testing.T) {
	n := New()
	a := n.AddTimepoint()
	require.NoError(t, n.AddConstraint(Origin, a, 1, 5))

	c := n.Clone()
	require.NoError(t, c.AddConstraint(Origin, a, 4, 4))
	c.AddTimepoint()

	lo, hi := n.Bounds(a)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 5.0, hi)
	assert.Equal(t, 2, n.Len())
	assert.Equal(t, 3, c.Len())
}

func TestNetwork_UnboundedAbove(t *testing.T) {
	n := New()
	s1 := n.AddTimepoint()
	e1 := n.AddTimepoint()
	s2 := n.AddTimepoint()
	e2 := n.AddTimepoint()

	require.NoError(t, n.AddConstraint(Origin, s1, 0, Inf))
	require.NoError(t, n.AddConstraint(s1, e1, 5, 6))
	require.NoError(t, n.AddConstraint(e1, s2, 0, 0))
	require.NoError(t, n.AddConstraint(s2, e2, 1, Inf))

	assert.False(t, n.UnboundedAbove(e1))
	assert.True(t, n.UnboundedAbove(e2))

	require.NoError(t, n.AddConstraint(e2, s1, -100, Inf))
	assert.False(t, n.UnboundedAbove(e2), "e2 <= s1 + 100 bounds it")
}

func TestConstraint_String(t *testing.T) {
	c := Constraint{From: 1, To: 2, Lo: 0, Hi: 5}
	assert.Equal(t, "0 <= t2 - t1 <= 5", c.String())
}
