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
	"fmt"
	"math"
)

// Package-level error definitions.
var (
	// ErrInconsistent is returned when a constraint would create a negative cycle.
	ErrInconsistent = errors.New("temporal network inconsistent")

	// ErrUnknownPoint is returned for a point the network does not hold.
	ErrUnknownPoint = errors.New("unknown time point")

	// ErrInvalidBound is returned for NaN bounds.
	ErrInvalidBound = errors.New("invalid bound")
)

// Epsilon is the tolerance of every comparison in the network.
const Epsilon = 1e-9

// Inf is the unbounded distance.
var Inf = math.Inf(1)

// Point is a time-point variable.
type Point int

// Origin is the fixed time origin, t = 0.
const Origin Point = 0

// Constraint bounds To - From within [Lo, Hi]. Hi may be +Inf and Lo -Inf.
type Constraint struct {
	From Point
	To   Point
	Lo   float64
	Hi   float64
}

// String renders the constraint as "lo <= to - from <= hi".
func (c Constraint) String() string {
	return fmt.Sprintf("%g <= t%d - t%d <= %g", c.Lo, c.To, c.From, c.Hi)
}

// Mark is an undo position returned by Checkpoint.
type Mark struct {
	trail  int
	points int
}

// cell records the previous value of one distance entry.
type cell struct {
	i, j int
	old  float64
}

// -----------------------------------------------------------------------------
// Network
// -----------------------------------------------------------------------------

// Network is a simple temporal network.
//
// Description:
//
//	The network keeps the all-pairs shortest-path matrix of its difference
//	graph: dist[i][j] is the tightest known upper bound of t_j - t_i. Every
//	new edge is propagated through the matrix in O(n²), so bounds are
//	always exact and a negative cycle is detected the moment it would
//	appear. Changes are recorded on a trail so a search can undo them in
//	LIFO order with Checkpoint and Rollback.
//
//	The matrix never holds a negative cycle: a constraint that would create
//	one is rejected and the network is left unchanged.
//
// Thread Safety: Not safe for concurrent use. Use Clone per goroutine.
type Network struct {
	dist  [][]float64
	trail []cell
}

// New creates a network holding only the Origin.
func New() *Network {
	return &Network{dist: [][]float64{{0}}}
}

// Len returns the number of time points, including the Origin.
func (n *Network) Len() int {
	return len(n.dist)
}

// AddTimepoint adds a new unconstrained time point.
func (n *Network) AddTimepoint() Point {
	k := len(n.dist)
	for i := range n.dist {
		n.dist[i] = append(n.dist[i], Inf)
	}
	row := make([]float64, k+1)
	for j := range row {
		row[j] = Inf
	}
	row[k] = 0
	n.dist = append(n.dist, row)
	return Point(k)
}

// AddConstraint posts lo <= to - from <= hi.
//
// Description:
//
//	The constraint is split into the edges from->to (weight hi) and
//	to->from (weight -lo) and propagated. The call is atomic: when it
//	fails the network is exactly as before.
//
// Outputs:
//   - error: ErrInconsistent if the constraint contradicts the network,
//     ErrUnknownPoint or ErrInvalidBound for bad arguments.
func (n *Network) AddConstraint(from, to Point, lo, hi float64) error {
	if !n.has(from) || !n.has(to) {
		return fmt.Errorf("%w: t%d or t%d", ErrUnknownPoint, from, to)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return ErrInvalidBound
	}
	if lo > hi+Epsilon {
		return fmt.Errorf("%w: empty interval [%g, %g]", ErrInconsistent, lo, hi)
	}

	mark := n.Checkpoint()
	if !math.IsInf(hi, 1) {
		if err := n.addEdge(int(from), int(to), hi); err != nil {
			n.Rollback(mark)
			return err
		}
	}
	if !math.IsInf(lo, -1) {
		if err := n.addEdge(int(to), int(from), -lo); err != nil {
			n.Rollback(mark)
			return err
		}
	}
	return nil
}

// Post adds c. See AddConstraint.
func (n *Network) Post(c Constraint) error {
	return n.AddConstraint(c.From, c.To, c.Lo, c.Hi)
}

// PostAll adds every constraint or none of them.
func (n *Network) PostAll(cs []Constraint) error {
	mark := n.Checkpoint()
	for _, c := range cs {
		if err := n.Post(c); err != nil {
			n.Rollback(mark)
			return err
		}
	}
	return nil
}

// Admits reports whether cs could be posted together, leaving the network unchanged.
func (n *Network) Admits(cs []Constraint) bool {
	mark := n.Checkpoint()
	err := n.PostAll(cs)
	n.Rollback(mark)
	return err == nil
}

// addEdge tightens dist[u][v] to w and propagates it.
func (n *Network) addEdge(u, v int, w float64) error {
	if n.dist[v][u]+w < -Epsilon {
		return fmt.Errorf("%w: t%d - t%d <= %g conflicts with t%d - t%d >= %g",
			ErrInconsistent, v, u, w, v, u, -n.dist[v][u])
	}
	if w >= n.dist[u][v] {
		return nil
	}

	size := len(n.dist)
	for i := 0; i < size; i++ {
		diu := n.dist[i][u]
		if math.IsInf(diu, 1) {
			continue
		}
		row := n.dist[i]
		for j := 0; j < size; j++ {
			if i == j {
				continue
			}
			dvj := n.dist[v][j]
			if math.IsInf(dvj, 1) {
				continue
			}
			if cand := diu + w + dvj; cand < row[j] {
				n.trail = append(n.trail, cell{i: i, j: j, old: row[j]})
				row[j] = cand
			}
		}
	}
	return nil
}

// IsConsistent reports whether the network has no negative cycle.
func (n *Network) IsConsistent() bool {
	for i := range n.dist {
		if n.dist[i][i] < -Epsilon {
			return false
		}
		for j := i + 1; j < len(n.dist); j++ {
			if n.dist[i][j]+n.dist[j][i] < -Epsilon {
				return false
			}
		}
	}
	return true
}

// Bounds returns the earliest and latest value of p relative to the Origin.
// latest is +Inf when p is not bounded above.
func (n *Network) Bounds(p Point) (earliest, latest float64) {
	earliest = -n.dist[p][Origin]
	if earliest == 0 {
		earliest = 0 // no negative zero
	}
	return earliest, n.dist[Origin][p]
}

// Earliest returns the earliest value of p. Assigning every point its
// earliest value is a consistent schedule.
func (n *Network) Earliest(p Point) float64 {
	e, _ := n.Bounds(p)
	return e
}

// Distance returns the tightest upper bound of to - from.
func (n *Network) Distance(from, to Point) float64 {
	return n.dist[from][to]
}

// Entails reports whether lo <= to - from <= hi already holds in every schedule.
func (n *Network) Entails(from, to Point, lo, hi float64) bool {
	return -n.dist[to][from] >= lo-Epsilon && n.dist[from][to] <= hi+Epsilon
}

// UnboundedAbove reports whether p can be pushed arbitrarily late
// independently of every other point.
func (n *Network) UnboundedAbove(p Point) bool {
	for q := range n.dist {
		if q != int(p) && !math.IsInf(n.dist[q][p], 1) {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Undo log
// -----------------------------------------------------------------------------

// Checkpoint returns the current undo position.
func (n *Network) Checkpoint() Mark {
	return Mark{trail: len(n.trail), points: len(n.dist)}
}

// Rollback undoes every change made after m, including added time points.
// Marks must be rolled back in LIFO order.
func (n *Network) Rollback(m Mark) {
	for k := len(n.trail) - 1; k >= m.trail; k-- {
		c := n.trail[k]
		n.dist[c.i][c.j] = c.old
	}
	n.trail = n.trail[:m.trail]

	if m.points < len(n.dist) {
		n.dist = n.dist[:m.points]
		for i := range n.dist {
			n.dist[i] = n.dist[i][:m.points]
		}
	}
}

// Clone returns an independent deep copy. Marks taken on n are not valid on the clone.
func (n *Network) Clone() *Network {
	dist := make([][]float64, len(n.dist))
	for i, row := range n.dist {
		dist[i] = append(make([]float64, 0, len(row)), row...)
	}
	return &Network{dist: dist}
}

func (n *Network) has(p Point) bool {
	return p >= 0 && int(p) < len(n.dist)
}
