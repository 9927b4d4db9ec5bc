// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package capacity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AleutianAI/paraspace/services/planner/plan"
	"github.com/AleutianAI/paraspace/services/planner/stn"
)

// ErrOverlap is returned when two exclusive tokens can be ordered neither way.
var ErrOverlap = errors.New("exclusive tokens must overlap")

// -----------------------------------------------------------------------------
// Exclusive pairs
// -----------------------------------------------------------------------------

// Ordering is an unresolved disjunction between two exclusive tokens.
//
// Options lists the admissible precedences, "first before second" before
// "second before first". It has one entry when only one order is possible.
type Ordering struct {
	First   *plan.Token
	Second  *plan.Token
	Options []stn.Constraint
}

// Exclusive reports whether a and b must not overlap: they are distinct
// tokens on the same timeline that do not share a value with capacity.
func Exclusive(a, b *plan.Token) bool {
	return a.ID != b.ID && a.Timeline() == b.Timeline() && !a.Shares(b)
}

// PairStatus describes the order between two exclusive tokens.
type PairStatus struct {
	A, B *plan.Token

	// Settled is true when the network already keeps A and B apart.
	Settled bool

	// Options lists the admissible precedences of an unsettled pair, "A
	// before B" before "B before A". Empty for an unsettled pair means the
	// tokens must overlap.
	Options []stn.Constraint
}

// Conflict reports whether the pair can be ordered neither way.
func (p PairStatus) Conflict() bool {
	return !p.Settled && len(p.Options) == 0
}

// ExclusivePairs reports the status of every exclusive pair in instantiation order.
func ExclusivePairs(net *stn.Network, tokens []*plan.Token) []PairStatus {
	var out []PairStatus
	for i, a := range tokens {
		for _, b := range tokens[i+1:] {
			if Exclusive(a, b) {
				out = append(out, status(net, a, b))
			}
		}
	}
	return out
}

// NextOrdering returns the first exclusive pair whose order is not yet decided.
//
// Description:
//
//	Pairs are scanned in instantiation order. A pair is settled when one
//	precedence is entailed by the network, or when either token is forced
//	to zero length (half-open intervals of length zero never overlap).
//	Non-overlap is a disjunction, so it is left to the search as a
//	decision instead of being posted to the network.
//
// Outputs:
//   - Ordering: The pair and its admissible orders.
//   - bool: False when every exclusive pair is settled.
//   - error: ErrOverlap when some pair admits neither order.
func NextOrdering(net *stn.Network, tokens []*plan.Token) (Ordering, bool, error) {
	for i, a := range tokens {
		for _, b := range tokens[i+1:] {
			if !Exclusive(a, b) {
				continue
			}
			st := status(net, a, b)
			if st.Settled {
				continue
			}
			if st.Conflict() {
				return Ordering{}, false, fmt.Errorf("%w: %s and %s", ErrOverlap, a, b)
			}
			return Ordering{First: a, Second: b, Options: st.Options}, true, nil
		}
	}
	return Ordering{}, false, nil
}

func status(net *stn.Network, a, b *plan.Token) PairStatus {
	st := PairStatus{A: a, B: b}
	if settled(net, a, b) {
		st.Settled = true
		return st
	}
	for _, c := range []stn.Constraint{a.Precedes(b), b.Precedes(a)} {
		if net.Admits([]stn.Constraint{c}) {
			st.Options = append(st.Options, c)
		}
	}
	return st
}

func settled(net *stn.Network, a, b *plan.Token) bool {
	before := a.Precedes(b)
	after := b.Precedes(a)
	return net.Entails(before.From, before.To, before.Lo, before.Hi) ||
		net.Entails(after.From, after.To, after.Lo, after.Hi) ||
		net.Entails(a.Start, a.End, 0, 0) ||
		net.Entails(b.Start, b.End, 0, 0)
}

// -----------------------------------------------------------------------------
// Shared-value peaks
// -----------------------------------------------------------------------------

// Interval is a token placed at concrete times. End may be +Inf.
type Interval struct {
	Token *plan.Token
	Start float64
	End   float64
}

// Overload finds a point in time where shared tokens exceed their capacity.
//
// Description:
//
//	Tokens of a shared value on one timeline may overlap up to the
//	smallest capacity among the active ones. The sweep visits the
//	half-open intervals [Start, End) per timeline and value; the first
//	time the active count exceeds the capacity it returns the token with
//	that capacity together with capacity other active tokens, ordered by
//	ID. At least one pair of the set must be ordered in any valid plan.
//
// Outputs:
//   - []*plan.Token: The conflicting tokens, or nil when capacity holds.
func Overload(intervals []Interval) []*plan.Token {
	groups := make(map[[2]int][]Interval)
	var keys [][2]int
	for _, iv := range intervals {
		if iv.Token.Capacity <= 0 || iv.End <= iv.Start+stn.Epsilon {
			continue
		}
		key := [2]int{iv.Token.Ref.Timeline, iv.Token.Ref.Value}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], iv)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	for _, key := range keys {
		if set := sweep(groups[key]); set != nil {
			return set
		}
	}
	return nil
}

type event struct {
	at    float64
	start bool
	iv    Interval
}

func sweep(ivs []Interval) []*plan.Token {
	events := make([]event, 0, 2*len(ivs))
	for _, iv := range ivs {
		events = append(events, event{at: iv.Start, start: true, iv: iv}, event{at: iv.End - stn.Epsilon, iv: iv})
	}
	// Ends are pulled back by Epsilon and sort before starts at the same
	// instant: [a, b) and [b, c) do not overlap.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		if events[i].start != events[j].start {
			return !events[i].start
		}
		return events[i].iv.Token.ID < events[j].iv.Token.ID
	})

	active := make(map[int]*plan.Token)
	for _, ev := range events {
		if !ev.start {
			delete(active, ev.iv.Token.ID)
			continue
		}
		active[ev.iv.Token.ID] = ev.iv.Token
		if set := peak(active); set != nil {
			return set
		}
	}
	return nil
}

// peak returns the tightest token plus capacity others by ID, or nil when
// the active tokens fit within the smallest capacity among them.
func peak(active map[int]*plan.Token) []*plan.Token {
	byID := make([]*plan.Token, 0, len(active))
	for _, tok := range active {
		byID = append(byID, tok)
	}
	sort.Slice(byID, func(i, j int) bool { return byID[i].ID < byID[j].ID })

	tight := byID[0]
	for _, tok := range byID[1:] {
		if tok.Capacity < tight.Capacity {
			tight = tok
		}
	}
	if len(byID) <= tight.Capacity {
		return nil
	}

	set := make([]*plan.Token, 0, tight.Capacity+1)
	others := 0
	for _, tok := range byID {
		switch {
		case tok == tight:
			set = append(set, tok)
		case others < tight.Capacity:
			set = append(set, tok)
			others++
		}
	}
	return set
}

// PairOrders returns the precedences between members of a conflict set,
// in the order the search tries them.
func PairOrders(set []*plan.Token) []stn.Constraint {
	var out []stn.Constraint
	for i, a := range set {
		for _, b := range set[i+1:] {
			out = append(out, a.Precedes(b), b.Precedes(a))
		}
	}
	return out
}
