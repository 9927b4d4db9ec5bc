// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/paraspace/services/planner/capacity"
	"github.com/AleutianAI/paraspace/services/planner/model"
	"github.com/AleutianAI/paraspace/services/planner/plan"
	"github.com/AleutianAI/paraspace/services/planner/problem"
	"github.com/AleutianAI/paraspace/services/planner/resolver"
	"github.com/AleutianAI/paraspace/services/planner/stn"
)

// errPreempted stops a parallel branch once a lower branch has found a plan.
var errPreempted = errors.New("preempted by an earlier branch")

// counters are shared by every branch of one solve.
type counters struct {
	steps      atomic.Int64
	decisions  atomic.Int64
	backtracks atomic.Int64
	created    atomic.Int64
	bounded    atomic.Bool
}

func (c *counters) snapshot(runID string, elapsed time.Duration) problem.SearchStats {
	return problem.SearchStats{
		RunID:         runID,
		Steps:         c.steps.Load(),
		Decisions:     c.decisions.Load(),
		Backtracks:    c.backtracks.Load(),
		TokensCreated: c.created.Load(),
		Elapsed:       elapsed,
	}
}

// openCond is a condition of owner that still needs a support.
type openCond struct {
	owner *plan.Token
	cond  problem.Condition
}

// -----------------------------------------------------------------------------
// Decisions
// -----------------------------------------------------------------------------

type decisionKind int

const (
	decideSupport decisionKind = iota
	decideOrder
	decideCapacity
)

func (k decisionKind) String() string {
	switch k {
	case decideSupport:
		return "support"
	case decideOrder:
		return "order"
	case decideCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// decision is a node of the search tree. Exactly one of candidates and
// orders is used, depending on kind. No choices means a dead end.
type decision struct {
	kind       decisionKind
	open       openCond
	rest       []openCond
	candidates []resolver.Candidate
	orders     []stn.Constraint
}

func (d *decision) size() int {
	if d.kind == decideSupport {
		return len(d.candidates)
	}
	return len(d.orders)
}

// -----------------------------------------------------------------------------
// Search state
// -----------------------------------------------------------------------------

// search is the mutable state of one depth-first exploration.
//
// Thread Safety: Not safe for concurrent use. Parallel branches run on forks.
type search struct {
	ctx      context.Context
	cfg      *Config
	model    *model.Model
	resolver *resolver.Resolver
	logger   *slog.Logger
	progress *rate.Sometimes
	shared   *counters

	// stop, when set, preempts the exploration.
	stop func() bool

	net    *stn.Network
	tokens []*plan.Token
}

func newSearch(ctx context.Context, cfg *Config, m *model.Model, logger *slog.Logger, shared *counters) *search {
	return &search{
		ctx:      ctx,
		cfg:      cfg,
		model:    m,
		resolver: resolver.New(m),
		logger:   logger,
		progress: &rate.Sometimes{Interval: cfg.ProgressInterval},
		shared:   shared,
		net:      stn.New(),
	}
}

// fork returns an independent copy of the state. Tokens are immutable and shared.
func (s *search) fork() *search {
	f := *s
	f.net = s.net.Clone()
	f.tokens = append([]*plan.Token(nil), s.tokens...)
	f.progress = &rate.Sometimes{Interval: s.cfg.ProgressInterval}
	return &f
}

// seed instantiates the problem tokens and returns their open conditions.
func (s *search) seed(tokens []problem.Token) ([]openCond, error) {
	if len(tokens) > s.cfg.MaxTokens {
		return nil, &UnsatisfiableError{
			Bounded: true,
			Reason:  fmt.Sprintf("%d problem tokens exceed the token budget of %d", len(tokens), s.cfg.MaxTokens),
		}
	}
	var open []openCond
	for i, t := range tokens {
		v, err := s.model.Value(t.TimelineName, t.Value)
		if err != nil {
			return nil, err
		}
		_, conds, err := s.instantiate(v.Ref, t.ConstTime, t.Capacity, t.Conditions)
		if err != nil {
			return nil, &UnsatisfiableError{Reason: fmt.Sprintf("token %d (%s.%s): %v", i, t.TimelineName, t.Value, err)}
		}
		open = append(open, conds...)
	}
	return open, nil
}

// instantiate adds a token of ref with its window and duration constraints.
//
// The caller rolls back the network on error; time points added before
// the failure are undone with it.
func (s *search) instantiate(ref model.ValueRef, at problem.TokenTime, capOverride int, extra []problem.Condition) (*plan.Token, []openCond, error) {
	v := s.model.At(ref)
	tok := &plan.Token{
		ID:       len(s.tokens),
		Ref:      ref,
		Start:    s.net.AddTimepoint(),
		End:      s.net.AddTimepoint(),
		Capacity: v.Capacity,
	}
	if capOverride > 0 {
		tok.Capacity = capOverride
	}

	startLo, startHi := at.StartWindow()
	endLo, endHi := at.EndWindow()
	err := s.net.PostAll([]stn.Constraint{
		{From: stn.Origin, To: tok.Start, Lo: startLo, Hi: startHi},
		{From: stn.Origin, To: tok.End, Lo: endLo, Hi: endHi},
		{From: tok.Start, To: tok.End, Lo: v.Duration.Min, Hi: v.Duration.Max},
	})
	if err != nil {
		return nil, nil, err
	}
	s.tokens = append(s.tokens, tok)

	var open []openCond
	if at.RequiresSupport() {
		for _, c := range v.Conditions {
			open = append(open, openCond{owner: tok, cond: c})
		}
	}
	for _, c := range extra {
		open = append(open, openCond{owner: tok, cond: c})
	}
	return tok, open, nil
}

// -----------------------------------------------------------------------------
// Exploration
// -----------------------------------------------------------------------------

// run explores from open and returns the search holding the first plan found.
func (s *search) run(open []openCond) (*search, error) {
	var (
		found bool
		err   error
		best  = s
	)
	if s.cfg.Workers > 1 {
		best, found, err = s.parallel(open)
	} else {
		found, err = s.dfs(open, 0)
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &UnsatisfiableError{Steps: s.shared.steps.Load(), Bounded: s.shared.bounded.Load()}
	}
	return best, nil
}

// dfs explores the subtree below open. On success the state holds the plan.
func (s *search) dfs(open []openCond, depth int) (bool, error) {
	if err := s.tick(depth); err != nil {
		return false, err
	}
	d, err := s.decide(open)
	if err != nil {
		return false, err
	}
	if d == nil {
		return true, nil
	}
	if s.cfg.MaxDepth > 0 && depth >= s.cfg.MaxDepth {
		s.shared.bounded.Store(true)
		return false, nil
	}
	s.shared.decisions.Add(1)

	for i := 0; i < d.size(); i++ {
		mark := s.net.Checkpoint()
		ntok := len(s.tokens)

		next, err := s.apply(d, i)
		if err == nil {
			found, err := s.dfs(next, depth+1)
			if err != nil {
				return false, err
			}
			if found {
				return true, nil
			}
		} else if !errors.Is(err, stn.ErrInconsistent) {
			return false, err
		}

		s.net.Rollback(mark)
		s.tokens = s.tokens[:ntok]
		s.shared.backtracks.Add(1)
	}
	return false, nil
}

// tick counts a decision point and checks the abort conditions.
func (s *search) tick(depth int) error {
	steps := s.shared.steps.Add(1)
	if s.cfg.MaxSteps > 0 && steps > s.cfg.MaxSteps {
		return &AbortError{Reason: CancelStepLimit, Steps: steps - 1}
	}
	if err := s.ctx.Err(); err != nil {
		reason := CancelUser
		if errors.Is(err, context.DeadlineExceeded) {
			reason = CancelTimeout
		}
		return &AbortError{Reason: reason, Steps: steps, Cause: err}
	}
	if s.stop != nil && s.stop() {
		return errPreempted
	}
	s.progress.Do(func() {
		s.logger.Debug("search progress",
			slog.Int64("steps", steps),
			slog.Int64("backtracks", s.shared.backtracks.Load()),
			slog.Int("tokens", len(s.tokens)),
			slog.Int("depth", depth),
		)
	})
	return nil
}

// decide picks the next decision: the oldest open condition, then the first
// unsettled exclusive pair, then the first capacity peak. Nil means the
// state is a plan.
func (s *search) decide(open []openCond) (*decision, error) {
	if len(open) > 0 {
		allowNew := len(s.tokens) < s.cfg.MaxTokens
		if !allowNew {
			s.shared.bounded.Store(true)
		}
		cands, err := s.resolver.Candidates(s.net, s.tokens, open[0].owner, open[0].cond, allowNew)
		if err != nil {
			return nil, err
		}
		return &decision{kind: decideSupport, open: open[0], rest: open[1:], candidates: cands}, nil
	}

	ord, ok, err := capacity.NextOrdering(s.net, s.tokens)
	if errors.Is(err, capacity.ErrOverlap) {
		return &decision{kind: decideOrder}, nil
	}
	if err != nil {
		return nil, err
	}
	if ok {
		return &decision{kind: decideOrder, orders: ord.Options}, nil
	}

	if set := capacity.Overload(s.intervals()); set != nil {
		return &decision{kind: decideCapacity, orders: capacity.PairOrders(set)}, nil
	}
	return nil, nil
}

// apply takes choice i of d and returns the open conditions below it.
func (s *search) apply(d *decision, i int) ([]openCond, error) {
	if d.kind != decideSupport {
		return nil, s.net.Post(d.orders[i])
	}

	cand := d.candidates[i]
	owner, cond := d.open.owner, d.open.cond
	if !cand.IsNew() {
		return d.rest, s.net.PostAll(resolver.Constraints(cond.Relationship, cond.Amount, owner, cand.Existing))
	}

	tok, added, err := s.instantiate(cand.Ref, problem.Goal(), 0, nil)
	if err != nil {
		return nil, err
	}
	s.shared.created.Add(1)
	if err := s.net.PostAll(resolver.Constraints(cond.Relationship, cond.Amount, owner, tok)); err != nil {
		return nil, err
	}
	next := make([]openCond, 0, len(d.rest)+len(added))
	next = append(next, d.rest...)
	return append(next, added...), nil
}

// intervals places every token at its reported times.
func (s *search) intervals() []capacity.Interval {
	out := make([]capacity.Interval, 0, len(s.tokens))
	for _, tok := range s.tokens {
		end := s.net.Earliest(tok.End)
		if s.net.UnboundedAbove(tok.End) {
			end = math.Inf(1)
		}
		out = append(out, capacity.Interval{Token: tok, Start: s.net.Earliest(tok.Start), End: end})
	}
	return out
}
