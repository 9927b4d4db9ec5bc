// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package solver searches for plans over parallel timelines.
//
// The search is a depth-first, chronologically backtracking exploration of
// support and ordering decisions. Every decision posts difference
// constraints to a simple temporal network; an inconsistent network prunes
// the branch and the network's undo log restores the previous state.
package solver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/paraspace/services/planner/model"
	"github.com/AleutianAI/paraspace/services/planner/problem"
)

var tracer = otel.Tracer("paraspace.solver")

// Solver solves planning problems.
//
// Thread Safety: Safe for concurrent use. Each Solve call owns its search state.
type Solver struct {
	cfg     *Config
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records every solve in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Solver) {
		s.metrics = m
	}
}

// New creates a solver.
//
// Inputs:
//   - cfg: Search configuration. Nil uses DefaultConfig(). It is copied.
//   - opts: Optional logger and metrics.
//
// Outputs:
//   - *Solver: Never nil. An invalid cfg is reported by Solve.
func New(cfg *Config, opts ...Option) *Solver {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	s := &Solver{cfg: &c, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns a copy of the solver configuration.
func (s *Solver) Config() Config {
	return *s.cfg
}

// Solve searches for a plan of p.
//
// Description:
//
//	The problem is compiled and validated first, so a malformed problem
//	never reaches the search. Problem tokens are instantiated in order,
//	then the search resolves open conditions, exclusive orderings and
//	capacity peaks until none remain. Start times of the returned plan
//	are the earliest consistent times; an end that nothing bounds from
//	above is reported as +Inf.
//
// Inputs:
//   - ctx: Cancellation. Checked between decision points.
//   - p: The problem. Not modified.
//
// Outputs:
//   - *problem.Solution: The plan, tokens in instantiation order.
//   - error: problem.ErrMalformedProblem, ErrUnsatisfiable, ErrCancelled,
//     ErrTimeout or ErrInvalidConfig. No partial plan is returned.
func (s *Solver) Solve(ctx context.Context, p *problem.Problem) (*problem.Solution, error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "solver.Solve",
		trace.WithAttributes(
			attribute.String("solver.run_id", runID),
			attribute.Int("solver.workers", s.cfg.Workers),
		),
	)
	defer span.End()

	if err := s.cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	m, err := model.Compile(p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed problem")
		s.metrics.observe(OutcomeMalformed, time.Since(start), 0, 0, 0)
		s.logger.Warn("problem rejected",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("problem.timelines", len(p.Timelines)),
		attribute.Int("problem.tokens", len(p.Tokens)),
	)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	s.logger.Info("solve started",
		slog.String("run_id", runID),
		slog.Int("timelines", len(p.Timelines)),
		slog.Int("tokens", len(p.Tokens)),
		slog.Int("workers", s.cfg.Workers),
	)

	shared := &counters{}
	root := newSearch(ctx, s.cfg, m, s.logger.With(slog.String("run_id", runID)), shared)
	open, err := root.seed(p.Tokens)

	var winner *search
	if err == nil {
		winner, err = root.run(open)
	}

	elapsed := time.Since(start)
	stats := shared.snapshot(runID, elapsed)

	if err != nil {
		outcome := OutcomeUnsatisfiable
		var abort *AbortError
		if errors.As(err, &abort) {
			if abort.Reason == CancelUser {
				outcome = OutcomeCancelled
			} else {
				outcome = OutcomeTimeout
			}
		}
		s.metrics.observe(outcome, elapsed, stats.Steps, stats.Backtracks, stats.TokensCreated)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Info("solve failed",
			slog.String("run_id", runID),
			slog.String("outcome", outcome),
			slog.Int64("steps", stats.Steps),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	sol := winner.solution(&stats)
	s.metrics.observe(OutcomeSolved, elapsed, stats.Steps, stats.Backtracks, stats.TokensCreated)
	span.SetAttributes(
		attribute.Int("solution.tokens", len(sol.Tokens)),
		attribute.Int64("solver.steps", stats.Steps),
	)
	span.SetStatus(codes.Ok, "")
	s.logger.Info("solve completed",
		slog.String("run_id", runID),
		slog.Int("tokens", len(sol.Tokens)),
		slog.Int64("steps", stats.Steps),
		slog.Int64("backtracks", stats.Backtracks),
		slog.Duration("duration", elapsed),
	)
	return sol, nil
}

// solution reads the plan off the search state: earliest times, and +Inf
// for ends nothing bounds from above.
func (s *search) solution(stats *problem.SearchStats) *problem.Solution {
	timelines := s.model.Timelines()
	sol := &problem.Solution{
		Tokens: make([]problem.SolutionToken, 0, len(s.tokens)),
		Stats:  stats,
	}
	for _, tok := range s.tokens {
		end := s.net.Earliest(tok.End)
		if s.net.UnboundedAbove(tok.End) {
			end = math.Inf(1)
		}
		sol.Tokens = append(sol.Tokens, problem.SolutionToken{
			TimelineName: timelines[tok.Ref.Timeline].Name,
			Value:        s.model.At(tok.Ref).Name,
			StartTime:    s.net.Earliest(tok.Start),
			EndTime:      end,
		})
	}
	return sol
}
