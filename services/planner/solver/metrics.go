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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of SolvesTotal.
const (
	OutcomeSolved        = "solved"
	OutcomeUnsatisfiable = "unsatisfiable"
	OutcomeMalformed     = "malformed"
	OutcomeCancelled     = "cancelled"
	OutcomeTimeout       = "timeout"
)

// Metrics holds the Prometheus metrics of the solver.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are thread-safe).
// A nil *Metrics records nothing.
type Metrics struct {
	// SolvesTotal counts solve calls by outcome.
	SolvesTotal *prometheus.CounterVec

	// SolveDurationSeconds measures wall time per solve.
	SolveDurationSeconds prometheus.Histogram

	// SearchSteps measures decision points visited per solve.
	SearchSteps prometheus.Histogram

	// BacktracksTotal counts undone branches.
	BacktracksTotal prometheus.Counter

	// TokensCreatedTotal counts tokens instantiated as supports.
	TokensCreatedTotal prometheus.Counter
}

// NewMetrics creates the solver metrics and registers them with reg.
//
// Inputs:
//   - reg: Registerer to use. Nil means prometheus.DefaultRegisterer.
//
// Outputs:
//   - *Metrics: The created metrics. Never nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paraspace",
				Subsystem: "solver",
				Name:      "solves_total",
				Help:      "Total solve calls by outcome",
			},
			[]string{"outcome"},
		),

		SolveDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "paraspace",
				Subsystem: "solver",
				Name:      "solve_duration_seconds",
				Help:      "Wall time of a solve call",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),

		SearchSteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "paraspace",
				Subsystem: "solver",
				Name:      "search_steps",
				Help:      "Decision points visited per solve",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),

		BacktracksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paraspace",
				Subsystem: "solver",
				Name:      "backtracks_total",
				Help:      "Total branches undone by backtracking",
			},
		),

		TokensCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paraspace",
				Subsystem: "solver",
				Name:      "tokens_created_total",
				Help:      "Total support tokens instantiated",
			},
		),
	}
}

func (m *Metrics) observe(outcome string, elapsed time.Duration, steps, backtracks, created int64) {
	if m == nil {
		return
	}
	m.SolvesTotal.WithLabelValues(outcome).Inc()
	m.SolveDurationSeconds.Observe(elapsed.Seconds())
	m.SearchSteps.Observe(float64(steps))
	m.BacktracksTotal.Add(float64(backtracks))
	m.TokensCreatedTotal.Add(float64(created))
}
