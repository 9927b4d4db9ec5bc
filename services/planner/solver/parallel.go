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
	"errors"
	"log/slog"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/paraspace/services/planner/stn"
)

// branchResult is the outcome of one root branch.
type branchResult struct {
	state *search
	found bool
	err   error
}

// parallel explores the branches of the root decision concurrently.
//
// Description:
//
//	Each branch runs on a fork of the root state. Branches are scanned in
//	order afterwards and the first one that found a plan or aborted
//	decides the result, so the outcome matches the sequential search.
//	Once branch i has found a plan, branches after i are preempted.
//
// Outputs:
//   - *search: The branch state holding the plan.
//   - bool: Whether a plan was found.
//   - error: An *AbortError, or a non-search failure.
func (s *search) parallel(open []openCond) (*search, bool, error) {
	if err := s.tick(0); err != nil {
		return nil, false, err
	}
	d, err := s.decide(open)
	if err != nil {
		return nil, false, err
	}
	if d == nil {
		return s, true, nil
	}
	s.shared.decisions.Add(1)

	s.logger.Debug("parallel root split",
		slog.String("decision", d.kind.String()),
		slog.Int("branches", d.size()),
		slog.Int("workers", s.cfg.Workers),
	)

	var best atomic.Int64
	best.Store(math.MaxInt64)

	results := make([]branchResult, d.size())
	g, gctx := errgroup.WithContext(s.ctx)
	g.SetLimit(s.cfg.Workers)
	for i := 0; i < d.size(); i++ {
		g.Go(func() error {
			branch := s.fork()
			branch.ctx = gctx
			branch.stop = func() bool { return best.Load() < int64(i) }
			if branch.stop() {
				results[i] = branchResult{err: errPreempted}
				return nil
			}

			next, err := branch.apply(d, i)
			if err != nil {
				if !errors.Is(err, stn.ErrInconsistent) {
					results[i] = branchResult{err: err}
				}
				s.shared.backtracks.Add(1)
				return nil
			}
			found, err := branch.dfs(next, 1)
			results[i] = branchResult{state: branch, found: found, err: err}
			if found {
				for {
					cur := best.Load()
					if cur <= int64(i) || best.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			} else if err == nil {
				s.shared.backtracks.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if errors.Is(r.err, errPreempted) {
			continue
		}
		if r.err != nil {
			return nil, false, r.err
		}
		if r.found {
			return r.state, true, nil
		}
	}
	return nil, false, nil
}
