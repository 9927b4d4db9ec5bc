// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/paraspace/pkg/ux"
	"github.com/AleutianAI/paraspace/services/planner/problem"
	"github.com/AleutianAI/paraspace/services/planner/solver"
	"github.com/AleutianAI/paraspace/services/planner/telemetry"
)

// Output formats of the solve command.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

func (a *app) runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	format := a.outputFormat
	if format == "" {
		format = formatJSON
		if ux.IsTerminal(out) {
			format = formatTable
		}
	}
	if format != formatJSON && format != formatYAML && format != formatTable {
		return unsupportedFormat(format)
	}

	p, err := problem.Load(args[0])
	if err != nil {
		return err
	}

	// Traces only: a one-shot solve has nobody to scrape metrics.
	tel := a.cfg.Telemetry
	tel.MetricExporter = telemetry.ExporterNone
	tel.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(ctx, tel)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	s := solver.New(&a.cfg.Solver, solver.WithLogger(a.logger.Slog()))
	sol, err := s.Solve(ctx, p)
	if err != nil {
		if format == formatTable {
			reportFailure(ux.NewPrinter(cmd.ErrOrStderr(), ""), err)
		}
		return err
	}

	return writeSolution(out, format, sol)
}

// writeSolution renders sol in format.
func writeSolution(w io.Writer, format string, sol *problem.Solution) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sol)

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sol); err != nil {
			return err
		}
		return enc.Close()

	case formatTable:
		p := ux.NewPrinter(w, "")
		p.Title(fmt.Sprintf("Plan: %d tokens", len(sol.Tokens)))
		p.Table(solutionTable(sol))
		if sol.Stats != nil {
			p.Muted(fmt.Sprintf("run %s: %d steps, %d backtracks, %d tokens created in %s",
				sol.Stats.RunID, sol.Stats.Steps, sol.Stats.Backtracks,
				sol.Stats.TokensCreated, sol.Stats.Elapsed))
		}
		return nil

	default:
		return unsupportedFormat(format)
	}
}

// solutionTable lays sol out one token per row.
func solutionTable(sol *problem.Solution) ([]string, [][]string) {
	headers := []string{"TIMELINE", "VALUE", "START", "END", "LENGTH"}
	rows := make([][]string, 0, len(sol.Tokens))
	for _, t := range sol.Tokens {
		end, length := "inf", "inf"
		if !t.Unbounded() {
			end = formatTime(t.EndTime)
			length = formatTime(t.Length())
		}
		rows = append(rows, []string{t.TimelineName, t.Value, formatTime(t.StartTime), end, length})
	}
	return headers, rows
}

func formatTime(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func reportFailure(p *ux.Printer, err error) {
	var unsat *solver.UnsatisfiableError
	var malformed *problem.MalformedProblemError
	switch {
	case errors.As(err, &unsat):
		if unsat.Bounded {
			p.Warning("no plan within the search limits")
		} else {
			p.Error("no plan exists")
		}
		if unsat.Reason != "" {
			p.Bullet(unsat.Reason)
		}
	case errors.As(err, &malformed):
		p.Error("malformed problem")
		for _, msg := range malformed.Messages() {
			p.Bullet(msg)
		}
	}
}
