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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/paraspace/cmd/paraspace/config"
	"github.com/AleutianAI/paraspace/pkg/logging"
	"github.com/AleutianAI/paraspace/services/planner/problem"
	"github.com/AleutianAI/paraspace/services/planner/solver"
)

// Exit codes.
const (
	exitOK            = 0
	exitError         = 1
	exitUnsatisfiable = 2
	exitAborted       = 3
	exitMalformed     = 4
)

// app holds what every command needs once flags are parsed.
type app struct {
	// --- Global flags ---
	configPath string
	logLevel   string
	logJSON    bool

	// --- solve flags ---
	timeout      time.Duration
	maxSteps     int64
	maxTokens    int
	workers      int
	outputFormat string

	// --- serve flags ---
	port int

	cfg    *config.ParaspaceConfig
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "paraspace",
		Short: "A timeline-based temporal planner",
		Long: `paraspace finds a plan for a set of timelines: a value for every token,
with start and end times that satisfy every condition, duration and capacity.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	solveCmd := &cobra.Command{
		Use:   "solve [problem file]",
		Short: "Solve a YAML or JSON problem file and print the plan",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runSolve, // Defined in cmd_solve.go
	}
	validateCmd := &cobra.Command{
		Use:   "validate [problem file]",
		Short: "Check a problem file and list every defect",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runValidate, // Defined in cmd_validate.go
	}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner HTTP API",
		Args:  cobra.NoArgs,
		RunE:  a.runServe, // Defined in cmd_serve.go
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Config file (default ~/.paraspace/paraspace.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Log as JSON")

	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().DurationVar(&a.timeout, "timeout", 0, "Search timeout, e.g. 30s (0 disables)")
	solveCmd.Flags().Int64Var(&a.maxSteps, "max-steps", 0, "Abort after this many decision points (0 means unlimited)")
	solveCmd.Flags().IntVar(&a.maxTokens, "max-tokens", 0, "Maximum number of tokens in the plan")
	solveCmd.Flags().IntVar(&a.workers, "workers", 0, "Explore the first decision with this many workers")
	solveCmd.Flags().StringVarP(&a.outputFormat, "output", "o", "",
		"Output format: json, yaml or table (default table on a terminal, json otherwise)")

	rootCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&a.port, "port", 0, "Listen port (overrides the config file)")

	return rootCmd
}

// setup loads the config file and applies the flags that override it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	flags := cmd.Flags()
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}
	if flags.Changed("timeout") {
		cfg.Solver.Timeout = a.timeout
	}
	if flags.Changed("max-steps") {
		cfg.Solver.MaxSteps = a.maxSteps
	}
	if flags.Changed("max-tokens") {
		cfg.Solver.MaxTokens = a.maxTokens
	}
	if flags.Changed("workers") {
		cfg.Solver.Workers = a.workers
	}
	if flags.Changed("port") {
		cfg.Server.Port = a.port
	}
	if err := cfg.Solver.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "paraspace",
		JSON:    cfg.Log.JSON,
		Writer:  cmd.ErrOrStderr(),
	})
	return nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, problem.ErrMalformedProblem):
		return exitMalformed
	case errors.Is(err, solver.ErrUnsatisfiable):
		return exitUnsatisfiable
	case errors.Is(err, solver.ErrCancelled), errors.Is(err, solver.ErrTimeout):
		return exitAborted
	default:
		return exitError
	}
}

func unsupportedFormat(format string) error {
	return fmt.Errorf("unsupported output format %q (want json, yaml or table)", format)
}
