// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"github.com/AleutianAI/paraspace/services/planner/problem"
)

// Solve statuses.
const (
	StatusSolved        = "solved"
	StatusUnsatisfiable = "unsatisfiable"
)

// StatusClientClosedRequest is the non-standard status for a request the
// client cancelled before the search finished.
const StatusClientClosedRequest = 499

// SolveRequest is the body of POST /v1/plan/solve and /v1/plan/validate.
type SolveRequest struct {
	// Problem is the planning problem.
	Problem *problem.Problem `json:"problem"`

	// Options override the server's search limits for this request.
	Options *SolveOptions `json:"options,omitempty"`
}

// SolveOptions are per-request search limits. Zero fields keep the server
// value; larger values are capped at it.
type SolveOptions struct {
	TimeoutMs int64 `json:"timeout_ms,omitempty" validate:"gte=0"`
	MaxSteps  int64 `json:"max_steps,omitempty" validate:"gte=0"`
	MaxTokens int   `json:"max_tokens,omitempty" validate:"gte=0"`
	Workers   int   `json:"workers,omitempty" validate:"gte=0"`
}

// SolveResponse is the body of a completed solve.
type SolveResponse struct {
	// Status is "solved" or "unsatisfiable".
	Status string `json:"status"`

	// Solution is set when Status is "solved".
	Solution *problem.Solution `json:"solution,omitempty"`

	// Bounded is true when an unsatisfiable verdict only holds within the
	// search limits.
	Bounded bool `json:"bounded,omitempty"`

	// Reason elaborates an unsatisfiable verdict.
	Reason string `json:"reason,omitempty"`
}

// ValidateResponse is the body of POST /v1/plan/validate.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// HealthResponse is the body of GET /v1/plan/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every error status.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`

	// Issues lists every defect of a malformed problem.
	Issues []string `json:"issues,omitempty"`
}
