// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the solver over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/paraspace/services/planner/model"
	"github.com/AleutianAI/paraspace/services/planner/problem"
	"github.com/AleutianAI/paraspace/services/planner/solver"
)

// ServiceVersion is the planner API version.
const ServiceVersion = "0.1.0"

var (
	meter           = otel.Meter("paraspace.api")
	optionsValidate = validator.New()
)

// Handlers contains the HTTP handlers of the planner API.
//
// Thread Safety: Safe for concurrent use. Every request gets its own solver.
type Handlers struct {
	cfg     *solver.Config
	logger  *slog.Logger
	metrics *solver.Metrics

	metricsOnce sync.Once
	requests    metric.Int64Counter
}

// NewHandlers creates the handlers.
//
// Inputs:
//   - cfg: Server search limits. Nil uses solver.DefaultConfig().
//   - logger: Request logger. Nil uses slog.Default().
//   - metrics: Solver metrics shared by every request. May be nil.
func NewHandlers(cfg *solver.Config, logger *slog.Logger, metrics *solver.Metrics) *Handlers {
	if cfg == nil {
		cfg = solver.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{cfg: cfg, logger: logger, metrics: metrics}
}

// initMetrics creates the request counter on first use, so that it binds
// to the meter provider installed by telemetry.Init.
func (h *Handlers) initMetrics() {
	h.metricsOnce.Do(func() {
		counter, err := meter.Int64Counter("paraspace_api_requests_total",
			metric.WithDescription("Planner API requests by route and status"),
		)
		if err != nil {
			h.logger.Warn("api metrics disabled", slog.String("error", err.Error()))
			return
		}
		h.requests = counter
	})
}

func (h *Handlers) count(ctx context.Context, route string, status int) {
	h.initMetrics()
	if h.requests == nil {
		return
	}
	h.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

// HandleSolve handles POST /v1/plan/solve.
//
// Description:
//
//	Validates and solves the problem in the request body.
//
// Response:
//
//	200 OK: SolveResponse, status "solved" or "unsatisfiable"
//	400 Bad Request: Unreadable body or invalid options
//	422 Unprocessable Entity: Malformed problem
//	499: Client cancelled the request
//	504 Gateway Timeout: Search timed out or hit the step limit
func (h *Handlers) HandleSolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleSolve"))
	ctx := c.Request.Context()

	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Problem == nil {
		logger.Warn("invalid request body", slog.Any("error", err))
		h.fail(c, "solve", http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if req.Options != nil {
		if err := optionsValidate.Struct(req.Options); err != nil {
			h.fail(c, "solve", http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_OPTIONS"})
			return
		}
	}

	cfg := h.configFor(req.Options)
	if err := cfg.Validate(); err != nil {
		h.fail(c, "solve", http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_OPTIONS"})
		return
	}

	s := solver.New(cfg, solver.WithLogger(logger), solver.WithMetrics(h.metrics))
	sol, err := s.Solve(ctx, req.Problem)

	var unsat *solver.UnsatisfiableError
	var malformed *problem.MalformedProblemError
	switch {
	case err == nil:
		h.respond(c, "solve", http.StatusOK, SolveResponse{Status: StatusSolved, Solution: sol})
	case errors.As(err, &unsat):
		h.respond(c, "solve", http.StatusOK, SolveResponse{
			Status:  StatusUnsatisfiable,
			Bounded: unsat.Bounded,
			Reason:  unsat.Reason,
		})
	case errors.As(err, &malformed):
		h.fail(c, "solve", http.StatusUnprocessableEntity, ErrorResponse{
			Error:  problem.ErrMalformedProblem.Error(),
			Code:   "MALFORMED_PROBLEM",
			Issues: malformed.Messages(),
		})
	case errors.Is(err, solver.ErrCancelled):
		h.fail(c, "solve", StatusClientClosedRequest, ErrorResponse{Error: err.Error(), Code: "CANCELLED"})
	case errors.Is(err, solver.ErrTimeout):
		h.fail(c, "solve", http.StatusGatewayTimeout, ErrorResponse{Error: err.Error(), Code: "TIMEOUT"})
	default:
		logger.Error("solve failed", slog.String("error", err.Error()))
		h.fail(c, "solve", http.StatusInternalServerError, ErrorResponse{Error: "Solve failed", Code: "SOLVE_FAILED"})
	}
}

// HandleValidate handles POST /v1/plan/validate.
//
// Response:
//
//	200 OK: ValidateResponse, listing issues when the problem is malformed
//	400 Bad Request: Unreadable body
func (h *Handlers) HandleValidate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleValidate"))

	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Problem == nil {
		logger.Warn("invalid request body", slog.Any("error", err))
		h.fail(c, "validate", http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	resp := ValidateResponse{Valid: true}
	if _, err := model.Compile(req.Problem); err != nil {
		resp.Valid = false
		var malformed *problem.MalformedProblemError
		if errors.As(err, &malformed) {
			resp.Issues = malformed.Messages()
		} else {
			resp.Issues = []string{err.Error()}
		}
	}
	h.respond(c, "validate", http.StatusOK, resp)
}

// HandleHealth handles GET /v1/plan/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	h.respond(c, "health", http.StatusOK, HealthResponse{Status: "ok", Version: ServiceVersion})
}

// configFor applies per-request options to the server limits. A request
// may tighten any limit but never loosen one.
func (h *Handlers) configFor(opts *SolveOptions) *solver.Config {
	cfg := *h.cfg
	if opts == nil {
		return &cfg
	}
	if opts.TimeoutMs > 0 {
		timeout := time.Duration(opts.TimeoutMs) * time.Millisecond
		if cfg.Timeout == 0 || timeout < cfg.Timeout {
			cfg.Timeout = timeout
		}
	}
	// MaxSteps zero is unlimited on the server side.
	if opts.MaxSteps > 0 && (cfg.MaxSteps == 0 || opts.MaxSteps < cfg.MaxSteps) {
		cfg.MaxSteps = opts.MaxSteps
	}
	if opts.MaxTokens > 0 {
		cfg.MaxTokens = min(cfg.MaxTokens, opts.MaxTokens)
	}
	if opts.Workers > 0 {
		cfg.Workers = min(cfg.Workers, opts.Workers)
	}
	return &cfg
}

func (h *Handlers) respond(c *gin.Context, route string, status int, body any) {
	h.count(c.Request.Context(), route, status)
	c.JSON(status, body)
}

func (h *Handlers) fail(c *gin.Context, route string, status int, body ErrorResponse) {
	h.count(c.Request.Context(), route, status)
	c.AbortWithStatusJSON(status, body)
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
