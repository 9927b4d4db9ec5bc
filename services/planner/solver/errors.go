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
	"fmt"
)

// Package-level error definitions.
var (
	// ErrUnsatisfiable is returned when the search is exhausted without a plan.
	ErrUnsatisfiable = errors.New("no valid plan exists")

	// ErrCancelled is returned when the caller cancelled the search.
	ErrCancelled = errors.New("search cancelled")

	// ErrTimeout is returned when the search ran out of time or steps.
	ErrTimeout = errors.New("search timed out")

	// ErrInvalidConfig is returned for a configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// -----------------------------------------------------------------------------
// Abort
// -----------------------------------------------------------------------------

// CancelType indicates why a search was aborted.
type CancelType int

const (
	// CancelUser indicates the caller's context was cancelled.
	CancelUser CancelType = iota

	// CancelTimeout indicates a deadline passed.
	CancelTimeout

	// CancelStepLimit indicates Config.MaxSteps was reached.
	CancelStepLimit
)

// String returns the string representation of the cancel type.
func (t CancelType) String() string {
	switch t {
	case CancelUser:
		return "user"
	case CancelTimeout:
		return "timeout"
	case CancelStepLimit:
		return "step_limit"
	default:
		return "unknown"
	}
}

// AbortError reports a search stopped before it reached a decision.
//
// errors.Is matches ErrCancelled for CancelUser and ErrTimeout otherwise.
type AbortError struct {
	Reason CancelType
	Steps  int64
	Cause  error
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("search aborted (%s) after %d steps", e.Reason, e.Steps)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the abort reason.
func (e *AbortError) Is(target error) bool {
	switch target {
	case ErrCancelled:
		return e.Reason == CancelUser
	case ErrTimeout:
		return e.Reason != CancelUser
	}
	return false
}

// -----------------------------------------------------------------------------
// Unsatisfiable
// -----------------------------------------------------------------------------

// UnsatisfiableError reports an exhausted search.
//
// Bounded is set when some branch was pruned by MaxTokens or MaxDepth:
// no plan exists within those bounds, but a larger one might.
type UnsatisfiableError struct {
	Steps   int64
	Bounded bool
	Reason  string
}

func (e *UnsatisfiableError) Error() string {
	msg := ErrUnsatisfiable.Error()
	if e.Bounded {
		msg += " within the search bounds"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return fmt.Sprintf("%s (%d steps)", msg, e.Steps)
}

func (e *UnsatisfiableError) Unwrap() error {
	return ErrUnsatisfiable
}
