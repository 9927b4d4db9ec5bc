// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package problem

import (
	"errors"
	"fmt"
	"strings"
)

// Package-level error definitions.
var (
	// ErrMalformedProblem is matched by every load-time problem error.
	ErrMalformedProblem = errors.New("malformed problem")

	ErrUnknownTimeline     = errors.New("unknown timeline")
	ErrUnknownValue        = errors.New("unknown value")
	ErrDuplicateName       = errors.New("duplicate name")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidTime         = errors.New("invalid token time")
	ErrInvalidRelationship = errors.New("invalid temporal relationship")
	ErrEmptyObjects        = errors.New("condition has no objects")
	ErrInvalidField        = errors.New("invalid field")
)

// ValidationIssue is one defect found while loading a problem.
type ValidationIssue struct {
	// Path locates the defect, e.g. "timelines[0].values[1].duration".
	Path string

	// Err is one of the package sentinels.
	Err error

	// Detail is a human-readable elaboration. May be empty.
	Detail string
}

func (i *ValidationIssue) Error() string {
	var b strings.Builder
	if i.Path != "" {
		b.WriteString(i.Path)
		b.WriteString(": ")
	}
	b.WriteString(i.Err.Error())
	if i.Detail != "" {
		b.WriteString(": ")
		b.WriteString(i.Detail)
	}
	return b.String()
}

func (i *ValidationIssue) Unwrap() error {
	return i.Err
}

// NewIssue creates a validation issue with a formatted detail.
func NewIssue(path string, err error, format string, args ...any) *ValidationIssue {
	return &ValidationIssue{Path: path, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// MalformedProblemError aggregates every issue found in a problem.
//
// errors.Is matches ErrMalformedProblem as well as the sentinel of any
// individual issue.
type MalformedProblemError struct {
	Issues []*ValidationIssue
}

func (e *MalformedProblemError) Error() string {
	if len(e.Issues) == 1 {
		return ErrMalformedProblem.Error() + ": " + e.Issues[0].Error()
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	return fmt.Sprintf("%s: %d issues: %s", ErrMalformedProblem, len(e.Issues), strings.Join(msgs, "; "))
}

func (e *MalformedProblemError) Unwrap() []error {
	errs := make([]error, 0, len(e.Issues)+1)
	errs = append(errs, ErrMalformedProblem)
	for _, issue := range e.Issues {
		errs = append(errs, issue)
	}
	return errs
}

// Messages returns the issue messages, for reporting.
func (e *MalformedProblemError) Messages() []string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	return msgs
}
