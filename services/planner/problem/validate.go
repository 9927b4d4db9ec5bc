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
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}()

// Validate checks the shape of a problem without resolving references.
//
// Description:
//
//	Runs struct-tag validation, then checks name uniqueness, duration
//	bounds, relationships and fixed token times. References between
//	timelines, values and groups are resolved by the timeline model.
//
// Outputs:
//   - error: nil, or a *MalformedProblemError listing every issue.
func Validate(p *Problem) error {
	if p == nil {
		return &MalformedProblemError{Issues: []*ValidationIssue{
			{Err: ErrInvalidField, Detail: "problem is nil"},
		}}
	}
	issues := Check(p)
	if len(issues) > 0 {
		return &MalformedProblemError{Issues: issues}
	}
	return nil
}

// Check returns the shape issues of p. It is Validate without the wrapping.
func Check(p *Problem) []*ValidationIssue {
	var issues []*ValidationIssue

	if err := structValidate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []*ValidationIssue{{Err: ErrInvalidField, Detail: err.Error()}}
		}
		for _, fe := range fieldErrs {
			issues = append(issues, &ValidationIssue{
				Path:   strings.TrimPrefix(fe.Namespace(), "Problem."),
				Err:    ErrInvalidField,
				Detail: fmt.Sprintf("failed %q constraint", fe.Tag()),
			})
		}
	}

	timelineNames := make(map[string]bool, len(p.Timelines))
	for ti, tl := range p.Timelines {
		path := fmt.Sprintf("timelines[%d]", ti)
		if tl.Name != "" && timelineNames[tl.Name] {
			issues = append(issues, NewIssue(path, ErrDuplicateName, "timeline %q", tl.Name))
		}
		timelineNames[tl.Name] = true

		valueNames := make(map[string]bool, len(tl.Values))
		for vi, v := range tl.Values {
			vpath := fmt.Sprintf("%s.values[%d]", path, vi)
			if v.Name != "" && valueNames[v.Name] {
				issues = append(issues, NewIssue(vpath, ErrDuplicateName, "value %q on timeline %q", v.Name, tl.Name))
			}
			valueNames[v.Name] = true

			if issue := checkDuration(vpath+".duration", v.Duration); issue != nil {
				issues = append(issues, issue)
			}
			for ci, c := range v.Conditions {
				issues = append(issues, checkCondition(fmt.Sprintf("%s.conditions[%d]", vpath, ci), c)...)
			}
		}
	}

	groupNames := make(map[string]bool, len(p.Groups))
	for gi, g := range p.Groups {
		path := fmt.Sprintf("groups[%d]", gi)
		if g.Name != "" && (groupNames[g.Name] || timelineNames[g.Name]) {
			issues = append(issues, NewIssue(path, ErrDuplicateName, "group %q", g.Name))
		}
		groupNames[g.Name] = true
	}

	for ki, tok := range p.Tokens {
		path := fmt.Sprintf("tokens[%d]", ki)
		if issue := checkTokenTime(path+".const_time", tok.ConstTime); issue != nil {
			issues = append(issues, issue)
		}
		for ci, c := range tok.Conditions {
			issues = append(issues, checkCondition(fmt.Sprintf("%s.conditions[%d]", path, ci), c)...)
		}
	}

	return issues
}

func checkDuration(path string, d Duration) *ValidationIssue {
	switch {
	case math.IsNaN(d.Min) || math.IsNaN(d.Max):
		return NewIssue(path, ErrInvalidDuration, "NaN bound")
	case d.Min < 0 || math.IsInf(d.Min, 0):
		return NewIssue(path, ErrInvalidDuration, "min %v must be finite and non-negative", d.Min)
	case d.Max <= 0:
		return NewIssue(path, ErrInvalidDuration, "max %v must be positive", d.Max)
	case d.Max < d.Min:
		return NewIssue(path, ErrInvalidDuration, "max %v is below min %v", d.Max, d.Min)
	}
	return nil
}

func checkCondition(path string, c Condition) []*ValidationIssue {
	var issues []*ValidationIssue
	if !c.Relationship.Valid() {
		issues = append(issues, NewIssue(path, ErrInvalidRelationship, "%d", int(c.Relationship)))
	}
	if len(c.Objects) == 0 {
		issues = append(issues, NewIssue(path, ErrEmptyObjects, "value %q", c.Value))
	}
	if math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
		issues = append(issues, NewIssue(path, ErrInvalidField, "amount %v must be finite", c.Amount))
	}
	return issues
}

func checkTokenTime(path string, t TokenTime) *ValidationIssue {
	if t.Kind != TimeFixed {
		return nil
	}
	for _, at := range []*float64{t.Start, t.End} {
		if at != nil && (math.IsNaN(*at) || math.IsInf(*at, 0) || *at < 0) {
			return NewIssue(path, ErrInvalidTime, "time %v must be finite and non-negative", *at)
		}
	}
	if t.Start != nil && t.End != nil && *t.End < *t.Start {
		return NewIssue(path, ErrInvalidTime, "end %v is before start %v", *t.End, *t.Start)
	}
	return nil
}
