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
	"time"

	"github.com/go-playground/validator/v10"
)

var configValidate = validator.New()

// Config configures the search.
type Config struct {
	// MaxTokens bounds the number of tokens in a plan, problem tokens
	// included. Branches that would exceed it are pruned.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"gte=1"`

	// MaxSteps aborts the search with ErrTimeout after this many decision
	// points. Zero means unlimited.
	MaxSteps int64 `yaml:"max_steps" json:"max_steps" validate:"gte=0"`

	// MaxDepth prunes branches deeper than this many decisions. Zero means unlimited.
	MaxDepth int `yaml:"max_depth" json:"max_depth" validate:"gte=0"`

	// Timeout aborts the search with ErrTimeout. Zero means no timeout
	// beyond the caller's context.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`

	// Workers explores the branches of the first decision concurrently
	// when greater than one.
	Workers int `yaml:"workers" json:"workers" validate:"gte=1,lte=256"`

	// ProgressInterval is how often search progress is logged at debug level.
	ProgressInterval time.Duration `yaml:"progress_interval" json:"progress_interval" validate:"gte=0"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxTokens:        64,
		MaxSteps:         1_000_000,
		MaxDepth:         0,
		Timeout:          30 * time.Second,
		Workers:          1,
		ProgressInterval: 1 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
