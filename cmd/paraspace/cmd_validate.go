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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/paraspace/pkg/ux"
	"github.com/AleutianAI/paraspace/services/planner/model"
	"github.com/AleutianAI/paraspace/services/planner/problem"
)

func (a *app) runValidate(cmd *cobra.Command, args []string) error {
	p, err := problem.Load(args[0])
	if err != nil {
		return err
	}

	printer := ux.NewPrinter(cmd.OutOrStdout(), "")
	m, err := model.Compile(p)
	if err != nil {
		reportFailure(printer, err)
		return err
	}

	values := 0
	for _, tl := range m.Timelines() {
		values += len(tl.Values)
	}
	printer.Success(fmt.Sprintf("%s is valid: %d timelines, %d values, %d tokens",
		args[0], len(m.Timelines()), values, len(p.Tokens)))
	return nil
}
