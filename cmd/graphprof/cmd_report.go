// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanternml/graphprof/pkg/device"
	"github.com/lanternml/graphprof/pkg/profiler"
	"github.com/lanternml/graphprof/pkg/tablefmt"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	reportDevicePath string // Device description YAML (required)
	reportTracePath  string // Trace file, "-" for stdin
	reportSubgraph   string // Restrict the report to one subgraph
	reportTopN       int    // Entries listed per category
	reportNoTable    bool   // Skip the category table
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// reportCmd renders a run trace as a performance report.
//
// # Examples
//
//	engine run model.bin --emit-trace | graphprof report --device tpu.yaml
//	graphprof report --device gpu.yaml --trace run.jsonl
//	graphprof report --device gpu.yaml --trace run.jsonl --subgraph main
//
// # Limitations
//
//   - One trace is one run; merging traces across runs is not supported.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a ranked performance report from a run trace",
	Long: `Reads an execution engine's JSON-lines run trace and prints, per
subgraph, the itemized cycle report and a per-category summary table.

Each trace line is either an operation record:
  {"subgraph":"main","name":"add.1","kind":"add","cycles":1000,"flops":2000,"bytes":500}
or a whole-subgraph total:
  {"subgraph":"main","total_cycles":1200}`,
	RunE: runReportCommand,
}

func init() {
	reportCmd.Flags().StringVarP(&reportDevicePath, "device", "d", "",
		"Device description YAML with the nominal clock rate (required)")
	reportCmd.Flags().StringVarP(&reportTracePath, "trace", "t", "-",
		"Run trace file, or - for stdin")
	reportCmd.Flags().StringVarP(&reportSubgraph, "subgraph", "s", "",
		"Only report the named subgraph")
	reportCmd.Flags().IntVar(&reportTopN, "top", tablefmt.DefaultMaxEntriesPerCategory,
		"Entries listed per category in the summary table")
	reportCmd.Flags().BoolVar(&reportNoTable, "no-table", false,
		"Skip the category summary table")
	_ = reportCmd.MarkFlagRequired("device")

	rootCmd.AddCommand(reportCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runReportCommand(cmd *cobra.Command, args []string) error {
	desc, err := device.Load(reportDevicePath)
	if err != nil {
		return err
	}
	clock, err := profiler.NewClock(desc)
	if err != nil {
		return err
	}
	logger.Debug("device loaded", "name", desc.Name, "clock_rate_ghz", desc.ClockRateGHz)

	var in io.Reader = cmd.InOrStdin()
	if reportTracePath != "-" {
		f, err := os.Open(reportTracePath)
		if err != nil {
			return fmt.Errorf("open trace: %w", err)
		}
		defer f.Close()
		in = f
	}

	rep, err := loadTrace(in)
	if err != nil {
		return err
	}
	logger.Info("trace loaded",
		"run_id", rep.profile.RunID(), "subgraphs", len(rep.subgraphs))

	builder := profiler.NewReportBuilder(rep.profile, clock, rep.analyzer).
		WithLogger(logger)
	if !reportNoTable {
		builder = builder.WithTableRenderer(&tablefmt.Renderer{MaxEntriesPerCategory: reportTopN})
	}

	out := cmd.OutOrStdout()
	matched := false
	for _, sg := range rep.subgraphs {
		if reportSubgraph != "" && sg.Name() != reportSubgraph {
			continue
		}
		matched = true
		report, err := builder.Build(sg)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, report.Text)
	}
	if !matched {
		return fmt.Errorf("subgraph %q not present in trace", reportSubgraph)
	}
	return nil
}
