// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// graphprof renders ranked performance reports from execution-engine run
// traces. It is the diagnostics consumer of the profiler library: the
// engine pipes one run's trace in, graphprof prints the report.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lanternml/graphprof/pkg/logging"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	flagVerbose  bool // Enable debug logging
	flagJSONLogs bool // Emit logs as JSON
	flagQuiet    bool // Suppress all logs below error
)

// logger is the process-wide logger, configured in PersistentPreRun.
var logger = logging.Default()

// =============================================================================
// ROOT COMMAND
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "graphprof",
	Short: "Render performance reports for compiled computation graph runs",
	Long: `graphprof turns a single run's per-operation cycle trace into a
ranked, human-readable performance report.

The execution engine emits one JSON object per line as operations complete;
graphprof replays them into an execution profile and prints, per subgraph,
the itemized cost report and a per-category summary table.

Examples:
  engine run model.bin --emit-trace | graphprof report --device tpu.yaml
  graphprof report --device gpu.yaml --trace run.jsonl --subgraph main`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false,
		"Emit logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false,
		"Only log errors")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if flagVerbose {
			level = logging.LevelDebug
		}
		if flagQuiet {
			level = logging.LevelError
		}
		logger = logging.New(logging.Config{
			Level:   level,
			Service: "graphprof",
			JSON:    flagJSONLogs,
		})
	}
}
