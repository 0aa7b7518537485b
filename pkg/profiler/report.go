// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profiler

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lanternml/graphprof/pkg/costmodel"
	"github.com/lanternml/graphprof/pkg/graph"
	"github.com/lanternml/graphprof/pkg/logging"
)

// ErrCostAnalysis is returned when the cost model cannot analyze the target
// subgraph. The report fails closed: no partial report is produced.
var ErrCostAnalysis = errors.New("cost analysis failed")

// TableConfig configures a TableRenderer invocation.
type TableConfig struct {
	// MetricName names the metric column (e.g. "microseconds").
	MetricName string

	// EntryName names the entry rows collectively (e.g. "ops").
	EntryName string

	// ShowCategories requests per-category aggregation.
	ShowCategories bool
}

// TableEntry is one labeled metric entry handed to a TableRenderer.
type TableEntry struct {
	// Text is the entry's full display text.
	Text string

	// ShortText is the compact display text for dense listings.
	ShortText string

	// Category is the classification label used for aggregation.
	Category string

	// Metric is the entry's metric value, in the configured metric's unit.
	Metric float64
}

// TableRenderer aggregates labeled metric entries into a summarized table.
//
// expectedSum is the metric total the entries are measured against; it is
// tracked separately from the entries and their sum may legitimately
// diverge from it (partial profiling, overlapping execution). Renderers
// should surface the difference, not reconcile it.
//
// TableRenderer is a capability interface so alternative renderers can be
// substituted without touching the report algorithm.
type TableRenderer interface {
	Render(cfg TableConfig, entries []TableEntry, expectedSum float64) string
}

// Report is the tagged result of building a report. A failed report carries
// empty text; check Failed before treating the text as meaningful, so an
// analysis failure is never conflated with a zero-cost subgraph.
type Report struct {
	// Text is the rendered multi-line report. Empty when Failed().
	Text string

	// Subgraph is the name of the reported subgraph.
	Subgraph string

	// RunID identifies the profiling run the report was built from.
	RunID string

	// Items is the number of itemized operation rows.
	Items int

	failed bool
}

// Failed reports whether the report was produced from an error path.
func (r Report) Failed() bool { return r.failed }

// String returns the report text, or "" for a failed report. This is the
// legacy string-only contract; prefer checking Failed.
func (r Report) String() string { return r.Text }

// ReportBuilder renders ranked performance reports from a profile.
//
// Description:
//
//	ReportBuilder reads recorded cycles from an ExecutionProfile, asks the
//	cost model for per-operation FLOP and byte counts, derives metrics at
//	the device clock rate, and formats the itemized report. It holds no
//	mutable state of its own and may build reports for several subgraphs.
//
// Example:
//
//	clock, err := profiler.NewClock(desc)
//	if err != nil { ... }
//	rb := profiler.NewReportBuilder(profile, clock, analyzer).
//	    WithTableRenderer(tablefmt.NewRenderer()).
//	    WithLogger(logger)
//	report, err := rb.Build(subgraph)
type ReportBuilder struct {
	profile  *ExecutionProfile
	clock    Clock
	analyzer costmodel.Analyzer
	table    TableRenderer
	log      *logging.Logger
}

// NewReportBuilder creates a ReportBuilder over a profile, a clock, and a
// cost-model analyzer. No table is rendered until a TableRenderer is set.
func NewReportBuilder(profile *ExecutionProfile, clock Clock, analyzer costmodel.Analyzer) *ReportBuilder {
	return &ReportBuilder{
		profile:  profile,
		clock:    clock,
		analyzer: analyzer,
		log:      logging.Nop(),
	}
}

// WithTableRenderer sets the renderer for the trailing category table.
func (b *ReportBuilder) WithTableRenderer(r TableRenderer) *ReportBuilder {
	b.table = r
	return b
}

// WithLogger sets the logger. Defaults to logging.Nop().
func (b *ReportBuilder) WithLogger(l *logging.Logger) *ReportBuilder {
	if l != nil {
		b.log = l
	}
	return b
}

// item is one (operation, cycles) pair selected for the report.
type item struct {
	op     *graph.Operation
	cycles uint64
}

// Build renders the report for one subgraph.
//
// Description:
//
//	Collects the recorded operations whose parent is the target subgraph,
//	sorts them by cycles descending (ties broken by ascending operation
//	handle, so output is reproducible across runs with identical input),
//	and formats the header, the synthetic [total] row, one row per
//	operation, and either the category table or a zero-total notice.
//
// Outputs:
//
//	Report - The tagged result. Failed() is true on cost-analysis failure.
//	error  - nil, or an error wrapping ErrCostAnalysis.
func (b *ReportBuilder) Build(sg *graph.Subgraph) (Report, error) {
	estimates, err := b.analyzer.Analyze(sg)
	if err != nil {
		b.log.Warn("cost analysis failed, returning failed report",
			"subgraph", sg.Name(), "error", err)
		return Report{Subgraph: sg.Name(), RunID: b.profile.RunID(), failed: true},
			fmt.Errorf("%w: subgraph %q: %v", ErrCostAnalysis, sg.Name(), err)
	}

	// Only operations with a recorded entry are itemized; a zero-cycle
	// record still counts as recorded.
	var items []item
	for _, op := range sg.Operations() {
		if b.profile.has(op) {
			items = append(items, item{op: op, cycles: b.profile.Lookup(op)})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].cycles != items[j].cycles {
			return items[i].cycles > items[j].cycles
		}
		return items[i].op.ID() < items[j].op.ID()
	})

	totalCycles := b.profile.TotalCycles(sg)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Execution profile for %s: (%s @ f_nom)\n\t",
		sg.Name(), elapsedString(b.clock.CyclesToSeconds(totalCycles)))

	b.appendItem(&sb, totalCycles, totalCycles, costmodel.Unknown, costmodel.Unknown, "[total]")
	for _, it := range items {
		sb.WriteString("\n\t")
		est := estimates.For(it.op.ID())
		b.appendItem(&sb, it.cycles, totalCycles, est.FlopCount, est.BytesAccessed, it.op.String())
	}
	sb.WriteString("\n")

	if totalCycles == 0 {
		sb.WriteString("****** 0 total cycles ******\n")
	} else if b.table != nil {
		entries := make([]TableEntry, 0, len(items))
		for _, it := range items {
			entries = append(entries, TableEntry{
				Text:      it.op.String(),
				ShortText: it.op.ShortString(),
				Category:  it.op.Category(),
				Metric:    b.clock.CyclesToMicroseconds(it.cycles),
			})
		}
		cfg := TableConfig{MetricName: "microseconds", EntryName: "ops", ShowCategories: true}
		sb.WriteString(b.table.Render(cfg, entries, b.clock.CyclesToMicroseconds(totalCycles)))
	}

	b.log.Debug("report built",
		"subgraph", sg.Name(), "run_id", b.profile.RunID(),
		"items", len(items), "total_cycles", totalCycles)

	return Report{
		Text:     sb.String(),
		Subgraph: sg.Name(),
		RunID:    b.profile.RunID(),
		Items:    len(items),
	}, nil
}

// appendItem formats one report row: right-justified cycles, percentage of
// total, elapsed microseconds, FLOP rate, bytes/sec, bytes/cycle, and the
// display text. Undefined metrics render as markers, never as sentinel
// numbers.
func (b *ReportBuilder) appendItem(sb *strings.Builder, cycles, totalCycles uint64, flops, bytesAccessed int64, display string) {
	nsecs := b.clock.CyclesToNanoseconds(cycles)
	fmt.Fprintf(sb, "%15d cycles (%6.2f%%) :: %12.1f usec @ f_nom :: %18s :: %12s/s :: %12s/cycle :: %s",
		cycles,
		PercentOf(cycles, totalCycles),
		b.clock.CyclesToMicroseconds(cycles),
		FormatFlopRate(flops, nsecs),
		FormatBytesPerSecond(bytesAccessed, cycles, nsecs),
		FormatBytesPerCycle(bytesAccessed, cycles),
		display)
}

// elapsedString renders a wall-time duration for the report header.
func elapsedString(seconds float64) string {
	return time.Duration(math.Round(seconds * 1e9)).String()
}
