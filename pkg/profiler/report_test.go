// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternml/graphprof/pkg/costmodel"
	"github.com/lanternml/graphprof/pkg/graph"
)

// failingAnalyzer simulates a cost model that cannot analyze the subgraph.
type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(*graph.Subgraph) (costmodel.Estimates, error) {
	return nil, errors.New("unsupported operation kind")
}

// captureRenderer records the handoff to the table renderer.
type captureRenderer struct {
	called      bool
	cfg         TableConfig
	entries     []TableEntry
	expectedSum float64
}

func (c *captureRenderer) Render(cfg TableConfig, entries []TableEntry, expectedSum float64) string {
	c.called = true
	c.cfg = cfg
	c.entries = entries
	c.expectedSum = expectedSum
	return "[category table]\n"
}

func TestBuild_EndToEnd(t *testing.T) {
	// Clock rate 2.0 cycles/ns, one operation with 1000 cycles,
	// 2000 flops, 500 bytes; the operation is the root, so the subgraph
	// total is also 1000 cycles.
	g := graph.New("model")
	b := g.NewSubgraph("main")
	a := b.Op("a", "add")
	b.Root(a)
	sg, err := b.Build()
	require.NoError(t, err)

	p := NewExecutionProfile()
	p.Record(a, 1000)

	analyzer := costmodel.NewStaticAnalyzer()
	analyzer.Set(a.ID(), costmodel.Estimate{FlopCount: 2000, BytesAccessed: 500})

	table := &captureRenderer{}
	report, err := NewReportBuilder(p, mustClock(t, 2.0), analyzer).
		WithTableRenderer(table).
		Build(sg)
	require.NoError(t, err)
	require.False(t, report.Failed())

	text := report.Text
	assert.Contains(t, text, "Execution profile for main: (500ns @ f_nom)")
	assert.Contains(t, text, "[total]")
	assert.Contains(t, text, "%a = add()")

	// 1000 cycles at 2 cycles/ns is 500 ns = 0.5 usec, 100% of total.
	assert.Contains(t, text, "(100.00%)")
	assert.Contains(t, text, "0.5 usec @ f_nom")

	// 2000 flops / 500 ns = 4e9 FLOP/s; 500 B / 500 ns = 1e9 B/s;
	// 500 B / 1000 cycles = 0.5 B/cycle.
	assert.Contains(t, text, "4 GFLOP/s")
	assert.Contains(t, text, "1.0 GB/s")
	assert.Contains(t, text, "0.5 B/cycle")

	// The [total] row carries unknown flop and byte counts.
	assert.Contains(t, text, "<none>")
	assert.Contains(t, text, "<unknown>/s")
	assert.Contains(t, text, "<unknown>/cycle")

	// Table handoff.
	require.True(t, table.called)
	assert.Equal(t, "microseconds", table.cfg.MetricName)
	assert.Equal(t, "ops", table.cfg.EntryName)
	assert.True(t, table.cfg.ShowCategories)
	assert.Equal(t, 0.5, table.expectedSum)
	require.Len(t, table.entries, 1)
	assert.Equal(t, "%a = add()", table.entries[0].Text)
	assert.Equal(t, "%a", table.entries[0].ShortText)
	assert.Equal(t, "add", table.entries[0].Category)
	assert.Equal(t, 0.5, table.entries[0].Metric)
	assert.Contains(t, text, "[category table]")

	assert.Equal(t, 1, report.Items)
	assert.Equal(t, "main", report.Subgraph)
	assert.Equal(t, p.RunID(), report.RunID)
}

func TestBuild_FiltersSiblingSubgraphs(t *testing.T) {
	g := graph.New("model")

	bMain := g.NewSubgraph("main")
	mainOp := bMain.Op("main_op", "dot")
	bMain.Root(mainOp)
	main, err := bMain.Build()
	require.NoError(t, err)

	bHelper := g.NewSubgraph("helper")
	helperOp := bHelper.Op("helper_op", "convolution")
	bHelper.Root(helperOp)
	_, err = bHelper.Build()
	require.NoError(t, err)

	p := NewExecutionProfile()
	p.Record(mainOp, 100)
	p.Record(helperOp, 100)

	report, err := NewReportBuilder(p, mustClock(t, 1.0), costmodel.NewStaticAnalyzer()).
		Build(main)
	require.NoError(t, err)

	assert.Contains(t, report.Text, "main_op")
	assert.NotContains(t, report.Text, "helper_op")
	assert.Equal(t, 1, report.Items)
}

func TestBuild_SortsByCyclesWithStableTieBreak(t *testing.T) {
	g := graph.New("model")
	b := g.NewSubgraph("main")
	slow := b.Op("slow", "dot")
	tieFirst := b.Op("tie_first", "add")
	tieSecond := b.Op("tie_second", "add")
	root := b.Op("root", "tuple")
	b.Root(root)
	sg, err := b.Build()
	require.NoError(t, err)

	record := func() *ExecutionProfile {
		p := NewExecutionProfile()
		// Recording order deliberately differs from expected output order.
		p.Record(tieSecond, 100)
		p.Record(root, 1000)
		p.Record(slow, 300)
		p.Record(tieFirst, 100)
		return p
	}

	build := func() string {
		report, err := NewReportBuilder(record(), mustClock(t, 1.0), costmodel.NewStaticAnalyzer()).
			Build(sg)
		require.NoError(t, err)
		return report.Text
	}

	text := build()
	iRoot := strings.Index(text, "%root")
	iSlow := strings.Index(text, "%slow")
	iFirst := strings.Index(text, "%tie_first")
	iSecond := strings.Index(text, "%tie_second")
	require.NotEqual(t, -1, iRoot)
	require.NotEqual(t, -1, iSlow)
	require.NotEqual(t, -1, iFirst)
	require.NotEqual(t, -1, iSecond)

	// Descending cycles; equal cycles ordered by operation handle.
	assert.Less(t, iRoot, iSlow)
	assert.Less(t, iSlow, iFirst)
	assert.Less(t, iFirst, iSecond)

	// Identical input yields identical output.
	assert.Equal(t, text, build())
}

func TestBuild_ZeroTotalFallback(t *testing.T) {
	g := graph.New("model")
	b := g.NewSubgraph("main")
	a := b.Op("a", "add")
	root := b.Op("root", "tuple")
	b.Root(root)
	sg, err := b.Build()
	require.NoError(t, err)

	p := NewExecutionProfile()
	p.Record(a, 500) // root never recorded, so the total is zero

	table := &captureRenderer{}
	report, err := NewReportBuilder(p, mustClock(t, 1.0), costmodel.NewStaticAnalyzer()).
		WithTableRenderer(table).
		Build(sg)
	require.NoError(t, err)

	assert.Contains(t, report.Text, "****** 0 total cycles ******")
	assert.False(t, table.called, "no table for a zero total")

	// All percentages collapse to zero rather than NaN.
	assert.Contains(t, report.Text, "(  0.00%)")
	assert.NotContains(t, report.Text, "NaN")
}

func TestBuild_CostAnalysisFailureFailsClosed(t *testing.T) {
	g := graph.New("model")
	b := g.NewSubgraph("main")
	a := b.Op("a", "add")
	b.Root(a)
	sg, err := b.Build()
	require.NoError(t, err)

	p := NewExecutionProfile()
	p.Record(a, 1000)

	report, err := NewReportBuilder(p, mustClock(t, 1.0), failingAnalyzer{}).
		Build(sg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCostAnalysis)

	assert.True(t, report.Failed())
	assert.Empty(t, report.Text, "failed report must be empty, never partial")
	assert.Empty(t, report.String())
	assert.Equal(t, "main", report.Subgraph)
}

func TestBuild_NilRendererSkipsTable(t *testing.T) {
	g := graph.New("model")
	b := g.NewSubgraph("main")
	a := b.Op("a", "add")
	b.Root(a)
	sg, err := b.Build()
	require.NoError(t, err)

	p := NewExecutionProfile()
	p.Record(a, 1000)

	report, err := NewReportBuilder(p, mustClock(t, 1.0), costmodel.NewStaticAnalyzer()).
		Build(sg)
	require.NoError(t, err)
	assert.NotContains(t, report.Text, "category table")
	assert.NotContains(t, report.Text, "0 total cycles")
}

func TestBuild_MissingEstimatesRenderUnknown(t *testing.T) {
	g := graph.New("model")
	b := g.NewSubgraph("main")
	a := b.Op("a", "add")
	b.Root(a)
	sg, err := b.Build()
	require.NoError(t, err)

	p := NewExecutionProfile()
	p.Record(a, 1000)

	// StaticAnalyzer with no entries: every estimate is unknown.
	report, err := NewReportBuilder(p, mustClock(t, 1.0), costmodel.NewStaticAnalyzer()).
		Build(sg)
	require.NoError(t, err)

	lines := strings.Split(report.Text, "\n")
	var itemLine string
	for _, l := range lines {
		if strings.Contains(l, "%a = add()") {
			itemLine = l
		}
	}
	require.NotEmpty(t, itemLine)
	assert.Contains(t, itemLine, "<none>")
	assert.Contains(t, itemLine, "<unknown>/s")
	assert.Contains(t, itemLine, "<unknown>/cycle")
}
