// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tablefmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternml/graphprof/pkg/profiler"
)

func microsecondsConfig() profiler.TableConfig {
	return profiler.TableConfig{
		MetricName:     "microseconds",
		EntryName:      "ops",
		ShowCategories: true,
	}
}

func TestRender_GroupsAndOrdersCategories(t *testing.T) {
	entries := []profiler.TableEntry{
		{Text: "%add.1 = add()", ShortText: "%add.1", Category: "add", Metric: 10},
		{Text: "%dot.1 = dot()", ShortText: "%dot.1", Category: "dot", Metric: 200},
		{Text: "%add.2 = add()", ShortText: "%add.2", Category: "add", Metric: 40},
	}

	out := NewRenderer().Render(microsecondsConfig(), entries, 250)

	// dot (200) before add (50).
	iDot := strings.Index(out, "dot (1 ops)")
	iAdd := strings.Index(out, "add (2 ops)")
	require.NotEqual(t, -1, iDot)
	require.NotEqual(t, -1, iAdd)
	assert.Less(t, iDot, iAdd)

	// Within add, the heavier entry lists first.
	i2 := strings.Index(out, "%add.2")
	i1 := strings.Index(out, "%add.1")
	require.NotEqual(t, -1, i1)
	require.NotEqual(t, -1, i2)
	assert.Less(t, i2, i1)

	assert.Contains(t, out, "There are 250.0 microseconds in total.")
	assert.Contains(t, out, "(100.00%) accounted for by the 3 ops below.")
}

func TestRender_SurfacesUnaccountedResidue(t *testing.T) {
	entries := []profiler.TableEntry{
		{Text: "%a = add()", ShortText: "%a", Category: "add", Metric: 60},
	}

	// Entries cover 60 of 100: the report names the missing 40.
	out := NewRenderer().Render(microsecondsConfig(), entries, 100)
	assert.Contains(t, out, "not accounted for")
	assert.Contains(t, out, "40.0")
	assert.Contains(t, out, "( 40.00%)")
}

func TestRender_CapsEntriesPerCategory(t *testing.T) {
	entries := []profiler.TableEntry{
		{ShortText: "%a", Category: "add", Metric: 5},
		{ShortText: "%b", Category: "add", Metric: 4},
		{ShortText: "%c", Category: "add", Metric: 3},
		{ShortText: "%d", Category: "add", Metric: 2},
	}

	out := (&Renderer{MaxEntriesPerCategory: 2}).Render(microsecondsConfig(), entries, 14)

	assert.Contains(t, out, "%a")
	assert.Contains(t, out, "%b")
	assert.NotContains(t, out, "%c")
	assert.NotContains(t, out, "%d")
	assert.Contains(t, out, "(+2 more ops)")
}

func TestRender_DeterministicForEqualMetrics(t *testing.T) {
	entries := []profiler.TableEntry{
		{ShortText: "%b", Category: "beta", Metric: 10},
		{ShortText: "%a", Category: "alpha", Metric: 10},
	}

	first := NewRenderer().Render(microsecondsConfig(), entries, 20)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, NewRenderer().Render(microsecondsConfig(), entries, 20))
	}

	// Equal-metric categories fall back to name order.
	assert.Less(t, strings.Index(first, "alpha"), strings.Index(first, "beta"))
}

func TestRender_FlatListing(t *testing.T) {
	cfg := profiler.TableConfig{MetricName: "microseconds", EntryName: "ops"}
	entries := []profiler.TableEntry{
		{Text: "%small = add()", ShortText: "%small", Category: "add", Metric: 1},
		{Text: "%big = dot()", ShortText: "%big", Category: "dot", Metric: 9},
	}

	out := NewRenderer().Render(cfg, entries, 10)
	assert.NotContains(t, out, "categories table")
	assert.Less(t, strings.Index(out, "%big"), strings.Index(out, "%small"))
}

func TestRender_ZeroExpectedSum(t *testing.T) {
	entries := []profiler.TableEntry{
		{ShortText: "%a", Category: "add", Metric: 5},
	}

	out := NewRenderer().Render(microsecondsConfig(), entries, 0)
	assert.NotContains(t, out, "NaN")
	assert.NotContains(t, out, "Inf")
	assert.Contains(t, out, "(  0.00%")
}
