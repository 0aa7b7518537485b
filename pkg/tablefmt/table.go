// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tablefmt renders labeled metric entries as a fixed-width summary
// table, implementing profiler.TableRenderer.
//
// The table groups entries by category, orders categories by aggregate
// metric descending, and lists the heaviest entries within each category.
// The expected metric sum is reported alongside the entry sum; the two may
// diverge (partial profiling, whole-subgraph totals measured separately)
// and the difference is surfaced, not reconciled.
package tablefmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lanternml/graphprof/pkg/profiler"
)

// DefaultMaxEntriesPerCategory caps the per-category entry listing.
const DefaultMaxEntriesPerCategory = 5

// Renderer is the default profiler.TableRenderer.
type Renderer struct {
	// MaxEntriesPerCategory caps how many entries are listed under each
	// category; the remainder is summarized in one line. Zero means
	// DefaultMaxEntriesPerCategory.
	MaxEntriesPerCategory int
}

// NewRenderer creates a Renderer with default caps.
func NewRenderer() *Renderer {
	return &Renderer{MaxEntriesPerCategory: DefaultMaxEntriesPerCategory}
}

var _ profiler.TableRenderer = (*Renderer)(nil)

// category is the aggregate of all entries sharing one label.
type category struct {
	name    string
	metric  float64
	entries []profiler.TableEntry
}

// Render produces the summary table text.
//
// Ordering is deterministic: categories by aggregate metric descending then
// name ascending; entries within a category by metric descending then short
// text ascending.
func (r *Renderer) Render(cfg profiler.TableConfig, entries []profiler.TableEntry, expectedSum float64) string {
	maxEntries := r.MaxEntriesPerCategory
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntriesPerCategory
	}

	var entrySum float64
	for _, e := range entries {
		entrySum += e.Metric
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "********** %s report **********\n", cfg.MetricName)
	fmt.Fprintf(&sb, "There are %.1f %s in total.\n", expectedSum, cfg.MetricName)
	fmt.Fprintf(&sb, "There are %.1f %s (%.2f%%) accounted for by the %d %s below.\n",
		entrySum, cfg.MetricName, percent(entrySum, expectedSum), len(entries), cfg.EntryName)

	if !cfg.ShowCategories {
		sb.WriteString("\n")
		r.renderFlat(&sb, entries, expectedSum, maxEntries)
		return sb.String()
	}

	cats := groupByCategory(entries)
	fmt.Fprintf(&sb, "\n********** categories table for %s **********\n", cfg.MetricName)
	fmt.Fprintf(&sb, "The left hand side numbers are %s.\n", cfg.MetricName)

	var cumulative float64
	for _, cat := range cats {
		cumulative += cat.metric
		fmt.Fprintf(&sb, "%12.1f (%6.2f%% Σ%6.2f%%) :: %s (%d %s)\n",
			cat.metric, percent(cat.metric, expectedSum), percent(cumulative, expectedSum),
			cat.name, len(cat.entries), cfg.EntryName)
		for i, e := range cat.entries {
			if i == maxEntries {
				fmt.Fprintf(&sb, "%36s ... (+%d more %s)\n", "",
					len(cat.entries)-maxEntries, cfg.EntryName)
				break
			}
			fmt.Fprintf(&sb, "%36s * %6.2f%% %s\n", "",
				percent(e.Metric, expectedSum), e.ShortText)
		}
	}

	if leftover := expectedSum - entrySum; leftover > 0 && expectedSum > 0 {
		fmt.Fprintf(&sb, "%12.1f (%6.2f%%) :: not accounted for by the %s above\n",
			leftover, percent(leftover, expectedSum), cfg.EntryName)
	}

	return sb.String()
}

// renderFlat lists the heaviest entries without category grouping.
func (r *Renderer) renderFlat(sb *strings.Builder, entries []profiler.TableEntry, expectedSum float64, maxEntries int) {
	sorted := make([]profiler.TableEntry, len(entries))
	copy(sorted, entries)
	sortEntries(sorted)

	var cumulative float64
	for i, e := range sorted {
		if i == maxEntries {
			fmt.Fprintf(sb, "%12s ... (+%d more)\n", "", len(sorted)-maxEntries)
			break
		}
		cumulative += e.Metric
		fmt.Fprintf(sb, "%12.1f (%6.2f%% Σ%6.2f%%) :: %s\n",
			e.Metric, percent(e.Metric, expectedSum), percent(cumulative, expectedSum), e.Text)
	}
}

// groupByCategory buckets entries by label and returns categories in
// render order.
func groupByCategory(entries []profiler.TableEntry) []category {
	byName := make(map[string]*category)
	for _, e := range entries {
		cat, ok := byName[e.Category]
		if !ok {
			cat = &category{name: e.Category}
			byName[e.Category] = cat
		}
		cat.metric += e.Metric
		cat.entries = append(cat.entries, e)
	}

	cats := make([]category, 0, len(byName))
	for _, cat := range byName {
		sortEntries(cat.entries)
		cats = append(cats, *cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].metric != cats[j].metric {
			return cats[i].metric > cats[j].metric
		}
		return cats[i].name < cats[j].name
	})
	return cats
}

// sortEntries orders entries by metric descending, then short text.
func sortEntries(entries []profiler.TableEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Metric != entries[j].Metric {
			return entries[i].Metric > entries[j].Metric
		}
		return entries[i].ShortText < entries[j].ShortText
	})
}

// percent is the safe-divide percentage used everywhere in the table:
// a non-positive base yields 0.
func percent(value, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return value / base * 100
}
