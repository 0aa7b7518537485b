// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package costmodel supplies per-operation cost estimates for report
// generation.
//
// The profiler core does not derive costs itself; it asks an Analyzer.
// Analyzer is a capability interface so alternative cost models (a visitor
// over operation semantics, a lookup of engine-measured counters, a static
// table) can be substituted without touching the report algorithm.
package costmodel

import "github.com/lanternml/graphprof/pkg/graph"

// Unknown marks a count the cost model could not determine. Any negative
// value is treated as unknown; Unknown is the canonical one.
const Unknown int64 = -1

// Estimate is the cost attributed to one operation.
type Estimate struct {
	// FlopCount is the number of floating-point operations, or negative
	// when unknown.
	FlopCount int64

	// BytesAccessed is the total memory traffic in bytes, or negative
	// when unknown.
	BytesAccessed int64
}

// Estimates maps operation handles to their cost estimates.
type Estimates map[graph.OpID]Estimate

// For returns the estimate for an operation, or an all-unknown estimate
// when the cost model produced none.
func (e Estimates) For(id graph.OpID) Estimate {
	if est, ok := e[id]; ok {
		return est
	}
	return Estimate{FlopCount: Unknown, BytesAccessed: Unknown}
}

// Analyzer derives cost estimates for every operation of a subgraph.
//
// Analyze runs synchronously and must either cover the whole subgraph or
// fail; report generation treats a returned error as "no analysis" and
// produces a failed report rather than a partial one.
type Analyzer interface {
	Analyze(sg *graph.Subgraph) (Estimates, error)
}

// StaticAnalyzer is an Analyzer backed by a fixed table of estimates,
// for engines that precompute costs at compile time (and for trace replay,
// where estimates arrive alongside cycle counts).
type StaticAnalyzer struct {
	estimates Estimates
}

// NewStaticAnalyzer creates an empty static analyzer.
func NewStaticAnalyzer() *StaticAnalyzer {
	return &StaticAnalyzer{estimates: make(Estimates)}
}

// Set records the estimate for an operation, replacing any previous one.
func (a *StaticAnalyzer) Set(id graph.OpID, est Estimate) {
	a.estimates[id] = est
}

// Analyze returns the estimates covering the subgraph's operations.
// It never fails; operations without a recorded estimate are unknown.
func (a *StaticAnalyzer) Analyze(sg *graph.Subgraph) (Estimates, error) {
	out := make(Estimates, len(sg.Operations()))
	for _, op := range sg.Operations() {
		out[op.ID()] = a.estimates.For(op.ID())
	}
	return out, nil
}

var _ Analyzer = (*StaticAnalyzer)(nil)
