// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package profiler records per-operation execution cost for a single run of
// a compiled computation graph and renders a ranked, human-readable report.
//
// Description:
//
//	The execution engine calls Record as operations complete. When a report
//	is requested for a subgraph, ReportBuilder asks a costmodel.Analyzer for
//	per-operation FLOP and byte counts, reads recorded cycles from the
//	profile, derives time/throughput/bandwidth metrics, and formats a
//	sorted, itemized report with an optional category table.
//
// Thread Safety:
//
//	ExecutionProfile has no internal synchronization. The contract is a
//	single writer during the execution phase and read-only report
//	generation after recording for the subgraph has completed. Runs that
//	must be profiled concurrently should each own their own
//	ExecutionProfile rather than share one under a lock.
package profiler

import (
	"github.com/google/uuid"

	"github.com/lanternml/graphprof/pkg/graph"
)

// ExecutionProfile accumulates cycle counts keyed by operation handle for
// one run. Create a fresh profile per run and discard it when the run's
// profiling session ends.
type ExecutionProfile struct {
	runID    string
	cycles   map[graph.OpID]uint64
	profiled map[*graph.Subgraph]struct{}

	// totals holds engine-supplied whole-subgraph cycle counts. When a
	// subgraph has no entry, its root operation's recorded cycles stand in.
	totals map[*graph.Subgraph]uint64
}

// NewExecutionProfile creates an empty profile with a fresh run ID.
func NewExecutionProfile() *ExecutionProfile {
	return &ExecutionProfile{
		runID:    uuid.NewString(),
		cycles:   make(map[graph.OpID]uint64),
		profiled: make(map[*graph.Subgraph]struct{}),
		totals:   make(map[*graph.Subgraph]uint64),
	}
}

// RunID returns the identifier assigned to this run's profile.
func (p *ExecutionProfile) RunID() string { return p.runID }

// Record stores the cycle count for an operation, overwriting any previous
// value (last-write-wins), and marks the operation's subgraph as profiled.
// It never fails.
func (p *ExecutionProfile) Record(op *graph.Operation, cycles uint64) {
	p.cycles[op.ID()] = cycles
	p.profiled[op.Parent()] = struct{}{}
}

// Lookup returns the recorded cycle count for an operation, or 0 if the
// operation was never recorded. Missing data is zero-cost by convention.
func (p *ExecutionProfile) Lookup(op *graph.Operation) uint64 {
	return p.cycles[op.ID()]
}

// has reports whether the operation has a recorded entry, even a zero one.
func (p *ExecutionProfile) has(op *graph.Operation) bool {
	_, ok := p.cycles[op.ID()]
	return ok
}

// Profiled reports whether any operation of the subgraph was recorded.
func (p *ExecutionProfile) Profiled(sg *graph.Subgraph) bool {
	_, ok := p.profiled[sg]
	return ok
}

// SetTotalCycles stores an engine-measured cycle count for the subgraph as
// a whole. The total is tracked separately from the per-operation records
// and is not required to equal their sum; the report surfaces any mismatch
// rather than reconciling it.
func (p *ExecutionProfile) SetTotalCycles(sg *graph.Subgraph, cycles uint64) {
	p.totals[sg] = cycles
}

// TotalCycles returns the cycle count attributed to the subgraph as a
// whole: the explicit total if SetTotalCycles was called, otherwise the
// recorded cycles of the subgraph's designated root operation.
func (p *ExecutionProfile) TotalCycles(sg *graph.Subgraph) uint64 {
	if total, ok := p.totals[sg]; ok {
		return total
	}
	if root := sg.Root(); root != nil {
		return p.Lookup(root)
	}
	return 0
}
