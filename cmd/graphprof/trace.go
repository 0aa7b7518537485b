// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lanternml/graphprof/pkg/costmodel"
	"github.com/lanternml/graphprof/pkg/graph"
	"github.com/lanternml/graphprof/pkg/profiler"
)

// ErrBadTrace is returned for trace input graphprof cannot replay.
var ErrBadTrace = errors.New("malformed trace")

// maxTraceLine bounds a single trace line. Display texts are short; a line
// anywhere near this size is corrupt input.
const maxTraceLine = 1 << 20

// traceRecord is one line of an engine-emitted run trace.
//
// Two shapes share the type. An operation record carries name/kind/cycles
// (flops and bytes are optional; absent means the cost model could not
// determine them). A subgraph-total record carries only subgraph and
// total_cycles, for engines that time whole subgraphs separately from
// their operations.
type traceRecord struct {
	Subgraph    string  `json:"subgraph"`
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Cycles      uint64  `json:"cycles"`
	Flops       *int64  `json:"flops"`
	Bytes       *int64  `json:"bytes"`
	Root        bool    `json:"root"`
	TotalCycles *uint64 `json:"total_cycles"`
}

// replay is one run's trace rebuilt into profiler inputs.
type replay struct {
	graph     *graph.Graph
	profile   *profiler.ExecutionProfile
	analyzer  *costmodel.StaticAnalyzer
	subgraphs []*graph.Subgraph
}

// loadTrace reads JSON-lines trace records and rebuilds the graph, the
// execution profile, and a static cost analyzer from them.
//
// Subgraphs and operations keep their first-seen order, so operation
// handles (and report tie-breaks) are reproducible for identical traces.
// An operation emitted twice keeps its last cycle count (last-write-wins,
// matching the profile store contract).
func loadTrace(r io.Reader) (*replay, error) {
	var (
		order  []string
		ops    = make(map[string][]traceRecord)
		totals = make(map[string]uint64)
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxTraceLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec traceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTrace, line, err)
		}
		if rec.Subgraph == "" {
			return nil, fmt.Errorf("%w: line %d: missing subgraph", ErrBadTrace, line)
		}

		if _, seen := ops[rec.Subgraph]; !seen {
			order = append(order, rec.Subgraph)
			ops[rec.Subgraph] = nil
		}

		switch {
		case rec.TotalCycles != nil:
			totals[rec.Subgraph] = *rec.TotalCycles
		case rec.Name != "":
			ops[rec.Subgraph] = append(ops[rec.Subgraph], rec)
		default:
			return nil, fmt.Errorf("%w: line %d: record has neither name nor total_cycles", ErrBadTrace, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: empty trace", ErrBadTrace)
	}

	rep := &replay{
		graph:    graph.New("trace"),
		profile:  profiler.NewExecutionProfile(),
		analyzer: costmodel.NewStaticAnalyzer(),
	}

	for _, name := range order {
		records := ops[name]
		b := rep.graph.NewSubgraph(name)
		built := make([]*graph.Operation, 0, len(records))
		var root *graph.Operation
		for _, or := range records {
			// Re-emitted operations reuse the existing node.
			var op *graph.Operation
			for _, prev := range built {
				if prev.Name() == or.Name {
					op = prev
					break
				}
			}
			if op == nil {
				op = b.Op(or.Name, or.Kind)
				built = append(built, op)
			}
			if or.Root {
				root = op
			}
		}
		// Without an explicit root, the last operation stands in; engines
		// emit operations in completion order and the subgraph result
		// completes last.
		if root == nil && len(built) > 0 {
			root = built[len(built)-1]
		}
		b.Root(root)
		sg, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("%w: subgraph %q: %v", ErrBadTrace, name, err)
		}
		rep.subgraphs = append(rep.subgraphs, sg)

		for _, or := range records {
			op := opByName(built, or.Name)
			rep.profile.Record(op, or.Cycles)
			rep.analyzer.Set(op.ID(), costmodel.Estimate{
				FlopCount:     orUnknown(or.Flops),
				BytesAccessed: orUnknown(or.Bytes),
			})
		}
		if total, ok := totals[name]; ok {
			rep.profile.SetTotalCycles(sg, total)
		}
	}

	return rep, nil
}

// opByName finds a built operation by name. Callers only pass names that
// were just built, so a miss cannot happen.
func opByName(built []*graph.Operation, name string) *graph.Operation {
	for _, op := range built {
		if op.Name() == name {
			return op
		}
	}
	return nil
}

// orUnknown maps an absent optional count to the cost model's unknown mark.
func orUnknown(v *int64) int64 {
	if v == nil {
		return costmodel.Unknown
	}
	return *v
}
