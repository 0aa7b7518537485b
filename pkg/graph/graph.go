// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph models a compiled computation graph: named subgraphs made of
// operations, each with a stable integer handle.
//
// Description:
//
//	The execution engine owns the graph; the profiler only holds operation
//	handles. Handles (OpID) are assigned by the Graph in construction order,
//	so any two runs that build the same graph the same way assign the same
//	handles. Profiling state is keyed by OpID rather than by pointer, which
//	keeps identity stable across process boundaries and serialized traces.
//
// Thread Safety:
//
//	Graph and Builder are NOT safe for concurrent use. Build the graph in a
//	single goroutine before execution starts.
package graph

import (
	"errors"
	"fmt"
)

// OpID is a stable opaque handle for an operation. IDs are unique within a
// Graph and start at 1; 0 is never a valid handle.
type OpID int64

// Operation is a single unit of work (node) in a computation graph.
//
// Operations are created through a Builder and are immutable afterwards.
// The zero value is not usable.
type Operation struct {
	id     OpID
	name   string
	kind   string
	parent *Subgraph
}

// ID returns the operation's stable handle.
func (o *Operation) ID() OpID { return o.id }

// Name returns the operation's unique name within its subgraph.
func (o *Operation) Name() string { return o.name }

// Kind returns the operation kind (e.g. "add", "dot", "convolution").
func (o *Operation) Kind() string { return o.kind }

// Parent returns the subgraph that owns this operation.
func (o *Operation) Parent() *Subgraph { return o.parent }

// Category returns the classification label used for metric aggregation.
// It is derived from the operation kind; operations with no kind fall into
// the "unknown" category.
func (o *Operation) Category() string {
	if o.kind == "" {
		return "unknown"
	}
	return o.kind
}

// String returns the full display text for report lines.
func (o *Operation) String() string {
	return fmt.Sprintf("%%%s = %s()", o.name, o.kind)
}

// ShortString returns the compact display text (operands elided) used in
// aggregated tables.
func (o *Operation) ShortString() string {
	return "%" + o.name
}

// Subgraph is a named, self-contained grouping of operations with a
// designated root operation.
type Subgraph struct {
	name string
	root *Operation
	ops  []*Operation
	byID map[OpID]*Operation
}

// Name returns the subgraph's name.
func (s *Subgraph) Name() string { return s.name }

// Root returns the subgraph's designated root operation.
func (s *Subgraph) Root() *Operation { return s.root }

// Operations returns the subgraph's operations in construction order.
// The returned slice must not be modified.
func (s *Subgraph) Operations() []*Operation { return s.ops }

// Operation returns the member operation with the given handle, or nil.
func (s *Subgraph) Operation(id OpID) *Operation { return s.byID[id] }

// Graph is a collection of subgraphs sharing one handle namespace.
type Graph struct {
	name      string
	nextID    OpID
	subgraphs []*Subgraph
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{name: name, nextID: 1}
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Subgraphs returns the graph's subgraphs in the order they were built.
func (g *Graph) Subgraphs() []*Subgraph { return g.subgraphs }

// Subgraph returns the subgraph with the given name, or nil.
func (g *Graph) Subgraph(name string) *Subgraph {
	for _, s := range g.subgraphs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Builder constructs one subgraph with validation.
//
// Description:
//
//	Builder accumulates operations and construction errors; Build surfaces
//	all recorded errors at once. Handles are assigned by the owning Graph
//	as operations are added, so handle order follows call order.
//
// Example:
//
//	g := graph.New("model")
//	b := g.NewSubgraph("main")
//	x := b.Op("x", "parameter")
//	y := b.Op("y", "parameter")
//	add := b.Op("add.1", "add")
//	b.Root(add)
//	main, err := b.Build()
type Builder struct {
	graph  *Graph
	sg     *Subgraph
	errors []error
	built  bool
}

// NewSubgraph starts a builder for a new subgraph in this graph.
func (g *Graph) NewSubgraph(name string) *Builder {
	b := &Builder{
		graph: g,
		sg: &Subgraph{
			name: name,
			byID: make(map[OpID]*Operation),
		},
	}
	if name == "" {
		b.errors = append(b.errors, fmt.Errorf("%w: subgraph name is empty", ErrInvalidName))
	}
	return b
}

// Op adds an operation and returns it. Errors (empty name, duplicate name)
// are recorded and surfaced by Build; the returned operation is still usable
// as a placeholder so call sites can stay linear.
func (b *Builder) Op(name, kind string) *Operation {
	if name == "" {
		b.errors = append(b.errors, fmt.Errorf("%w: operation name is empty", ErrInvalidName))
	}
	for _, existing := range b.sg.ops {
		if existing.name == name {
			b.errors = append(b.errors, fmt.Errorf("%w: %q", ErrDuplicateOp, name))
			break
		}
	}

	op := &Operation{
		id:     b.graph.nextID,
		name:   name,
		kind:   kind,
		parent: b.sg,
	}
	b.graph.nextID++
	b.sg.ops = append(b.sg.ops, op)
	b.sg.byID[op.id] = op
	return op
}

// Root designates the subgraph's root operation.
func (b *Builder) Root(op *Operation) *Builder {
	if op != nil && op.parent != b.sg {
		b.errors = append(b.errors, fmt.Errorf("%w: %q", ErrForeignRoot, op.name))
		return b
	}
	b.sg.root = op
	return b
}

// Build validates the subgraph and registers it with the graph.
//
// Outputs:
//
//	*Subgraph - The built subgraph, nil on error.
//	error     - All recorded construction errors, joined.
func (b *Builder) Build() (*Subgraph, error) {
	if b.built {
		return nil, fmt.Errorf("builder for %q already consumed", b.sg.name)
	}
	b.built = true

	errs := b.errors
	if len(b.sg.ops) == 0 {
		errs = append(errs, fmt.Errorf("%w: %q", ErrEmptySubgraph, b.sg.name))
	}
	if b.sg.root == nil && len(b.sg.ops) > 0 {
		errs = append(errs, fmt.Errorf("%w: %q", ErrNoRoot, b.sg.name))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	b.graph.subgraphs = append(b.graph.subgraphs, b.sg)
	return b.sg, nil
}
