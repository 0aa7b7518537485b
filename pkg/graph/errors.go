// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "errors"

// Sentinel errors for graph construction.
var (
	// ErrInvalidName is returned when an operation or subgraph name is empty.
	ErrInvalidName = errors.New("invalid name")

	// ErrDuplicateOp is returned when two operations in a subgraph share a name.
	ErrDuplicateOp = errors.New("duplicate operation name")

	// ErrEmptySubgraph is returned when Build is called with no operations.
	ErrEmptySubgraph = errors.New("subgraph has no operations")

	// ErrNoRoot is returned when Build is called without a designated root.
	ErrNoRoot = errors.New("subgraph has no root operation")

	// ErrForeignRoot is returned when the designated root belongs to a
	// different subgraph.
	ErrForeignRoot = errors.New("root operation belongs to another subgraph")
)
