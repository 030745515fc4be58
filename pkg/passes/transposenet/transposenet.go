// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package transposenet implements a pass that removes unnecessary Transpose-Reshape-Transpose
// chains, replacing them with a single Reshape.
//
// A chain qualifies when the Reshape only merges contiguous axes (or adds/removes axes of
// dimension 1) and the two transposes, taken together, don't change the order of the data.
// Example: (1, 7, 7, 448) -Transpose(0, 3, 1, 2)-> (1, 448, 7, 7) -Reshape-> (1, 448, 49)
// -Transpose(0, 2, 1)-> (1, 49, 448) is the same as Reshape((1, 7, 7, 448) -> (1, 49, 448)).
//
// Only chains where the input rank is >= the output rank, the permutations are constants and
// the shapes are fully known are considered.
package transposenet

import (
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/gomlx/graphopt/pkg/passes"
)

// Name of the pass.
const Name = "transposenet"

// Pass removes unnecessary Transpose-Reshape-Transpose chains.
type Pass struct{}

// New returns a new Pass.
func New() *Pass { return &Pass{} }

var _ passes.Pass = (*Pass)(nil)

func init() {
	passes.Register(Name, func() passes.Pass { return New() })
}

// Name implements passes.Pass.
func (p *Pass) Name() string { return Name }

// Run implements passes.Pass. It makes a single sweep over the nodes reachable from the graph
// outputs and returns whether any chain was replaced.
func (p *Pass) Run(g *ir.Graph) bool {
	var changed bool
	for _, node := range g.ActiveNodes() {
		if node.IsDead() || node.OpType() != ir.OpTypeTranspose {
			continue
		}
		if fuse(g, node) {
			changed = true
		}
	}
	return changed
}
