// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dedup implements a pass that removes duplicated expressions, also known as
// "common subexpression elimination".
//
// Two nodes are duplicates if they have the same kind, the same inputs (the same nodes), the
// same shape and, for constants, equal values. Parameters are never duplicates.
//
// It is useful before transposenet: models often repeat the same permutation or shape constants,
// and merging them exposes more identical chains.
package dedup

import (
	"math"
	"slices"

	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/gomlx/graphopt/pkg/passes"
	"k8s.io/klog/v2"
)

// Name of the pass.
const Name = "dedup"

// Pass removes duplicated nodes.
type Pass struct{}

// New returns a new Pass.
func New() *Pass { return &Pass{} }

var _ passes.Pass = (*Pass)(nil)

func init() {
	passes.Register(Name, func() passes.Pass { return New() })
}

// Name implements passes.Pass.
func (p *Pass) Name() string { return Name }

// nodeDedupKey is used to index candidate nodes with the same kind and input structure.
type nodeDedupKey struct {
	opType     ir.OpType
	inputCount int
	firstInput ir.NodeID // ir.InvalidNodeID if there are no inputs.
}

// makeNodeDedupKey creates a de-duplication key for a node.
func makeNodeDedupKey(n *ir.Node) nodeDedupKey {
	key := nodeDedupKey{
		opType:     n.OpType(),
		inputCount: n.NumInputs(),
		firstInput: ir.InvalidNodeID,
	}
	if n.NumInputs() > 0 {
		key.firstInput = n.Input(0).ID()
	}
	return key
}

// Run implements passes.Pass. Each duplicated node has its uses replaced by the first
// equivalent node found, in topological order, and is marked dead.
func (p *Pass) Run(g *ir.Graph) bool {
	var changed bool
	index := make(map[nodeDedupKey][]*ir.Node)
	for _, n := range g.ActiveNodes() {
		if n.IsDead() || n.OpType() == ir.OpTypeParameter {
			continue
		}
		key := makeNodeDedupKey(n)
		if duplicate := findDuplicate(index[key], n); duplicate != nil {
			klog.V(2).Infof("dedup: replacing %s by %s", n, duplicate)
			g.ReplaceAllUses(n, duplicate)
			g.MarkDead(n)
			changed = true
			continue
		}
		index[key] = append(index[key], n)
	}
	return changed
}

// findDuplicate returns the first candidate equivalent to n, or nil.
func findDuplicate(candidates []*ir.Node, n *ir.Node) *ir.Node {
	for _, candidate := range candidates {
		if !slices.Equal(candidate.Inputs(), n.Inputs()) {
			continue
		}
		if !candidate.Shape().Equal(n.Shape()) {
			continue
		}
		if !dataEqual(candidate.ConstantValue(), n.ConstantValue()) {
			continue
		}
		return candidate
	}
	return nil
}

// dataEqual compares the values of constants. Both nil (non-constants) are equal.
// Constants of unhandled types are never equal.
func dataEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch aFlat := a.(type) {
	case []int32:
		return equalFlat(aFlat, b)
	case []int64:
		return equalFlat(aFlat, b)
	case []float32:
		return equalFloats(aFlat, b, math.Float32bits)
	case []float64:
		return equalFloats(aFlat, b, math.Float64bits)
	case []bool:
		return equalFlat(aFlat, b)
	}
	return false
}

func equalFlat[T comparable](a []T, b any) bool {
	bFlat, ok := b.([]T)
	return ok && slices.Equal(a, bFlat)
}

// equalFloats compares floats by their bits: 0 and -0 are different constants, and NaNs with
// the same bits are equal.
func equalFloats[T float32 | float64, B uint32 | uint64](a []T, b any, bits func(T) B) bool {
	bFlat, ok := b.([]T)
	return ok && slices.EqualFunc(a, bFlat, func(x, y T) bool { return bits(x) == bits(y) })
}
