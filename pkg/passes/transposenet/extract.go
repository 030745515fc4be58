// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transposenet

import (
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphopt/pkg/ir"
	"golang.org/x/exp/constraints"
)

// extractShape returns the dimensions of the node output as int32.
// Unknown dimensions are returned as is (negative). It fails if any dimension doesn't fit an int32.
func extractShape(node *ir.Node) ([]int32, bool) {
	rank := node.Rank()
	shape := make([]int32, 0, rank)
	for axis := range rank {
		dim := node.Dim(axis)
		if dim > math.MaxInt32 {
			return nil, false
		}
		shape = append(shape, int32(dim))
	}
	return shape, true
}

// extractConst returns the values of an Int32 or Int64 constant as int32.
// Int64 values must all fit an int32. Any other dtype fails.
func extractConst(constNode *ir.Node) ([]int32, bool) {
	if !constNode.IsConstant() {
		return nil, false
	}
	switch constNode.Shape().DType {
	case dtypes.Int32:
		flat, ok := constNode.ConstantValue().([]int32)
		if !ok {
			return nil, false
		}
		return narrowToInt32(flat)
	case dtypes.Int64:
		flat, ok := constNode.ConstantValue().([]int64)
		if !ok {
			return nil, false
		}
		return narrowToInt32(flat)
	}
	return nil, false
}

// narrowToInt32 converts values to int32, failing if any of them is out of range.
func narrowToInt32[T constraints.Signed](values []T) ([]int32, bool) {
	narrowed := make([]int32, len(values))
	for ii, v := range values {
		if int64(v) < math.MinInt32 || int64(v) > math.MaxInt32 {
			return nil, false
		}
		narrowed[ii] = int32(v)
	}
	return narrowed, true
}
