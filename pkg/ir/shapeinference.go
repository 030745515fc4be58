// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphopt/pkg/core/shapes"
	"github.com/pkg/errors"
)

// transposeShape permutes the axes of the operand.
// There must be one value in permutations for each axis in the operand.
// The output will have: output.Dimensions[i] = operand.Dimensions[permutations[i]].
// Unknown dimensions are moved like any other.
func transposeShape(operand shapes.Shape, permutations []int) (output shapes.Shape, err error) {
	rank := operand.Rank()
	if len(permutations) != rank {
		err = errors.Errorf("Transpose() requires all axes permutations to be defined, operand has shape %s, but %d permutations were given",
			operand, len(permutations))
		return
	}
	if err = checkPermutation(permutations); err != nil {
		err = errors.WithMessagef(err, "Transpose(%s)", operand)
		return
	}
	output = operand.Clone()
	for axis := range output.Dimensions {
		output.Dimensions[axis] = operand.Dimensions[permutations[axis]]
	}
	return
}

// checkPermutation returns an error if permutations is not a permutation of 0..len-1.
func checkPermutation(permutations []int) error {
	axesSet := slices.Clone(permutations)
	slices.Sort(axesSet)
	for ii, srcAxis := range axesSet {
		if srcAxis < 0 || srcAxis >= len(permutations) {
			return errors.Errorf("invalid permutation axis %d in %v, it must be within the range of its rank",
				srcAxis, permutations)
		}
		if ii > 0 && srcAxis == axesSet[ii-1] {
			return errors.Errorf("invalid permutations %v, there cannot be any repeated axis, each must appear exactly once",
				permutations)
		}
	}
	return nil
}

// reshapeShape returns the shape of reshaping operand to dims.
//
// One of the dims can be -1, in which case it is inferred from the operand size, if the operand
// is fully known; otherwise it is left unknown.
func reshapeShape(operand shapes.Shape, dims []int) (output shapes.Shape, err error) {
	inferAxis := -1
	knownSize := 1
	for axis, dim := range dims {
		switch {
		case dim == -1:
			if inferAxis != -1 {
				err = errors.Errorf("Reshape(%s, %v): at most one dimension can be -1", operand, dims)
				return
			}
			inferAxis = axis
		case dim <= 0:
			err = errors.Errorf("Reshape(%s, %v): invalid dimension %d for axis %d", operand, dims, dim, axis)
			return
		default:
			knownSize *= dim
		}
	}
	output = shapes.Shape{DType: operand.DType, Dimensions: slices.Clone(dims)}
	operandSize := operand.Size()
	if operandSize == shapes.UnknownDim {
		return
	}
	if inferAxis != -1 {
		if operandSize%knownSize != 0 {
			err = errors.Errorf("Reshape(%s, %v): cannot infer dimension of axis %d, size %d is not divisible by %d",
				operand, dims, inferAxis, operandSize, knownSize)
			return
		}
		output.Dimensions[inferAxis] = operandSize / knownSize
		return
	}
	if operandSize != knownSize {
		err = errors.Errorf("Reshape() cannot reshape %s to dimensions %v, their size don't match", operand, dims)
		return
	}
	return
}

// elementwiseShape checks the operands of a binary element-wise op: no broadcasting is supported.
func elementwiseShape(opType OpType, lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("%s(%s, %s): operands must have the same dtype", opType, lhs, rhs)
	}
	if !lhs.EqualDimensions(rhs) {
		return shapes.Invalid(), errors.Errorf("%s(%s, %s): operands must have the same dimensions", opType, lhs, rhs)
	}
	return lhs.Clone(), nil
}

// isIndexDType returns whether dtype can be used for permutation and shape operands.
func isIndexDType(dtype dtypes.DType) bool {
	return dtype == dtypes.Int32 || dtype == dtypes.Int64
}

// constantInts returns the values of an integer Constant node as ints.
func constantInts(n *Node) (values []int, ok bool) {
	switch flat := n.ConstantValue().(type) {
	case []int32:
		values = make([]int, len(flat))
		for ii, v := range flat {
			values[ii] = int(v)
		}
		return values, true
	case []int64:
		values = make([]int, len(flat))
		for ii, v := range flat {
			values[ii] = int(v)
		}
		return values, true
	}
	return nil, false
}
