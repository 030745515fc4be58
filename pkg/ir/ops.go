// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphopt/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Graph construction operations.
//
// They return an error for invalid operands (wrong ranks, invalid permutations, mismatched sizes).
// Nodes from a different graph or dead nodes are programming errors and panic.
// An empty name gives the node a default name derived from its kind and id.

// Parameter creates an input of the graph. Its shape may have unknown dimensions.
func (g *Graph) Parameter(name string, shape shapes.Shape) (*Node, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("Parameter(%q): invalid shape %s", name, shape)
	}
	for axis, dim := range shape.Dimensions {
		if dim <= 0 && dim != shapes.UnknownDim {
			return nil, errors.Errorf("Parameter(%q): invalid dimension %d for axis %d", name, dim, axis)
		}
	}
	n := g.newNode(OpTypeParameter, name, shape.Clone())
	g.parameters = append(g.parameters, n)
	return n, nil
}

// Constant creates a node with the given flat values (a slice of a supported Go type, like []int32)
// and dimensions. The number of values must match the dimensions.
// If no dimensions are given, flat must have exactly one value and the constant is a scalar.
//
// The flat slice is owned by the graph after this call.
func (g *Graph) Constant(name string, flat any, dims ...int) (*Node, error) {
	flatValue := reflect.ValueOf(flat)
	if flatValue.Kind() != reflect.Slice {
		return nil, errors.Errorf("Constant(%q): flat data should be a slice, not %T", name, flat)
	}
	dtype := dtypes.FromGoType(flatValue.Type().Elem())
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("Constant(%q): flat is a slice of %s, not a supported data type", name, flatValue.Type().Elem())
	}
	size := 1
	for axis, dim := range dims {
		if dim <= 0 {
			return nil, errors.Errorf("Constant(%q): invalid dimension %d for axis %d", name, dim, axis)
		}
		size *= dim
	}
	if flatValue.Len() != size {
		return nil, errors.Errorf("Constant(%q): %d values given for dimensions %v (size %d)", name, flatValue.Len(), dims, size)
	}
	n := g.newNode(OpTypeConstant, name, shapes.Make(dtype, dims...))
	n.data = flat
	return n, nil
}

// Transpose permutes the axes of x: output.Dim(i) = x.Dim(perm[i]).
//
// perm must be a rank-1 Int32 or Int64 tensor with one value per axis of x. If perm is not a
// Constant, the output dimensions are unknown.
func (g *Graph) Transpose(name string, x, perm *Node) (*Node, error) {
	g.checkNode("Transpose(x)", x)
	g.checkNode("Transpose(perm)", perm)
	permShape := perm.Shape()
	if !isIndexDType(permShape.DType) || permShape.Rank() != 1 {
		return nil, errors.Errorf("Transpose(%q): perm must be a rank-1 Int32 or Int64 tensor, got %s", name, permShape)
	}
	if permShape.Dim(0) != shapes.UnknownDim && permShape.Dim(0) != x.Rank() {
		return nil, errors.Errorf("Transpose(%q): perm has %d values, but x has rank %d", name, permShape.Dim(0), x.Rank())
	}
	shape := shapes.Unknown(x.Shape().DType, x.Rank())
	if values, ok := constantInts(perm); ok {
		var err error
		shape, err = transposeShape(x.Shape(), values)
		if err != nil {
			return nil, errors.WithMessagef(err, "Transpose(%q)", name)
		}
	}
	return g.newNode(OpTypeTranspose, name, shape, x, perm), nil
}

// Reshape changes the dimensions of x to the values of the rank-1 Int32 or Int64 tensor shape.
//
// If shape is a Constant, one of its values may be -1, and it is inferred from the size of x.
// If shape is not a Constant, the output dimensions are unknown.
func (g *Graph) Reshape(name string, x, shape *Node) (*Node, error) {
	g.checkNode("Reshape(x)", x)
	g.checkNode("Reshape(shape)", shape)
	shapeShape := shape.Shape()
	if !isIndexDType(shapeShape.DType) || shapeShape.Rank() != 1 {
		return nil, errors.Errorf("Reshape(%q): shape must be a rank-1 Int32 or Int64 tensor, got %s", name, shapeShape)
	}
	outputRank := shapeShape.Dim(0)
	if outputRank == shapes.UnknownDim {
		return nil, errors.Errorf("Reshape(%q): the rank of the output (the size of shape %s) must be known", name, shapeShape)
	}
	output := shapes.Unknown(x.Shape().DType, outputRank)
	if dims, ok := constantInts(shape); ok {
		var err error
		output, err = reshapeShape(x.Shape(), dims)
		if err != nil {
			return nil, errors.WithMessagef(err, "Reshape(%q)", name)
		}
	}
	return g.newNode(OpTypeReshape, name, output, x, shape), nil
}

// Identity returns a node with the same value as x.
func (g *Graph) Identity(name string, x *Node) (*Node, error) {
	g.checkNode("Identity(x)", x)
	return g.newNode(OpTypeIdentity, name, x.Shape().Clone(), x), nil
}

// Neg returns -x.
func (g *Graph) Neg(name string, x *Node) (*Node, error) {
	g.checkNode("Neg(x)", x)
	if x.Shape().DType == dtypes.Bool {
		return nil, errors.Errorf("Neg(%q): not defined for %s", name, x.Shape())
	}
	return g.newNode(OpTypeNeg, name, x.Shape().Clone(), x), nil
}

// Add returns lhs + rhs, element-wise. Both operands must have the same shape.
func (g *Graph) Add(name string, lhs, rhs *Node) (*Node, error) {
	g.checkNode("Add(lhs)", lhs)
	g.checkNode("Add(rhs)", rhs)
	shape, err := elementwiseShape(OpTypeAdd, lhs.Shape(), rhs.Shape())
	if err != nil {
		return nil, errors.WithMessagef(err, "Add(%q)", name)
	}
	return g.newNode(OpTypeAdd, name, shape, lhs, rhs), nil
}
