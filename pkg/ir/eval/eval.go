// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package eval is a reference interpreter of ir graphs.
//
// It is slow and simple: values are held as float64, whatever the dtype, and shapes are
// resolved at execution time, so permutations and shapes computed by the graph itself are
// supported. It is used to check that passes preserve the semantics of a graph.
package eval

import (
	"fmt"

	"github.com/gomlx/graphopt/pkg/core/shapes"
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/pkg/errors"
)

// Tensor is a concrete value: a fully known shape and its values in row-major order.
type Tensor struct {
	Shape shapes.Shape
	Flat  []float64
}

// NewTensor returns a Tensor with the given shape and values, checking their number matches.
func NewTensor(shape shapes.Shape, flat []float64) (*Tensor, error) {
	if !shape.IsFullyKnown() {
		return nil, errors.Errorf("tensor shape %s must be fully known", shape)
	}
	if len(flat) != shape.Size() {
		return nil, errors.Errorf("tensor shape %s requires %d values, got %d", shape, shape.Size(), len(flat))
	}
	return &Tensor{Shape: shape, Flat: flat}, nil
}

// Iota returns a Tensor whose values are their flat index: 0, 1, 2, ...
// Every element being distinct, it exposes any reordering of the data.
func Iota(shape shapes.Shape) *Tensor {
	t := &Tensor{Shape: shape.Clone(), Flat: make([]float64, shape.Size())}
	for ii := range t.Flat {
		t.Flat[ii] = float64(ii)
	}
	return t
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("%s%v", t.Shape, t.Flat)
}

// Run executes the graph with the given values for its parameters, indexed by parameter name,
// and returns the values of the outputs.
func Run(g *ir.Graph, params map[string]*Tensor) ([]*Tensor, error) {
	values := make(map[*ir.Node]*Tensor)
	for _, n := range g.ActiveNodes() {
		inputs := make([]*Tensor, n.NumInputs())
		for ii, input := range n.Inputs() {
			inputs[ii] = values[input]
		}
		value, err := execNode(n, inputs, params)
		if err != nil {
			return nil, errors.WithMessagef(err, "evaluating node %s", n)
		}
		values[n] = value
	}
	outputs := make([]*Tensor, 0, len(g.Outputs()))
	for _, out := range g.Outputs() {
		outputs = append(outputs, values[out])
	}
	return outputs, nil
}

func execNode(n *ir.Node, inputs []*Tensor, params map[string]*Tensor) (*Tensor, error) {
	switch n.OpType() {
	case ir.OpTypeParameter:
		return execParameter(n, params)
	case ir.OpTypeConstant:
		return execConstant(n)
	case ir.OpTypeTranspose:
		return execTranspose(inputs[0], inputs[1])
	case ir.OpTypeReshape:
		return execReshape(inputs[0], inputs[1])
	case ir.OpTypeIdentity:
		return inputs[0], nil
	case ir.OpTypeNeg:
		output := &Tensor{Shape: inputs[0].Shape, Flat: make([]float64, len(inputs[0].Flat))}
		for ii, v := range inputs[0].Flat {
			output.Flat[ii] = -v
		}
		return output, nil
	case ir.OpTypeAdd:
		lhs, rhs := inputs[0], inputs[1]
		if !lhs.Shape.EqualDimensions(rhs.Shape) {
			return nil, errors.Errorf("Add operands have different shapes %s and %s", lhs.Shape, rhs.Shape)
		}
		output := &Tensor{Shape: lhs.Shape, Flat: make([]float64, len(lhs.Flat))}
		for ii := range output.Flat {
			output.Flat[ii] = lhs.Flat[ii] + rhs.Flat[ii]
		}
		return output, nil
	}
	return nil, errors.Errorf("op %s not supported", n.OpType())
}

func execParameter(n *ir.Node, params map[string]*Tensor) (*Tensor, error) {
	value, found := params[n.Name()]
	if !found {
		return nil, errors.Errorf("missing value for parameter %q", n.Name())
	}
	if value.Shape.DType != n.Shape().DType || value.Shape.Rank() != n.Rank() {
		return nil, errors.Errorf("value %s incompatible with parameter shape %s", value.Shape, n.Shape())
	}
	for axis, dim := range n.Shape().Dimensions {
		if dim != shapes.UnknownDim && dim != value.Shape.Dimensions[axis] {
			return nil, errors.Errorf("value %s incompatible with parameter shape %s", value.Shape, n.Shape())
		}
	}
	return value, nil
}

func execConstant(n *ir.Node) (*Tensor, error) {
	var flat []float64
	switch values := n.ConstantValue().(type) {
	case []int32:
		flat = convert(values)
	case []int64:
		flat = convert(values)
	case []float32:
		flat = convert(values)
	case []float64:
		flat = convert(values)
	default:
		return nil, errors.Errorf("constants of type %T not supported", values)
	}
	return &Tensor{Shape: n.Shape(), Flat: flat}, nil
}

func convert[T int32 | int64 | float32 | float64](values []T) []float64 {
	flat := make([]float64, len(values))
	for ii, v := range values {
		flat[ii] = float64(v)
	}
	return flat
}

func toInts(t *Tensor) []int {
	ints := make([]int, len(t.Flat))
	for ii, v := range t.Flat {
		ints[ii] = int(v)
	}
	return ints
}

// execTranspose sets output[i_0, ..., i_n] = operand[j_0, ..., j_n], where j_perm[k] = i_k.
func execTranspose(operand, permTensor *Tensor) (*Tensor, error) {
	perm := toInts(permTensor)
	rank := operand.Shape.Rank()
	if len(perm) != rank {
		return nil, errors.Errorf("permutation %v doesn't match operand rank %d", perm, rank)
	}
	outputDims := make([]int, rank)
	seen := make([]bool, rank)
	for axis, srcAxis := range perm {
		if srcAxis < 0 || srcAxis >= rank || seen[srcAxis] {
			return nil, errors.Errorf("invalid permutation %v", perm)
		}
		seen[srcAxis] = true
		outputDims[axis] = operand.Shape.Dimensions[srcAxis]
	}
	output := &Tensor{
		Shape: shapes.Make(operand.Shape.DType, outputDims...),
		Flat:  make([]float64, len(operand.Flat)),
	}
	operandStrides := operand.Shape.Strides()
	// permutedStrides[k]: stride in the operand when moving along output axis k.
	permutedStrides := make([]int, rank)
	for axis, srcAxis := range perm {
		permutedStrides[axis] = operandStrides[srcAxis]
	}
	outputIdx := make([]int, rank)
	operandFlatIdx := 0
	for outputFlatIdx := range output.Flat {
		output.Flat[outputFlatIdx] = operand.Flat[operandFlatIdx]
		// Increment the output multi-index, tracking the operand flat index.
		for axis := rank - 1; axis >= 0; axis-- {
			outputIdx[axis]++
			operandFlatIdx += permutedStrides[axis]
			if outputIdx[axis] < outputDims[axis] {
				break
			}
			operandFlatIdx -= permutedStrides[axis] * outputDims[axis]
			outputIdx[axis] = 0
		}
	}
	return output, nil
}

// execReshape reinterprets the operand values with the dimensions given by shapeTensor,
// where one of them can be -1.
func execReshape(operand, shapeTensor *Tensor) (*Tensor, error) {
	dims := toInts(shapeTensor)
	inferAxis := -1
	knownSize := 1
	for axis, dim := range dims {
		switch {
		case dim == -1 && inferAxis == -1:
			inferAxis = axis
		case dim <= 0:
			return nil, errors.Errorf("invalid reshape dimensions %v", dims)
		default:
			knownSize *= dim
		}
	}
	if inferAxis != -1 && knownSize > 0 && len(operand.Flat)%knownSize == 0 {
		dims[inferAxis] = len(operand.Flat) / knownSize
		knownSize = len(operand.Flat)
	}
	if knownSize != len(operand.Flat) {
		return nil, errors.Errorf("cannot reshape %s to %v", operand.Shape, dims)
	}
	return &Tensor{Shape: shapes.Make(operand.Shape.DType, dims...), Flat: operand.Flat}, nil
}
