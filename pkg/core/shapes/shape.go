// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the dtype and dimensions of a node in a graph.
//
// Dimensions may be unknown at graph-construction time (for instance the output of a
// Transpose whose permutation is computed at runtime). Unknown dimensions are represented
// by UnknownDim, and such shapes can only be created with MakeDynamic.
//
// ## Glossary
//
//   - Rank: number of axes of a tensor.
//   - Axis: the index of a dimension. We refer to the index as "axis" and to its size as
//     "dimension".
//   - DType: the data type of the unit element, from github.com/gomlx/gopjrt/dtypes.
//   - Scalar: a shape with no axes.
//
// Example: `shapes.Make(dtypes.Int32, 2, 3)` is the shape of `[][]int32{{0, 1, 2}, {3, 4, 5}}`,
// printed as `(Int32)[2 3]`.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// UnknownDim is the dimension value of an axis whose size is not known.
const UnknownDim = -1

// Shape represents the shape of a node in a graph: its dtype and dimensions.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape with all dimensions known.
//
// It panics if any dimension is <= 0. Use MakeDynamic for shapes with unknown dimensions.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0, use MakeDynamic", s)
		}
	}
	return s
}

// MakeDynamic returns a Shape where dimensions may be UnknownDim.
//
// It panics for dimensions that are neither positive nor UnknownDim.
func MakeDynamic(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 && dim != UnknownDim {
			exceptions.Panicf("shapes.MakeDynamic(%s): invalid dimension %d", s, dim)
		}
	}
	return s
}

// Unknown returns a shape of the given rank where every dimension is UnknownDim.
func Unknown(dtype dtypes.DType, rank int) Shape {
	s := Shape{DType: dtype, Dimensions: make([]int, rank)}
	for axis := range s.Dimensions {
		s.Dimensions[axis] = UnknownDim
	}
	return s
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape has no axes.
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts from the end -- so axis=-1 refers to the last axis.
// It panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// IsFullyKnown returns whether every dimension is known.
func (s Shape) IsFullyKnown() bool {
	for _, dim := range s.Dimensions {
		if dim <= 0 {
			return false
		}
	}
	return true
}

// Size returns the number of elements of the shape, the product of all dimensions.
// It returns UnknownDim if any of the dimensions is unknown.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		if dim <= 0 {
			return UnknownDim
		}
		size *= dim
	}
	return size
}

// Memory returns the number of bytes used to store a tensor of this shape, or 0 if it is not fully known.
func (s Shape) Memory() uintptr {
	size := s.Size()
	if size < 0 {
		return 0
	}
	return s.DType.Memory() * uintptr(size)
}

// Shape returns itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// HasShape is implemented by anything that has a shape, like graph nodes.
type HasShape interface {
	Shape() Shape
}

// String implements fmt.Stringer. Unknown dimensions are printed as "?".
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, len(s.Dimensions))
	for axis, dim := range s.Dimensions {
		if dim == UnknownDim {
			parts[axis] = "?"
		} else {
			parts[axis] = fmt.Sprintf("%d", dim)
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && s.EqualDimensions(s2)
}

// EqualDimensions compares the dimensions of two shapes. DTypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// CheckDims checks that the shape has the given dimensions and rank. A value of -1 in
// dimensions means it can take any value and is not checked.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape %s has incompatible rank %d (wanted %d)", s, s.Rank(), len(dimensions))
	}
	for axis, wantDim := range dimensions {
		if wantDim != -1 && s.Dimensions[axis] != wantDim {
			return errors.Errorf("shape %s axis %d has dimension %d, wanted %d (shape wanted=%v)",
				s, axis, s.Dimensions[axis], wantDim, dimensions)
		}
	}
	return nil
}

// AssertDims is like CheckDims, but panics if it doesn't match.
func (s Shape) AssertDims(dimensions ...int) {
	if err := s.CheckDims(dimensions...); err != nil {
		exceptions.Panicf("shapes.AssertDims(%v): %+v", dimensions, err)
	}
}

// Strides returns the row-major strides of a fully known shape: the number of elements to
// skip to advance one position in each axis.
func (s Shape) Strides() []int {
	strides := make([]int, s.Rank())
	stride := 1
	for axis := s.Rank() - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= s.Dimensions[axis]
	}
	return strides
}
