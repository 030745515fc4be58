// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transposenet

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphopt/pkg/ir"
)

// tagDim is one axis of a tracked shape: its dimension and the tags of the input axes whose
// data it carries, in major-to-minor order. Axes of dimension 1 carry no tag.
type tagDim struct {
	value int32
	tags  []int
}

// tagShape is a shape being tracked through the Transpose-Reshape-Transpose chain.
type tagShape []tagDim

// taggedShapeAnalyzer checks whether the two transposes of a Transpose-Reshape-Transpose chain
// leave the data in its original order, in which case the chain is a single Reshape.
//
// An analyzer is used for one candidate only: call init and then canRemoveTransposes.
//
// Example, for the chain:
//
//	Input(1, 7, 7, 448)
//	  -> Transpose(perm=(0, 3, 1, 2))
//	  -> Reshape(shape=(1, 448, 49))
//	  -> Transpose(perm=(0, 2, 1))
//	  -> Output(1, 49, 448)
//
// the tracked shape evolves as:
//
//	initShapeWithTag     value: (1) (7)    (7)    (448)
//	                     tags:  (-) (0)    (1)    (2)
//	analyzeTranspose     value: (1) (448)  (7)    (7)
//	                     tags:  (-) (2)    (0)    (1)
//	analyzeReshape       value: (1) (448)  (49)
//	                     tags:  (-) (2)    (0, 1)
//	analyzeTranspose     value: (1) (49)   (448)
//	                     tags:  (-) (0, 1) (2)
//
// The final tags read 0, 1, 2: both transposes can be removed.
type taggedShapeAnalyzer struct {
	inShape   []int32
	frontPerm []int32
	midShape  []int32
	backPerm  []int32

	initialized bool
	numTags     int
	shape       tagShape
}

// init extracts the shapes and permutations of the chain, and checks the conditions for the
// analysis:
//
//   - The rank of the input is >= the rank of the output.
//   - Both permutations are Constant nodes, with valid permutations.
//   - The input shape and the reshape output shape are fully known, with the same size.
//
// It returns false, leaving the analyzer uninitialized, if any condition is not met.
func (a *taggedShapeAnalyzer) init(frontTranspose, midReshape, backTranspose *ir.Node) bool {
	*a = taggedShapeAnalyzer{}
	in := frontTranspose.Input(0)
	if in.Rank() < backTranspose.Rank() {
		return false
	}

	frontPermNode, backPermNode := frontTranspose.Input(1), backTranspose.Input(1)
	if !frontPermNode.IsConstant() || !backPermNode.IsConstant() {
		return false
	}

	inShape, ok := extractShape(in)
	if !ok {
		return false
	}
	frontPerm, ok := extractConst(frontPermNode)
	if !ok {
		return false
	}
	midShape, ok := extractShape(midReshape)
	if !ok {
		return false
	}
	backPerm, ok := extractConst(backPermNode)
	if !ok {
		return false
	}

	if !allKnown(inShape) || !allKnown(midShape) {
		return false
	}
	if !isPermutation(frontPerm, len(inShape)) || !isPermutation(backPerm, len(midShape)) {
		return false
	}
	inSize, ok := product(inShape)
	if !ok {
		return false
	}
	midSize, ok := product(midShape)
	if !ok || inSize != midSize {
		return false
	}

	a.inShape, a.frontPerm, a.midShape, a.backPerm = inShape, frontPerm, midShape, backPerm
	a.initialized = true
	return true
}

// canRemoveTransposes returns whether the Transpose-Reshape-Transpose chain given to init is
// equivalent to a single Reshape of the chain input to the chain output shape.
//
// It panics if init was not called or failed.
func (a *taggedShapeAnalyzer) canRemoveTransposes() bool {
	if !a.initialized {
		exceptions.Panicf("transposenet: canRemoveTransposes() called on an uninitialized analyzer")
	}
	a.initShapeWithTag(a.inShape)
	a.analyzeTranspose(a.frontPerm)
	if !a.analyzeReshape(a.midShape) {
		return false
	}
	a.analyzeTranspose(a.backPerm)
	return a.verifyTag()
}

// initShapeWithTag sets the tracked shape to inShape, tagging the axes of dimension != 1
// with increasing tags starting at 0.
func (a *taggedShapeAnalyzer) initShapeWithTag(inShape []int32) {
	a.shape = make(tagShape, 0, len(inShape))
	a.numTags = 0
	for _, value := range inShape {
		dim := tagDim{value: value}
		if value != 1 {
			dim.tags = []int{a.numTags}
			a.numTags++
		}
		a.shape = append(a.shape, dim)
	}
}

// analyzeTranspose reorders the tracked shape: new[i] = old[perm[i]].
func (a *taggedShapeAnalyzer) analyzeTranspose(perm []int32) {
	if len(perm) != len(a.shape) {
		exceptions.Panicf("transposenet: permutation %v doesn't match the tracked rank %d", perm, len(a.shape))
	}
	permuted := make(tagShape, len(perm))
	for ii, srcAxis := range perm {
		permuted[ii] = a.shape[srcAxis]
	}
	a.shape = permuted
}

// analyzeReshape updates the tracked shape to newShape, if the reshape only merges contiguous
// axes or inserts/removes axes of dimension 1. It returns false otherwise, e.g. if it would
// split an axis.
//
// Example, newShape=(1, 448, 49):
//
//	before   value: (1) (448) (7) (7)
//	         tags:  (-) (2)   (0) (1)
//	after    value: (1) (448) (49)
//	         tags:  (-) (2)   (0, 1)
func (a *taggedShapeAnalyzer) analyzeReshape(newShape []int32) bool {
	if len(newShape) == 0 {
		return false
	}

	// The window a.shape[start:end] is the run of old axes merged into the current target axis.
	var start int
	reshaped := make(tagShape, 0, len(newShape))
	for _, target := range newShape {
		if target == 1 {
			reshaped = append(reshaped, tagDim{value: 1})
			continue
		}
		windowProduct := int64(1)
		end := start
		for windowProduct < int64(target) && end < len(a.shape) {
			windowProduct *= int64(a.shape[end].value)
			end++
		}
		if windowProduct != int64(target) {
			return false
		}
		dim := tagDim{value: target}
		for _, old := range a.shape[start:end] {
			dim.tags = append(dim.tags, old.tags...)
		}
		reshaped = append(reshaped, dim)
		start = end
	}
	for _, old := range a.shape[start:] {
		if len(old.tags) > 0 {
			return false
		}
	}
	a.shape = reshaped
	return true
}

// verifyTag returns whether the tags of the tracked shape, read in order, are exactly 0, 1, ..., numTags-1.
func (a *taggedShapeAnalyzer) verifyTag() bool {
	var want int
	for _, dim := range a.shape {
		for _, tag := range dim.tags {
			if tag != want {
				return false
			}
			want++
		}
	}
	return want == a.numTags
}

func allKnown(shape []int32) bool {
	for _, dim := range shape {
		if dim <= 0 {
			return false
		}
	}
	return true
}

// product returns the number of elements of shape, or ok=false if it doesn't fit an int64.
// Dimensions must be positive.
func product(shape []int32) (p int64, ok bool) {
	p = 1
	for _, dim := range shape {
		if p > math.MaxInt64/int64(dim) {
			return 0, false
		}
		p *= int64(dim)
	}
	return p, true
}

// isPermutation returns whether perm is a permutation of 0..rank-1.
func isPermutation(perm []int32, rank int) bool {
	if len(perm) != rank {
		return false
	}
	seen := make([]bool, rank)
	for _, axis := range perm {
		if axis < 0 || int(axis) >= rank || seen[axis] {
			return false
		}
		seen[axis] = true
	}
	return true
}
