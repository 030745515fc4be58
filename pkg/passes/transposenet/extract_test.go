// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transposenet

import (
	"math"
	"reflect"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphopt/pkg/core/shapes"
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractShape(t *testing.T) {
	g := ir.NewGraph("test")
	x := must.M1(g.Parameter("x", shapes.Make(dtypes.Float32, 1, 7, 7, 448)))
	shape, ok := extractShape(x)
	require.True(t, ok)
	assert.Equal(t, []int32{1, 7, 7, 448}, shape)

	maxDim := must.M1(g.Parameter("max", shapes.Make(dtypes.Float32, math.MaxInt32, 1)))
	shape, ok = extractShape(maxDim)
	require.True(t, ok)
	assert.Equal(t, []int32{math.MaxInt32, 1}, shape)

	tooLarge := must.M1(g.Parameter("large", shapes.Make(dtypes.Float32, 2, math.MaxInt32+1)))
	shape, ok = extractShape(tooLarge)
	require.False(t, ok)
	assert.Nil(t, shape)

	// Unknown dimensions are extracted, the analyzer rejects them.
	dyn := must.M1(g.Parameter("dyn", shapes.MakeDynamic(dtypes.Float32, shapes.UnknownDim, 3)))
	shape, ok = extractShape(dyn)
	require.True(t, ok)
	assert.Equal(t, []int32{-1, 3}, shape)
}

func TestExtractConst(t *testing.T) {
	g := ir.NewGraph("test")
	testCases := []struct {
		name   string
		flat   any
		want   []int32
		wantOk bool
	}{
		{"int32", []int32{0, 3, 1, 2}, []int32{0, 3, 1, 2}, true},
		{"int32 limits", []int32{math.MinInt32, math.MaxInt32}, []int32{math.MinInt32, math.MaxInt32}, true},
		{"int64", []int64{0, 2, 1}, []int32{0, 2, 1}, true},
		{"int64 limits", []int64{math.MinInt32, math.MaxInt32}, []int32{math.MinInt32, math.MaxInt32}, true},
		{"int64 above int32", []int64{0, math.MaxInt32 + 1}, nil, false},
		{"int64 below int32", []int64{math.MinInt32 - 1, 0}, nil, false},
		{"float32", []float32{0, 1}, nil, false},
		{"float64", []float64{0, 1}, nil, false},
		{"bool", []bool{true, false}, nil, false},
		{"int8", []int8{0, 1}, nil, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := must.M1(g.Constant(tc.name, tc.flat, reflect.ValueOf(tc.flat).Len()))
			got, ok := extractConst(c)
			require.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	// Non-constants are never extracted.
	p := must.M1(g.Parameter("p", shapes.Make(dtypes.Int32, 2)))
	got, ok := extractConst(p)
	require.False(t, ok)
	assert.Nil(t, got)
}
