// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eval

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphopt/pkg/core/shapes"
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestTranspose(t *testing.T) {
	g := ir.NewGraph("transpose")
	x := must.M1(g.Parameter("x", shapes.Make(dtypes.Float32, 2, 3)))
	tr := must.M1(g.Transpose("t", x, must.M1(g.Constant("perm", []int32{1, 0}, 2))))
	g.SetOutputs(tr)

	// x = [[0 1 2] [3 4 5]] -> [[0 3] [1 4] [2 5]]
	outputs, err := Run(g, map[string]*Tensor{"x": Iota(shapes.Make(dtypes.Float32, 2, 3))})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	require.Equal(t, []int{3, 2}, outputs[0].Shape.Dimensions)
	require.Equal(t, []float64{0, 3, 1, 4, 2, 5}, outputs[0].Flat)
}

func TestTranspose3D(t *testing.T) {
	g := ir.NewGraph("transpose3d")
	x := must.M1(g.Parameter("x", shapes.Make(dtypes.Float32, 2, 3, 4)))
	tr := must.M1(g.Transpose("t", x, must.M1(g.Constant("perm", []int64{2, 0, 1}, 3))))
	g.SetOutputs(tr)
	outputs, err := Run(g, map[string]*Tensor{"x": Iota(shapes.Make(dtypes.Float32, 2, 3, 4))})
	require.NoError(t, err)
	out := outputs[0]
	require.Equal(t, []int{4, 2, 3}, out.Shape.Dimensions)
	// out[k, i, j] = x[i, j, k] = 12*i + 4*j + k.
	for k := range 4 {
		for i := range 2 {
			for j := range 3 {
				require.Equal(t, float64(12*i+4*j+k), out.Flat[k*6+i*3+j])
			}
		}
	}
}

func TestRuntimePermutationAndShape(t *testing.T) {
	g := ir.NewGraph("runtime")
	x := must.M1(g.Parameter("x", shapes.Make(dtypes.Float32, 2, 3)))
	perm := must.M1(g.Parameter("perm", shapes.Make(dtypes.Int32, 2)))
	tr := must.M1(g.Transpose("t", x, perm))
	shape := must.M1(g.Constant("shape", []int32{-1}, 1))
	flat := must.M1(g.Reshape("flat", tr, shape))
	g.SetOutputs(flat)

	outputs, err := Run(g, map[string]*Tensor{
		"x":    Iota(shapes.Make(dtypes.Float32, 2, 3)),
		"perm": must.M1(NewTensor(shapes.Make(dtypes.Int32, 2), []float64{1, 0})),
	})
	require.NoError(t, err)
	require.Equal(t, []int{6}, outputs[0].Shape.Dimensions)
	require.Equal(t, []float64{0, 3, 1, 4, 2, 5}, outputs[0].Flat)

	_, err = Run(g, map[string]*Tensor{
		"x":    Iota(shapes.Make(dtypes.Float32, 2, 3)),
		"perm": must.M1(NewTensor(shapes.Make(dtypes.Int32, 2), []float64{1, 1})),
	})
	require.Error(t, err)
}

func TestElementwise(t *testing.T) {
	g := ir.NewGraph("elementwise")
	x := must.M1(g.Parameter("x", shapes.Make(dtypes.Float64, 3)))
	c := must.M1(g.Constant("c", []float64{10, 20, 30}, 3))
	sum := must.M1(g.Add("sum", must.M1(g.Neg("neg", x)), must.M1(g.Identity("id", c))))
	g.SetOutputs(sum, x)
	outputs, err := Run(g, map[string]*Tensor{"x": Iota(shapes.Make(dtypes.Float64, 3))})
	require.NoError(t, err)
	require.Equal(t, []float64{10, 19, 28}, outputs[0].Flat)
	require.Equal(t, []float64{0, 1, 2}, outputs[1].Flat)
}

func TestErrors(t *testing.T) {
	g := ir.NewGraph("errors")
	x := must.M1(g.Parameter("x", shapes.MakeDynamic(dtypes.Float32, shapes.UnknownDim, 3)))
	g.SetOutputs(x)

	_, err := Run(g, nil)
	require.Error(t, err)
	_, err = Run(g, map[string]*Tensor{"x": Iota(shapes.Make(dtypes.Float32, 2, 4))})
	require.Error(t, err)
	_, err = Run(g, map[string]*Tensor{"x": Iota(shapes.Make(dtypes.Int32, 2, 3))})
	require.Error(t, err)
	outputs, err := Run(g, map[string]*Tensor{"x": Iota(shapes.Make(dtypes.Float32, 5, 3))})
	require.NoError(t, err)
	require.Equal(t, []int{5, 3}, outputs[0].Shape.Dimensions)

	_, err = NewTensor(shapes.Make(dtypes.Float32, 2), []float64{1})
	require.Error(t, err)
	_, err = NewTensor(shapes.MakeDynamic(dtypes.Float32, shapes.UnknownDim), []float64{1})
	require.Error(t, err)
}
