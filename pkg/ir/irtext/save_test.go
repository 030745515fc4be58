// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package irtext

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphopt/pkg/core/shapes"
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/google/go-cmp/cmp"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestToSpec(t *testing.T) {
	g := ir.NewGraph("spec")
	x := must.M1(g.Parameter("x", shapes.MakeDynamic(dtypes.Float32, shapes.UnknownDim, 2)))
	mask := must.M1(g.Constant("mask", []bool{true, false}, 2))
	// Two nodes named "n".
	n1 := must.M1(g.Neg("n", x))
	n2 := must.M1(g.Neg("n", n1))
	g.SetOutputs(n2, mask)

	want := &GraphSpec{
		Name: "spec",
		Nodes: []NodeSpec{
			{Name: "x", Op: "parameter", DType: "float32", Dims: []int{-1, 2}, Inputs: []string{}},
			{Name: "n", Op: "neg", Inputs: []string{"x"}},
			{Name: "n#3", Op: "neg", Inputs: []string{"n"}},
			{Name: "mask", Op: "constant", DType: "bool", Dims: []int{2}, Values: []float64{1, 0}, Inputs: []string{}},
		},
		Outputs: []string{"n#3", "mask"},
	}
	if diff := cmp.Diff(want, ToSpec(g)); diff != "" {
		t.Errorf("unexpected spec (-want +got):\n%s", diff)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	original := must.M1(LoadYAML(strings.NewReader(exampleYAML)))
	for _, format := range []Format{FormatYAML, FormatJSON} {
		data, err := Marshal(original, format)
		require.NoError(t, err)
		var loaded *ir.Graph
		if format == FormatJSON {
			loaded, err = LoadJSON(strings.NewReader(string(data)))
		} else {
			loaded, err = LoadYAML(strings.NewReader(string(data)))
		}
		require.NoError(t, err, "format %d:\n%s", format, data)
		if diff := cmp.Diff(describe(original), describe(loaded)); diff != "" {
			t.Errorf("graph changed after round trip in format %d (-want +got):\n%s", format, diff)
		}
	}
}

func TestSaveFile(t *testing.T) {
	g := must.M1(LoadYAML(strings.NewReader(exampleYAML)))
	path := filepath.Join(t.TempDir(), "out", "graph.json")
	require.NoError(t, SaveFile(g, path, false))
	require.Error(t, SaveFile(g, path, false))
	require.NoError(t, SaveFile(g, path, true))

	loaded := must.M1(LoadFile(path))
	require.Equal(t, describe(g), describe(loaded))
}

func TestSaveInexactInt64(t *testing.T) {
	g := ir.NewGraph("big")
	ok := must.M1(g.Constant("ok", []int64{-(1 << 53), 1 << 53}, 2))
	big := must.M1(g.Constant("big", []int64{1, 1<<53 + 1}, 2))
	g.SetOutputs(ok, big)
	_, err := Marshal(g, FormatYAML)
	require.ErrorContains(t, err, `constant "big": value #1 (9007199254740993)`)

	g.SetOutputs(ok)
	data, err := Marshal(g, FormatJSON)
	require.NoError(t, err)
	loaded := must.M1(LoadJSON(strings.NewReader(string(data))))
	require.Equal(t, []int64{-(1 << 53), 1 << 53}, loaded.Outputs()[0].ConstantValue())
}
