// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package irtext

import (
	"fmt"
	"strings"

	j "github.com/goccy/go-json"
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/gomlx/graphopt/pkg/support/fsutil"
	"github.com/gomlx/graphopt/pkg/support/xslices"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ToSpec returns the description of the active nodes of the graph, which Build turns back into
// an equivalent graph.
//
// Node names are kept, except for repeated names, which get the node id appended, e.g. "x#7".
func ToSpec(g *ir.Graph) *GraphSpec {
	spec := &GraphSpec{Name: g.Name()}
	names := make(map[*ir.Node]string)
	used := make(map[string]bool)
	for _, n := range g.ActiveNodes() {
		name := n.Name()
		if used[name] {
			name = fmt.Sprintf("%s#%d", name, n.ID())
		}
		used[name] = true
		names[n] = name

		nodeSpec := NodeSpec{
			Name:   name,
			Op:     strings.ToLower(n.OpType().String()),
			Inputs: xslices.Map(n.Inputs(), func(input *ir.Node) string { return names[input] }),
		}
		if n.OpType() == ir.OpTypeParameter || n.IsConstant() {
			nodeSpec.DType = strings.ToLower(n.Shape().DType.String())
			nodeSpec.Dims = n.Shape().Dimensions
		}
		if n.IsConstant() {
			nodeSpec.Values = constantToFloat64(n.ConstantValue())
		}
		spec.Nodes = append(spec.Nodes, nodeSpec)
	}
	spec.Outputs = xslices.Map(g.Outputs(), func(out *ir.Node) string { return names[out] })
	return spec
}

func constantToFloat64(flat any) []float64 {
	switch values := flat.(type) {
	case []int32:
		return xslices.Map(values, func(v int32) float64 { return float64(v) })
	case []int64:
		return xslices.Map(values, func(v int64) float64 { return float64(v) })
	case []float32:
		return xslices.Map(values, func(v float32) float64 { return float64(v) })
	case []float64:
		return values
	case []bool:
		return xslices.Map(values, func(v bool) float64 {
			if v {
				return 1
			}
			return 0
		})
	}
	return nil
}

// checkExactValues returns an error for each Int64 constant with values beyond maxExactInt.
func checkExactValues(g *ir.Graph) error {
	var errs error
	for _, n := range g.ActiveNodes() {
		values, ok := n.ConstantValue().([]int64)
		if !ok {
			continue
		}
		for ii, v := range values {
			if v < -maxExactInt || v > maxExactInt {
				errs = multierr.Append(errs, errors.Errorf(
					"constant %q: value #%d (%d) can't be saved exactly, integers are limited to ±2^53", n.Name(), ii, v))
				break
			}
		}
	}
	return errs
}

// Marshal returns the description of the graph in the given format.
// It fails if an integer constant holds a value that a float64 can't represent exactly, see
// maxExactInt.
func Marshal(g *ir.Graph, format Format) ([]byte, error) {
	if err := checkExactValues(g); err != nil {
		return nil, err
	}
	spec := ToSpec(g)
	var data []byte
	var err error
	if format == FormatJSON {
		data, err = j.MarshalIndent(spec, "", "  ")
	} else {
		data, err = yaml.Marshal(spec)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal graph %q", g.Name())
	}
	return data, nil
}

// SaveFile writes the description of the graph to path, in the format given by its extension.
// It fails if the file exists, unless overwrite is true.
func SaveFile(g *ir.Graph, path string, overwrite bool) error {
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return err
	}
	data, err := Marshal(g, FormatFromPath(path))
	if err != nil {
		return err
	}
	return fsutil.WriteFile(path, data, overwrite)
}
