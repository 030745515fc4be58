// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package irtext loads ir graphs from YAML or JSON descriptions, like:
//
//	name: example
//	nodes:
//	  - {name: x, op: parameter, dtype: float32, dims: [1, 7, 7, 448]}
//	  - {name: p0, op: constant, dtype: int32, dims: [4], values: [0, 3, 1, 2]}
//	  - {name: t0, op: transpose, inputs: [x, p0]}
//	outputs: [t0]
//
// Nodes must be listed after their inputs. Parameter dimensions can be -1 (unknown).
package irtext

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	j "github.com/goccy/go-json"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphopt/pkg/core/shapes"
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/gomlx/graphopt/pkg/support/fsutil"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// GraphSpec is the description of a graph.
type GraphSpec struct {
	Name    string     `yaml:"name" json:"name"`
	Nodes   []NodeSpec `yaml:"nodes" json:"nodes"`
	Outputs []string   `yaml:"outputs" json:"outputs"`
}

// NodeSpec is the description of one node.
type NodeSpec struct {
	Name string `yaml:"name" json:"name"`

	// Op is the node kind, case-insensitive, e.g. "transpose".
	Op string `yaml:"op" json:"op"`

	// DType and Dims are only used by parameters and constants.
	DType string `yaml:"dtype,omitempty" json:"dtype,omitempty"`
	Dims  []int  `yaml:"dims,omitempty" json:"dims,omitempty"`

	// Values of a constant, converted to its dtype. Non-zero values are true for Bool.
	Values []float64 `yaml:"values,omitempty" json:"values,omitempty"`

	// Inputs are the names of the operands.
	Inputs []string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
}

// LoadYAML reads a YAML graph description and builds the graph. Unknown fields are errors.
func LoadYAML(r io.Reader) (*ir.Graph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var spec GraphSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML graph")
	}
	return Build(&spec)
}

// LoadJSON reads a JSON graph description and builds the graph. Unknown fields are errors.
func LoadJSON(r io.Reader) (*ir.Graph, error) {
	dec := j.NewDecoder(r)
	dec.DisallowUnknownFields()
	var spec GraphSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON graph")
	}
	return Build(&spec)
}

// Format of a graph file.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFromPath returns FormatJSON if the path extension is ".json", FormatYAML otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile loads a graph from a file, in the format given by its extension. A leading "~" is
// replaced by the user's home directory.
func LoadFile(path string) (*ir.Graph, error) {
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return nil, err
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read graph file")
	}
	var g *ir.Graph
	if FormatFromPath(path) == FormatJSON {
		g, err = LoadJSON(bytes.NewReader(contents))
	} else {
		g, err = LoadYAML(bytes.NewReader(contents))
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "loading %q", path)
	}
	return g, nil
}

// Build creates the graph described by spec. It reports all the errors found, not only the first one.
// Nodes whose inputs failed are skipped, without further errors.
func Build(spec *GraphSpec) (*ir.Graph, error) {
	g := ir.NewGraph(spec.Name)
	nodes := make(map[string]*ir.Node, len(spec.Nodes))
	failed := make(map[string]bool)
	var errs error
	for ii, nodeSpec := range spec.Nodes {
		if nodeSpec.Name == "" {
			errs = multierr.Append(errs, errors.Errorf("node #%d has no name", ii))
			continue
		}
		if _, found := nodes[nodeSpec.Name]; found || failed[nodeSpec.Name] {
			errs = multierr.Append(errs, errors.Errorf("node #%d: duplicate name %q", ii, nodeSpec.Name))
			continue
		}
		n, err := buildNode(g, &nodeSpec, nodes, failed)
		if err != nil {
			errs = multierr.Append(errs, errors.WithMessagef(err, "node #%d %q", ii, nodeSpec.Name))
		}
		if n == nil {
			failed[nodeSpec.Name] = true
			continue
		}
		nodes[nodeSpec.Name] = n
	}

	outputs := make([]*ir.Node, 0, len(spec.Outputs))
	for _, name := range spec.Outputs {
		n, found := nodes[name]
		if !found {
			if !failed[name] {
				errs = multierr.Append(errs, errors.Errorf("output %q is not defined", name))
			}
			continue
		}
		outputs = append(outputs, n)
	}
	if len(spec.Outputs) == 0 {
		errs = multierr.Append(errs, errors.New("graph has no outputs"))
	}
	if errs != nil {
		return nil, errs
	}
	g.SetOutputs(outputs...)
	return g, nil
}

// buildNode returns a nil node, and possibly no error, if the node couldn't be built.
func buildNode(g *ir.Graph, spec *NodeSpec, nodes map[string]*ir.Node, failed map[string]bool) (*ir.Node, error) {
	opType, err := ir.OpTypeString(spec.Op)
	if err != nil || opType == ir.OpTypeInvalid {
		return nil, errors.Errorf("unknown op %q", spec.Op)
	}

	inputs := make([]*ir.Node, 0, len(spec.Inputs))
	var errs error
	var inputFailed bool
	for _, name := range spec.Inputs {
		input, found := nodes[name]
		switch {
		case found:
			inputs = append(inputs, input)
		case failed[name]:
			inputFailed = true
		default:
			errs = multierr.Append(errs, errors.Errorf("input %q is not defined (nodes must be listed after their inputs)", name))
		}
	}
	if errs != nil || inputFailed {
		return nil, errs
	}

	wantInputs := map[ir.OpType]int{
		ir.OpTypeParameter: 0,
		ir.OpTypeConstant:  0,
		ir.OpTypeTranspose: 2,
		ir.OpTypeReshape:   2,
		ir.OpTypeIdentity:  1,
		ir.OpTypeNeg:       1,
		ir.OpTypeAdd:       2,
	}[opType]
	if len(inputs) != wantInputs {
		return nil, errors.Errorf("%s takes %d inputs, got %d", opType, wantInputs, len(inputs))
	}

	switch opType {
	case ir.OpTypeParameter:
		dtype, err := parseDType(spec.DType)
		if err != nil {
			return nil, err
		}
		for axis, dim := range spec.Dims {
			if dim <= 0 && dim != shapes.UnknownDim {
				return nil, errors.Errorf("invalid dimension %d for axis %d", dim, axis)
			}
		}
		return g.Parameter(spec.Name, shapes.MakeDynamic(dtype, spec.Dims...))
	case ir.OpTypeConstant:
		dtype, err := parseDType(spec.DType)
		if err != nil {
			return nil, err
		}
		flat, err := convertValues(dtype, spec.Values)
		if err != nil {
			return nil, err
		}
		return g.Constant(spec.Name, flat, spec.Dims...)
	case ir.OpTypeTranspose:
		return g.Transpose(spec.Name, inputs[0], inputs[1])
	case ir.OpTypeReshape:
		return g.Reshape(spec.Name, inputs[0], inputs[1])
	case ir.OpTypeIdentity:
		return g.Identity(spec.Name, inputs[0])
	case ir.OpTypeNeg:
		return g.Neg(spec.Name, inputs[0])
	case ir.OpTypeAdd:
		return g.Add(spec.Name, inputs[0], inputs[1])
	}
	return nil, errors.Errorf("op %s cannot be loaded", opType)
}

func parseDType(name string) (dtypes.DType, error) {
	if name == "" {
		return dtypes.InvalidDType, errors.New("missing dtype")
	}
	if dtype, err := dtypes.DTypeString(name); err == nil {
		return dtype, nil
	}
	// Also accept the alternative names, e.g. "float32" or "f32".
	for _, candidate := range []string{name, strings.ToLower(name)} {
		if dtype, found := dtypes.MapOfNames[candidate]; found {
			return dtype, nil
		}
	}
	return dtypes.InvalidDType, errors.Errorf("unknown dtype %q", name)
}

// maxExactInt is the largest magnitude up to which every integer is exactly representable as a
// float64. Integer values are limited to it, since they are written as JSON/YAML numbers.
const maxExactInt = 1 << 53

// convertValues converts the values to a slice of the Go type of dtype.
// Integer values must be integral and within the range of the dtype (and of maxExactInt).
func convertValues(dtype dtypes.DType, values []float64) (any, error) {
	switch dtype {
	case dtypes.Int32:
		return convertToInt[int32](dtype, values, math.MinInt32, math.MaxInt32)
	case dtypes.Int64:
		return convertToInt[int64](dtype, values, -maxExactInt, maxExactInt)
	case dtypes.Float32:
		return convertTo[float32](values), nil
	case dtypes.Float64:
		return convertTo[float64](values), nil
	case dtypes.Bool:
		flat := make([]bool, len(values))
		for ii, v := range values {
			flat[ii] = v != 0
		}
		return flat, nil
	}
	return nil, errors.Errorf("constants of dtype %s not supported", dtype)
}

func convertToInt[T int32 | int64](dtype dtypes.DType, values []float64, minValue, maxValue float64) ([]T, error) {
	flat := make([]T, len(values))
	var errs error
	for ii, v := range values {
		switch {
		case v != math.Trunc(v):
			errs = multierr.Append(errs, errors.Errorf("value #%d (%g) is not an integer", ii, v))
		case v < minValue || v > maxValue:
			errs = multierr.Append(errs, errors.Errorf("value #%d (%g) is out of range for %s", ii, v, dtype))
		default:
			flat[ii] = T(v)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return flat, nil
}

func convertTo[T float32 | float64](values []float64) []T {
	flat := make([]T, len(values))
	for ii, v := range values {
		flat[ii] = T(v)
	}
	return flat
}
