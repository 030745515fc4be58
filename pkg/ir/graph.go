// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ir defines the dataflow graph optimized by the passes in package passes.
//
// A Graph is an arena of nodes: every node is created by one of the Graph operations
// (Parameter, Constant, Transpose, Reshape, ...) and is addressed by a stable NodeID, its
// position in the arena. Nodes are never moved or reused: rewriting a graph means creating new
// nodes, rewiring the consumers of old ones (ReplaceAllUses) and marking the old ones dead.
// Sweep marks as dead everything no longer reachable from the graph outputs.
//
// A Graph is not safe for concurrent use.
package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphopt/pkg/core/shapes"
)

// NodeID is the stable handle of a node in its Graph.
type NodeID int

// InvalidNodeID is returned for nil nodes.
const InvalidNodeID NodeID = -1

// Graph holds the nodes of a computation and its outputs.
type Graph struct {
	name string

	// nodes are only created when their inputs have already been created, so the arena
	// order is a valid topological order of the graph.
	nodes []*Node

	// parameters in order of creation.
	parameters []*Node

	outputs []*Node
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{name: name}
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// Node in the graph.
type Node struct {
	graph  *Graph
	id     NodeID
	opType OpType
	name   string
	shape  shapes.Shape
	inputs []*Node

	// data for the specific node type: the flat values for a Constant.
	data any

	origin *Origin
	dead   bool
}

// newNode adds a new node to the arena. Its origin is the node itself.
func (g *Graph) newNode(opType OpType, name string, shape shapes.Shape, inputs ...*Node) *Node {
	n := &Node{
		graph:  g,
		id:     NodeID(len(g.nodes)),
		opType: opType,
		name:   name,
		shape:  shape,
		inputs: slices.Clone(inputs),
	}
	if n.name == "" {
		n.name = fmt.Sprintf("%s_%d", strings.ToLower(opType.String()), n.id)
	}
	n.origin = NewOrigin(SourceID(n.id), n.name)
	g.nodes = append(g.nodes, n)
	return n
}

// Node returns the node with the given id. It panics if id is out of range.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("Graph(%q).Node(%d): invalid node id, graph has %d nodes", g.name, id, len(g.nodes))
	}
	return g.nodes[id]
}

// NumNodes returns the number of nodes ever created in the graph, dead ones included.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumLive returns the number of nodes not marked as dead.
func (g *Graph) NumLive() int {
	var count int
	for _, n := range g.nodes {
		if !n.dead {
			count++
		}
	}
	return count
}

// Parameters returns the parameter nodes, in order of creation.
func (g *Graph) Parameters() []*Node { return slices.Clone(g.parameters) }

// SetOutputs sets the outputs of the graph. Outputs must be live nodes of this graph.
func (g *Graph) SetOutputs(outputs ...*Node) {
	for ii, out := range outputs {
		g.checkNode(fmt.Sprintf("SetOutputs(#%d)", ii), out)
	}
	g.outputs = slices.Clone(outputs)
}

// Outputs returns the current outputs of the graph.
func (g *Graph) Outputs() []*Node { return slices.Clone(g.outputs) }

// checkNode panics if n is nil, from a different graph or dead.
func (g *Graph) checkNode(context string, n *Node) {
	if n == nil {
		exceptions.Panicf("Graph(%q).%s: nil node", g.name, context)
	}
	if n.graph != g {
		exceptions.Panicf("Graph(%q).%s: node %s belongs to graph %q", g.name, context, n, n.graph.name)
	}
	if n.dead {
		exceptions.Panicf("Graph(%q).%s: node %s is dead", g.name, context, n)
	}
}

// ID returns the node's stable handle in its graph.
func (n *Node) ID() NodeID {
	if n == nil {
		return InvalidNodeID
	}
	return n.id
}

// Graph that owns the node.
func (n *Node) Graph() *Graph { return n.graph }

// OpType returns the kind of the node.
func (n *Node) OpType() OpType { return n.opType }

// Name of the node.
func (n *Node) Name() string { return n.name }

// Shape of the node output.
func (n *Node) Shape() shapes.Shape { return n.shape }

// Rank of the node output.
func (n *Node) Rank() int { return n.shape.Rank() }

// Dim returns the dimension of the given axis of the node output, possibly shapes.UnknownDim.
func (n *Node) Dim(axis int) int { return n.shape.Dim(axis) }

// Inputs returns the operands of the node.
func (n *Node) Inputs() []*Node { return slices.Clone(n.inputs) }

// NumInputs returns the number of operands.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th operand. It panics if out of range.
func (n *Node) Input(i int) *Node {
	if i < 0 || i >= len(n.inputs) {
		exceptions.Panicf("Node %s has %d inputs, cannot access input #%d", n, len(n.inputs), i)
	}
	return n.inputs[i]
}

// IsConstant returns whether the node is a Constant, whose values are known at graph-construction time.
func (n *Node) IsConstant() bool { return n.opType == OpTypeConstant }

// ConstantValue returns the flat slice of values of a Constant node (e.g. []int32), or nil for
// other kinds of nodes. The returned slice must not be modified.
func (n *Node) ConstantValue() any {
	if !n.IsConstant() {
		return nil
	}
	return n.data
}

// Origin returns the provenance of the node.
func (n *Node) Origin() *Origin { return n.origin }

// SetOrigin replaces the provenance of the node.
func (n *Node) SetOrigin(origin *Origin) { n.origin = origin }

// IsDead returns whether the node was removed from the graph.
func (n *Node) IsDead() bool { return n.dead }

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d(%s)", n.name, n.id, n.opType)
}
