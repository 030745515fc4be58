// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphopt/pkg/support/sets"
)

// ActiveNodes returns the live nodes transitively reachable from the graph outputs, inputs
// always before their consumers.
//
// The returned slice is a snapshot: rewriting the graph doesn't change it.
func (g *Graph) ActiveNodes() []*Node {
	visited := sets.Make[*Node](len(g.nodes))
	var active []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if visited.Has(n) {
			return
		}
		visited.Insert(n)
		for _, input := range n.inputs {
			visit(input)
		}
		active = append(active, n)
	}
	for _, out := range g.outputs {
		visit(out)
	}
	return active
}

// Consumers returns the live nodes that use n as an input, in arena order.
func (g *Graph) Consumers(n *Node) []*Node {
	var consumers []*Node
	for _, candidate := range g.nodes {
		if candidate.dead {
			continue
		}
		for _, input := range candidate.inputs {
			if input == n {
				consumers = append(consumers, candidate)
				break
			}
		}
	}
	return consumers
}

// IsOutput returns whether n is one of the graph outputs.
func (g *Graph) IsOutput(n *Node) bool {
	for _, out := range g.outputs {
		if out == n {
			return true
		}
	}
	return false
}

// IsUsed returns whether n is an output of the graph or an input of a live node.
func (g *Graph) IsUsed(n *Node) bool {
	return g.IsOutput(n) || len(g.Consumers(n)) > 0
}

// ReplaceAllUses rewires every live consumer of oldNode, and every graph output pointing to it,
// to use newNode instead. oldNode itself is left in place: it becomes unreachable, and is
// removed by MarkDead or Sweep.
//
// Both nodes must produce the same shape. It panics otherwise, since that would change the
// semantics of the graph.
func (g *Graph) ReplaceAllUses(oldNode, newNode *Node) {
	g.checkNode("ReplaceAllUses(oldNode)", oldNode)
	g.checkNode("ReplaceAllUses(newNode)", newNode)
	if oldNode == newNode {
		exceptions.Panicf("Graph(%q).ReplaceAllUses(%s): cannot replace node by itself", g.name, oldNode)
	}
	if !oldNode.shape.Equal(newNode.shape) {
		exceptions.Panicf("Graph(%q).ReplaceAllUses(%s, %s): shapes differ, %s != %s",
			g.name, oldNode, newNode, oldNode.shape, newNode.shape)
	}
	for _, n := range g.nodes {
		if n.dead || n == newNode {
			continue
		}
		for ii, input := range n.inputs {
			if input == oldNode {
				n.inputs[ii] = newNode
			}
		}
	}
	for ii, out := range g.outputs {
		if out == oldNode {
			g.outputs[ii] = newNode
		}
	}
}

// MarkDead removes a node that is no longer used from the graph. Its handle remains valid, but
// the node can no longer be used as an input.
//
// It panics if the node is still used by a live node or is an output.
func (g *Graph) MarkDead(n *Node) {
	g.checkNode("MarkDead", n)
	if g.IsUsed(n) {
		exceptions.Panicf("Graph(%q).MarkDead(%s): node is still in use", g.name, n)
	}
	g.kill(n)
}

func (g *Graph) kill(n *Node) {
	n.dead = true
	n.inputs = nil
	n.data = nil
}

// Sweep marks as dead every node not reachable from the graph outputs, except parameters,
// and returns the number of nodes removed.
func (g *Graph) Sweep() int {
	reachable := sets.MakeWith(g.ActiveNodes()...)
	var removed int
	for _, n := range g.nodes {
		if n.dead || n.opType == OpTypeParameter || reachable.Has(n) {
			continue
		}
		g.kill(n)
		removed++
	}
	return removed
}

// String returns a listing of the active nodes, one per line, followed by the outputs.
func (g *Graph) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Graph %q:\n", g.name)
	for _, n := range g.ActiveNodes() {
		_, _ = fmt.Fprintf(&sb, "  %s\n", n.Describe())
	}
	outputs := make([]string, len(g.outputs))
	for ii, out := range g.outputs {
		outputs[ii] = fmt.Sprintf("#%d", out.id)
	}
	_, _ = fmt.Fprintf(&sb, "  outputs: %s\n", strings.Join(outputs, ", "))
	return sb.String()
}

// Describe returns a one-line description of the node: id, name, kind, operands, shape and,
// for constants, the values.
func (n *Node) Describe() string {
	inputs := make([]string, len(n.inputs))
	for ii, input := range n.inputs {
		inputs[ii] = fmt.Sprintf("#%d", input.id)
	}
	desc := fmt.Sprintf("#%d %s = %s(%s) %s", n.id, n.name, n.opType, strings.Join(inputs, ", "), n.shape)
	if n.IsConstant() && n.shape.Size() <= 16 {
		desc += fmt.Sprintf(" %v", n.data)
	}
	return desc
}
