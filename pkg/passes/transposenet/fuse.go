// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transposenet

import (
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// matchChain returns the front Transpose and middle Reshape of a Transpose-Reshape-Transpose chain
// ending at backTranspose, or ok=false if there is no such chain.
func matchChain(backTranspose *ir.Node) (frontTranspose, midReshape *ir.Node, ok bool) {
	if backTranspose.OpType() != ir.OpTypeTranspose {
		return nil, nil, false
	}
	midReshape = backTranspose.Input(0)
	if midReshape.OpType() != ir.OpTypeReshape {
		return nil, nil, false
	}
	frontTranspose = midReshape.Input(0)
	if frontTranspose.OpType() != ir.OpTypeTranspose {
		return nil, nil, false
	}
	return frontTranspose, midReshape, true
}

// fuse replaces the Transpose-Reshape-Transpose chain ending at node by a single Reshape, if the
// transposes don't change the order of the data. It returns whether the graph was changed.
//
//	BEFORE                                    AFTER
//
//	 in      perm                              in      shape
//	  \      /                                  \      /
//	  Transpose   shape                          Reshape
//	        \     /                                 |
//	        Reshape    perm                        out
//	             \     /
//	             Transpose
//	                 |
//	                out
func fuse(g *ir.Graph, node *ir.Node) bool {
	backTranspose := node
	frontTranspose, midReshape, ok := matchChain(backTranspose)
	if !ok {
		return false
	}

	var analyzer taggedShapeAnalyzer
	if !analyzer.init(frontTranspose, midReshape, backTranspose) {
		klog.V(2).Infof("transposenet: %s-%s-%s not analyzable", frontTranspose, midReshape, backTranspose)
		return false
	}
	if !analyzer.canRemoveTransposes() {
		klog.V(2).Infof("transposenet: %s-%s-%s transposes change the data order", frontTranspose, midReshape, backTranspose)
		return false
	}

	reshape, err := createReshape(g, frontTranspose, midReshape, backTranspose)
	if err != nil {
		// The analysis validated the shapes, so the graph rejecting the new nodes is a bug.
		panic(errors.WithMessagef(err, "transposenet: failed to create Reshape replacing %s-%s-%s",
			frontTranspose, midReshape, backTranspose))
	}
	g.ReplaceAllUses(backTranspose, reshape)
	g.MarkDead(backTranspose)
	for _, n := range []*ir.Node{midReshape, frontTranspose} {
		if !g.IsUsed(n) {
			g.MarkDead(n)
		}
	}
	klog.V(1).Infof("transposenet: replaced %s-%s-%s by %s %s",
		frontTranspose, midReshape, backTranspose, reshape, reshape.Shape())
	return true
}

// createReshape creates a Reshape from the input of frontTranspose to the shape of backTranspose.
// The new nodes are named after the three replaced nodes and carry their composed origin.
func createReshape(g *ir.Graph, frontTranspose, midReshape, backTranspose *ir.Node) (*ir.Node, error) {
	composedName := frontTranspose.Name() + ";" + midReshape.Name() + ";" + backTranspose.Name()
	composedOrigin := ir.ComposeOrigins(frontTranspose.Origin(), midReshape.Origin(), backTranspose.Origin())

	dims, ok := extractShape(backTranspose)
	if !ok {
		return nil, errors.Errorf("output shape %s doesn't fit int32", backTranspose.Shape())
	}
	shapeNode, err := g.Constant(composedName+"/shape", dims, len(dims))
	if err != nil {
		return nil, err
	}
	shapeNode.SetOrigin(composedOrigin)

	reshape, err := g.Reshape(composedName, frontTranspose.Input(0), shapeNode)
	if err != nil {
		return nil, err
	}
	reshape.SetOrigin(composedOrigin)
	return reshape, nil
}
