// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/bayes/types/sets"
	"github.com/gomlx/exceptions"
)

// This file implements the backward traversal and the substitution (clone-with-replacement)
// of expression graphs. Both are purely functional: nodes are never mutated, substitution
// creates new nodes in the same Graph.

// Ancestors traverses the expression graph backward from the given output nodes and returns
// every node reachable from them (the outputs included), in visit order.
//
// If walkPastRandomVariables is false, the traversal stops at random-variable boundaries: a
// RandomVariable node is returned, but its own parameter sub-graph is not visited. Set it to
// true to continue into the parameters of random variables.
func Ancestors(outputs []*Node, walkPastRandomVariables bool) []*Node {
	visited := sets.Make[*Node]()
	var ancestors []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		n.AssertValid()
		if visited.Has(n) {
			return
		}
		visited.Insert(n)
		ancestors = append(ancestors, n)
		if n.IsRandomVariable() && !walkPastRandomVariables {
			return
		}
		for _, input := range n.Inputs() {
			visit(input)
		}
	}
	for _, output := range outputs {
		visit(output)
	}
	return ancestors
}

// RandomVariableAncestors returns the RandomVariable nodes among the ancestors of the given
// outputs, in visit order. It always walks past random-variable boundaries.
func RandomVariableAncestors(outputs []*Node) []*Node {
	var rvs []*Node
	for _, node := range Ancestors(outputs, true) {
		if node.IsRandomVariable() {
			rvs = append(rvs, node)
		}
	}
	return rvs
}

// GraphInputs returns the leaf nodes (nodes without inputs, other than constants) reachable
// from the given outputs: the Parameter and parameterless RandomVariable nodes the outputs
// depend on.
func GraphInputs(outputs []*Node) []*Node {
	var inputs []*Node
	for _, node := range Ancestors(outputs, true) {
		if node.NumInputs() == 0 && node.Type() != NodeTypeConstant {
			inputs = append(inputs, node)
		}
	}
	return inputs
}

// Consumers returns the nodes among the ancestors of outputs that take the node of directly
// as one of their inputs, in visit order.
func Consumers(outputs []*Node, of *Node) []*Node {
	of.AssertValid()
	var consumers []*Node
	for _, node := range Ancestors(outputs, true) {
		for _, input := range node.Inputs() {
			if input == of {
				consumers = append(consumers, node)
				break
			}
		}
	}
	return consumers
}

// ReplaceAll rebuilds the expressions of the given outputs with every occurrence of the keys
// of replacements substituted by the corresponding value node. Nodes that don't depend on any
// replaced node are reused as is, everything else is cloned into new nodes of the same Graph.
//
// Replacement nodes must have the same dtype and dimensions as the nodes they replace.
// The original nodes are not changed.
func ReplaceAll(outputs []*Node, replacements map[*Node]*Node) []*Node {
	for original, replacement := range replacements {
		original.AssertValid()
		replacement.AssertValid()
		if original.Graph() != replacement.Graph() {
			exceptions.Panicf("ReplaceAll: replacement for node #%d is part of a different graph", original.Id())
		}
		if !original.Shape().Equal(replacement.Shape()) {
			exceptions.Panicf("ReplaceAll: replacement for node #%d must have the same shape: got %s, want %s",
				original.Id(), replacement.Shape(), original.Shape())
		}
	}
	rebuilt := make(map[*Node]*Node, len(replacements))
	results := make([]*Node, len(outputs))
	for ii, output := range outputs {
		results[ii] = replaceInExpression(output, replacements, rebuilt)
	}
	return results
}

// replaceInExpression recursively rebuilds the expression of node with the given replacements,
// memoizing already rebuilt nodes.
func replaceInExpression(node *Node, replacements, rebuilt map[*Node]*Node) *Node {
	if replacement, found := replacements[node]; found {
		return replacement
	}
	if newNode, found := rebuilt[node]; found {
		return newNode
	}
	changed := false
	newInputs := make([]*Node, node.NumInputs())
	for ii, input := range node.Inputs() {
		newInputs[ii] = replaceInExpression(input, replacements, rebuilt)
		changed = changed || newInputs[ii] != input
	}
	result := node
	if changed {
		result = cloneWithInputs(node, newInputs)
	}
	rebuilt[node] = result
	return result
}

// cloneWithInputs creates a new node with the same operation (static inputs) as node, but
// with the given input nodes. Since replacements preserve shapes, the clone keeps the
// original output shape.
func cloneWithInputs(node *Node, newInputs []*Node) *Node {
	inputs := node.inputs
	switch ni := inputs.(type) {
	case *nodeInputsParameter, *nodeInputsConstant, *nodeInputsRandomVariable:
		// Static payload is shared; only the input edges change (only possible for
		// RandomVariable, the others have no inputs).
	case *nodeInputsIndexSet:
		inputs = &nodeInputsIndexSet{spec: ni.spec.withArgs(newInputs[2:])}
	case *nodeInputsTake:
		inputs = &nodeInputsTake{spec: ni.spec.withArgs(newInputs[1:])}
	}
	return newNode(node.Graph(), inputs, newInputs, node.Shape().Clone())
}
