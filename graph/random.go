// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
)

// Sampler generates concrete draws for a random variable node, given the concrete values of
// its parameter nodes. Distributions (see ml/distributions) implement it.
type Sampler interface {
	// Name of the generating distribution, e.g. "normal".
	Name() string

	// Sample returns a tensor of the given shape with a draw of the distribution with the
	// given parameters. The parameter tensors broadcast against the shape.
	Sample(src rand.Source, params []*tensors.Tensor, shape shapes.Shape) *tensors.Tensor
}

// nodeInputsRandomVariable holds the static inputs of a RandomVariable node.
type nodeInputsRandomVariable struct {
	name    string
	sampler Sampler
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsRandomVariable) Type() NodeType { return NodeTypeRandomVariable }

// String implements the interface NodeInputs.
func (ni *nodeInputsRandomVariable) String() string {
	return fmt.Sprintf("%s(%q, %s)", ni.Type(), ni.name, ni.sampler.Name())
}

// RandomVariable creates a node representing a stochastic quantity with the given name,
// generated by the distribution implementing sampler, with the given distribution parameter
// nodes. The node owns no value: evaluating it draws a fresh sample; binding it to a value
// variable (see ml/model) and deriving its log-density (see ml/logprob) is how observed or
// sampled values enter the computation.
func RandomVariable(g *Graph, name string, sampler Sampler, shape shapes.Shape, params ...*Node) *Node {
	g.AssertValid()
	if sampler == nil {
		exceptions.Panicf("RandomVariable(%q) requires a non-nil sampler", name)
	}
	for _, param := range params {
		param.AssertValid()
		if param.DType() != shape.DType {
			exceptions.Panicf("RandomVariable(%q): parameter dtype %s does not match the variable dtype %s",
				name, param.DType(), shape.DType)
		}
		// Parameters must broadcast against the variable shape.
		dims := broadcastDimensions(param.Shape(), shape)
		if !slices.Equal(dims, shape.Dimensions) {
			exceptions.Panicf("RandomVariable(%q): parameter shape %s does not broadcast to the variable shape %s",
				name, param.Shape(), shape)
		}
	}
	return newNode(g, &nodeInputsRandomVariable{name: name, sampler: sampler}, params, shape.Clone())
}

// IsRandomVariable returns whether the node is a RandomVariable node.
func (n *Node) IsRandomVariable() bool {
	return n.Type() == NodeTypeRandomVariable
}

// RandomVariableName returns the name of a RandomVariable node.
// It panics if n is not a RandomVariable.
func RandomVariableName(n *Node) string {
	return randomVariableInputs(n).name
}

// RandomVariableSampler returns the Sampler of a RandomVariable node -- typically the
// ml/distributions.Distribution that generated it. It panics if n is not a RandomVariable.
func RandomVariableSampler(n *Node) Sampler {
	return randomVariableInputs(n).sampler
}

func randomVariableInputs(n *Node) *nodeInputsRandomVariable {
	n.AssertValid()
	ni, ok := n.inputs.(*nodeInputsRandomVariable)
	if !ok {
		exceptions.Panicf("node is a %s, not a RandomVariable", n.Type())
	}
	return ni
}
