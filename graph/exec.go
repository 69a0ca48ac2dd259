// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math/rand/v2"

	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// Exec evaluates the nodes of a Graph on the host CPU.
//
// It walks the expression backward from the requested outputs and evaluates each reachable node
// exactly once per Eval call -- so a RandomVariable node is sampled once per call, however many
// outputs depend on it.
//
// Exec is not thread-safe: concurrent Eval calls on the same Exec share the random number
// source. Create one Exec per goroutine instead.
type Exec struct {
	graph *Graph
	src   rand.Source
}

// NewExec creates an Exec for the given graph, seeded from the global random number generator.
// Use WithSeed for deterministic sampling.
func NewExec(g *Graph) *Exec {
	g.AssertValid()
	return &Exec{
		graph: g,
		src:   rand.NewPCG(rand.Uint64(), rand.Uint64()),
	}
}

// WithSeed resets the random number source used to sample RandomVariable nodes to a PCG
// initialized with the given seed. It returns the Exec, so calls can be chained.
func (e *Exec) WithSeed(seed uint64) *Exec {
	e.src = rand.NewPCG(seed, 0)
	return e
}

// Eval evaluates the given output nodes, feeding the graph parameters with the values in
// params, and returns one tensor per output.
//
// The params values can be tensors or anything accepted by tensors.FromAnyValue (Go scalars
// and multi-dimensional slices); they must match the shape of the Parameter node they feed.
// Parameters not reached by the outputs can be omitted; reaching a parameter that wasn't fed
// panics.
func (e *Exec) Eval(params ParamsMap, outputs ...*Node) []*tensors.Tensor {
	if len(outputs) == 0 {
		exceptions.Panicf("Exec.Eval requires at least one output node")
	}
	feeds := make(map[*Node]*tensors.Tensor, len(params))
	for param, value := range params {
		param.AssertValid()
		if param.Graph() != e.graph {
			exceptions.Panicf("Exec.Eval: parameter node #%d is part of a different graph", param.Id())
		}
		if param.Type() != NodeTypeParameter {
			exceptions.Panicf("Exec.Eval: fed node #%d is a %s, not a Parameter", param.Id(), param.Type())
		}
		t, ok := value.(*tensors.Tensor)
		if !ok {
			t = tensors.FromAnyValue(value)
		}
		if !t.Shape().Equal(param.Shape()) {
			exceptions.Panicf("Exec.Eval: parameter %q has shape %s, was fed a value shaped %s",
				ParameterName(param), param.Shape(), t.Shape())
		}
		feeds[param] = t
	}
	memo := make(map[*Node]*tensors.Tensor)
	results := make([]*tensors.Tensor, len(outputs))
	for ii, output := range outputs {
		output.AssertValid()
		if output.Graph() != e.graph {
			exceptions.Panicf("Exec.Eval: output node #%d is part of a different graph", output.Id())
		}
		results[ii] = e.evalNode(output, feeds, memo)
	}
	return results
}

// Eval1 evaluates a single output node. See Eval.
func (e *Exec) Eval1(params ParamsMap, output *Node) *tensors.Tensor {
	return e.Eval(params, output)[0]
}

// evalNode evaluates node, memoizing the result so shared sub-expressions (and in particular
// RandomVariable nodes) are evaluated only once per Eval call.
func (e *Exec) evalNode(node *Node, feeds, memo map[*Node]*tensors.Tensor) *tensors.Tensor {
	if value, found := memo[node]; found {
		return value
	}
	inputs := make([]*tensors.Tensor, node.NumInputs())
	for ii, input := range node.Inputs() {
		inputs[ii] = e.evalNode(input, feeds, memo)
	}
	value := e.apply(node, inputs, feeds)
	if !value.Shape().Equal(node.Shape()) {
		exceptions.Panicf("evaluating node %s produced shape %s, want %s -- this is a bug",
			node, value.Shape(), node.Shape())
	}
	if klog.V(2).Enabled() {
		klog.Infof("eval %s -> %s", node, value.Shape())
	}
	memo[node] = value
	return value
}

// apply executes the operation of node on the already evaluated inputs.
func (e *Exec) apply(node *Node, inputs []*tensors.Tensor, feeds map[*Node]*tensors.Tensor) *tensors.Tensor {
	switch node.Type() {
	case NodeTypeParameter:
		value, found := feeds[node]
		if !found {
			exceptions.Panicf("no value fed for parameter %q, required by the evaluated outputs",
				ParameterName(node))
		}
		return value

	case NodeTypeConstant:
		return node.ConstantValue()

	case NodeTypeRandomVariable:
		return RandomVariableSampler(node).Sample(e.src, inputs, node.Shape().Clone())

	case NodeTypeAdd, NodeTypeSub, NodeTypeMul, NodeTypeDiv, NodeTypePow,
		NodeTypeMin, NodeTypeMax:
		return execNumericBinary(node.Type(), inputs[0], inputs[1], node.Shape())

	case NodeTypeLessThan, NodeTypeLessOrEqual, NodeTypeGreaterThan, NodeTypeGreaterOrEqual:
		return execComparison(node.Type(), inputs[0], inputs[1], node.Shape())

	case NodeTypeLogicalAnd, NodeTypeLogicalOr:
		return execLogicalBinary(node.Type(), inputs[0], inputs[1], node.Shape())

	case NodeTypeNeg, NodeTypeAbs, NodeTypeLog, NodeTypeLog1p, NodeTypeExp,
		NodeTypeSqrt, NodeTypeErf:
		return execNumericUnary(node.Type(), inputs[0])

	case NodeTypeLogicalNot:
		return execLogicalNot(inputs[0])

	case NodeTypeWhere:
		return execWhere(inputs[0], inputs[1], inputs[2], node.Shape())

	case NodeTypeReduceSum:
		return execReduceSum(inputs[0], node.inputs.(*nodeInputsReduceSum).axes, node.Shape())

	case NodeTypeReshape:
		return execReshape(inputs[0], node.Shape())

	case NodeTypeBroadcastTo:
		return execBroadcastTo(inputs[0], node.Shape())

	case NodeTypeConvertDType:
		return inputs[0].ConvertDType(node.DType())

	case NodeTypeIndexSet:
		return execIndexSet(node.inputs.(*nodeInputsIndexSet).spec, inputs)

	case NodeTypeTake:
		return execTake(node.inputs.(*nodeInputsTake).spec, inputs, node.Shape())
	}
	exceptions.Panicf("Exec doesn't know how to evaluate node %s", node)
	return nil
}
