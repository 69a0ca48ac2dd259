// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// MaxSizeToPrint is the largest tensor size whose values are printed in Node.String.
const MaxSizeToPrint = 5

// Node represents the result of an operation in the expression graph, and can be used as input
// to further operations.
//
// Node.String allows for a pretty-printing of node. To see the full graph with all nodes, use
// Graph.String.
type Node struct {
	graph *Graph
	id    NodeId // id within graph.
	shape shapes.Shape

	// inputNodes are the edges of the expression graph.
	// Other static inputs to the node are registered in inputs.
	inputNodes []*Node

	// inputs holds the static inputs (op parameters) of the node, and identifies the node type.
	inputs NodeInputs

	trace error // Stack-trace error of where Node was created. Stored if graph.traced is true.
}

// NodeInputs represents the static inputs to a node -- inputs that are not themselves nodes.
// The common interface is to return the type of the node.
type NodeInputs interface {
	Type() NodeType

	// String prints a descriptive representation of the node, using its parameters.
	String() string
}

// NodeType identifies the operation performed by a node.
type NodeType int

const (
	NodeTypeInvalid NodeType = iota
	NodeTypeParameter
	NodeTypeConstant
	NodeTypeRandomVariable
	NodeTypeIndexSet
	NodeTypeTake

	// Elementwise binary operations.

	NodeTypeAdd
	NodeTypeSub
	NodeTypeMul
	NodeTypeDiv
	NodeTypePow
	NodeTypeMin
	NodeTypeMax
	NodeTypeLessThan
	NodeTypeLessOrEqual
	NodeTypeGreaterThan
	NodeTypeGreaterOrEqual
	NodeTypeLogicalAnd
	NodeTypeLogicalOr

	// Elementwise unary operations.

	NodeTypeNeg
	NodeTypeAbs
	NodeTypeLog
	NodeTypeLog1p
	NodeTypeExp
	NodeTypeSqrt
	NodeTypeErf
	NodeTypeLogicalNot

	// Structural operations.

	NodeTypeWhere
	NodeTypeReduceSum
	NodeTypeReshape
	NodeTypeBroadcastTo
	NodeTypeConvertDType
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeInvalid:        "Invalid",
	NodeTypeParameter:      "Parameter",
	NodeTypeConstant:       "Constant",
	NodeTypeRandomVariable: "RandomVariable",
	NodeTypeIndexSet:       "IndexSet",
	NodeTypeTake:           "Take",
	NodeTypeAdd:            "Add",
	NodeTypeSub:            "Sub",
	NodeTypeMul:            "Mul",
	NodeTypeDiv:            "Div",
	NodeTypePow:            "Pow",
	NodeTypeMin:            "Min",
	NodeTypeMax:            "Max",
	NodeTypeLessThan:       "LessThan",
	NodeTypeLessOrEqual:    "LessOrEqual",
	NodeTypeGreaterThan:    "GreaterThan",
	NodeTypeGreaterOrEqual: "GreaterOrEqual",
	NodeTypeLogicalAnd:     "LogicalAnd",
	NodeTypeLogicalOr:      "LogicalOr",
	NodeTypeNeg:            "Neg",
	NodeTypeAbs:            "Abs",
	NodeTypeLog:            "Log",
	NodeTypeLog1p:          "Log1p",
	NodeTypeExp:            "Exp",
	NodeTypeSqrt:           "Sqrt",
	NodeTypeErf:            "Erf",
	NodeTypeLogicalNot:     "LogicalNot",
	NodeTypeWhere:          "Where",
	NodeTypeReduceSum:      "ReduceSum",
	NodeTypeReshape:        "Reshape",
	NodeTypeBroadcastTo:    "BroadcastTo",
	NodeTypeConvertDType:   "ConvertDType",
}

// String implements fmt.Stringer.
func (nt NodeType) String() string {
	if name, found := nodeTypeNames[nt]; found {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", nt)
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Shape of the Node's output.
func (n *Node) Shape() shapes.Shape {
	if n == nil {
		return shapes.Shape{}
	}
	return n.shape
}

// DType returns the DType of the node's shape.
func (n *Node) DType() dtypes.DType {
	return n.Shape().DType
}

// Rank returns the rank of the node's shape.
func (n *Node) Rank() int {
	return n.Shape().Rank()
}

// IsScalar returns whether the node's shape is a scalar.
func (n *Node) IsScalar() bool {
	return n.Shape().IsScalar()
}

// Id is the unique id of this node within the Graph.
func (n *Node) Id() NodeId {
	return n.id
}

// Type identify the operation performed by the node.
func (n *Node) Type() NodeType {
	if n == nil || n.inputs == nil {
		return NodeTypeInvalid
	}
	return n.inputs.Type()
}

// Inputs are the other nodes that are direct inputNodes to the node.
// The returned slice is owned by the Node and shouldn't be changed.
func (n *Node) Inputs() []*Node {
	if n == nil {
		return nil
	}
	return n.inputNodes
}

// NumInputs returns the number of input nodes.
func (n *Node) NumInputs() int {
	return len(n.inputNodes)
}

// Trace returns stack-trace in form of an error, of when the node was created.
// Only available if enabled by Graph.SetTraced(true).
func (n *Node) Trace() error {
	return n.trace
}

// AssertValid panics if the node is nil or its graph is nil.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("Node is nil")
	}
	if n.graph == nil {
		exceptions.Panicf("Node is not attached to a Graph")
	}
}

// AssertDims panics if the node doesn't have the given dimensions and rank.
// A value of -1 in dimensions means it can take any value and is not checked.
func (n *Node) AssertDims(dimensions ...int) {
	n.Shape().AssertDims(dimensions...)
}

// AssertRank panics if the node doesn't have the given rank.
func (n *Node) AssertRank(rank int) {
	n.Shape().AssertRank(rank)
}

// AssertScalar panics if the node is not a scalar.
func (n *Node) AssertScalar() {
	n.Shape().AssertScalar()
}

// String implements the fmt.Stringer interface.
// A shorter one-line description of the node, with its inputs and shape.
func (n *Node) String() (str string) {
	if n == nil {
		return "Node(nil)"
	}
	if n.inputs == nil {
		return "Node(invalid)"
	}
	str = n.inputs.String()
	if len(n.inputNodes) > 0 {
		inputIds := make([]string, 0, len(n.inputNodes))
		for _, inputNode := range n.inputNodes {
			inputIds = append(inputIds, fmt.Sprintf("#%d", inputNode.Id()))
		}
		str += fmt.Sprintf("(%s)", strings.Join(inputIds, ", "))
	}
	str = fmt.Sprintf("#%d %s -> %s", n.id, str, n.shape)
	return
}

// newNode creates a Node with the given payload, input nodes and shape, and registers it with
// the Graph. All op constructors in the package funnel through here.
func newNode(g *Graph, inputs NodeInputs, inputNodes []*Node, shape shapes.Shape) *Node {
	g.AssertValid()
	for ii, inputNode := range inputNodes {
		inputNode.AssertValid()
		if inputNode.graph != g {
			exceptions.Panicf("input #%d of new %s node is part of a different graph (%q) than the one being built (%q)",
				ii, inputs.Type(), inputNode.graph.name, g.name)
		}
	}
	node := &Node{
		graph:      g,
		shape:      shape,
		inputNodes: inputNodes,
		inputs:     inputs,
	}
	g.registerNode(node)
	return node
}

// humanizedSize pretty-prints a tensor size for node descriptions.
func humanizedSize(size int) string {
	return humanize.Comma(int64(size))
}
