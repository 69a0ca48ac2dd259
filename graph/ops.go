// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"math"
	"slices"

	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// nodeInputsParameter holds the static inputs of a Parameter node.
type nodeInputsParameter struct {
	name   string
	shape  shapes.Shape
	handle ParameterHandle
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsParameter) Type() NodeType { return NodeTypeParameter }

// String implements the interface NodeInputs.
func (ni *nodeInputsParameter) String() string {
	return fmt.Sprintf("%s(name=%q)", ni.Type(), ni.name)
}

// Parameter registers an input parameter for the Graph: a placeholder node whose value is
// only known in evaluation time, when it's fed to Exec.Eval (see ParamsMap).
//
// Value variables of a probabilistic model (see ml/model) are Parameter nodes.
func Parameter(g *Graph, name string, shape shapes.Shape) (node *Node) {
	g.AssertValid()
	handle := ParameterHandle(len(g.parameters))
	if name == "" {
		name = fmt.Sprintf("parameter_#%d", handle)
	}
	if _, found := g.parameterNameToHandle[name]; found {
		exceptions.Panicf("requested parameter with name %q for graph %q already exists", name, g.name)
	}
	node = newNode(g, &nodeInputsParameter{name: name, shape: shape, handle: handle}, nil, shape.Clone())
	g.parameters = append(g.parameters, node)
	g.parameterNameToHandle[name] = handle
	return
}

// ParameterName returns the name of a Parameter node. It panics if n is not a Parameter.
func ParameterName(n *Node) string {
	n.AssertValid()
	ni, ok := n.inputs.(*nodeInputsParameter)
	if !ok {
		exceptions.Panicf("ParameterName: node is a %s, not a Parameter", n.Type())
	}
	return ni.name
}

// nodeInputsConstant holds the static inputs of a Constant node.
type nodeInputsConstant struct {
	tensor *tensors.Tensor
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsConstant) Type() NodeType { return NodeTypeConstant }

// String implements the interface NodeInputs.
func (ni *nodeInputsConstant) String() string {
	if ni.tensor.Size() <= MaxSizeToPrint {
		return fmt.Sprintf("%s(%v)", ni.Type(), ni.tensor.Value())
	}
	return fmt.Sprintf("%s(%s values)", ni.Type(), humanizedSize(ni.tensor.Size()))
}

// ConstTensor returns a newly created constant node for the tensor t.
func ConstTensor(g *Graph, t *tensors.Tensor) *Node {
	t.AssertValid()
	return newNode(g, &nodeInputsConstant{tensor: t}, nil, t.Shape())
}

// Const creates constant nodes in the Graph. It can take a tensor as well as
// multidimensional slices (or scalars).
//
// The value is copied into the graph. It's recommended to create big tensors once, outside the
// graph building function, and reuse them.
func Const(g *Graph, value any) *Node {
	return ConstTensor(g, tensors.FromAnyValue(value))
}

// Scalar returns a constant scalar with the given value and dtype.
// Scalars are cached in the Graph, so the returned node may be shared by several users.
func Scalar(g *Graph, dtype dtypes.DType, value float64) *Node {
	return g.getScalarConst(dtype, value)
}

// ScalarZero returns a scalar constant 0 for the given dtype.
func ScalarZero(g *Graph, dtype dtypes.DType) *Node {
	return Scalar(g, dtype, 0)
}

// ScalarOne returns a scalar constant 1 for the given dtype.
func ScalarOne(g *Graph, dtype dtypes.DType) *Node {
	return Scalar(g, dtype, 1)
}

// ConstAs creates a constant (scalar or multidimensional) with the same dtype as the given base node.
func ConstAs(base *Node, value any) *Node {
	return ConstAsDType(base.Graph(), base.DType(), value)
}

// ConstAsDType creates a constant of the given dtype. It accepts a scalar (in which case it
// uses the Graph scalar cache) or a multidimensional slice or tensor, converted to dtype.
func ConstAsDType(g *Graph, dtype dtypes.DType, value any) *Node {
	switch v := value.(type) {
	case float64:
		return Scalar(g, dtype, v)
	case float32:
		return Scalar(g, dtype, float64(v))
	case int:
		return Scalar(g, dtype, float64(v))
	case *Node:
		if v.DType() != dtype {
			exceptions.Panicf("ConstAsDType(dtype=%s) given a node with dtype %s -- it does not convert nodes, "+
				"use ConvertDType instead", dtype, v.DType())
		}
		return v
	}
	return ConstTensor(g, tensors.CastAsDType(value, dtype))
}

// Infinity returns a scalar constant of +/- infinity for the given dtype. Set sign to 1 or -1.
func Infinity(g *Graph, dtype dtypes.DType, sign int) *Node {
	if !dtype.IsFloat() {
		exceptions.Panicf("Infinity is only defined for float dtypes, got %s", dtype)
	}
	return Scalar(g, dtype, math.Inf(sign))
}

// broadcastDimensions returns the dimensions resulting from broadcasting s1 and s2 together,
// using the usual right-aligned rules: dimensions are matched from the last axis backward, and
// at each axis they must either be equal, or one of them must be 1 (or missing).
func broadcastDimensions(s1, s2 shapes.Shape) []int {
	rank := max(s1.Rank(), s2.Rank())
	if rank == 0 {
		return nil
	}
	dims := make([]int, rank)
	for ii := 1; ii <= rank; ii++ {
		dim1, dim2 := 1, 1
		if ii <= s1.Rank() {
			dim1 = s1.Dim(-ii)
		}
		if ii <= s2.Rank() {
			dim2 = s2.Dim(-ii)
		}
		switch {
		case dim1 == dim2:
			dims[rank-ii] = dim1
		case dim1 == 1:
			dims[rank-ii] = dim2
		case dim2 == 1:
			dims[rank-ii] = dim1
		default:
			exceptions.Panicf("shapes %s and %s are not compatible for broadcasting", s1, s2)
		}
	}
	return dims
}

// nodeInputsBinary holds the static inputs of the elementwise binary operations.
type nodeInputsBinary struct {
	nodeType NodeType
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsBinary) Type() NodeType { return ni.nodeType }

// String implements the interface NodeInputs.
func (ni *nodeInputsBinary) String() string { return ni.nodeType.String() }

// binaryOp creates an elementwise binary operation node, with broadcasting.
// outDType == InvalidDType means "same as the operands".
func binaryOp(nodeType NodeType, x, y *Node, outDType dtypes.DType) *Node {
	x.AssertValid()
	y.AssertValid()
	if x.DType() != y.DType() {
		exceptions.Panicf("cannot %s values of different dtypes (%s and %s) -- convert them first with ConvertDType",
			nodeType, x.DType(), y.DType())
	}
	if outDType == dtypes.InvalidDType {
		outDType = x.DType()
	}
	dims := broadcastDimensions(x.Shape(), y.Shape())
	return newNode(x.Graph(), &nodeInputsBinary{nodeType: nodeType}, []*Node{x, y},
		shapes.Make(outDType, dims...))
}

// numericBinaryOp is a binaryOp that also checks the operands are of a float dtype.
func numericBinaryOp(nodeType NodeType, x, y *Node) *Node {
	if !x.DType().IsFloat() {
		exceptions.Panicf("%s requires float operands, got %s -- convert them first with ConvertDType",
			nodeType, x.DType())
	}
	return binaryOp(nodeType, x, y, dtypes.InvalidDType)
}

// Add returns the element-wise sum of the two values.
// Standard broadcasting rules apply (see broadcastDimensions).
func Add(x, y *Node) *Node { return numericBinaryOp(NodeTypeAdd, x, y) }

// Sub returns the element-wise subtraction of the two values.
// Standard broadcasting rules apply.
func Sub(x, y *Node) *Node { return numericBinaryOp(NodeTypeSub, x, y) }

// Mul returns the element-wise multiplication of the two values.
// Standard broadcasting rules apply.
func Mul(x, y *Node) *Node { return numericBinaryOp(NodeTypeMul, x, y) }

// Div returns the element-wise division of the two values.
// Standard broadcasting rules apply.
func Div(x, y *Node) *Node { return numericBinaryOp(NodeTypeDiv, x, y) }

// Pow returns the element-wise x^y.
// Standard broadcasting rules apply.
func Pow(x, y *Node) *Node { return numericBinaryOp(NodeTypePow, x, y) }

// Min returns the element-wise smallest of the two values.
func Min(x, y *Node) *Node { return numericBinaryOp(NodeTypeMin, x, y) }

// Max returns the element-wise highest of the two values.
func Max(x, y *Node) *Node { return numericBinaryOp(NodeTypeMax, x, y) }

// LessThan returns the element-wise comparison x < y, as a Bool node.
func LessThan(x, y *Node) *Node { return binaryOp(NodeTypeLessThan, x, y, dtypes.Bool) }

// LessOrEqual returns the element-wise comparison x <= y, as a Bool node.
func LessOrEqual(x, y *Node) *Node { return binaryOp(NodeTypeLessOrEqual, x, y, dtypes.Bool) }

// GreaterThan returns the element-wise comparison x > y, as a Bool node.
func GreaterThan(x, y *Node) *Node { return binaryOp(NodeTypeGreaterThan, x, y, dtypes.Bool) }

// GreaterOrEqual returns the element-wise comparison x >= y, as a Bool node.
func GreaterOrEqual(x, y *Node) *Node { return binaryOp(NodeTypeGreaterOrEqual, x, y, dtypes.Bool) }

// logicalBinaryOp is a binaryOp that checks the operands are of the Bool dtype.
func logicalBinaryOp(nodeType NodeType, x, y *Node) *Node {
	if x.DType() != dtypes.Bool {
		exceptions.Panicf("%s requires Bool operands, got %s", nodeType, x.DType())
	}
	return binaryOp(nodeType, x, y, dtypes.Bool)
}

// LogicalAnd returns the element-wise logical-and of the two Bool values.
func LogicalAnd(x, y *Node) *Node { return logicalBinaryOp(NodeTypeLogicalAnd, x, y) }

// LogicalOr returns the element-wise logical-or of the two Bool values.
func LogicalOr(x, y *Node) *Node { return logicalBinaryOp(NodeTypeLogicalOr, x, y) }

// nodeInputsUnary holds the static inputs of the elementwise unary operations.
type nodeInputsUnary struct {
	nodeType NodeType
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsUnary) Type() NodeType { return ni.nodeType }

// String implements the interface NodeInputs.
func (ni *nodeInputsUnary) String() string { return ni.nodeType.String() }

// unaryOp creates an elementwise unary operation node.
func unaryOp(nodeType NodeType, x *Node, requiredFloat bool) *Node {
	x.AssertValid()
	if requiredFloat && !x.DType().IsFloat() {
		exceptions.Panicf("%s requires a float operand, got %s -- convert it first with ConvertDType",
			nodeType, x.DType())
	}
	return newNode(x.Graph(), &nodeInputsUnary{nodeType: nodeType}, []*Node{x}, x.Shape().Clone())
}

// Neg returns the element-wise negation (-x).
func Neg(x *Node) *Node { return unaryOp(NodeTypeNeg, x, true) }

// Abs returns the element-wise absolute value.
func Abs(x *Node) *Node { return unaryOp(NodeTypeAbs, x, true) }

// Log returns the element-wise natural logarithm.
func Log(x *Node) *Node { return unaryOp(NodeTypeLog, x, true) }

// Log1p returns the element-wise log(1+x), accurate for small x.
func Log1p(x *Node) *Node { return unaryOp(NodeTypeLog1p, x, true) }

// Exp returns the element-wise exponential.
func Exp(x *Node) *Node { return unaryOp(NodeTypeExp, x, true) }

// Sqrt returns the element-wise square root.
func Sqrt(x *Node) *Node { return unaryOp(NodeTypeSqrt, x, true) }

// Erf returns the element-wise Gauss error function.
func Erf(x *Node) *Node { return unaryOp(NodeTypeErf, x, true) }

// LogicalNot returns the element-wise logical negation of a Bool node.
func LogicalNot(x *Node) *Node {
	if x.DType() != dtypes.Bool {
		exceptions.Panicf("LogicalNot requires a Bool operand, got %s", x.DType())
	}
	return unaryOp(NodeTypeLogicalNot, x, false)
}

// nodeInputsWhere holds the static inputs of a Where node.
type nodeInputsWhere struct{}

// Type implements the interface NodeInputs.
func (ni *nodeInputsWhere) Type() NodeType { return NodeTypeWhere }

// String implements the interface NodeInputs.
func (ni *nodeInputsWhere) String() string { return NodeTypeWhere.String() }

// Where takes element-wise values from onTrue or onFalse, depending on the value of the
// Bool node condition. All three operands broadcast together.
func Where(condition, onTrue, onFalse *Node) *Node {
	condition.AssertValid()
	onTrue.AssertValid()
	onFalse.AssertValid()
	if condition.DType() != dtypes.Bool {
		exceptions.Panicf("Where requires a Bool condition, got %s", condition.DType())
	}
	if onTrue.DType() != onFalse.DType() {
		exceptions.Panicf("Where given onTrue and onFalse of different dtypes: %s and %s",
			onTrue.DType(), onFalse.DType())
	}
	dims := broadcastDimensions(onTrue.Shape(), onFalse.Shape())
	dims = broadcastDimensions(condition.Shape(), shapes.Shape{DType: condition.DType(), Dimensions: dims})
	return newNode(condition.Graph(), &nodeInputsWhere{}, []*Node{condition, onTrue, onFalse},
		shapes.Make(onTrue.DType(), dims...))
}

// nodeInputsReduceSum holds the static inputs of a ReduceSum node.
type nodeInputsReduceSum struct {
	axes []int
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsReduceSum) Type() NodeType { return NodeTypeReduceSum }

// String implements the interface NodeInputs.
func (ni *nodeInputsReduceSum) String() string {
	return fmt.Sprintf("%s(axes=%v)", ni.Type(), ni.axes)
}

// ReduceSum reduces by summing over the given axes, which are removed from the result.
// Axes can be negative, counting from the end. If no axes are given, it sums over all axes,
// returning a scalar.
func ReduceSum(x *Node, reduceAxes ...int) *Node {
	x.AssertValid()
	if !x.DType().IsFloat() {
		exceptions.Panicf("ReduceSum requires a float operand, got %s", x.DType())
	}
	rank := x.Rank()
	var axes []int
	if len(reduceAxes) == 0 {
		axes = make([]int, rank)
		for ii := range axes {
			axes[ii] = ii
		}
	} else {
		axes = make([]int, 0, len(reduceAxes))
		for _, axis := range reduceAxes {
			adjusted := axis
			if adjusted < 0 {
				adjusted += rank
			}
			if adjusted < 0 || adjusted >= rank {
				exceptions.Panicf("ReduceSum axis %d out-of-bounds for rank %d (shape=%s)", axis, rank, x.Shape())
			}
			if slices.Contains(axes, adjusted) {
				exceptions.Panicf("ReduceSum axis %d given more than once", axis)
			}
			axes = append(axes, adjusted)
		}
		slices.Sort(axes)
	}
	newDims := make([]int, 0, rank-len(axes))
	for axis, dim := range x.Shape().Dimensions {
		if !slices.Contains(axes, axis) {
			newDims = append(newDims, dim)
		}
	}
	return newNode(x.Graph(), &nodeInputsReduceSum{axes: axes}, []*Node{x},
		shapes.Make(x.DType(), newDims...))
}

// ReduceAllSum reduces all dimensions to a scalar by summing.
func ReduceAllSum(x *Node) *Node {
	return ReduceSum(x)
}

// nodeInputsReshape holds the static inputs of a Reshape node.
type nodeInputsReshape struct {
	dimensions []int
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsReshape) Type() NodeType { return NodeTypeReshape }

// String implements the interface NodeInputs.
func (ni *nodeInputsReshape) String() string {
	return fmt.Sprintf("%s(dimensions=%v)", ni.Type(), ni.dimensions)
}

// Reshape x to the given dimensions. The total size cannot change.
func Reshape(x *Node, dimensions ...int) *Node {
	x.AssertValid()
	newShape := shapes.Make(x.DType(), dimensions...)
	if newShape.Size() != x.Shape().Size() {
		exceptions.Panicf("cannot Reshape %s to dimensions %v: total sizes are different (%d and %d)",
			x.Shape(), dimensions, x.Shape().Size(), newShape.Size())
	}
	return newNode(x.Graph(), &nodeInputsReshape{dimensions: slices.Clone(dimensions)}, []*Node{x}, newShape)
}

// nodeInputsBroadcastTo holds the static inputs of a BroadcastTo node.
type nodeInputsBroadcastTo struct {
	dimensions []int
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsBroadcastTo) Type() NodeType { return NodeTypeBroadcastTo }

// String implements the interface NodeInputs.
func (ni *nodeInputsBroadcastTo) String() string {
	return fmt.Sprintf("%s(dimensions=%v)", ni.Type(), ni.dimensions)
}

// BroadcastToDims broadcasts x to the given dimensions, following the usual right-aligned
// broadcasting rules. The rank of the result is len(dimensions), which must be >= x's rank.
func BroadcastToDims(x *Node, dimensions ...int) *Node {
	x.AssertValid()
	target := shapes.Make(x.DType(), dimensions...)
	got := broadcastDimensions(x.Shape(), target)
	if !slices.Equal(got, dimensions) {
		exceptions.Panicf("cannot BroadcastToDims %s to dimensions %v", x.Shape(), dimensions)
	}
	return newNode(x.Graph(), &nodeInputsBroadcastTo{dimensions: slices.Clone(dimensions)}, []*Node{x}, target)
}

// nodeInputsConvertDType holds the static inputs of a ConvertDType node.
type nodeInputsConvertDType struct {
	dtype dtypes.DType
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsConvertDType) Type() NodeType { return NodeTypeConvertDType }

// String implements the interface NodeInputs.
func (ni *nodeInputsConvertDType) String() string {
	return fmt.Sprintf("%s(dtype=%s)", ni.Type(), ni.dtype)
}

// ConvertDType converts x to the given dtype, element-wise.
func ConvertDType(x *Node, dtype dtypes.DType) *Node {
	x.AssertValid()
	if x.DType() == dtype {
		return x
	}
	return newNode(x.Graph(), &nodeInputsConvertDType{dtype: dtype}, []*Node{x},
		shapes.Make(dtype, x.Shape().Dimensions...))
}
