// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"math"
	"reflect"
	"testing"

	. "github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/graph/graphtest"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

var (
	// Aliases:

	MakeShape = shapes.Make
	F32       = dtypes.Float32
	F64       = dtypes.Float64

	Epsilon = 1e-4
)

func TestConstant(t *testing.T) {
	{
		g := NewGraph("")
		n := Const(g, 5.0)
		shape := n.Shape()
		if shape.DType != dtypes.Float64 || shape.Rank() != 0 {
			t.Errorf("Const has invalid shape: %s", shape)
		}
	}
	{
		g := NewGraph("")
		n := Const(g, [][]float32{{1.2, 1.3}, {2.4, 2.5}, {2.6, 2.7}})
		shape := n.Shape()
		if shape.DType != dtypes.Float32 || !reflect.DeepEqual(shape.Dimensions, []int{3, 2}) {
			t.Errorf("Const has invalid shape: %s", shape)
		}
	}
	{
		// Scalar constants of the same dtype and value are deduplicated.
		g := NewGraph("")
		n1 := Scalar(g, F32, 7)
		n2 := Scalar(g, F32, 7)
		require.Equal(t, n1, n2)
	}
}

func TestBinaryOps(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Add broadcast scalar", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float32{1, 2, 3})
		outputs = []*Node{Add(x, Scalar(g, F32, 10))}
		return
	}, []any{[]float32{11, 12, 13}}, 0)

	graphtest.RunTestGraphFn(t, "Sub/Mul/Div", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{4, 9, 16})
		y := Const(g, []float64{2, 3, 4})
		outputs = []*Node{Sub(x, y), Mul(x, y), Div(x, y)}
		return
	}, []any{
		[]float64{2, 6, 12},
		[]float64{8, 27, 64},
		[]float64{2, 3, 4},
	}, 0)

	graphtest.RunTestGraphFn(t, "Pow/Min/Max", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{2, 3, 4})
		outputs = []*Node{
			Pow(x, Scalar(g, F64, 2)),
			Min(x, Scalar(g, F64, 3)),
			Max(x, Scalar(g, F64, 3)),
		}
		return
	}, []any{
		[]float64{4, 9, 16},
		[]float64{2, 3, 3},
		[]float64{3, 3, 4},
	}, Epsilon)

	graphtest.RunTestGraphFn(t, "Add broadcast matrix x vector", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float32{{1, 2}, {3, 4}})
		y := Const(g, []float32{10, 20})
		outputs = []*Node{Add(x, y)}
		return
	}, []any{[][]float32{{11, 22}, {13, 24}}}, 0)

	graphtest.RunTestGraphFn(t, "Add broadcast column x row", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{1}, {2}, {3}})
		y := Const(g, [][]float64{{10, 20}})
		outputs = []*Node{Add(x, y)}
		return
	}, []any{[][]float64{{11, 21}, {12, 22}, {13, 23}}}, 0)
}

func TestComparisonAndLogicalOps(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Comparisons", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, 2, 3})
		y := Const(g, []float64{2, 2, 2})
		outputs = []*Node{
			LessThan(x, y),
			LessOrEqual(x, y),
			GreaterThan(x, y),
			GreaterOrEqual(x, y),
		}
		return
	}, []any{
		[]bool{true, false, false},
		[]bool{true, true, false},
		[]bool{false, false, true},
		[]bool{false, true, true},
	}, 0)

	graphtest.RunTestGraphFn(t, "LogicalAnd/Or/Not", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []bool{true, true, false})
		y := Const(g, []bool{true, false, false})
		outputs = []*Node{LogicalAnd(x, y), LogicalOr(x, y), LogicalNot(x)}
		return
	}, []any{
		[]bool{true, false, false},
		[]bool{true, true, false},
		[]bool{false, false, true},
	}, 0)
}

func TestUnaryOps(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Neg/Abs/Sqrt", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{-4, 9})
		outputs = []*Node{Neg(x), Abs(x), Sqrt(Abs(x))}
		return
	}, []any{
		[]float64{4, -9},
		[]float64{4, 9},
		[]float64{2, 3},
	}, Epsilon)

	graphtest.RunTestGraphFn(t, "Log/Log1p/Exp/Erf", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{0.5, 1, 2})
		outputs = []*Node{Log(x), Log1p(x), Exp(x), Erf(x)}
		return
	}, []any{
		[]float64{math.Log(0.5), 0, math.Log(2)},
		[]float64{math.Log1p(0.5), math.Log1p(1), math.Log1p(2)},
		[]float64{math.Exp(0.5), math.E, math.Exp(2)},
		[]float64{math.Erf(0.5), math.Erf(1), math.Erf(2)},
	}, Epsilon)

	graphtest.RunTestGraphFn(t, "Sigmoid/Softplus/Logit", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{-2, 0, 3})
		p := Const(g, []float64{0.25, 0.5, 0.75})
		outputs = []*Node{Sigmoid(x), Softplus(x), Logit(p)}
		return
	}, []any{
		[]float64{1 / (1 + math.Exp(2)), 0.5, 1 / (1 + math.Exp(-3))},
		[]float64{math.Log1p(math.Exp(-2)), math.Log(2), 3 + math.Log1p(math.Exp(-3))},
		[]float64{math.Log(0.25 / 0.75), 0, math.Log(0.75 / 0.25)},
	}, Epsilon)
}

func TestWhere(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Where", func(g *Graph) (inputs, outputs []*Node) {
		cond := Const(g, []bool{true, false, true})
		outputs = []*Node{Where(cond, Const(g, []float32{1, 2, 3}), Const(g, []float32{10, 20, 30}))}
		return
	}, []any{[]float32{1, 20, 3}}, 0)

	graphtest.RunTestGraphFn(t, "Where broadcast branches", func(g *Graph) (inputs, outputs []*Node) {
		cond := Const(g, []bool{true, false, true})
		outputs = []*Node{Where(cond, Scalar(g, F64, 1), Scalar(g, F64, -1))}
		return
	}, []any{[]float64{1, -1, 1}}, 0)
}

func TestReduceSum(t *testing.T) {
	graphtest.RunTestGraphFn(t, "ReduceSum", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{1, 2, 3}, {10, 20, 30}})
		outputs = []*Node{
			ReduceAllSum(x),
			ReduceSum(x, 0),
			ReduceSum(x, 1),
			ReduceSum(x, -1), // Negative axis counts from the end.
		}
		return
	}, []any{
		66.0,
		[]float64{11, 22, 33},
		[]float64{6, 60},
		[]float64{6, 60},
	}, 0)
}

func TestReshapeAndBroadcast(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Reshape", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float32{1, 2, 3, 4, 5, 6})
		outputs = []*Node{Reshape(x, 2, 3)}
		return
	}, []any{[][]float32{{1, 2, 3}, {4, 5, 6}}}, 0)

	graphtest.RunTestGraphFn(t, "BroadcastToDims", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, 2})
		outputs = []*Node{BroadcastToDims(x, 3, 2)}
		return
	}, []any{[][]float64{{1, 2}, {1, 2}, {1, 2}}}, 0)
}

func TestConvertDType(t *testing.T) {
	graphtest.RunTestGraphFn(t, "ConvertDType", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1.5, -2.5})
		outputs = []*Node{ConvertDType(x, F32)}
		return
	}, []any{[]float32{1.5, -2.5}}, 0)
}

func TestParameter(t *testing.T) {
	g := NewGraph("params")
	x := Parameter(g, "x", MakeShape(F64, 3))
	y := Add(x, Scalar(g, F64, 1))
	exec := NewExec(g)
	got := exec.Eval1(ParamsMap{x: []float64{1, 2, 3}}, y)
	require.True(t, got.InDelta(tensors.FromValue([]float64{2, 3, 4}), 0))

	// Evaluating without feeding the parameter panics.
	require.Panics(t, func() { exec.Eval1(nil, y) })

	// Parameters are retrievable by name.
	require.Equal(t, x, g.ParameterByName("x"))
}

func TestDTypeMismatchPanics(t *testing.T) {
	g := NewGraph("")
	x := Const(g, []float32{1, 2})
	y := Const(g, []float64{1, 2})
	require.Panics(t, func() { Add(x, y) })
	require.Panics(t, func() { Log(Const(g, []bool{true})) })
	require.Panics(t, func() { Where(Const(g, []float32{1}), x, x) })
}

func TestBroadcastIncompatiblePanics(t *testing.T) {
	g := NewGraph("")
	x := Const(g, []float64{1, 2, 3})
	y := Const(g, []float64{1, 2})
	require.Panics(t, func() { Add(x, y) })
}
