// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"testing"

	. "github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/graph/graphtest"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestIndexSet(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Slice on vector", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{0, 0, 0, 0, 0})
		data := Const(g, []float64{1, 2})
		outputs = []*Node{IndexSet(x, data, SliceIndex(0, 2))}
		return
	}, []any{[]float64{1, 2, 0, 0, 0}}, 0)

	graphtest.RunTestGraphFn(t, "Slice on matrix rows", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{0, 0}, {0, 0}, {0, 0}})
		data := Const(g, [][]float64{{1, 2}, {3, 4}})
		outputs = []*Node{IndexSet(x, data, SliceIndex(1, 3))}
		return
	}, []any{[][]float64{{0, 0}, {1, 2}, {3, 4}}}, 0)

	graphtest.RunTestGraphFn(t, "Mask", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{0, 0, 0, 0, 0})
		mask := Const(g, []bool{true, true, false, false, true})
		data := Const(g, []float64{1, 2, 3})
		outputs = []*Node{IndexSet(x, data, MaskIndex(mask))}
		return
	}, []any{[]float64{1, 2, 0, 0, 3}}, 0)

	graphtest.RunTestGraphFn(t, "Mask on matrix", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{0, 0}, {0, 0}})
		mask := Const(g, [][]bool{{true, false}, {false, true}})
		data := Const(g, []float64{1, 2}) // Row-major order of the selected positions.
		outputs = []*Node{IndexSet(x, data, MaskIndex(mask))}
		return
	}, []any{[][]float64{{1, 0}, {0, 2}}}, 0)

	graphtest.RunTestGraphFn(t, "Positions", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{0, 0, 0, 0, 0})
		positions := Const(g, []int64{0, 1, 4})
		data := Const(g, []float64{1, 2, 3})
		outputs = []*Node{IndexSet(x, data, PositionsIndex(positions))}
		return
	}, []any{[]float64{1, 2, 0, 0, 3}}, 0)

	graphtest.RunTestGraphFn(t, "Positions select matrix rows", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{0, 0}, {0, 0}, {0, 0}})
		positions := Const(g, []int64{2, 0})
		data := Const(g, [][]float64{{1, 2}, {3, 4}})
		outputs = []*Node{IndexSet(x, data, PositionsIndex(positions))}
		return
	}, []any{[][]float64{{3, 4}, {0, 0}, {1, 2}}}, 0)

	graphtest.RunTestGraphFn(t, "Negative positions", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{0, 0, 0})
		positions := Const(g, []int64{-1})
		data := Const(g, []float64{9})
		outputs = []*Node{IndexSet(x, data, PositionsIndex(positions))}
		return
	}, []any{[]float64{0, 0, 9}}, 0)

	graphtest.RunTestGraphFn(t, "Coordinates", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
		rows := Const(g, []int64{0, 1, 2})
		cols := Const(g, []int64{0, 1, 2})
		data := Const(g, []float64{1, 2, 3})
		outputs = []*Node{IndexSet(x, data, CoordinatesIndex(rows, cols))}
		return
	}, []any{[][]float64{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}}}, 0)
}

func TestTake(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Slice", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{10, 20, 30, 40, 50})
		outputs = []*Node{Take(x, SliceIndex(1, 4))}
		return
	}, []any{[]float64{20, 30, 40}}, 0)

	graphtest.RunTestGraphFn(t, "Constant mask", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{10, 20, 30, 40, 50})
		mask := Const(g, []bool{true, false, false, true, true})
		outputs = []*Node{Take(x, MaskIndex(mask))}
		return
	}, []any{[]float64{10, 40, 50}}, 0)

	graphtest.RunTestGraphFn(t, "Positions", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{1, 2}, {3, 4}, {5, 6}})
		positions := Const(g, []int64{2, 0})
		outputs = []*Node{Take(x, PositionsIndex(positions))}
		return
	}, []any{[][]float64{{5, 6}, {1, 2}}}, 0)

	graphtest.RunTestGraphFn(t, "Coordinates", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{1, 2}, {3, 4}})
		rows := Const(g, []int64{0, 1})
		cols := Const(g, []int64{1, 0})
		outputs = []*Node{Take(x, CoordinatesIndex(rows, cols))}
		return
	}, []any{[]float64{2, 3}}, 0)
}

func TestIndexSpecValidation(t *testing.T) {
	g := NewGraph("indexValidation")
	x := Const(g, []float64{1, 2, 3})

	// Slice out-of-bounds for the operand.
	require.Panics(t, func() { IndexSet(x, Const(g, []float64{0, 0}), SliceIndex(2, 4)) })

	// Mask with the wrong dimensions.
	badMask := Const(g, []bool{true, false})
	require.Panics(t, func() { IndexSet(x, Const(g, []float64{0}), MaskIndex(badMask)) })

	// Mask must be Bool.
	require.Panics(t, func() { MaskIndex(x) })

	// Positions must be a rank-1 integer node.
	require.Panics(t, func() { PositionsIndex(x) })

	// Data shape must match the selection.
	require.Panics(t, func() { IndexSet(x, Const(g, []float64{0, 0, 0}), SliceIndex(0, 2)) })

	// Coordinates requires one vector per axis.
	coords := Const(g, []int64{0, 1})
	matrix := Const(g, [][]float64{{1, 2}, {3, 4}})
	require.Panics(t, func() { IndexSet(matrix, Const(g, []float64{0, 0}), CoordinatesIndex(coords)) })

	// Take with a non-constant mask has no static shape.
	maskParam := Parameter(g, "mask", MakeShape(dtypes.Bool, 3))
	require.Panics(t, func() { Take(x, MaskIndex(maskParam)) })

	// IndexSet with a non-constant mask works, the selection count is checked in
	// evaluation time.
	data2 := Parameter(g, "data2", MakeShape(F64, 2))
	set := IndexSet(x, data2, MaskIndex(maskParam))
	exec := NewExec(g)
	got := exec.Eval1(ParamsMap{
		maskParam: []bool{true, false, true},
		data2:     []float64{10, 30},
	}, set)
	require.True(t, got.InDelta(tensors.FromValue([]float64{10, 2, 30}), 0))

	// Mismatching count panics in evaluation time.
	require.Panics(t, func() {
		exec.Eval1(ParamsMap{
			maskParam: []bool{true, true, true},
			data2:     []float64{10, 30},
		}, set)
	})
}
