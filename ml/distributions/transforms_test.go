// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions_test

import (
	"math"
	"testing"

	. "github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/ml/distributions"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/stretchr/testify/assert"
)

// checkTransform verifies on the given constrained points that Backward inverts Forward and
// that LogDetJacobian matches a central finite difference of Backward.
func checkTransform(t *testing.T, name string, buildFn func(g *Graph) distributions.Transform, constrained []float64) {
	t.Run(name, func(t *testing.T) {
		g := NewGraph(name)
		transform := buildFn(g)
		x := Const(g, constrained)
		y := transform.Forward(x)
		roundTrip := transform.Backward(y)
		logDetJac := transform.LogDetJacobian(y)

		const h = 1e-6
		yPlus := transform.Backward(Add(y, Const(g, h)))
		yMinus := transform.Backward(Sub(y, Const(g, h)))

		exec := NewExec(g)
		results := exec.Eval(nil, roundTrip, logDetJac, yPlus, yMinus)
		gotRoundTrip := tensors.CopyFlatData[float64](results[0])
		gotLogDetJac := tensors.CopyFlatData[float64](results[1])
		plus := tensors.CopyFlatData[float64](results[2])
		minus := tensors.CopyFlatData[float64](results[3])

		for ii, want := range constrained {
			assert.InDeltaf(t, want, gotRoundTrip[ii], 1e-9, "round-trip at x=%g", want)
			numeric := math.Log(math.Abs(plus[ii]-minus[ii]) / (2 * h))
			assert.InDeltaf(t, numeric, gotLogDetJac[ii], 1e-4, "log-det-Jacobian at x=%g", want)
		}
	})
}

func TestIntervalTransform(t *testing.T) {
	checkTransform(t, "unit interval", func(g *Graph) distributions.Transform {
		return distributions.Interval(Const(g, 0.0), Const(g, 1.0))
	}, []float64{0.01, 0.25, 0.5, 0.9, 0.999})

	checkTransform(t, "shifted interval", func(g *Graph) distributions.Transform {
		return distributions.Interval(Const(g, -3.0), Const(g, 7.0))
	}, []float64{-2.9, 0, 3.3, 6.9})
}

func TestLogTransform(t *testing.T) {
	checkTransform(t, "log", func(g *Graph) distributions.Transform {
		return distributions.LogTransform()
	}, []float64{0.001, 0.5, 1, 42})
}

func TestIntervalBackwardStaysInBounds(t *testing.T) {
	g := NewGraph("bounds")
	transform := distributions.Interval(Const(g, 2.0), Const(g, 5.0))
	y := Const(g, []float64{-50, -1, 0, 1, 50})
	got := tensors.CopyFlatData[float64](NewExec(g).Eval1(nil, transform.Backward(y)))
	for _, v := range got {
		assert.GreaterOrEqual(t, v, 2.0)
		assert.LessOrEqual(t, v, 5.0)
	}
}
