// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package logprob_test

import (
	"math"
	"testing"

	. "github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/ml/logprob"
	"github.com/gomlx/bayes/ml/model"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestLogpBasic makes sure we can derive a log-density for a hierarchical model with
// transforms.
func TestLogpBasic(t *testing.T) {
	m := model.New("hierarchical")
	a := m.Uniform("a", 0.0, 1.0)
	c := m.Normal("c", 0.0, 1.0)
	g := m.Graph()
	bLow := Add(Mul(c, a), Const(g, 2.0))
	b := m.Uniform("b", bLow, Add(bLow, Const(g, 1.0)))

	aValue := m.ValueVar(a)
	require.NotNil(t, m.TransformOf(a))
	bValue := m.ValueVar(b)
	require.NotNil(t, m.TransformOf(b))
	cValue := m.ValueVar(c)

	bLogp := logprob.Logp(m, b, bValue)

	ancestors := Ancestors([]*Node{bLogp}, true)

	// There shouldn't be any random variables left in the resulting graph.
	assert.Empty(t, RandomVariableAncestors([]*Node{bLogp}))
	assert.Contains(t, ancestors, bValue)
	assert.Contains(t, ancestors, cValue)
	assert.Contains(t, ancestors, aValue)

	// Numeric check: b is uniform on an interval of width 1, so its density in the
	// constrained space is identically 0 and the full density reduces to the
	// log-det-Jacobian of b's interval transform: -softplus(-y) - softplus(y).
	yA, yB, vC := 0.3, -0.7, 1.1
	got := NewExec(g).Eval1(ParamsMap{aValue: yA, bValue: yB, cValue: vC}, bLogp)
	want := -softplus(-yB) - softplus(yB)
	assert.InDelta(t, want, tensors.ToScalar[float64](got), 1e-9)

	// Without the Jacobian correction the density is exactly 0 (log of width 1).
	noJac := NewExec(g).Eval1(ParamsMap{aValue: yA, bValue: yB, cValue: vC},
		logprob.Logp(m, b, bValue, logprob.WithJacobian(false)))
	assert.InDelta(t, 0.0, tensors.ToScalar[float64](noJac), 1e-9)
}

func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

// indexCase describes one index-assignment scenario over a univariate normal.
type indexCase struct {
	name string
	dims []int
	spec func(g *Graph) IndexSpec
	// assigned returns the row-major flat positions selected by the spec.
	assigned func(dims []int) []int
}

func univariateIndexCases() []indexCase {
	return []indexCase{
		{
			name: "slice",
			dims: []int{5},
			spec: func(g *Graph) IndexSpec { return SliceIndex(0, 2) },
			assigned: func(dims []int) []int {
				return []int{0, 1}
			},
		},
		{
			name: "boolean mask",
			dims: []int{5},
			spec: func(g *Graph) IndexSpec {
				return MaskIndex(Const(g, []bool{true, true, false, false, true}))
			},
			assigned: func(dims []int) []int {
				return []int{0, 1, 4}
			},
		},
		{
			name: "positions",
			dims: []int{5},
			spec: func(g *Graph) IndexSpec {
				return PositionsIndex(Const(g, []int64{0, 1, 4}))
			},
			assigned: func(dims []int) []int {
				return []int{0, 1, 4}
			},
		},
		{
			name: "coordinates",
			dims: []int{5, 5},
			spec: func(g *Graph) IndexSpec {
				return CoordinatesIndex(Const(g, []int64{0, 1, 4}), Const(g, []int64{0, 1, 4}))
			},
			assigned: func(dims []int) []int {
				return []int{0*5 + 0, 1*5 + 1, 4*5 + 4}
			},
		},
	}
}

// TestLogpUnivariateIndexSet makes sure we can derive a log-density for a[indices] = data
// where a is univariate.
func TestLogpUnivariateIndexSet(t *testing.T) {
	const sigma = 0.001
	for _, tc := range univariateIndexCases() {
		t.Run(tc.name, func(t *testing.T) {
			size := 1
			for _, dim := range tc.dims {
				size *= dim
			}
			// Unique means, so the density value tells which parameters scored which
			// coordinate.
			muFlat := make([]float64, size)
			for ii := range muFlat {
				muFlat[ii] = math.Pow(10, float64(ii))
			}
			mu := tensors.FromFlatDataAndDimensions(muFlat, tc.dims...)
			assigned := tc.assigned(tc.dims)
			data := make([]float64, len(assigned))
			for ii, pos := range assigned {
				data[ii] = muFlat[pos]
			}

			m := model.New("indexed")
			g := m.Graph()
			a := m.Normal("a", ConstTensor(g, mu), sigma, model.WithShape(tc.dims...))

			spec := tc.spec(g)
			aIdx := IndexSet(a, Const(g, data), spec)
			require.Equal(t, NodeTypeIndexSet, aIdx.Type())

			aIdxLogp := logprob.Logp(m, aIdx, nil)

			// The derived density evaluates without any feeds: the unassigned
			// coordinates are scored at the base variable's own draw.
			logpVals := tensors.CopyFlatData[float64](
				NewExec(g).WithSeed(232).Eval1(nil, aIdxLogp))
			require.Len(t, logpVals, size)

			// The assigned coordinates were set to their own means, so each must score
			// exactly the peak density of its normal.
			for _, pos := range assigned {
				want := distuv.Normal{Mu: muFlat[pos], Sigma: sigma}.LogProb(muFlat[pos])
				assert.InDeltaf(t, want, logpVals[pos], 1e-6, "assigned position %d", pos)
			}

			// The base variable is the single random-variable ancestor, and its direct
			// consumer is the index-assignment node.
			require.Equal(t, []*Node{a}, RandomVariableAncestors([]*Node{aIdxLogp}))
			consumers := Consumers([]*Node{aIdxLogp}, a)
			require.Len(t, consumers, 1)
			require.Equal(t, NodeTypeIndexSet, consumers[0].Type())
		})
	}
}

// TestLogpIdempotence re-derives densities and checks the results are numerically equal.
func TestLogpIdempotence(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		m := model.New("direct")
		x := m.Uniform("x", -2.0, 3.0)
		value := m.ValueVar(x)
		logp1 := logprob.Logp(m, x, value)
		logp2 := logprob.Logp(m, x, value)
		feeds := ParamsMap{value: 0.25}
		exec := NewExec(m.Graph())
		results := exec.Eval(feeds, logp1, logp2)
		assert.True(t, results[0].InDelta(results[1], 0))
	})

	t.Run("index-assigned", func(t *testing.T) {
		m := model.New("indexed")
		g := m.Graph()
		a := m.Normal("a", 0.0, 1.0, model.WithShape(5))
		aIdx := IndexSet(a, Const(g, []float64{7, 8}), SliceIndex(0, 2))
		logp1 := logprob.Logp(m, aIdx, nil)
		logp2 := logprob.Logp(m, aIdx, nil)
		// Both derivations reference the same base variable node, so a single
		// evaluation scores both at the same draw.
		results := NewExec(g).WithSeed(7).Eval(nil, logp1, logp2)
		assert.True(t, results[0].InDelta(results[1], 0))
	})
}

func TestJoint(t *testing.T) {
	data := []float64{-0.3, 0.9, 2.1}
	m := model.New("joint")
	mu := m.Normal("mu", 0.0, 10.0)
	m.Normal("y", mu, 1.0, model.WithObserved(data))

	joint := logprob.Joint(m)
	require.True(t, joint.IsScalar())
	assert.Empty(t, RandomVariableAncestors([]*Node{joint}))

	muAt := 1.5
	got := NewExec(m.Graph()).Eval1(ParamsMap{m.ValueVar(mu): muAt}, joint)

	want := distuv.Normal{Mu: 0, Sigma: 10}.LogProb(muAt)
	likelihood := distuv.Normal{Mu: muAt, Sigma: 1}
	for _, y := range data {
		want += likelihood.LogProb(y)
	}
	assert.InDelta(t, want, tensors.ToScalar[float64](got), 1e-9)
}

func TestLogpErrors(t *testing.T) {
	m := model.New("errors")
	g := m.Graph()
	x := m.Normal("x", 0.0, 1.0)

	// Deterministic nodes have no density.
	sum := Add(x, Const(g, 1.0))
	require.Panics(t, func() { logprob.Logp(m, sum, m.ValueVar(x)) })

	// Nested index assignments are rejected.
	a := m.Normal("a", 0.0, 1.0, model.WithShape(4))
	inner := IndexSet(a, Const(g, []float64{1}), SliceIndex(0, 1))
	outer := IndexSet(inner, Const(g, []float64{2}), SliceIndex(1, 2))
	require.Panics(t, func() { logprob.Logp(m, outer, nil) })

	// Unregistered random variables inside the parameters have no value variable.
	foreign := RandomVariable(g, "foreign", m.Distribution(x), x.Shape())
	y := m.Normal("y", foreign, 1.0)
	err := exceptions.TryCatch[error](func() { logprob.Logp(m, y, m.ValueVar(y)) })
	require.ErrorContains(t, err, "foreign has no value variable")

	// Index assignment over something that isn't a random variable.
	notRV := IndexSet(Const(g, []float64{1, 2, 3}), Const(g, []float64{9}), SliceIndex(0, 1))
	require.Panics(t, func() { logprob.Logp(m, notRV, nil) })
}
