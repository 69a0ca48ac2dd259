// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package model_test

import (
	"testing"

	"github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/ml/distributions"
	"github.com/gomlx/bayes/ml/model"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	m := model.New("test")

	a := m.Uniform("a", 0.0, 1.0)
	require.True(t, a.IsRandomVariable())
	require.Equal(t, "a", graph.RandomVariableName(a))
	require.Equal(t, a, m.ByName("a"))
	require.Equal(t, distributions.Uniform, m.Distribution(a))

	// A bounded distribution gets a transformed value variable, named after the transform.
	aValue := m.ValueVar(a)
	require.Equal(t, graph.NodeTypeParameter, aValue.Type())
	require.Equal(t, "a_interval__", graph.ParameterName(aValue))
	require.NotNil(t, m.TransformOf(a))
	require.Equal(t, "interval", m.TransformOf(a).Name())

	// An unconstrained distribution gets no transform.
	c := m.Normal("c", 0.0, 2.0)
	require.Equal(t, "c", graph.ParameterName(m.ValueVar(c)))
	require.Nil(t, m.TransformOf(c))

	// WithoutTransform keeps the value variable in the constrained support.
	b := m.Uniform("b", 0.0, 1.0, model.WithoutTransform())
	require.Equal(t, "b", graph.ParameterName(m.ValueVar(b)))
	require.Nil(t, m.TransformOf(b))

	// Registration order is preserved.
	require.Equal(t, []*graph.Node{a, c, b}, m.RandomVariables())
}

func TestRegisterShapesAndDTypes(t *testing.T) {
	m := model.New("shapes")

	x := m.Normal("x", 0.0, 1.0, model.WithShape(5))
	require.True(t, x.Shape().Equal(shapes.Make(dtypes.Float64, 5)))

	// The dtype follows the first node parameter.
	mu32 := graph.Const(m.Graph(), float32(0))
	y := m.Normal("y", mu32, float32(1), model.WithShape(2, 2))
	require.Equal(t, dtypes.Float32, y.DType())

	// Or is set explicitly.
	z := m.Normal("z", 0.0, 1.0, model.WithDType(dtypes.Float32))
	require.Equal(t, dtypes.Float32, z.DType())
}

func TestRegisterHierarchical(t *testing.T) {
	m := model.New("hierarchical")
	a := m.Normal("a", 0.0, 1.0)
	scale := graph.Exp(a) // Parameters can be expressions of earlier variables.
	b := m.Normal("b", 0.0, scale)
	require.Contains(t, graph.Ancestors([]*graph.Node{b}, true), a)
}

func TestObserved(t *testing.T) {
	m := model.New("observed")
	data := []float64{1, 2, 3}
	y := m.Normal("y", 0.0, 1.0, model.WithObserved(data))

	require.True(t, m.IsObserved(y))
	require.True(t, y.Shape().Equal(shapes.Make(dtypes.Float64, 3)))

	// The observed data is the value, as a constant; no transform applies.
	value := m.ValueVar(y)
	require.Equal(t, graph.NodeTypeConstant, value.Type())
	require.Nil(t, m.TransformOf(y))

	// Shape mismatch against WithShape panics.
	require.Panics(t, func() {
		m.Normal("bad", 0.0, 1.0, model.WithObserved(data), model.WithShape(7))
	})
}

func TestRegistryErrors(t *testing.T) {
	m := model.New("errors")
	m.Normal("x", 0.0, 1.0)

	// Duplicate names are rejected.
	require.Panics(t, func() { m.Normal("x", 0.0, 1.0) })

	// Unregistered nodes have no value variable.
	other := model.New("other")
	foreign := other.Normal("foreign", 0.0, 1.0)
	err := exceptions.TryCatch[error](func() { m.ValueVar(foreign) })
	require.ErrorContains(t, err, "foreign has no value variable")

	assert.Nil(t, m.ByName("nope"))
}
