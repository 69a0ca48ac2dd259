// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"testing"

	. "github.com/gomlx/bayes/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphRegistry(t *testing.T) {
	g := NewGraph("registry")
	require.Equal(t, "registry", g.Name())
	require.Nil(t, g.LastNode())

	x := Parameter(g, "x", MakeShape(F64))
	y := Add(x, Scalar(g, F64, 1))
	require.Equal(t, y, g.LastNode())
	require.Equal(t, x, g.NodeById(x.Id()))
	require.Equal(t, 1, g.NumParameters())
	require.Equal(t, x, g.ParameterByIndex(0))
	require.Panics(t, func() { g.NodeById(InvalidNodeId) })

	// One line per node, with the graph header.
	str := g.String()
	assert.Contains(t, str, `Graph "registry"`)
	assert.Contains(t, str, `Parameter(name="x")`)

	// Duplicate parameter names are rejected.
	require.Panics(t, func() { Parameter(g, "x", MakeShape(F64)) })
}
