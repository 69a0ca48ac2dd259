// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the graph package.
package graphtest

import (
	"fmt"
	"testing"

	"github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/bayes/types/xslices"
	"github.com/stretchr/testify/require"
)

// TestGraphFn should build its own inputs, and return both inputs and outputs.
type TestGraphFn func(g *graph.Graph) (inputs, outputs []*graph.Node)

// TestSeed is the fixed seed used to sample RandomVariable nodes during tests.
const TestSeed = uint64(42)

// RunTestGraphFn tests a graph building function graphFn by evaluating it and comparing its
// output(s) to the values in want, reporting back any errors in t.
//
// A want value can be a shapes.Shape, in which case only the shape of the output is checked.
//
// delta is the margin of error on the difference of output and want values that are
// acceptable. Values of delta <= 0 means only exact equality is accepted.
func RunTestGraphFn(t *testing.T, testName string, graphFn TestGraphFn, want []any, delta float64) {
	t.Run(testName, func(t *testing.T) {
		wantTensors := xslices.Map(want, func(value any) *tensors.Tensor {
			if s, ok := value.(shapes.Shape); ok {
				return tensors.FromShape(s)
			}
			return tensors.FromAnyValue(value)
		})

		g := graph.NewGraph(testName)
		inputs, outputs := graphFn(g)
		exec := graph.NewExec(g).WithSeed(TestSeed)
		var evaluated []*tensors.Tensor
		require.NotPanicsf(t, func() {
			evaluated = exec.Eval(nil, append(inputs, outputs...)...)
		}, "%s: failed to evaluate graph", testName)

		fmt.Printf("\n%s:\n", testName)
		for ii, input := range evaluated[:len(inputs)] {
			fmt.Printf("\tInput %d: %s\n", ii, input.GoStr())
		}
		if len(inputs) > 0 {
			fmt.Printf("\t======\n")
		}
		evaluated = evaluated[len(inputs):]
		for ii, output := range evaluated {
			fmt.Printf("\tOutput %d: %s\n", ii, output.GoStr())
		}
		require.Equalf(t, len(want), len(outputs), "%s: number of wanted results different from number of outputs", testName)

		for ii, output := range evaluated {
			if s, ok := want[ii].(shapes.Shape); ok {
				require.Truef(t, output.Shape().Equal(s), "%s: output #%d shaped %s, want %s",
					testName, ii, output.Shape(), s)
				continue
			}
			require.Truef(t, wantTensors[ii].InDelta(output, delta), "%s: output #%d=%s doesn't match wanted value %v",
				testName, ii, output.GoStr(), want[ii])
		}
	})
}
