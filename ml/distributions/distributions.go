// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package distributions implements the probability distributions random variables are drawn
// from: each Distribution builds elementwise log-density expressions (see LogProbGraph) over
// the expression graph, and draws concrete samples (via gonum's distuv) when a random
// variable is evaluated without a value.
//
// Distributions implement graph.Sampler, so they can be attached directly to a
// graph.RandomVariable node -- that is what ml/model does when registering a random variable.
package distributions

import (
	"github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Distribution of a continuous random variable. Implementations are stateless singletons
// (Normal, Uniform, ...); the distribution parameters are passed per call, as graph nodes
// for log-densities and as tensors for sampling.
type Distribution interface {
	graph.Sampler

	// NumParams returns the number of parameters of the distribution, e.g. 2 for Normal
	// (mu and sigma).
	NumParams() int

	// LogProbGraph builds the elementwise log-density expression of value under the
	// distribution with the given parameter nodes. Parameters broadcast against value.
	// Out-of-support values yield -Inf.
	LogProbGraph(value *graph.Node, params []*graph.Node) *graph.Node

	// DefaultTransform returns the transform mapping the distribution's support to the
	// whole real line, given the parameter nodes -- e.g. Interval for Uniform, LogTransform
	// for positive distributions. It returns nil for distributions with unconstrained
	// support.
	DefaultTransform(params []*graph.Node) Transform
}

// checkNumParams panics if the number of parameters doesn't match the distribution.
func checkNumParams(d Distribution, params int) {
	if params != d.NumParams() {
		exceptions.Panicf("distribution %q takes %d parameters, got %d", d.Name(), d.NumParams(), params)
	}
}

// negInf returns a -Inf scalar node with the dtype of value.
func negInf(value *graph.Node) *graph.Node {
	return graph.Infinity(value.Graph(), value.DType(), -1)
}

// broadcastFlatF64 converts t to float64 and broadcasts it to a flat slice with the size of
// shape, repeating values NumPy-style on the broadcast axes.
func broadcastFlatF64(t *tensors.Tensor, shape shapes.Shape) []float64 {
	flat := tensors.CopyFlatData[float64](t.ConvertDType(dtypes.Float64))
	dims := t.Shape().Dimensions
	outDims := shape.Dimensions
	strides := make([]int, len(outDims))
	stride := 1
	shift := len(outDims) - len(dims)
	for axis := len(outDims) - 1; axis >= 0; axis-- {
		opAxis := axis - shift
		if opAxis < 0 || dims[opAxis] == 1 {
			continue
		}
		strides[axis] = stride
		stride *= dims[opAxis]
	}
	out := make([]float64, shape.Size())
	coords := make([]int, len(outDims))
	offset := 0
	for flatIdx := range out {
		out[flatIdx] = flat[offset]
		for axis := len(outDims) - 1; axis >= 0; axis-- {
			coords[axis]++
			offset += strides[axis]
			if coords[axis] < outDims[axis] {
				break
			}
			coords[axis] = 0
			offset -= strides[axis] * outDims[axis]
		}
	}
	return out
}

// sampleElementwise draws one value per element of shape, calling drawFn with the
// (broadcast) float64 parameters of that element. The result is converted to the dtype of
// shape.
func sampleElementwise(params []*tensors.Tensor, shape shapes.Shape,
	drawFn func(paramsAt []float64) float64) *tensors.Tensor {
	flatParams := make([][]float64, len(params))
	for ii, param := range params {
		flatParams[ii] = broadcastFlatF64(param, shape)
	}
	out := tensors.FromShape(shapes.Make(dtypes.Float64, shape.Dimensions...))
	paramsAt := make([]float64, len(params))
	tensors.MutableFlatData(out, func(flat []float64) {
		for flatIdx := range flat {
			for ii := range params {
				paramsAt[ii] = flatParams[ii][flatIdx]
			}
			flat[flatIdx] = drawFn(paramsAt)
		}
	})
	if shape.DType == dtypes.Float64 {
		return out
	}
	return out.ConvertDType(shape.DType)
}
