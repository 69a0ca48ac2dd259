// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions

import (
	"math"
	"math/rand/v2"

	. "github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"gonum.org/v1/gonum/stat/distuv"
)

// The distribution singletons. Parameter order follows the constructor-argument order of the
// convenience methods in ml/model, e.g. Normal takes [mu, sigma].
var (
	Normal      Distribution = normal{}
	Uniform     Distribution = uniform{}
	HalfNormal  Distribution = halfNormal{}
	Exponential Distribution = exponential{}
	LogNormal   Distribution = logNormal{}
)

const log2Pi = 1.8378770664093453 // log(2π)

// normal implements the Gaussian distribution with parameters [mu, sigma].
type normal struct{}

func (normal) Name() string   { return "normal" }
func (normal) NumParams() int { return 2 }

func (d normal) LogProbGraph(value *Node, params []*Node) *Node {
	checkNumParams(d, len(params))
	mu, sigma := params[0], params[1]
	g := value.Graph()
	z := Div(Sub(value, mu), sigma)
	logp := Sub(
		Mul(ConstAs(value, -0.5), Square(z)),
		Add(Log(sigma), ConstAs(value, 0.5*log2Pi)))
	return Where(GreaterThan(sigma, ScalarZero(g, sigma.DType())), logp, negInf(value))
}

func (d normal) Sample(src rand.Source, params []*tensors.Tensor, shape shapes.Shape) *tensors.Tensor {
	return sampleElementwise(params, shape, func(p []float64) float64 {
		return distuv.Normal{Mu: p[0], Sigma: p[1], Src: src}.Rand()
	})
}

func (normal) DefaultTransform(params []*Node) Transform { return nil }

// uniform implements the continuous uniform distribution on [low, high], parameters
// [low, high].
type uniform struct{}

func (uniform) Name() string   { return "uniform" }
func (uniform) NumParams() int { return 2 }

func (d uniform) LogProbGraph(value *Node, params []*Node) *Node {
	checkNumParams(d, len(params))
	low, high := params[0], params[1]
	inSupport := LogicalAnd(GreaterOrEqual(value, low), LessOrEqual(value, high))
	return Where(inSupport, Neg(Log(Sub(high, low))), negInf(value))
}

func (d uniform) Sample(src rand.Source, params []*tensors.Tensor, shape shapes.Shape) *tensors.Tensor {
	return sampleElementwise(params, shape, func(p []float64) float64 {
		return distuv.Uniform{Min: p[0], Max: p[1], Src: src}.Rand()
	})
}

func (uniform) DefaultTransform(params []*Node) Transform {
	return Interval(params[0], params[1])
}

// halfNormal implements the half-normal distribution on [0, ∞), parameter [sigma].
type halfNormal struct{}

func (halfNormal) Name() string   { return "halfnormal" }
func (halfNormal) NumParams() int { return 1 }

func (d halfNormal) LogProbGraph(value *Node, params []*Node) *Node {
	checkNumParams(d, len(params))
	sigma := params[0]
	g := value.Graph()
	z := Div(value, sigma)
	logp := Sub(
		Mul(ConstAs(value, -0.5), Square(z)),
		Add(Log(sigma), ConstAs(value, 0.5*log2Pi-math.Log(2))))
	return Where(GreaterOrEqual(value, ScalarZero(g, value.DType())), logp, negInf(value))
}

func (d halfNormal) Sample(src rand.Source, params []*tensors.Tensor, shape shapes.Shape) *tensors.Tensor {
	return sampleElementwise(params, shape, func(p []float64) float64 {
		return math.Abs(distuv.Normal{Mu: 0, Sigma: p[0], Src: src}.Rand())
	})
}

func (halfNormal) DefaultTransform(params []*Node) Transform { return LogTransform() }

// exponential implements the exponential distribution on [0, ∞), parameter [rate].
type exponential struct{}

func (exponential) Name() string   { return "exponential" }
func (exponential) NumParams() int { return 1 }

func (d exponential) LogProbGraph(value *Node, params []*Node) *Node {
	checkNumParams(d, len(params))
	rate := params[0]
	g := value.Graph()
	logp := Sub(Log(rate), Mul(rate, value))
	return Where(GreaterOrEqual(value, ScalarZero(g, value.DType())), logp, negInf(value))
}

func (d exponential) Sample(src rand.Source, params []*tensors.Tensor, shape shapes.Shape) *tensors.Tensor {
	return sampleElementwise(params, shape, func(p []float64) float64 {
		return distuv.Exponential{Rate: p[0], Src: src}.Rand()
	})
}

func (exponential) DefaultTransform(params []*Node) Transform { return LogTransform() }

// logNormal implements the log-normal distribution on (0, ∞), parameters [mu, sigma] of the
// underlying normal.
type logNormal struct{}

func (logNormal) Name() string   { return "lognormal" }
func (logNormal) NumParams() int { return 2 }

func (d logNormal) LogProbGraph(value *Node, params []*Node) *Node {
	checkNumParams(d, len(params))
	mu, sigma := params[0], params[1]
	g := value.Graph()
	// Guard the Log against non-positive values; Where discards the garbage branch.
	safe := Max(value, ConstAs(value, math.SmallestNonzeroFloat64))
	z := Div(Sub(Log(safe), mu), sigma)
	logp := Sub(
		Mul(ConstAs(value, -0.5), Square(z)),
		Add(Log(safe), Add(Log(sigma), ConstAs(value, 0.5*log2Pi))))
	return Where(GreaterThan(value, ScalarZero(g, value.DType())), logp, negInf(value))
}

func (d logNormal) Sample(src rand.Source, params []*tensors.Tensor, shape shapes.Shape) *tensors.Tensor {
	return sampleElementwise(params, shape, func(p []float64) float64 {
		return distuv.LogNormal{Mu: p[0], Sigma: p[1], Src: src}.Rand()
	})
}

func (logNormal) DefaultTransform(params []*Node) Transform { return LogTransform() }
