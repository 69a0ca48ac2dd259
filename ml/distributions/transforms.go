// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions

import (
	. "github.com/gomlx/bayes/graph"
)

// Transform is an invertible mapping between the constrained support of a distribution and
// the unconstrained real line. Value variables of transformed random variables live in the
// unconstrained space: samplers and optimizers never see the support boundaries.
//
// The convention follows the usual change-of-variables: if x is the constrained variable and
// y = Forward(x) its unconstrained image, then the density of y is the density of
// x = Backward(y) plus LogDetJacobian(y), the log-absolute-determinant of d Backward/dy.
type Transform interface {
	// Name of the transform, used to name the value variable: a random variable "a" with
	// an "interval" transform gets the value variable "a_interval__".
	Name() string

	// Forward maps a value from the constrained support to the unconstrained space.
	Forward(x *Node) *Node

	// Backward maps an unconstrained value back to the constrained support.
	Backward(y *Node) *Node

	// LogDetJacobian returns the elementwise log-absolute-determinant of the Jacobian of
	// Backward at the unconstrained value y.
	LogDetJacobian(y *Node) *Node
}

// intervalTransform maps an interval (low, high) to the real line via the logit.
type intervalTransform struct {
	low, high *Node
}

// Interval returns the transform mapping the interval (low, high) to the unconstrained real
// line: Forward is logit((x-low)/(high-low)), Backward is low + (high-low)·sigmoid(y).
//
// low and high are graph nodes, so interval bounds may themselves be expressions of other
// random variables.
func Interval(low, high *Node) Transform {
	return intervalTransform{low: low, high: high}
}

func (intervalTransform) Name() string { return "interval" }

func (t intervalTransform) Forward(x *Node) *Node {
	return Logit(Div(Sub(x, t.low), Sub(t.high, t.low)))
}

func (t intervalTransform) Backward(y *Node) *Node {
	return Add(t.low, Mul(Sub(t.high, t.low), Sigmoid(y)))
}

func (t intervalTransform) LogDetJacobian(y *Node) *Node {
	// d Backward/dy = (high-low)·sigmoid(y)·sigmoid(-y):
	// log(high-low) - softplus(-y) - softplus(y).
	return Sub(
		Sub(Log(Sub(t.high, t.low)), Softplus(Neg(y))),
		Softplus(y))
}

// logTransform maps (0, ∞) to the real line via the logarithm.
type logTransform struct{}

// LogTransform returns the transform mapping the positive reals to the unconstrained real
// line: Forward is log(x), Backward is exp(y).
func LogTransform() Transform {
	return logTransform{}
}

func (logTransform) Name() string { return "log" }

func (logTransform) Forward(x *Node) *Node { return Log(x) }

func (logTransform) Backward(y *Node) *Node { return Exp(y) }

func (logTransform) LogDetJacobian(y *Node) *Node {
	// d exp(y)/dy = exp(y).
	return y
}
