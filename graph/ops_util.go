// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

// This file contains ops composed from the primitive ops defined in ops.go.

// OnePlus adds 1 to the value x.
func OnePlus(x *Node) *Node {
	return Add(ScalarOne(x.Graph(), x.DType()), x)
}

// OneMinus returns (1-x).
func OneMinus(x *Node) *Node {
	return Sub(ScalarOne(x.Graph(), x.DType()), x)
}

// MinusOne returns (x-1).
func MinusOne(x *Node) *Node {
	return Sub(x, ScalarOne(x.Graph(), x.DType()))
}

// Square returns x*x.
func Square(x *Node) *Node {
	return Mul(x, x)
}

// Sigmoid returns the expression 1/(1+exp(-x)).
func Sigmoid(x *Node) *Node {
	return Div(ScalarOne(x.Graph(), x.DType()), OnePlus(Exp(Neg(x))))
}

// Softplus returns log(1+exp(x)), element-wise.
//
// It is computed as max(x, 0) + log1p(exp(-|x|)), which is numerically stable for large |x|.
func Softplus(x *Node) *Node {
	return Add(
		Max(x, ScalarZero(x.Graph(), x.DType())),
		Log1p(Exp(Neg(Abs(x)))))
}

// LogSigmoid returns log(sigmoid(x)) = -softplus(-x), element-wise.
func LogSigmoid(x *Node) *Node {
	return Neg(Softplus(Neg(x)))
}

// Logit returns log(x/(1-x)), the inverse of Sigmoid. Defined for x in (0, 1).
func Logit(x *Node) *Node {
	return Sub(Log(x), Log(OneMinus(x)))
}
