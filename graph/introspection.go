// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/bayes/types/tensors"
)

// ConstantValue returns the value assigned to a constant node as a tensor.
// It returns nil if n is not a Constant node.
//
// The returned tensor is owned by the node and shouldn't be changed.
func (n *Node) ConstantValue() *tensors.Tensor {
	n.AssertValid()
	ni, ok := n.inputs.(*nodeInputsConstant)
	if !ok {
		return nil
	}
	return ni.tensor
}

// IsConstantExpression returns whether the node and all its ancestors are constants or
// deterministic operations over constants: no Parameter and no RandomVariable enters the
// expression, so it always evaluates to the same value.
func (n *Node) IsConstantExpression() bool {
	for _, node := range Ancestors([]*Node{n}, true) {
		switch node.Type() {
		case NodeTypeParameter, NodeTypeRandomVariable:
			return false
		}
	}
	return true
}
