// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math"
	"reflect"

	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// This file implements the host CPU kernels used by Exec. Numeric kernels are generic over
// the float dtypes; data movement kernels (broadcast, select, reshape) go through reflection
// and work for every dtype.

type floatT interface {
	float32 | float64
}

// broadcastStrides returns the per-axis strides of a row-major tensor with the given dims,
// right-aligned against outDims, with stride 0 on broadcast (size 1 or missing) axes.
func broadcastStrides(dims, outDims []int) []int {
	strides := make([]int, len(outDims))
	stride := 1
	shift := len(outDims) - len(dims)
	for axis := len(outDims) - 1; axis >= 0; axis-- {
		opAxis := axis - shift
		if opAxis < 0 || dims[opAxis] == 1 {
			continue // Stride 0: the operand value repeats over this axis.
		}
		strides[axis] = stride
		stride *= dims[opAxis]
	}
	return strides
}

// broadcastIterate iterates in row-major order over a tensor with the given dims, calling fn
// with the flat index and the corresponding offsets into each of the operands described by
// strides (see broadcastStrides).
func broadcastIterate(dims []int, strides [][]int, fn func(flatIdx int, offsets []int)) {
	size := 1
	for _, dim := range dims {
		size *= dim
	}
	coords := make([]int, len(dims))
	offsets := make([]int, len(strides))
	for flatIdx := 0; flatIdx < size; flatIdx++ {
		fn(flatIdx, offsets)
		for axis := len(dims) - 1; axis >= 0; axis-- {
			coords[axis]++
			for ii := range strides {
				offsets[ii] += strides[ii][axis]
			}
			if coords[axis] < dims[axis] {
				break
			}
			coords[axis] = 0
			for ii := range strides {
				offsets[ii] -= strides[ii][axis] * dims[axis]
			}
		}
	}
}

func execNumericBinary(op NodeType, lhs, rhs *tensors.Tensor, outShape shapes.Shape) *tensors.Tensor {
	switch outShape.DType {
	case dtypes.Float32:
		return execBinaryKernel(lhs, rhs, outShape, binaryFn[float32](op))
	case dtypes.Float64:
		return execBinaryKernel(lhs, rhs, outShape, binaryFn[float64](op))
	}
	exceptions.Panicf("%s not implemented for dtype %s", op, outShape.DType)
	return nil
}

func binaryFn[T floatT](op NodeType) func(a, b T) T {
	switch op {
	case NodeTypeAdd:
		return func(a, b T) T { return a + b }
	case NodeTypeSub:
		return func(a, b T) T { return a - b }
	case NodeTypeMul:
		return func(a, b T) T { return a * b }
	case NodeTypeDiv:
		return func(a, b T) T { return a / b }
	case NodeTypePow:
		return func(a, b T) T { return T(math.Pow(float64(a), float64(b))) }
	case NodeTypeMin:
		return func(a, b T) T { return min(a, b) }
	case NodeTypeMax:
		return func(a, b T) T { return max(a, b) }
	}
	exceptions.Panicf("%s is not a numeric binary op", op)
	return nil
}

func execBinaryKernel[T floatT](lhs, rhs *tensors.Tensor, outShape shapes.Shape, fn func(a, b T) T) *tensors.Tensor {
	out := tensors.FromShape(outShape.Clone())
	strides := [][]int{
		broadcastStrides(lhs.Shape().Dimensions, outShape.Dimensions),
		broadcastStrides(rhs.Shape().Dimensions, outShape.Dimensions),
	}
	tensors.MutableFlatData(out, func(outFlat []T) {
		tensors.ConstFlatData(lhs, func(lhsFlat []T) {
			tensors.ConstFlatData(rhs, func(rhsFlat []T) {
				broadcastIterate(outShape.Dimensions, strides, func(flatIdx int, offsets []int) {
					outFlat[flatIdx] = fn(lhsFlat[offsets[0]], rhsFlat[offsets[1]])
				})
			})
		})
	})
	return out
}

func execComparison(op NodeType, lhs, rhs *tensors.Tensor, outShape shapes.Shape) *tensors.Tensor {
	switch lhs.DType() {
	case dtypes.Float32:
		return execCompareKernel(lhs, rhs, outShape, compareFn[float32](op))
	case dtypes.Float64:
		return execCompareKernel(lhs, rhs, outShape, compareFn[float64](op))
	}
	exceptions.Panicf("%s not implemented for dtype %s", op, lhs.DType())
	return nil
}

func compareFn[T floatT](op NodeType) func(a, b T) bool {
	switch op {
	case NodeTypeLessThan:
		return func(a, b T) bool { return a < b }
	case NodeTypeLessOrEqual:
		return func(a, b T) bool { return a <= b }
	case NodeTypeGreaterThan:
		return func(a, b T) bool { return a > b }
	case NodeTypeGreaterOrEqual:
		return func(a, b T) bool { return a >= b }
	}
	exceptions.Panicf("%s is not a comparison op", op)
	return nil
}

func execCompareKernel[T floatT](lhs, rhs *tensors.Tensor, outShape shapes.Shape, fn func(a, b T) bool) *tensors.Tensor {
	out := tensors.FromShape(outShape.Clone())
	strides := [][]int{
		broadcastStrides(lhs.Shape().Dimensions, outShape.Dimensions),
		broadcastStrides(rhs.Shape().Dimensions, outShape.Dimensions),
	}
	tensors.MutableFlatData(out, func(outFlat []bool) {
		tensors.ConstFlatData(lhs, func(lhsFlat []T) {
			tensors.ConstFlatData(rhs, func(rhsFlat []T) {
				broadcastIterate(outShape.Dimensions, strides, func(flatIdx int, offsets []int) {
					outFlat[flatIdx] = fn(lhsFlat[offsets[0]], rhsFlat[offsets[1]])
				})
			})
		})
	})
	return out
}

func execLogicalBinary(op NodeType, lhs, rhs *tensors.Tensor, outShape shapes.Shape) *tensors.Tensor {
	var fn func(a, b bool) bool
	switch op {
	case NodeTypeLogicalAnd:
		fn = func(a, b bool) bool { return a && b }
	case NodeTypeLogicalOr:
		fn = func(a, b bool) bool { return a || b }
	default:
		exceptions.Panicf("%s is not a logical binary op", op)
	}
	out := tensors.FromShape(outShape.Clone())
	strides := [][]int{
		broadcastStrides(lhs.Shape().Dimensions, outShape.Dimensions),
		broadcastStrides(rhs.Shape().Dimensions, outShape.Dimensions),
	}
	tensors.MutableFlatData(out, func(outFlat []bool) {
		tensors.ConstFlatData(lhs, func(lhsFlat []bool) {
			tensors.ConstFlatData(rhs, func(rhsFlat []bool) {
				broadcastIterate(outShape.Dimensions, strides, func(flatIdx int, offsets []int) {
					outFlat[flatIdx] = fn(lhsFlat[offsets[0]], rhsFlat[offsets[1]])
				})
			})
		})
	})
	return out
}

func execNumericUnary(op NodeType, x *tensors.Tensor) *tensors.Tensor {
	switch x.DType() {
	case dtypes.Float32:
		return execUnaryKernel(x, unaryFn[float32](op))
	case dtypes.Float64:
		return execUnaryKernel(x, unaryFn[float64](op))
	}
	exceptions.Panicf("%s not implemented for dtype %s", op, x.DType())
	return nil
}

func unaryFn[T floatT](op NodeType) func(v T) T {
	switch op {
	case NodeTypeNeg:
		return func(v T) T { return -v }
	case NodeTypeAbs:
		return func(v T) T {
			if v < 0 {
				return -v
			}
			return v
		}
	case NodeTypeLog:
		return func(v T) T { return T(math.Log(float64(v))) }
	case NodeTypeLog1p:
		return func(v T) T { return T(math.Log1p(float64(v))) }
	case NodeTypeExp:
		return func(v T) T { return T(math.Exp(float64(v))) }
	case NodeTypeSqrt:
		return func(v T) T { return T(math.Sqrt(float64(v))) }
	case NodeTypeErf:
		return func(v T) T { return T(math.Erf(float64(v))) }
	}
	exceptions.Panicf("%s is not a numeric unary op", op)
	return nil
}

func execUnaryKernel[T floatT](x *tensors.Tensor, fn func(v T) T) *tensors.Tensor {
	out := tensors.FromShape(x.Shape().Clone())
	tensors.MutableFlatData(out, func(outFlat []T) {
		tensors.ConstFlatData(x, func(xFlat []T) {
			for ii, v := range xFlat {
				outFlat[ii] = fn(v)
			}
		})
	})
	return out
}

func execLogicalNot(x *tensors.Tensor) *tensors.Tensor {
	out := tensors.FromShape(x.Shape().Clone())
	tensors.MutableFlatData(out, func(outFlat []bool) {
		tensors.ConstFlatData(x, func(xFlat []bool) {
			for ii, v := range xFlat {
				outFlat[ii] = !v
			}
		})
	})
	return out
}

// execWhere selects element-wise between onTrue and onFalse according to cond. It goes
// through reflection, so it works for every dtype of the branches.
func execWhere(cond, onTrue, onFalse *tensors.Tensor, outShape shapes.Shape) *tensors.Tensor {
	out := tensors.FromShape(outShape.Clone())
	condFlat := tensors.CopyFlatData[bool](cond)
	strides := [][]int{
		broadcastStrides(cond.Shape().Dimensions, outShape.Dimensions),
		broadcastStrides(onTrue.Shape().Dimensions, outShape.Dimensions),
		broadcastStrides(onFalse.Shape().Dimensions, outShape.Dimensions),
	}
	out.MutableFlatData(func(outAny any) {
		onTrue.ConstFlatData(func(onTrueAny any) {
			onFalse.ConstFlatData(func(onFalseAny any) {
				outV := reflect.ValueOf(outAny)
				onTrueV := reflect.ValueOf(onTrueAny)
				onFalseV := reflect.ValueOf(onFalseAny)
				broadcastIterate(outShape.Dimensions, strides, func(flatIdx int, offsets []int) {
					if condFlat[offsets[0]] {
						outV.Index(flatIdx).Set(onTrueV.Index(offsets[1]))
					} else {
						outV.Index(flatIdx).Set(onFalseV.Index(offsets[2]))
					}
				})
			})
		})
	})
	return out
}

func execReduceSum(x *tensors.Tensor, axes []int, outShape shapes.Shape) *tensors.Tensor {
	switch x.DType() {
	case dtypes.Float32:
		return execReduceSumKernel[float32](x, axes, outShape)
	case dtypes.Float64:
		return execReduceSumKernel[float64](x, axes, outShape)
	}
	exceptions.Panicf("ReduceSum not implemented for dtype %s", x.DType())
	return nil
}

func execReduceSumKernel[T floatT](x *tensors.Tensor, axes []int, outShape shapes.Shape) *tensors.Tensor {
	out := tensors.FromShape(outShape.Clone()) // Zero initialized.
	inDims := x.Shape().Dimensions
	reduced := make([]bool, len(inDims))
	for _, axis := range axes {
		reduced[axis] = true
	}
	// Strides into the output, per input axis: 0 on the reduced axes, so all the elements of
	// a reduction group accumulate on the same output position.
	strides := make([]int, len(inDims))
	stride := 1
	for axis := len(inDims) - 1; axis >= 0; axis-- {
		if reduced[axis] {
			continue
		}
		strides[axis] = stride
		stride *= inDims[axis]
	}
	tensors.MutableFlatData(out, func(outFlat []T) {
		tensors.ConstFlatData(x, func(xFlat []T) {
			broadcastIterate(inDims, [][]int{strides}, func(flatIdx int, offsets []int) {
				outFlat[offsets[0]] += xFlat[flatIdx]
			})
		})
	})
	return out
}

func execReshape(x *tensors.Tensor, outShape shapes.Shape) *tensors.Tensor {
	return x.Reshape(outShape.Dimensions...)
}

func execBroadcastTo(x *tensors.Tensor, outShape shapes.Shape) *tensors.Tensor {
	out := tensors.FromShape(outShape.Clone())
	strides := [][]int{broadcastStrides(x.Shape().Dimensions, outShape.Dimensions)}
	out.MutableFlatData(func(outAny any) {
		x.ConstFlatData(func(xAny any) {
			outV := reflect.ValueOf(outAny)
			xV := reflect.ValueOf(xAny)
			broadcastIterate(outShape.Dimensions, strides, func(flatIdx int, offsets []int) {
				outV.Index(flatIdx).Set(xV.Index(offsets[0]))
			})
		})
	})
	return out
}
