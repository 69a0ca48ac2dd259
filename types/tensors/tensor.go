// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a `Tensor`, a multi-dimensional array with a single data type (DType).
//
// Tensors here are simple local (host CPU) containers: a shape (see the shapes package) plus a
// flat slice of the corresponding Go type, in row-major order. They are the concrete values fed
// to and produced by the evaluation of expression graphs (see the graph package).
//
// Main use cases:
//
//   - Construction: FromValue, FromScalar, FromFlatDataAndDimensions, FromShape, FromAnyValue.
//   - Access: Value, ToScalar, ConstFlatData, MutableFlatData, CopyFlatData.
//   - Conversion: ConvertDType (including Float16, using github.com/x448/float16).
//   - Comparison: Equal and InDelta, mostly used in tests.
package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Tensor is a multi-dimensional array of one of the supported types (see dtypes.Supported).
// It is a container for the data and its shape.
//
// The zero value of a Tensor is invalid: use one of the construction functions (FromValue,
// FromShape, etc.) instead.
type Tensor struct {
	shape shapes.Shape

	// flat holds the array with the actual data: a slice of the Go type for the shape's dtype.
	flat any
}

// newTensor returns a Tensor with the given shape and an uninitialized (zero) flat data slice.
func newTensor(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	t := &Tensor{shape: shape}
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size())
	t.flat = flatV.Interface()
	return t
}

// Clone returns a deep copy of the Tensor.
func (t *Tensor) Clone() *Tensor {
	t.AssertValid()
	clone := newTensor(t.shape.Clone())
	reflect.Copy(reflect.ValueOf(clone.flat), reflect.ValueOf(t.flat))
	return clone
}

// Reshape returns a copy of the Tensor with the same flat data (in row-major order) and the
// given dimensions. The total size must not change.
func (t *Tensor) Reshape(dimensions ...int) *Tensor {
	t.AssertValid()
	newShape := shapes.Make(t.shape.DType, dimensions...)
	if newShape.Size() != t.shape.Size() {
		exceptionf("cannot Reshape tensor from %s to %s: total sizes differ", t.shape, newShape)
	}
	reshaped := newTensor(newShape)
	reflect.Copy(reflect.ValueOf(reshaped.flat), reflect.ValueOf(t.flat))
	return reshaped
}

// Shape of the Tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank returns the rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor data.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ok returns whether the tensor is in a valid state.
func (t *Tensor) Ok() bool { return t != nil && t.shape.Ok() && t.flat != nil }

// AssertValid panics if the tensor is nil or invalid.
func (t *Tensor) AssertValid() {
	if t == nil {
		panic(errors.New("Tensor is nil"))
	}
	if !t.Ok() {
		panic(errors.New("Tensor is invalid: it was not properly constructed"))
	}
}

// MaxStringSize is the largest number of elements printed in full by Tensor.String.
// Above this, only the shape and memory size are printed.
var MaxStringSize = 500

// String returns a printable version of the tensor. For tensors larger than MaxStringSize
// elements, only the shape and (humanized) memory usage are printed.
func (t *Tensor) String() string {
	if t == nil || !t.Ok() {
		return "Tensor(invalid)"
	}
	if t.Size() > MaxStringSize {
		return fmt.Sprintf("Tensor(%s): %s bytes, too large to print", t.shape, humanize.Comma(int64(t.Memory())))
	}
	return fmt.Sprintf("Tensor(%s): %v", t.shape, t.Value())
}

// GoStr returns the tensor data as a Go literal-like string. Mostly used in tests and error messages.
func (t *Tensor) GoStr() string {
	t.AssertValid()
	value := t.Value()
	if t.IsScalar() {
		return fmt.Sprintf("%s(%v)", t.DType(), value)
	}
	return fmt.Sprintf("%s%v: %s", t.DType(), t.shape.Dimensions,
		strings.Replace(fmt.Sprintf("%v", value), "] [", "], [", -1))
}

// Equal checks whether t == other, elementwise, with the same shape.
func (t *Tensor) Equal(other *Tensor) bool {
	t.AssertValid()
	other.AssertValid()
	if !t.shape.Equal(other.shape) {
		return false
	}
	return reflect.DeepEqual(t.flat, other.flat)
}

// InDelta checks that all elements of t and other are within the given delta of each other.
// The shapes (but not the dtypes) must match. Both tensors are converted to float64 for comparison.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	t.AssertValid()
	other.AssertValid()
	if !t.shape.EqualDimensions(other.shape) {
		return false
	}
	tFlat := t.ConvertDType(dtypes.Float64).flat.([]float64)
	oFlat := other.ConvertDType(dtypes.Float64).flat.([]float64)
	for ii, v := range tFlat {
		diff := v - oFlat[ii]
		if diff < -delta || diff > delta {
			return false
		}
	}
	return true
}

// ConvertDType returns a new tensor with the same dimensions but the flat values converted
// to the given dtype. If dtype is already the tensor's dtype, it still returns a copy.
//
// Only the dtypes supported by the expression graph interpreter are convertible: Bool, the
// int variants, Float16, Float32 and Float64. Bool converts to 0/1; numeric conversions to
// Bool yield `value != 0`.
func (t *Tensor) ConvertDType(dtype dtypes.DType) *Tensor {
	t.AssertValid()
	newT := newTensor(shapes.Make(dtype, t.shape.Dimensions...))
	from := t.flatToFloat64()
	convertFlatFromFloat64(newT, from)
	return newT
}

// CastAsDType converts any Go scalar or multi-dimensional slice value to a tensor of the given dtype.
func CastAsDType(value any, dtype dtypes.DType) *Tensor {
	return FromAnyValue(value).ConvertDType(dtype)
}

// exceptionf is a shortcut for the usual panic with a formatted message and a stack trace.
func exceptionf(format string, args ...any) {
	exceptions.Panicf(format, args...)
}
