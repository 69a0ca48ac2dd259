// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"reflect"

	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) *Tensor {
	return newTensor(shape)
}

// FromScalar returns a scalar (rank-0) Tensor with the given value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a tensor with the given dimensions, filled with the scalar
// value given. `T` must be one of the supported types.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	t := newTensor(shapes.Make(dtype, dimensions...))
	flat := t.flat.([]T)
	for ii := range flat {
		flat[ii] = value
	}
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, and set the flat data.
// The flat data is copied, and must match the size of the shape (product of the dimensions).
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptionf("FromFlatDataAndDimensions(): data size is %d, but dimensions size is %d", len(data), shape.Size())
	}
	t := newTensor(shape)
	copy(t.flat.([]T), data)
	return t
}

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from. There are no recursions in
// generics constraint definitions, so we enumerate up to 4 levels of slices. Tensors with higher rank can
// be built with FromFlatDataAndDimensions.
type MultiDimensionSlice interface {
	bool | float16.Float16 | float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		[]bool | []float16.Float16 | []float32 | []float64 | []int8 | []int16 | []int32 | []int64 | []uint8 | []uint16 | []uint32 | []uint64 |
		[][]bool | [][]float16.Float16 | [][]float32 | [][]float64 | [][]int8 | [][]int16 | [][]int32 | [][]int64 | [][]uint8 | [][]uint16 | [][]uint32 | [][]uint64 |
		[][][]bool | [][][]float16.Float16 | [][][]float32 | [][][]float64 | [][][]int8 | [][][]int16 | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint16 | [][][]uint32 | [][][]uint64
}

// FromValue returns a Tensor initialized from the given multi-dimension slice (or scalar).
// It panics if the shape is not regular (sub-slices of different sizes).
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue that takes an anonymous type (`any`).
// The value must be a scalar or a regular multi-dimension slice of one of the supported types.
// If the value is already a `*Tensor`, it is returned unchanged.
func FromAnyValue(value any) *Tensor {
	if t, ok := value.(*Tensor); ok {
		return t
	}
	shape, err := shapeForValue(value)
	if err != nil {
		panic(errors.Wrapf(err, "cannot create shape from %T", value))
	}
	t := newTensor(shape)
	flatV := reflect.ValueOf(t.flat)
	pos := 0
	copyValueRecursively(flatV, reflect.ValueOf(value), &pos)
	return t
}

// copyValueRecursively copies the multi-dimensional slice v to the flat data slice.
func copyValueRecursively(flat reflect.Value, v reflect.Value, pos *int) {
	if v.Kind() != reflect.Slice {
		flat.Index(*pos).Set(v)
		*pos++
		return
	}
	for ii := 0; ii < v.Len(); ii++ {
		copyValueRecursively(flat, v.Index(ii), pos)
	}
}

// shapeForValue returns the shape of a scalar or multi-dimensional slice value, checking that
// the slices are regular (same dimensions everywhere).
func shapeForValue(v any) (shape shapes.Shape, err error) {
	err = shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	if t.Kind() == reflect.Slice {
		// Recurse into inner slices.
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()

		// The first element is the reference
		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for Tensor conversion: %v", v)
		}
		v0 := v.Index(0)
		err := shapeForValueRecursive(shape, v0, t)
		if err != nil {
			return err
		}

		// Test that other elements have the same shape as the first one.
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			err = shapeForValueRecursive(&shapeTest, v.Index(ii), t)
			if err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %q, and %q", shape, shapeTest)
			}
		}
	} else {
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("type %s not valid for Tensor conversion", t)
		}
	}
	return nil
}

// ConstFlatData calls accessFn with the tensor's flat data (a slice of the Go type
// corresponding to the tensor's dtype). The data should not be modified.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) {
	t.AssertValid()
	accessFn(t.flat)
}

// MutableFlatData calls accessFn with the tensor's flat data (a slice of the Go type
// corresponding to the tensor's dtype). The data may be modified in place.
func (t *Tensor) MutableFlatData(accessFn func(flat any)) {
	t.AssertValid()
	accessFn(t.flat)
}

// ConstFlatData provides the tensor's flat data as a slice of the given type, which must
// match the tensor's dtype. The data should not be modified.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.AssertValid()
	flat, ok := t.flat.([]T)
	if !ok {
		exceptionf("ConstFlatData[%T] does not match tensor dtype %s", flat, t.DType())
	}
	accessFn(flat)
}

// MutableFlatData provides the tensor's flat data as a slice of the given type, which must
// match the tensor's dtype. The data may be modified in place.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	ConstFlatData[T](t, accessFn)
}

// CopyFlatData returns a copy of the flat data of the tensor. The given generic type
// must match the tensor's dtype.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	var data []T
	ConstFlatData(t, func(flat []T) {
		data = make([]T, len(flat))
		copy(data, flat)
	})
	return data
}

// ToScalar returns the scalar value of a rank-0 (or size-1) tensor. The given generic type
// must match the tensor's dtype.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	t.AssertValid()
	if t.Size() != 1 {
		exceptionf("ToScalar() requires a tensor of size 1, got shape %s", t.Shape())
	}
	var value T
	ConstFlatData(t, func(flat []T) {
		value = flat[0]
	})
	return value
}

// LayoutStrides returns the strides (in number of elements) for each axis of the tensor.
func (t *Tensor) LayoutStrides() []int {
	return t.shape.Strides()
}

// Value returns a multidimensional slice (single value for scalars) with a copy of the tensor
// values. It is the inverse of FromValue.
func (t *Tensor) Value() any {
	t.AssertValid()
	flatV := reflect.ValueOf(t.flat)
	if t.IsScalar() {
		return flatV.Index(0).Interface()
	}
	if t.Rank() == 1 {
		flatCopy := reflect.MakeSlice(flatV.Type(), t.Size(), t.Size())
		reflect.Copy(flatCopy, flatV)
		return flatCopy.Interface()
	}
	return convertDataToSlices(flatV, t.shape.Dimensions...).Interface()
}

// convertDataToSlices takes a flat slice of values and creates a multidimensional slice with
// the given dimensions that points to sections of the flat data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := make([]int, len(dimensions))
	currentStride := 1
	for dim := len(dimensions) - 1; dim >= 0; dim-- {
		strides[dim] = currentStride
		currentStride *= dimensions[dim]
	}
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

// createSlicesRecursively recursively creates the sub-slices of the multidimensional value.
func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(dimensions) == 1 {
		return data
	}
	numElements := dimensions[0]
	result := reflect.MakeSlice(resultT, numElements, numElements)
	subElementT := resultT.Elem()
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		end := start + strides[0]
		subData := data.Slice(start, end)
		result.Index(ii).Set(createSlicesRecursively(subElementT, subData, dimensions[1:], strides[1:]))
	}
	return result
}

// flatToFloat64 returns the tensor's flat data converted to a []float64. Bools convert to 0/1.
func (t *Tensor) flatToFloat64() []float64 {
	switch flat := t.flat.(type) {
	case []float64:
		return flat
	case []float32:
		return numericToFloat64(flat)
	case []float16.Float16:
		to := make([]float64, len(flat))
		for ii, v := range flat {
			to[ii] = float64(v.Float32())
		}
		return to
	case []bool:
		to := make([]float64, len(flat))
		for ii, v := range flat {
			if v {
				to[ii] = 1
			}
		}
		return to
	case []int8:
		return numericToFloat64(flat)
	case []int16:
		return numericToFloat64(flat)
	case []int32:
		return numericToFloat64(flat)
	case []int64:
		return numericToFloat64(flat)
	case []uint8:
		return numericToFloat64(flat)
	case []uint16:
		return numericToFloat64(flat)
	case []uint32:
		return numericToFloat64(flat)
	case []uint64:
		return numericToFloat64(flat)
	}
	exceptionf("tensor dtype %s not supported for conversions", t.DType())
	return nil
}

func numericToFloat64[T interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}](from []T) []float64 {
	to := make([]float64, len(from))
	for ii, v := range from {
		to[ii] = float64(v)
	}
	return to
}

// convertFlatFromFloat64 fills the tensor's flat data from a []float64, converting to the
// tensor's dtype. Conversion to Bool yields `value != 0`.
func convertFlatFromFloat64(t *Tensor, from []float64) {
	switch flat := t.flat.(type) {
	case []float64:
		copy(flat, from)
	case []float32:
		for ii, v := range from {
			flat[ii] = float32(v)
		}
	case []float16.Float16:
		for ii, v := range from {
			flat[ii] = float16.Fromfloat32(float32(v))
		}
	case []bool:
		for ii, v := range from {
			flat[ii] = v != 0
		}
	case []int8:
		numericFromFloat64(flat, from)
	case []int16:
		numericFromFloat64(flat, from)
	case []int32:
		numericFromFloat64(flat, from)
	case []int64:
		numericFromFloat64(flat, from)
	case []uint8:
		numericFromFloat64(flat, from)
	case []uint16:
		numericFromFloat64(flat, from)
	case []uint32:
		numericFromFloat64(flat, from)
	case []uint64:
		numericFromFloat64(flat, from)
	default:
		exceptionf("tensor dtype %s not supported for conversions", t.DType())
	}
}

func numericFromFloat64[T interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}](to []T, from []float64) {
	for ii, v := range from {
		to[ii] = T(v)
	}
}
