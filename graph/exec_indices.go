// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"reflect"

	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// resolveSelection converts an IndexSpec plus the evaluated index argument tensors into
// concrete flat offsets into a row-major tensor with the given dims. Each offset points at a
// contiguous block of blockSize elements: full rows of axis 0 for Slice and Positions
// indexing, individual elements (blockSize 1) for Mask and Coordinates indexing.
func resolveSelection(spec IndexSpec, dims []int, args []*tensors.Tensor) (offsets []int, blockSize int) {
	rowSize := 1
	for _, dim := range dims[min(1, len(dims)):] {
		rowSize *= dim
	}
	switch spec.kind {
	case IndexKindSlice:
		offsets = make([]int, 0, spec.stop-spec.start)
		for row := spec.start; row < spec.stop; row++ {
			offsets = append(offsets, row*rowSize)
		}
		return offsets, rowSize

	case IndexKindMask:
		for flatIdx, set := range tensors.CopyFlatData[bool](args[0]) {
			if set {
				offsets = append(offsets, flatIdx)
			}
		}
		return offsets, 1

	case IndexKindPositions:
		positions := tensors.CopyFlatData[int64](args[0].ConvertDType(dtypes.Int64))
		offsets = make([]int, 0, len(positions))
		for _, pos := range positions {
			row := normalizeIndex(pos, dims[0])
			offsets = append(offsets, row*rowSize)
		}
		return offsets, rowSize

	case IndexKindCoordinates:
		strides := make([]int, len(dims))
		stride := 1
		for axis := len(dims) - 1; axis >= 0; axis-- {
			strides[axis] = stride
			stride *= dims[axis]
		}
		perAxis := make([][]int64, len(args))
		for axis, arg := range args {
			perAxis[axis] = tensors.CopyFlatData[int64](arg.ConvertDType(dtypes.Int64))
		}
		numSelected := len(perAxis[0])
		offsets = make([]int, numSelected)
		for ii := 0; ii < numSelected; ii++ {
			offset := 0
			for axis := range dims {
				offset += normalizeIndex(perAxis[axis][ii], dims[axis]) * strides[axis]
			}
			offsets[ii] = offset
		}
		return offsets, 1
	}
	exceptions.Panicf("invalid IndexSpec %s", spec)
	return nil, 0
}

// normalizeIndex resolves a possibly negative index against the axis dimension, panicking if
// out-of-bounds.
func normalizeIndex(idx int64, dim int) int {
	original := idx
	if idx < 0 {
		idx += int64(dim)
	}
	if idx < 0 || idx >= int64(dim) {
		exceptions.Panicf("index %d out-of-bounds for axis of dimension %d", original, dim)
	}
	return int(idx)
}

// execIndexSet evaluates an IndexSet node: a copy of x (inputs[0]) with the selected blocks
// overwritten by data (inputs[1]).
func execIndexSet(spec IndexSpec, inputs []*tensors.Tensor) *tensors.Tensor {
	x, data := inputs[0], inputs[1]
	offsets, blockSize := resolveSelection(spec, x.Shape().Dimensions, inputs[2:])
	if data.Size() != len(offsets)*blockSize {
		// Only reachable with a non-constant mask, the other kinds are checked in graph
		// building time.
		exceptions.Panicf("IndexSet with %s selects %d elements, data has %d",
			spec, len(offsets)*blockSize, data.Size())
	}
	out := x.Clone()
	out.MutableFlatData(func(outAny any) {
		data.ConstFlatData(func(dataAny any) {
			outV := reflect.ValueOf(outAny)
			dataV := reflect.ValueOf(dataAny)
			for ii, offset := range offsets {
				reflect.Copy(
					outV.Slice(offset, offset+blockSize),
					dataV.Slice(ii*blockSize, (ii+1)*blockSize))
			}
		})
	})
	return out
}

// execTake evaluates a Take node: the blocks of x (inputs[0]) selected by spec, gathered into
// a tensor with the selection shape.
func execTake(spec IndexSpec, inputs []*tensors.Tensor, outShape shapes.Shape) *tensors.Tensor {
	x := inputs[0]
	offsets, blockSize := resolveSelection(spec, x.Shape().Dimensions, inputs[1:])
	out := tensors.FromShape(outShape.Clone())
	out.MutableFlatData(func(outAny any) {
		x.ConstFlatData(func(xAny any) {
			outV := reflect.ValueOf(outAny)
			xV := reflect.ValueOf(xAny)
			for ii, offset := range offsets {
				reflect.Copy(
					outV.Slice(ii*blockSize, (ii+1)*blockSize),
					xV.Slice(offset, offset+blockSize))
			}
		})
	})
	return out
}
