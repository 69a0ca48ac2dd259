// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// This file defines the index expressions of the graph: IndexSet ("set-subtensor", overwriting
// the selected coordinates of a tensor with new data) and Take (gathering the selected
// coordinates). Both take an IndexSpec describing which coordinates are selected.

// IndexKind enumerates the supported kinds of index selections of an IndexSpec.
type IndexKind int

const (
	IndexKindInvalid IndexKind = iota

	// IndexKindSlice selects the contiguous range of rows [start, stop) on axis 0.
	IndexKindSlice

	// IndexKindMask selects the positions set to true on a Bool tensor with the same
	// dimensions as the operand. Selected elements are enumerated in row-major order.
	IndexKindMask

	// IndexKindPositions selects the rows on axis 0 listed on a rank-1 integer tensor,
	// in the order given.
	IndexKindPositions

	// IndexKindCoordinates selects individual elements, given one rank-1 integer tensor
	// per axis of the operand, all of the same length.
	IndexKindCoordinates
)

var indexKindNames = map[IndexKind]string{
	IndexKindInvalid:     "Invalid",
	IndexKindSlice:       "Slice",
	IndexKindMask:        "Mask",
	IndexKindPositions:   "Positions",
	IndexKindCoordinates: "Coordinates",
}

// String implements fmt.Stringer.
func (k IndexKind) String() string {
	if name, found := indexKindNames[k]; found {
		return name
	}
	return fmt.Sprintf("IndexKind(%d)", k)
}

// IndexSpec describes a selection of coordinates of a tensor, used by IndexSet and Take.
// Create it with one of SliceIndex, MaskIndex, PositionsIndex or CoordinatesIndex.
type IndexSpec struct {
	kind        IndexKind
	start, stop int // Only for IndexKindSlice.
	args        []*Node
}

// SliceIndex returns an IndexSpec selecting the contiguous rows [start, stop) on axis 0.
func SliceIndex(start, stop int) IndexSpec {
	if start < 0 || stop < start {
		exceptions.Panicf("SliceIndex(start=%d, stop=%d): invalid range", start, stop)
	}
	return IndexSpec{kind: IndexKindSlice, start: start, stop: stop}
}

// MaskIndex returns an IndexSpec selecting the positions where the Bool node mask is true.
func MaskIndex(mask *Node) IndexSpec {
	mask.AssertValid()
	if mask.DType() != dtypes.Bool {
		exceptions.Panicf("MaskIndex requires a Bool mask, got %s", mask.DType())
	}
	return IndexSpec{kind: IndexKindMask, args: []*Node{mask}}
}

// PositionsIndex returns an IndexSpec selecting the rows of axis 0 listed in positions, a
// rank-1 integer node.
func PositionsIndex(positions *Node) IndexSpec {
	positions.AssertValid()
	if !positions.DType().IsInt() || positions.Rank() != 1 {
		exceptions.Panicf("PositionsIndex requires a rank-1 integer node, got %s", positions.Shape())
	}
	return IndexSpec{kind: IndexKindPositions, args: []*Node{positions}}
}

// CoordinatesIndex returns an IndexSpec selecting individual elements of a rank-n tensor,
// given n rank-1 integer nodes of the same length, one per axis.
func CoordinatesIndex(coordinates ...*Node) IndexSpec {
	if len(coordinates) == 0 {
		exceptions.Panicf("CoordinatesIndex requires at least one coordinates vector")
	}
	n := -1
	for axis, coord := range coordinates {
		coord.AssertValid()
		if !coord.DType().IsInt() || coord.Rank() != 1 {
			exceptions.Panicf("CoordinatesIndex requires rank-1 integer nodes, got %s for axis %d",
				coord.Shape(), axis)
		}
		if n == -1 {
			n = coord.Shape().Dim(0)
		} else if coord.Shape().Dim(0) != n {
			exceptions.Panicf("CoordinatesIndex requires coordinate vectors of the same length, got %d and %d",
				n, coord.Shape().Dim(0))
		}
	}
	return IndexSpec{kind: IndexKindCoordinates, args: slices.Clone(coordinates)}
}

// Kind of the index selection.
func (spec IndexSpec) Kind() IndexKind { return spec.kind }

// SliceRange returns the [start, stop) range of an IndexKindSlice spec.
func (spec IndexSpec) SliceRange() (start, stop int) { return spec.start, spec.stop }

// IndexArgs returns the nodes holding the index data (mask, positions or coordinates) of
// the spec. It is empty for IndexKindSlice.
// The returned slice is owned by the IndexSpec and shouldn't be changed.
func (spec IndexSpec) IndexArgs() []*Node { return spec.args }

// String implements fmt.Stringer.
func (spec IndexSpec) String() string {
	if spec.kind == IndexKindSlice {
		return fmt.Sprintf("%s[%d:%d]", spec.kind, spec.start, spec.stop)
	}
	return spec.kind.String()
}

// withArgs returns a copy of the spec with the index argument nodes replaced. Used when
// rebuilding nodes during substitution (see ReplaceAll).
func (spec IndexSpec) withArgs(args []*Node) IndexSpec {
	if len(args) != len(spec.args) {
		exceptions.Panicf("IndexSpec %s takes %d index arguments, got %d", spec, len(spec.args), len(args))
	}
	newSpec := spec
	newSpec.args = slices.Clone(args)
	return newSpec
}

// selectionDims returns the expected dimensions of the data selected by spec from operand x.
// For a non-constant mask the selection size is data-dependent: it returns known=false, and
// the check is deferred to evaluation time.
func (spec IndexSpec) selectionDims(x *Node) (dims []int, known bool) {
	xShape := x.Shape()
	switch spec.kind {
	case IndexKindSlice:
		if xShape.Rank() < 1 {
			exceptions.Panicf("%s indexing requires an operand of rank >= 1, got %s", spec.kind, xShape)
		}
		if spec.stop > xShape.Dim(0) {
			exceptions.Panicf("%s out-of-bounds for operand shape %s", spec, xShape)
		}
		dims = append([]int{spec.stop - spec.start}, xShape.Dimensions[1:]...)
		return dims, true

	case IndexKindMask:
		mask := spec.args[0]
		if !slices.Equal(mask.Shape().Dimensions, xShape.Dimensions) {
			exceptions.Panicf("%s indexing requires a mask with the operand dimensions %v, got %s",
				spec.kind, xShape.Dimensions, mask.Shape())
		}
		if mask.Type() != NodeTypeConstant {
			return nil, false
		}
		numTrue := 0
		for _, set := range tensors.CopyFlatData[bool](mask.ConstantValue()) {
			if set {
				numTrue++
			}
		}
		return []int{numTrue}, true

	case IndexKindPositions:
		if xShape.Rank() < 1 {
			exceptions.Panicf("%s indexing requires an operand of rank >= 1, got %s", spec.kind, xShape)
		}
		dims = append([]int{spec.args[0].Shape().Dim(0)}, xShape.Dimensions[1:]...)
		return dims, true

	case IndexKindCoordinates:
		if len(spec.args) != xShape.Rank() {
			exceptions.Panicf("%s indexing requires one coordinate vector per axis of the operand "+
				"(rank %d), got %d", spec.kind, xShape.Rank(), len(spec.args))
		}
		return []int{spec.args[0].Shape().Dim(0)}, true
	}
	exceptions.Panicf("invalid IndexSpec %s", spec)
	return nil, false
}

// nodeInputsIndexSet holds the static inputs of an IndexSet node.
type nodeInputsIndexSet struct {
	spec IndexSpec
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsIndexSet) Type() NodeType { return NodeTypeIndexSet }

// String implements the interface NodeInputs.
func (ni *nodeInputsIndexSet) String() string {
	return fmt.Sprintf("%s(indices=%s)", ni.Type(), ni.spec)
}

// IndexSet returns x with the coordinates selected by spec overwritten with data
// ("set-subtensor"). x is not changed, a new node with the hybrid result is returned.
//
// The dtype of data must match x's, and its shape must match the selection: rows of x for
// Slice and Positions indexing, a rank-1 tensor of the selected size for Mask and
// Coordinates indexing.
func IndexSet(x, data *Node, spec IndexSpec) *Node {
	x.AssertValid()
	data.AssertValid()
	if x.DType() != data.DType() {
		exceptions.Panicf("IndexSet requires x and data with the same dtype, got %s and %s",
			x.DType(), data.DType())
	}
	selDims, known := spec.selectionDims(x)
	if known {
		data.AssertDims(selDims...)
	} else if data.Rank() != 1 {
		exceptions.Panicf("IndexSet with a non-constant mask requires rank-1 data, got %s", data.Shape())
	}
	inputNodes := append([]*Node{x, data}, spec.args...)
	return newNode(x.Graph(), &nodeInputsIndexSet{spec: spec}, inputNodes, x.Shape().Clone())
}

// IndexSetSpec returns the IndexSpec of an IndexSet node. It panics if n is not an IndexSet.
func IndexSetSpec(n *Node) IndexSpec {
	n.AssertValid()
	ni, ok := n.inputs.(*nodeInputsIndexSet)
	if !ok {
		exceptions.Panicf("IndexSetSpec: node is a %s, not an IndexSet", n.Type())
	}
	return ni.spec
}

// nodeInputsTake holds the static inputs of a Take node.
type nodeInputsTake struct {
	spec IndexSpec
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsTake) Type() NodeType { return NodeTypeTake }

// String implements the interface NodeInputs.
func (ni *nodeInputsTake) String() string {
	return fmt.Sprintf("%s(indices=%s)", ni.Type(), ni.spec)
}

// Take gathers the coordinates of x selected by spec, the dual of IndexSet: the result has
// the shape of the selection. For Mask indexing the mask must be a constant, so the result
// shape is known in graph building time.
func Take(x *Node, spec IndexSpec) *Node {
	x.AssertValid()
	selDims, known := spec.selectionDims(x)
	if !known {
		exceptions.Panicf("Take with a %s index requires a constant mask, so the output shape is known "+
			"in graph building time", spec.kind)
	}
	inputNodes := append([]*Node{x}, spec.args...)
	return newNode(x.Graph(), &nodeInputsTake{spec: spec}, inputNodes,
		shapes.Make(x.DType(), selDims...))
}

// TakeSpec returns the IndexSpec of a Take node. It panics if n is not a Take.
func TakeSpec(n *Node) IndexSpec {
	n.AssertValid()
	ni, ok := n.inputs.(*nodeInputsTake)
	if !ok {
		exceptions.Panicf("TakeSpec: node is a %s, not a Take", n.Type())
	}
	return ni.spec
}
