// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"github.com/pkg/errors"
)

// UncheckedAxis can be used in CheckDims or AssertDims functions for an axis
// whose dimension doesn't matter.
const UncheckedAxis = int(-1)

// CheckDims checks that the shape has the given dimensions and rank. A value of -1 in
// dimensions means it can take any value and is not checked.
//
// It returns an error if the rank is different or if any of the dimensions don't match.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape (%s) has incompatible rank %d, wanted %d", s, s.Rank(), len(dimensions))
	}
	for axis, wantDim := range dimensions {
		if wantDim != -1 && s.Dimensions[axis] != wantDim {
			return errors.Errorf("shape (%s) has incompatible dimension %d for axis %d, wanted %d",
				s, s.Dimensions[axis], axis, wantDim)
		}
	}
	return nil
}

// AssertDims panics if the shape doesn't have the given dimensions and rank. A value of -1 in
// dimensions means it can take any value and is not checked.
//
// It is a convenient method to check that a shape is what was expected, and it serves as
// code documentation.
func (s Shape) AssertDims(dimensions ...int) {
	if err := s.CheckDims(dimensions...); err != nil {
		panic(err)
	}
}

// CheckRank checks that the shape has the given rank, returning an error otherwise.
func (s Shape) CheckRank(rank int) error {
	if s.Rank() != rank {
		return errors.Errorf("shape (%s) has incompatible rank %d, wanted %d", s, s.Rank(), rank)
	}
	return nil
}

// AssertRank panics if the shape doesn't have the given rank.
func (s Shape) AssertRank(rank int) {
	if err := s.CheckRank(rank); err != nil {
		panic(err)
	}
}

// AssertScalar panics if the shape is not a scalar.
func (s Shape) AssertScalar() {
	s.AssertRank(0)
}

// AssertDims panics if the shape of the given object doesn't match the given dimensions and rank.
// A value of -1 in dimensions means it can take any value and is not checked.
func AssertDims(shaped HasShape, dimensions ...int) {
	shaped.Shape().AssertDims(dimensions...)
}

// AssertRank panics if the shape of the given object doesn't have the given rank.
func AssertRank(shaped HasShape, rank int) {
	shaped.Shape().AssertRank(rank)
}

// AssertScalar panics if the shape of the given object is not a scalar.
func AssertScalar(shaped HasShape) {
	shaped.Shape().AssertScalar()
}
