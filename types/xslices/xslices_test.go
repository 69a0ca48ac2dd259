// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices_test

import (
	"testing"

	"github.com/gomlx/bayes/types/xslices"
	"github.com/stretchr/testify/assert"
)

func TestAt(t *testing.T) {
	s := []int{10, 20, 30}
	assert.Equal(t, 20, xslices.At(s, 1))
	assert.Equal(t, 30, xslices.At(s, -1)) // Negative indices count from the end.
	assert.Equal(t, 30, xslices.Last(s))
}

func TestIota(t *testing.T) {
	assert.Equal(t, []float64{2, 3, 4, 5}, xslices.Iota(2.0, 4))
	assert.Equal(t, []int{0, 1, 2}, xslices.Iota(0, 3))
}

func TestMap(t *testing.T) {
	got := xslices.Map([]int{1, 2, 3}, func(v int) float64 { return float64(v) * 2 })
	assert.Equal(t, []float64{2, 4, 6}, got)
}

func TestSliceWithValue(t *testing.T) {
	assert.Equal(t, []float32{7, 7, 7}, xslices.SliceWithValue(3, float32(7)))
}

func TestMaxMin(t *testing.T) {
	assert.Equal(t, 5, xslices.Max([]int{3, 5, 1}))
	assert.Equal(t, 1, xslices.Min([]int{3, 5, 1}))
}
