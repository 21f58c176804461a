// Package tensor implements the dense value store backing each metric. A
// tensor is shaped by the metric's declared dimensions in order, with the
// shared time horizon as the final axis. Values are float64 and the backing
// array is row-major.
package tensor

import (
	"fmt"
)

// Tensor is the dense array owned by exactly one metric. It is never shared
// across metrics; dependency reads during evaluation go through Align, which
// either borrows the flat data (fast path) or produces a gathered copy.
type Tensor struct {
	dims    []string
	shape   []int
	strides []int
	data    []float64
}

// New allocates a zero-filled tensor. dims and sizes describe the metric's
// dimension axes in declared order; horizon is the time-axis length and
// becomes the final axis.
func New(dims []string, sizes []int, horizon int) (*Tensor, error) {
	if len(dims) != len(sizes) {
		return nil, fmt.Errorf("tensor: %d dims but %d sizes", len(dims), len(sizes))
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("tensor: horizon must be positive, got %d", horizon)
	}
	shape := make([]int, 0, len(sizes)+1)
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("tensor: axis %q has non-positive size %d", dims[i], s)
		}
		shape = append(shape, s)
	}
	shape = append(shape, horizon)

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return &Tensor{
		dims:    append([]string(nil), dims...),
		shape:   shape,
		strides: strides,
		data:    make([]float64, stride),
	}, nil
}

// Dims returns the dimension names of the tensor's axes, time axis excluded.
func (t *Tensor) Dims() []string { return t.dims }

// Shape returns the full axis sizes including the trailing time axis.
func (t *Tensor) Shape() []int { return t.shape }

// Horizon returns the length of the time axis.
func (t *Tensor) Horizon() int { return t.shape[len(t.shape)-1] }

// Len returns the total number of cells.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the backing array. Callers must treat it as read-only unless
// they own the tensor's metric.
func (t *Tensor) Data() []float64 { return t.data }

// Zero resets every cell to zero in place.
func (t *Tensor) Zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}

// Store copies a full-length result vector into the tensor.
func (t *Tensor) Store(values []float64) error {
	if len(values) != len(t.data) {
		return &ShapeError{Reason: fmt.Sprintf("result length %d does not match tensor length %d", len(values), len(t.data))}
	}
	copy(t.data, values)
	return nil
}

// Fill sets every cell to the same value.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// SetScoped writes a value at one time index. fixed maps a dimension-axis
// position to a member index; any axis absent from fixed broadcasts the write
// across that whole axis.
func (t *Tensor) SetScoped(fixed map[int]int, month int, value float64) error {
	if month < 0 || month >= t.Horizon() {
		return fmt.Errorf("tensor: month %d outside horizon %d", month, t.Horizon())
	}
	for axis, idx := range fixed {
		if axis < 0 || axis >= len(t.dims) {
			return fmt.Errorf("tensor: axis %d out of range", axis)
		}
		if idx < 0 || idx >= t.shape[axis] {
			return fmt.Errorf("tensor: index %d out of range on axis %q", idx, t.dims[axis])
		}
	}

	// Odometer walk over the free axes; fixed axes stay pinned.
	coords := make([]int, len(t.dims))
	for axis, idx := range fixed {
		coords[axis] = idx
	}
	for {
		flat := month * t.strides[len(t.strides)-1]
		for a, c := range coords {
			flat += c * t.strides[a]
		}
		t.data[flat] = value

		advanced := false
		for a := len(coords) - 1; a >= 0; a-- {
			if _, pinned := fixed[a]; pinned {
				continue
			}
			coords[a]++
			if coords[a] < t.shape[a] {
				advanced = true
				break
			}
			coords[a] = 0
		}
		if !advanced {
			return nil
		}
	}
}

// NonZero invokes fn for every non-zero cell with its dimension coordinates
// and time index. Coordinates are reused across calls; fn must not retain the
// slice.
func (t *Tensor) NonZero(fn func(coords []int, month int, value float64)) {
	coords := make([]int, len(t.dims))
	horizon := t.Horizon()
	for flat, v := range t.data {
		if v == 0 {
			continue
		}
		rem := flat
		for a := range coords {
			coords[a] = rem / t.strides[a]
			rem %= t.strides[a]
		}
		fn(coords, rem%horizon, v)
	}
}
