// Package vbuf implements VBuffer, the sparse-or-dense fixed-length container
// used as the cell value of vector columns.
//
// A VBuffer of Length n holds Count() explicit values.  When Count() == n the
// buffer is dense and Values[i] is slot i.  Otherwise the buffer is sparse,
// Indices holds the strictly increasing slot of each explicit value, and every
// other slot holds the zero value of T.  There is no sentinel for omitted
// slots.
//
// Getters fill a caller-owned VBuffer and are free to reuse its storage, so a
// caller that wants to keep a value across rows must copy it with CopyTo.
package vbuf

import (
	"fmt"
)

type VBuffer[T any] struct {
	Length  int
	Values  []T
	Indices []int
}

// NewDense returns a dense buffer that takes ownership of values.
func NewDense[T any](values []T) VBuffer[T] {
	return VBuffer[T]{Length: len(values), Values: values}
}

// NewSparse returns a sparse buffer of the given length that takes ownership
// of values and indices.  It returns an error if the arrays differ in length
// or the indices are not strictly increasing and within range.
func NewSparse[T any](length int, values []T, indices []int) (VBuffer[T], error) {
	v := VBuffer[T]{Length: length, Values: values, Indices: indices}
	if len(values) == length {
		v.Indices = nil
	}
	return v, v.Validate()
}

// Count returns the number of explicit values.
func (v *VBuffer[T]) Count() int {
	return len(v.Values)
}

// IsDense returns true if every slot is explicit.
func (v *VBuffer[T]) IsDense() bool {
	return len(v.Values) == v.Length
}

// Validate checks the representation invariants.
func (v *VBuffer[T]) Validate() error {
	if v.Length < 0 {
		return fmt.Errorf("negative vector length %d", v.Length)
	}
	count := len(v.Values)
	if count > v.Length {
		return fmt.Errorf("vector has %d values but length %d", count, v.Length)
	}
	if count == v.Length {
		return nil
	}
	if len(v.Indices) != count {
		return fmt.Errorf("sparse vector has %d values but %d indices", count, len(v.Indices))
	}
	prev := -1
	for _, index := range v.Indices {
		if index <= prev || index >= v.Length {
			return fmt.Errorf("sparse vector index %d out of order or range", index)
		}
		prev = index
	}
	return nil
}

// Get returns the value of slot i.
func (v *VBuffer[T]) Get(i int) T {
	if v.IsDense() {
		return v.Values[i]
	}
	if k, ok := v.find(i); ok {
		return v.Values[k]
	}
	var zero T
	return zero
}

// find returns the position of slot i in Indices using binary search.
func (v *VBuffer[T]) find(i int) (int, bool) {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if v.Indices[mid] < i {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(v.Indices) && v.Indices[lo] == i
}

// ForEachDefined calls fn for each explicit value in slot order.
func (v *VBuffer[T]) ForEachDefined(fn func(slot int, val T)) {
	if v.IsDense() {
		for k, val := range v.Values {
			fn(k, val)
		}
		return
	}
	for k, val := range v.Values {
		fn(v.Indices[k], val)
	}
}

// ForEachDense calls fn for every slot, supplying the zero value for slots
// that are not explicit.
func (v *VBuffer[T]) ForEachDense(fn func(slot int, val T)) {
	if v.IsDense() {
		v.ForEachDefined(fn)
		return
	}
	var zero T
	k := 0
	for slot := 0; slot < v.Length; slot++ {
		if k < len(v.Indices) && v.Indices[k] == slot {
			fn(slot, v.Values[k])
			k++
		} else {
			fn(slot, zero)
		}
	}
}

// DenseValues writes all Length slots into dst, reusing its storage, and
// returns it.
func (v *VBuffer[T]) DenseValues(dst []T) []T {
	dst = Grow(dst, v.Length)
	if v.IsDense() {
		copy(dst, v.Values)
		return dst
	}
	var zero T
	for k := range dst {
		dst[k] = zero
	}
	for k, index := range v.Indices {
		dst[index] = v.Values[k]
	}
	return dst
}

// Densify converts v to the dense representation in place.  The storage of
// Values is reused when it has capacity for Length values.
func (v *VBuffer[T]) Densify() {
	if v.IsDense() {
		return
	}
	count := len(v.Values)
	values := Grow(v.Values, v.Length)
	var zero T
	// Walk backwards so that each explicit value moves to a slot at or
	// beyond its current position before that position is overwritten.
	k := count - 1
	for slot := v.Length - 1; slot >= 0; slot-- {
		if k >= 0 && v.Indices[k] == slot {
			values[slot] = values[k]
			k--
		} else {
			values[slot] = zero
		}
	}
	v.Values = values
	v.Indices = v.Indices[:0]
}

// CopyTo copies v into dst, reusing dst's storage where possible.  After the
// call dst shares no storage with v.
func (v *VBuffer[T]) CopyTo(dst *VBuffer[T]) {
	e := Edit(dst, v.Length, len(v.Values))
	copy(e.Values, v.Values)
	if !v.IsDense() {
		copy(e.Indices, v.Indices)
	}
	e.Commit()
}

// Clone returns a copy of v with fresh storage.
func (v *VBuffer[T]) Clone() VBuffer[T] {
	var out VBuffer[T]
	v.CopyTo(&out)
	return out
}

// Reset makes v an empty buffer of the given length, keeping its storage.
func (v *VBuffer[T]) Reset(length int) {
	v.Length = length
	v.Values = v.Values[:0]
	v.Indices = v.Indices[:0]
}

// Grow returns s resized to n elements, reallocating only when the capacity
// of s is insufficient.  The contents of the first min(len(s), n) elements
// are preserved.
func Grow[T any](s []T, n int) []T {
	if cap(s) >= n {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}
