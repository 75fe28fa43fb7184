package vbuf

// Editor is a writable view of a VBuffer's storage sized for one fill.  The
// Values and Indices slices alias the destination's backing arrays whenever
// they are large enough, so filling a buffer row after row does not allocate
// once the buffer has grown to the largest row.
type Editor[T any] struct {
	Values  []T
	Indices []int
	dst     *VBuffer[T]
	length  int
}

// Edit prepares dst to receive count explicit values of a vector of the given
// length.  Indices has count elements when count < length and is empty
// otherwise.  The contents of both slices are unspecified and must be fully
// written before Commit.
func Edit[T any](dst *VBuffer[T], length, count int) Editor[T] {
	e := Editor[T]{
		Values: Grow(dst.Values, count),
		dst:    dst,
		length: length,
	}
	if count < length {
		e.Indices = Grow(dst.Indices, count)
	} else {
		e.Indices = dst.Indices[:0]
	}
	return e
}

// EditUpTo is like Edit for a fill whose count is only known to be at most
// maxCount.  Indices always has maxCount elements.  The caller finishes with
// CommitCount.
func EditUpTo[T any](dst *VBuffer[T], length, maxCount int) Editor[T] {
	return Editor[T]{
		Values:  Grow(dst.Values, maxCount),
		Indices: Grow(dst.Indices, maxCount),
		dst:     dst,
		length:  length,
	}
}

// Commit stores the edited arrays in the destination.
func (e Editor[T]) Commit() {
	e.dst.Length = e.length
	e.dst.Values = e.Values
	e.dst.Indices = e.Indices
}

// CommitCount stores only the first count values and indices, for editors
// created by EditUpTo.  If count equals the length, the indices are
// necessarily 0..length-1 and the result is stored as dense.
func (e Editor[T]) CommitCount(count int) {
	e.dst.Length = e.length
	e.dst.Values = e.Values[:count]
	if count == e.length {
		e.dst.Indices = e.Indices[:0]
	} else {
		e.dst.Indices = e.Indices[:count]
	}
}

// Scratch is a reusable work array.  A getter owns its Scratch and borrows
// the array for the duration of one call; the contents do not survive to the
// next call.
type Scratch[T any] struct {
	buf []T
}

// Ensure returns an array of n elements with unspecified contents.
func (s *Scratch[T]) Ensure(n int) []T {
	s.buf = Grow(s.buf, n)
	return s.buf
}

// Zeroed returns an array of n zero elements.
func (s *Scratch[T]) Zeroed(n int) []T {
	buf := s.Ensure(n)
	var zero T
	for k := range buf {
		buf[k] = zero
	}
	return buf
}
