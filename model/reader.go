package model

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/brimdata/zml/zcode"
	"github.com/brimdata/zml/zqe"
)

// Reader decodes an entry body written by a Writer.  The first error is
// recorded and returned by Err; after an error, every method returns a zero
// value.  Loaders read all of their fields and then check Err once.
type Reader struct {
	it    zcode.Iter
	stack []zcode.Iter
	err   error
}

func NewReader(body zcode.Bytes) *Reader {
	return &Reader{it: body.Iter()}
}

// Err returns the first error encountered by the receiver.
func (r *Reader) Err() error {
	return r.err
}

// Done returns true when every value of the current container has been read.
func (r *Reader) Done() bool {
	return r.err != nil || r.it.Done()
}

func (r *Reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = zqe.E(zqe.Decode, fmt.Errorf(format, args...))
	}
}

func (r *Reader) next() zcode.Bytes {
	if r.err != nil {
		return nil
	}
	if r.it.Done() {
		r.fail("model body truncated")
		return nil
	}
	b, container, err := r.it.Next()
	if err != nil {
		r.fail("bad model body: %s", err)
		return nil
	}
	if container {
		r.fail("expected a value, found a container")
		return nil
	}
	if b == nil {
		r.fail("unexpected unset value")
	}
	return b
}

// Begin enters the next value, which must be a container.
func (r *Reader) Begin() {
	if r.err != nil {
		return
	}
	if r.it.Done() {
		r.fail("model body truncated")
		return
	}
	b, container, err := r.it.Next()
	if err != nil {
		r.fail("bad model body: %s", err)
		return
	}
	if !container || b == nil {
		r.fail("expected a container")
		return
	}
	r.stack = append(r.stack, r.it)
	r.it = b.Iter()
}

// End leaves the current container, which must have been read entirely.
func (r *Reader) End() {
	if r.err != nil {
		return
	}
	if len(r.stack) == 0 {
		r.fail("End without Begin")
		return
	}
	if !r.it.Done() {
		r.fail("unread values at end of container")
		return
	}
	r.it = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *Reader) Int() int64 {
	b := r.next()
	if b == nil {
		return 0
	}
	i, n := zcode.Varint(b)
	if n != len(b) {
		r.fail("bad varint")
		return 0
	}
	return i
}

func (r *Reader) Uint() uint64 {
	b := r.next()
	if b == nil {
		return 0
	}
	u, n := zcode.Uvarint(b)
	if n != len(b) {
		r.fail("bad uvarint")
		return 0
	}
	return u
}

// Len reads a count of values that are about to follow and checks it
// against the bytes remaining in the current container.
func (r *Reader) Len() int {
	u := r.Uint()
	if u > uint64(len(r.it)) {
		r.fail("declared length %d exceeds the %d bytes remaining", u, len(r.it))
		return 0
	}
	return int(u)
}

// Count is like Len but for a value that is not followed by as many
// encoded values, such as a cardinality or a vector length.  It fails on
// values that do not fit in an int32.
func (r *Reader) Count() int {
	i := r.Int()
	if i < 0 || i > math.MaxInt32 {
		r.fail("bad count %d", i)
		return 0
	}
	return int(i)
}

func (r *Reader) Float32() float32 {
	b := r.next()
	if b == nil {
		return 0
	}
	if len(b) != 4 {
		r.fail("float32 encoding is %d bytes", len(b))
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *Reader) Float64() float64 {
	b := r.next()
	if b == nil {
		return 0
	}
	if len(b) != 8 {
		r.fail("float64 encoding is %d bytes", len(b))
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (r *Reader) Bool() bool {
	b := r.next()
	if b == nil {
		return false
	}
	if len(b) != 1 {
		r.fail("bool encoding is %d bytes", len(b))
		return false
	}
	return b[0] != 0
}

func (r *Reader) String() string {
	return string(r.next())
}

func (r *Reader) Strings() []string {
	r.Begin()
	n := r.Len()
	ss := make([]string, 0, n)
	for k := 0; k < n; k++ {
		ss = append(ss, r.String())
	}
	r.End()
	if r.err != nil {
		return nil
	}
	return ss
}

func (r *Reader) Ints() []int {
	r.Begin()
	n := r.Len()
	vals := make([]int, 0, n)
	for k := 0; k < n; k++ {
		vals = append(vals, int(r.Int()))
	}
	r.End()
	if r.err != nil {
		return nil
	}
	return vals
}
