// Package zcode implements the tagged binary encoding used for the bodies of
// saved models.
//
// Values of primitive type are represented by an unsigned integer tag and an
// optional byte-sequence body.  A tag whose length part is zero indicates that
// the value is unset, and no body follows.  Otherwise the value itself follows
// as a body of length tag>>1 - 1.  The low bit of the tag marks a container,
// whose body is itself a sequence of zero or more encoded values.
package zcode

import (
	"encoding/binary"
	"errors"
)

var (
	ErrNotContainer = errors.New("not a container")
	ErrNotSingleton = errors.New("not a single container")
)

// Bytes is the serialized representation of a sequence of values.
type Bytes []byte

// Iter returns an Iter for the receiver.
func (e Bytes) Iter() Iter {
	return Iter(e)
}

// String returns a string representation of the receiver.
func (e Bytes) String() string {
	b, err := e.build(nil)
	if err != nil {
		return "(bad zcode: " + err.Error() + ")"
	}
	return string(b)
}

const hex = "0123456789abcdef"

func appendBytes(b, v []byte) []byte {
	for k, c := range v {
		if k > 0 {
			b = append(b, ' ')
		}
		b = append(b, hex[c>>4], hex[c&0xf])
	}
	return b
}

func (e Bytes) build(b []byte) ([]byte, error) {
	for it := Iter(e); !it.Done(); {
		v, container, err := it.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case container && v == nil:
			b = append(b, "(*)"...)
		case container:
			b = append(b, '[')
			b, err = v.build(b)
			if err != nil {
				return nil, err
			}
			b = append(b, ']')
		default:
			b = append(b, '(')
			b = appendBytes(b, v)
			b = append(b, ')')
		}
	}
	return b, nil
}

// ContainerBody returns the body of the receiver, which must hold a single
// container.  If the receiver is not a container, ErrNotContainer is returned.
// If the receiver is not a single container, ErrNotSingleton is returned.
func (e Bytes) ContainerBody() (Bytes, error) {
	it := Iter(e)
	body, container, err := it.Next()
	if err != nil {
		return nil, err
	}
	if !container {
		return nil, ErrNotContainer
	}
	if !it.Done() {
		return nil, ErrNotSingleton
	}
	return body, nil
}

// AppendContainer appends val to dst as a container value and returns the
// extended buffer.
func AppendContainer(dst Bytes, val Bytes) Bytes {
	if val == nil {
		return AppendUvarint(dst, containerTagUnset)
	}
	dst = AppendUvarint(dst, containerTag(len(val)))
	return append(dst, val...)
}

// AppendPrimitive appends val to dst as a primitive value and returns the
// extended buffer.
func AppendPrimitive(dst Bytes, val []byte) Bytes {
	if val == nil {
		return AppendUvarint(dst, primitiveTagUnset)
	}
	dst = AppendUvarint(dst, primitiveTag(len(val)))
	return append(dst, val...)
}

// AppendUvarint is like encoding/binary.PutUvarint but appends to dst instead
// of writing into it.
func AppendUvarint(dst []byte, u64 uint64) []byte {
	for u64 >= 0x80 {
		dst = append(dst, byte(u64)|0x80)
		u64 >>= 7
	}
	return append(dst, byte(u64))
}

// Uvarint just calls binary.Uvarint.  It's here for symmetry with
// AppendUvarint.
func Uvarint(buf []byte) (uint64, int) {
	return binary.Uvarint(buf)
}

// AppendVarint appends i64 in zig-zag form as encoding/binary.PutVarint
// would write it.
func AppendVarint(dst []byte, i64 int64) []byte {
	u64 := uint64(i64) << 1
	if i64 < 0 {
		u64 = ^u64
	}
	return AppendUvarint(dst, u64)
}

// Varint decodes a zig-zag encoded value written by AppendVarint.
func Varint(buf []byte) (int64, int) {
	return binary.Varint(buf)
}

// sizeOfUvarint returns the number of bytes required by AppendUvarint to
// represent u64.
func sizeOfUvarint(u64 uint64) int {
	n := 1
	for u64 >= 0x80 {
		n++
		u64 >>= 7
	}
	return n
}

func containerTag(length int) uint64 {
	return (uint64(length)+1)<<1 | 1
}

func primitiveTag(length int) uint64 {
	return (uint64(length) + 1) << 1
}

const (
	primitiveTagUnset = 0
	containerTagUnset = 1
)

func tagIsContainer(t uint64) bool {
	return t&1 == 1
}

func tagIsUnset(t uint64) bool {
	return t>>1 == 0
}

func tagLength(t uint64) int {
	return int(t>>1 - 1)
}
