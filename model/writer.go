package model

import (
	"encoding/binary"
	"math"

	"github.com/brimdata/zml/zcode"
)

// Writer builds the zcode body of an entry.  Integers are written in
// zig-zag or plain varint form, floats as little-endian IEEE 754 and strings
// as their bytes.  Begin and End bracket a container.
type Writer struct {
	b       *zcode.Builder
	scratch []byte
}

func NewWriter() *Writer {
	return &Writer{
		b:       zcode.NewBuilder(),
		scratch: make([]byte, 0, 16),
	}
}

// Bytes returns the body written so far.  It panics if a container is open.
func (w *Writer) Bytes() zcode.Bytes {
	return w.b.Bytes()
}

func (w *Writer) Begin() {
	w.b.BeginContainer()
}

func (w *Writer) End() {
	w.b.EndContainer()
}

func (w *Writer) append(b []byte) {
	w.b.Append(b)
	w.scratch = b[:0]
}

func (w *Writer) Int(i int64) {
	w.append(zcode.AppendVarint(w.scratch[:0], i))
}

func (w *Writer) Uint(u uint64) {
	w.append(zcode.AppendUvarint(w.scratch[:0], u))
}

func (w *Writer) Float32(f float32) {
	w.append(binary.LittleEndian.AppendUint32(w.scratch[:0], math.Float32bits(f)))
}

func (w *Writer) Float64(f float64) {
	w.append(binary.LittleEndian.AppendUint64(w.scratch[:0], math.Float64bits(f)))
}

func (w *Writer) Bool(b bool) {
	if b {
		w.append(append(w.scratch[:0], 1))
	} else {
		w.append(append(w.scratch[:0], 0))
	}
}

func (w *Writer) String(s string) {
	w.append(append(w.scratch[:0], s...))
}

func (w *Writer) Strings(ss []string) {
	w.Begin()
	w.Uint(uint64(len(ss)))
	for _, s := range ss {
		w.String(s)
	}
	w.End()
}

func (w *Writer) Ints(vals []int) {
	w.Begin()
	w.Uint(uint64(len(vals)))
	for _, v := range vals {
		w.Int(int64(v))
	}
	w.End()
}
