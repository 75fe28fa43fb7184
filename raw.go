package zml

import (
	"image"
	"time"

	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

// rawKind returns the primitive ID stored by Go type T, whether T is a
// vector buffer, and false if T stores no column type.  Images return
// IDImage.
func rawKind[T any]() (int, bool, bool) {
	switch any((*T)(nil)).(type) {
	case *uint8:
		return IDUint8, false, true
	case *uint16:
		return IDUint16, false, true
	case *uint32:
		return IDUint32, false, true
	case *uint64:
		return IDUint64, false, true
	case *int8:
		return IDInt8, false, true
	case *int16:
		return IDInt16, false, true
	case *int32:
		return IDInt32, false, true
	case *int64:
		return IDInt64, false, true
	case *float32:
		return IDFloat32, false, true
	case *float64:
		return IDFloat64, false, true
	case *bool:
		return IDBool, false, true
	case *string:
		return IDText, false, true
	case *time.Duration:
		return IDTimeSpan, false, true
	case *time.Time:
		return IDDateTime, false, true
	case *image.Image:
		return IDImage, false, true
	case *vbuf.VBuffer[uint8]:
		return IDUint8, true, true
	case *vbuf.VBuffer[uint16]:
		return IDUint16, true, true
	case *vbuf.VBuffer[uint32]:
		return IDUint32, true, true
	case *vbuf.VBuffer[uint64]:
		return IDUint64, true, true
	case *vbuf.VBuffer[int8]:
		return IDInt8, true, true
	case *vbuf.VBuffer[int16]:
		return IDInt16, true, true
	case *vbuf.VBuffer[int32]:
		return IDInt32, true, true
	case *vbuf.VBuffer[int64]:
		return IDInt64, true, true
	case *vbuf.VBuffer[float32]:
		return IDFloat32, true, true
	case *vbuf.VBuffer[float64]:
		return IDFloat64, true, true
	case *vbuf.VBuffer[bool]:
		return IDBool, true, true
	case *vbuf.VBuffer[string]:
		return IDText, true, true
	case *vbuf.VBuffer[time.Duration]:
		return IDTimeSpan, true, true
	case *vbuf.VBuffer[time.Time]:
		return IDDateTime, true, true
	}
	return 0, false, false
}

// IsRaw returns true if T is the Go type that stores values of typ.
func IsRaw[T any](typ Type) bool {
	id, vec, ok := rawKind[T]()
	if !ok || vec != IsVector(typ) {
		return false
	}
	if id == IDImage {
		_, ok := typ.(*TypeImage)
		return ok
	}
	return RawID(typ) == id
}

// CheckRaw returns an UnsupportedType error if T is not the Go type that
// stores values of typ.
func CheckRaw[T any](typ Type) error {
	if !IsRaw[T](typ) {
		var v T
		return zqe.E(zqe.UnsupportedType, "values of type %s cannot be stored as %T", typ, v)
	}
	return nil
}
