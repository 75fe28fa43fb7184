// Package zml implements the column type system, schemas and schema shapes
// shared by data views, transformers and estimators.
//
// Every column has exactly one Type.  Types form a closed set: the primitive
// types (numbers, bool, text, time spans and date-times), keys (categorical
// indices over an unsigned base type), vectors of primitives or keys, and the
// opaque image type.  Types are compared structurally with Equal; two
// separately constructed vector types with the same item type and dimensions
// are the same type.
package zml

import (
	"strconv"
	"strings"
)

// A Type describes the values of a column.
type Type interface {
	// ID returns the identifier of the type class.  For primitive types
	// this is the primitive ID.  Keys, vectors and images return IDKey,
	// IDVector and IDImage.  Callers that need the storage type of a
	// column should use RawID.
	ID() int
	String() string
}

const (
	IDUint8    = 0
	IDUint16   = 1
	IDUint32   = 2
	IDUint64   = 3
	IDInt8     = 4
	IDInt16    = 5
	IDInt32    = 6
	IDInt64    = 7
	IDTimeSpan = 8
	IDDateTime = 9
	IDFloat32  = 10
	IDFloat64  = 11
	IDBool     = 12
	IDText     = 13

	NumPrimitives = 14

	IDKey    = 16
	IDVector = 17
	IDImage  = 18
)

var (
	TypeUint8    = &TypePrimitive{IDUint8}
	TypeUint16   = &TypePrimitive{IDUint16}
	TypeUint32   = &TypePrimitive{IDUint32}
	TypeUint64   = &TypePrimitive{IDUint64}
	TypeInt8     = &TypePrimitive{IDInt8}
	TypeInt16    = &TypePrimitive{IDInt16}
	TypeInt32    = &TypePrimitive{IDInt32}
	TypeInt64    = &TypePrimitive{IDInt64}
	TypeTimeSpan = &TypePrimitive{IDTimeSpan}
	TypeDateTime = &TypePrimitive{IDDateTime}
	TypeFloat32  = &TypePrimitive{IDFloat32}
	TypeFloat64  = &TypePrimitive{IDFloat64}
	TypeBool     = &TypePrimitive{IDBool}
	TypeText     = &TypePrimitive{IDText}
)

var primitives = [NumPrimitives]struct {
	typ  *TypePrimitive
	name string
	code string
}{
	IDUint8:    {TypeUint8, "uint8", "U1"},
	IDUint16:   {TypeUint16, "uint16", "U2"},
	IDUint32:   {TypeUint32, "uint32", "U4"},
	IDUint64:   {TypeUint64, "uint64", "U8"},
	IDInt8:     {TypeInt8, "int8", "I1"},
	IDInt16:    {TypeInt16, "int16", "I2"},
	IDInt32:    {TypeInt32, "int32", "I4"},
	IDInt64:    {TypeInt64, "int64", "I8"},
	IDTimeSpan: {TypeTimeSpan, "timespan", "TS"},
	IDDateTime: {TypeDateTime, "datetime", "DT"},
	IDFloat32:  {TypeFloat32, "float32", "R4"},
	IDFloat64:  {TypeFloat64, "float64", "R8"},
	IDBool:     {TypeBool, "bool", "BL"},
	IDText:     {TypeText, "text", "TX"},
}

// TypePrimitive is the type of a scalar column holding one of the primitive
// kinds.  The package-level Type* variables are the only instances.
type TypePrimitive struct {
	id int
}

func (t *TypePrimitive) ID() int {
	return t.id
}

func (t *TypePrimitive) String() string {
	return primitives[t.id].name
}

// Code returns the short type code, e.g., "R4" for float32.
func (t *TypePrimitive) Code() string {
	return primitives[t.id].code
}

// LookupPrimitive returns the primitive type with the given name or short
// code or nil if there is no such type.
func LookupPrimitive(name string) *TypePrimitive {
	for _, p := range primitives {
		if name == p.name || strings.EqualFold(name, p.code) {
			return p.typ
		}
	}
	return nil
}

// LookupPrimitiveByID returns the primitive type for id or nil.
func LookupPrimitiveByID(id int) *TypePrimitive {
	if id < 0 || id >= NumPrimitives {
		return nil
	}
	return primitives[id].typ
}

// True iff the type id is an unsigned or signed integer.
func IsInteger(id int) bool {
	return id >= IDUint8 && id <= IDInt64
}

// True iff the type id is a signed integer.
func IsSigned(id int) bool {
	return id >= IDInt8 && id <= IDInt64
}

// True iff the type id is a float32 or float64.
func IsFloat(id int) bool {
	return id == IDFloat32 || id == IDFloat64
}

// True iff the type id is an integer or float.
func IsNumber(id int) bool {
	return IsInteger(id) || IsFloat(id)
}

// RawID returns the primitive ID of the values stored for typ.  Keys are
// stored as their unsigned base type and vectors as their item type.  Images
// return IDImage.
func RawID(typ Type) int {
	switch typ := typ.(type) {
	case *TypeKey:
		return typ.Base
	case *TypeVector:
		return RawID(typ.Item)
	}
	return typ.ID()
}

// ItemType returns the item type of a vector type or typ itself otherwise.
func ItemType(typ Type) Type {
	if v, ok := typ.(*TypeVector); ok {
		return v.Item
	}
	return typ
}

// IsVector returns true if typ is a vector type.
func IsVector(typ Type) bool {
	_, ok := typ.(*TypeVector)
	return ok
}

// IsKey returns true if typ is a key type.
func IsKey(typ Type) bool {
	_, ok := typ.(*TypeKey)
	return ok
}

// TypeKeyOf returns the key type of typ or of typ's items or nil.
func TypeKeyOf(typ Type) *TypeKey {
	k, _ := ItemType(typ).(*TypeKey)
	return k
}

// VectorSize returns the total number of slots of a known-size vector type
// and 0 for any other type.
func VectorSize(typ Type) int {
	if v, ok := typ.(*TypeVector); ok {
		return v.Size()
	}
	return 0
}

// Equal compares types by structure.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch a := a.(type) {
	case *TypePrimitive:
		b, ok := b.(*TypePrimitive)
		return ok && a.id == b.id
	case *TypeKey:
		b, ok := b.(*TypeKey)
		return ok && *a == *b
	case *TypeVector:
		b, ok := b.(*TypeVector)
		if !ok || !Equal(a.Item, b.Item) || len(a.Dims) != len(b.Dims) {
			return false
		}
		for k := range a.Dims {
			if a.Dims[k] != b.Dims[k] {
				return false
			}
		}
		return true
	case *TypeImage:
		b, ok := b.(*TypeImage)
		return ok && *a == *b
	}
	return false
}

func itoaOrStar(n int) string {
	if n == 0 {
		return "*"
	}
	return strconv.Itoa(n)
}
