// Package zqe provides a mechanism to create or wrap errors with a Kind that
// lets pipeline callers tell static schema problems apart from corrupt models
// and protocol misuse without matching on message text.
package zqe

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"

	"github.com/agnivade/levenshtein"
)

// A Kind represents a class of error.
type Kind int

const (
	Other Kind = iota
	Invalid
	NotFound
	Duplicate
	SchemaMismatch
	Decode
	UnsupportedType
	State
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Invalid:
		return "invalid operation"
	case NotFound:
		return "item does not exist"
	case Duplicate:
		return "duplicate item"
	case SchemaMismatch:
		return "schema mismatch"
	case Decode:
		return "model decode error"
	case UnsupportedType:
		return "unsupported type for this operation"
	case State:
		return "cursor state error"
	}
	return "unknown error kind"
}

type Error struct {
	Kind Kind
	Err  error
}

func pad(b *bytes.Buffer, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}

func (e *Error) Error() string {
	b := &bytes.Buffer{}
	if e.Kind != Other {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		pad(b, ": ")
		b.WriteString(e.Err.Error())
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns just the Err.Error() string, if present, or the Kind
// string description.
func (e *Error) Message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != Other {
		return e.Kind.String()
	}
	return "no error"
}

// E generates an error from any mix of:
// - a Kind
// - an existing error
// - a string and optional formatting verbs, like fmt.Errorf (including support
//   for the `%w` verb).
//
// The string & format verbs must be last in the arguments, if present.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("no args to zqe.E")
	}
	e := &Error{}
	for i, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case error:
			e.Err = arg
		case string:
			e.Err = fmt.Errorf(arg, args[i+1:]...)
			return e
		default:
			_, file, line, _ := runtime.Caller(1)
			return fmt.Errorf("unknown type %T value %v in zqe.E call at %v:%v", arg, arg, file, line)
		}
	}
	return e
}

// KindOf returns the Kind of the first *Error in err's chain or Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

func IsSchemaMismatch(err error) bool  { return KindOf(err) == SchemaMismatch }
func IsDecode(err error) bool          { return KindOf(err) == Decode }
func IsUnsupportedType(err error) bool { return KindOf(err) == UnsupportedType }
func IsState(err error) bool           { return KindOf(err) == State }
func IsDuplicate(err error) bool       { return KindOf(err) == Duplicate }
func IsNotFound(err error) bool        { return KindOf(err) == NotFound }

// ErrSchemaMismatch reports a column whose type does not satisfy a transform.
// Role is the schema role of the column, typically "input".
func ErrSchemaMismatch(role, column, expected, actual string) error {
	return E(SchemaMismatch, "%s column '%s': expected %s, got %s", role, column, expected, actual)
}

// ErrMissingColumn reports a column that is absent from a schema.  If one of
// candidates is a plausible misspelling of column, it is suggested.
func ErrMissingColumn(role, column string, candidates []string) error {
	if s := closest(column, candidates); s != "" {
		return E(SchemaMismatch, "could not find %s column '%s' (did you mean '%s'?)", role, column, s)
	}
	return E(SchemaMismatch, "could not find %s column '%s'", role, column)
}

func closest(name string, candidates []string) string {
	best, bestDist := "", len(name)/2+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
