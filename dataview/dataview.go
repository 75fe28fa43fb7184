//go:generate mockgen -destination=./mock/mock_dataview.go -package=mock github.com/brimdata/zml/dataview DataView

// Package dataview implements the pull-based, columnar row cursor protocol.
//
// A DataView is an immutable table with a fixed Schema.  Rows are read by
// creating a Cursor that binds the columns selected by an activity predicate;
// getters for those columns are obtained once from the cursor and then read
// the value at the cursor's current row each time they are called.  Every
// call to Cursor returns an independent cursor, so a DataView may be read any
// number of times and by several goroutines at once.
package dataview

import (
	"github.com/brimdata/zml"
	"github.com/brimdata/zml/zqe"
)

type DataView interface {
	Schema() *zml.Schema
	// Cursor returns a new cursor positioned before the first row.  Only
	// the columns for which active returns true may be read from it.
	Cursor(active func(col int) bool) (Cursor, error)
	// RowCount returns the number of rows or -1 if the count is not known
	// without a pass over the data.
	RowCount() int64
}

// Row is the read side of a cursor.
type Row interface {
	Schema() *zml.Schema
	// Position returns the zero-based index of the current row or -1
	// before the first call to MoveNext.
	Position() int64
	IsColumnActive(col int) bool
	// Getter returns the zml.Getter of column col boxed in an interface.
	// Use GetGetter for a typed getter.
	Getter(col int) (any, error)
}

// Cursor iterates over the rows of a DataView.  A cursor is not safe for
// concurrent use but distinct cursors are independent.
type Cursor interface {
	Row
	// MoveNext advances to the next row and returns false when the rows
	// are exhausted.  Once MoveNext returns false the cursor is Done.
	MoveNext() (bool, error)
	State() State
	Close() error
}

// State is the position of a cursor in its lifecycle.
type State int

const (
	NotStarted State = iota
	Active
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Active:
		return "active"
	case Done:
		return "done"
	}
	return "unknown"
}

// All is an activity predicate selecting every column.
func All(int) bool { return true }

// None is an activity predicate selecting no column.
func None(int) bool { return false }

// Only returns an activity predicate selecting the given columns.
func Only(cols ...int) func(int) bool {
	set := make(map[int]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return func(col int) bool {
		_, ok := set[col]
		return ok
	}
}

// Or returns a predicate selecting the columns selected by any of preds.
func Or(preds ...func(int) bool) func(int) bool {
	return func(col int) bool {
		for _, p := range preds {
			if p(col) {
				return true
			}
		}
		return false
	}
}

// GetGetter returns the typed getter of column col of row.  It fails with a
// State error if the column is not active and an UnsupportedType error if T
// is not the Go type of the column's values.
func GetGetter[T any](row Row, col int) (zml.Getter[T], error) {
	g, err := row.Getter(col)
	if err != nil {
		return nil, err
	}
	get, ok := g.(zml.Getter[T])
	if !ok {
		c := row.Schema().Column(col)
		var v T
		return nil, zqe.E(zqe.UnsupportedType, "column '%s' of type %s cannot be read as %T", c.Name, c.Type, v)
	}
	return get, nil
}

// GetNamedGetter is like GetGetter but looks the column up by name.
func GetNamedGetter[T any](row Row, name string) (zml.Getter[T], error) {
	col, err := row.Schema().Find("input", name)
	if err != nil {
		return nil, err
	}
	return GetGetter[T](row, col)
}

func checkColumn(s *zml.Schema, col int, active bool) error {
	if col < 0 || col >= s.Len() {
		return zqe.E(zqe.Invalid, "column index %d out of range", col)
	}
	if !active {
		return zqe.E(zqe.State, "column '%s' is not active", s.Column(col).Name)
	}
	return nil
}

// position tracks a cursor's row and state for the cursors of this package.
type position struct {
	row   int64
	state State
}

func newPosition() position {
	return position{row: -1}
}

func (p *position) Position() int64 {
	return p.row
}

func (p *position) State() State {
	return p.state
}

func (p *position) advance(ok bool) bool {
	if !ok {
		p.state = Done
		return false
	}
	p.row++
	p.state = Active
	return true
}

func (p *position) check() error {
	if p.state != Active {
		return zqe.E(zqe.State, "getter called on a cursor that is %s", p.state)
	}
	return nil
}
