package dataview

import (
	"go.uber.org/multierr"
)

// ReadColumn returns every value of the named column.  Vector values are
// returned with storage of their own.
func ReadColumn[T any](dv DataView, name string) (values []T, err error) {
	col, err := dv.Schema().Find("input", name)
	if err != nil {
		return nil, err
	}
	cursor, err := dv.Cursor(Only(col))
	if err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(cursor))
	get, err := GetGetter[T](cursor, col)
	if err != nil {
		return nil, err
	}
	for {
		ok, err := cursor.MoveNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			return values, nil
		}
		var v T
		if err := get(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
}

// RowCount returns the number of rows of dv, counting them with a cursor
// that binds no columns if dv does not know its count.
func RowCount(dv DataView) (n int64, err error) {
	if n := dv.RowCount(); n >= 0 {
		return n, nil
	}
	cursor, err := dv.Cursor(None)
	if err != nil {
		return 0, err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(cursor))
	for {
		ok, err := cursor.MoveNext()
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}

// Drain reads every row of cursor and closes it.  Each row, fn is called.
func Drain(cursor Cursor, fn func() error) (err error) {
	defer multierr.AppendInvoke(&err, multierr.Close(cursor))
	for {
		ok, err := cursor.MoveNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(); err != nil {
			return err
		}
	}
}
