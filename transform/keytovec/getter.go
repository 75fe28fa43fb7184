package keytovec

import (
	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/vbuf"
)

type binder func(col int, bag bool) func(dataview.Row) (any, error)

var binders = zml.NewKindTable[binder]("key to vector").
	Add(zml.IDUint8, bind[uint8]).
	Add(zml.IDUint16, bind[uint16]).
	Add(zml.IDUint32, bind[uint32]).
	Add(zml.IDUint64, bind[uint64])

func bind[T zml.Unsigned](col int, bag bool) func(dataview.Row) (any, error) {
	return func(row dataview.Row) (any, error) {
		typ := row.Schema().ColumnType(col)
		n := zml.TypeKeyOf(typ).Count
		if !zml.IsVector(typ) {
			return scalar[T](row, col, n)
		}
		if bag {
			return counts[T](row, col, n)
		}
		return indicators[T](row, col, n)
	}
}

func scalar[T zml.Unsigned](row dataview.Row, col, n int) (any, error) {
	get, err := dataview.GetGetter[T](row, col)
	if err != nil {
		return nil, err
	}
	var key T
	return zml.Getter[vbuf.VBuffer[float32]](func(dst *vbuf.VBuffer[float32]) error {
		if err := get(&key); err != nil {
			return err
		}
		if key == 0 || uint64(key) > uint64(n) {
			vbuf.Edit(dst, n, 0).Commit()
			return nil
		}
		e := vbuf.EditUpTo(dst, n, 1)
		e.Values[0] = 1
		e.Indices[0] = int(key) - 1
		e.CommitCount(1)
		return nil
	}), nil
}

// indicators concatenates the indicators of the slots of a key vector.
func indicators[T zml.Unsigned](row dataview.Row, col, n int) (any, error) {
	get, err := dataview.GetGetter[vbuf.VBuffer[T]](row, col)
	if err != nil {
		return nil, err
	}
	var src vbuf.VBuffer[T]
	return zml.Getter[vbuf.VBuffer[float32]](func(dst *vbuf.VBuffer[float32]) error {
		if err := get(&src); err != nil {
			return err
		}
		e := vbuf.EditUpTo(dst, src.Length*n, src.Count())
		var count int
		src.ForEachDefined(func(slot int, key T) {
			if key == 0 || uint64(key) > uint64(n) {
				return
			}
			e.Values[count] = 1
			e.Indices[count] = slot*n + int(key) - 1
			count++
		})
		e.CommitCount(count)
		return nil
	}), nil
}

// counts counts the occurrences of each key of a key vector.
func counts[T zml.Unsigned](row dataview.Row, col, n int) (any, error) {
	get, err := dataview.GetGetter[vbuf.VBuffer[T]](row, col)
	if err != nil {
		return nil, err
	}
	var src vbuf.VBuffer[T]
	var scratch vbuf.Scratch[float32]
	return zml.Getter[vbuf.VBuffer[float32]](func(dst *vbuf.VBuffer[float32]) error {
		if err := get(&src); err != nil {
			return err
		}
		bag := scratch.Zeroed(n)
		var nonzero int
		src.ForEachDefined(func(_ int, key T) {
			if key == 0 || uint64(key) > uint64(n) {
				return
			}
			if bag[key-1] == 0 {
				nonzero++
			}
			bag[key-1]++
		})
		e := vbuf.EditUpTo(dst, n, nonzero)
		var count int
		for k, v := range bag {
			if v != 0 {
				e.Values[count] = v
				e.Indices[count] = k
				count++
			}
		}
		e.CommitCount(count)
		return nil
	}), nil
}
