package dataview

import (
	"image"
	"strconv"
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/vbuf"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/multierr"
)

// CacheView is a DataView that keeps the columns of its input in memory
// once they have been read.  Each cursor reads the columns it needs that are
// not cached in a single pass over the input.  At most size columns are kept,
// least recently used first out.
type CacheView struct {
	input  DataView
	lru    *lru.Cache[int, column]
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

var _ DataView = (*CacheView)(nil)

func NewCacheView(input DataView, size int, registerer prometheus.Registerer) (*CacheView, error) {
	cache, err := lru.New[int, column](size)
	if err != nil {
		return nil, err
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &CacheView{
		input: input,
		lru:   cache,
		hits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataview_cache_hits_total",
				Help: "Number of cursor column lookups served from the cache.",
			},
			[]string{"kind"},
		),
		misses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataview_cache_misses_total",
				Help: "Number of cursor column lookups that read the input.",
			},
			[]string{"kind"},
		),
	}, nil
}

func (c *CacheView) Schema() *zml.Schema {
	return c.input.Schema()
}

func (c *CacheView) RowCount() int64 {
	for _, k := range c.lru.Keys() {
		if col, ok := c.lru.Peek(k); ok {
			return int64(col.len())
		}
	}
	return c.input.RowCount()
}

func (c *CacheView) Cursor(active func(int) bool) (Cursor, error) {
	schema := c.input.Schema()
	columns := make([]column, schema.Len())
	var missing []int
	for k := range columns {
		if !active(k) {
			continue
		}
		kind := kindLabel(schema.ColumnType(k))
		if col, ok := c.lru.Get(k); ok {
			c.hits.WithLabelValues(kind).Inc()
			columns[k] = col
			continue
		}
		c.misses.WithLabelValues(kind).Inc()
		missing = append(missing, k)
	}
	rows := c.RowCount()
	if len(missing) > 0 || rows < 0 {
		loaded, n, err := c.load(missing)
		if err != nil {
			return nil, err
		}
		for k, col := range loaded {
			columns[missing[k]] = col
			c.lru.Add(missing[k], col)
		}
		rows = n
	}
	return newTableCursor(schema, columns, rows, active), nil
}

// load reads the given columns of the input in one pass.
func (c *CacheView) load(cols []int) (loaded []column, rows int64, err error) {
	cursor, err := c.input.Cursor(Only(cols...))
	if err != nil {
		return nil, 0, err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(cursor))
	collectors := make([]collector, 0, len(cols))
	for _, col := range cols {
		coll, err := newCollector(cursor, col)
		if err != nil {
			return nil, 0, err
		}
		collectors = append(collectors, coll)
	}
	for {
		ok, err := cursor.MoveNext()
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			break
		}
		rows++
		for _, coll := range collectors {
			if err := coll.collect(); err != nil {
				return nil, 0, err
			}
		}
	}
	for _, coll := range collectors {
		loaded = append(loaded, coll.column())
	}
	return loaded, rows, nil
}

func kindLabel(typ zml.Type) string {
	switch typ.(type) {
	case *zml.TypeVector:
		return "vector"
	case *zml.TypeKey:
		return "key"
	case *zml.TypeImage:
		return "image"
	}
	return typ.String()
}

// A collector appends the value of a column at the current row to an
// in-memory column.
type collector interface {
	collect() error
	column() column
}

type scalarCollector[T any] struct {
	get    zml.Getter[T]
	values []T
}

func newScalarCollector[T any](row Row, col int) (collector, error) {
	get, err := GetGetter[T](row, col)
	if err != nil {
		return nil, err
	}
	return &scalarCollector[T]{get: get}, nil
}

func (s *scalarCollector[T]) collect() error {
	var v T
	if err := s.get(&v); err != nil {
		return err
	}
	s.values = append(s.values, v)
	return nil
}

func (s *scalarCollector[T]) column() column {
	return scalarColumn[T](s.values)
}

type vectorCollector[T any] struct {
	get     zml.Getter[vbuf.VBuffer[T]]
	scratch vbuf.VBuffer[T]
	values  []vbuf.VBuffer[T]
}

func newVectorCollector[T any](row Row, col int) (collector, error) {
	get, err := GetGetter[vbuf.VBuffer[T]](row, col)
	if err != nil {
		return nil, err
	}
	return &vectorCollector[T]{get: get}, nil
}

func (v *vectorCollector[T]) collect() error {
	if err := v.get(&v.scratch); err != nil {
		return err
	}
	v.values = append(v.values, v.scratch.Clone())
	return nil
}

func (v *vectorCollector[T]) column() column {
	return vectorColumn[T](v.values)
}

type collectorFunc func(Row, int) (collector, error)

var scalarCollectors = zml.NewKindTable[collectorFunc]("cache").
	Add(zml.IDUint8, newScalarCollector[uint8]).
	Add(zml.IDUint16, newScalarCollector[uint16]).
	Add(zml.IDUint32, newScalarCollector[uint32]).
	Add(zml.IDUint64, newScalarCollector[uint64]).
	Add(zml.IDInt8, newScalarCollector[int8]).
	Add(zml.IDInt16, newScalarCollector[int16]).
	Add(zml.IDInt32, newScalarCollector[int32]).
	Add(zml.IDInt64, newScalarCollector[int64]).
	Add(zml.IDFloat32, newScalarCollector[float32]).
	Add(zml.IDFloat64, newScalarCollector[float64]).
	Add(zml.IDBool, newScalarCollector[bool]).
	Add(zml.IDText, newScalarCollector[string]).
	Add(zml.IDTimeSpan, newScalarCollector[time.Duration]).
	Add(zml.IDDateTime, newScalarCollector[time.Time])

var vectorCollectors = zml.NewKindTable[collectorFunc]("cache").
	Add(zml.IDUint8, newVectorCollector[uint8]).
	Add(zml.IDUint16, newVectorCollector[uint16]).
	Add(zml.IDUint32, newVectorCollector[uint32]).
	Add(zml.IDUint64, newVectorCollector[uint64]).
	Add(zml.IDInt8, newVectorCollector[int8]).
	Add(zml.IDInt16, newVectorCollector[int16]).
	Add(zml.IDInt32, newVectorCollector[int32]).
	Add(zml.IDInt64, newVectorCollector[int64]).
	Add(zml.IDFloat32, newVectorCollector[float32]).
	Add(zml.IDFloat64, newVectorCollector[float64]).
	Add(zml.IDBool, newVectorCollector[bool]).
	Add(zml.IDText, newVectorCollector[string]).
	Add(zml.IDTimeSpan, newVectorCollector[time.Duration]).
	Add(zml.IDDateTime, newVectorCollector[time.Time])

func newCollector(row Row, col int) (collector, error) {
	typ := row.Schema().ColumnType(col)
	switch typ.(type) {
	case *zml.TypeImage:
		return newScalarCollector[image.Image](row, col)
	case *zml.TypeVector:
		fn, err := vectorCollectors.Lookup(typ)
		if err != nil {
			return nil, err
		}
		return fn(row, col)
	}
	fn, err := scalarCollectors.Lookup(typ)
	if err != nil {
		return nil, err
	}
	return fn(row, col)
}

func (c *CacheView) String() string {
	return "cache(" + strconv.Itoa(c.lru.Len()) + " columns)"
}
