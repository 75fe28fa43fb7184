package model_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zcode"
	"github.com/brimdata/zml/zqe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVersion = model.VersionInfo{
	Signature: "TESTMODL",
	Written:   2,
	Readable:  1,
	ReadBack:  1,
	Loader:    "TestModel",
}

func TestEntryHeader(t *testing.T) {
	body := zcode.AppendPrimitive(nil, []byte("body"))
	entry, err := model.EncodeEntry(testVersion, body)
	require.NoError(t, err)
	assert.Equal(t, "TESTMODL", string(entry[:8]))

	h, b, err := model.DecodeEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, testVersion, h)
	assert.Equal(t, body, b)
	assert.NoError(t, testVersion.Check(h))

	_, _, err = model.DecodeEntry(entry[:len(entry)-1])
	assert.True(t, zqe.IsDecode(err))
	_, _, err = model.DecodeEntry(entry[:10])
	assert.True(t, zqe.IsDecode(err))

	_, err = model.EncodeEntry(model.VersionInfo{Signature: "SHORT", Written: 1, Loader: "x"}, nil)
	assert.Error(t, err)
}

func TestVersionCheck(t *testing.T) {
	cases := []struct {
		name   string
		header model.VersionInfo
		ok     bool
	}{
		{"same", testVersion, true},
		{"older compatible", model.VersionInfo{Signature: "TESTMODL", Written: 1, Readable: 1, Loader: "TestModel"}, true},
		{"newer compatible", model.VersionInfo{Signature: "TESTMODL", Written: 3, Readable: 2, Loader: "TestModel"}, true},
		{"newer incompatible", model.VersionInfo{Signature: "TESTMODL", Written: 4, Readable: 3, Loader: "TestModel"}, false},
		{"too old", model.VersionInfo{Signature: "TESTMODL", Written: 0, Loader: "TestModel"}, false},
		{"signature", model.VersionInfo{Signature: "OTHERMDL", Written: 2, Readable: 1, Loader: "TestModel"}, false},
		{"loader", model.VersionInfo{Signature: "TESTMODL", Written: 2, Readable: 1, Loader: "Other"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := testVersion.Check(c.header)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, zqe.IsDecode(err), "error: %v", err)
			}
		})
	}
	err := testVersion.Check(model.VersionInfo{Signature: "OTHERMDL"})
	assert.ErrorContains(t, err, `expected "TESTMODL", found "OTHERMDL"`)
}

func TestWriterReader(t *testing.T) {
	w := model.NewWriter()
	w.Int(-42)
	w.Uint(math.MaxUint64)
	w.Float32(1.5)
	w.Float64(math.Inf(-1))
	w.Bool(true)
	w.String("")
	w.String("hello")
	w.Strings([]string{"a", "", "c"})
	w.Ints([]int{3, -1})
	w.Type(zml.TypeFloat32)
	w.Type(&zml.TypeKey{Base: zml.IDUint32, Min: 5, Count: 10, Contiguous: true})
	w.Type(zml.NewTypeVector(zml.NewTypeKey(zml.IDUint8, 3), 2, 4))
	w.Type(&zml.TypeImage{Height: 4, Width: 8})

	r := model.NewReader(w.Bytes())
	assert.EqualValues(t, -42, r.Int())
	assert.EqualValues(t, uint64(math.MaxUint64), r.Uint())
	assert.Equal(t, float32(1.5), r.Float32())
	assert.True(t, math.IsInf(r.Float64(), -1))
	assert.True(t, r.Bool())
	assert.Equal(t, "", r.String())
	assert.Equal(t, "hello", r.String())
	assert.Equal(t, []string{"a", "", "c"}, r.Strings())
	assert.Equal(t, []int{3, -1}, r.Ints())
	assert.True(t, zml.Equal(zml.TypeFloat32, r.Type()))
	assert.True(t, zml.Equal(&zml.TypeKey{Base: zml.IDUint32, Min: 5, Count: 10, Contiguous: true}, r.Type()))
	assert.True(t, zml.Equal(zml.NewTypeVector(zml.NewTypeKey(zml.IDUint8, 3), 2, 4), r.Type()))
	assert.True(t, zml.Equal(&zml.TypeImage{Height: 4, Width: 8}, r.Type()))
	require.NoError(t, r.Err())
	assert.True(t, r.Done())

	// Reading past the end is a decode error that sticks.
	r.Int()
	assert.True(t, zqe.IsDecode(r.Err()))
	assert.Equal(t, "", r.String())
}

func TestReaderRejectsBadLength(t *testing.T) {
	w := model.NewWriter()
	w.Begin()
	w.Uint(1000)
	w.String("x")
	w.End()
	r := model.NewReader(w.Bytes())
	assert.Nil(t, r.Strings())
	assert.True(t, zqe.IsDecode(r.Err()))

	w = model.NewWriter()
	w.Begin()
	w.Uint(zml.IDKey)
	w.Uint(zml.IDFloat32)
	w.End()
	r = model.NewReader(w.Bytes())
	assert.Nil(t, r.Type())
	assert.True(t, zqe.IsDecode(r.Err()))
}

func TestValues(t *testing.T) {
	w := model.NewWriter()
	require.NoError(t, model.WriteValues(w, []float32{1, float32(math.NaN())}))
	require.NoError(t, model.WriteValues(w, []string{"x", "y"}))
	when := time.Date(2021, 3, 4, 5, 6, 7, 8, time.UTC)
	require.NoError(t, model.WriteValue(w, when))
	require.NoError(t, model.WriteValue(w, 90*time.Second))
	sparse, err := vbuf.NewSparse(5, []int16{7, -2}, []int{1, 4})
	require.NoError(t, err)
	require.NoError(t, model.WriteVBuffer(w, sparse))
	require.NoError(t, model.WriteVBuffer(w, vbuf.NewDense([]uint8{1, 2})))
	assert.True(t, zqe.IsUnsupportedType(model.WriteValue(w, struct{}{})))

	r := model.NewReader(w.Bytes())
	fs, err := model.ReadValues[float32](r)
	require.NoError(t, err)
	assert.Equal(t, float32(1), fs[0])
	assert.True(t, math.IsNaN(float64(fs[1])))
	ss, err := model.ReadValues[string](r)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ss)
	got, err := model.ReadValue[time.Time](r)
	require.NoError(t, err)
	assert.True(t, when.Equal(got))
	d, err := model.ReadValue[time.Duration](r)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
	v, err := model.ReadVBuffer[int16](r)
	require.NoError(t, err)
	assert.Equal(t, sparse, v)
	u, err := model.ReadVBuffer[uint8](r)
	require.NoError(t, err)
	assert.True(t, u.IsDense())
	assert.Equal(t, []uint8{1, 2}, u.Values)
}

func TestArchive(t *testing.T) {
	var buf bytes.Buffer
	aw := model.NewArchiveWriter(&buf, "test")
	big := bytes.Repeat([]byte("compressible "), 100)
	require.NoError(t, aw.Add("a/Model", []byte("small")))
	require.NoError(t, aw.Add("b/Model", big))
	require.NoError(t, aw.Add("empty", nil))
	assert.True(t, zqe.IsDuplicate(aw.Add("a/Model", nil)))
	require.NoError(t, aw.Close())

	a, err := model.ReadArchive(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, aw.Manifest().ID, a.Manifest().ID)
	assert.Equal(t, "test", a.Manifest().Producer)
	assert.True(t, aw.Manifest().Created.Equal(a.Manifest().Created))

	entries := a.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, model.CompressionNone, entries[0].Compression)
	assert.Equal(t, model.CompressionLZ4, entries[1].Compression)
	assert.Less(t, entries[1].StoredLen, entries[1].RawLen)
	assert.Equal(t, model.ManifestName, entries[3].Name)

	b, err := a.Read("b/Model")
	require.NoError(t, err)
	assert.Equal(t, big, b)
	b, err = a.Read("a/Model")
	require.NoError(t, err)
	assert.Equal(t, "small", string(b))
	b, err = a.Read("empty")
	require.NoError(t, err)
	assert.Empty(t, b)
	_, err = a.Read("missing")
	assert.True(t, zqe.IsNotFound(err))

	_, err = model.ReadArchive([]byte("not an archive at all, really"))
	assert.True(t, zqe.IsDecode(err))
	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[len(corrupt)-12] ^= 0xff
	_, err = model.ReadArchive(corrupt)
	assert.Error(t, err)
}

type pair struct {
	name  string
	value float64
}

func TestRegistry(t *testing.T) {
	reg := model.NewRegistry[*pair]("test")
	reg.Register(testVersion, func(c *model.LoadContext, r *model.Reader) (*pair, error) {
		return &pair{name: r.String(), value: r.Float64()}, nil
	})
	assert.Panics(t, func() {
		reg.Register(testVersion, nil)
	})
	assert.Equal(t, []model.VersionInfo{testVersion}, reg.Versions())

	var buf bytes.Buffer
	aw := model.NewArchiveWriter(&buf, "test")
	root := model.NewSaveContext(aw)
	require.NoError(t, root.Sub("first").Save(testVersion, func(w *model.Writer) error {
		w.String("x")
		w.Float64(2.5)
		// A field added by a newer writer.
		w.Bool(true)
		return nil
	}))
	other := testVersion
	other.Signature = "OTHERMDL"
	require.NoError(t, root.Sub("second").Save(other, func(w *model.Writer) error {
		return nil
	}))
	require.NoError(t, aw.Close())

	a, err := model.ReadArchive(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, a.Has("first/Model"))
	lc := model.NewLoadContext(a, nil)
	p, err := reg.Load(lc.Sub("first"))
	require.NoError(t, err)
	assert.Equal(t, &pair{name: "x", value: 2.5}, p)

	_, err = reg.Load(lc.Sub("second"))
	assert.True(t, zqe.IsDecode(err))
	_, err = lc.Sub("second").Open(testVersion)
	assert.ErrorContains(t, err, `expected "TESTMODL", found "OTHERMDL"`)
	_, err = reg.Load(lc.Sub("third"))
	assert.True(t, zqe.IsNotFound(err))
}
