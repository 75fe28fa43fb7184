package zml_test

import (
	"testing"

	"github.com/brimdata/zml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeOf(t *testing.T) {
	var b zml.MetadataBuilder
	b.AddIsNormalized().AddSlotNames([]string{"p", "q"})
	s := zml.MustNewSchema(
		zml.Column{Name: "k", Type: zml.NewTypeKey(zml.IDUint32, 7)},
		zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeFloat32, 2), Metadata: b.Build()},
		zml.Column{Name: "w", Type: zml.NewTypeVector(zml.TypeText)},
	)
	s = zml.AppendColumns(s, zml.Column{Name: "k", Type: zml.TypeFloat64})
	shape := zml.ShapeOf(s)
	assert.Equal(t, []string{"v", "w", "k"}, shape.Names())

	v, ok := shape.Find("v")
	require.True(t, ok)
	assert.Equal(t, zml.Vector, v.Kind)
	// Metadata is sorted by kind.
	require.Len(t, v.Metadata, 2)
	assert.Equal(t, zml.IsNormalized, v.Metadata[0].Name)
	assert.True(t, v.Metadata[1].Equal(zml.SlotNamesShape))

	w, _ := shape.Find("w")
	assert.Equal(t, zml.VariableVector, w.Kind)
	assert.Equal(t, "w:vector<text,*>", w.String())
}

func TestShapeKeyColumns(t *testing.T) {
	s := zml.MustNewSchema(zml.Column{Name: "k", Type: zml.NewTypeKey(zml.IDUint32, 7)})
	k := zml.ShapeOf(s).Columns[0]
	assert.True(t, k.IsKey)
	assert.Same(t, zml.TypeUint32, k.ItemType)
	// Cardinality is not part of a shape.
	other := zml.ShapeOf(zml.MustNewSchema(zml.Column{Name: "k", Type: zml.NewTypeKey(zml.IDUint32, 2)}))
	assert.True(t, zml.ShapeOf(s).Equal(other))
}

func TestShapeWithReplacesAndAppends(t *testing.T) {
	shape := &zml.Shape{Columns: []zml.ShapeColumn{
		{Name: "a", ItemType: zml.TypeText},
		{Name: "b", ItemType: zml.TypeInt32},
	}}
	out := shape.With(zml.ShapeColumn{Name: "a", ItemType: zml.TypeUint32, IsKey: true})
	assert.Equal(t, []string{"b", "a"}, out.Names())
	assert.Equal(t, []string{"a", "b"}, shape.Names())
	a, _ := out.Find("a")
	assert.True(t, a.IsKey)
}

func TestShapeCompatibility(t *testing.T) {
	want := zml.ShapeColumn{Name: "x", Kind: zml.Vector, ItemType: zml.TypeFloat32}.WithMetadata(zml.SlotNamesShape)
	have := zml.ShapeColumn{Name: "x", Kind: zml.Vector, ItemType: zml.TypeFloat32}
	assert.False(t, have.IsCompatibleWith(want))
	have = have.WithMetadata(zml.IsNormalizedShape, zml.SlotNamesShape)
	assert.True(t, have.IsCompatibleWith(want))
	assert.False(t, have.Equal(want))
	varying := zml.ShapeColumn{Name: "x", Kind: zml.VariableVector, ItemType: zml.TypeFloat32}
	assert.False(t, varying.IsCompatibleWith(zml.ShapeColumn{Name: "x", Kind: zml.Vector, ItemType: zml.TypeFloat32}))
}
