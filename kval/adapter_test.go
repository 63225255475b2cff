package kval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxipc/kxipc/symtab"
)

func TestToGoAtom(t *testing.T) {
	g, err := ToGo(KLong(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), g)
}

func TestToGoVector(t *testing.T) {
	g, err := ToGo(VInt(AttrNone, []int32{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, g)
}

func TestToGoDictWithSymbolKeys(t *testing.T) {
	ctx := symtab.New()
	keys, err := VSymbol(ctx, AttrNone, []string{"a", "b"})
	require.NoError(t, err)
	values := VInt(AttrNone, []int32{1, 2})
	d, err := KDict(keys, values)
	require.NoError(t, err)

	g, err := ToGo(d)
	require.NoError(t, err)
	m, ok := g.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int32(1), m["a"])
	assert.Equal(t, int32(2), m["b"])
}

func TestToGoTable(t *testing.T) {
	ctx := symtab.New()
	col := VInt(AttrNone, []int32{10, 20})
	tbl, err := KTable(ctx, []string{"x"}, []Value{col})
	require.NoError(t, err)

	g, err := ToGo(tbl)
	require.NoError(t, err)
	rows, ok := g.([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(10), rows[0]["x"])
	assert.Equal(t, int32(20), rows[1]["x"])
}

func TestToGoNilAndError(t *testing.T) {
	g, err := ToGo(KNil())
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = ToGo(KError("boom"))
	require.NoError(t, err)
	assert.Equal(t, "boom", g)
}
