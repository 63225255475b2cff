package kformat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxipc/kxipc/kval"
	"github.com/kxipc/kxipc/symtab"
)

func TestScalarIntSentinels(t *testing.T) {
	s, err := Scalar(kval.KInt(math.MinInt32))
	require.NoError(t, err)
	assert.Equal(t, "", s)

	s, err = Scalar(kval.KInt(math.MaxInt32))
	require.NoError(t, err)
	assert.Equal(t, "0W", s)

	s, err = Scalar(kval.KInt(math.MinInt32 + 1))
	require.NoError(t, err)
	assert.Equal(t, "-0W", s)

	s, err = Scalar(kval.KInt(7))
	require.NoError(t, err)
	assert.Equal(t, "7", s)
}

func TestScalarFloatSentinels(t *testing.T) {
	s, err := Scalar(kval.KFloat(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, "", s)

	s, err = Scalar(kval.KFloat(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, "0W", s)

	s, err = Scalar(kval.KFloat(math.Inf(-1)))
	require.NoError(t, err)
	assert.Equal(t, "-0W", s)
}

func TestScalarDate(t *testing.T) {
	s, err := Scalar(kval.KDate(0))
	require.NoError(t, err)
	assert.Equal(t, "2000.01.01", s)

	s, err = Scalar(kval.KDate(31))
	require.NoError(t, err)
	assert.Equal(t, "2000.02.01", s)
}

func TestScalarSymbol(t *testing.T) {
	sym, err := kval.KSymbol(symtab.New(), "abc")
	require.NoError(t, err)
	s, err := Scalar(sym)
	require.NoError(t, err)
	assert.Equal(t, "`abc", s)
}

func TestTextTableWithElision(t *testing.T) {
	ctx := symtab.New()
	col := kval.VInt(kval.AttrNone, []int32{1, 2, 3, 4, 5, 6})
	tbl, err := kval.KTable(ctx, []string{"x"}, []kval.Value{col})
	require.NoError(t, err)

	out, err := Text(tbl, 4)
	require.NoError(t, err)
	assert.Contains(t, out, "x")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "6")
}

func TestHTMLTable(t *testing.T) {
	ctx := symtab.New()
	col := kval.VInt(kval.AttrNone, []int32{1, 2})
	tbl, err := kval.KTable(ctx, []string{"x"}, []kval.Value{col})
	require.NoError(t, err)

	out, err := HTML(tbl, 0)
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<th>x</th>")
}

func TestDictText(t *testing.T) {
	ctx := symtab.New()
	keys, err := kval.VSymbol(ctx, kval.AttrNone, []string{"a", "b"})
	require.NoError(t, err)
	values := kval.VInt(kval.AttrNone, []int32{1, 2})
	d, err := kval.KDict(keys, values)
	require.NoError(t, err)

	out, err := Text(d, 0)
	require.NoError(t, err)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "1")
}
