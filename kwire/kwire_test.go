package kwire

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxipc/kxipc/kval"
	"github.com/kxipc/kxipc/symtab"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestEncodeGoldenVectors(t *testing.T) {
	ctx := symtab.New()

	cases := []struct {
		name string
		v    kval.Value
		want string
	}{
		{"integer atom 1", kval.KInt(1), "010000000d000000fa01000000"},
		{"integer vector [1]", kval.VInt(kval.AttrNone, []int32{1}), "010000001200000006000100000001000000"},
		{"byte vector 0..4", kval.VByte(kval.AttrNone, []byte{0, 1, 2, 3, 4}), "01000000130000000400050000000001020304"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.v, Async)
			require.NoError(t, err)
			assert.Equal(t, tc.want, hex.EncodeToString(got))
		})
	}

	t.Run("list of one byte vector 0..4", func(t *testing.T) {
		bv := kval.VByte(kval.AttrNone, []byte{0, 1, 2, 3, 4})
		v := kval.VList(kval.AttrNone, []kval.Value{bv})
		got, err := Encode(v, Async)
		require.NoError(t, err)
		assert.Equal(t, "01000000190000000000010000000400050000000001020304", hex.EncodeToString(got))
	})

	t.Run("dict a b ! 2 3i", func(t *testing.T) {
		keys, err := kval.VSymbol(ctx, kval.AttrNone, []string{"a", "b"})
		require.NoError(t, err)
		values := kval.VInt(kval.AttrNone, []int32{2, 3})
		d, err := kval.KDict(keys, values)
		require.NoError(t, err)
		got, err := Encode(d, Async)
		require.NoError(t, err)
		assert.Equal(t, "0100000021000000630b0002000000610062000600020000000200000003000000", hex.EncodeToString(got))
	})

	t.Run("dict a b ! 2 3 long", func(t *testing.T) {
		keys, err := kval.VSymbol(ctx, kval.AttrNone, []string{"a", "b"})
		require.NoError(t, err)
		values := kval.VLong(kval.AttrNone, []int64{2, 3})
		d, err := kval.KDict(keys, values)
		require.NoError(t, err)
		got, err := Encode(d, Async)
		require.NoError(t, err)
		assert.Equal(t, "0100000029000000630b00020000006100620007000200000002000000000000000300000000000000", hex.EncodeToString(got))
	})

	t.Run("sorted dict s# a b ! 2 3i", func(t *testing.T) {
		keys, err := kval.VSymbol(ctx, kval.AttrSorted, []string{"a", "b"})
		require.NoError(t, err)
		values := kval.VInt(kval.AttrNone, []int32{2, 3})
		d, err := kval.KSortedDict(keys, values)
		require.NoError(t, err)
		got, err := Encode(d, Async)
		require.NoError(t, err)
		assert.Equal(t, "01000000210000007f0b0102000000610062000600020000000200000003000000", hex.EncodeToString(got))
	})

	t.Run("table", func(t *testing.T) {
		tbl, err := kval.KTable(ctx, []string{"a", "b"}, []kval.Value{
			kval.VInt(kval.AttrNone, []int32{2}),
			kval.VInt(kval.AttrNone, []int32{3}),
		})
		require.NoError(t, err)
		got, err := Encode(tbl, Async)
		require.NoError(t, err)
		assert.Equal(t, "010000002f0000006200630b0002000000610062000000020000000600010000000200000006000100000003000000", hex.EncodeToString(got))
	})

	t.Run("symbol atom abc", func(t *testing.T) {
		s, err := kval.KSymbol(ctx, "abc")
		require.NoError(t, err)
		got, err := Encode(s, Async)
		require.NoError(t, err)
		assert.Equal(t, "010000000d000000f561626300", hex.EncodeToString(got))
	})

	t.Run("remote error ohno", func(t *testing.T) {
		got, err := Encode(kval.KError("ohno"), Async)
		require.NoError(t, err)
		assert.Equal(t, "010000000e000000806f686e6f00", hex.EncodeToString(got))
	})
}

func TestDecodeRoundTrip(t *testing.T) {
	ctx := symtab.New()
	keys, err := kval.VSymbol(ctx, kval.AttrNone, []string{"a", "b"})
	require.NoError(t, err)
	values := kval.VInt(kval.AttrNone, []int32{2, 3})
	d, err := kval.KDict(keys, values)
	require.NoError(t, err)

	buf, err := Encode(d, Sync)
	require.NoError(t, err)

	got, h, err := Decode(buf, ctx)
	require.NoError(t, err)
	assert.Equal(t, Sync, h.MsgType)

	eq, err := Equal(d, got)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestDecodeGoldenCompressed(t *testing.T) {
	buf := mustHex(t, "0102010035000000ae0f0000c00700f401000000ff00ffff00ff00ff00ff00ff00ff00ff00ff00ff3f00ff00ff00ff00ff00ff008f")
	ctx := symtab.New()
	v, h, err := Decode(buf, ctx)
	require.NoError(t, err)
	assert.Equal(t, Response, h.MsgType)

	longs, err := v.VJ()
	require.NoError(t, err)
	require.Len(t, longs, 500)
	for _, x := range longs {
		assert.Zero(t, x)
	}
}

func TestParseHeaderRejectsUnknownFlags(t *testing.T) {
	buf := []byte{1, 0, 2, 0, 8, 0, 0, 0}
	_, err := ParseHeader(buf)
	require.Error(t, err)
}

func TestParseHeaderTruncated(t *testing.T) {
	_, err := ParseHeader([]byte{1, 2, 3})
	require.Error(t, err)
}
