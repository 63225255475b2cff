package kcompress

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompressGoldenVector(t *testing.T) {
	in, err := hex.DecodeString("ae0f0000c00700f401000000ff00ffff00ff00ff00ff00ff00ff00ff00ff00ff3f00ff00ff00ff00ff00ff008f")
	require.NoError(t, err)

	out, err := Decompress(in)
	require.NoError(t, err)
	require.Len(t, out, 4006)

	assert.Equal(t, []byte{0x07, 0x00, 0xf4, 0x01, 0x00, 0x00}, out[:6])
	for _, b := range out[6:] {
		assert.Zero(t, b)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := [][]byte{
		make([]byte, 4000),
		[]byte("the quick brown fox jumps over the lazy dog the quick brown fox"),
		append([]byte{1, 2, 3, 4}, make([]byte, 2000)...),
	}

	for i, in := range cases {
		compressed, ok := Compress(in)
		if !ok {
			continue // not worth compressing is a valid outcome
		}
		out, err := Decompress(compressed)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, in, out, "case %d", i)
	}
}

func TestCompressRejectsIncompressibleInput(t *testing.T) {
	in := make([]byte, 64)
	for i := range in {
		in[i] = byte(i * 97)
	}
	_, ok := Compress(in)
	assert.False(t, ok)
}

func TestDecompressTruncated(t *testing.T) {
	_, err := Decompress([]byte{1, 2, 3})
	require.Error(t, err)
}
