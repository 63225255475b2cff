package kfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxipc/kxipc/kval"
	"github.com/kxipc/kxipc/kwire"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myvar")

	original := kval.KLong(42)
	require.NoError(t, Write(path, original))

	got, ctx, err := ReadAny(path)
	require.NoError(t, err)
	eq, err := kwire.Equal(got, original)
	_ = ctx
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestWriteIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myvar")

	require.NoError(t, Write(path, kval.KLong(1)))
	require.NoError(t, Write(path, kval.KLong(2)))

	got, _, err := ReadAny(path)
	require.NoError(t, err)
	n, err := got.AJ()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	entries, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no leftover temp files")
}

func TestReadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x00, 0x01}, 0o644))

	_, _, err := ReadAny(path)
	require.Error(t, err)
}
