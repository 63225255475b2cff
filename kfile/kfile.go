// Package kfile persists a single K value to disk in the format kdb+
// uses for a saved splay/variable: a two-byte magic followed by the raw
// encoded payload (§6.2). Writes are atomic: the value is written to a
// sibling temporary file and renamed into place, so a reader never
// observes a partially-written file.
package kfile

import (
	"os"
	"path/filepath"

	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/kval"
	"github.com/kxipc/kxipc/kwire"
	"github.com/kxipc/kxipc/symtab"
)

// magic is the two-byte prefix preceding the raw payload in a persisted
// file: version 0xFF, uncompressed flag 0x01.
var magic = [2]byte{0xff, 0x01}

// Write serializes v and atomically replaces path with the result. The
// temporary file is created alongside path so the rename is within a
// single filesystem.
func Write(path string, v kval.Value) error {
	payload, err := kwire.EncodePayload(v)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(magic[:]); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Read loads a value previously written by Write, using ctx to intern
// any symbols found in the payload.
func Read(path string, ctx *symtab.Table) (kval.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return kval.Value{}, err
	}
	if len(raw) < 2 {
		return kval.Value{}, kerr.New(kerr.Truncated, "kfile: file shorter than magic prefix")
	}
	if raw[0] != magic[0] || raw[1] != magic[1] {
		return kval.Value{}, kerr.Newf(kerr.FramingError, "kfile: unrecognized magic %02x%02x", raw[0], raw[1])
	}
	return kwire.DecodeValue(raw[2:], ctx)
}

// ReadAny is Read using a fresh, file-local symbol context, for callers
// that don't need to share interning with another session.
func ReadAny(path string) (kval.Value, *symtab.Table, error) {
	ctx := symtab.New()
	v, err := Read(path, ctx)
	if err != nil {
		return kval.Value{}, nil, err
	}
	return v, ctx, nil
}
