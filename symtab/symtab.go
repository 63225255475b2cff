// Package symtab implements the symbol interning context used by kval.
//
// A Table maps strings to stable u32 indices and back, append-only so
// that a concurrently-growing table is always safe to read. A plain map
// pair (string->index, index->string) under a mutex fits better than a
// specialized hash table here, since those are typically built as
// immutable snapshots while interning needs mutate-in-place, append-only
// growth.
package symtab

import (
	"sync"
	"unicode/utf8"

	"github.com/kxipc/kxipc/kerr"
)

// Table is a process- or connection-scoped symbol interning context.
// The zero value is ready to use.
type Table struct {
	mu    sync.RWMutex
	byStr map[string]uint32
	bySym []string // index -> string
	wire  [][]byte // index -> NUL-terminated UTF-8 form, lazily built
}

// New returns an empty Table.
func New() *Table {
	return &Table{byStr: make(map[string]uint32)}
}

// Intern returns the stable index for s, assigning a new one if s hasn't
// been seen before in this Table. Non-UTF-8 strings are rejected.
func (t *Table) Intern(s string) (uint32, error) {
	if !utf8.ValidString(s) {
		return 0, kerr.Newf(kerr.OutOfRange, "symtab: %q is not valid UTF-8", s)
	}

	t.mu.RLock()
	if idx, ok := t.byStr[s]; ok {
		t.mu.RUnlock()
		return idx, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	// re-check: another writer may have interned s while we waited for Lock
	if idx, ok := t.byStr[s]; ok {
		return idx, nil
	}
	if t.byStr == nil {
		t.byStr = make(map[string]uint32)
	}
	idx := uint32(len(t.bySym))
	t.bySym = append(t.bySym, s)
	t.wire = append(t.wire, nil)
	t.byStr[s] = idx
	return idx, nil
}

// Lookup returns the string for idx. ok is false if idx was never interned
// in this Table.
func (t *Table) Lookup(idx uint32) (s string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx >= uint32(len(t.bySym)) {
		return "", false
	}
	return t.bySym[idx], true
}

// Bytes returns the NUL-terminated UTF-8 wire form for idx.
func (t *Table) Bytes(idx uint32) ([]byte, error) {
	t.mu.RLock()
	if idx >= uint32(len(t.bySym)) {
		t.mu.RUnlock()
		return nil, kerr.Newf(kerr.OutOfRange, "symtab: index %d out of range", idx)
	}
	if b := t.wire[idx]; b != nil {
		t.mu.RUnlock()
		return b, nil
	}
	s := t.bySym[idx]
	t.mu.RUnlock()

	b := make([]byte, len(s)+1)
	copy(b, s)
	b[len(s)] = 0

	t.mu.Lock()
	t.wire[idx] = b
	t.mu.Unlock()
	return b, nil
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bySym)
}
