// Package kval implements the polymorphic K value model: atoms, vectors,
// dictionaries, tables, functions, and the few singleton kinds (nil,
// operator, remote error) used by the kdb+ IPC wire protocol.
//
// Values are a tagged variant (struct{ Tag; payload any }) rather than a
// type hierarchy: accessors pattern-match on Tag and type-assert the
// payload, returning kerr.WrongType on mismatch, per the "avoid
// hierarchy-per-type designs" guidance for this domain.
package kval

import "github.com/kxipc/kxipc/symtab"

// Tag is the signed 8-bit wire type tag (§3.1).
type Tag int8

const (
	KB Tag = 1  // boolean
	UU Tag = 2  // guid
	KG Tag = 4  // byte
	KH Tag = 5  // short
	KI Tag = 6  // int
	KJ Tag = 7  // long
	KE Tag = 8  // real (float32)
	KF Tag = 9  // float (float64)
	KC Tag = 10 // char
	KS Tag = 11 // symbol
	KP Tag = 12 // timestamp
	KM Tag = 13 // month
	KD Tag = 14 // date
	KZ Tag = 15 // datetime
	KN Tag = 16 // timespan
	KU Tag = 17 // minute
	KV Tag = 18 // second
	KT Tag = 19 // time

	KList Tag = 0 // heterogeneous list

	XT   Tag = 98  // table
	XD   Tag = 99  // dictionary
	FN   Tag = 100 // function
	Nil  Tag = 101 // nil
	OP   Tag = 102 // operator
	SD   Tag = 127 // sorted/stepped dictionary
	ErrT Tag = -128 // remote error
)

// Attrib is the vector attribute byte (§3.2).
type Attrib uint8

const (
	AttrNone    Attrib = 0
	AttrSorted  Attrib = 1
	AttrUnique  Attrib = 2
	AttrParted  Attrib = 3
	AttrGrouped Attrib = 4
)

// atomWidth returns the fixed encoded payload width for each atom tag,
// per the §3.1 width table; KS has no fixed width (0 is a sentinel for
// "NUL-terminated").
var atomWidth = map[Tag]int{
	KB: 1, KG: 1, KC: 1,
	KH: 2,
	KI: 4, KM: 4, KD: 4, KU: 4, KV: 4, KT: 4, KE: 4,
	KJ: 8, KP: 8, KN: 8, KF: 8, KZ: 8,
	UU: 16,
}

// Value is a single K value: an atom, a vector, or one of the container /
// singleton kinds. The zero Value is not valid; use one of the
// constructors in atoms.go / vectors.go / container.go / function.go.
type Value struct {
	tag    Tag
	isAtom bool
	attr   Attrib
	ctx    *symtab.Table // only set for values holding KS payloads
	v      interface{}   // payload, shape depends on tag/isAtom; see each file
}

// Tag returns the value's type tag. Atoms report the negative of their
// vector tag, matching the wire representation (§3.1), except for the
// special kinds (XT, XD, FN, Nil, OP, SD, ErrT) which have no atom form.
func (v Value) Tag() Tag {
	if v.isAtom && v.tag > 0 {
		return -v.tag
	}
	return v.tag
}

// IsAtom reports whether v is an atom (negative tag region).
func (v Value) IsAtom() bool { return v.isAtom }

// Attrib returns the vector attribute; always AttrNone for atoms and
// containers unless set via WithAttrib (tables carry their attribute
// byte this way, §4.1.2).
func (v Value) Attrib() Attrib { return v.attr }

// WithAttrib returns a copy of v with its attribute byte set to attr.
// Used for tables, whose attribute lives alongside the type byte rather
// than inside the underlying dict.
func (v Value) WithAttrib(attr Attrib) Value {
	v.attr = attr
	return v
}

// Context returns the symbol table backing any KS payload in v, or nil
// if v never touches symbols.
func (v Value) Context() *symtab.Table { return v.ctx }

// baseTag returns the non-negative vector-region tag regardless of
// atom/vector-ness, used internally for dispatch tables keyed by the
// §3.1 vector tag.
func (v Value) baseTag() Tag { return v.tag }
