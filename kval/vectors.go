package kval

import (
	"github.com/google/uuid"

	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/symtab"
)

func vector(tag Tag, attr Attrib, v interface{}) Value {
	return Value{tag: tag, isAtom: false, attr: attr, v: v}
}

func wrongVecType(want Tag, v Value) error {
	return kerr.Newf(kerr.WrongType, "expected vector tag %d, got tag=%d isAtom=%v", want, v.tag, v.isAtom)
}

// VBool constructs a boolean vector.
func VBool(attr Attrib, vs []bool) Value { return vector(KB, attr, vs) }

// VGuid constructs a GUID vector.
func VGuid(attr Attrib, vs []uuid.UUID) Value { return vector(UU, attr, vs) }

// VByte constructs a byte vector.
func VByte(attr Attrib, vs []byte) Value { return vector(KG, attr, vs) }

// VShort constructs a short vector.
func VShort(attr Attrib, vs []int16) Value { return vector(KH, attr, vs) }

// VInt constructs an int vector.
func VInt(attr Attrib, vs []int32) Value { return vector(KI, attr, vs) }

// VLong constructs a long vector.
func VLong(attr Attrib, vs []int64) Value { return vector(KJ, attr, vs) }

// VReal constructs a real (float32) vector.
func VReal(attr Attrib, vs []float32) Value { return vector(KE, attr, vs) }

// VFloat constructs a float (float64) vector.
func VFloat(attr Attrib, vs []float64) Value { return vector(KF, attr, vs) }

// VChar constructs a char vector. The wire length is len(s) bytes, not
// code points (§4.1.2).
func VChar(attr Attrib, s string) Value { return vector(KC, attr, s) }

// VSymbol interns each element of ss in ctx and constructs a symbol
// vector over the resulting indices.
func VSymbol(ctx *symtab.Table, attr Attrib, ss []string) (Value, error) {
	idxs := make([]uint32, len(ss))
	for i, s := range ss {
		idx, err := ctx.Intern(s)
		if err != nil {
			return Value{}, err
		}
		idxs[i] = idx
	}
	return Value{tag: KS, isAtom: false, attr: attr, ctx: ctx, v: idxs}, nil
}

func VTimestamp(attr Attrib, vs []Timestamp) Value { return vector(KP, attr, vs) }
func VMonth(attr Attrib, vs []Month) Value         { return vector(KM, attr, vs) }
func VDate(attr Attrib, vs []Date) Value           { return vector(KD, attr, vs) }
func VDatetime(attr Attrib, vs []Datetime) Value   { return vector(KZ, attr, vs) }
func VTimespan(attr Attrib, vs []Timespan) Value   { return vector(KN, attr, vs) }
func VMinute(attr Attrib, vs []Minute) Value       { return vector(KU, attr, vs) }
func VSecond(attr Attrib, vs []Second) Value       { return vector(KV, attr, vs) }
func VTime(attr Attrib, vs []Time) Value           { return vector(KT, attr, vs) }

// VList constructs a heterogeneous list (tag 0).
func VList(attr Attrib, vs []Value) Value { return vector(KList, attr, vs) }

// IsEnum reports whether the value is an enumerated-symbol vector (§3.1,
// tags 20..39), carried on the wire as a long vector with an alternate
// type tag.
func (v Value) IsEnum() bool { return !v.isAtom && v.tag >= 20 && v.tag <= 39 }

// VEnum constructs an enumerated-symbol vector: a long vector (indices
// into some externally-managed enumeration domain) tagged 20+domain.
func VEnum(domain int, attr Attrib, vs []int64) (Value, error) {
	if domain < 0 || domain > 19 {
		return Value{}, kerr.Newf(kerr.OutOfRange, "VEnum: domain %d out of range 0..19", domain)
	}
	return vector(Tag(20+domain), attr, vs), nil
}

func (v Value) VB() ([]bool, error) {
	if v.isAtom || v.tag != KB {
		return nil, wrongVecType(KB, v)
	}
	return v.v.([]bool), nil
}

func (v Value) VUU() ([]uuid.UUID, error) {
	if v.isAtom || v.tag != UU {
		return nil, wrongVecType(UU, v)
	}
	return v.v.([]uuid.UUID), nil
}

func (v Value) VG() ([]byte, error) {
	if v.isAtom || v.tag != KG {
		return nil, wrongVecType(KG, v)
	}
	return v.v.([]byte), nil
}

func (v Value) VH() ([]int16, error) {
	if v.isAtom || v.tag != KH {
		return nil, wrongVecType(KH, v)
	}
	return v.v.([]int16), nil
}

func (v Value) VI() ([]int32, error) {
	if v.isAtom || v.tag != KI {
		return nil, wrongVecType(KI, v)
	}
	return v.v.([]int32), nil
}

func (v Value) VJ() ([]int64, error) {
	if v.isAtom || v.tag != KJ {
		if v.IsEnum() {
			return v.v.([]int64), nil
		}
		return nil, wrongVecType(KJ, v)
	}
	return v.v.([]int64), nil
}

func (v Value) VE() ([]float32, error) {
	if v.isAtom || v.tag != KE {
		return nil, wrongVecType(KE, v)
	}
	return v.v.([]float32), nil
}

func (v Value) VF() ([]float64, error) {
	if v.isAtom || v.tag != KF {
		return nil, wrongVecType(KF, v)
	}
	return v.v.([]float64), nil
}

func (v Value) VC() (string, error) {
	if v.isAtom || v.tag != KC {
		return "", wrongVecType(KC, v)
	}
	return v.v.(string), nil
}

// VS returns the resolved strings of a symbol vector.
func (v Value) VS() ([]string, error) {
	if v.isAtom || v.tag != KS {
		return nil, wrongVecType(KS, v)
	}
	idxs := v.v.([]uint32)
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		s, ok := v.ctx.Lookup(idx)
		if !ok {
			return nil, kerr.Newf(kerr.OutOfRange, "VS: symbol index %d not present in context", idx)
		}
		out[i] = s
	}
	return out, nil
}

// SymIndices returns the raw interning indices of a symbol vector,
// without resolving them against the context.
func (v Value) SymIndices() ([]uint32, error) {
	if v.isAtom || v.tag != KS {
		return nil, wrongVecType(KS, v)
	}
	return v.v.([]uint32), nil
}

func (v Value) VP() ([]Timestamp, error) {
	if v.isAtom || v.tag != KP {
		return nil, wrongVecType(KP, v)
	}
	return v.v.([]Timestamp), nil
}

func (v Value) VM() ([]Month, error) {
	if v.isAtom || v.tag != KM {
		return nil, wrongVecType(KM, v)
	}
	return v.v.([]Month), nil
}

func (v Value) VD() ([]Date, error) {
	if v.isAtom || v.tag != KD {
		return nil, wrongVecType(KD, v)
	}
	return v.v.([]Date), nil
}

func (v Value) VZ() ([]Datetime, error) {
	if v.isAtom || v.tag != KZ {
		return nil, wrongVecType(KZ, v)
	}
	return v.v.([]Datetime), nil
}

func (v Value) VN() ([]Timespan, error) {
	if v.isAtom || v.tag != KN {
		return nil, wrongVecType(KN, v)
	}
	return v.v.([]Timespan), nil
}

func (v Value) VU() ([]Minute, error) {
	if v.isAtom || v.tag != KU {
		return nil, wrongVecType(KU, v)
	}
	return v.v.([]Minute), nil
}

func (v Value) VV() ([]Second, error) {
	if v.isAtom || v.tag != KV {
		return nil, wrongVecType(KV, v)
	}
	return v.v.([]Second), nil
}

func (v Value) VT() ([]Time, error) {
	if v.isAtom || v.tag != KT {
		return nil, wrongVecType(KT, v)
	}
	return v.v.([]Time), nil
}

// VL returns the elements of a heterogeneous list.
func (v Value) VL() ([]Value, error) {
	if v.isAtom || v.tag != KList {
		return nil, wrongVecType(KList, v)
	}
	return v.v.([]Value), nil
}

// Len returns the number of elements in a vector, list, dict, or table.
// Atoms, functions, nil, operator and error values have no length and
// return (0, kerr.WrongType).
func (v Value) Len() (int, error) {
	switch {
	case v.isAtom:
		return 0, kerr.New(kerr.WrongType, "Len: atoms have no length")
	case v.tag == KB, v.tag == KG, v.tag == KH, v.tag == KI, v.tag == KJ,
		v.tag == KE, v.tag == KF, v.tag == UU, v.tag == KP, v.tag == KM,
		v.tag == KD, v.tag == KZ, v.tag == KN, v.tag == KU, v.tag == KV, v.tag == KT:
		return vecLen(v.v), nil
	case v.tag == KC:
		return len(v.v.(string)), nil
	case v.tag == KS:
		return len(v.v.([]uint32)), nil
	case v.IsEnum():
		return len(v.v.([]int64)), nil
	case v.tag == KList:
		return len(v.v.([]Value)), nil
	case v.tag == XD || v.tag == SD:
		d := v.v.(*dictData)
		return d.keys.Len()
	case v.tag == XT:
		return d0Len(v.v.(*tableData))
	default:
		return 0, kerr.Newf(kerr.WrongType, "Len: tag %d has no length", v.tag)
	}
}

// d0Len returns the row count of a table: the length of its first
// column, or 0 for a zero-column table (§3.3).
func d0Len(t *tableData) (int, error) {
	cols, err := t.dict.values.VL()
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, nil
	}
	return cols[0].Len()
}

// vecLen uses a type switch since the payload's concrete slice type
// varies per tag.
func vecLen(v interface{}) int {
	switch s := v.(type) {
	case []bool:
		return len(s)
	case []byte:
		return len(s)
	case []int16:
		return len(s)
	case []int32:
		return len(s)
	case []int64:
		return len(s)
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []uuid.UUID:
		return len(s)
	case []Timestamp:
		return len(s)
	case []Month:
		return len(s)
	case []Date:
		return len(s)
	case []Datetime:
		return len(s)
	case []Timespan:
		return len(s)
	case []Minute:
		return len(s)
	case []Second:
		return len(s)
	case []Time:
		return len(s)
	default:
		return 0
	}
}
