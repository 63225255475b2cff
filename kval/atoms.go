package kval

import (
	"github.com/google/uuid"

	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/symtab"
)

// Temporal atom representations (§3.1). Distinct Go types so a Value's
// payload type alone disambiguates which accessor may read it.
type (
	Timestamp int64   // ns since 2000.01.01D00:00:00
	Month     int32   // months since 2000.01m
	Date      int32   // days since 2000.01.01
	Datetime  float64 // days since 2000.01.01, fractional
	Timespan  int64   // ns
	Minute    int32
	Second    int32
	Time      int32 // ms since midnight
)

func atom(tag Tag, v interface{}) Value {
	return Value{tag: tag, isAtom: true, v: v}
}

// KBool constructs a boolean atom.
func KBool(v bool) Value { return atom(KB, v) }

// KGuid constructs a GUID atom.
func KGuid(v uuid.UUID) Value { return atom(UU, v) }

// KByte constructs a byte atom.
func KByte(v byte) Value { return atom(KG, v) }

// KShort constructs a short atom.
func KShort(v int16) Value { return atom(KH, v) }

// KInt constructs an int atom.
func KInt(v int32) Value { return atom(KI, v) }

// KLong constructs a long atom.
func KLong(v int64) Value { return atom(KJ, v) }

// KReal constructs a real (float32) atom.
func KReal(v float32) Value { return atom(KE, v) }

// KFloat constructs a float (float64) atom.
func KFloat(v float64) Value { return atom(KF, v) }

// KChar constructs a char atom.
func KChar(v byte) Value { return atom(KC, v) }

// KSymbol interns s in ctx and constructs a symbol atom referencing it.
func KSymbol(ctx *symtab.Table, s string) (Value, error) {
	idx, err := ctx.Intern(s)
	if err != nil {
		return Value{}, err
	}
	return Value{tag: KS, isAtom: true, ctx: ctx, v: idx}, nil
}

func KTimestamp(v Timestamp) Value { return atom(KP, v) }
func KMonth(v Month) Value         { return atom(KM, v) }
func KDate(v Date) Value           { return atom(KD, v) }
func KDatetime(v Datetime) Value   { return atom(KZ, v) }
func KTimespan(v Timespan) Value   { return atom(KN, v) }
func KMinute(v Minute) Value       { return atom(KU, v) }
func KSecond(v Second) Value       { return atom(KV, v) }
func KTime(v Time) Value           { return atom(KT, v) }

// IntAtom builds an integer atom of the given tag from a 64-bit value,
// checking that v fits the tag's fixed wire width. This is the entry
// point for dynamic callers (e.g. code building atoms from untyped
// data) where the source width isn't known statically
// at the call site; see kerr.OutOfRange in §7/§8 property 5.
func IntAtom(tag Tag, v int64) (Value, error) {
	switch tag {
	case KB:
		return KBool(v != 0), nil
	case KG:
		if v < 0 || v > 0xff {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KG: %d out of range", v)
		}
		return KByte(byte(v)), nil
	case KH:
		if v < -32768 || v > 32767 {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KH: %d out of range", v)
		}
		return KShort(int16(v)), nil
	case KI:
		if v < -2147483648 || v > 2147483647 {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KI: %d out of range", v)
		}
		return KInt(int32(v)), nil
	case KJ:
		return KLong(v), nil
	case KP:
		return KTimestamp(Timestamp(v)), nil
	case KN:
		return KTimespan(Timespan(v)), nil
	case KM:
		if v < -2147483648 || v > 2147483647 {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KM: %d out of range", v)
		}
		return KMonth(Month(v)), nil
	case KD:
		if v < -2147483648 || v > 2147483647 {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KD: %d out of range", v)
		}
		return KDate(Date(v)), nil
	case KU:
		if v < -2147483648 || v > 2147483647 {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KU: %d out of range", v)
		}
		return KMinute(Minute(v)), nil
	case KV:
		if v < -2147483648 || v > 2147483647 {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KV: %d out of range", v)
		}
		return KSecond(Second(v)), nil
	case KT:
		if v < -2147483648 || v > 2147483647 {
			return Value{}, kerr.Newf(kerr.OutOfRange, "KT: %d out of range", v)
		}
		return KTime(Time(v)), nil
	default:
		return Value{}, kerr.Newf(kerr.WrongType, "IntAtom: %v is not an integer-family tag", tag)
	}
}

func wrongType(want Tag, v Value) error {
	return kerr.Newf(kerr.WrongType, "expected atom tag %d, got tag=%d isAtom=%v", want, v.tag, v.isAtom)
}

// AB returns the boolean payload of a KB atom.
func (v Value) AB() (bool, error) {
	if !v.isAtom || v.tag != KB {
		return false, wrongType(KB, v)
	}
	return v.v.(bool), nil
}

// AUU returns the GUID payload of a UU atom.
func (v Value) AUU() (uuid.UUID, error) {
	if !v.isAtom || v.tag != UU {
		return uuid.UUID{}, wrongType(UU, v)
	}
	return v.v.(uuid.UUID), nil
}

// AG returns the byte payload of a KG atom.
func (v Value) AG() (byte, error) {
	if !v.isAtom || v.tag != KG {
		return 0, wrongType(KG, v)
	}
	return v.v.(byte), nil
}

// AH returns the short payload of a KH atom.
func (v Value) AH() (int16, error) {
	if !v.isAtom || v.tag != KH {
		return 0, wrongType(KH, v)
	}
	return v.v.(int16), nil
}

// AI returns the int payload of a KI atom.
func (v Value) AI() (int32, error) {
	if !v.isAtom || v.tag != KI {
		return 0, wrongType(KI, v)
	}
	return v.v.(int32), nil
}

// AJ returns the long payload of a KJ atom.
func (v Value) AJ() (int64, error) {
	if !v.isAtom || v.tag != KJ {
		return 0, wrongType(KJ, v)
	}
	return v.v.(int64), nil
}

// AE returns the real payload of a KE atom.
func (v Value) AE() (float32, error) {
	if !v.isAtom || v.tag != KE {
		return 0, wrongType(KE, v)
	}
	return v.v.(float32), nil
}

// AF returns the float payload of a KF atom.
func (v Value) AF() (float64, error) {
	if !v.isAtom || v.tag != KF {
		return 0, wrongType(KF, v)
	}
	return v.v.(float64), nil
}

// AC returns the char payload of a KC atom.
func (v Value) AC() (byte, error) {
	if !v.isAtom || v.tag != KC {
		return 0, wrongType(KC, v)
	}
	return v.v.(byte), nil
}

// AS returns the resolved string payload of a KS atom.
func (v Value) AS() (string, error) {
	if !v.isAtom || v.tag != KS {
		return "", wrongType(KS, v)
	}
	idx := v.v.(uint32)
	s, ok := v.ctx.Lookup(idx)
	if !ok {
		return "", kerr.Newf(kerr.OutOfRange, "AS: symbol index %d not present in context", idx)
	}
	return s, nil
}

func (v Value) AP() (Timestamp, error) {
	if !v.isAtom || v.tag != KP {
		return 0, wrongType(KP, v)
	}
	return v.v.(Timestamp), nil
}

func (v Value) AM() (Month, error) {
	if !v.isAtom || v.tag != KM {
		return 0, wrongType(KM, v)
	}
	return v.v.(Month), nil
}

func (v Value) AD() (Date, error) {
	if !v.isAtom || v.tag != KD {
		return 0, wrongType(KD, v)
	}
	return v.v.(Date), nil
}

func (v Value) AZ() (Datetime, error) {
	if !v.isAtom || v.tag != KZ {
		return 0, wrongType(KZ, v)
	}
	return v.v.(Datetime), nil
}

func (v Value) AN() (Timespan, error) {
	if !v.isAtom || v.tag != KN {
		return 0, wrongType(KN, v)
	}
	return v.v.(Timespan), nil
}

func (v Value) AU() (Minute, error) {
	if !v.isAtom || v.tag != KU {
		return 0, wrongType(KU, v)
	}
	return v.v.(Minute), nil
}

func (v Value) AV() (Second, error) {
	if !v.isAtom || v.tag != KV {
		return 0, wrongType(KV, v)
	}
	return v.v.(Second), nil
}

func (v Value) AT() (Time, error) {
	if !v.isAtom || v.tag != KT {
		return 0, wrongType(KT, v)
	}
	return v.v.(Time), nil
}
