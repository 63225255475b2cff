package kval

import (
	"github.com/google/uuid"

	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/symtab"
)

type dictData struct {
	keys   Value
	values Value
}

type tableData struct {
	dict *dictData // keys: symbol vector of column names; values: KList of column vectors
}

func sameLen(a, b Value) (int, error) {
	la, err := a.Len()
	if err != nil {
		return 0, err
	}
	lb, err := b.Len()
	if err != nil {
		return 0, err
	}
	if la != lb {
		return 0, kerr.Newf(kerr.OutOfRange, "dict: key/value length mismatch %d != %d", la, lb)
	}
	return la, nil
}

// KDict constructs a dictionary (§3.3). keys and values must be vectors
// (or lists) of equal length.
func KDict(keys, values Value) (Value, error) {
	if _, err := sameLen(keys, values); err != nil {
		return Value{}, err
	}
	return Value{tag: XD, v: &dictData{keys: keys, values: values}}, nil
}

// KSortedDict constructs a sorted/stepped dictionary. keys must either be
// a table or carry AttrSorted (§3.3).
func KSortedDict(keys, values Value) (Value, error) {
	if keys.Tag() != XT && keys.Attrib() != AttrSorted {
		return Value{}, kerr.New(kerr.OutOfRange, "KSortedDict: keys must be a table or carry AttrSorted")
	}
	if _, err := sameLen(keys, values); err != nil {
		return Value{}, err
	}
	return Value{tag: SD, v: &dictData{keys: keys, values: values}}, nil
}

// DictKeys returns the keys vector of a dictionary (XD or SD).
func (v Value) DictKeys() (Value, error) {
	d, err := v.asDict()
	if err != nil {
		return Value{}, err
	}
	return d.keys, nil
}

// DictValues returns the values vector of a dictionary (XD or SD).
func (v Value) DictValues() (Value, error) {
	d, err := v.asDict()
	if err != nil {
		return Value{}, err
	}
	return d.values, nil
}

func (v Value) asDict() (*dictData, error) {
	if v.isAtom || (v.tag != XD && v.tag != SD) {
		return nil, kerr.Newf(kerr.WrongType, "expected dict, got tag=%d", v.tag)
	}
	return v.v.(*dictData), nil
}

// Find looks up key in a dictionary's keys vector and returns the
// corresponding value. If keys is a heterogeneous list containing a
// symbol atom equal to key, the parallel element of values is returned
// (§3.3).
func (v Value) Find(key string) (Value, bool, error) {
	d, err := v.asDict()
	if err != nil {
		return Value{}, false, err
	}
	if d.keys.Tag() == KS && !d.keys.isAtom {
		ss, err := d.keys.VS()
		if err != nil {
			return Value{}, false, err
		}
		for i, s := range ss {
			if s == key {
				vals, err := d.values.VL()
				if err == nil {
					return vals[i], true, nil
				}
				return elemAt(d.values, i)
			}
		}
		return Value{}, false, nil
	}
	if d.keys.Tag() == KList {
		elems, err := d.keys.VL()
		if err != nil {
			return Value{}, false, err
		}
		for i, e := range elems {
			if e.IsAtom() && e.Tag() == -KS {
				s, err := e.AS()
				if err == nil && s == key {
					return elemAt(d.values, i)
				}
			}
		}
	}
	return Value{}, false, nil
}

// elemAt returns the i'th element of any vector/list as a Value.
func elemAt(v Value, i int) (Value, bool, error) {
	if v.tag == KList {
		elems, err := v.VL()
		if err != nil {
			return Value{}, false, err
		}
		return elems[i], true, nil
	}
	// homogeneous vector: box the element as an atom via Index so callers
	// get a Value back uniformly.
	out, err := Index(v, i)
	if err != nil {
		return Value{}, false, err
	}
	return out, true, nil
}

// KTable constructs a table from column names and column vectors
// (§3.3): a wrapper around a dict whose keys are a symbol vector of
// column names and whose values are a heterogeneous list of
// equal-length column vectors. Constructing a table whose columns
// differ in length fails deterministically.
func KTable(ctx *symtab.Table, colNames []string, cols []Value) (Value, error) {
	if len(colNames) != len(cols) {
		return Value{}, kerr.Newf(kerr.OutOfRange, "KTable: %d names but %d columns", len(colNames), len(cols))
	}
	if len(cols) > 0 {
		first, err := cols[0].Len()
		if err != nil {
			return Value{}, err
		}
		for i, c := range cols[1:] {
			n, err := c.Len()
			if err != nil {
				return Value{}, err
			}
			if n != first {
				return Value{}, kerr.Newf(kerr.OutOfRange, "KTable: column %d has length %d, want %d", i+1, n, first)
			}
		}
	}
	keys, err := VSymbol(ctx, AttrNone, colNames)
	if err != nil {
		return Value{}, err
	}
	values := VList(AttrNone, cols)
	dict := &dictData{keys: keys, values: values}
	return Value{tag: XT, v: &tableData{dict: dict}}, nil
}

// TableDict returns the underlying dictionary of a table.
func (v Value) TableDict() (Value, error) {
	if v.isAtom || v.tag != XT {
		return Value{}, kerr.Newf(kerr.WrongType, "expected table, got tag=%d", v.tag)
	}
	t := v.v.(*tableData)
	return Value{tag: XD, v: t.dict}, nil
}

// ColumnNames returns a table's column names in order.
func (v Value) ColumnNames() ([]string, error) {
	d, err := v.TableDict()
	if err != nil {
		return nil, err
	}
	keys, err := d.DictKeys()
	if err != nil {
		return nil, err
	}
	return keys.VS()
}

// Column returns a table's column vector by name.
func (v Value) Column(name string) (Value, error) {
	names, err := v.ColumnNames()
	if err != nil {
		return Value{}, err
	}
	for i, n := range names {
		if n == name {
			d, _ := v.TableDict()
			vals, _ := d.DictValues()
			cols, err := vals.VL()
			if err != nil {
				return Value{}, err
			}
			return cols[i], nil
		}
	}
	return Value{}, kerr.Newf(kerr.OutOfRange, "Column: no column %q", name)
}

// KKeyedTable constructs a keyed table: a dictionary whose keys and
// values are both tables (§3.3).
func KKeyedTable(keyTable, valueTable Value) (Value, error) {
	if keyTable.Tag() != XT || valueTable.Tag() != XT {
		return Value{}, kerr.New(kerr.WrongType, "KKeyedTable: both keys and values must be tables")
	}
	return KDict(keyTable, valueTable)
}

// IsKeyedTable reports whether v is a dict (XD/SD) whose keys and values
// are both tables.
func (v Value) IsKeyedTable() bool {
	d, err := v.asDict()
	if err != nil {
		return false
	}
	return d.keys.Tag() == XT && d.values.Tag() == XT
}

// Index returns the i'th element of a homogeneous vector as a boxed atom
// Value. Used internally by Find/elemAt and by the formatter.
func Index(v Value, i int) (Value, error) {
	if v.isAtom {
		return Value{}, kerr.New(kerr.WrongType, "Index: atoms have no elements")
	}
	switch v.tag {
	case KB:
		s := v.v.([]bool)
		return KBool(s[i]), nil
	case UU:
		s := v.v.([]uuid.UUID)
		return KGuid(s[i]), nil
	case KG:
		s := v.v.([]byte)
		return KByte(s[i]), nil
	case KH:
		s := v.v.([]int16)
		return KShort(s[i]), nil
	case KI:
		s := v.v.([]int32)
		return KInt(s[i]), nil
	case KJ:
		s := v.v.([]int64)
		return KLong(s[i]), nil
	case KE:
		s := v.v.([]float32)
		return KReal(s[i]), nil
	case KF:
		s := v.v.([]float64)
		return KFloat(s[i]), nil
	case KC:
		s := v.v.(string)
		return KChar(s[i]), nil
	case KS:
		idxs := v.v.([]uint32)
		return Value{tag: KS, isAtom: true, ctx: v.ctx, v: idxs[i]}, nil
	case KP:
		s := v.v.([]Timestamp)
		return KTimestamp(s[i]), nil
	case KM:
		s := v.v.([]Month)
		return KMonth(s[i]), nil
	case KD:
		s := v.v.([]Date)
		return KDate(s[i]), nil
	case KZ:
		s := v.v.([]Datetime)
		return KDatetime(s[i]), nil
	case KN:
		s := v.v.([]Timespan)
		return KTimespan(s[i]), nil
	case KU:
		s := v.v.([]Minute)
		return KMinute(s[i]), nil
	case KV:
		s := v.v.([]Second)
		return KSecond(s[i]), nil
	case KT:
		s := v.v.([]Time)
		return KTime(s[i]), nil
	case KList:
		s := v.v.([]Value)
		return s[i], nil
	default:
		return Value{}, kerr.Newf(kerr.WrongType, "Index: tag %d is not indexable", v.tag)
	}
}
