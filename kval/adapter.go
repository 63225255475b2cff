package kval

import "github.com/kxipc/kxipc/kerr"

// ToGo projects v into plain Go values for callers who don't want to
// deal with the tagged variant directly: atoms become their natural Go
// scalar, vectors become slices, dicts become map[string]interface{}
// when their keys are symbols (otherwise [2]interface{}{keys, values}),
// tables become []map[string]interface{} (one map per row), and nil/
// operator/error values become nil, an Opcode, and the error's message
// string respectively. Like Text/HTML, this is a one-way projection —
// there is no path back from a Go value to a Value (§5.1).
func ToGo(v Value) (interface{}, error) {
	switch {
	case v.IsNil():
		return nil, nil
	case v.IsError():
		return v.ErrorMsg()
	case v.Tag() == OP:
		return v.Opcode()
	case v.Tag() == FN:
		return nil, kerr.New(kerr.WrongType, "ToGo: function values have no Go projection")
	case v.IsAtom():
		return atomToGo(v)
	case v.Tag() == XT:
		return tableToGo(v)
	case v.Tag() == XD && v.IsKeyedTable():
		return keyedTableToGo(v)
	case v.Tag() == XD || v.Tag() == SD:
		return dictToGo(v)
	default:
		return vectorToGo(v)
	}
}

func atomToGo(v Value) (interface{}, error) {
	switch v.Tag() {
	case -KB:
		return v.AB()
	case -UU:
		return v.AUU()
	case -KG:
		return v.AG()
	case -KH:
		return v.AH()
	case -KI:
		return v.AI()
	case -KJ:
		return v.AJ()
	case -KE:
		return v.AE()
	case -KF:
		return v.AF()
	case -KC:
		return v.AC()
	case -KS:
		return v.AS()
	case -KP:
		return v.AP()
	case -KM:
		return v.AM()
	case -KD:
		return v.AD()
	case -KZ:
		return v.AZ()
	case -KN:
		return v.AN()
	case -KU:
		return v.AU()
	case -KV:
		return v.AV()
	case -KT:
		return v.AT()
	default:
		return nil, kerr.Newf(kerr.WrongType, "ToGo: tag %d has no atom projection", v.Tag())
	}
}

func vectorToGo(v Value) (interface{}, error) {
	switch v.Tag() {
	case KB:
		return v.VB()
	case UU:
		return v.VUU()
	case KG:
		return v.VG()
	case KH:
		return v.VH()
	case KI:
		return v.VI()
	case KJ:
		return v.VJ()
	case KE:
		return v.VE()
	case KF:
		return v.VF()
	case KC:
		return v.VC()
	case KS:
		return v.VS()
	case KP:
		return v.VP()
	case KM:
		return v.VM()
	case KD:
		return v.VD()
	case KZ:
		return v.VZ()
	case KN:
		return v.VN()
	case KU:
		return v.VU()
	case KV:
		return v.VV()
	case KT:
		return v.VT()
	case KList:
		elems, err := v.VL()
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			g, err := ToGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	default:
		if v.IsEnum() {
			return nil, kerr.New(kerr.WrongType, "ToGo: enum vectors require a domain table to resolve, use Column/Index directly")
		}
		return nil, kerr.Newf(kerr.WrongType, "ToGo: tag %d has no vector projection", v.Tag())
	}
}

func dictToGo(v Value) (interface{}, error) {
	keys, err := v.DictKeys()
	if err != nil {
		return nil, err
	}
	values, err := v.DictValues()
	if err != nil {
		return nil, err
	}
	if keys.Tag() == KS {
		names, err := keys.VS()
		if err != nil {
			return nil, err
		}
		n, err := keys.Len()
		if err != nil {
			return nil, err
		}
		out := make(map[string]interface{}, n)
		for i, name := range names {
			elem, _, err := elemAt(values, i)
			if err != nil {
				return nil, err
			}
			g, err := ToGo(elem)
			if err != nil {
				return nil, err
			}
			out[name] = g
		}
		return out, nil
	}
	gk, err := ToGo(keys)
	if err != nil {
		return nil, err
	}
	gv, err := ToGo(values)
	if err != nil {
		return nil, err
	}
	return [2]interface{}{gk, gv}, nil
}

func tableToGo(v Value) ([]map[string]interface{}, error) {
	names, err := v.ColumnNames()
	if err != nil {
		return nil, err
	}
	n, err := v.Len()
	if err != nil {
		return nil, err
	}
	cols := make([]Value, len(names))
	for i, name := range names {
		cols[i], err = v.Column(name)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]map[string]interface{}, n)
	for r := 0; r < n; r++ {
		row := make(map[string]interface{}, len(names))
		for i, name := range names {
			elem, err := Index(cols[i], r)
			if err != nil {
				return nil, err
			}
			g, err := ToGo(elem)
			if err != nil {
				return nil, err
			}
			row[name] = g
		}
		rows[r] = row
	}
	return rows, nil
}

func keyedTableToGo(v Value) (interface{}, error) {
	keys, err := v.DictKeys()
	if err != nil {
		return nil, err
	}
	values, err := v.DictValues()
	if err != nil {
		return nil, err
	}
	keyRows, err := tableToGo(keys)
	if err != nil {
		return nil, err
	}
	valueRows, err := tableToGo(values)
	if err != nil {
		return nil, err
	}
	return [2][]map[string]interface{}{keyRows, valueRows}, nil
}
