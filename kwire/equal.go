package kwire

import "github.com/kxipc/kxipc/kval"

// Equal reports whether a and b are structurally equal K values: same
// shape and same bytes once serialized, independent of which symtab.Table
// backs any symbols they carry. It lives here rather than in kval because
// it is defined in terms of the wire encoding (canonical byte form),
// which only kwire (a one-way dependent of kval) knows how to produce.
func Equal(a, b kval.Value) (bool, error) {
	ea, err := EncodePayload(a)
	if err != nil {
		return false, err
	}
	eb, err := EncodePayload(b)
	if err != nil {
		return false, err
	}
	if len(ea) != len(eb) {
		return false, nil
	}
	for i := range ea {
		if ea[i] != eb[i] {
			return false, nil
		}
	}
	return true, nil
}
