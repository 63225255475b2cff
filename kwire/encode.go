package kwire

import (
	"encoding/binary"
	"math"

	"github.com/kxipc/kxipc/kcompress"
	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/kval"
)

// CompressThreshold is a suggested minSize for EncodeCompressed: the
// uncompressed frame size (bytes, including the header) below which no
// compression is attempted. Encode itself never compresses. kdb+ servers
// use ~2000 bytes; this is a knob, not a protocol constant.
const CompressThreshold = 2000

// Encode serializes v as a framed message of the given type, with flags
// left at 0 (raw). Use EncodeCompressed to opt into §4.1.3 compression.
func Encode(v kval.Value, mt MsgType) ([]byte, error) {
	payload, err := EncodePayload(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, HeaderSize+len(payload))
	PutHeader(buf, Header{Version: 1, MsgType: mt, Flags: FlagsRaw, MsgLen: uint32(len(buf))})
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// EncodeCompressed behaves like Encode, but compresses the payload
// (§4.1.3) when doing so is worthwhile and the uncompressed frame would
// be at least minSize bytes; otherwise it falls back to a raw frame.
func EncodeCompressed(v kval.Value, mt MsgType, minSize int) ([]byte, error) {
	payload, err := EncodePayload(v)
	if err != nil {
		return nil, err
	}
	if HeaderSize+len(payload) < minSize {
		return Encode(v, mt)
	}
	compressed, ok := kcompress.Compress(payload)
	if !ok {
		return Encode(v, mt)
	}
	buf := make([]byte, HeaderSize+len(compressed))
	PutHeader(buf, Header{Version: 1, MsgType: mt, Flags: FlagsCompressed, MsgLen: uint32(len(buf))})
	copy(buf[HeaderSize:], compressed)
	return buf, nil
}

// EncodePayload serializes v (type byte + type-specific content, §4.1.2)
// without any frame header.
func EncodePayload(v kval.Value) ([]byte, error) {
	return appendValue(nil, v)
}

func appendU32(buf []byte, n uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	return append(buf, b[:]...)
}

func appendU16(buf []byte, n uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], n)
	return append(buf, b[:]...)
}

func appendI16(buf []byte, n int16) []byte { return appendU16(buf, uint16(n)) }
func appendI32(buf []byte, n int32) []byte { return appendU32(buf, uint32(n)) }

func appendU64(buf []byte, n uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return append(buf, b[:]...)
}

func appendI64(buf []byte, n int64) []byte     { return appendU64(buf, uint64(n)) }
func appendF32(buf []byte, f float32) []byte   { return appendU32(buf, math.Float32bits(f)) }
func appendF64(buf []byte, f float64) []byte   { return appendU64(buf, math.Float64bits(f)) }
func appendSymBytes(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}

func appendVecPrefix(buf []byte, attr kval.Attrib, n int) []byte {
	buf = append(buf, byte(attr))
	return appendU32(buf, uint32(n))
}

// appendValue appends the type byte and content for v. Dispatch is a
// switch over v.Tag() — the vector-region tag for vectors/containers,
// the negative atom tag for atoms — matching the tagged-variant Design
// Notes guidance (pattern-match, not dynamic dispatch).
func appendValue(buf []byte, v kval.Value) ([]byte, error) {
	tag := v.Tag()
	buf = append(buf, byte(tag))

	if v.IsAtom() {
		return appendAtom(buf, v, tag)
	}
	switch {
	case tag == kval.KList:
		return appendList(buf, v)
	case tag == kval.XD || tag == kval.SD:
		return appendDict(buf, v)
	case tag == kval.XT:
		return appendTable(buf, v)
	case tag == kval.FN:
		return appendFunc(buf, v)
	case tag == kval.OP:
		op, err := v.Opcode()
		if err != nil {
			return nil, err
		}
		return append(buf, op), nil
	case tag == kval.Nil:
		return append(buf, 0), nil
	case tag == kval.ErrT:
		msg, err := v.ErrorMsg()
		if err != nil {
			return nil, err
		}
		return appendSymBytes(buf, msg), nil
	case v.IsEnum():
		return appendEnumVector(buf, v)
	default:
		return appendVector(buf, v, tag)
	}
}

func appendAtom(buf []byte, v kval.Value, tag kval.Tag) ([]byte, error) {
	baseTag := tag
	if baseTag < 0 {
		baseTag = -baseTag
	}
	switch baseTag {
	case kval.KB:
		b, err := v.AB()
		if err != nil {
			return nil, err
		}
		if b {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case kval.UU:
		g, err := v.AUU()
		if err != nil {
			return nil, err
		}
		return append(buf, g[:]...), nil
	case kval.KG:
		b, err := v.AG()
		if err != nil {
			return nil, err
		}
		return append(buf, b), nil
	case kval.KH:
		n, err := v.AH()
		if err != nil {
			return nil, err
		}
		return appendI16(buf, n), nil
	case kval.KI:
		n, err := v.AI()
		if err != nil {
			return nil, err
		}
		return appendI32(buf, n), nil
	case kval.KJ:
		n, err := v.AJ()
		if err != nil {
			return nil, err
		}
		return appendI64(buf, n), nil
	case kval.KE:
		f, err := v.AE()
		if err != nil {
			return nil, err
		}
		return appendF32(buf, f), nil
	case kval.KF:
		f, err := v.AF()
		if err != nil {
			return nil, err
		}
		return appendF64(buf, f), nil
	case kval.KC:
		c, err := v.AC()
		if err != nil {
			return nil, err
		}
		return append(buf, c), nil
	case kval.KS:
		s, err := v.AS()
		if err != nil {
			return nil, err
		}
		return appendSymBytes(buf, s), nil
	case kval.KP:
		n, err := v.AP()
		if err != nil {
			return nil, err
		}
		return appendI64(buf, int64(n)), nil
	case kval.KM:
		n, err := v.AM()
		if err != nil {
			return nil, err
		}
		return appendI32(buf, int32(n)), nil
	case kval.KD:
		n, err := v.AD()
		if err != nil {
			return nil, err
		}
		return appendI32(buf, int32(n)), nil
	case kval.KZ:
		n, err := v.AZ()
		if err != nil {
			return nil, err
		}
		return appendF64(buf, float64(n)), nil
	case kval.KN:
		n, err := v.AN()
		if err != nil {
			return nil, err
		}
		return appendI64(buf, int64(n)), nil
	case kval.KU:
		n, err := v.AU()
		if err != nil {
			return nil, err
		}
		return appendI32(buf, int32(n)), nil
	case kval.KV:
		n, err := v.AV()
		if err != nil {
			return nil, err
		}
		return appendI32(buf, int32(n)), nil
	case kval.KT:
		n, err := v.AT()
		if err != nil {
			return nil, err
		}
		return appendI32(buf, int32(n)), nil
	default:
		return nil, kerr.Newf(kerr.UnknownType, "appendAtom: tag %d", tag)
	}
}

func appendVector(buf []byte, v kval.Value, tag kval.Tag) ([]byte, error) {
	n, err := v.Len()
	if err != nil {
		return nil, err
	}
	switch tag {
	case kval.KB:
		s, err := v.VB()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, b := range s {
			if b {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
		return buf, nil
	case kval.UU:
		s, err := v.VUU()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, g := range s {
			buf = append(buf, g[:]...)
		}
		return buf, nil
	case kval.KG:
		s, err := v.VG()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		return append(buf, s...), nil
	case kval.KH:
		s, err := v.VH()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI16(buf, x)
		}
		return buf, nil
	case kval.KI:
		s, err := v.VI()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI32(buf, x)
		}
		return buf, nil
	case kval.KJ:
		s, err := v.VJ()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI64(buf, x)
		}
		return buf, nil
	case kval.KE:
		s, err := v.VE()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendF32(buf, x)
		}
		return buf, nil
	case kval.KF:
		s, err := v.VF()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendF64(buf, x)
		}
		return buf, nil
	case kval.KC:
		s, err := v.VC()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), len(s)) // byte count, not rune count
		return append(buf, s...), nil
	case kval.KS:
		s, err := v.VS()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, str := range s {
			buf = appendSymBytes(buf, str)
		}
		return buf, nil
	case kval.KP:
		s, err := v.VP()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI64(buf, int64(x))
		}
		return buf, nil
	case kval.KM:
		s, err := v.VM()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI32(buf, int32(x))
		}
		return buf, nil
	case kval.KD:
		s, err := v.VD()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI32(buf, int32(x))
		}
		return buf, nil
	case kval.KZ:
		s, err := v.VZ()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendF64(buf, float64(x))
		}
		return buf, nil
	case kval.KN:
		s, err := v.VN()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI64(buf, int64(x))
		}
		return buf, nil
	case kval.KU:
		s, err := v.VU()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI32(buf, int32(x))
		}
		return buf, nil
	case kval.KV:
		s, err := v.VV()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI32(buf, int32(x))
		}
		return buf, nil
	case kval.KT:
		s, err := v.VT()
		if err != nil {
			return nil, err
		}
		buf = appendVecPrefix(buf, v.Attrib(), n)
		for _, x := range s {
			buf = appendI32(buf, int32(x))
		}
		return buf, nil
	default:
		return nil, kerr.Newf(kerr.UnknownType, "appendVector: tag %d", tag)
	}
}

// appendEnumVector encodes an enumerated-symbol vector (tags 20..39) as
// a long vector with the alternate type tag preserved on the type byte
// (already appended by the caller), per §4.1.2.
func appendEnumVector(buf []byte, v kval.Value) ([]byte, error) {
	s, err := v.VJ()
	if err != nil {
		return nil, err
	}
	buf = appendVecPrefix(buf, v.Attrib(), len(s))
	for _, x := range s {
		buf = appendI64(buf, x)
	}
	return buf, nil
}

func appendList(buf []byte, v kval.Value) ([]byte, error) {
	elems, err := v.VL()
	if err != nil {
		return nil, err
	}
	buf = appendVecPrefix(buf, v.Attrib(), len(elems))
	for _, e := range elems {
		buf, err = appendValue(buf, e)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendDict(buf []byte, v kval.Value) ([]byte, error) {
	keys, err := v.DictKeys()
	if err != nil {
		return nil, err
	}
	values, err := v.DictValues()
	if err != nil {
		return nil, err
	}
	buf, err = appendValue(buf, keys)
	if err != nil {
		return nil, err
	}
	return appendValue(buf, values)
}

func appendTable(buf []byte, v kval.Value) ([]byte, error) {
	buf = append(buf, byte(v.Attrib()))
	d, err := v.TableDict()
	if err != nil {
		return nil, err
	}
	buf = append(buf, byte(kval.XD))
	return appendDict(buf, d)
}

func appendFunc(buf []byte, v kval.Value) ([]byte, error) {
	prelude, err := v.FuncPrelude()
	if err != nil {
		return nil, err
	}
	body, err := v.FuncBody()
	if err != nil {
		return nil, err
	}
	buf = append(buf, prelude...)
	buf = appendU32(buf, uint32(len(body)))
	return append(buf, body...), nil
}
