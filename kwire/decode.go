package kwire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"

	"github.com/kxipc/kxipc/kcompress"
	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/kval"
	"github.com/kxipc/kxipc/symtab"
)

// Decode parses a complete framed message (header + payload) from buf,
// per §4.1.4. ctx resolves/creates symbol interning indices for any KS
// payload encountered. Decode fails with kerr.Truncated if buf holds
// fewer than the header's declared MsgLen bytes.
func Decode(buf []byte, ctx *symtab.Table) (kval.Value, Header, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return kval.Value{}, Header{}, err
	}
	if uint32(len(buf)) < h.MsgLen {
		return kval.Value{}, Header{}, kerr.Newf(kerr.Truncated, "frame declares %d bytes, have %d", h.MsgLen, len(buf))
	}
	payload := buf[HeaderSize:h.MsgLen]

	if h.Flags == FlagsCompressed {
		payload, err = kcompress.Decompress(payload)
		if err != nil {
			return kval.Value{}, Header{}, err
		}
	}

	v, err := DecodeValue(payload, ctx)
	if err != nil {
		return kval.Value{}, Header{}, err
	}
	return v, h, nil
}

// DecodeValue decodes a single value from a raw, already-decompressed
// payload buffer against ctx, failing with kerr.FramingError if trailing
// bytes remain. Used directly by ksession, which parses the frame header
// and handles decompression itself ahead of the symbol-context-aware
// decode.
func DecodeValue(payload []byte, ctx *symtab.Table) (kval.Value, error) {
	v, n, err := decodeValue(payload, ctx)
	if err != nil {
		return kval.Value{}, err
	}
	if n != len(payload) {
		return kval.Value{}, kerr.Newf(kerr.FramingError, "decoded %d bytes, payload is %d", n, len(payload))
	}
	return v, nil
}

// DecodePayload decodes a single value from a raw (uncompressed,
// headerless) payload buffer using a fresh symbol context, failing with
// kerr.FramingError if trailing bytes remain.
func DecodePayload(payload []byte) (kval.Value, *symtab.Table, error) {
	ctx := symtab.New()
	v, err := DecodeValue(payload, ctx)
	if err != nil {
		return kval.Value{}, nil, err
	}
	return v, ctx, nil
}

func need(buf []byte, n int) error {
	if len(buf) < n {
		return kerr.Newf(kerr.Truncated, "need %d bytes, have %d", n, len(buf))
	}
	return nil
}

func readU32(buf []byte) (uint32, error) {
	if err := need(buf, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func readU64(buf []byte) (uint64, error) {
	if err := need(buf, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func readNulString(buf []byte) (string, int, error) {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), i + 1, nil
		}
	}
	return "", 0, kerr.New(kerr.Truncated, "symbol: NUL not found before buffer end")
}

// decodeValue decodes one type-tagged value starting at buf[0] (the type
// byte) and returns the number of bytes consumed.
func decodeValue(buf []byte, ctx *symtab.Table) (kval.Value, int, error) {
	if err := need(buf, 1); err != nil {
		return kval.Value{}, 0, err
	}
	tag := kval.Tag(int8(buf[0]))
	off := 1

	if tag < 0 && tag != kval.ErrT {
		v, n, err := decodeAtom(buf[off:], -tag, ctx)
		return v, off + n, err
	}
	switch {
	case tag == kval.KList:
		return decodeList(buf[off:], ctx, off)
	case tag == kval.XD || tag == kval.SD:
		return decodeDict(buf[off:], ctx, off, tag)
	case tag == kval.XT:
		return decodeTable(buf[off:], ctx, off)
	case tag == kval.FN:
		return decodeFunc(buf[off:], off)
	case tag == kval.OP:
		if err := need(buf[off:], 1); err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KOp(buf[off]), off + 1, nil
	case tag == kval.Nil:
		if err := need(buf[off:], 1); err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KNil(), off + 1, nil
	case tag == kval.ErrT:
		msg, n, err := readNulString(buf[off:])
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KError(msg), off + n, nil
	case tag >= 20 && tag <= 39:
		return decodeEnumVector(buf[off:], tag, off)
	default:
		return decodeVector(buf[off:], tag, ctx, off)
	}
}

func decodeAtom(buf []byte, tag kval.Tag, ctx *symtab.Table) (kval.Value, int, error) {
	switch tag {
	case kval.KB:
		if err := need(buf, 1); err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KBool(buf[0] != 0), 1, nil
	case kval.UU:
		if err := need(buf, 16); err != nil {
			return kval.Value{}, 0, err
		}
		var g uuid.UUID
		copy(g[:], buf[:16])
		return kval.KGuid(g), 16, nil
	case kval.KG:
		if err := need(buf, 1); err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KByte(buf[0]), 1, nil
	case kval.KH:
		if err := need(buf, 2); err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KShort(int16(binary.LittleEndian.Uint16(buf))), 2, nil
	case kval.KI:
		n, err := readU32(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KInt(int32(n)), 4, nil
	case kval.KJ:
		n, err := readU64(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KLong(int64(n)), 8, nil
	case kval.KE:
		n, err := readU32(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KReal(math.Float32frombits(n)), 4, nil
	case kval.KF:
		n, err := readU64(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KFloat(math.Float64frombits(n)), 8, nil
	case kval.KC:
		if err := need(buf, 1); err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KChar(buf[0]), 1, nil
	case kval.KS:
		s, n, err := readNulString(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		v, err := kval.KSymbol(ctx, s)
		return v, n, err
	case kval.KP:
		n, err := readU64(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KTimestamp(kval.Timestamp(int64(n))), 8, nil
	case kval.KM:
		n, err := readU32(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KMonth(kval.Month(int32(n))), 4, nil
	case kval.KD:
		n, err := readU32(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KDate(kval.Date(int32(n))), 4, nil
	case kval.KZ:
		n, err := readU64(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KDatetime(kval.Datetime(math.Float64frombits(n))), 8, nil
	case kval.KN:
		n, err := readU64(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KTimespan(kval.Timespan(int64(n))), 8, nil
	case kval.KU:
		n, err := readU32(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KMinute(kval.Minute(int32(n))), 4, nil
	case kval.KV:
		n, err := readU32(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KSecond(kval.Second(int32(n))), 4, nil
	case kval.KT:
		n, err := readU32(buf)
		if err != nil {
			return kval.Value{}, 0, err
		}
		return kval.KTime(kval.Time(int32(n))), 4, nil
	default:
		return kval.Value{}, 0, kerr.Newf(kerr.UnknownType, "decodeAtom: tag %d", tag)
	}
}

func vecPrefix(buf []byte) (kval.Attrib, uint32, int, error) {
	if err := need(buf, 5); err != nil {
		return 0, 0, 0, err
	}
	attr := kval.Attrib(buf[0])
	n, err := readU32(buf[1:])
	if err != nil {
		return 0, 0, 0, err
	}
	return attr, n, 5, nil
}

func decodeVector(buf []byte, tag kval.Tag, ctx *symtab.Table, base int) (kval.Value, int, error) {
	attr, n, off, err := vecPrefix(buf)
	if err != nil {
		return kval.Value{}, 0, err
	}
	count := int(n)

	switch tag {
	case kval.KC:
		if err := need(buf[off:], count); err != nil {
			return kval.Value{}, 0, err
		}
		s := string(buf[off : off+count])
		return kval.VChar(attr, s), base + off + count, nil
	case kval.KS:
		ss := make([]string, count)
		for i := 0; i < count; i++ {
			s, m, err := readNulString(buf[off:])
			if err != nil {
				return kval.Value{}, 0, err
			}
			ss[i] = s
			off += m
		}
		v, err := kval.VSymbol(ctx, attr, ss)
		return v, base + off, err
	case kval.UU:
		if err := need(buf[off:], count*16); err != nil {
			return kval.Value{}, 0, err
		}
		gs := make([]uuid.UUID, count)
		for i := 0; i < count; i++ {
			copy(gs[i][:], buf[off+i*16:off+i*16+16])
		}
		return kval.VGuid(attr, gs), base + off + count*16, nil
	case kval.KB:
		if err := need(buf[off:], count); err != nil {
			return kval.Value{}, 0, err
		}
		bs := make([]bool, count)
		for i := 0; i < count; i++ {
			bs[i] = buf[off+i] != 0
		}
		return kval.VBool(attr, bs), base + off + count, nil
	case kval.KG:
		if err := need(buf[off:], count); err != nil {
			return kval.Value{}, 0, err
		}
		bs := make([]byte, count)
		copy(bs, buf[off:off+count])
		return kval.VByte(attr, bs), base + off + count, nil
	case kval.KH:
		w := count * 2
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]int16, count)
		for i := 0; i < count; i++ {
			vs[i] = int16(binary.LittleEndian.Uint16(buf[off+i*2:]))
		}
		return kval.VShort(attr, vs), base + off + w, nil
	case kval.KI:
		w := count * 4
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]int32, count)
		for i := 0; i < count; i++ {
			vs[i] = int32(binary.LittleEndian.Uint32(buf[off+i*4:]))
		}
		return kval.VInt(attr, vs), base + off + w, nil
	case kval.KJ:
		w := count * 8
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]int64, count)
		for i := 0; i < count; i++ {
			vs[i] = int64(binary.LittleEndian.Uint64(buf[off+i*8:]))
		}
		return kval.VLong(attr, vs), base + off + w, nil
	case kval.KE:
		w := count * 4
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]float32, count)
		for i := 0; i < count; i++ {
			vs[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+i*4:]))
		}
		return kval.VReal(attr, vs), base + off + w, nil
	case kval.KF:
		w := count * 8
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]float64, count)
		for i := 0; i < count; i++ {
			vs[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off+i*8:]))
		}
		return kval.VFloat(attr, vs), base + off + w, nil
	case kval.KP:
		w := count * 8
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Timestamp, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Timestamp(int64(binary.LittleEndian.Uint64(buf[off+i*8:])))
		}
		return kval.VTimestamp(attr, vs), base + off + w, nil
	case kval.KM:
		w := count * 4
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Month, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Month(int32(binary.LittleEndian.Uint32(buf[off+i*4:])))
		}
		return kval.VMonth(attr, vs), base + off + w, nil
	case kval.KD:
		w := count * 4
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Date, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Date(int32(binary.LittleEndian.Uint32(buf[off+i*4:])))
		}
		return kval.VDate(attr, vs), base + off + w, nil
	case kval.KZ:
		w := count * 8
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Datetime, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Datetime(math.Float64frombits(binary.LittleEndian.Uint64(buf[off+i*8:])))
		}
		return kval.VDatetime(attr, vs), base + off + w, nil
	case kval.KN:
		w := count * 8
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Timespan, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Timespan(int64(binary.LittleEndian.Uint64(buf[off+i*8:])))
		}
		return kval.VTimespan(attr, vs), base + off + w, nil
	case kval.KU:
		w := count * 4
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Minute, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Minute(int32(binary.LittleEndian.Uint32(buf[off+i*4:])))
		}
		return kval.VMinute(attr, vs), base + off + w, nil
	case kval.KV:
		w := count * 4
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Second, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Second(int32(binary.LittleEndian.Uint32(buf[off+i*4:])))
		}
		return kval.VSecond(attr, vs), base + off + w, nil
	case kval.KT:
		w := count * 4
		if err := need(buf[off:], w); err != nil {
			return kval.Value{}, 0, err
		}
		vs := make([]kval.Time, count)
		for i := 0; i < count; i++ {
			vs[i] = kval.Time(int32(binary.LittleEndian.Uint32(buf[off+i*4:])))
		}
		return kval.VTime(attr, vs), base + off + w, nil
	default:
		return kval.Value{}, 0, kerr.Newf(kerr.UnknownType, "decodeVector: tag %d", tag)
	}
}

func decodeEnumVector(buf []byte, tag kval.Tag, base int) (kval.Value, int, error) {
	attr, n, off, err := vecPrefix(buf)
	if err != nil {
		return kval.Value{}, 0, err
	}
	count := int(n)
	w := count * 8
	if err := need(buf[off:], w); err != nil {
		return kval.Value{}, 0, err
	}
	vs := make([]int64, count)
	for i := 0; i < count; i++ {
		vs[i] = int64(binary.LittleEndian.Uint64(buf[off+i*8:]))
	}
	v, err := kval.VEnum(int(tag-20), attr, vs)
	if err != nil {
		return kval.Value{}, 0, err
	}
	return v, base + off + w, nil
}

func decodeList(buf []byte, ctx *symtab.Table, base int) (kval.Value, int, error) {
	attr, n, off, err := vecPrefix(buf)
	if err != nil {
		return kval.Value{}, 0, err
	}
	elems := make([]kval.Value, n)
	for i := range elems {
		v, m, err := decodeValue(buf[off:], ctx)
		if err != nil {
			return kval.Value{}, 0, err
		}
		elems[i] = v
		off += m
	}
	return kval.VList(attr, elems), base + off, nil
}

func decodeDict(buf []byte, ctx *symtab.Table, base int, tag kval.Tag) (kval.Value, int, error) {
	keys, n1, err := decodeValue(buf, ctx)
	if err != nil {
		return kval.Value{}, 0, err
	}
	values, n2, err := decodeValue(buf[n1:], ctx)
	if err != nil {
		return kval.Value{}, 0, err
	}
	var v kval.Value
	if tag == kval.SD {
		v, err = kval.KSortedDict(keys, values)
	} else {
		v, err = kval.KDict(keys, values)
	}
	if err != nil {
		return kval.Value{}, 0, err
	}
	return v, base + n1 + n2, nil
}

func decodeTable(buf []byte, ctx *symtab.Table, base int) (kval.Value, int, error) {
	if err := need(buf, 2); err != nil {
		return kval.Value{}, 0, err
	}
	attr := kval.Attrib(buf[0])
	if kval.Tag(buf[1]) != kval.XD {
		return kval.Value{}, 0, kerr.Newf(kerr.FramingError, "table: expected inner dict tag 0x%02x, got 0x%02x", kval.XD, buf[1])
	}
	d, n, err := decodeDict(buf[2:], ctx, 0, kval.XD)
	if err != nil {
		return kval.Value{}, 0, err
	}
	keys, err := d.DictKeys()
	if err != nil {
		return kval.Value{}, 0, err
	}
	names, err := keys.VS()
	if err != nil {
		return kval.Value{}, 0, kerr.Wrap(kerr.WrongType, err, "table keys must be symbols")
	}
	values, err := d.DictValues()
	if err != nil {
		return kval.Value{}, 0, err
	}
	cols, err := values.VL()
	if err != nil {
		return kval.Value{}, 0, kerr.Wrap(kerr.WrongType, err, "table values must be a list")
	}
	t, err := kval.KTable(ctx, names, cols)
	if err != nil {
		return kval.Value{}, 0, err
	}
	t = t.WithAttrib(attr)
	return t, base + 2 + n, nil
}

func decodeFunc(buf []byte, base int) (kval.Value, int, error) {
	if err := need(buf, 1); err != nil {
		return kval.Value{}, 0, err
	}
	preludeLen := 4
	if buf[0] == 0 {
		preludeLen = 3
	}
	if err := need(buf, preludeLen+4); err != nil {
		return kval.Value{}, 0, err
	}
	prelude := buf[:preludeLen]
	bodyLen, err := readU32(buf[preludeLen:])
	if err != nil {
		return kval.Value{}, 0, err
	}
	off := preludeLen + 4
	if err := need(buf[off:], int(bodyLen)); err != nil {
		return kval.Value{}, 0, err
	}
	body := buf[off : off+int(bodyLen)]
	v, err := kval.KFunc(prelude, body)
	if err != nil {
		return kval.Value{}, 0, err
	}
	return v, base + off + int(bodyLen), nil
}
