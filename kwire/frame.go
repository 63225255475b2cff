// Package kwire implements the bit-exact kdb+ IPC wire codec: the 8-byte
// frame header (§4.1.1), the recursive payload encoding for every K value
// kind (§4.1.2), and the compression flag (§4.1.3). The persisted
// single-value file format (§6.2) is implemented by kfile on top of this
// package's payload codec.
//
// The header is parsed from and built into byte slices rather than via
// an io.Reader, and the payload encoder and decoder dispatch on the
// value's type tag with switch statements, little-endian throughout to
// match kdb+'s native byte order.
package kwire

import (
	"encoding/binary"

	"github.com/kxipc/kxipc/kerr"
)

// HeaderSize is the fixed size of the frame header (§4.1.1).
const HeaderSize = 8

// MsgType identifies the frame's role on the wire.
type MsgType uint8

const (
	Async    MsgType = 0
	Sync     MsgType = 1
	Response MsgType = 2
)

// Flags is the 16-bit header flags field (§4.1.1).
type Flags uint16

const (
	FlagsRaw        Flags = 0
	FlagsCompressed Flags = 1
)

// Header is the parsed 8-byte frame header.
type Header struct {
	Version uint8
	MsgType MsgType
	Flags   Flags
	MsgLen  uint32 // total frame length, including the 8-byte header
}

// PutHeader writes h into buf[:8]. buf must have length >= HeaderSize.
func PutHeader(buf []byte, h Header) {
	buf[0] = h.Version
	buf[1] = byte(h.MsgType)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(h.Flags))
	binary.LittleEndian.PutUint32(buf[4:8], h.MsgLen)
}

// ParseHeader reads the 8-byte frame header from buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, kerr.New(kerr.Truncated, "frame header: need 8 bytes")
	}
	h := Header{
		Version: buf[0],
		MsgType: MsgType(buf[1]),
		Flags:   Flags(binary.LittleEndian.Uint16(buf[2:4])),
		MsgLen:  binary.LittleEndian.Uint32(buf[4:8]),
	}
	if h.Flags != FlagsRaw && h.Flags != FlagsCompressed {
		return Header{}, kerr.Newf(kerr.UnsupportedFlags, "flags=%d", h.Flags)
	}
	return h, nil
}
