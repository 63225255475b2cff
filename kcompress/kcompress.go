// Package kcompress implements the kdb+ IPC payload compressor and
// decompressor (§4.2): a 256-slot hash-table LZ variant where back-copies
// read from a position computed by XOR-hashing the two preceding bytes,
// and may overlap their own destination to encode a repeating run.
//
// This is a bespoke single-pass byte format with no framing in common
// with gzip/zlib, so it grows its output by explicit length tracking and
// appends into a pre-sized slice rather than going through compress/flate.
package kcompress

import (
	"encoding/binary"

	"github.com/kxipc/kxipc/kerr"
)

// headerSize is the length of the 4-byte prefix of a compressed payload,
// which holds original_size + frameHeaderSize (§4.2).
const headerSize = 4

// frameHeaderSize is the frame header length counted into the declared
// size alongside the original payload.
const frameHeaderSize = 8

const maxCopyLen = 257 // n (1 byte, 0..255) + 2

// Decompress expands a compressed payload (header + instruction stream)
// back to its original bytes. The header's declared size is
// original_size + 8; Decompress returns exactly original_size bytes.
func Decompress(in []byte) ([]byte, error) {
	if len(in) < headerSize {
		return nil, kerr.New(kerr.CompressionError, "decompress: input shorter than header")
	}
	declared := binary.LittleEndian.Uint32(in[:headerSize])
	if declared < frameHeaderSize {
		return nil, kerr.Newf(kerr.CompressionError, "decompress: bad header %d", declared)
	}
	origSize := int(declared) - frameHeaderSize
	stream := in[headerSize:]

	out := make([]byte, 0, origSize)
	var hashpos [256]int
	ip := 0
	s := 0 // hash cursor, trails len(out) by at least one position

	advanceHash := func() {
		for s < len(out)-1 {
			hashpos[out[s]^out[s+1]] = s
			s++
		}
	}

	for len(out) < origSize {
		if ip >= len(stream) {
			return nil, kerr.New(kerr.CompressionError, "decompress: instruction stream exhausted before original_size reached")
		}
		ctrl := stream[ip]
		ip++
		for bit := 0; bit < 8 && len(out) < origSize; bit++ {
			if ctrl&1 == 0 {
				if ip >= len(stream) {
					return nil, kerr.New(kerr.CompressionError, "decompress: truncated literal")
				}
				out = append(out, stream[ip])
				ip++
			} else {
				if ip+1 >= len(stream) {
					return nil, kerr.New(kerr.CompressionError, "decompress: truncated back-reference")
				}
				slot := stream[ip]
				n := stream[ip+1]
				ip += 2
				r := hashpos[slot]
				length := int(n) + 2
				if r < 0 || r >= len(out) {
					return nil, kerr.Newf(kerr.CompressionError, "decompress: back-reference position %d out of range (out len %d)", r, len(out))
				}
				start := len(out)
				for k := 0; k < length; k++ {
					if len(out) >= origSize {
						break
					}
					out = append(out, out[r+k])
				}
				// only the first two bytes of a back-copy are hashed; the
				// cursor then skips the rest of the copy
				for s <= start && s < len(out)-1 {
					hashpos[out[s]^out[s+1]] = s
					s++
				}
				s = len(out)
			}
			ctrl >>= 1
			advanceHash()
		}
	}
	return out, nil
}

// Compress produces a compressed payload (header + instruction stream)
// for in, or reports ok=false if the result would not be worth using
// (output would reach at least half of len(in)), per §4.2.
func Compress(in []byte) (out []byte, ok bool) {
	n := len(in)
	if n == 0 {
		return nil, false
	}

	var hashpos [256]int
	var hashed [256]bool
	stream := make([]byte, 0, n)

	var ctrl byte
	var ctrlPos = -1
	bits := 0

	emitBit := func(bit byte) {
		if bits == 0 {
			stream = append(stream, 0)
			ctrlPos = len(stream) - 1
			ctrl = 0
		}
		if bit != 0 {
			ctrl |= 1 << uint(bits)
		}
		bits++
		if bits == 8 {
			stream[ctrlPos] = ctrl
			bits = 0
		}
	}

	s := 0
	// advanceHash hashes every byte pair that starts before consumed-1,
	// mirroring Decompress's cursor; after a back-copy the cursor jumps to
	// the copy's end, so only its first two bytes reach the hash table.
	advanceHash := func(consumed int) {
		for s < consumed-1 {
			h := in[s] ^ in[s+1]
			hashpos[h] = s
			hashed[h] = true
			s++
		}
	}

	ip := 0
	for ip < n {
		matchLen := 0
		matchHash := byte(0)
		if ip+1 < n {
			h := in[ip] ^ in[ip+1]
			if hashed[h] {
				r := hashpos[h]
				if r < ip && in[r] == in[ip] {
					max := maxCopyLen
					for matchLen < max && ip+matchLen < n && in[r+matchLen] == in[ip+matchLen] {
						matchLen++
					}
					matchHash = h
				}
			}
		}

		if matchLen >= 2 {
			emitBit(1)
			stream = append(stream, matchHash, byte(matchLen-2))
			advanceHash(ip + 2)
			ip += matchLen
			s = ip
		} else {
			emitBit(0)
			stream = append(stream, in[ip])
			ip++
			advanceHash(ip)
		}

		if len(stream) >= n/2 {
			return nil, false
		}
	}

	if bits > 0 {
		stream[ctrlPos] = ctrl
	}

	if headerSize+len(stream) >= n/2 {
		return nil, false
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header, uint32(n+frameHeaderSize))
	return append(header, stream...), true
}
