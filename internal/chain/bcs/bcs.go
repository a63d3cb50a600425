// Package bcs implements the subset of the chain's canonical binary
// serialization needed to encode entry-function arguments and transaction
// envelopes: little-endian fixed-width integers, booleans, ULEB128-prefixed
// byte strings and sequences, options and enum variant tags.
package bcs

import (
	"encoding/binary"
	"fmt"
)

// Encoder accumulates canonically encoded bytes. The zero value is ready to
// use.
type Encoder struct {
	buf []byte
}

// Bytes returns the encoded output.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// U8 appends a single byte.
func (e *Encoder) U8(v uint8) {
	e.buf = append(e.buf, v)
}

// U16 appends a little-endian u16.
func (e *Encoder) U16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// U32 appends a little-endian u32.
func (e *Encoder) U32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// U64 appends a little-endian u64.
func (e *Encoder) U64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// Bool appends 0x01 for true, 0x00 for false.
func (e *Encoder) Bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// Uleb128 appends an unsigned LEB128 varint, used for sequence lengths and
// enum variant indices.
func (e *Encoder) Uleb128(v uint32) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v&0x7f)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteBytes appends a ULEB128 length prefix followed by the raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.Uleb128(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// String appends a string as length-prefixed UTF-8 bytes.
func (e *Encoder) String(s string) {
	e.WriteBytes([]byte(s))
}

// FixedBytes appends raw bytes with no length prefix, for fixed-width values
// such as 32-byte account addresses.
func (e *Encoder) FixedBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// OptionTag appends the option discriminant: 0x00 for None, 0x01 for Some.
// A Some value must be encoded immediately after by the caller.
func (e *Encoder) OptionTag(some bool) {
	e.Bool(some)
}

// Marshaler is implemented by types that know their own canonical encoding.
type Marshaler interface {
	MarshalBCS(e *Encoder)
}

// Encode serializes a Marshaler into a fresh byte slice.
func Encode(m Marshaler) []byte {
	var e Encoder
	m.MarshalBCS(&e)
	return e.Bytes()
}

// EncodeU64 serializes a bare u64 argument.
func EncodeU64(v uint64) []byte {
	var e Encoder
	e.U64(v)
	return e.Bytes()
}

// EncodeBool serializes a bare bool argument.
func EncodeBool(v bool) []byte {
	var e Encoder
	e.Bool(v)
	return e.Bytes()
}

// EncodeOptionU64 serializes an optional u64: nil encodes as the single None
// byte, matching the chain's native optional encoding.
func EncodeOptionU64(v *uint64) []byte {
	var e Encoder
	if v == nil {
		e.OptionTag(false)
	} else {
		e.OptionTag(true)
		e.U64(*v)
	}
	return e.Bytes()
}

// EncodeOption serializes an optional nested value.
func EncodeOption(m Marshaler) []byte {
	var e Encoder
	if m == nil {
		e.OptionTag(false)
	} else {
		e.OptionTag(true)
		m.MarshalBCS(&e)
	}
	return e.Bytes()
}

// Uleb128Decode reads a ULEB128 varint from b, returning the value and the
// number of bytes consumed. Used only by tests and diagnostics.
func Uleb128Decode(b []byte) (uint32, int, error) {
	var v uint32
	var shift uint
	for i, c := range b {
		v |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
		if shift > 28 {
			return 0, 0, fmt.Errorf("uleb128 value exceeds u32")
		}
	}
	return 0, 0, fmt.Errorf("uleb128 input truncated")
}
