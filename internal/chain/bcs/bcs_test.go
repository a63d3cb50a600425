package bcs

import (
	"bytes"
	"testing"
)

func TestUleb128(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		var e Encoder
		e.Uleb128(tt.v)
		if !bytes.Equal(e.Bytes(), tt.want) {
			t.Fatalf("uleb128(%d) = %x, want %x", tt.v, e.Bytes(), tt.want)
		}
		got, n, err := Uleb128Decode(tt.want)
		if err != nil || got != tt.v || n != len(tt.want) {
			t.Fatalf("decode(%x) = %d/%d/%v, want %d", tt.want, got, n, err, tt.v)
		}
	}
}

func TestU64LittleEndian(t *testing.T) {
	var e Encoder
	e.U64(0x0102030405060708)
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("u64 = %x, want %x", e.Bytes(), want)
	}
}

func TestOptionNoneIsSingleZeroByte(t *testing.T) {
	if got := EncodeOptionU64(nil); !bytes.Equal(got, []byte{0x00}) {
		t.Fatalf("None = %x, want 00", got)
	}
	v := uint64(7)
	want := []byte{0x01, 0x07, 0, 0, 0, 0, 0, 0, 0}
	if got := EncodeOptionU64(&v); !bytes.Equal(got, want) {
		t.Fatalf("Some(7) = %x, want %x", got, want)
	}
}

func TestWriteBytesLengthPrefix(t *testing.T) {
	var e Encoder
	e.WriteBytes([]byte{0xaa, 0xbb})
	want := []byte{0x02, 0xaa, 0xbb}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("bytes = %x, want %x", e.Bytes(), want)
	}
}
