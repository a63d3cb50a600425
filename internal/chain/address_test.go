package chain

import (
	"crypto/ed25519"
	"testing"
)

func TestParseAddressShortForm(t *testing.T) {
	addr, err := ParseAddress("0x1")
	if err != nil {
		t.Fatal(err)
	}
	if addr != AddressOne {
		t.Fatalf("0x1 parsed to %s", addr.Hex())
	}
	if addr.Short() != "0x1" {
		t.Fatalf("short form = %s, want 0x1", addr.Short())
	}
}

func TestParseAddressFullWidth(t *testing.T) {
	full := "0x6555ba01030b366f91c999ac943325096495b339d81e216a2af45e1023609f02"
	addr, err := ParseAddress(full)
	if err != nil {
		t.Fatal(err)
	}
	if addr.Hex() != full {
		t.Fatalf("round trip = %s", addr.Hex())
	}
}

func TestParseAddressOddLength(t *testing.T) {
	addr, err := ParseAddress("abc")
	if err != nil {
		t.Fatal(err)
	}
	if addr.Short() != "0xabc" {
		t.Fatalf("got %s, want 0xabc", addr.Short())
	}
}

func TestParseAddressRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "0x", "0xzz", "not an address", "0x" + string(make([]byte, 70))} {
		if _, err := ParseAddress(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestAddressFromPublicKeyIsDeterministic(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	a := AddressFromPublicKey(pub)
	b := AddressFromPublicKey(pub)
	if a != b {
		t.Fatal("derivation not deterministic")
	}
	var zero AccountAddress
	if a == zero {
		t.Fatal("derived zero address")
	}
}
