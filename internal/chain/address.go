// Package chain implements the on-chain transaction layer: account
// addresses, entry-function payloads, the raw transaction envelope with its
// fee-payer signing message, Ed25519 authenticators, a REST client for the
// fullnode API, and the custodial signing/submission pipeline.
package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/pacetrade/pacebot/internal/chain/bcs"
)

// AccountAddress is a 32-byte on-chain account address.
type AccountAddress [32]byte

// AddressOne is the framework address 0x1.
var AddressOne = AccountAddress{31: 1}

// ParseAddress parses a hex-literal address such as "0x1" or a full 64-char
// hex string, with or without the 0x prefix. Short literals are left-padded
// with zeros. Malformed input returns an error rather than panicking, since
// addresses regularly arrive from chat input and external services.
func ParseAddress(s string) (AccountAddress, error) {
	var addr AccountAddress
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if h == "" || len(h) > 64 {
		return addr, fmt.Errorf("invalid account address %q", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return addr, fmt.Errorf("invalid account address %q: %w", s, err)
	}
	copy(addr[32-len(b):], b)
	return addr, nil
}

// Hex returns the full-width 0x-prefixed hex form.
func (a AccountAddress) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Short returns the canonical short form with leading zeros trimmed, used in
// API paths.
func (a AccountAddress) Short() string {
	trimmed := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}

// MarshalBCS encodes the address as 32 fixed bytes.
func (a AccountAddress) MarshalBCS(e *bcs.Encoder) {
	e.FixedBytes(a[:])
}

// AddressFromPublicKey derives the single-signer account address for an
// Ed25519 public key: sha3-256(pubkey || 0x00), where 0x00 is the
// single-signature scheme identifier.
func AddressFromPublicKey(pub ed25519.PublicKey) AccountAddress {
	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{0x00})
	var addr AccountAddress
	copy(addr[:], h.Sum(nil))
	return addr
}
