package signer

import (
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// exportTarget is the ephemeral key an export bundle is encrypted to. One
// target per export; the key never touches disk.
type exportTarget struct {
	key *ecies.PrivateKey
}

func newExportTarget() (*exportTarget, error) {
	key, err := ecies.GenerateKey(rand.Reader, elliptic.P256(), nil)
	if err != nil {
		return nil, err
	}
	return &exportTarget{key: key}, nil
}

// publicKeyHex returns the uncompressed point the custodian encrypts to.
func (t *exportTarget) publicKeyHex() string {
	pub := t.key.PublicKey
	return hex.EncodeToString(elliptic.Marshal(pub.Curve, pub.X, pub.Y))
}

// decryptBundle opens a hex-encoded export bundle and returns the 32-byte
// key seed inside.
func (t *exportTarget) decryptBundle(bundle string) ([]byte, error) {
	ct, err := hex.DecodeString(strings.TrimPrefix(bundle, "0x"))
	if err != nil {
		return nil, fmt.Errorf("malformed bundle: %w", err)
	}
	seed, err := t.key.Decrypt(ct, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(seed) != 32 {
		return nil, fmt.Errorf("bundle holds %d bytes, want a 32-byte seed", len(seed))
	}
	return seed, nil
}
