package chain

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/pacetrade/pacebot/internal/chain/bcs"
)

func testPayload() EntryFunction {
	return EntryFunction{
		Module:   ModuleID{Address: AddressOne, Name: "dex_accounts"},
		Function: "delegate_trading_to",
		Args:     [][]byte{bcs.EncodeU64(1)},
	}
}

func testRawTxn() RawTransaction {
	return RawTransaction{
		Sender:                  AddressOne,
		SequenceNumber:          7,
		Payload:                 testPayload(),
		MaxGasAmount:            5000,
		GasUnitPrice:            100,
		ExpirationTimestampSecs: 1700000000,
		ChainID:                 2,
	}
}

func TestFeePayerSigningMessageLayout(t *testing.T) {
	raw := testRawTxn()
	feePayer, _ := ParseAddress("0xabc")
	msg := raw.FeePayerSigningMessage(nil, feePayer)

	// 32-byte domain separator hash, then the enum variant for the
	// fee-payer wrapping.
	if len(msg) <= 33 {
		t.Fatalf("message too short: %d bytes", len(msg))
	}
	if msg[32] != 1 {
		t.Fatalf("variant byte = %d, want 1", msg[32])
	}
	// The raw transaction serialization follows the variant byte.
	if !bytes.Equal(msg[33:33+32], AddressOne[:]) {
		t.Fatal("sender address not at expected offset")
	}
	// The fee payer address is baked into the tail after the empty
	// secondary signer list.
	want := append([]byte{0x00}, feePayer[:]...)
	if !bytes.HasSuffix(msg, want) {
		t.Fatal("fee payer address not at message tail")
	}
}

func TestPlainAndSponsoredMessagesDiffer(t *testing.T) {
	raw := testRawTxn()
	feePayer, _ := ParseAddress("0xabc")
	if bytes.Equal(raw.SigningMessage(), raw.FeePayerSigningMessage(nil, feePayer)) {
		t.Fatal("sponsored signing message must differ from the plain one")
	}
}

func TestNewAccountAuthenticatorRejectsBadWidths(t *testing.T) {
	pub := make([]byte, ed25519.PublicKeySize)
	if _, err := NewAccountAuthenticator(pub, make([]byte, 63)); err == nil {
		t.Fatal("expected error for 63-byte signature")
	}
	if _, err := NewAccountAuthenticator(make([]byte, 31), make([]byte, 64)); err == nil {
		t.Fatal("expected error for 31-byte public key")
	}
	if _, err := NewAccountAuthenticator(pub, make([]byte, 64)); err != nil {
		t.Fatalf("valid widths rejected: %v", err)
	}
}

func TestSignedTransactionFeePayerEncoding(t *testing.T) {
	raw := testRawTxn()
	pub := make([]byte, ed25519.PublicKeySize)
	sig := make([]byte, ed25519.SignatureSize)
	auth, err := NewAccountAuthenticator(pub, sig)
	if err != nil {
		t.Fatal(err)
	}
	feePayer, _ := ParseAddress("0xabc")

	plain := bcs.Encode(NewSignedTransaction(raw, auth))
	sponsored := bcs.Encode(NewFeePayerSignedTransaction(raw, auth, feePayer, auth))

	rawLen := len(bcs.Encode(raw))
	if plain[rawLen] != 0 {
		t.Fatalf("plain authenticator variant = %d, want 0", plain[rawLen])
	}
	if sponsored[rawLen] != 3 {
		t.Fatalf("fee payer authenticator variant = %d, want 3", sponsored[rawLen])
	}
	if len(sponsored) <= len(plain) {
		t.Fatal("sponsored encoding should carry the extra fee payer authenticator")
	}
}

func TestSignatureFromRSPadsShortScalars(t *testing.T) {
	// r stripped to 62 chars, s full width.
	r := strings.Repeat("a", 62)
	s := strings.Repeat("b", 64)
	sig, err := signatureFromRS(r, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != ed25519.SignatureSize {
		t.Fatalf("signature is %d bytes, want 64", len(sig))
	}
	if sig[0] != 0x00 {
		t.Fatal("short r scalar not left-padded")
	}
	if sig[32] != 0xbb {
		t.Fatal("s scalar misaligned")
	}
}

func TestSignatureFromRSRejectsOversizedScalar(t *testing.T) {
	if _, err := signatureFromRS(strings.Repeat("a", 66), strings.Repeat("b", 64)); err == nil {
		t.Fatal("expected error for oversized scalar")
	}
}
