package chain

import (
	"crypto/ed25519"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/pacetrade/pacebot/internal/chain/bcs"
)

// Enum variant indices for the envelope types.
const (
	rawTxnWithDataVariantFeePayer = 1

	accountAuthenticatorVariantEd25519 = 0

	txnAuthenticatorVariantEd25519  = 0
	txnAuthenticatorVariantFeePayer = 3
)

// Signing-message domain separators. The hash of the separator string is
// prepended to the serialized message before signing.
var (
	rawTxnSalt         = sha3.Sum256([]byte("APTOS::RawTransaction"))
	rawTxnWithDataSalt = sha3.Sum256([]byte("APTOS::RawTransactionWithData"))
)

// RawTransaction is the unsigned transaction envelope.
type RawTransaction struct {
	Sender                  AccountAddress
	SequenceNumber          uint64
	Payload                 EntryFunction
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
	ChainID                 uint8
}

// MarshalBCS encodes the envelope in canonical field order.
func (t RawTransaction) MarshalBCS(e *bcs.Encoder) {
	t.Sender.MarshalBCS(e)
	e.U64(t.SequenceNumber)
	t.Payload.MarshalBCS(e)
	e.U64(t.MaxGasAmount)
	e.U64(t.GasUnitPrice)
	e.U64(t.ExpirationTimestampSecs)
	e.U8(t.ChainID)
}

// SigningMessage returns the bytes a single signer must sign for a plain
// (non-sponsored) transaction.
func (t RawTransaction) SigningMessage() []byte {
	msg := append([]byte{}, rawTxnSalt[:]...)
	return append(msg, bcs.Encode(t)...)
}

// FeePayerSigningMessage returns the bytes every party to a sponsored
// transaction signs: the multi-agent-with-fee-payer wrapping of the raw
// transaction. The sender and the fee payer sign the exact same message, with
// the fee payer's address baked in.
func (t RawTransaction) FeePayerSigningMessage(secondarySigners []AccountAddress, feePayer AccountAddress) []byte {
	var e bcs.Encoder
	e.Uleb128(rawTxnWithDataVariantFeePayer)
	t.MarshalBCS(&e)
	e.Uleb128(uint32(len(secondarySigners)))
	for _, s := range secondarySigners {
		s.MarshalBCS(&e)
	}
	feePayer.MarshalBCS(&e)
	msg := append([]byte{}, rawTxnWithDataSalt[:]...)
	return append(msg, e.Bytes()...)
}

// AccountAuthenticator is a single account's Ed25519 signature over the
// signing message.
type AccountAuthenticator struct {
	PublicKey ed25519.PublicKey
	Signature []byte
}

// NewAccountAuthenticator validates key and signature widths before building
// the authenticator. Signatures assembled from remote signer responses can be
// short, so this is a checked constructor rather than a bare struct literal.
func NewAccountAuthenticator(pub ed25519.PublicKey, sig []byte) (AccountAuthenticator, error) {
	if len(pub) != ed25519.PublicKeySize {
		return AccountAuthenticator{}, fmt.Errorf("public key is %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	if len(sig) != ed25519.SignatureSize {
		return AccountAuthenticator{}, fmt.Errorf("signature is %d bytes, want %d", len(sig), ed25519.SignatureSize)
	}
	return AccountAuthenticator{PublicKey: pub, Signature: sig}, nil
}

// MarshalBCS encodes the Ed25519 variant of the account authenticator enum.
func (a AccountAuthenticator) MarshalBCS(e *bcs.Encoder) {
	e.Uleb128(accountAuthenticatorVariantEd25519)
	e.WriteBytes(a.PublicKey)
	e.WriteBytes(a.Signature)
}

// SignedTransaction pairs a raw transaction with its transaction
// authenticator. Exactly one of the two shapes is populated: a plain
// single-signer Ed25519 authenticator, or a fee-payer authenticator carrying
// the sponsor's address and signature alongside the sender's.
type SignedTransaction struct {
	Raw RawTransaction

	Sender AccountAuthenticator

	feePayer     bool
	FeePayerAddr AccountAddress
	FeePayerAuth AccountAuthenticator
}

// NewSignedTransaction builds a plain single-signer transaction.
func NewSignedTransaction(raw RawTransaction, sender AccountAuthenticator) SignedTransaction {
	return SignedTransaction{Raw: raw, Sender: sender}
}

// NewFeePayerSignedTransaction builds a sponsored transaction where feePayer
// covers gas. No secondary signers are involved in any flow here.
func NewFeePayerSignedTransaction(raw RawTransaction, sender AccountAuthenticator, feePayerAddr AccountAddress, feePayerAuth AccountAuthenticator) SignedTransaction {
	return SignedTransaction{
		Raw:          raw,
		Sender:       sender,
		feePayer:     true,
		FeePayerAddr: feePayerAddr,
		FeePayerAuth: feePayerAuth,
	}
}

// MarshalBCS encodes the signed transaction for submission.
func (s SignedTransaction) MarshalBCS(e *bcs.Encoder) {
	s.Raw.MarshalBCS(e)
	if !s.feePayer {
		e.Uleb128(txnAuthenticatorVariantEd25519)
		e.WriteBytes(s.Sender.PublicKey)
		e.WriteBytes(s.Sender.Signature)
		return
	}
	e.Uleb128(txnAuthenticatorVariantFeePayer)
	s.Sender.MarshalBCS(e)
	// Secondary signer addresses and authenticators, both empty.
	e.Uleb128(0)
	e.Uleb128(0)
	s.FeePayerAddr.MarshalBCS(e)
	s.FeePayerAuth.MarshalBCS(e)
}
