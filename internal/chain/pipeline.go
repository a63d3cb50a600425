package chain

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RemoteSigner is the custodial key service holding user wallets. Keys never
// leave it except through the explicit export flow.
type RemoteSigner interface {
	// CreateWallet provisions a wallet and returns its id and the derived
	// account addresses.
	CreateWallet(ctx context.Context, name string) (walletID string, addresses []string, err error)
	// SignRawPayload signs the hex-encoded payload with the key identified
	// by signWith and returns the signature scalars as hex strings, which
	// may be shorter than 64 chars when the scalar has leading zeros.
	SignRawPayload(ctx context.Context, signWith, payloadHex string) (r, s string, err error)
	// ExportPrivateKey releases the hex-encoded private key for an address.
	ExportPrivateKey(ctx context.Context, address string) (string, error)
}

// ServiceConfig carries the gas and expiry parameters applied to every
// transaction the service builds.
type ServiceConfig struct {
	MaxGasAmount uint64
	GasUnitPrice uint64
	TxnExpiry    time.Duration
}

// WalletCredential is a freshly provisioned custodial wallet.
type WalletCredential struct {
	WalletID  string
	Address   string
	PublicKey string
}

// Service builds, signs and submits transactions. User transactions are
// sponsored: the remote signer signs as sender while the service's own key
// signs as fee payer, so users never need gas.
type Service struct {
	client         *Client
	signer         RemoteSigner
	sponsorKey     ed25519.PrivateKey
	sponsorAddress AccountAddress
	cfg            ServiceConfig
	logger         zerolog.Logger
}

// NewService derives the sponsor identity from its private key seed and wires
// the REST client and remote signer together.
func NewService(client *Client, remote RemoteSigner, sponsorKeyHex string, cfg ServiceConfig) (*Service, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(sponsorKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding sponsor key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("sponsor key is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	key := ed25519.NewKeyFromSeed(seed)
	addr := AddressFromPublicKey(key.Public().(ed25519.PublicKey))

	s := &Service{
		client:         client,
		signer:         remote,
		sponsorKey:     key,
		sponsorAddress: addr,
		cfg:            cfg,
		logger:         log.With().Str("component", "pipeline").Logger(),
	}
	s.logger.Info().Str("sponsor", addr.Short()).Msg("Fee payer initialized")
	return s, nil
}

// SponsorAddress returns the fee payer's account address.
func (s *Service) SponsorAddress() AccountAddress {
	return s.sponsorAddress
}

// View proxies a read-only call to the fullnode.
func (s *Service) View(ctx context.Context, req ViewRequest) ([]json.RawMessage, error) {
	return s.client.View(ctx, req)
}

// SubmitWithFeePayer builds a sponsored transaction for the given sender,
// collects the sender's signature from the remote signer and the fee payer's
// locally, submits, and waits for execution. Returns the transaction hash.
func (s *Service) SubmitWithFeePayer(ctx context.Context, senderAddress, senderPublicKey string, payload EntryFunction) (string, error) {
	sender, pub, err := s.senderIdentity(senderAddress, senderPublicKey)
	if err != nil {
		return "", err
	}
	raw, err := s.buildRawTransaction(ctx, sender, payload)
	if err != nil {
		return "", err
	}

	msg := raw.FeePayerSigningMessage(nil, s.sponsorAddress)
	senderAuth, err := s.remoteSign(ctx, senderAddress, pub, msg)
	if err != nil {
		return "", err
	}
	sponsorAuth, err := NewAccountAuthenticator(s.sponsorKey.Public().(ed25519.PublicKey), ed25519.Sign(s.sponsorKey, msg))
	if err != nil {
		return "", err
	}

	signed := NewFeePayerSignedTransaction(raw, senderAuth, s.sponsorAddress, sponsorAuth)
	hash, err := s.client.SubmitAndWait(ctx, signed)
	if err != nil {
		return "", err
	}
	s.logger.Info().
		Str("sender", sender.Short()).
		Str("function", payload.Module.Name+"::"+payload.Function).
		Str("hash", hash).
		Msg("Sponsored transaction executed")
	return hash, nil
}

// SubmitAsSender builds and submits a plain transaction where the sender also
// pays gas, still signed by the remote signer.
func (s *Service) SubmitAsSender(ctx context.Context, senderAddress, senderPublicKey string, payload EntryFunction) (string, error) {
	sender, pub, err := s.senderIdentity(senderAddress, senderPublicKey)
	if err != nil {
		return "", err
	}
	raw, err := s.buildRawTransaction(ctx, sender, payload)
	if err != nil {
		return "", err
	}

	senderAuth, err := s.remoteSign(ctx, senderAddress, pub, raw.SigningMessage())
	if err != nil {
		return "", err
	}
	return s.client.SubmitAndWait(ctx, NewSignedTransaction(raw, senderAuth))
}

// CreateWallet provisions a custodial wallet and resolves its public key by
// round-tripping the key material through the export flow, since the signer
// only reports derived addresses.
func (s *Service) CreateWallet(ctx context.Context, name string) (WalletCredential, error) {
	walletID, addresses, err := s.signer.CreateWallet(ctx, name)
	if err != nil {
		return WalletCredential{}, fmt.Errorf("creating wallet: %w", err)
	}
	if len(addresses) != 1 {
		return WalletCredential{}, fmt.Errorf("wallet %s has %d addresses, want exactly 1", walletID, len(addresses))
	}
	address := addresses[0]

	keyHex, err := s.signer.ExportPrivateKey(ctx, address)
	if err != nil {
		return WalletCredential{}, fmt.Errorf("resolving public key for %s: %w", address, err)
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(keyHex, "0x"))
	if err != nil || len(seed) != ed25519.SeedSize {
		return WalletCredential{}, fmt.Errorf("wallet %s returned malformed key material", walletID)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	s.logger.Info().Str("wallet_id", walletID).Str("address", address).Msg("Custodial wallet created")
	return WalletCredential{
		WalletID:  walletID,
		Address:   address,
		PublicKey: hex.EncodeToString(pub),
	}, nil
}

// ExportPrivateKey releases a wallet's private key through the signer's
// export flow.
func (s *Service) ExportPrivateKey(ctx context.Context, address string) (string, error) {
	return s.signer.ExportPrivateKey(ctx, address)
}

func (s *Service) senderIdentity(address, publicKey string) (AccountAddress, ed25519.PublicKey, error) {
	sender, err := ParseAddress(address)
	if err != nil {
		return AccountAddress{}, nil, err
	}
	pub, err := hex.DecodeString(strings.TrimPrefix(publicKey, "0x"))
	if err != nil {
		return AccountAddress{}, nil, fmt.Errorf("decoding sender public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return AccountAddress{}, nil, fmt.Errorf("sender public key is %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	return sender, ed25519.PublicKey(pub), nil
}

func (s *Service) buildRawTransaction(ctx context.Context, sender AccountAddress, payload EntryFunction) (RawTransaction, error) {
	seq, err := s.client.AccountSequenceNumber(ctx, sender)
	if err != nil {
		return RawTransaction{}, err
	}
	return RawTransaction{
		Sender:                  sender,
		SequenceNumber:          seq,
		Payload:                 payload,
		MaxGasAmount:            s.cfg.MaxGasAmount,
		GasUnitPrice:            s.cfg.GasUnitPrice,
		ExpirationTimestampSecs: uint64(time.Now().Add(s.cfg.TxnExpiry).Unix()),
		ChainID:                 s.client.ChainID(),
	}, nil
}

func (s *Service) remoteSign(ctx context.Context, signWith string, pub ed25519.PublicKey, msg []byte) (AccountAuthenticator, error) {
	rHex, sHex, err := s.signer.SignRawPayload(ctx, signWith, hex.EncodeToString(msg))
	if err != nil {
		return AccountAuthenticator{}, fmt.Errorf("remote signing: %w", err)
	}
	sig, err := signatureFromRS(rHex, sHex)
	if err != nil {
		return AccountAuthenticator{}, err
	}
	return NewAccountAuthenticator(pub, sig)
}

// signatureFromRS assembles a 64-byte Ed25519 signature from the signer's r
// and s hex scalars, left-padding each to 32 bytes. Scalars with stripped
// leading zeros are common in signer responses and must not be rejected.
func signatureFromRS(rHex, sHex string) ([]byte, error) {
	r, err := scalarBytes(rHex)
	if err != nil {
		return nil, fmt.Errorf("signature r: %w", err)
	}
	s, err := scalarBytes(sHex)
	if err != nil {
		return nil, fmt.Errorf("signature s: %w", err)
	}
	return append(r, s...), nil
}

func scalarBytes(h string) ([]byte, error) {
	h = strings.TrimPrefix(h, "0x")
	if len(h) > 64 {
		return nil, fmt.Errorf("scalar %q longer than 32 bytes", h)
	}
	h = strings.Repeat("0", 64-len(h)) + h
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("malformed scalar %q: %w", h, err)
	}
	return b, nil
}
