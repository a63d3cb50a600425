package chain

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeSigner struct {
	key        ed25519.PrivateKey
	signCalls  int
	lastSigned []byte
}

func (f *fakeSigner) CreateWallet(ctx context.Context, name string) (string, []string, error) {
	addr := AddressFromPublicKey(f.key.Public().(ed25519.PublicKey))
	return "wallet-1", []string{addr.Hex()}, nil
}

func (f *fakeSigner) SignRawPayload(ctx context.Context, signWith, payloadHex string) (string, string, error) {
	f.signCalls++
	msg, err := hex.DecodeString(payloadHex)
	if err != nil {
		return "", "", err
	}
	f.lastSigned = msg
	sig := ed25519.Sign(f.key, msg)
	// Strip leading zeros the way remote signers report scalars.
	r := strings.TrimLeft(hex.EncodeToString(sig[:32]), "0")
	s := strings.TrimLeft(hex.EncodeToString(sig[32:]), "0")
	return r, s, nil
}

func (f *fakeSigner) ExportPrivateKey(ctx context.Context, address string) (string, error) {
	return hex.EncodeToString(f.key.Seed()), nil
}

func testNode(t *testing.T, submitted *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/":
			fmt.Fprint(w, `{"chain_id": 2}`)
		case strings.HasPrefix(r.URL.Path, "/v1/accounts/"):
			fmt.Fprint(w, `{"sequence_number": "11"}`)
		case r.URL.Path == "/v1/transactions" && r.Method == http.MethodPost:
			if ct := r.Header.Get("Content-Type"); ct != signedTxnContentType {
				t.Errorf("submit content type = %q", ct)
			}
			*submitted++
			fmt.Fprint(w, `{"hash": "0xfeed"}`)
		case strings.HasPrefix(r.URL.Path, "/v1/transactions/by_hash/"):
			fmt.Fprint(w, `{"type": "user_transaction", "success": true, "vm_status": "Executed successfully"}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestService(t *testing.T, node *httptest.Server, remote RemoteSigner) *Service {
	t.Helper()
	client, err := NewClient(node.URL)
	if err != nil {
		t.Fatal(err)
	}
	sponsorSeed := strings.Repeat("11", 32)
	svc, err := NewService(client, remote, sponsorSeed, ServiceConfig{MaxGasAmount: 5000, GasUnitPrice: 100, TxnExpiry: 30 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestSubmitWithFeePayer(t *testing.T) {
	submitted := 0
	node := testNode(t, &submitted)
	defer node.Close()

	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 0x42
	remote := &fakeSigner{key: ed25519.NewKeyFromSeed(seed)}
	svc := newTestService(t, node, remote)

	sender := AddressFromPublicKey(remote.key.Public().(ed25519.PublicKey))
	pub := hex.EncodeToString(remote.key.Public().(ed25519.PublicKey))

	hash, err := svc.SubmitWithFeePayer(context.Background(), sender.Hex(), pub, testPayload())
	if err != nil {
		t.Fatal(err)
	}
	if hash != "0xfeed" {
		t.Fatalf("hash = %s", hash)
	}
	if submitted != 1 {
		t.Fatalf("submitted %d transactions, want 1", submitted)
	}
	if remote.signCalls != 1 {
		t.Fatalf("remote signer called %d times, want 1", remote.signCalls)
	}
}

func TestSubmitAsSender(t *testing.T) {
	submitted := 0
	node := testNode(t, &submitted)
	defer node.Close()

	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 0x43
	remote := &fakeSigner{key: ed25519.NewKeyFromSeed(seed)}
	svc := newTestService(t, node, remote)

	sender := AddressFromPublicKey(remote.key.Public().(ed25519.PublicKey))
	pub := hex.EncodeToString(remote.key.Public().(ed25519.PublicKey))

	hash, err := svc.SubmitAsSender(context.Background(), sender.Hex(), pub, testPayload())
	if err != nil {
		t.Fatal(err)
	}
	if hash != "0xfeed" {
		t.Fatalf("hash = %s", hash)
	}
	if submitted != 1 {
		t.Fatalf("submitted %d transactions, want 1", submitted)
	}
	if remote.signCalls != 1 {
		t.Fatalf("remote signer called %d times, want 1", remote.signCalls)
	}
	// The remote signer sees the plain signing message, not the sponsored one.
	if len(remote.lastSigned) < 32 || !bytes.Equal(remote.lastSigned[:32], rawTxnSalt[:]) {
		t.Fatal("sender-paid message must carry the plain transaction salt")
	}
	if bytes.Equal(remote.lastSigned[:32], rawTxnWithDataSalt[:]) {
		t.Fatal("sender-paid message must not use the sponsored envelope")
	}
}

func TestSubmitWithFeePayerRejectsBadPublicKey(t *testing.T) {
	submitted := 0
	node := testNode(t, &submitted)
	defer node.Close()

	remote := &fakeSigner{key: ed25519.NewKeyFromSeed(make([]byte, 32))}
	svc := newTestService(t, node, remote)

	_, err := svc.SubmitWithFeePayer(context.Background(), "0x1", "deadbeef", testPayload())
	if err == nil {
		t.Fatal("expected error for truncated public key")
	}
	if submitted != 0 {
		t.Fatal("nothing should be submitted on identity errors")
	}
}

func TestCreateWalletResolvesPublicKey(t *testing.T) {
	submitted := 0
	node := testNode(t, &submitted)
	defer node.Close()

	seed := make([]byte, ed25519.SeedSize)
	seed[5] = 0x07
	remote := &fakeSigner{key: ed25519.NewKeyFromSeed(seed)}
	svc := newTestService(t, node, remote)

	cred, err := svc.CreateWallet(context.Background(), "user-wallet")
	if err != nil {
		t.Fatal(err)
	}
	if cred.WalletID != "wallet-1" {
		t.Fatalf("wallet id = %s", cred.WalletID)
	}
	wantPub := hex.EncodeToString(remote.key.Public().(ed25519.PublicKey))
	if cred.PublicKey != wantPub {
		t.Fatalf("public key = %s, want %s", cred.PublicKey, wantPub)
	}
}
