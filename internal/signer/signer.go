// Package signer is a client for the custodial key management API. Every
// request is authenticated with a P-256 API key stamp; wallet private keys
// stay inside the custodian and come out only through the encrypted export
// flow.
package signer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	activityCreateWallet  = "ACTIVITY_TYPE_CREATE_WALLET"
	activitySignPayload   = "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2"
	activityExportAccount = "ACTIVITY_TYPE_EXPORT_WALLET_ACCOUNT"

	activityStatusCompleted = "ACTIVITY_STATUS_COMPLETED"

	stampScheme = "SIGNATURE_SCHEME_TK_API_P256"

	// Derivation settings for the chain's account format. Existing wallets
	// were derived at this path, so changing it would resolve different keys.
	accountCurve         = "CURVE_ED25519"
	accountPathFormat    = "PATH_FORMAT_BIP32"
	accountPath          = "m/44'/60'/0'/0"
	accountAddressFormat = "ADDRESS_FORMAT_APTOS"
)

// Config locates the custodian and the API key used to stamp requests.
type Config struct {
	BaseURL        string
	OrganizationID string
	APIPublicKey   string
	APIPrivateKey  string
}

// Client calls the custodian's activity API.
type Client struct {
	baseURL        string
	organizationID string
	apiPublicKey   string
	apiKey         *ecdsa.PrivateKey
	httpClient     *http.Client
	logger         zerolog.Logger
}

// New parses the P-256 API private key and builds a client.
func New(cfg Config) (*Client, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(cfg.APIPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding API private key: %w", err)
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("API private key out of curve range")
	}
	key := &ecdsa.PrivateKey{D: d}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(raw)

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		organizationID: cfg.OrganizationID,
		apiPublicKey:   cfg.APIPublicKey,
		apiKey:         key,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		logger:         log.With().Str("component", "signer").Logger(),
	}, nil
}

type activityRequest struct {
	Type           string `json:"type"`
	TimestampMs    string `json:"timestampMs"`
	OrganizationID string `json:"organizationId"`
	Parameters     any    `json:"parameters"`
}

type activityResponse struct {
	Activity struct {
		Status string `json:"status"`
		Result struct {
			CreateWalletResult *struct {
				WalletID  string   `json:"walletId"`
				Addresses []string `json:"addresses"`
			} `json:"createWalletResult"`
			SignRawPayloadResult *struct {
				R string `json:"r"`
				S string `json:"s"`
				V string `json:"v"`
			} `json:"signRawPayloadResult"`
			ExportWalletAccountResult *struct {
				Address      string `json:"address"`
				ExportBundle string `json:"exportBundle"`
			} `json:"exportWalletAccountResult"`
		} `json:"result"`
	} `json:"activity"`
}

// CreateWallet provisions an Ed25519 wallet with a single derived account.
func (c *Client) CreateWallet(ctx context.Context, name string) (string, []string, error) {
	params := map[string]any{
		"walletName": name,
		"accounts": []map[string]string{{
			"curve":         accountCurve,
			"pathFormat":    accountPathFormat,
			"path":          accountPath,
			"addressFormat": accountAddressFormat,
		}},
	}
	resp, err := c.submit(ctx, "/public/v1/submit/create_wallet", activityCreateWallet, params)
	if err != nil {
		return "", nil, err
	}
	result := resp.Activity.Result.CreateWalletResult
	if result == nil {
		return "", nil, fmt.Errorf("create_wallet activity returned no result")
	}
	c.logger.Info().Str("wallet_id", result.WalletID).Msg("Wallet provisioned")
	return result.WalletID, result.Addresses, nil
}

// SignRawPayload signs a hex payload with the key behind signWith. The
// payload is signed as-is; hashing already happened on our side.
func (c *Client) SignRawPayload(ctx context.Context, signWith, payloadHex string) (string, string, error) {
	params := map[string]string{
		"signWith":     signWith,
		"payload":      payloadHex,
		"encoding":     "PAYLOAD_ENCODING_HEXADECIMAL",
		"hashFunction": "HASH_FUNCTION_NOT_APPLICABLE",
	}
	resp, err := c.submit(ctx, "/public/v1/submit/sign_raw_payload", activitySignPayload, params)
	if err != nil {
		return "", "", err
	}
	result := resp.Activity.Result.SignRawPayloadResult
	if result == nil {
		return "", "", fmt.Errorf("sign_raw_payload activity returned no result")
	}
	return result.R, result.S, nil
}

// ExportPrivateKey runs the export flow for an address: a fresh ephemeral
// P-256 key is generated, the custodian encrypts the key material to it, and
// the bundle is decrypted locally. Returns the hex private key seed.
func (c *Client) ExportPrivateKey(ctx context.Context, address string) (string, error) {
	target, err := newExportTarget()
	if err != nil {
		return "", fmt.Errorf("generating export key: %w", err)
	}
	params := map[string]string{
		"address":         address,
		"targetPublicKey": target.publicKeyHex(),
	}
	resp, err := c.submit(ctx, "/public/v1/submit/export_wallet_account", activityExportAccount, params)
	if err != nil {
		return "", err
	}
	result := resp.Activity.Result.ExportWalletAccountResult
	if result == nil {
		return "", fmt.Errorf("export activity returned no result")
	}
	seed, err := target.decryptBundle(result.ExportBundle)
	if err != nil {
		return "", fmt.Errorf("decrypting export bundle: %w", err)
	}
	c.logger.Warn().Str("address", address).Msg("Private key exported")
	return hex.EncodeToString(seed), nil
}

func (c *Client) submit(ctx context.Context, path, activityType string, params any) (*activityResponse, error) {
	body, err := json.Marshal(activityRequest{
		Type:           activityType,
		TimestampMs:    fmt.Sprintf("%d", time.Now().UnixMilli()),
		OrganizationID: c.organizationID,
		Parameters:     params,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding activity: %w", err)
	}

	stamp, err := c.stamp(body)
	if err != nil {
		return nil, fmt.Errorf("stamping request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Stamp", stamp)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custodian returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var ar activityResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return nil, fmt.Errorf("decoding activity response: %w", err)
	}
	if ar.Activity.Status != activityStatusCompleted {
		return nil, fmt.Errorf("%s finished with status %s", activityType, ar.Activity.Status)
	}
	return &ar, nil
}

// stamp signs the request body with the API key and packs the signature into
// the header the custodian verifies.
func (c *Client) stamp(body []byte) (string, error) {
	digest := sha256.Sum256(body)
	sig, err := ecdsa.SignASN1(rand.Reader, c.apiKey, digest[:])
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(map[string]string{
		"publicKey": c.apiPublicKey,
		"scheme":    stampScheme,
		"signature": hex.EncodeToString(sig),
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}
