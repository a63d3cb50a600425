package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pacetrade/pacebot/internal/chain/bcs"
)

const (
	signedTxnContentType = "application/x.aptos.signed_transaction+bcs"

	submitPollInterval = 500 * time.Millisecond
	submitPollTimeout  = 30 * time.Second
)

// Client talks to a fullnode REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	chainID    uint8
	logger     zerolog.Logger
}

// NewClient builds a client and fetches the node's chain id once up front, so
// every transaction built afterwards carries the right id without an extra
// round trip.
func NewClient(baseURL string) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log.With().Str("component", "chain").Logger(),
	}

	var info struct {
		ChainID uint8 `json:"chain_id"`
	}
	if err := c.get(context.Background(), "/v1/", &info); err != nil {
		return nil, fmt.Errorf("fetching chain info: %w", err)
	}
	c.chainID = info.ChainID
	c.logger.Info().Uint8("chain_id", c.chainID).Str("node", c.baseURL).Msg("Connected to fullnode")
	return c, nil
}

// ChainID returns the id cached at construction.
func (c *Client) ChainID() uint8 {
	return c.chainID
}

// AccountSequenceNumber fetches the next sequence number for an account.
func (c *Client) AccountSequenceNumber(ctx context.Context, addr AccountAddress) (uint64, error) {
	var resp struct {
		SequenceNumber string `json:"sequence_number"`
	}
	if err := c.get(ctx, "/v1/accounts/"+addr.Hex(), &resp); err != nil {
		return 0, fmt.Errorf("fetching account %s: %w", addr.Short(), err)
	}
	seq, err := strconv.ParseUint(resp.SequenceNumber, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing sequence number %q: %w", resp.SequenceNumber, err)
	}
	return seq, nil
}

// ViewRequest is a read-only call to a view function.
type ViewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// View executes a view function and returns its raw result values.
func (c *Client) View(ctx context.Context, req ViewRequest) ([]json.RawMessage, error) {
	if req.TypeArguments == nil {
		req.TypeArguments = []string{}
	}
	if req.Arguments == nil {
		req.Arguments = []any{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding view request: %w", err)
	}

	var results []json.RawMessage
	if err := c.post(ctx, "/v1/view", "application/json", body, &results); err != nil {
		return nil, fmt.Errorf("view %s: %w", req.Function, err)
	}
	return results, nil
}

// Submit posts a signed transaction and returns its hash without waiting for
// execution.
func (c *Client) Submit(ctx context.Context, signed SignedTransaction) (string, error) {
	var resp struct {
		Hash string `json:"hash"`
	}
	if err := c.post(ctx, "/v1/transactions", signedTxnContentType, bcs.Encode(signed), &resp); err != nil {
		return "", fmt.Errorf("submitting transaction: %w", err)
	}
	return resp.Hash, nil
}

// SubmitAndWait submits a signed transaction and polls until the node reports
// it executed. It returns the transaction hash, or an error carrying the VM
// status when execution failed.
func (c *Client) SubmitAndWait(ctx context.Context, signed SignedTransaction) (string, error) {
	hash, err := c.Submit(ctx, signed)
	if err != nil {
		return "", err
	}
	c.logger.Debug().Str("hash", hash).Msg("Transaction submitted, awaiting execution")

	deadline := time.Now().Add(submitPollTimeout)
	for {
		var txn struct {
			Type     string `json:"type"`
			Success  *bool  `json:"success"`
			VMStatus string `json:"vm_status"`
		}
		err := c.get(ctx, "/v1/transactions/by_hash/"+hash, &txn)
		switch {
		case err == nil && txn.Success != nil:
			if !*txn.Success {
				return "", fmt.Errorf("transaction %s failed: %s", hash, txn.VMStatus)
			}
			return hash, nil
		case err != nil && !isNotFound(err):
			return "", fmt.Errorf("polling transaction %s: %w", hash, err)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("transaction %s not executed after %s", hash, submitPollTimeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(submitPollInterval):
		}
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("node returned %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
