package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Poller refreshes the store from the markets API on a fixed interval.
type Poller struct {
	baseURL    string
	store      *Store
	interval   time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewPoller wires a poller to a store. interval is how often both the
// catalog and the pricing snapshots are refetched.
func NewPoller(baseURL string, store *Store, interval time.Duration) *Poller {
	return &Poller{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		interval:   interval,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log.With().Str("component", "marketdata").Logger(),
	}
}

// Run refreshes immediately, then on every tick until the context is
// cancelled. Refresh failures are logged and retried next tick; the cache
// keeps serving the last good data in between.
func (p *Poller) Run(ctx context.Context) {
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Market data poller stopped")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	if err := p.refreshMarkets(ctx); err != nil {
		p.logger.Error().Err(err).Msg("Failed to refresh markets")
	}
	if err := p.refreshAssetContexts(ctx); err != nil {
		p.logger.Error().Err(err).Msg("Failed to refresh asset contexts")
	}
}

func (p *Poller) refreshMarkets(ctx context.Context) error {
	var markets []Market
	if err := p.getJSON(ctx, "/api/v1/markets", &markets); err != nil {
		return err
	}
	p.store.SetMarkets(markets)
	p.logger.Debug().Int("count", len(markets)).Msg("Markets refreshed")
	return nil
}

func (p *Poller) refreshAssetContexts(ctx context.Context) error {
	var ctxs []AssetContext
	if err := p.getJSON(ctx, "/api/v1/asset_contexts", &ctxs); err != nil {
		return err
	}
	p.store.SetAssetContexts(ctxs)
	return nil
}

func (p *Poller) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
