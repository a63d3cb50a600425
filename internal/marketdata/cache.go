package marketdata

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	marketsKey       = "markets"
	assetContextsKey = "asset_contexts"

	// Entries survive well past the refresh interval so a flaky upstream
	// serves stale data instead of none, but a poller that has been dead
	// for a day stops serving prices.
	defaultExpiry = 24 * time.Hour
	cleanupPeriod = time.Hour
)

// Cache is the read side the bot handlers use.
type Cache interface {
	GetMarket(name string) (Market, bool)
	GetMarketsILike(query string) []Market
	GetAssetContext(market string) (AssetContext, bool)
}

// Store is a TTL-backed market cache. The poller writes, handlers read.
type Store struct {
	c *gocache.Cache
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{c: gocache.New(defaultExpiry, cleanupPeriod)}
}

// SetMarkets replaces the market catalog.
func (s *Store) SetMarkets(markets []Market) {
	s.c.Set(marketsKey, markets, gocache.DefaultExpiration)
}

// SetAssetContexts replaces the pricing snapshots.
func (s *Store) SetAssetContexts(ctxs []AssetContext) {
	s.c.Set(assetContextsKey, ctxs, gocache.DefaultExpiration)
}

// Markets returns the full catalog, or nil before the first refresh.
func (s *Store) Markets() []Market {
	if v, ok := s.c.Get(marketsKey); ok {
		return v.([]Market)
	}
	return nil
}

// GetMarket finds a market by exact name, case-insensitively.
func (s *Store) GetMarket(name string) (Market, bool) {
	for _, m := range s.Markets() {
		if strings.EqualFold(m.MarketName, name) {
			return m, true
		}
	}
	return Market{}, false
}

// GetMarketsILike finds markets matching a user-typed ticker: either the full
// market name case-insensitively, or the base symbol before the slash, so
// "apt" matches "APT/USD" but "AP" matches nothing.
func (s *Store) GetMarketsILike(query string) []Market {
	var out []Market
	for _, m := range s.Markets() {
		if marketNameMatches(query, m.MarketName) {
			out = append(out, m)
		}
	}
	return out
}

func marketNameMatches(query, name string) bool {
	if strings.EqualFold(query, name) {
		return true
	}
	return len(query) < len(name) &&
		strings.HasPrefix(strings.ToLower(name), strings.ToLower(query)+"/")
}

// GetAssetContext returns the pricing snapshot for a market name.
func (s *Store) GetAssetContext(market string) (AssetContext, bool) {
	v, ok := s.c.Get(assetContextsKey)
	if !ok {
		return AssetContext{}, false
	}
	for _, ac := range v.([]AssetContext) {
		if strings.EqualFold(ac.Market, market) {
			return ac, true
		}
	}
	return AssetContext{}, false
}
