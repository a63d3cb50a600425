// Package marketdata caches the exchange's market catalog and per-market
// pricing, refreshed in the background from the public markets API.
package marketdata

import "github.com/shopspring/decimal"

// Market is a listed perpetual market.
type Market struct {
	MarketAddr      string          `json:"market_addr"`
	MarketName      string          `json:"market_name"`
	SzDecimals      int32           `json:"sz_decimals"`
	PxDecimals      int32           `json:"px_decimals"`
	MaxLeverage     uint8           `json:"max_leverage"`
	MaxOpenInterest decimal.Decimal `json:"max_open_interest"`
}

// AssetContext is the live pricing snapshot for a market.
type AssetContext struct {
	Market            string            `json:"market"`
	Volume24h         decimal.Decimal   `json:"volume_24h"`
	FundingIndex      decimal.Decimal   `json:"funding_index"`
	OpenInterest      decimal.Decimal   `json:"open_interest"`
	MarkPrice         decimal.Decimal   `json:"mark_price"`
	MidPrice          decimal.Decimal   `json:"mid_price"`
	OraclePrice       decimal.Decimal   `json:"oracle_price"`
	PreviousDayPrice  decimal.Decimal   `json:"previous_day_price"`
	PriceChangePct24h decimal.Decimal   `json:"price_change_pct_24h"`
	PriceHistory      []decimal.Decimal `json:"price_history"`
}
