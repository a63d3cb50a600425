// Package perps provides the position math and on-chain fixed-point scaling
// used by the trading flows.
//
// All monetary values flow through shopspring/decimal; float64 is never used
// for amounts that end up on chain.
package perps

import "github.com/shopspring/decimal"

// NotionalPrice returns collateral * leverage, the economic size of the
// position before dividing by entry price.
func NotionalPrice(collateral decimal.Decimal, leverage uint8) decimal.Decimal {
	return collateral.Mul(decimal.NewFromInt(int64(leverage)))
}

// PositionSize returns notional / entryPrice in base-asset units.
func PositionSize(notional, entryPrice decimal.Decimal) decimal.Decimal {
	return notional.Div(entryPrice)
}

// PositionValue returns size * price.
func PositionValue(size, price decimal.Decimal) decimal.Decimal {
	return size.Mul(price)
}

// InitialMarginRatio returns 1 / leverage. Leverage is validated as >= 1
// before any flow reaches this package.
func InitialMarginRatio(leverage uint8) decimal.Decimal {
	return decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(leverage)))
}

// LiquidationPrice estimates the price at which a single isolated position
// with the given leverage is liquidated:
//
//	long:  entry * (1 - 1/leverage + mm)
//	short: entry * (1 + 1/leverage - mm)
//
// It ignores funding, fees and cross-margin effects, so callers must treat
// the result as an estimate only.
func LiquidationPrice(isLong bool, entryPrice decimal.Decimal, leverage uint8, maintenanceMarginRatio decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	imr := InitialMarginRatio(leverage)

	var multiplier decimal.Decimal
	if isLong {
		multiplier = one.Sub(imr).Add(maintenanceMarginRatio)
	} else {
		multiplier = one.Add(imr).Sub(maintenanceMarginRatio)
	}
	return entryPrice.Mul(multiplier)
}
