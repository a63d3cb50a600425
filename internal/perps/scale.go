package perps

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// On-chain fixed-point exponents. The quote asset (USDC) carries 6 decimals,
// order prices 8 and order sizes 5.
const (
	QuoteDecimals = 6
	PriceDecimals = 8
	SizeDecimals  = 5
)

// ToChainUnits converts a human-denominated decimal into the chain's integer
// representation: multiply by 10^decimals and truncate toward zero. Truncation
// (not rounding) is what the contract expects; rounding up can produce orders
// one unit larger than the user's balance covers.
func ToChainUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	scaled := amount.Shift(decimals).Truncate(0)
	if scaled.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", amount)
	}
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s overflows u64 at %d decimals", amount, decimals)
	}
	return scaled.BigInt().Uint64(), nil
}

// FromChainUnits converts a chain integer back into a human-denominated
// decimal by dividing by 10^decimals.
func FromChainUnits(raw uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -decimals)
}
