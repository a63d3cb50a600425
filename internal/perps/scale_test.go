package perps

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToChainUnitsTruncates(t *testing.T) {
	// 1.239 at 2 decimals scales to 123.9 and truncates to 123, never 124.
	got, err := ToChainUnits(dec("1.239"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if got != 123 {
		t.Fatalf("got %d, want 123", got)
	}
}

func TestToChainUnitsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "0.000001", "123.456789", "99999.5"} {
		raw, err := ToChainUnits(dec(s), QuoteDecimals)
		if err != nil {
			t.Fatal(err)
		}
		back := FromChainUnits(raw, QuoteDecimals)
		if !back.Equal(dec(s)) {
			t.Fatalf("round trip %s -> %d -> %s", s, raw, back)
		}
	}
}

func TestToChainUnitsRejectsNegative(t *testing.T) {
	if _, err := ToChainUnits(dec("-1"), QuoteDecimals); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestToChainUnitsRejectsOverflow(t *testing.T) {
	huge := decimal.New(1, 30)
	if _, err := ToChainUnits(huge, QuoteDecimals); err == nil {
		t.Fatal("expected error for u64 overflow")
	}
}
