package bot

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pacetrade/pacebot/internal/chain"
	"github.com/pacetrade/pacebot/internal/database"
	"github.com/pacetrade/pacebot/internal/dex"
	"github.com/pacetrade/pacebot/internal/marketdata"
	"github.com/pacetrade/pacebot/internal/perps"
)

func parseWalletAddress(s string) (chain.AccountAddress, error) {
	addr, err := chain.ParseAddress(s)
	if err != nil {
		return chain.AccountAddress{}, fmt.Errorf("stored wallet address is unusable: %w", err)
	}
	return addr, nil
}

// lookupMarket resolves a user-typed ticker against the market catalog,
// telling the chat when nothing matches.
func (b *Bot) lookupMarket(chatID int64, query string) (marketdata.Market, bool) {
	matches := b.markets.GetMarketsILike(query)
	if len(matches) == 0 {
		b.sendText(chatID, fmt.Sprintf("🔍 Market %q not found. Try a ticker like APT or BTC/USD.", query))
		return marketdata.Market{}, false
	}
	return matches[0], true
}

// markPrice reads the current mark price for a market.
func (b *Bot) markPrice(marketName string) (decimal.Decimal, error) {
	ac, ok := b.markets.GetAssetContext(marketName)
	if !ok || !ac.MarkPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("no price available for %s right now", marketName)
	}
	return ac.MarkPrice, nil
}

func (b *Bot) sendOrderLeverageKeyboard(chatID int64, market marketdata.Market, isLong bool) error {
	side := "Long 🟢"
	if !isLong {
		side = "Short 🔴"
	}
	keyboard := leverageKeyboard(market.MaxLeverage, func(lev uint8) Action {
		return OrderLeverageAction{MarketName: market.MarketName, IsLong: isLong, Leverage: lev}
	})
	return b.sendMarkdownWithKeyboard(chatID,
		fmt.Sprintf("*%s %s*\n\nChoose your leverage:", side, market.MarketName), keyboard)
}

func (b *Bot) sendLimitLeverageKeyboard(chatID int64, market marketdata.Market, price decimal.Decimal) error {
	keyboard := leverageKeyboard(market.MaxLeverage, func(lev uint8) Action {
		return LimitOrderLeverageAction{MarketName: market.MarketName, Price: price, Leverage: lev}
	})
	return b.sendMarkdownWithKeyboard(chatID,
		fmt.Sprintf("*Limit order on %s @ $%s*\n\nChoose your leverage:", market.MarketName, price), keyboard)
}

// sendOrderQuote shows the position preview with a confirm button.
func (b *Bot) sendOrderQuote(chatID int64, market marketdata.Market, a PlaceOrderAction) error {
	entry, err := b.markPrice(market.MarketName)
	if err != nil {
		return err
	}

	notional := perps.NotionalPrice(a.Amount, a.Leverage)
	size := perps.PositionSize(notional, entry).Truncate(market.SzDecimals)
	liq := perps.LiquidationPrice(a.IsLong, entry, a.Leverage, b.cfg.MaintenanceMarginRatio)

	side := "Long 🟢"
	if !a.IsLong {
		side = "Short 🔴"
	}
	text := fmt.Sprintf(`📋 *Order Preview*

*%s %s @ %dx*

├ Margin: $%s
├ Position Value: $%s
├ Size: %s
├ Entry: $%s
└ Est. Liquidation: $%s`,
		side, market.MarketName, a.Leverage,
		a.Amount.StringFixed(2),
		notional.StringFixed(2),
		size,
		entry,
		liq.StringFixed(4),
	)
	return b.sendMarkdownWithKeyboard(chatID, text, confirmOrderKeyboard(a))
}

// placeMarketOrder submits a marketable order at the mark price padded by the
// user's slippage allowance, so fast markets fill instead of bouncing.
func (b *Bot) placeMarketOrder(ctx context.Context, chatID int64, user *database.User, wallet *database.Wallet, a PlaceOrderAction) error {
	market, ok := b.lookupMarket(chatID, a.MarketName)
	if !ok {
		return nil
	}
	entry, err := b.markPrice(market.MarketName)
	if err != nil {
		return err
	}

	slip := decimal.NewFromInt(int64(user.SlippagePct)).Div(decimal.NewFromInt(100))
	var limitPrice decimal.Decimal
	if a.IsLong {
		limitPrice = entry.Mul(decimal.NewFromInt(1).Add(slip))
	} else {
		limitPrice = entry.Mul(decimal.NewFromInt(1).Sub(slip))
	}

	notional := perps.NotionalPrice(a.Amount, a.Leverage)
	size := perps.PositionSize(notional, entry).Truncate(market.SzDecimals)

	processing, err := b.sendMarkdown(chatID, "⏳ Placing your order...")
	if err != nil {
		return err
	}
	hash, err := b.submitOrder(ctx, wallet, market, limitPrice, size, a.IsLong)
	if err != nil {
		b.editMarkdown(chatID, processing.MessageID, "❌ Order failed, please try again.")
		return err
	}

	side := "Long 🟢"
	if !a.IsLong {
		side = "Short 🔴"
	}
	return b.editMarkdown(chatID, processing.MessageID, fmt.Sprintf(
		"✅ *Order Placed*\n\n*%s %s @ %dx* for $%s\n\n[View transaction](%s)",
		side, market.MarketName, a.Leverage, notional.StringFixed(2), b.cfg.ExplorerTxnURL(hash)))
}

// placeLimitOrder submits a resting order at the user's price.
func (b *Bot) placeLimitOrder(ctx context.Context, chatID int64, wallet *database.Wallet, a PlaceLimitOrderAction) error {
	market, ok := b.lookupMarket(chatID, a.MarketName)
	if !ok {
		return nil
	}

	notional := perps.NotionalPrice(a.Amount, a.Leverage)
	size := perps.PositionSize(notional, a.Price).Truncate(market.SzDecimals)

	processing, err := b.sendMarkdown(chatID, "⏳ Placing your limit order...")
	if err != nil {
		return err
	}
	hash, err := b.submitOrder(ctx, wallet, market, a.Price, size, a.IsLong)
	if err != nil {
		b.editMarkdown(chatID, processing.MessageID, "❌ Order failed, please try again.")
		return err
	}

	side := "Buy 🟢"
	if !a.IsLong {
		side = "Sell 🔴"
	}
	return b.editMarkdown(chatID, processing.MessageID, fmt.Sprintf(
		"✅ *Limit Order Placed*\n\n*%s %s* $%s @ $%s\n\n[View transaction](%s)",
		side, market.MarketName, notional.StringFixed(2), a.Price, b.cfg.ExplorerTxnURL(hash)))
}

// submitOrder scales the order to chain units and runs it through the
// sponsored pipeline against the wallet's primary subaccount.
func (b *Bot) submitOrder(ctx context.Context, wallet *database.Wallet, market marketdata.Market, price, size decimal.Decimal, isBuy bool) (string, error) {
	sub, err := b.primarySubaccount(ctx, wallet.Address)
	if err != nil {
		return "", err
	}
	marketAddr, err := chain.ParseAddress(market.MarketAddr)
	if err != nil {
		return "", fmt.Errorf("market %s has an unusable address: %w", market.MarketName, err)
	}
	priceU, err := perps.ToChainUnits(price, perps.PriceDecimals)
	if err != nil {
		return "", fmt.Errorf("scaling price: %w", err)
	}
	sizeU, err := perps.ToChainUnits(size, perps.SizeDecimals)
	if err != nil {
		return "", fmt.Errorf("scaling size: %w", err)
	}
	if sizeU == 0 {
		return "", fmt.Errorf("order size rounds to zero, increase the margin")
	}

	payload := dex.PlaceOrderToSubaccount(
		b.contract, sub, marketAddr,
		priceU, sizeU, isBuy, dex.DefaultTimeInForce, false,
		dex.OrderOptions{},
	)
	return b.chain.SubmitWithFeePayer(ctx, wallet.Address, wallet.PublicKey, payload)
}
