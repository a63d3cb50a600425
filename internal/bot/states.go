package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/pacetrade/pacebot/internal/chain"
	"github.com/pacetrade/pacebot/internal/dex"
	"github.com/pacetrade/pacebot/internal/perps"
)

// handleReply routes free text to whatever the chat was asked. The state is
// taken atomically up front; handlers that hit a recoverable input error
// re-insert it so the user can just answer again.
func (b *Bot) handleReply(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state, ok := b.states.Take(chatID)
	if !ok {
		return nil
	}

	switch st := state.(type) {
	case OrderPairState:
		return b.stateOrderPair(chatID, st, msg.Text)
	case OrderMarginState:
		return b.stateOrderMargin(ctx, st, msg)
	case LimitPairState:
		return b.stateLimitPair(chatID, st, msg.Text)
	case LimitPriceState:
		return b.stateLimitPrice(chatID, st, msg.Text)
	case LimitOrderMarginState:
		return b.stateLimitOrderMargin(ctx, st, msg)
	case DepositToSubaccountState:
		return b.stateDepositToSubaccount(chatID, st, msg.Text)
	case ExternalWithdrawAmountState:
		return b.stateExternalWithdrawAmount(chatID, st, msg.Text)
	case ExternalWithdrawAddressState:
		return b.stateExternalWithdrawAddress(ctx, st, msg)
	case UpdateSlippageState:
		return b.stateUpdateSlippage(chatID, st, msg)
	}
	return nil
}

func (b *Bot) stateOrderPair(chatID int64, st OrderPairState, text string) error {
	market, ok := b.lookupMarket(chatID, strings.TrimSpace(text))
	if !ok {
		b.states.Set(chatID, st)
		return nil
	}
	return b.sendOrderLeverageKeyboard(chatID, market, st.IsLong)
}

func (b *Bot) stateOrderMargin(ctx context.Context, st OrderMarginState, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	user, wallet, found := b.requireUser(chatID, msg.From.ID)
	if !found {
		return nil
	}
	balance, err := b.usdcBalance(ctx, wallet.Address)
	if err != nil {
		return err
	}

	amount, ok := b.parseAmount(chatID, st, msg.Text, balance)
	if !ok {
		return nil
	}
	if amount.GreaterThan(balance) {
		b.sendText(chatID, fmt.Sprintf(
			"💸 Insufficient balance: you have $%s USDC available.", balance.StringFixed(2)))
		return nil
	}

	action := PlaceOrderAction{MarketName: st.MarketName, IsLong: st.IsLong, Leverage: st.Leverage, Amount: amount}
	if user.DegenMode {
		return b.placeMarketOrder(ctx, chatID, user, wallet, action)
	}
	market, found2 := b.lookupMarket(chatID, st.MarketName)
	if !found2 {
		return nil
	}
	return b.sendOrderQuote(chatID, market, action)
}

func (b *Bot) stateLimitPair(chatID int64, st LimitPairState, text string) error {
	market, ok := b.lookupMarket(chatID, strings.TrimSpace(text))
	if !ok {
		b.states.Set(chatID, st)
		return nil
	}
	b.states.Set(chatID, LimitPriceState{MarketName: market.MarketName})
	prompt := fmt.Sprintf("At what price do you want your *%s* limit order?", market.MarketName)
	if mark, err := b.markPrice(market.MarketName); err == nil {
		prompt += fmt.Sprintf("\nCurrent mark price: $%s", mark)
	}
	return b.sendForceReply(chatID, prompt)
}

func (b *Bot) stateLimitPrice(chatID int64, st LimitPriceState, text string) error {
	price, err := decimal.NewFromString(strings.TrimSpace(strings.TrimPrefix(text, "$")))
	if err != nil || !price.IsPositive() {
		b.states.Set(chatID, st)
		return b.sendForceReply(chatID, fmt.Sprintf("⚠️ %q is not a valid price, try again.", text))
	}
	market, ok := b.lookupMarket(chatID, st.MarketName)
	if !ok {
		return nil
	}
	return b.sendLimitLeverageKeyboard(chatID, market, price)
}

func (b *Bot) stateLimitOrderMargin(ctx context.Context, st LimitOrderMarginState, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	_, wallet, found := b.requireUser(chatID, msg.From.ID)
	if !found {
		return nil
	}
	balance, err := b.usdcBalance(ctx, wallet.Address)
	if err != nil {
		return err
	}

	amount, ok := b.parseAmount(chatID, st, msg.Text, balance)
	if !ok {
		return nil
	}
	if amount.GreaterThan(balance) {
		b.sendText(chatID, fmt.Sprintf(
			"💸 Insufficient balance: you have $%s USDC available.", balance.StringFixed(2)))
		return nil
	}

	notional := perps.NotionalPrice(amount, st.Leverage)
	text := fmt.Sprintf(`📋 *Limit Order Preview*

*%s @ $%s, %dx*

├ Margin: $%s
└ Position Value: $%s

Which side?`,
		st.MarketName, st.Price, st.Leverage,
		amount.StringFixed(2), notional.StringFixed(2))
	return b.sendMarkdownWithKeyboard(chatID, text, limitSideKeyboard(st.MarketName, st.Price, st.Leverage, amount))
}

func (b *Bot) stateDepositToSubaccount(chatID int64, st DepositToSubaccountState, text string) error {
	amount, ok := b.parseAmount(chatID, st, text, st.Balance)
	if !ok {
		return nil
	}
	if amount.GreaterThan(st.Balance) {
		b.sendText(chatID, fmt.Sprintf(
			"💸 Insufficient balance: you have $%s USDC available.", st.Balance.StringFixed(2)))
		return nil
	}

	msgText := fmt.Sprintf("Deposit *$%s USDC* into subaccount\n`%s`?", amount.StringFixed(2), st.SubAccount)
	return b.sendMarkdownWithKeyboard(chatID, msgText, confirmDepositKeyboard(amount))
}

func (b *Bot) stateExternalWithdrawAmount(chatID int64, st ExternalWithdrawAmountState, text string) error {
	amount, ok := b.parseAmount(chatID, st, text, st.Balance)
	if !ok {
		return nil
	}
	if amount.GreaterThan(st.Balance) {
		b.sendText(chatID, fmt.Sprintf(
			"💸 Insufficient balance: you have $%s USDC available.", st.Balance.StringFixed(2)))
		return nil
	}

	b.states.Set(chatID, ExternalWithdrawAddressState{Amount: amount})
	return b.sendForceReply(chatID, "Where should the funds go?\nReply with the destination address.")
}

func (b *Bot) stateExternalWithdrawAddress(ctx context.Context, st ExternalWithdrawAddressState, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	dest, err := chain.ParseAddress(msg.Text)
	if err != nil {
		b.states.Set(chatID, st)
		return b.sendForceReply(chatID, "⚠️ That doesn't look like a valid address, try again.")
	}

	_, wallet, found := b.requireUser(chatID, msg.From.ID)
	if !found {
		return nil
	}

	amountU, err := perps.ToChainUnits(st.Amount, perps.QuoteDecimals)
	if err != nil {
		return fmt.Errorf("scaling withdrawal: %w", err)
	}

	processing, err := b.sendMarkdown(chatID, "⏳ Sending your withdrawal...")
	if err != nil {
		return err
	}
	payload := dex.TransferFA(b.usdcAsset, dest, amountU)
	hash, err := b.chain.SubmitWithFeePayer(ctx, wallet.Address, wallet.PublicKey, payload)
	if err != nil {
		b.editMarkdown(chatID, processing.MessageID, "❌ Withdrawal failed, please try again.")
		return err
	}
	return b.editMarkdown(chatID, processing.MessageID, fmt.Sprintf(
		"✅ *Withdrew $%s USDC* to `%s`\n\n[View transaction](%s)",
		st.Amount.StringFixed(2), dest.Short(), b.cfg.ExplorerTxnURL(hash)))
}

func (b *Bot) stateUpdateSlippage(chatID int64, st UpdateSlippageState, msg *tgbotapi.Message) error {
	pct, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(msg.Text), "%"))
	if err != nil || pct < 1 || pct > 99 {
		b.states.Set(chatID, st)
		return b.sendForceReply(chatID, "⚠️ Slippage must be a whole number between 1 and 99, try again.")
	}

	user, _, found := b.requireUser(chatID, msg.From.ID)
	if !found {
		return nil
	}
	if err := b.db.SetSlippage(user.ID, pct); err != nil {
		return err
	}
	b.sendText(chatID, fmt.Sprintf("✅ Slippage set to %d%%.", pct))
	return nil
}

// parseAmount reads a margin amount, either in dollars or as a percentage of
// the available balance. Invalid input re-arms the state and re-prompts.
func (b *Bot) parseAmount(chatID int64, st PendingState, text string, balance decimal.Decimal) (decimal.Decimal, bool) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "$"))
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	amount, err := decimal.NewFromString(s)
	if err != nil || !amount.IsPositive() {
		b.states.Set(chatID, st)
		b.sendForceReply(chatID, fmt.Sprintf("⚠️ %q is not a valid amount, try again.", text))
		return decimal.Zero, false
	}
	if percent {
		amount = balance.Mul(amount).Div(decimal.NewFromInt(100)).Truncate(perps.QuoteDecimals)
	}
	return amount, true
}
