package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pacetrade/pacebot/internal/dex"
	"github.com/pacetrade/pacebot/internal/perps"
)

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	user, err := b.db.GetUserByTelegramID(msg.From.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		text := `🚀 *Welcome to Pacebot!*

Trade perps straight from Telegram.

*What I do:*
• 📈 Long or short any listed market
• ⚡ Gasless trading, fees are covered for you
• 🔐 Keys held in secure custody, exportable anytime

Create your trading account to get started 👇`
		return b.sendMarkdownWithKeyboard(chatID, text, newUserKeyboard())
	}
	if err != nil {
		return err
	}

	wallet, err := b.db.GetPrimaryWallet(user.ID)
	if err != nil {
		return err
	}
	balance, err := b.usdcBalance(ctx, wallet.Address)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`👋 *Welcome back!*

💳 *Wallet:* `+"`%s`"+`
💵 *Balance:* $%s USDC

*Commands:*
/long - Open a long position
/short - Open a short position
/limit - Place a limit order
/wallet - Wallet & subaccounts
/mint - Mint test USDC
/settings - Settings`,
		wallet.Address, balance.StringFixed(2))
	return b.sendMarkdownWithKeyboard(chatID, text, existingUserKeyboard())
}

func (b *Bot) cmdMint(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	_, wallet, ok := b.requireUser(chatID, msg.From.ID)
	if !ok {
		return nil
	}

	processing, err := b.sendMarkdown(chatID, "⏳ Minting test USDC...")
	if err != nil {
		return err
	}

	recipient, err := parseWalletAddress(wallet.Address)
	if err != nil {
		return err
	}
	payload := dex.Mint(b.contract, recipient, uint64(b.cfg.MintAmount))
	hash, err := b.chain.SubmitWithFeePayer(ctx, wallet.Address, wallet.PublicKey, payload)
	if err != nil {
		b.editMarkdown(chatID, processing.MessageID, "❌ Mint failed, please try again later.")
		return err
	}

	minted := perps.FromChainUnits(uint64(b.cfg.MintAmount), perps.QuoteDecimals)
	return b.editMarkdown(chatID, processing.MessageID, fmt.Sprintf(
		"✅ *Minted $%s USDC*\n\n[View transaction](%s)", minted.StringFixed(2), b.cfg.ExplorerTxnURL(hash)))
}

func (b *Bot) cmdOrder(ctx context.Context, msg *tgbotapi.Message, isLong bool) error {
	chatID := msg.Chat.ID
	_, wallet, ok := b.requireUser(chatID, msg.From.ID)
	if !ok {
		return nil
	}

	balance, err := b.usdcBalance(ctx, wallet.Address)
	if err != nil {
		return err
	}
	if balance.LessThan(b.cfg.MinTradeBalance) {
		b.sendText(chatID, fmt.Sprintf(
			"💸 You need at least $%s USDC to trade (you have $%s).\nUse /mint to top up with test funds.",
			b.cfg.MinTradeBalance, balance.StringFixed(2)))
		return nil
	}

	b.states.Set(chatID, OrderPairState{IsLong: isLong})

	side := "long 🟢"
	if !isLong {
		side = "short 🔴"
	}
	return b.sendForceReply(chatID, fmt.Sprintf("Which market do you want to %s?\nReply with a ticker, e.g. *APT* or *BTC/USD*.", side))
}

func (b *Bot) cmdLimit(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	_, _, ok := b.requireUser(chatID, msg.From.ID)
	if !ok {
		return nil
	}

	args := strings.Fields(msg.CommandArguments())
	switch len(args) {
	case 0:
		b.states.Set(chatID, LimitPairState{})
		return b.sendForceReply(chatID, "Which market do you want a limit order on?\nReply with a ticker, e.g. *APT* or *BTC/USD*.")
	case 2:
		market, found := b.lookupMarket(chatID, args[0])
		if !found {
			return nil
		}
		price, err := decimal.NewFromString(args[1])
		if err != nil || !price.IsPositive() {
			b.sendText(chatID, fmt.Sprintf("⚠️ %q is not a valid price.", args[1]))
			return nil
		}
		return b.sendLimitLeverageKeyboard(chatID, market, price)
	case 5:
		return b.oneShotLimit(ctx, msg, args)
	default:
		b.sendText(chatID, "⚠️ Usage: /limit <ticker> <price>, /limit <long|short> <ticker> <leverage> <price> <amount|pct>, or just /limit to be walked through.")
		return nil
	}
}

// oneShotLimit places a limit order straight from command arguments:
// /limit long APT 5 4.20 100 (or 50% of balance as the amount).
func (b *Bot) oneShotLimit(ctx context.Context, msg *tgbotapi.Message, args []string) error {
	chatID := msg.Chat.ID
	_, wallet, ok := b.requireUser(chatID, msg.From.ID)
	if !ok {
		return nil
	}

	var isLong bool
	switch strings.ToLower(args[0]) {
	case "long", "buy":
		isLong = true
	case "short", "sell":
		isLong = false
	default:
		b.sendText(chatID, fmt.Sprintf("⚠️ %q is not a side, use long or short.", args[0]))
		return nil
	}

	market, found := b.lookupMarket(chatID, args[1])
	if !found {
		return nil
	}
	lev, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil || lev == 0 || uint8(lev) > market.MaxLeverage {
		b.sendText(chatID, fmt.Sprintf("⚠️ Leverage must be between 1 and %d for %s.", market.MaxLeverage, market.MarketName))
		return nil
	}
	price, err := decimal.NewFromString(strings.TrimPrefix(args[3], "$"))
	if err != nil || !price.IsPositive() {
		b.sendText(chatID, fmt.Sprintf("⚠️ %q is not a valid price.", args[3]))
		return nil
	}

	balance, err := b.usdcBalance(ctx, wallet.Address)
	if err != nil {
		return err
	}
	amount, ok := parseOneShotAmount(args[4], balance)
	if !ok {
		b.sendText(chatID, fmt.Sprintf("⚠️ %q is not a valid amount.", args[4]))
		return nil
	}
	if amount.GreaterThan(balance) {
		b.sendText(chatID, fmt.Sprintf(
			"💸 Insufficient balance: you have $%s USDC available.", balance.StringFixed(2)))
		return nil
	}

	return b.placeLimitOrder(ctx, chatID, wallet, PlaceLimitOrderAction{
		MarketName: market.MarketName,
		Price:      price,
		Leverage:   uint8(lev),
		Amount:     amount,
		IsLong:     isLong,
	})
}

func parseOneShotAmount(s string, balance decimal.Decimal) (decimal.Decimal, bool) {
	s = strings.TrimPrefix(s, "$")
	percent := strings.HasSuffix(s, "%")
	amount, err := decimal.NewFromString(strings.TrimSuffix(s, "%"))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	if percent {
		amount = balance.Mul(amount).Div(decimal.NewFromInt(100)).Truncate(perps.QuoteDecimals)
	}
	return amount, true
}

func (b *Bot) cmdWallet(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	_, wallet, ok := b.requireUser(chatID, msg.From.ID)
	if !ok {
		return nil
	}

	balance, err := b.usdcBalance(ctx, wallet.Address)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`💳 *Your Wallet*

*Address:* `+"`%s`"+`
*Balance:* $%s USDC`,
		wallet.Address, balance.StringFixed(2))

	subs, err := b.db.GetSubAccounts(wallet.ID)
	if err == nil && len(subs) > 0 {
		text += "\n\n*Subaccounts:*"
		for _, sub := range subs {
			label := ""
			if sub.IsPrimary {
				label = " (primary)"
			}
			text += fmt.Sprintf("\n• `%s`%s", sub.Address, label)
		}
	}

	return b.sendMarkdownWithKeyboard(chatID, text, walletKeyboard())
}

func (b *Bot) cmdSettings(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	user, _, ok := b.requireUser(chatID, msg.From.ID)
	if !ok {
		return nil
	}

	text := `⚙️ *Settings*

🎲 *Degen mode* skips order confirmation.
📉 *Slippage* caps how far a market order can fill from the mark price.`
	return b.sendMarkdownWithKeyboard(chatID, text, settingsKeyboard(user))
}

func (b *Bot) cmdHelp(chatID int64) error {
	text := `📚 *Pacebot Commands*

*💰 Trading:*
/long - Open a long position
/short - Open a short position
/limit - Place a limit order

*💳 Wallet:*
/wallet - Address, balance & subaccounts
/mint - Mint test USDC

*⚙️ Other:*
/settings - Degen mode, slippage, key export
/start - Account overview`
	_, err := b.sendMarkdown(chatID, text)
	return err
}
