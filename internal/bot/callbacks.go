package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pacetrade/pacebot/internal/database"
	"github.com/pacetrade/pacebot/internal/dex"
	"github.com/pacetrade/pacebot/internal/perps"
)

func (b *Bot) handleAction(ctx context.Context, cb *tgbotapi.CallbackQuery, action Action) error {
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch a := action.(type) {
	case CreateAccountAction:
		return b.actionCreateAccount(ctx, cb)

	case OrderLeverageAction:
		b.states.Set(chatID, OrderMarginState{
			MarketName: a.MarketName, IsLong: a.IsLong, Leverage: a.Leverage,
		})
		return b.sendForceReply(chatID, fmt.Sprintf(
			"*%s @ %dx*\n\nHow much margin do you want to put up?\nReply in dollars (e.g. *25*) or as a share of your balance (e.g. *50%%*).",
			a.MarketName, a.Leverage))

	case PlaceOrderAction:
		user, wallet, ok := b.requireUser(chatID, cb.From.ID)
		if !ok {
			return nil
		}
		b.clearKeyboard(chatID, messageID)
		return b.placeMarketOrder(ctx, chatID, user, wallet, a)

	case CancelAction:
		b.deleteMessage(chatID, messageID)
		return nil

	case LimitOrderLeverageAction:
		b.states.Set(chatID, LimitOrderMarginState{
			MarketName: a.MarketName, Price: a.Price, Leverage: a.Leverage,
		})
		return b.sendForceReply(chatID, fmt.Sprintf(
			"*%s @ $%s, %dx*\n\nHow much margin do you want to put up?\nReply in dollars (e.g. *25*) or as a share of your balance (e.g. *50%%*).",
			a.MarketName, a.Price, a.Leverage))

	case PlaceLimitOrderAction:
		_, wallet, ok := b.requireUser(chatID, cb.From.ID)
		if !ok {
			return nil
		}
		b.clearKeyboard(chatID, messageID)
		return b.placeLimitOrder(ctx, chatID, wallet, a)

	case ExportPkAction:
		return b.sendMarkdownWithKeyboard(chatID,
			"⚠️ *Your private key gives full control over your funds.*\n\nNever share it with anyone. Are you sure you want it shown here?",
			exportWarningKeyboard())

	case ShowPkAction:
		_, wallet, ok := b.requireUser(chatID, cb.From.ID)
		if !ok {
			return nil
		}
		b.deleteMessage(chatID, messageID)
		key, err := b.chain.ExportPrivateKey(ctx, wallet.Address)
		if err != nil {
			return fmt.Errorf("exporting key: %w", err)
		}
		// Shown briefly, then scrubbed from the chat.
		b.sendEphemeral(chatID, fmt.Sprintf("🔑 %s\n\nThis message self-destructs in %s.", key, keyMessageTTL), keyMessageTTL)
		return nil

	case ChangeNotificationAction:
		user, _, ok := b.requireUser(chatID, cb.From.ID)
		if !ok {
			return nil
		}
		if err := b.db.SetNotifications(user.ID, !user.Notifications); err != nil {
			return err
		}
		user.Notifications = !user.Notifications
		b.updateKeyboard(chatID, messageID, settingsKeyboard(user))
		return nil

	case SlippageAction:
		user, _, ok := b.requireUser(chatID, cb.From.ID)
		if !ok {
			return nil
		}
		return b.sendMarkdownWithKeyboard(chatID, fmt.Sprintf(
			"📉 *Slippage: %d%%*\n\nMarket orders are capped at this distance from the mark price.",
			user.SlippagePct), slippageKeyboard())

	case UpdateSlippageAction:
		b.states.Set(chatID, UpdateSlippageState{})
		return b.sendForceReply(chatID, "Reply with your new slippage as a whole percentage (1-99).")

	case ChangeDegenModeAction:
		if err := b.db.SetDegenMode(a.UserID, a.To); err != nil {
			return err
		}
		user, err := b.db.GetUserByID(a.UserID)
		if err != nil {
			return err
		}
		b.updateKeyboard(chatID, messageID, settingsKeyboard(user))
		if a.To {
			b.sendTemporary(chatID, "🎲 Degen mode ON: orders go straight through without confirmation.")
		} else {
			b.sendTemporary(chatID, "🎲 Degen mode OFF: orders ask for confirmation again.")
		}
		return nil

	case DepositToSubaccountAction:
		return b.actionStartDeposit(ctx, cb)

	case ConfirmSubaccountDepositAction:
		return b.actionConfirmDeposit(ctx, cb, a)

	case ExternalWithdrawAction:
		_, wallet, ok := b.requireUser(chatID, cb.From.ID)
		if !ok {
			return nil
		}
		balance, err := b.usdcBalance(ctx, wallet.Address)
		if err != nil {
			return err
		}
		b.states.Set(chatID, ExternalWithdrawAmountState{Balance: balance})
		return b.sendForceReply(chatID, fmt.Sprintf(
			"🌐 *External Withdrawal*\n\nYou have $%s USDC available.\nHow much do you want to withdraw?", balance.StringFixed(2)))
	}
	return nil
}

func (b *Bot) actionCreateAccount(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	chatID := cb.Message.Chat.ID

	if _, err := b.db.GetUserByTelegramID(cb.From.ID); err == nil {
		b.sendText(chatID, "✅ You already have a trading account. Use /wallet to see it.")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := b.editMarkdown(chatID, cb.Message.MessageID, "⏳ Setting up your trading account..."); err != nil {
		return err
	}

	cred, err := b.chain.CreateWallet(ctx, fmt.Sprintf("tg-%d", cb.From.ID))
	if err != nil {
		b.editMarkdown(chatID, cb.Message.MessageID, "❌ Account creation failed, please try /start again.")
		return err
	}

	user := &database.User{TelegramID: cb.From.ID, TelegramUsername: cb.From.UserName, Notifications: true, SlippagePct: 5}
	wallet := &database.Wallet{WalletID: cred.WalletID, Address: cred.Address, PublicKey: cred.PublicKey}
	if err := b.db.CreateUserWithWallet(user, wallet); err != nil {
		return err
	}

	// Grant the operator trading rights so orders can be relayed. Funds are
	// needed for the account to exist on chain, so a failure here is
	// expected for brand-new wallets and retried implicitly on first trade.
	if _, err := b.chain.SubmitWithFeePayer(ctx, wallet.Address, wallet.PublicKey,
		dex.DelegateTradingTo(b.contract, b.chain.SponsorAddress())); err != nil {
		log.Warn().Err(err).Str("address", wallet.Address).Msg("Trading delegation deferred")
	} else if sub, err := b.primarySubaccount(ctx, wallet.Address); err == nil {
		b.db.SaveSubAccount(&database.SubAccount{WalletID: wallet.ID, Address: sub.Hex(), IsPrimary: true})
	}

	text := fmt.Sprintf(`🎉 *Your trading account is ready!*

💳 *Wallet:* `+"`%s`"+`

Use /mint to grab test USDC, then /long or /short to trade.`, wallet.Address)
	return b.editMarkdown(chatID, cb.Message.MessageID, text)
}

func (b *Bot) actionStartDeposit(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	chatID := cb.Message.Chat.ID
	_, wallet, ok := b.requireUser(chatID, cb.From.ID)
	if !ok {
		return nil
	}

	sub, err := b.primarySubaccount(ctx, wallet.Address)
	if err != nil {
		return err
	}
	balance, err := b.usdcBalance(ctx, wallet.Address)
	if err != nil {
		return err
	}

	b.states.Set(chatID, DepositToSubaccountState{SubAccount: sub.Hex(), Balance: balance})
	return b.sendForceReply(chatID, fmt.Sprintf(
		"💰 *Deposit to Subaccount*\n\nYou have $%s USDC in your wallet.\nHow much do you want to move into your trading subaccount?",
		balance.StringFixed(2)))
}

func (b *Bot) actionConfirmDeposit(ctx context.Context, cb *tgbotapi.CallbackQuery, a ConfirmSubaccountDepositAction) error {
	chatID := cb.Message.Chat.ID
	_, wallet, ok := b.requireUser(chatID, cb.From.ID)
	if !ok {
		return nil
	}
	b.clearKeyboard(chatID, cb.Message.MessageID)

	sub, err := b.primarySubaccount(ctx, wallet.Address)
	if err != nil {
		return err
	}
	amountU, err := perps.ToChainUnits(a.Amount, perps.QuoteDecimals)
	if err != nil {
		return fmt.Errorf("scaling deposit: %w", err)
	}

	processing, err := b.sendMarkdown(chatID, "⏳ Depositing to your subaccount...")
	if err != nil {
		return err
	}
	payload := dex.DepositToSubaccountAt(b.contract, sub, b.usdcAsset, amountU)
	hash, err := b.chain.SubmitWithFeePayer(ctx, wallet.Address, wallet.PublicKey, payload)
	if err != nil {
		b.editMarkdown(chatID, processing.MessageID, "❌ Deposit failed, please try again.")
		return err
	}
	return b.editMarkdown(chatID, processing.MessageID, fmt.Sprintf(
		"✅ *Deposited $%s USDC* into `%s`\n\n[View transaction](%s)",
		a.Amount.StringFixed(2), sub.Short(), b.cfg.ExplorerTxnURL(hash)))
}

func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	b.updateKeyboard(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
}

func (b *Bot) updateKeyboard(chatID int64, messageID int, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, keyboard)
	if _, err := b.api.Send(edit); err != nil {
		log.Debug().Err(err).Msg("Failed to update keyboard")
	}
}
