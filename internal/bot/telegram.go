// Package bot is the Telegram front end: command handlers, inline keyboard
// callbacks, and the per-chat conversation state machine that walks users
// through order entry, deposits and withdrawals.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pacetrade/pacebot/internal/chain"
	"github.com/pacetrade/pacebot/internal/config"
	"github.com/pacetrade/pacebot/internal/database"
	"github.com/pacetrade/pacebot/internal/dex"
	"github.com/pacetrade/pacebot/internal/marketdata"
	"github.com/pacetrade/pacebot/internal/perps"
)

// How long error notices and exported keys stay on screen.
const (
	errorMessageTTL = 15 * time.Second
	keyMessageTTL   = 30 * time.Second
)

// ChainService is the slice of the transaction pipeline the bot calls.
type ChainService interface {
	View(ctx context.Context, req chain.ViewRequest) ([]json.RawMessage, error)
	SubmitWithFeePayer(ctx context.Context, sender, senderPublicKey string, payload chain.EntryFunction) (string, error)
	CreateWallet(ctx context.Context, name string) (chain.WalletCredential, error)
	ExportPrivateKey(ctx context.Context, address string) (string, error)
	SponsorAddress() chain.AccountAddress
}

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot handles Telegram interactions for the trading system
type Bot struct {
	api       telegramAPI
	botAPI    *tgbotapi.BotAPI
	cfg       *config.Config
	db        *database.Database
	chain     ChainService
	markets   marketdata.Cache
	states    *StateStore
	contract  chain.AccountAddress
	usdcAsset chain.AccountAddress
	stopCh    chan struct{}
}

// New creates the Telegram bot.
func New(cfg *config.Config, db *database.Database, chainSvc ChainService, markets marketdata.Cache) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	api.Debug = cfg.Debug

	contract, err := chain.ParseAddress(cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid CONTRACT_ADDRESS: %w", err)
	}
	usdc, err := chain.ParseAddress(cfg.UsdcAsset)
	if err != nil {
		return nil, fmt.Errorf("invalid USDC_ASSET: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot connected")

	return &Bot{
		api:       api,
		botAPI:    api,
		cfg:       cfg,
		db:        db,
		chain:     chainSvc,
		markets:   markets,
		states:    NewStateStore(cfg.StateTTL),
		contract:  contract,
		usdcAsset: usdc,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start begins the bot's update listener
func (b *Bot) Start() {
	go b.listenForUpdates()
}

// Stop stops the bot
func (b *Bot) Stop() {
	close(b.stopCh)
}

func (b *Bot) listenForUpdates() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.botAPI.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				go b.handleMessage(update.Message)
			}
			if update.CallbackQuery != nil {
				go b.handleCallback(update.CallbackQuery)
			}
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ctx := context.Background()

	log.Debug().
		Int64("chat_id", chatID).
		Str("text", msg.Text).
		Msg("Received message")

	var err error
	if msg.IsCommand() {
		b.states.Clear(chatID)
		err = b.handleCommand(ctx, msg)
	} else {
		err = b.handleReply(ctx, msg)
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Handler failed")
		b.sendTemporary(chatID, fmt.Sprintf("❌ %s", err.Error()))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		return b.cmdStart(ctx, msg)
	case "mint":
		return b.cmdMint(ctx, msg)
	case "long":
		return b.cmdOrder(ctx, msg, true)
	case "short":
		return b.cmdOrder(ctx, msg, false)
	case "limit":
		return b.cmdLimit(ctx, msg)
	case "wallet":
		return b.cmdWallet(ctx, msg)
	case "settings":
		return b.cmdSettings(ctx, msg)
	case "help":
		return b.cmdHelp(chatID)
	default:
		b.sendText(chatID, "❓ Unknown command. Use /help for available commands.")
		return nil
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	ctx := context.Background()

	log.Debug().
		Int64("chat_id", chatID).
		Str("data", cb.Data).
		Msg("Received callback")

	b.api.Request(tgbotapi.NewCallback(cb.ID, ""))

	action, err := ParseAction(cb.Data)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Unparseable callback")
		return
	}
	if err := b.handleAction(ctx, cb, action); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Callback handler failed")
		b.sendTemporary(chatID, fmt.Sprintf("❌ %s", err.Error()))
	}
}

// requireUser loads the caller's account and primary wallet, prompting for
// /start when they have none.
func (b *Bot) requireUser(chatID, telegramID int64) (*database.User, *database.Wallet, bool) {
	user, err := b.db.GetUserByTelegramID(telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			b.sendText(chatID, "👋 You don't have a trading account yet. Use /start to create one.")
		} else {
			log.Error().Err(err).Msg("Failed to load user")
			b.sendTemporary(chatID, "❌ Something went wrong, please try again.")
		}
		return nil, nil, false
	}
	wallet, err := b.db.GetPrimaryWallet(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user", user.ID.String()).Msg("Failed to load wallet")
		b.sendTemporary(chatID, "❌ Something went wrong, please try again.")
		return nil, nil, false
	}
	return user, wallet, true
}

// usdcBalance reads the wallet's collateral balance in USDC.
func (b *Bot) usdcBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	raw, err := dex.FungibleBalance(ctx, b.chain, b.usdcAsset.Hex(), owner)
	if err != nil {
		return decimal.Zero, err
	}
	return perps.FromChainUnits(raw, perps.QuoteDecimals), nil
}

// primarySubaccount resolves the wallet's primary exchange subaccount.
func (b *Bot) primarySubaccount(ctx context.Context, owner string) (chain.AccountAddress, error) {
	sub, err := dex.PrimarySubaccount(ctx, b.chain, b.contract, owner)
	if err != nil {
		return chain.AccountAddress{}, err
	}
	return chain.ParseAddress(sub)
}

// Send helpers

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	return b.api.Send(msg)
}

func (b *Bot) sendMarkdownWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendForceReply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editMarkdown(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	edit.DisableWebPagePreview = true
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

// sendTemporary shows a notice that cleans itself up after a short while.
func (b *Bot) sendTemporary(chatID int64, text string) {
	b.sendEphemeral(chatID, text, errorMessageTTL)
}

func (b *Bot) sendEphemeral(chatID int64, text string, ttl time.Duration) {
	msg, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		log.Error().Err(err).Msg("Failed to send message")
		return
	}
	go func() {
		select {
		case <-time.After(ttl):
			b.deleteMessage(chatID, msg.MessageID)
		case <-b.stopCh:
		}
	}()
}
