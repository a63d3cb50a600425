package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/pacetrade/pacebot/internal/chain"
	"github.com/pacetrade/pacebot/internal/config"
	"github.com/pacetrade/pacebot/internal/database"
	"github.com/pacetrade/pacebot/internal/marketdata"
)

type fakeChain struct {
	mu      sync.Mutex
	balance uint64
	submits []chain.EntryFunction
	exports int
}

func (f *fakeChain) View(ctx context.Context, req chain.ViewRequest) ([]json.RawMessage, error) {
	if strings.Contains(req.Function, "primary_subaccount") {
		return []json.RawMessage{json.RawMessage(`"0x77"`)}, nil
	}
	return []json.RawMessage{json.RawMessage(fmt.Sprintf(`"%d"`, f.balance))}, nil
}

func (f *fakeChain) SubmitWithFeePayer(ctx context.Context, sender, senderPublicKey string, payload chain.EntryFunction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, payload)
	return "0xhash", nil
}

func (f *fakeChain) CreateWallet(ctx context.Context, name string) (chain.WalletCredential, error) {
	return chain.WalletCredential{WalletID: "w1", Address: "0xabc", PublicKey: strings.Repeat("aa", 32)}, nil
}

func (f *fakeChain) ExportPrivateKey(ctx context.Context, address string) (string, error) {
	f.exports++
	return strings.Repeat("11", 32), nil
}

func (f *fakeChain) SponsorAddress() chain.AccountAddress {
	return chain.AddressOne
}

func (f *fakeChain) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func testBot(t *testing.T, fc *fakeChain) (*Bot, *fakeAPI) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatal(err)
	}

	markets := marketdata.NewStore()
	markets.SetMarkets([]marketdata.Market{
		{MarketAddr: "0x20", MarketName: "APT/USD", SzDecimals: 2, PxDecimals: 4, MaxLeverage: 20},
	})
	markets.SetAssetContexts([]marketdata.AssetContext{
		{Market: "APT/USD", MarkPrice: decimal.RequireFromString("4")},
	})

	cfg := &config.Config{
		ContractAddress:        "0x10",
		UsdcAsset:              "0x30",
		ExplorerURL:            "https://explorer.example.com",
		ExplorerNetwork:        "testnet",
		MinTradeBalance:        decimal.NewFromInt(10),
		MaintenanceMarginRatio: decimal.RequireFromString("0.01"),
		MintAmount:             10_000_000,
	}

	contract, _ := chain.ParseAddress(cfg.ContractAddress)
	usdc, _ := chain.ParseAddress(cfg.UsdcAsset)
	api := &fakeAPI{}
	return &Bot{
		api:       api,
		cfg:       cfg,
		db:        db,
		chain:     fc,
		markets:   markets,
		states:    NewStateStore(cfg.StateTTL),
		contract:  contract,
		usdcAsset: usdc,
		stopCh:    make(chan struct{}),
	}, api
}

func seedUser(t *testing.T, b *Bot, telegramID int64, degen bool) *database.User {
	t.Helper()
	user := &database.User{TelegramID: telegramID, DegenMode: degen, Notifications: true, SlippagePct: 5}
	wallet := &database.Wallet{WalletID: "w1", Address: "0xabc", PublicKey: strings.Repeat("aa", 32)}
	if err := b.db.CreateUserWithWallet(user, wallet); err != nil {
		t.Fatal(err)
	}
	return user
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 42, UserName: "alice"},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 100}},
		Data:    data,
	}
}

func reply(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 8,
		From:      &tgbotapi.User{ID: 42, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: 100},
		Text:      text,
	}
}

func TestConfirmOrderSubmitsExactlyOnce(t *testing.T) {
	fc := &fakeChain{balance: 100_000_000} // $100
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, false)

	action, err := ParseAction("place|APT/USD|true|5|20")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.handleAction(context.Background(), callback(action.Encode()), action); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 1 {
		t.Fatalf("submitted %d transactions, want 1", fc.submitCount())
	}
	payload := fc.submits[0]
	if payload.Function != "place_order_to_subaccount" {
		t.Fatalf("submitted %s", payload.Function)
	}
	if len(payload.Args) != 15 {
		t.Fatalf("order payload has %d args", len(payload.Args))
	}
}

func TestInsufficientBalanceNeverReachesSigner(t *testing.T) {
	fc := &fakeChain{balance: 15_000_000} // $15
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, false)

	b.states.Set(100, OrderMarginState{MarketName: "APT/USD", IsLong: true, Leverage: 5})
	if err := b.handleReply(context.Background(), reply("100")); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 0 {
		t.Fatal("insufficient balance must not submit anything")
	}
	if _, ok := b.states.Take(100); ok {
		t.Fatal("terminal failure must clear the pending state")
	}
}

func TestOrderMarginChecksLiveBalance(t *testing.T) {
	fc := &fakeChain{balance: 15_000_000} // $15 on chain right now
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, true)

	// The leverage button carries only market/side/leverage; whatever balance
	// the user had when the keyboard was sent must not be trusted.
	action, err := ParseAction("order_lev|APT/USD|true|5")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.handleAction(context.Background(), callback(action.Encode()), action); err != nil {
		t.Fatal(err)
	}
	if err := b.handleReply(context.Background(), reply("100")); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 0 {
		t.Fatalf("order with $100 margin submitted against live balance $15 (submits=%d)", fc.submitCount())
	}
	if _, ok := b.states.Take(100); ok {
		t.Fatal("terminal failure must clear the pending state")
	}
}

func TestDegenModePlacesWithoutConfirmation(t *testing.T) {
	fc := &fakeChain{balance: 100_000_000}
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, true)

	b.states.Set(100, OrderMarginState{MarketName: "APT/USD", IsLong: false, Leverage: 10})
	if err := b.handleReply(context.Background(), reply("25")); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 1 {
		t.Fatalf("degen mode submitted %d transactions, want 1", fc.submitCount())
	}
}

func TestUnknownTickerReArmsState(t *testing.T) {
	fc := &fakeChain{balance: 100_000_000}
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, false)

	b.states.Set(100, OrderPairState{IsLong: true})
	if err := b.handleReply(context.Background(), reply("DOGE")); err != nil {
		t.Fatal(err)
	}

	st, ok := b.states.Take(100)
	if !ok {
		t.Fatal("state must survive an unknown ticker")
	}
	if _, isOrder := st.(OrderPairState); !isOrder {
		t.Fatalf("wrong state %T", st)
	}
}

func TestInvalidAmountReArmsState(t *testing.T) {
	fc := &fakeChain{balance: 100_000_000}
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, false)

	b.states.Set(100, OrderMarginState{MarketName: "APT/USD", IsLong: true, Leverage: 5})
	if err := b.handleReply(context.Background(), reply("lots")); err != nil {
		t.Fatal(err)
	}

	if _, ok := b.states.Take(100); !ok {
		t.Fatal("state must survive an unparseable amount")
	}
	if fc.submitCount() != 0 {
		t.Fatal("nothing should be submitted for bad input")
	}
}

func TestPercentAmountUsesBalance(t *testing.T) {
	fc := &fakeChain{balance: 100_000_000}
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, true)

	b.states.Set(100, OrderMarginState{MarketName: "APT/USD", IsLong: true, Leverage: 2})
	if err := b.handleReply(context.Background(), reply("50%")); err != nil {
		t.Fatal(err)
	}

	// 50% of $100 at 2x is a $100 notional order, submitted immediately in
	// degen mode.
	if fc.submitCount() != 1 {
		t.Fatalf("submitted %d transactions, want 1", fc.submitCount())
	}
}

func TestMintCommand(t *testing.T) {
	fc := &fakeChain{balance: 0}
	b, api := testBot(t, fc)
	seedUser(t, b, 42, false)

	msg := reply("/mint")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}}
	if err := b.handleCommand(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 1 {
		t.Fatalf("mint submitted %d transactions, want 1", fc.submitCount())
	}
	if fc.submits[0].Function != "mint" {
		t.Fatalf("submitted %s", fc.submits[0].Function)
	}

	// The success message reflects the configured mint amount.
	var success string
	for _, c := range api.sent {
		if edit, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			success = edit.Text
		}
	}
	if !strings.Contains(success, "$10.00") {
		t.Fatalf("mint success message = %q, want configured amount", success)
	}
}

func TestOneShotLimitCommand(t *testing.T) {
	fc := &fakeChain{balance: 100_000_000}
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, false)

	msg := reply("/limit long APT 5 3.50 50%")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	if err := b.handleCommand(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 1 {
		t.Fatalf("one-shot limit submitted %d transactions, want 1", fc.submitCount())
	}
	if fc.submits[0].Function != "place_order_to_subaccount" {
		t.Fatalf("submitted %s", fc.submits[0].Function)
	}
}

func TestOneShotLimitRejectsExcessLeverage(t *testing.T) {
	fc := &fakeChain{balance: 100_000_000}
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, false)

	msg := reply("/limit long APT 50 3.50 20")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	if err := b.handleCommand(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 0 {
		t.Fatal("leverage above the market maximum must not submit")
	}
}

func TestWithdrawFlow(t *testing.T) {
	fc := &fakeChain{balance: 50_000_000}
	b, _ := testBot(t, fc)
	seedUser(t, b, 42, false)

	b.states.Set(100, ExternalWithdrawAmountState{Balance: decimal.NewFromInt(50)})
	if err := b.handleReply(context.Background(), reply("20")); err != nil {
		t.Fatal(err)
	}
	if err := b.handleReply(context.Background(), reply("0xdeadbeef")); err != nil {
		t.Fatal(err)
	}

	if fc.submitCount() != 1 {
		t.Fatalf("withdrawal submitted %d transactions, want 1", fc.submitCount())
	}
	if fc.submits[0].Function != "transfer" {
		t.Fatalf("submitted %s", fc.submits[0].Function)
	}
}
