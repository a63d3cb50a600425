package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/pacetrade/pacebot/internal/database"
)

const leverageButtonsPerRow = 5

// leverageKeyboard lays out 1x..max leverage buttons in rows of five.
func leverageKeyboard(maxLeverage uint8, button func(leverage uint8) Action) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for lev := uint8(1); lev <= maxLeverage; lev++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%dx", lev),
			button(lev).Encode(),
		))
		if len(row) == leverageButtonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmOrderKeyboard(action PlaceOrderAction) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", action.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", CancelAction{}.Encode()),
		),
	)
}

func limitSideKeyboard(market string, price decimal.Decimal, leverage uint8, amount decimal.Decimal) tgbotapi.InlineKeyboardMarkup {
	buy := PlaceLimitOrderAction{MarketName: market, Price: price, Leverage: leverage, Amount: amount, IsLong: true}
	sell := PlaceLimitOrderAction{MarketName: market, Price: price, Leverage: leverage, Amount: amount, IsLong: false}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🟢 Buy / Long", buy.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("🔴 Sell / Short", sell.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", CancelAction{}.Encode()),
		),
	)
}

func newUserKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Create Trading Account", CreateAccountAction{}.Encode()),
		),
	)
}

func existingUserKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Deposit to Subaccount", DepositToSubaccountAction{}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 Withdraw to External Wallet", ExternalWithdrawAction{}.Encode()),
		),
	)
}

func walletKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Deposit to Subaccount", DepositToSubaccountAction{}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("🌐 Withdraw", ExternalWithdrawAction{}.Encode()),
		),
	)
}

func settingsKeyboard(user *database.User) tgbotapi.InlineKeyboardMarkup {
	degenLabel := "🎲 Degen Mode: OFF"
	if user.DegenMode {
		degenLabel = "🎲 Degen Mode: ON"
	}
	notifLabel := "🔕 Notifications: OFF"
	if user.Notifications {
		notifLabel = "🔔 Notifications: ON"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(degenLabel, ChangeDegenModeAction{UserID: user.ID, To: !user.DegenMode}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(notifLabel, ChangeNotificationAction{}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📉 Slippage: %d%%", user.SlippagePct), SlippageAction{}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Export Private Key", ExportPkAction{}.Encode()),
		),
	)
}

func exportWarningKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Yes, show my key", ShowPkAction{}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", CancelAction{}.Encode()),
		),
	)
}

func slippageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Update Slippage", UpdateSlippageAction{}.Encode()),
		),
	)
}

func confirmDepositKeyboard(amount decimal.Decimal) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", ConfirmSubaccountDepositAction{Amount: amount}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", CancelAction{}.Encode()),
		),
	)
}
