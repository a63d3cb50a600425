package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Callback actions are encoded into inline keyboard button data as a tag
// followed by pipe-separated fields, and parsed back when the button is
// pressed. Telegram caps callback data at 64 bytes, so fields stay terse.

type Action interface {
	Encode() string
}

// OrderLeverageAction is a leverage pick on the market order keyboard. It
// deliberately carries no amounts: callback data comes back from the client,
// so anything monetary is re-fetched when the button is pressed.
type OrderLeverageAction struct {
	MarketName string
	IsLong     bool
	Leverage   uint8
}

func (a OrderLeverageAction) Encode() string {
	return fmt.Sprintf("order_lev|%s|%t|%d", a.MarketName, a.IsLong, a.Leverage)
}

// PlaceOrderAction is the confirm button on a market order quote.
type PlaceOrderAction struct {
	MarketName string
	IsLong     bool
	Leverage   uint8
	Amount     decimal.Decimal
}

func (a PlaceOrderAction) Encode() string {
	return fmt.Sprintf("place|%s|%t|%d|%s", a.MarketName, a.IsLong, a.Leverage, a.Amount)
}

// CancelAction dismisses the message it is attached to.
type CancelAction struct{}

func (CancelAction) Encode() string { return "cancel" }

// LimitOrderLeverageAction is a leverage pick on the limit order keyboard.
type LimitOrderLeverageAction struct {
	MarketName string
	Price      decimal.Decimal
	Leverage   uint8
}

func (a LimitOrderLeverageAction) Encode() string {
	return fmt.Sprintf("limit_leverage|%s|%s|%d", a.MarketName, a.Price, a.Leverage)
}

// PlaceLimitOrderAction is the buy or sell button on a limit order quote.
type PlaceLimitOrderAction struct {
	MarketName string
	Price      decimal.Decimal
	Leverage   uint8
	Amount     decimal.Decimal
	IsLong     bool
}

func (a PlaceLimitOrderAction) Encode() string {
	return fmt.Sprintf("limit|%s|%s|%d|%s|%t", a.MarketName, a.Price, a.Leverage, a.Amount, a.IsLong)
}

// CreateAccountAction provisions a wallet for a new user.
type CreateAccountAction struct{}

func (CreateAccountAction) Encode() string { return "create_account" }

// ExportPkAction opens the key export warning.
type ExportPkAction struct{}

func (ExportPkAction) Encode() string { return "export_pk" }

// ShowPkAction confirms the key export.
type ShowPkAction struct{}

func (ShowPkAction) Encode() string { return "show_pk" }

// ChangeNotificationAction toggles fill notifications.
type ChangeNotificationAction struct{}

func (ChangeNotificationAction) Encode() string { return "change_notification" }

// SlippageAction shows the slippage setting.
type SlippageAction struct{}

func (SlippageAction) Encode() string { return "slippage" }

// UpdateSlippageAction prompts for a new slippage value.
type UpdateSlippageAction struct{}

func (UpdateSlippageAction) Encode() string { return "update_slippage" }

// ChangeDegenModeAction flips degen mode for a user.
type ChangeDegenModeAction struct {
	UserID uuid.UUID
	To     bool
}

func (a ChangeDegenModeAction) Encode() string {
	return fmt.Sprintf("change_degen|%s|%t", a.UserID, a.To)
}

// DepositToSubaccountAction starts the subaccount deposit flow.
type DepositToSubaccountAction struct{}

func (DepositToSubaccountAction) Encode() string { return "dep_to_sub" }

// ConfirmSubaccountDepositAction confirms a subaccount deposit.
type ConfirmSubaccountDepositAction struct {
	Amount decimal.Decimal
}

func (a ConfirmSubaccountDepositAction) Encode() string {
	return fmt.Sprintf("confirm_dep_to_sub|%s", a.Amount)
}

// ExternalWithdrawAction starts the external withdrawal flow.
type ExternalWithdrawAction struct{}

func (ExternalWithdrawAction) Encode() string { return "external_withdraw" }

// ParseAction decodes callback data back into an action. Unknown tags and
// malformed fields are errors; buttons from stale messages must not be
// misread as something else.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, "|")
	switch parts[0] {
	case "order_lev":
		if len(parts) != 4 {
			return nil, fmt.Errorf("order_lev has %d fields, want 4", len(parts))
		}
		isLong, err := strconv.ParseBool(parts[2])
		if err != nil {
			return nil, fmt.Errorf("parsing order_lev side: %w", err)
		}
		lev, err := parseLeverage(parts[3])
		if err != nil {
			return nil, err
		}
		return OrderLeverageAction{MarketName: parts[1], IsLong: isLong, Leverage: lev}, nil

	case "place":
		if len(parts) != 5 {
			return nil, fmt.Errorf("place has %d fields, want 5", len(parts))
		}
		isLong, err := strconv.ParseBool(parts[2])
		if err != nil {
			return nil, fmt.Errorf("parsing place side: %w", err)
		}
		lev, err := parseLeverage(parts[3])
		if err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(parts[4])
		if err != nil {
			return nil, fmt.Errorf("parsing place amount: %w", err)
		}
		return PlaceOrderAction{MarketName: parts[1], IsLong: isLong, Leverage: lev, Amount: amount}, nil

	case "cancel":
		return CancelAction{}, nil

	case "limit_leverage":
		if len(parts) != 4 {
			return nil, fmt.Errorf("limit_leverage has %d fields, want 4", len(parts))
		}
		price, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("parsing limit_leverage price: %w", err)
		}
		lev, err := parseLeverage(parts[3])
		if err != nil {
			return nil, err
		}
		return LimitOrderLeverageAction{MarketName: parts[1], Price: price, Leverage: lev}, nil

	case "limit":
		if len(parts) != 6 {
			return nil, fmt.Errorf("limit has %d fields, want 6", len(parts))
		}
		price, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("parsing limit price: %w", err)
		}
		lev, err := parseLeverage(parts[3])
		if err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(parts[4])
		if err != nil {
			return nil, fmt.Errorf("parsing limit amount: %w", err)
		}
		isLong, err := strconv.ParseBool(parts[5])
		if err != nil {
			return nil, fmt.Errorf("parsing limit side: %w", err)
		}
		return PlaceLimitOrderAction{MarketName: parts[1], Price: price, Leverage: lev, Amount: amount, IsLong: isLong}, nil

	case "create_account":
		return CreateAccountAction{}, nil
	case "export_pk":
		return ExportPkAction{}, nil
	case "show_pk":
		return ShowPkAction{}, nil
	case "change_notification":
		return ChangeNotificationAction{}, nil
	case "slippage":
		return SlippageAction{}, nil
	case "update_slippage":
		return UpdateSlippageAction{}, nil

	case "change_degen":
		if len(parts) != 3 {
			return nil, fmt.Errorf("change_degen has %d fields, want 3", len(parts))
		}
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parsing change_degen user: %w", err)
		}
		to, err := strconv.ParseBool(parts[2])
		if err != nil {
			return nil, fmt.Errorf("parsing change_degen target: %w", err)
		}
		return ChangeDegenModeAction{UserID: id, To: to}, nil

	case "dep_to_sub":
		return DepositToSubaccountAction{}, nil

	case "confirm_dep_to_sub":
		if len(parts) != 2 {
			return nil, fmt.Errorf("confirm_dep_to_sub has %d fields, want 2", len(parts))
		}
		amount, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parsing deposit amount: %w", err)
		}
		return ConfirmSubaccountDepositAction{Amount: amount}, nil

	case "external_withdraw":
		return ExternalWithdrawAction{}, nil
	}
	return nil, fmt.Errorf("unknown action %q", parts[0])
}

func parseLeverage(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parsing leverage %q: %w", s, err)
	}
	return uint8(v), nil
}
