// Package dex builds entry-function payloads and view calls for the perps
// exchange contract and the framework's fungible asset module.
package dex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pacetrade/pacebot/internal/chain"
	"github.com/pacetrade/pacebot/internal/chain/bcs"
)

const (
	accountsModule = "dex_accounts"
	usdcModule     = "usdc"

	balanceFunction = "0x1::primary_fungible_store::balance"
	metadataTypeTag = "0x1::fungible_asset::Metadata"
)

// DefaultTimeInForce is the resting order mode; the venue fills what crosses
// and books the rest.
const DefaultTimeInForce uint64 = 0

// Mint builds the faucet call minting test collateral to an account.
func Mint(contract, recipient chain.AccountAddress, amount uint64) chain.EntryFunction {
	return chain.EntryFunction{
		Module:   chain.ModuleID{Address: contract, Name: usdcModule},
		Function: "mint",
		Args: [][]byte{
			bcs.Encode(recipient),
			bcs.EncodeU64(amount),
		},
	}
}

// DelegateTradingTo builds the call granting the delegate trading rights over
// the sender's exchange account. Run once at onboarding so the operator can
// relay orders.
func DelegateTradingTo(contract, delegate chain.AccountAddress) chain.EntryFunction {
	return chain.EntryFunction{
		Module:   chain.ModuleID{Address: contract, Name: accountsModule},
		Function: "delegate_trading_to",
		Args:     [][]byte{bcs.Encode(delegate)},
	}
}

// OrderOptions carries the optional tail of place_order_to_subaccount. Nil
// fields encode as None.
type OrderOptions struct {
	ClientOrderID  *uint64
	StopPrice      *uint64
	TPTriggerPrice *uint64
	TPLimitPrice   *uint64
	SLTriggerPrice *uint64
	SLLimitPrice   *uint64
	BuilderAddress *chain.AccountAddress
	BuilderFee     *uint64
}

// PlaceOrderToSubaccount builds an order placement against a subaccount.
// Price and size are already scaled to chain units.
func PlaceOrderToSubaccount(contract, subaccount, market chain.AccountAddress, price, size uint64, isBuy bool, tif uint64, reduceOnly bool, opts OrderOptions) chain.EntryFunction {
	var builder bcs.Marshaler
	if opts.BuilderAddress != nil {
		builder = *opts.BuilderAddress
	}
	return chain.EntryFunction{
		Module:   chain.ModuleID{Address: contract, Name: accountsModule},
		Function: "place_order_to_subaccount",
		Args: [][]byte{
			bcs.Encode(subaccount),
			bcs.Encode(market),
			bcs.EncodeU64(price),
			bcs.EncodeU64(size),
			bcs.EncodeBool(isBuy),
			bcs.EncodeU64(tif),
			bcs.EncodeBool(reduceOnly),
			bcs.EncodeOptionU64(opts.ClientOrderID),
			bcs.EncodeOptionU64(opts.StopPrice),
			bcs.EncodeOptionU64(opts.TPTriggerPrice),
			bcs.EncodeOptionU64(opts.TPLimitPrice),
			bcs.EncodeOptionU64(opts.SLTriggerPrice),
			bcs.EncodeOptionU64(opts.SLLimitPrice),
			bcs.EncodeOption(builder),
			bcs.EncodeOptionU64(opts.BuilderFee),
		},
	}
}

// DepositToSubaccountAt builds the transfer of collateral from an account's
// primary store into one of its subaccounts.
func DepositToSubaccountAt(contract, subaccount, asset chain.AccountAddress, amount uint64) chain.EntryFunction {
	return chain.EntryFunction{
		Module:   chain.ModuleID{Address: contract, Name: accountsModule},
		Function: "deposit_to_subaccount_at",
		Args: [][]byte{
			bcs.Encode(subaccount),
			bcs.Encode(asset),
			bcs.EncodeU64(amount),
		},
	}
}

// TransferFA builds a plain fungible asset transfer out of the sender's
// primary store. The framework entry point takes the asset as a value
// argument, not a type argument.
func TransferFA(asset, to chain.AccountAddress, amount uint64) chain.EntryFunction {
	return chain.EntryFunction{
		Module:   chain.ModuleID{Address: chain.AddressOne, Name: "primary_fungible_store"},
		Function: "transfer",
		Args: [][]byte{
			bcs.Encode(asset),
			bcs.Encode(to),
			bcs.EncodeU64(amount),
		},
	}
}

// Viewer executes read-only view calls; satisfied by the chain service.
type Viewer interface {
	View(ctx context.Context, req chain.ViewRequest) ([]json.RawMessage, error)
}

// FungibleBalance reads an account's balance of a fungible asset in raw chain
// units.
func FungibleBalance(ctx context.Context, v Viewer, asset, owner string) (uint64, error) {
	results, err := v.View(ctx, chain.ViewRequest{
		Function:      balanceFunction,
		TypeArguments: []string{metadataTypeTag},
		Arguments:     []any{owner, asset},
	})
	if err != nil {
		return 0, err
	}
	raw, err := firstString(results)
	if err != nil {
		return 0, fmt.Errorf("reading balance of %s: %w", owner, err)
	}
	balance, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing balance %q: %w", raw, err)
	}
	return balance, nil
}

// PrimarySubaccount resolves the address of an account's primary exchange
// subaccount.
func PrimarySubaccount(ctx context.Context, v Viewer, contract chain.AccountAddress, owner string) (string, error) {
	results, err := v.View(ctx, chain.ViewRequest{
		Function:  contract.Short() + "::" + accountsModule + "::primary_subaccount",
		Arguments: []any{owner},
	})
	if err != nil {
		return "", err
	}
	sub, err := firstString(results)
	if err != nil {
		return "", fmt.Errorf("resolving primary subaccount of %s: %w", owner, err)
	}
	return sub, nil
}

func firstString(results []json.RawMessage) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("view returned no values")
	}
	var s string
	if err := json.Unmarshal(results[0], &s); err != nil {
		return "", fmt.Errorf("view result is not a string: %w", err)
	}
	return s, nil
}
