package bot

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PendingState is what the bot is waiting to hear from a chat. Each chat has
// at most one pending state; starting a new flow replaces whatever was there.
type PendingState interface {
	pendingState()
}

// OrderPairState waits for a ticker after /long or /short.
type OrderPairState struct {
	IsLong bool
}

// OrderMarginState waits for a margin amount after a leverage pick. The
// available balance is not cached here; it is read from the chain when the
// amount arrives so withdrawals mid-flow can't be outrun.
type OrderMarginState struct {
	MarketName string
	IsLong     bool
	Leverage   uint8
}

// LimitPairState waits for a ticker after a bare /limit.
type LimitPairState struct{}

// LimitPriceState waits for a limit price.
type LimitPriceState struct {
	MarketName string
}

// LimitOrderMarginState waits for a margin amount on a limit order.
type LimitOrderMarginState struct {
	MarketName string
	Price      decimal.Decimal
	Leverage   uint8
}

// DepositToSubaccountState waits for a deposit amount.
type DepositToSubaccountState struct {
	SubAccount string
	Balance    decimal.Decimal
}

// ExternalWithdrawAmountState waits for a withdrawal amount.
type ExternalWithdrawAmountState struct {
	Balance decimal.Decimal
}

// ExternalWithdrawAddressState waits for the destination address.
type ExternalWithdrawAddressState struct {
	Amount decimal.Decimal
}

// UpdateSlippageState waits for a new slippage percentage.
type UpdateSlippageState struct{}

func (OrderPairState) pendingState()               {}
func (OrderMarginState) pendingState()             {}
func (LimitPairState) pendingState()               {}
func (LimitPriceState) pendingState()              {}
func (LimitOrderMarginState) pendingState()        {}
func (DepositToSubaccountState) pendingState()     {}
func (ExternalWithdrawAmountState) pendingState()  {}
func (ExternalWithdrawAddressState) pendingState() {}
func (UpdateSlippageState) pendingState()          {}

type stateEntry struct {
	state      PendingState
	insertedAt time.Time
}

// StateStore holds the pending state per chat. Take removes the state in the
// same critical section that reads it, so two racing replies can never both
// act on one prompt; a handler that hits a recoverable error re-inserts.
type StateStore struct {
	mu  sync.Mutex
	m   map[int64]stateEntry
	ttl time.Duration
}

// NewStateStore builds a store. ttl bounds how long a pending prompt stays
// answerable; zero means forever.
func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{m: make(map[int64]stateEntry), ttl: ttl}
}

// Set installs the pending state for a chat, replacing any previous one.
func (s *StateStore) Set(chatID int64, state PendingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = stateEntry{state: state, insertedAt: time.Now()}
}

// Take atomically removes and returns the chat's pending state.
func (s *StateStore) Take(chatID int64) (PendingState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[chatID]
	if !ok {
		return nil, false
	}
	delete(s.m, chatID)
	if s.ttl > 0 && time.Since(e.insertedAt) > s.ttl {
		return nil, false
	}
	return e.state, true
}

// Clear drops the chat's pending state, if any.
func (s *StateStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
