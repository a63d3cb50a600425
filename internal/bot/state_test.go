package bot

import (
	"testing"
	"time"
)

func TestStateStoreTakeRemoves(t *testing.T) {
	s := NewStateStore(0)
	s.Set(1, OrderPairState{IsLong: true})

	st, ok := s.Take(1)
	if !ok {
		t.Fatal("state missing")
	}
	if _, isOrder := st.(OrderPairState); !isOrder {
		t.Fatalf("wrong state %T", st)
	}
	if _, ok := s.Take(1); ok {
		t.Fatal("second take must come up empty")
	}
}

func TestStateStoreSetReplaces(t *testing.T) {
	s := NewStateStore(0)
	s.Set(1, OrderPairState{IsLong: true})
	s.Set(1, UpdateSlippageState{})

	st, ok := s.Take(1)
	if !ok {
		t.Fatal("state missing")
	}
	if _, isSlippage := st.(UpdateSlippageState); !isSlippage {
		t.Fatalf("replacement did not win: %T", st)
	}
}

func TestStateStoreIsPerChat(t *testing.T) {
	s := NewStateStore(0)
	s.Set(1, OrderPairState{IsLong: true})
	s.Set(2, LimitPairState{})

	if _, ok := s.Take(2); !ok {
		t.Fatal("chat 2 state missing")
	}
	if _, ok := s.Take(1); !ok {
		t.Fatal("chat 1 state missing")
	}
}

func TestStateStoreTTLExpires(t *testing.T) {
	s := NewStateStore(time.Millisecond)
	s.Set(1, OrderPairState{})
	time.Sleep(5 * time.Millisecond)
	if _, ok := s.Take(1); ok {
		t.Fatal("expired state must not be returned")
	}
}

func TestStateStoreZeroTTLNeverExpires(t *testing.T) {
	s := NewStateStore(0)
	s.Set(1, OrderPairState{})
	time.Sleep(5 * time.Millisecond)
	if _, ok := s.Take(1); !ok {
		t.Fatal("zero ttl state expired")
	}
}
