package database

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateUserWithWallet(t *testing.T) {
	d := testDB(t)
	user := &User{TelegramID: 42, TelegramUsername: "alice"}
	wallet := &Wallet{WalletID: "w1", Address: "0xabc", PublicKey: "aa"}
	if err := d.CreateUserWithWallet(user, wallet); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetUserByTelegramID(42)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != user.ID || got.SlippagePct != 5 || got.DegenMode {
		t.Fatalf("unexpected user %+v", got)
	}

	w, err := d.GetPrimaryWallet(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if w.Address != "0xabc" || !w.IsPrimary {
		t.Fatalf("unexpected wallet %+v", w)
	}
}

func TestGetUserByTelegramIDNotFound(t *testing.T) {
	d := testDB(t)
	_, err := d.GetUserByTelegramID(999)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want record not found", err)
	}
}

func TestSettingsUpdates(t *testing.T) {
	d := testDB(t)
	user := &User{TelegramID: 7}
	if err := d.CreateUserWithWallet(user, &Wallet{Address: "0x1"}); err != nil {
		t.Fatal(err)
	}

	if err := d.SetDegenMode(user.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := d.SetSlippage(user.ID, 12); err != nil {
		t.Fatal(err)
	}
	if err := d.SetNotifications(user.ID, false); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetUserByID(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.DegenMode || got.SlippagePct != 12 || got.Notifications {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestSubAccounts(t *testing.T) {
	d := testDB(t)
	user := &User{TelegramID: 8}
	wallet := &Wallet{Address: "0x2"}
	if err := d.CreateUserWithWallet(user, wallet); err != nil {
		t.Fatal(err)
	}

	if err := d.SaveSubAccount(&SubAccount{WalletID: wallet.ID, Address: "0xsub1", IsPrimary: true}); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveSubAccount(&SubAccount{WalletID: wallet.ID, Address: "0xsub2"}); err != nil {
		t.Fatal(err)
	}

	subs, err := d.GetSubAccounts(wallet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d subaccounts, want 2", len(subs))
	}
}
