package core

import (
	"testing"
	"time"
)

func TestWalletLedgerLockRequiresSufficientBalance(t *testing.T) {
	l := NewWalletLedger(10, time.Hour, nil)
	l.Credit("payer", 100)
	if err := l.Lock("escrow-1", "payer", 150, FLOP); err == nil {
		t.Fatal("expected insufficient-funds error")
	}
	if err := l.Lock("escrow-1", "payer", 100, FLOP); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if l.Balance("payer") != 0 {
		t.Errorf("payer balance after lock = %d, want 0", l.Balance("payer"))
	}
}

func TestWalletLedgerLockRejectsDuplicateEscrow(t *testing.T) {
	l := NewWalletLedger(10, time.Hour, nil)
	l.Credit("payer", 200)
	l.Lock("escrow-1", "payer", 100, FLOP)
	if err := l.Lock("escrow-1", "payer", 50, FLOP); err == nil {
		t.Fatal("expected an already-locked error for a duplicate escrow id")
	}
}

func TestWalletLedgerUnlockReturnsFullAmount(t *testing.T) {
	l := NewWalletLedger(10, time.Hour, nil)
	l.Credit("payer", 100)
	l.Lock("escrow-1", "payer", 100, FLOP)
	if err := l.Unlock("escrow-1"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if l.Balance("payer") != 100 {
		t.Errorf("balance after unlock = %d, want 100", l.Balance("payer"))
	}
	if err := l.Unlock("escrow-1"); err != ErrNotFound {
		t.Errorf("second Unlock = %v, want ErrNotFound", err)
	}
}

func TestWalletLedgerTransferFromEscrowSplitsAndClearsLock(t *testing.T) {
	l := NewWalletLedger(10, time.Hour, nil)
	l.Credit("payer", 100)
	l.Lock("escrow-1", "payer", 100, FLOP)

	provider, community := Split(100)
	if err := l.TransferFromEscrow("escrow-1", "provider", provider, TxReleaseProvider); err != nil {
		t.Fatalf("TransferFromEscrow provider: %v", err)
	}
	if err := l.TransferFromEscrow("escrow-1", "community", community, TxReleaseCommunity); err != nil {
		t.Fatalf("TransferFromEscrow community: %v", err)
	}
	if l.Balance("provider") != provider || l.Balance("community") != community {
		t.Errorf("balances = provider:%d community:%d, want %d/%d", l.Balance("provider"), l.Balance("community"), provider, community)
	}
	if l.TotalLocked() != 0 {
		t.Errorf("TotalLocked after full release = %d, want 0", l.TotalLocked())
	}
}

func TestWalletLedgerTotalLockedSumsOnlyActiveLocks(t *testing.T) {
	l := NewWalletLedger(10, time.Hour, nil)
	l.Credit("payer", 300)
	l.Lock("escrow-1", "payer", 100, FLOP)
	l.Lock("escrow-2", "payer", 200, FLOP)
	if l.TotalLocked() != 300 {
		t.Fatalf("TotalLocked = %d, want 300", l.TotalLocked())
	}
	l.Unlock("escrow-1")
	if l.TotalLocked() != 200 {
		t.Fatalf("TotalLocked after one unlock = %d, want 200", l.TotalLocked())
	}
}

func TestWalletLedgerTransferBetweenWalletsRateLimited(t *testing.T) {
	l := NewWalletLedger(1, time.Hour, nil)
	l.Credit("a", 100)
	if err := l.TransferBetweenWallets("a", "b", 10, FLOP); err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	if err := l.TransferBetweenWallets("a", "b", 10, FLOP); err == nil {
		t.Fatal("expected the second transfer within the window to be rate limited")
	}
}

func TestWalletLedgerTransferBetweenWalletsInsufficientBalance(t *testing.T) {
	l := NewWalletLedger(10, time.Hour, nil)
	l.Credit("a", 5)
	if err := l.TransferBetweenWallets("a", "b", 10, FLOP); err == nil {
		t.Fatal("expected insufficient-balance error")
	}
}
