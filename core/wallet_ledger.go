package core

// wallet_ledger.go — C5 Wallet-Lock Ledger: per-escrow locked balances and
// an append-only audit trail. Grounded on
// original_source/duxos_escrow/wallet_integration.py's
// EscrowWalletIntegration (lock_funds/unlock_funds/transfer_funds/
// get_total_locked_funds), restructured so the lock map is the single
// source of truth per §6 ("the in-memory copy is authoritative during a
// process lifetime") rather than a side-effect of a database session.

import (
	"context"
	"sync"
	"time"
)

// LockStatus is a locked-funds row's lifecycle state.
type LockStatus string

const (
	LockActive LockStatus = "locked"
	LockFreed  LockStatus = "unlocked"
)

// FundLock is one escrow's locked-funds row.
type FundLock struct {
	EscrowID string
	WalletID string
	Amount   Amount
	Currency Currency
	Status   LockStatus
	LockedAt time.Time
	FreedAt  time.Time
}

// LedgerTxType enumerates the audit row kinds §3 names for the
// locked-funds/escrow-transaction tables.
type LedgerTxType string

const (
	TxLock             LedgerTxType = "lock"
	TxUnlock           LedgerTxType = "unlock"
	TxReleaseProvider  LedgerTxType = "release_provider"
	TxReleaseCommunity LedgerTxType = "release_community"
	TxRefund           LedgerTxType = "refund"
	TxTransfer         LedgerTxType = "transfer"
)

// LedgerEntry is one append-only audit row.
type LedgerEntry struct {
	ID         string
	EscrowID   string
	Type       LedgerTxType
	Amount     Amount
	Currency   Currency
	FromWallet string
	ToWallet   string
	CreatedAt  time.Time
}

// WalletLedger tracks each wallet's observed confirmed balance (which locks
// are checked against), the per-escrow locks, and an append-only audit
// trail. Deposits confirmed on chain enter a balance via Credit; there is no
// separate debit call.
type WalletLedger struct {
	mu       sync.Mutex
	balances map[string]Amount
	locks    map[string]*FundLock // escrow id -> lock
	entries  []LedgerEntry
	limiter  *TransferLimiter
	clock    Clock
	adapters map[Currency]ChainAdapter
}

// NewWalletLedger builds an empty ledger. maxTransfers/window configure the
// per-wallet transfer rate limit (spec §5, default 10/3600s).
func NewWalletLedger(maxTransfers int, window time.Duration, clock Clock) *WalletLedger {
	return &WalletLedger{
		balances: make(map[string]Amount),
		locks:    make(map[string]*FundLock),
		limiter:  NewTransferLimiter(maxTransfers, window),
		clock:    defaultClock(clock),
		adapters: make(map[Currency]ChainAdapter),
	}
}

// RegisterAdapter binds a ChainAdapter to the currency it moves, so that
// ledger transfers which cross onto the real chain (rather than merely
// bookkeeping an already-settled deposit) route through it. A currency with
// no registered adapter is treated as bookkeeping-only: transfers still
// update balances but never attempt network I/O (spec §4.1: "every other
// component uses [the adapter]" — a currency without one simply has no
// chain leg to perform yet).
func (l *WalletLedger) RegisterAdapter(currency Currency, adapter ChainAdapter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adapters[currency] = adapter
}

// sendOnChain dispatches an outbound payment through currency's registered
// ChainAdapter, if any. Callers hold l.mu while calling this, matching the
// ledger's existing single-lock discipline; the adapter call itself is the
// only network I/O performed anywhere in the wallet/escrow path (spec
// §4.1/§4.3).
func (l *WalletLedger) sendOnChain(currency Currency, to string, amount Amount) error {
	adapter, ok := l.adapters[currency]
	if !ok {
		return nil
	}
	_, err := adapter.Send(context.Background(), to, amount)
	if err != nil {
		return WrapError(KindExternal, "chain adapter send failed", err)
	}
	return nil
}

// Credit increases walletID's observed balance, e.g. when the chain
// adapter confirms an inbound deposit.
func (l *WalletLedger) Credit(walletID string, amount Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[walletID] += amount
}

// Balance returns walletID's current observed balance.
func (l *WalletLedger) Balance(walletID string) Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[walletID]
}

// Lock locks amount of currency from walletID for escrowID. Fails with
// ErrInsufficientFunds if the wallet's confirmed balance can't cover it
// (spec §3 invariant: sum of locked amounts per wallet ≤ confirmed balance
// at lock time), or ErrAlreadyExists if escrowID already has a lock.
func (l *WalletLedger) Lock(escrowID, walletID string, amount Amount, currency Currency) error {
	if amount <= 0 {
		return FieldError(KindValidation, "amount", "amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.locks[escrowID]; ok {
		return WrapError(KindState, "funds already locked for escrow", ErrAlreadyExists)
	}
	if l.balances[walletID] < amount {
		return WrapError(KindResource, "insufficient balance to lock", ErrInsufficientFunds)
	}

	l.balances[walletID] -= amount
	now := l.clock()
	l.locks[escrowID] = &FundLock{
		EscrowID: escrowID,
		WalletID: walletID,
		Amount:   amount,
		Currency: currency,
		Status:   LockActive,
		LockedAt: now,
	}
	l.appendLocked(escrowID, TxLock, amount, currency, walletID, "", now)
	return nil
}

// Unlock releases escrowID's full locked amount back to the originating
// wallet's balance in one step. EscrowEngine.Refund does not call it: a
// refund pays the full locked amount back through TransferFromEscrow with
// TxRefund instead.
func (l *WalletLedger) Unlock(escrowID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[escrowID]
	if !ok || lock.Status != LockActive {
		return ErrNotFound
	}
	l.balances[lock.WalletID] += lock.Amount
	lock.Status = LockFreed
	lock.FreedAt = l.clock()
	l.appendLocked(escrowID, TxUnlock, lock.Amount, lock.Currency, "", lock.WalletID, lock.FreedAt)
	return nil
}

// TransferFromEscrow pays amount of escrowID's lock out to toWallet,
// reducing the remaining locked amount. Used for the release legs (provider
// and community shares split off one lock).
func (l *WalletLedger) TransferFromEscrow(escrowID, toWallet string, amount Amount, txType LedgerTxType) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[escrowID]
	if !ok || lock.Status != LockActive {
		return ErrNotFound
	}
	if lock.Amount < amount {
		return WrapError(KindResource, "insufficient locked funds", ErrInsufficientFunds)
	}
	if err := l.sendOnChain(lock.Currency, toWallet, amount); err != nil {
		return err
	}
	lock.Amount -= amount
	l.balances[toWallet] += amount
	now := l.clock()
	if lock.Amount == 0 {
		lock.Status = LockFreed
		lock.FreedAt = now
	}
	l.appendLocked(escrowID, txType, amount, lock.Currency, "", toWallet, now)
	return nil
}

// TransferBetweenWallets moves amount directly between two wallets' observed
// balances, rate-limited per spec §5 ("Wallet transfers (per-node)").
func (l *WalletLedger) TransferBetweenWallets(fromWallet, toWallet string, amount Amount, currency Currency) error {
	if amount <= 0 {
		return FieldError(KindValidation, "amount", "amount must be positive")
	}
	if !l.limiter.Allow(fromWallet) {
		return WrapError(KindAuth, "transfer rate limited", ErrRateLimited)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[fromWallet] < amount {
		return WrapError(KindResource, "insufficient balance", ErrInsufficientFunds)
	}
	if err := l.sendOnChain(currency, toWallet, amount); err != nil {
		return err
	}
	l.balances[fromWallet] -= amount
	l.balances[toWallet] += amount
	l.appendLocked("", TxTransfer, amount, currency, fromWallet, toWallet, l.clock())
	return nil
}

// PayOut sends amount of currency to walletID through its registered chain
// adapter (if any) and credits the ledger's observed balance once the
// transfer succeeds. It is the payout leg for callers that move funds out of
// a pooled balance rather than a specific wallet-to-wallet or escrow-locked
// transfer — e.g. the community fund crediting a withdrawal or an airdrop
// recipient (spec §4.5/§4.4).
func (l *WalletLedger) PayOut(walletID string, amount Amount, currency Currency) error {
	if amount <= 0 {
		return FieldError(KindValidation, "amount", "amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.sendOnChain(currency, walletID, amount); err != nil {
		return err
	}
	l.balances[walletID] += amount
	l.appendLocked("", TxTransfer, amount, currency, "", walletID, l.clock())
	return nil
}

func (l *WalletLedger) appendLocked(escrowID string, t LedgerTxType, amount Amount, currency Currency, from, to string, at time.Time) {
	l.entries = append(l.entries, LedgerEntry{
		ID:         NewID(),
		EscrowID:   escrowID,
		Type:       t,
		Amount:     amount,
		Currency:   currency,
		FromWallet: from,
		ToWallet:   to,
		CreatedAt:  at,
	})
}

// TotalLocked sums the amount currently locked across every active lock
// (original_source get_total_locked_funds; SPEC_FULL.md C.3).
func (l *WalletLedger) TotalLocked() Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total Amount
	for _, lock := range l.locks {
		if lock.Status == LockActive {
			total += lock.Amount
		}
	}
	return total
}

// LockInfo returns escrowID's lock row (original_source
// get_locked_funds_info; SPEC_FULL.md C.3).
func (l *WalletLedger) LockInfo(escrowID string) (FundLock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[escrowID]
	if !ok {
		return FundLock{}, ErrNotFound
	}
	return *lock, nil
}

// Entries returns a copy of the full audit trail, oldest first.
func (l *WalletLedger) Entries() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
