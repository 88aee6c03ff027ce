package core

// escrow.go — C6 Escrow State Machine. Grounded on
// original_source/duxos_escrow/escrow_manager.go's EscrowManager
// (create_escrow/release_escrow/refund_escrow), rebuilt around the
// wallet ledger and chain adapter interfaces instead of a SQLAlchemy
// session, and made per-escrow single-writer per §9 REDESIGN FLAGS
// ("give each in-flight escrow... a single-writer owner").

import (
	"sync"
	"sync/atomic"
	"time"
)

// EscrowStatus is a contract's lifecycle state (spec §4.3).
type EscrowStatus string

const (
	EscrowPending   EscrowStatus = "pending"
	EscrowActive    EscrowStatus = "active"
	EscrowReleased  EscrowStatus = "released"
	EscrowRefunded  EscrowStatus = "refunded"
	EscrowDisputed  EscrowStatus = "disputed"
	EscrowResolved  EscrowStatus = "resolved"
)

func (s EscrowStatus) terminal() bool {
	switch s {
	case EscrowReleased, EscrowRefunded, EscrowResolved:
		return true
	default:
		return false
	}
}

// Escrow is a two-party contract holding locked funds (spec §3).
type Escrow struct {
	ID                string
	PayerWalletID     string
	ProviderWalletID  string
	ProviderNodeID    string
	Amount            Amount
	ProviderAmount    Amount
	CommunityAmount   Amount
	Currency          Currency
	Status            EscrowStatus
	ServiceName       string
	TaskID            string
	APICallID         string
	ResultHash        string
	ProviderSignature string
	CreatedAt         time.Time
	ReleasedAt        time.Time
	RefundedAt        time.Time
	Metadata          map[string]any
	DisputeID         string
}

// EscrowEngine owns every Escrow row and drives its transitions.
type EscrowEngine struct {
	ledger   *WalletLedger
	fund     *CommunityFund
	auth     *Authenticator
	verifier *Verifier

	mu      sync.Mutex
	escrows map[string]*Escrow
	clock   Clock

	// communityPercent is the percentage of each newly created escrow's
	// amount that is split off as the community leg (spec §4.5: governance
	// can change this via an escrow_params proposal). Read and written
	// atomically since it is touched by Create without holding mu.
	communityPercent int32
}

// NewEscrowEngine wires the engine to its collaborators.
func NewEscrowEngine(ledger *WalletLedger, fund *CommunityFund, auth *Authenticator, verifier *Verifier, clock Clock) *EscrowEngine {
	return &EscrowEngine{
		ledger:           ledger,
		fund:             fund,
		auth:             auth,
		verifier:         verifier,
		escrows:          make(map[string]*Escrow),
		clock:            defaultClock(clock),
		communityPercent: 5,
	}
}

// CommunityPercent returns the split percentage currently applied to newly
// created escrows.
func (e *EscrowEngine) CommunityPercent() int {
	return int(atomic.LoadInt32(&e.communityPercent))
}

// SetCommunityPercent updates the community-fund split percentage applied to
// escrows created from this point forward (spec §4.5 "escrow_params"
// governance category). Escrows already created keep the split they were
// computed with at creation time.
func (e *EscrowEngine) SetCommunityPercent(pct int) error {
	if pct < 0 || pct > 100 {
		return FieldError(KindValidation, "community_percent", "community_percent must be in [0,100]")
	}
	atomic.StoreInt32(&e.communityPercent, int32(pct))
	return nil
}

// Create opens a new escrow, locking amount of currency from payerWallet.
// On lock failure no row is left behind (spec §4.3: "no row is left in
// pending").
func (e *EscrowEngine) Create(payerWallet, providerWallet, providerNodeID string, amount Amount, currency Currency, serviceName, taskID string, metadata map[string]any) (*Escrow, error) {
	if amount <= 0 {
		return nil, FieldError(KindValidation, "amount", "amount must be positive")
	}
	if payerWallet == providerWallet {
		return nil, FieldError(KindValidation, "provider_wallet_id", "payer and provider cannot be the same")
	}
	if !IsSupportedCurrency(currency) {
		return nil, FieldError(KindValidation, "currency", "unsupported currency")
	}

	id := NewID()
	provider, community := SplitWithPercent(amount, e.CommunityPercent())

	if err := e.ledger.Lock(id, payerWallet, amount, currency); err != nil {
		return nil, err
	}

	esc := &Escrow{
		ID:               id,
		PayerWalletID:    payerWallet,
		ProviderWalletID: providerWallet,
		ProviderNodeID:   providerNodeID,
		Amount:           amount,
		ProviderAmount:   provider,
		CommunityAmount:  community,
		Currency:         currency,
		Status:           EscrowActive,
		ServiceName:      serviceName,
		TaskID:           taskID,
		CreatedAt:        e.clock(),
		Metadata:         metadata,
	}

	e.mu.Lock()
	e.escrows[id] = esc
	e.mu.Unlock()

	Broadcast(TopicEscrowCreated, map[string]any{
		"escrow_id":    id,
		"amount":       amount,
		"currency":     currency,
		"service_name": serviceName,
		"ts":           esc.CreatedAt,
	})
	return esc, nil
}

// Release completes an active escrow per spec §4.3: verify the result,
// verify the provider's signature, pay both legs, then record the
// transition. A failed verification or a failed provider leg leaves the
// escrow active. If the provider leg is paid and the community leg then
// fails, the provider leg is not reversed: the escrow is marked disputed
// for operator review and an internal error is returned.
func (e *EscrowEngine) Release(escrowID, resultHash string, resultFields map[string]any, providerSignature string, timestamp time.Time) (*Escrow, error) {
	e.mu.Lock()
	esc, ok := e.escrows[escrowID]
	e.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if esc.Status == EscrowReleased && esc.ResultHash == resultHash {
		// Duplicate release with the same result: idempotent, no re-transfer.
		return esc, nil
	}
	if esc.Status != EscrowActive {
		return nil, WrapError(KindState, "escrow not active", ErrInvalidState)
	}

	if err := e.verifier.Verify(esc.TaskID, resultHash, resultFields); err != nil {
		return nil, err
	}

	msg := releaseMessage(escrowID, resultHash, timestamp)
	if _, err := e.auth.Verify(esc.ProviderNodeID, msg, providerSignature, timestamp); err != nil {
		return nil, err
	}

	if err := e.ledger.TransferFromEscrow(escrowID, esc.ProviderWalletID, esc.ProviderAmount, TxReleaseProvider); err != nil {
		return nil, err
	}
	if err := e.ledger.TransferFromEscrow(escrowID, communityWalletID, esc.CommunityAmount, TxReleaseCommunity); err != nil {
		// Provider leg already transferred; compensate by crediting the
		// community share back into the provider's pending lock is not
		// possible (the lock for that amount is already consumed), so per
		// spec §7 partial-failure semantics we mark the escrow disputed for
		// operator resolution rather than silently losing the accounting.
		esc.Status = EscrowDisputed
		return nil, WrapError(KindInternal, "community leg failed after provider leg paid; escrow flagged for review", err)
	}
	if err := e.fund.CollectTax(escrowID, esc.CommunityAmount); err != nil {
		return nil, err
	}

	esc.Status = EscrowReleased
	esc.ReleasedAt = e.clock()
	esc.ResultHash = resultHash
	esc.ProviderSignature = providerSignature

	Broadcast(TopicEscrowReleased, map[string]any{
		"escrow_id":        escrowID,
		"provider_amount":  esc.ProviderAmount,
		"community_amount": esc.CommunityAmount,
		"currency":         esc.Currency,
		"ts":               esc.ReleasedAt,
	})
	return esc, nil
}

// Refund returns an active or disputed escrow's full locked amount to the
// payer (spec §4.3: unlock then transfer amount, not provider_amount).
func (e *EscrowEngine) Refund(escrowID, reason string) (*Escrow, error) {
	e.mu.Lock()
	esc, ok := e.escrows[escrowID]
	e.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if esc.Status != EscrowActive && esc.Status != EscrowDisputed {
		return nil, WrapError(KindState, "escrow cannot be refunded", ErrInvalidState)
	}

	if err := e.ledger.TransferFromEscrow(escrowID, esc.PayerWalletID, esc.Amount, TxRefund); err != nil {
		return nil, err
	}

	esc.Status = EscrowRefunded
	esc.RefundedAt = e.clock()

	Broadcast(TopicEscrowRefunded, map[string]any{
		"escrow_id": escrowID,
		"amount":    esc.Amount,
		"reason":    reason,
		"ts":        esc.RefundedAt,
	})
	return esc, nil
}

// MarkDisputed transitions an active escrow into disputed state; called by
// the dispute resolver (C7) on dispute open.
func (e *EscrowEngine) MarkDisputed(escrowID, disputeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, ok := e.escrows[escrowID]
	if !ok {
		return ErrNotFound
	}
	if esc.Status != EscrowActive {
		return WrapError(KindState, "escrow not active", ErrInvalidState)
	}
	esc.Status = EscrowDisputed
	esc.DisputeID = disputeID
	return nil
}

// MarkResolved transitions a disputed escrow to resolved (partial-split
// outcome already paid out by the dispute resolver).
func (e *EscrowEngine) MarkResolved(escrowID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, ok := e.escrows[escrowID]
	if !ok {
		return ErrNotFound
	}
	if esc.Status != EscrowDisputed {
		return WrapError(KindState, "escrow not disputed", ErrInvalidState)
	}
	esc.Status = EscrowResolved
	return nil
}

// ReturnToActive transitions a disputed escrow back to active (spec §4.7:
// "reject_dispute returns the escrow to active").
func (e *EscrowEngine) ReturnToActive(escrowID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, ok := e.escrows[escrowID]
	if !ok {
		return ErrNotFound
	}
	if esc.Status != EscrowDisputed {
		return WrapError(KindState, "escrow not disputed", ErrInvalidState)
	}
	esc.Status = EscrowActive
	esc.DisputeID = ""
	return nil
}

// Get returns escrowID's row.
func (e *EscrowEngine) Get(escrowID string) (*Escrow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, ok := e.escrows[escrowID]
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

// ListByWallet returns escrows where walletID is payer or provider,
// optionally filtered by status, newest first (original_source
// get_escrows_by_wallet; SPEC_FULL.md C.4).
func (e *EscrowEngine) ListByWallet(walletID string, status EscrowStatus) []*Escrow {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*Escrow
	for _, esc := range e.escrows {
		if esc.PayerWalletID != walletID && esc.ProviderWalletID != walletID {
			continue
		}
		if status != "" && esc.Status != status {
			continue
		}
		out = append(out, esc)
	}
	sortEscrowsByCreatedDesc(out)
	return out
}

func sortEscrowsByCreatedDesc(escrows []*Escrow) {
	for i := 1; i < len(escrows); i++ {
		for j := i; j > 0 && escrows[j].CreatedAt.After(escrows[j-1].CreatedAt); j-- {
			escrows[j], escrows[j-1] = escrows[j-1], escrows[j]
		}
	}
}

// communityWalletID is the sentinel destination for the community tax leg;
// the fund itself is a singleton ledger row, not a regular wallet.
const communityWalletID = "community_fund"

func releaseMessage(escrowID, resultHash string, timestamp time.Time) []byte {
	return canonicalJSON(map[string]any{
		"escrow_id":   escrowID,
		"result_hash": resultHash,
		"action":      "release",
		"timestamp":   timestamp.Unix(),
	})
}
