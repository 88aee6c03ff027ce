package core

// dispute.go — C7 Dispute Resolver. Grounded on
// original_source/duxos_escrow/dispute_resolver.py's DisputeResolver,
// restructured against EscrowEngine instead of a shared ORM session; the
// partial-split branch (winner neither payer nor provider, refund_amount
// splits the payout) follows spec §4.7, which the original's resolve_dispute
// did not implement (its "else" branch only marked the escrow resolved
// without moving funds) — a dropped behavior this rewrite completes rather
// than carries forward verbatim.

import (
	"sync"
	"time"
)

// DisputeStatus is a dispute's lifecycle state (spec §3).
type DisputeStatus string

const (
	DisputeOpen       DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved   DisputeStatus = "resolved"
	DisputeRejected   DisputeStatus = "rejected"
)

// Dispute is a 1:1 escalation on an escrow.
type Dispute struct {
	ID                string
	EscrowID          string
	Status            DisputeStatus
	Reason            string
	Evidence          map[string]map[string]any // wallet_id -> evidence
	InitiatorWalletID string
	RespondentWalletID string
	Resolution        string
	CreatedAt         time.Time
	ResolvedAt        time.Time
}

// DisputeResolver opens, accumulates evidence for, and terminates disputes,
// driving escrow transitions through EscrowEngine.
type DisputeResolver struct {
	escrows *EscrowEngine
	ledger  *WalletLedger

	mu       sync.Mutex
	disputes map[string]*Dispute
	clock    Clock
}

// NewDisputeResolver wires the resolver to its collaborators.
func NewDisputeResolver(escrows *EscrowEngine, ledger *WalletLedger, clock Clock) *DisputeResolver {
	return &DisputeResolver{
		escrows:  escrows,
		ledger:   ledger,
		disputes: make(map[string]*Dispute),
		clock:    defaultClock(clock),
	}
}

// Create opens a dispute on escrowID. The escrow must be active or released
// (spec §4.7); the respondent is derived as the party that is not
// initiatorWallet.
func (r *DisputeResolver) Create(escrowID, initiatorWallet, reason string, evidence map[string]any) (*Dispute, error) {
	esc, err := r.escrows.Get(escrowID)
	if err != nil {
		return nil, err
	}
	if esc.Status != EscrowActive && esc.Status != EscrowReleased {
		return nil, WrapError(KindState, "escrow cannot be disputed", ErrInvalidState)
	}

	var respondent string
	switch initiatorWallet {
	case esc.PayerWalletID:
		respondent = esc.ProviderWalletID
	case esc.ProviderWalletID:
		respondent = esc.PayerWalletID
	default:
		return nil, FieldError(KindValidation, "initiator_wallet_id", "initiator must be payer or provider")
	}

	d := &Dispute{
		ID:                 NewID(),
		EscrowID:           escrowID,
		Status:             DisputeOpen,
		Reason:             reason,
		Evidence:           make(map[string]map[string]any),
		InitiatorWalletID:  initiatorWallet,
		RespondentWalletID: respondent,
		CreatedAt:          r.clock(),
	}
	if evidence != nil {
		d.Evidence[initiatorWallet] = evidence
	}

	if esc.Status == EscrowActive {
		if err := r.escrows.MarkDisputed(escrowID, d.ID); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.disputes[d.ID] = d
	r.mu.Unlock()

	Broadcast(TopicDisputeOpened, map[string]any{
		"dispute_id": d.ID,
		"escrow_id":  escrowID,
		"reason":     reason,
		"ts":         d.CreatedAt,
	})
	return d, nil
}

// AddEvidence appends walletID's evidence while the dispute is open. Each
// party has exactly one evidence slot; a second call overwrites it.
func (r *DisputeResolver) AddEvidence(disputeID, walletID string, evidence map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[disputeID]
	if !ok {
		return ErrNotFound
	}
	if d.Status != DisputeOpen {
		return WrapError(KindState, "dispute not open for evidence", ErrInvalidState)
	}
	if walletID != d.InitiatorWalletID && walletID != d.RespondentWalletID {
		return FieldError(KindAuth, "wallet_id", "wallet not involved in dispute")
	}
	d.Evidence[walletID] = evidence
	return nil
}

// Resolve terminates an open dispute with a decision and drives the
// escrow per spec §4.7:
//   - winner == payer      -> refund
//   - winner == provider   -> pay out the full provider/community split
//     directly (already-released escrows are left untouched)
//   - neither               -> split: payer gets refundAmount, provider
//     gets amount-refundAmount, with the community share taken from the
//     provider's portion.
func (r *DisputeResolver) Resolve(disputeID, resolution, winnerWallet string, refundAmount Amount) (*Dispute, error) {
	r.mu.Lock()
	d, ok := r.disputes[disputeID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if d.Status != DisputeOpen {
		return nil, WrapError(KindState, "dispute not open for resolution", ErrInvalidState)
	}

	esc, err := r.escrows.Get(d.EscrowID)
	if err != nil {
		return nil, err
	}

	switch {
	case winnerWallet == esc.PayerWalletID:
		if _, err := r.escrows.Refund(d.EscrowID, "dispute resolved: payer wins"); err != nil {
			return nil, err
		}
	case winnerWallet == esc.ProviderWalletID:
		if esc.Status == EscrowReleased {
			// already paid out before the dispute; nothing further to move.
		} else {
			// A disputed escrow never completed its own release-time result
			// verification, so the arbiter's decision substitutes for it
			// here: pay out the full 95/5 split directly.
			if err := r.ledger.TransferFromEscrow(d.EscrowID, esc.ProviderWalletID, esc.ProviderAmount, TxReleaseProvider); err != nil {
				return nil, err
			}
			if err := r.ledger.TransferFromEscrow(d.EscrowID, communityWalletID, esc.CommunityAmount, TxReleaseCommunity); err != nil {
				return nil, err
			}
			if err := r.escrows.MarkResolved(d.EscrowID); err != nil {
				return nil, err
			}
		}
	default:
		if refundAmount < 0 || refundAmount > esc.Amount {
			return nil, FieldError(KindValidation, "refund_amount", "refund_amount out of range")
		}
		providerShare := esc.Amount - refundAmount
		providerAmount, communityAmount := Split(providerShare)
		if refundAmount > 0 {
			if err := r.ledger.TransferFromEscrow(d.EscrowID, esc.PayerWalletID, refundAmount, TxRefund); err != nil {
				return nil, err
			}
		}
		if providerAmount > 0 {
			if err := r.ledger.TransferFromEscrow(d.EscrowID, esc.ProviderWalletID, providerAmount, TxReleaseProvider); err != nil {
				return nil, err
			}
		}
		if communityAmount > 0 {
			if err := r.ledger.TransferFromEscrow(d.EscrowID, communityWalletID, communityAmount, TxReleaseCommunity); err != nil {
				return nil, err
			}
		}
		if err := r.escrows.MarkResolved(d.EscrowID); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	d.Status = DisputeResolved
	d.Resolution = resolution
	d.ResolvedAt = r.clock()
	r.mu.Unlock()

	Broadcast(TopicDisputeResolved, map[string]any{
		"dispute_id": disputeID,
		"escrow_id":  d.EscrowID,
		"resolution": resolution,
		"ts":         d.ResolvedAt,
	})
	return d, nil
}

// Reject marks an open dispute rejected and returns the escrow to active.
func (r *DisputeResolver) Reject(disputeID, reason string) (*Dispute, error) {
	r.mu.Lock()
	d, ok := r.disputes[disputeID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if d.Status != DisputeOpen {
		return nil, WrapError(KindState, "dispute not open for rejection", ErrInvalidState)
	}

	if err := r.escrows.ReturnToActive(d.EscrowID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	d.Status = DisputeRejected
	d.Resolution = "rejected: " + reason
	d.ResolvedAt = r.clock()
	r.mu.Unlock()
	return d, nil
}

// Get returns disputeID's row.
func (r *DisputeResolver) Get(disputeID string) (*Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[disputeID]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// ListByWallet returns disputes where walletID is initiator or respondent,
// optionally filtered by status.
func (r *DisputeResolver) ListByWallet(walletID string, status DisputeStatus) []*Dispute {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Dispute
	for _, d := range r.disputes {
		if d.InitiatorWalletID != walletID && d.RespondentWalletID != walletID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Statistics summarizes dispute outcomes (original_source
// get_dispute_statistics; SPEC_FULL.md C.7 precedent pattern).
type DisputeStatistics struct {
	Total         int
	Open          int
	Resolved      int
	Rejected      int
	ResolutionRate float64
}

// Statistics computes the current DisputeStatistics snapshot.
func (r *DisputeResolver) Statistics() DisputeStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats DisputeStatistics
	stats.Total = len(r.disputes)
	for _, d := range r.disputes {
		switch d.Status {
		case DisputeOpen:
			stats.Open++
		case DisputeResolved:
			stats.Resolved++
		case DisputeRejected:
			stats.Rejected++
		}
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Resolved+stats.Rejected) / float64(stats.Total)
	}
	return stats
}
