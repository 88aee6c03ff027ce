package core

// community_fund.go — C8 Community Fund. Grounded on
// original_source/duxos_escrow/community_fund_manager.py's
// CommunityFundManager (collect_tax/_check_airdrop_trigger/_trigger_airdrop/
// manual_airdrop/get_fund_statistics), with two deliberate deviations
// recorded as Open Question resolutions in DESIGN.md:
//   - collect_tax is the ONLY path through which escrow tax reaches the
//     balance (spec §9 REDESIGN FLAGS: tax must be counted once, centralized
//     here rather than also updated by a caller). Donate, Withdraw and
//     airdrops are the other, non-tax balance changes.
//   - airdrop recipients come from the node registry's active-node list,
//     not a placeholder/escrow-derived set (spec §9 REDESIGN FLAGS: "the
//     spec here takes the registry path as authoritative").

import (
	"sync"
	"time"
)

// CommunityFund is the singleton treasury row (spec §3).
type CommunityFund struct {
	mu                sync.Mutex
	balance           Amount
	airdropThreshold  Amount
	minAirdropAmount  Amount
	airdropInterval   time.Duration
	maxAirdropNodes   int
	lastAirdropAt     time.Time
	lastAirdropAmount Amount
	governanceEnabled bool
	minVoteThreshold  float64

	airdropInProgress bool
	collected         Amount // running total ever collected, for statistics

	ledger   *WalletLedger
	registry *Registry
	clock    Clock
	currency Currency
}

// CommunityFundConfig configures airdrop thresholds and cadence (spec §6
// Configuration "airdrop.*").
type CommunityFundConfig struct {
	AirdropThreshold Amount
	MinAirdropAmount Amount
	AirdropInterval  time.Duration
	MaxAirdropNodes  int
	MinVoteThreshold float64
	// Currency is the denomination airdrop and withdrawal payouts settle in.
	// The fund itself tracks a single pooled balance, not per-currency
	// sub-balances, so every payout leg uses this one currency. Defaults to
	// FLOP, the platform's native currency, when left zero.
	Currency Currency
}

// NewCommunityFund builds the fund, wired to the ledger (for airdrop payout)
// and registry (for airdrop recipient selection).
func NewCommunityFund(cfg CommunityFundConfig, ledger *WalletLedger, registry *Registry, clock Clock) *CommunityFund {
	currency := cfg.Currency
	if currency == "" {
		currency = FLOP
	}
	return &CommunityFund{
		airdropThreshold:  cfg.AirdropThreshold,
		minAirdropAmount:  cfg.MinAirdropAmount,
		airdropInterval:   cfg.AirdropInterval,
		maxAirdropNodes:   cfg.MaxAirdropNodes,
		governanceEnabled: true,
		minVoteThreshold:  cfg.MinVoteThreshold,
		ledger:            ledger,
		registry:          registry,
		clock:             defaultClock(clock),
		currency:          currency,
	}
}

// CollectTax adds amount (the 5% leg of a released escrow) to the fund
// balance and checks whether an airdrop should now trigger. This is the
// single path by which escrow tax is credited; callers do not add tax to
// the balance themselves.
func (f *CommunityFund) CollectTax(escrowID string, amount Amount) error {
	if amount <= 0 {
		return FieldError(KindValidation, "amount", "tax amount must be positive")
	}
	f.mu.Lock()
	f.balance += amount
	f.collected += amount
	shouldAirdrop := f.readyForAirdropLocked()
	f.mu.Unlock()

	if shouldAirdrop {
		return f.TriggerAirdrop()
	}
	return nil
}

// Donate credits amount into the fund directly, outside the 5% tax path
// (manual contribution, e.g. dispatched by a passed community_fund
// proposal — SPEC_FULL.md C.5). It does not itself trigger an airdrop
// check; governance-driven top-ups are assumed deliberate, not a signal
// the threshold has organically been reached.
func (f *CommunityFund) Donate(walletID string, amount Amount) error {
	if amount <= 0 {
		return FieldError(KindValidation, "amount", "donation amount must be positive")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance += amount
	return nil
}

// Withdraw debits amount from the fund and credits it to walletID, the
// governance-triggered counterpart to Donate (spec §4.5: execution
// dispatches to C8 for "manual airdrops, withdrawals").
func (f *CommunityFund) Withdraw(walletID string, amount Amount) error {
	if amount <= 0 {
		return FieldError(KindValidation, "amount", "withdrawal amount must be positive")
	}
	f.mu.Lock()
	if f.balance < amount {
		f.mu.Unlock()
		return WrapError(KindResource, "fund balance insufficient for withdrawal", ErrInsufficientFunds)
	}
	f.balance -= amount
	f.mu.Unlock()
	if err := f.ledger.PayOut(walletID, amount, f.currency); err != nil {
		f.mu.Lock()
		f.balance += amount // the on-chain leg never happened; restore the debit
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *CommunityFund) readyForAirdropLocked() bool {
	if f.balance < f.airdropThreshold {
		return false
	}
	if f.airdropInProgress {
		return false
	}
	if !f.lastAirdropAt.IsZero() && f.clock().Sub(f.lastAirdropAt) < f.airdropInterval {
		return false
	}
	return true
}

// AirdropResult summarizes a completed round.
type AirdropResult struct {
	SuccessfulNodes int
	FailedNodes     int
	TotalDistributed Amount
	PerNode         Amount
}

// TriggerAirdrop distributes the fund balance evenly across the registry's
// active nodes, skipping the round entirely if the per-node share would
// fall below the configured minimum. Per-node transfer failure does not
// stop the round; only successful transfers are debited (spec §7
// partial-failure semantics for airdrops).
func (f *CommunityFund) TriggerAirdrop() error {
	f.mu.Lock()
	if f.airdropInProgress {
		f.mu.Unlock()
		return WrapError(KindState, "airdrop already in progress", ErrInvalidState)
	}
	if f.balance < f.airdropThreshold {
		f.mu.Unlock()
		return WrapError(KindResource, "fund below airdrop threshold", ErrInsufficientFunds)
	}
	f.airdropInProgress = true
	balance := f.balance
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.airdropInProgress = false
		f.mu.Unlock()
	}()

	nodes := f.registry.ActiveNodes()
	if len(nodes) == 0 {
		return WrapError(KindResource, "no active nodes for airdrop", ErrNotFound)
	}
	sortNodesByReputationDesc(nodes)
	total := len(nodes)
	if total > f.maxAirdropNodes && f.maxAirdropNodes > 0 {
		total = f.maxAirdropNodes
		nodes = nodes[:total]
	}

	perNode := balance / Amount(total)
	if perNode < f.minAirdropAmount {
		return WrapError(KindResource, "per-node airdrop amount below minimum", ErrInsufficientFunds)
	}

	var successful, failed int
	var distributed Amount
	for _, n := range nodes {
		walletID := n.ID // wallets are keyed by node id in this ledger model
		if err := f.ledger.PayOut(walletID, perNode, f.currency); err != nil {
			failed++
			continue
		}
		f.mu.Lock()
		f.balance -= perNode
		f.mu.Unlock()
		successful++
		distributed += perNode
	}

	now := f.clock()
	f.mu.Lock()
	f.lastAirdropAt = now
	f.lastAirdropAmount = distributed
	f.mu.Unlock()

	Broadcast(TopicFundAirdrop, map[string]any{
		"total_amount": distributed,
		"wallet_count": successful,
		"failed_count": failed,
		"per_wallet":   perNode,
		"ts":           now,
	})
	return nil
}

// sortNodesByReputationDesc orders nodes by descending reputation, ties
// broken by ascending node id (spec §4.4: "reputation-ranked ... ties
// broken by node_id").
func sortNodesByReputationDesc(nodes []*Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0; j-- {
			a, b := nodes[j-1], nodes[j]
			if a.Reputation > b.Reputation || (a.Reputation == b.Reputation && a.ID <= b.ID) {
				break
			}
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}
}

// Balance returns the current fund balance.
func (f *CommunityFund) Balance() Amount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

// FundStatistics reports the current snapshot (original_source
// get_fund_statistics; SPEC_FULL.md C.5).
type FundStatistics struct {
	CurrentBalance    Amount
	AirdropThreshold  Amount
	LastAirdropAt     time.Time
	LastAirdropAmount Amount
	TotalCollected    Amount
	NextAirdropReady  bool
	GovernanceEnabled bool
	MinVoteThreshold  float64
}

// Statistics computes the current FundStatistics snapshot.
func (f *CommunityFund) Statistics() FundStatistics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FundStatistics{
		CurrentBalance:    f.balance,
		AirdropThreshold:  f.airdropThreshold,
		LastAirdropAt:     f.lastAirdropAt,
		LastAirdropAmount: f.lastAirdropAmount,
		TotalCollected:    f.collected,
		NextAirdropReady:  f.readyForAirdropLocked(),
		GovernanceEnabled: f.governanceEnabled,
		MinVoteThreshold:  f.minVoteThreshold,
	}
}
