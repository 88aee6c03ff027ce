package internal

// community_fund_management.go adapts the teacher's
// charity_pool_management.go (a CharityPoolManager wrapping core.CharityPool
// with enterprise-style donate/withdraw/balances helpers) onto DuxNet's
// CommunityFund (C8): same shape — a thin, logged, mutex-guarded wrapper a
// dashboard or CLI calls instead of reaching into core directly — rebuilt
// against Donate/Withdraw/Statistics instead of a token ledger's Transfer.

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	core "duxnet/core"
)

var (
	// ErrAmountZero is returned when the supplied amount is zero.
	ErrAmountZero = errors.New("amount must be greater than zero")
)

// FundBalances snapshots the community fund for monitoring dashboards and
// CLI inspection.
type FundBalances struct {
	Balance           int64 `json:"balance"`
	TotalCollected    int64 `json:"total_collected"`
	LastAirdropAmount int64 `json:"last_airdrop_amount"`
}

// CommunityFundManager adds donation/withdrawal logging and serialized
// access around a core.CommunityFund for use outside the core package.
type CommunityFundManager struct {
	fund   *core.CommunityFund
	logger *log.Logger
	mu     sync.Mutex
}

// NewCommunityFundManager wires a CommunityFundManager around fund. The
// logger may be nil, in which case the standard logrus logger is used.
func NewCommunityFundManager(lg *log.Logger, fund *core.CommunityFund) *CommunityFundManager {
	if lg == nil {
		lg = log.StandardLogger()
	}
	return &CommunityFundManager{fund: fund, logger: lg}
}

// Donate credits amount, attributed to walletID, into the community fund
// without debiting that wallet, outside the automatic tax path — a manual contribution an operator or passed
// proposal triggers.
func (m *CommunityFundManager) Donate(walletID string, amount int64) error {
	if amount == 0 {
		return ErrAmountZero
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Printf("donation %d from %s", amount, walletID)
	return m.fund.Donate(walletID, core.Amount(amount))
}

// WithdrawInternal moves funds from the community fund to walletID. Only
// callable by governance or authorized actors at the application layer.
func (m *CommunityFundManager) WithdrawInternal(walletID string, amount int64) error {
	if amount == 0 {
		return ErrAmountZero
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Printf("internal withdrawal %d to %s", amount, walletID)
	return m.fund.Withdraw(walletID, core.Amount(amount))
}

// Balances returns the current fund snapshot for monitoring/CLI use.
func (m *CommunityFundManager) Balances() FundBalances {
	stats := m.fund.Statistics()
	return FundBalances{
		Balance:           int64(stats.CurrentBalance),
		TotalCollected:    int64(stats.TotalCollected),
		LastAirdropAmount: int64(stats.LastAirdropAmount),
	}
}
