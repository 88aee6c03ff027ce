package core

// governance.go — C9 Governance: proposals, weighted voting, and execution
// dispatch into C6/C8. Grounded on
// original_source/duxos_escrow/governance_api.py's proposal/vote shape and
// spec §4.5; DuxNet's governance has no ORM, so the execution dispatch
// reaches directly into the EscrowEngine/CommunityFund collaborators it is
// constructed with, the way the teacher's core/governance.go wires a
// proposal executor to sibling components.

import (
	"sync"
	"time"
)

// ProposalCategory routes execution to the right collaborator.
type ProposalCategory string

const (
	CategoryCommunityFund  ProposalCategory = "community_fund"
	CategoryEscrowParams   ProposalCategory = "escrow_params"
	CategoryGovernance     ProposalCategory = "governance"
	CategoryFeatureRequest ProposalCategory = "feature_request"
	CategoryBugFix         ProposalCategory = "bug_fix"
	CategoryOther          ProposalCategory = "other"
)

// ProposalStatus is a proposal's lifecycle state (spec §3).
type ProposalStatus string

const (
	ProposalDraft    ProposalStatus = "draft"
	ProposalActive   ProposalStatus = "active"
	ProposalPassed   ProposalStatus = "passed"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
	ProposalExecuted ProposalStatus = "executed"
)

// VoteType is a ballot's choice.
type VoteType string

const (
	VoteYes     VoteType = "yes"
	VoteNo      VoteType = "no"
	VoteAbstain VoteType = "abstain"
)

// Proposal is a governance item (spec §3).
type Proposal struct {
	ID               string
	Title            string
	Description      string
	Category         ProposalCategory
	Status           ProposalStatus
	ProposerWalletID string
	RequiredQuorum   float64
	VotingPeriod     time.Duration
	ExecutionData    map[string]any
	CreatedAt        time.Time
	VotingStartedAt  time.Time
	VotingEndsAt     time.Time
	ExecutedAt       time.Time
	ExecutorWalletID string

	votes map[string]*Vote // voter_wallet_id -> vote
}

// Vote is one wallet's ballot on a proposal.
type Vote struct {
	ID             string
	ProposalID     string
	VoterWalletID  string
	Type           VoteType
	VotingPower    float64
	Reason         string
	CreatedAt      time.Time
}

// Governance owns proposals and dispatches execution into C6/C8.
type Governance struct {
	mu        sync.Mutex
	proposals map[string]*Proposal

	fund    *CommunityFund
	escrows *EscrowEngine
	clock   Clock
}

// NewGovernance wires governance to the community fund and escrow engine it
// can dispatch execution into (spec §4.5: community_fund and escrow_params
// categories).
func NewGovernance(fund *CommunityFund, escrows *EscrowEngine, clock Clock) *Governance {
	return &Governance{
		proposals: make(map[string]*Proposal),
		fund:      fund,
		escrows:   escrows,
		clock:     defaultClock(clock),
	}
}

// Propose validates and creates a draft proposal (spec §4.5: title/
// description lengths, positive quorum, voting_period in [1,30] days).
func (g *Governance) Propose(title, description string, category ProposalCategory, proposerWallet string, requiredQuorum float64, votingPeriodDays int, executionData map[string]any) (*Proposal, error) {
	if len(title) < 5 {
		return nil, FieldError(KindValidation, "title", "title must be at least 5 characters")
	}
	if len(description) < 20 {
		return nil, FieldError(KindValidation, "description", "description must be at least 20 characters")
	}
	if requiredQuorum <= 0 {
		return nil, FieldError(KindValidation, "required_quorum", "required_quorum must be positive")
	}
	if votingPeriodDays < 1 || votingPeriodDays > 30 {
		return nil, FieldError(KindValidation, "voting_period_days", "voting_period_days must be in [1,30]")
	}

	p := &Proposal{
		ID:               NewID(),
		Title:            title,
		Description:      description,
		Category:         category,
		Status:           ProposalDraft,
		ProposerWalletID: proposerWallet,
		RequiredQuorum:   requiredQuorum,
		VotingPeriod:     time.Duration(votingPeriodDays) * 24 * time.Hour,
		ExecutionData:    executionData,
		CreatedAt:        g.clock(),
		votes:            make(map[string]*Vote),
	}

	g.mu.Lock()
	g.proposals[p.ID] = p
	g.mu.Unlock()
	return p, nil
}

// Activate transitions a draft proposal to active, opening voting.
func (g *Governance) Activate(proposalID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[proposalID]
	if !ok {
		return ErrNotFound
	}
	if p.Status != ProposalDraft {
		return WrapError(KindState, "proposal not in draft", ErrInvalidState)
	}
	now := g.clock()
	p.Status = ProposalActive
	p.VotingStartedAt = now
	p.VotingEndsAt = now.Add(p.VotingPeriod)
	return nil
}

// Vote records voterWallet's ballot on an active proposal. A second vote by
// the same wallet replaces the first (spec §4.5).
func (g *Governance) Vote(proposalID, voterWallet string, voteType VoteType, votingPower float64, reason string) error {
	if votingPower <= 0 {
		return FieldError(KindValidation, "voting_power", "voting_power must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[proposalID]
	if !ok {
		return ErrNotFound
	}
	if p.Status != ProposalActive {
		return WrapError(KindState, "proposal not active", ErrInvalidState)
	}
	p.votes[voterWallet] = &Vote{
		ID:            NewID(),
		ProposalID:    proposalID,
		VoterWalletID: voterWallet,
		Type:          voteType,
		VotingPower:   votingPower,
		Reason:        reason,
		CreatedAt:     g.clock(),
	}
	return nil
}

// Finalize closes voting on an active proposal whose voting period has
// ended, applying §4.5's passing rule: passes iff yes_power > no_power AND
// total_voting_power >= required_quorum; otherwise rejected, or expired if
// no votes were cast at all. Abstain counts toward quorum but neither side.
func (g *Governance) Finalize(proposalID string) (*Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[proposalID]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != ProposalActive {
		return nil, WrapError(KindState, "proposal not active", ErrInvalidState)
	}
	if g.clock().Before(p.VotingEndsAt) {
		return nil, WrapError(KindState, "voting period has not ended", ErrInvalidState)
	}

	if len(p.votes) == 0 {
		p.Status = ProposalExpired
		return p, nil
	}

	var yesPower, noPower, totalPower float64
	for _, v := range p.votes {
		totalPower += v.VotingPower
		switch v.Type {
		case VoteYes:
			yesPower += v.VotingPower
		case VoteNo:
			noPower += v.VotingPower
		}
	}

	if yesPower > noPower && totalPower >= p.RequiredQuorum {
		p.Status = ProposalPassed
	} else {
		p.Status = ProposalRejected
	}
	return p, nil
}

// Execute runs a passed proposal exactly once, dispatching by category into
// the collaborator the category names (spec §4.5).
func (g *Governance) Execute(proposalID, executorWallet string) (*Proposal, error) {
	g.mu.Lock()
	p, ok := g.proposals[proposalID]
	g.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != ProposalPassed {
		return nil, WrapError(KindState, "only passed proposals can execute", ErrInvalidState)
	}

	switch p.Category {
	case CategoryCommunityFund:
		if err := g.executeCommunityFund(p); err != nil {
			return nil, err
		}
	case CategoryEscrowParams:
		if err := g.executeEscrowParams(p); err != nil {
			return nil, err
		}
	default:
		// governance, feature_request, bug_fix, other: no automatic side
		// effect beyond marking executed.
	}

	g.mu.Lock()
	p.Status = ProposalExecuted
	p.ExecutedAt = g.clock()
	p.ExecutorWalletID = executorWallet
	g.mu.Unlock()
	return p, nil
}

func (g *Governance) executeCommunityFund(p *Proposal) error {
	action, _ := p.ExecutionData["action"].(string)
	switch action {
	case "donate":
		walletID, _ := p.ExecutionData["wallet_id"].(string)
		amount, _ := p.ExecutionData["amount"].(float64)
		return g.fund.Donate(walletID, Amount(amount))
	case "airdrop":
		return g.fund.TriggerAirdrop()
	case "withdraw":
		walletID, _ := p.ExecutionData["wallet_id"].(string)
		amount, _ := p.ExecutionData["amount"].(float64)
		return g.fund.Withdraw(walletID, Amount(amount))
	default:
		return FieldError(KindValidation, "execution_data.action", "unknown community_fund action")
	}
}

// executeEscrowParams applies an escrow_params proposal's parameter change.
// Only the community-fund split percentage is adjustable today; unknown
// keys are rejected rather than silently ignored, so a mistyped proposal
// fails execution instead of quietly doing nothing.
func (g *Governance) executeEscrowParams(p *Proposal) error {
	pct, ok := p.ExecutionData["community_percent"].(float64)
	if !ok {
		return FieldError(KindValidation, "execution_data.community_percent", "escrow_params proposals require a numeric community_percent")
	}
	return g.escrows.SetCommunityPercent(int(pct))
}

// Get returns proposalID's row.
func (g *Governance) Get(proposalID string) (*Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[proposalID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}
