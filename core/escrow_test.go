package core

import (
	"testing"
	"time"
)

func newTestEscrowEngine(t *testing.T) (*EscrowEngine, *WalletLedger, *Authenticator, *Registry) {
	t.Helper()
	registry := NewRegistry(nil)
	registry.Register("provider-node", "addr", nil, nil)
	ledger := NewWalletLedger(10, time.Hour, nil)
	fund := NewCommunityFund(CommunityFundConfig{AirdropThreshold: 1 << 30, MaxAirdropNodes: 10}, ledger, registry, nil)
	auth := NewAuthenticator(nil)
	auth.Register("provider-node", AuthSigned)
	verifier := NewVerifier()
	return NewEscrowEngine(ledger, fund, auth, verifier, nil), ledger, auth, registry
}

func TestEscrowCreateLocksFundsAndSplits(t *testing.T) {
	e, ledger, _, _ := newTestEscrowEngine(t)
	ledger.Credit("payer", 1000)

	esc, err := e.Create("payer", "provider", "provider-node", 1000, FLOP, "inference", "task-1", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if esc.Status != EscrowActive {
		t.Errorf("status = %v, want active", esc.Status)
	}
	if esc.ProviderAmount+esc.CommunityAmount != esc.Amount {
		t.Errorf("provider+community = %d, want %d", esc.ProviderAmount+esc.CommunityAmount, esc.Amount)
	}
	if ledger.Balance("payer") != 0 {
		t.Errorf("payer balance after create = %d, want 0 (fully locked)", ledger.Balance("payer"))
	}
}

func TestEscrowCreateRejectsSamePayerAndProvider(t *testing.T) {
	e, ledger, _, _ := newTestEscrowEngine(t)
	ledger.Credit("wallet-1", 1000)
	if _, err := e.Create("wallet-1", "wallet-1", "provider-node", 100, FLOP, "svc", "task-1", nil); err == nil {
		t.Fatal("expected an error when payer and provider are the same wallet")
	}
}

func TestEscrowCreateLeavesNoRowOnLockFailure(t *testing.T) {
	e, _, _, _ := newTestEscrowEngine(t)
	if _, err := e.Create("payer", "provider", "provider-node", 100, FLOP, "svc", "task-1", nil); err == nil {
		t.Fatal("expected insufficient-funds error with no prior credit")
	}
	if len(e.ListByWallet("payer", "")) != 0 {
		t.Error("a failed create must not leave a pending escrow row")
	}
}

func releaseValid(t *testing.T, e *EscrowEngine, auth *Authenticator, esc *Escrow, now time.Time) (*Escrow, error) {
	t.Helper()
	output := map[string]any{"service_name": "inference", "execution_time_seconds": 1.5}
	hash := ResultHash(output)
	msg := releaseMessage(esc.ID, hash, now)
	sig, err := auth.Sign(esc.ProviderNodeID, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return e.Release(esc.ID, hash, output, sig, now)
}

func TestEscrowReleaseHappyPath(t *testing.T) {
	e, ledger, auth, _ := newTestEscrowEngine(t)
	ledger.Credit("payer", 1000)
	esc, _ := e.Create("payer", "provider", "provider-node", 1000, FLOP, "inference", "task-1", nil)

	now := time.Now().UTC()
	released, err := releaseValid(t, e, auth, esc, now)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released.Status != EscrowReleased {
		t.Errorf("status = %v, want released", released.Status)
	}
	if released.ReleasedAt.IsZero() {
		t.Error("ReleasedAt should be set")
	}
	if !released.RefundedAt.IsZero() {
		t.Error("a released escrow should never also carry a RefundedAt")
	}
	if ledger.Balance("provider") != released.ProviderAmount {
		t.Errorf("provider balance = %d, want %d", ledger.Balance("provider"), released.ProviderAmount)
	}
}

func TestEscrowReleaseIsIdempotentForSameResult(t *testing.T) {
	e, ledger, auth, _ := newTestEscrowEngine(t)
	ledger.Credit("payer", 1000)
	esc, _ := e.Create("payer", "provider", "provider-node", 1000, FLOP, "inference", "task-1", nil)

	now := time.Now().UTC()
	first, err := releaseValid(t, e, auth, esc, now)
	if err != nil {
		t.Fatalf("first Release: %v", err)
	}
	providerBalanceAfterFirst := ledger.Balance("provider")

	second, err := e.Release(esc.ID, first.ResultHash, nil, first.ProviderSignature, now)
	if err != nil {
		t.Fatalf("second Release (duplicate) should succeed idempotently: %v", err)
	}
	if second.Status != EscrowReleased {
		t.Errorf("duplicate release status = %v, want released", second.Status)
	}
	if ledger.Balance("provider") != providerBalanceAfterFirst {
		t.Error("a duplicate release must not re-transfer funds")
	}
}

func TestEscrowReleaseRejectsInactiveEscrow(t *testing.T) {
	e, ledger, auth, _ := newTestEscrowEngine(t)
	ledger.Credit("payer", 1000)
	esc, _ := e.Create("payer", "provider", "provider-node", 1000, FLOP, "inference", "task-1", nil)
	e.Refund(esc.ID, "cancelled")

	now := time.Now().UTC()
	if _, err := releaseValid(t, e, auth, esc, now); err == nil {
		t.Fatal("expected release of a refunded escrow to fail")
	}
}

func TestEscrowRefundReturnsFullAmount(t *testing.T) {
	e, ledger, _, _ := newTestEscrowEngine(t)
	ledger.Credit("payer", 1000)
	esc, _ := e.Create("payer", "provider", "provider-node", 1000, FLOP, "inference", "task-1", nil)

	refunded, err := e.Refund(esc.ID, "provider timed out")
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if refunded.Status != EscrowRefunded {
		t.Errorf("status = %v, want refunded", refunded.Status)
	}
	if !refunded.ReleasedAt.IsZero() {
		t.Error("a refunded escrow should never also carry a ReleasedAt")
	}
	if ledger.Balance("payer") != 1000 {
		t.Errorf("payer balance after refund = %d, want full amount 1000", ledger.Balance("payer"))
	}
}

func TestEscrowMarkDisputedAndReturnToActive(t *testing.T) {
	e, ledger, _, _ := newTestEscrowEngine(t)
	ledger.Credit("payer", 1000)
	esc, _ := e.Create("payer", "provider", "provider-node", 1000, FLOP, "inference", "task-1", nil)

	if err := e.MarkDisputed(esc.ID, "dispute-1"); err != nil {
		t.Fatalf("MarkDisputed: %v", err)
	}
	got, _ := e.Get(esc.ID)
	if got.Status != EscrowDisputed || got.DisputeID != "dispute-1" {
		t.Errorf("after MarkDisputed: %+v", got)
	}

	if err := e.ReturnToActive(esc.ID); err != nil {
		t.Fatalf("ReturnToActive: %v", err)
	}
	got, _ = e.Get(esc.ID)
	if got.Status != EscrowActive || got.DisputeID != "" {
		t.Errorf("after ReturnToActive: %+v", got)
	}
}
