package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newOrchestratorFixture(t *testing.T, rt Runtime) (*Orchestrator, *EscrowEngine, *WalletLedger, *Registry) {
	t.Helper()
	registry := NewRegistry(nil)
	registry.Register("node-1", "addr", []string{"inference"}, nil)
	auth := NewAuthenticator(nil)
	auth.Register("node-1", AuthSigned)
	ledger := NewWalletLedger(10, time.Hour, nil)
	fund := NewCommunityFund(CommunityFundConfig{AirdropThreshold: 1 << 30, MaxAirdropNodes: 10}, ledger, registry, nil)
	verifier := NewVerifier()
	escrows := NewEscrowEngine(ledger, fund, auth, verifier, nil)
	reputation := NewReputationEngine(registry)
	scheduler := NewScheduler(3, 10, 1)
	sandbox := NewSandbox(rt, nil, nil)
	orch := NewOrchestrator(scheduler, sandbox, escrows, reputation, auth, registry, nil)
	return orch, escrows, ledger, registry
}

func TestOrchestratorSubmitValidatesTask(t *testing.T) {
	orch, _, _, _ := newOrchestratorFixture(t, &fakeRuntime{})
	if err := orch.Submit(&Task{Code: "x", PaymentAmount: 10, TimeoutSeconds: 5}); err == nil {
		t.Fatal("expected an error for a task with no service_name")
	}
	if err := orch.Submit(&Task{ServiceName: "inference", PaymentAmount: 10, TimeoutSeconds: 5}); err == nil {
		t.Fatal("expected an error for a task with no code")
	}
	if err := orch.Submit(&Task{ServiceName: "inference", Code: "x", PaymentAmount: 10, TimeoutSeconds: 0}); err == nil {
		t.Fatal("expected an error for a non-positive timeout")
	}
	if err := orch.Submit(&Task{ServiceName: "inference", Code: "x", PaymentAmount: 10, TimeoutSeconds: 5}); err != nil {
		t.Fatalf("valid task should be accepted: %v", err)
	}
}

func TestOrchestratorExecuteAndSettleHappyPathReleasesEscrowAndRaisesReputation(t *testing.T) {
	output := map[string]any{"service_name": "inference", "answer": float64(42)}
	rt := &fakeRuntime{exitCode: 0, stdout: mustJSON(t, output)}
	orch, escrows, ledger, registry := newOrchestratorFixture(t, rt)

	ledger.Credit("payer", 1000)
	esc, err := escrows.Create("payer", "provider", "node-1", 1000, FLOP, "inference", "task-1", nil)
	if err != nil {
		t.Fatalf("Create escrow: %v", err)
	}

	task := &Task{ID: "task-1", ServiceName: "inference", Code: "x", TimeoutSeconds: 5, PaymentAmount: 1000, EscrowID: esc.ID, AssignedNodeID: "node-1"}
	result := orch.ExecuteAndSettle(context.Background(), task)

	if result.Status != TaskCompleted {
		t.Fatalf("result status = %v, want completed", result.Status)
	}
	released, err := escrows.Get(esc.ID)
	if err != nil {
		t.Fatalf("Get escrow: %v", err)
	}
	if released.Status != EscrowReleased {
		t.Errorf("escrow status = %v, want released", released.Status)
	}
	if ledger.Balance("provider") != released.ProviderAmount {
		t.Errorf("provider balance = %d, want %d", ledger.Balance("provider"), released.ProviderAmount)
	}
	node, _ := registry.Get("node-1")
	if node.Reputation <= 50 {
		t.Errorf("reputation after success = %d, want > 50", node.Reputation)
	}
}

func TestOrchestratorExecuteAndSettleFailureStillUpdatesReputationDownward(t *testing.T) {
	rt := &fakeRuntime{exitCode: 1, stdout: []byte("boom")}
	orch, _, _, registry := newOrchestratorFixture(t, rt)

	task := &Task{ID: "task-1", ServiceName: "inference", Code: "x", TimeoutSeconds: 5, AssignedNodeID: "node-1"}
	result := orch.ExecuteAndSettle(context.Background(), task)
	if result.Status != TaskFailed {
		t.Fatalf("result status = %v, want failed", result.Status)
	}
	node, _ := registry.Get("node-1")
	if node.Reputation >= 50 {
		t.Errorf("reputation after failure = %d, want < 50", node.Reputation)
	}
}

func TestOrchestratorCancelStopsRunningTask(t *testing.T) {
	rt := &fakeRuntime{sleepFor: 2 * time.Second}
	orch, _, _, registry := newOrchestratorFixture(t, rt)

	task := &Task{ID: "task-1", ServiceName: "inference", Code: "x", TimeoutSeconds: 30, AssignedNodeID: "node-1"}
	resultCh := make(chan *TaskResult, 1)
	go func() { resultCh <- orch.ExecuteAndSettle(context.Background(), task) }()

	// Give ExecuteAndSettle a moment to register its in-flight cancel func
	// before asking the orchestrator to cancel it.
	time.Sleep(50 * time.Millisecond)
	if !orch.Cancel("task-1") {
		t.Fatal("expected Cancel to find the running task")
	}

	result := <-resultCh
	if result.Status != TaskCancelled {
		t.Fatalf("result status = %v, want cancelled", result.Status)
	}
	if !rt.killed {
		t.Error("a cancelled run should be killed")
	}
	node, _ := registry.Get("node-1")
	if node.Reputation != 50 {
		t.Errorf("reputation after cancellation = %d, want unchanged at 50", node.Reputation)
	}
}

func TestOrchestratorCancelFallsBackToPendingQueue(t *testing.T) {
	orch, _, _, _ := newOrchestratorFixture(t, &fakeRuntime{})
	orch.Submit(&Task{ID: "pending-1", ServiceName: "inference", Code: "x", PaymentAmount: 1, TimeoutSeconds: 5})
	if !orch.Cancel("pending-1") {
		t.Fatal("expected Cancel to remove the still-pending task from the scheduler")
	}
}

func TestOrchestratorRunCycleSkipsUnresolvableAssignments(t *testing.T) {
	orch, _, _, _ := newOrchestratorFixture(t, &fakeRuntime{})
	orch.Submit(&Task{ID: "dummy", ServiceName: "inference", Code: "x", PaymentAmount: 1, TimeoutSeconds: 5})

	nodes := []NodeCapabilityView{capableNode("node-1", 4, 4096, "inference")}
	results := orch.RunCycle(context.Background(), nodes, func(string) (*Task, bool) { return nil, false })
	if len(results) != 0 {
		t.Errorf("expected 0 results when the task lookup always misses, got %d", len(results))
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
