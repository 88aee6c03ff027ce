package core

import "testing"

func TestVerifierRequiresOutputData(t *testing.T) {
	v := NewVerifier()
	if err := v.Verify("task-1", "deadbeef", nil); err == nil {
		t.Fatal("expected an error when output data is nil")
	}
}

func TestVerifierRejectsMismatchedHash(t *testing.T) {
	v := NewVerifier()
	output := map[string]any{"result": "ok"}
	wrongHash := ResultHash(map[string]any{"result": "different"})
	if err := v.Verify("task-1", wrongHash, output); err == nil {
		t.Fatal("expected an error for a result_hash that does not match the recomputed hash")
	}
}

func TestVerifierAcceptsMatchingHash(t *testing.T) {
	v := NewVerifier()
	output := map[string]any{"result": "ok"}
	hash := ResultHash(output)
	if err := v.Verify("task-1", hash, output); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifierRejectsNegativeExecutionTime(t *testing.T) {
	v := NewVerifier()
	output := map[string]any{"execution_time_seconds": -1.0}
	hash := ResultHash(output)
	if err := v.Verify("task-1", hash, output); err == nil {
		t.Fatal("expected an error for a negative execution_time_seconds")
	}
}

func TestVerifierRunsServiceHook(t *testing.T) {
	v := NewVerifier()
	called := false
	v.RegisterServiceHook("inference", func(output map[string]any) error {
		called = true
		return nil
	})
	output := map[string]any{"service_name": "inference"}
	hash := ResultHash(output)
	if err := v.Verify("task-1", hash, output); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !called {
		t.Error("expected the registered service hook to be invoked")
	}
}

func TestVerifierAppliesTaskSpecificRules(t *testing.T) {
	v := NewVerifier()
	v.RegisterRules("task-1", []Rule{
		{Type: RuleRange, Field: "score", Min: 0, Max: 1},
	})
	output := map[string]any{"score": 1.5}
	hash := ResultHash(output)
	if err := v.Verify("task-1", hash, output); err == nil {
		t.Fatal("expected the range rule to reject an out-of-range score")
	}
}
