package core

import "testing"

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	n, err := r.Register("node-1", "10.0.0.1:9000", []string{"gpu", "python"}, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if n.Status != NodeUnknown || n.Reputation != 50 {
		t.Errorf("fresh node = %+v, want status=unknown reputation=50", n)
	}

	got, err := r.Get("node-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "node-1" {
		t.Errorf("Get returned wrong node: %+v", got)
	}
}

func TestRegistryRejectsInvalidCapability(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Register("node-1", "addr", []string{"bad cap!"}, nil); err == nil {
		t.Fatal("expected an error for an invalid capability token")
	}
}

func TestRegistryCapabilityIndexConsistency(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("node-1", "addr-1", []string{"gpu", "python"}, nil)
	r.Register("node-2", "addr-2", []string{"gpu"}, nil)

	gpuNodes := r.ListByCapabilities([]string{"gpu"}, MatchAny)
	if len(gpuNodes) != 2 {
		t.Fatalf("expected 2 nodes with gpu capability, got %d", len(gpuNodes))
	}

	both := r.ListByCapabilities([]string{"gpu", "python"}, MatchAll)
	if len(both) != 1 || both[0].ID != "node-1" {
		t.Fatalf("MatchAll(gpu,python) = %+v, want only node-1", both)
	}

	// Re-registering with a narrower capability set must drop the node from
	// the index for capabilities it no longer advertises.
	r.Register("node-1", "addr-1", []string{"python"}, nil)
	gpuNodes = r.ListByCapabilities([]string{"gpu"}, MatchAny)
	if len(gpuNodes) != 1 || gpuNodes[0].ID != "node-2" {
		t.Fatalf("after re-register, gpu index = %+v, want only node-2", gpuNodes)
	}
}

func TestRegistryDeregisterSoftDeletes(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("node-1", "addr", []string{"gpu"}, nil)
	if err := r.Deregister("node-1"); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	if _, err := r.Get("node-1"); err != ErrNotFound {
		t.Errorf("Get after deregister = %v, want ErrNotFound", err)
	}
	if len(r.ListByCapabilities([]string{"gpu"}, MatchAny)) != 0 {
		t.Error("deregistered node should be dropped from the capability index")
	}
	if err := r.Deregister("node-1"); err != ErrNotFound {
		t.Errorf("second Deregister = %v, want ErrNotFound", err)
	}
}

func TestRegistryActiveNodesExcludesOfflineAndDeleted(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("node-1", "a1", nil, nil)
	r.Register("node-2", "a2", nil, nil)
	r.Register("node-3", "a3", nil, nil)
	r.Heartbeat("node-2", NodeOffline)
	r.Deregister("node-3")

	active := r.ActiveNodes()
	if len(active) != 1 || active[0].ID != "node-1" {
		t.Fatalf("ActiveNodes = %+v, want only node-1", active)
	}
}

func TestRegistryWithStorePersistsAndRehydrates(t *testing.T) {
	store := NewInMemoryStore()
	r, err := NewRegistryWithStore(nil, store)
	if err != nil {
		t.Fatalf("NewRegistryWithStore: %v", err)
	}
	r.Register("node-1", "addr", []string{"gpu"}, nil)
	r.Heartbeat("node-1", NodeOnline)

	r2, err := NewRegistryWithStore(nil, store)
	if err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	n, err := r2.Get("node-1")
	if err != nil {
		t.Fatalf("Get after rehydrate: %v", err)
	}
	if n.Status != NodeOnline {
		t.Errorf("rehydrated node status = %v, want online", n.Status)
	}
	gpuNodes := r2.ListByCapabilities([]string{"gpu"}, MatchAny)
	if len(gpuNodes) != 1 {
		t.Error("rehydrated registry should rebuild its capability index")
	}
}
