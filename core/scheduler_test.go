package core

import "testing"

func capableNode(id string, cpu, mem int, services ...string) NodeCapabilityView {
	s := make(map[string]bool, len(services))
	for _, svc := range services {
		s[svc] = true
	}
	return NodeCapabilityView{NodeID: id, CPUCores: cpu, MemoryMB: mem, SupportedServices: s, SuccessRate: 1}
}

func TestSchedulerAssignsToCapableNode(t *testing.T) {
	s := NewScheduler(3, 10, 1)
	task := &Task{ID: "t1", ServiceName: "inference", CPUCores: 2, MemoryMB: 512, Priority: 3}
	s.Submit(task)

	nodes := []NodeCapabilityView{
		capableNode("node-weak", 1, 256, "inference"),
		capableNode("node-strong", 4, 2048, "inference"),
		capableNode("node-wrong-service", 8, 4096, "other"),
	}
	assignments := s.Tick(nodes)
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}
	if assignments[0].NodeID != "node-strong" {
		t.Errorf("assigned to %s, want node-strong (higher-scoring)", assignments[0].NodeID)
	}
}

func TestSchedulerFiltersByCapacity(t *testing.T) {
	s := NewScheduler(3, 10, 1)
	task := &Task{ID: "t1", ServiceName: "inference", CPUCores: 8, MemoryMB: 8192, Priority: 1}
	s.Submit(task)

	nodes := []NodeCapabilityView{capableNode("node-1", 2, 1024, "inference")}
	assignments := s.Tick(nodes)
	if len(assignments) != 0 {
		t.Fatalf("expected no assignment (insufficient resources), got %d", len(assignments))
	}
}

func TestSchedulerRetriesThenFailsAfterMaxRetries(t *testing.T) {
	s := NewScheduler(2, 10, 1)
	task := &Task{ID: "t1", ServiceName: "inference", Priority: 1}
	s.Submit(task)

	// No nodes at all -> never assignable.
	s.Tick(nil)
	if task.Status == TaskFailed {
		t.Fatal("should not fail before max retries")
	}
	s.Tick(nil)
	if task.Status != TaskFailed || task.LastError != "no-node" {
		t.Errorf("after max retries: status=%v error=%q, want failed/no-node", task.Status, task.LastError)
	}
}

func TestSchedulerPrioritizesHigherPriorityFirstWithPerNodeCap(t *testing.T) {
	s := NewScheduler(3, 1, 1)
	low := &Task{ID: "low", ServiceName: "svc", Priority: 1}
	high := &Task{ID: "high", ServiceName: "svc", Priority: 5}
	s.Submit(low)
	s.Submit(high)

	nodes := []NodeCapabilityView{capableNode("only-node", 4, 4096, "svc")}
	assignments := s.Tick(nodes)
	if len(assignments) != 1 || assignments[0].TaskID != "high" {
		t.Fatalf("expected the single per-node slot to go to the higher-priority task, got %+v", assignments)
	}
}

func TestSchedulerCancelRemovesPendingTask(t *testing.T) {
	s := NewScheduler(3, 10, 1)
	task := &Task{ID: "t1", ServiceName: "svc", Priority: 2}
	s.Submit(task)
	if !s.Cancel("t1") {
		t.Fatal("Cancel should report true for a pending task")
	}
	if task.Status != TaskCancelled {
		t.Errorf("status = %v, want cancelled", task.Status)
	}
	if s.QueueDepth() != 0 {
		t.Errorf("QueueDepth after cancel = %d, want 0", s.QueueDepth())
	}
	if s.Cancel("t1") {
		t.Error("Cancel should report false for an already-removed task")
	}
}

func TestSchedulerQueueDepthAcrossPriorities(t *testing.T) {
	s := NewScheduler(3, 10, 1)
	s.Submit(&Task{ID: "a", ServiceName: "svc", Priority: 1})
	s.Submit(&Task{ID: "b", ServiceName: "svc", Priority: 5})
	if s.QueueDepth() != 2 {
		t.Errorf("QueueDepth = %d, want 2", s.QueueDepth())
	}
}
