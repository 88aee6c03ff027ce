package core

// scheduler.go — C10 Task Scheduler. Grounded on
// original_source/duxos_tasks/task_scheduler.py's TaskScheduler (five
// priority heaps, retry-counted re-queue, max_tasks_per_node), rebuilt
// around caller-supplied NodeCapabilityView rows (the scheduler never reads
// the Registry itself) and with the exact scoring formula
// from spec §4.6 in place of the original's simpler reputation weighting.

import (
	"math/rand"
	"sync"
)

// TaskStatus is a task's lifecycle state (spec §3).
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskTimeout   TaskStatus = "timeout"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is a unit of submitted work (spec §3).
type Task struct {
	ID             string
	ServiceName    string
	TaskType       string
	Code           string
	Parameters     map[string]any
	InputData      map[string]any
	CPUCores       int
	MemoryMB       int
	TimeoutSeconds int
	PaymentAmount  Amount
	Priority       int
	Status         TaskStatus
	AssignedNodeID string
	EscrowID       string
	RetryCount     int
	LastError      string // SPEC_FULL.md C.6 supplement
}

// NodeCapabilityView is the scheduler's read of a node's current resource
// state, supplied by the caller (the registry's Node plus any live
// resource/perf telemetry it is not this component's job to collect).
type NodeCapabilityView struct {
	NodeID             string
	CPUCores           int
	MemoryMB           int
	SupportedServices  map[string]bool
	Reputation         int
	SuccessRate        float64
	AvgExecutionTime   float64
	CurrentAssignments int
}

const (
	defaultMaxRetries      = 3
	defaultMaxTasksPerNode = 10
)

// Scheduler holds five priority queues and assigns tasks to capable nodes.
type Scheduler struct {
	mu         sync.Mutex
	queues     [6][]*Task // index 1..5, index 0 unused
	maxRetries int
	maxPerNode int
	rng        *rand.Rand
}

// NewScheduler builds an empty Scheduler. rngSeed makes the scoring jitter
// term deterministic for tests; production callers pass a seed derived from
// the real clock.
func NewScheduler(maxRetries, maxTasksPerNode int, rngSeed int64) *Scheduler {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if maxTasksPerNode <= 0 {
		maxTasksPerNode = defaultMaxTasksPerNode
	}
	return &Scheduler{
		maxRetries: maxRetries,
		maxPerNode: maxTasksPerNode,
		rng:        rand.New(rand.NewSource(rngSeed)),
	}
}

// Submit enqueues task into the queue matching its priority (clamped to
// [1,5]).
func (s *Scheduler) Submit(t *Task) {
	p := t.Priority
	if p < 1 {
		p = 1
	} else if p > 5 {
		p = 5
	}
	t.Status = TaskPending
	s.mu.Lock()
	s.queues[p] = append(s.queues[p], t)
	s.mu.Unlock()
}

// score computes spec §4.6's node scoring formula for candidate against
// task.
func (s *Scheduler) score(task *Task, node NodeCapabilityView) float64 {
	execBonus := 100 - node.AvgExecutionTime
	if execBonus < 0 {
		execBonus = 0
	}
	var serviceBonus float64
	if node.SupportedServices[task.ServiceName] {
		serviceBonus = 100
	}
	return float64(node.CPUCores)*10 +
		float64(node.MemoryMB)/100 +
		node.SuccessRate*50 +
		float64(node.Reputation)*0.5 +
		execBonus +
		serviceBonus -
		float64(node.CurrentAssignments)*10 +
		s.rng.Float64()
}

// Assignment records a task->node binding.
type Assignment struct {
	TaskID string
	NodeID string
}

// Tick runs one scheduling pass across priorities 5 down to 1, assigning
// each pending task to its highest-scoring eligible node. Tasks that find
// no eligible node are re-queued with RetryCount incremented until
// maxRetries, after which they are marked failed with reason "no-node".
func (s *Scheduler) Tick(nodes []NodeCapabilityView) []Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignmentsByNode := make(map[string]int)
	var out []Assignment

	for p := 5; p >= 1; p-- {
		pending := s.queues[p]
		s.queues[p] = nil
		for _, t := range pending {
			node, ok := s.pickNode(t, nodes, assignmentsByNode)
			if !ok {
				t.RetryCount++
				if t.RetryCount >= s.maxRetries {
					t.Status = TaskFailed
					t.LastError = "no-node"
					continue
				}
				s.queues[p] = append(s.queues[p], t)
				continue
			}
			t.Status = TaskAssigned
			t.AssignedNodeID = node
			assignmentsByNode[node]++
			out = append(out, Assignment{TaskID: t.ID, NodeID: node})
		}
	}
	return out
}

func (s *Scheduler) pickNode(task *Task, nodes []NodeCapabilityView, assignedSoFar map[string]int) (string, bool) {
	best := ""
	bestScore := -1.0
	found := false
	for _, n := range nodes {
		if n.CPUCores < task.CPUCores || n.MemoryMB < task.MemoryMB {
			continue
		}
		if !n.SupportedServices[task.ServiceName] {
			continue
		}
		total := n.CurrentAssignments + assignedSoFar[n.NodeID]
		if total >= s.maxPerNode {
			continue
		}
		n.CurrentAssignments = total
		sc := s.score(task, n)
		if !found || sc > bestScore {
			best = n.NodeID
			bestScore = sc
			found = true
		}
	}
	return best, found
}

// Cancel removes a pending task from every queue by id. It reports whether
// a task was found and removed.
func (s *Scheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	for p := 1; p <= 5; p++ {
		filtered := s.queues[p][:0]
		for _, t := range s.queues[p] {
			if t.ID == taskID {
				t.Status = TaskCancelled
				removed = true
				continue
			}
			filtered = append(filtered, t)
		}
		s.queues[p] = filtered
	}
	return removed
}

// QueueDepth returns the number of pending tasks across every priority
// queue, reported by the ops server's /healthz endpoint.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for p := 1; p <= 5; p++ {
		total += len(s.queues[p])
	}
	return total
}
