package core

// orchestrator.go — C13 Core Orchestrator. Grounded on
// original_source/duxos_tasks/task_engine.py's TaskEngine (submit_task,
// _scheduling_loop, _execute_assigned_task, _process_task_result,
// _process_payment, _update_node_reputation), rebuilt as a synchronous
// per-tick driver over the other twelve components instead of an asyncio
// event loop with three in-process dicts. Unlike the original's
// provider_signature="signature_placeholder" TODO, escrow release here
// always carries a real HMAC signature from the Authenticator.

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Orchestrator wires the scheduler, sandbox, verifier, escrow engine, and
// reputation engine into one task lifecycle: submit -> schedule -> execute
// -> verify -> release -> reputation update.
type Orchestrator struct {
	scheduler  *Scheduler
	sandbox    *Sandbox
	escrows    *EscrowEngine
	reputation *ReputationEngine
	auth       *Authenticator
	registry   *Registry
	clock      Clock

	mu      sync.Mutex
	running map[string]context.CancelFunc // task id -> cancel for its in-flight sandbox run
}

// NewOrchestrator wires an Orchestrator to its collaborators.
func NewOrchestrator(scheduler *Scheduler, sandbox *Sandbox, escrows *EscrowEngine, reputation *ReputationEngine, auth *Authenticator, registry *Registry, clock Clock) *Orchestrator {
	return &Orchestrator{
		scheduler:  scheduler,
		sandbox:    sandbox,
		escrows:    escrows,
		reputation: reputation,
		auth:       auth,
		registry:   registry,
		clock:      defaultClock(clock),
		running:    make(map[string]context.CancelFunc),
	}
}

// Submit validates and enqueues task for scheduling (task_engine.py's
// submit_task minus the placeholder persistence dicts; the scheduler is the
// task's system of record here).
func (o *Orchestrator) Submit(task *Task) error {
	if task.ServiceName == "" {
		return FieldError(KindValidation, "service_name", "task must have a service name")
	}
	if task.Code == "" {
		return FieldError(KindValidation, "code", "task must have code to execute")
	}
	if task.PaymentAmount < 0 {
		return FieldError(KindValidation, "payment_amount", "payment amount cannot be negative")
	}
	if task.TimeoutSeconds <= 0 {
		return FieldError(KindValidation, "timeout_seconds", "timeout must be positive")
	}
	o.scheduler.Submit(task)
	return nil
}

// Cancel stops taskID wherever it currently sits: if it is still pending it
// is removed from the scheduler's queues, and if it is already assigned or
// running, the sandbox execution's context is cancelled so Execute kills
// the subprocess and reports a cancelled TaskResult (spec §5: "cancelling
// an assigned or running task instructs the sandbox to kill the process").
// It reports whether a cancellation was delivered to either place. A task
// that Tick has assigned but whose sandbox run has not started yet (a later
// assignment in the same RunCycle) is in neither place: Cancel reports false
// for it and its run still starts.
func (o *Orchestrator) Cancel(taskID string) bool {
	o.mu.Lock()
	cancel, inFlight := o.running[taskID]
	o.mu.Unlock()
	if inFlight {
		cancel()
		return true
	}
	return o.scheduler.Cancel(taskID)
}

// taskLookup resolves a scheduled Assignment's task id back to a *Task; the
// caller (RunCycle) owns the task registry since Scheduler only tracks
// queued/assigned tasks transiently inside Tick.
type taskLookup func(taskID string) (*Task, bool)

// RunCycle runs one full scheduling+execution pass: schedule pending tasks
// against nodes, execute each new assignment in the sandbox, verify and
// settle its result, and update the assigned node's reputation. It mirrors
// task_engine.py's _scheduling_loop body for a single iteration (the caller
// decides the polling cadence).
func (o *Orchestrator) RunCycle(ctx context.Context, nodes []NodeCapabilityView, lookup taskLookup) []*TaskResult {
	assignments := o.scheduler.Tick(nodes)
	results := make([]*TaskResult, 0, len(assignments))
	for _, a := range assignments {
		task, ok := lookup(a.TaskID)
		if !ok {
			stdLogger.WithField("task_id", a.TaskID).Warn("assigned task not found in task store")
			continue
		}
		task.AssignedNodeID = a.NodeID
		results = append(results, o.ExecuteAndSettle(ctx, task))
	}
	return results
}

// ExecuteAndSettle runs task in the sandbox, then settles the outcome:
// successful runs are verified and released through escrow; every outcome
// updates the assigned node's reputation. Reputation updates never roll
// back a completed release (task_engine.py's _process_task_result calls
// _process_payment and _update_node_reputation as two independent steps;
// a reputation failure here is logged, not propagated, for the same
// reason).
func (o *Orchestrator) ExecuteAndSettle(ctx context.Context, task *Task) *TaskResult {
	task.Status = TaskRunning

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.running[task.ID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, task.ID)
		o.mu.Unlock()
		cancel()
	}()

	result := o.sandbox.Execute(runCtx, task)

	if result.Status == TaskCompleted && task.EscrowID != "" {
		if err := o.settlePayment(task, result); err != nil {
			stdLogger.WithError(err).WithField("task_id", task.ID).Warn("payment settlement failed")
			result.Status = TaskFailed
			result.ErrorMessage = err.Error()
		}
	}

	task.Status = result.Status
	o.updateReputation(task, result)

	if result.Status == TaskCompleted {
		Broadcast(TopicTaskCompleted, map[string]any{"task_id": task.ID, "node_id": result.NodeID, "ts": result.CreatedAt})
	} else {
		Broadcast(TopicTaskFailed, map[string]any{"task_id": task.ID, "node_id": result.NodeID, "error": result.ErrorMessage, "ts": result.CreatedAt})
	}
	return result
}

// settlePayment signs the release message on the provider node's behalf and
// releases the escrow. In a real deployment the provider node signs and
// submits its own release call; the orchestrator signing here models the
// trusted in-process path used by scheduler-driven auto-settlement.
func (o *Orchestrator) settlePayment(task *Task, result *TaskResult) error {
	now := o.clock()
	msg := releaseMessage(task.EscrowID, result.ResultHash, now)
	sig, err := o.auth.Sign(task.AssignedNodeID, msg)
	if err != nil {
		return err
	}
	_, err = o.escrows.Release(task.EscrowID, result.ResultHash, result.OutputData, sig, now)
	return err
}

func (o *Orchestrator) updateReputation(task *Task, result *TaskResult) {
	if task.AssignedNodeID == "" {
		return
	}
	if result.Status == TaskCancelled {
		// An operator-initiated cancellation is not the node's fault; it
		// neither helps nor hurts standing.
		return
	}
	var event ReputationEvent
	switch result.Status {
	case TaskCompleted:
		event = EventTaskSuccess
	case TaskTimeout:
		event = EventTaskTimeout
	default:
		event = EventTaskFailure
	}
	if _, err := o.reputation.Apply(task.AssignedNodeID, event); err != nil {
		stdLogger.WithFields(logrus.Fields{"node_id": task.AssignedNodeID, "event": event}).WithError(err).Warn("reputation update failed")
	}
}
