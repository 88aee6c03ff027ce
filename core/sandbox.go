package core

// sandbox.go — C11 Execution Sandbox. Grounded on
// original_source/duxos_tasks/execution_sandbox.py's ExecutionSandbox
// (validate/create-environment/run/collect-stdout/cleanup shape), expressed
// per spec §9 REDESIGN FLAGS as a Runtime capability set {prepare, run,
// kill, cleanup} with container-preferred/native-fallback variants instead
// of the original's hard Docker dependency; the native variant here uses
// internal/testutil.Sandbox for its isolated working directory, the same
// package the teacher's own sandbox-adjacent tests use. Logs through
// go.uber.org/zap per SPEC_FULL.md's ambient-stack section for this
// low-level, I/O-adjacent subsystem.

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"duxnet/internal/testutil"
)

// killGracePeriod is how long Run waits after sending SIGTERM before
// escalating to SIGKILL, on both a wall-clock timeout and an external
// cancellation (spec §5: "SIGTERM then SIGKILL after 5s").
const killGracePeriod = 5 * time.Second

const (
	globalMaxMemoryMB       = 8192
	globalMaxTimeoutSeconds = 3600
)

// Runtime is the capability set a sandbox backend must implement (spec §9
// REDESIGN FLAGS).
type Runtime interface {
	Prepare(task *Task) (Environment, error)
	Run(ctx context.Context, env Environment, task *Task) (exitCode int, stdout []byte, err error)
	Kill(env Environment) error
	Cleanup(env Environment) error
}

// Environment is a prepared, isolated working area for one task run.
type Environment interface {
	WorkDir() string
}

// nativeEnvironment backs Runtime with an OS-level subprocess inside a
// temp-dir sandbox — the fallback variant when no container runtime is
// configured.
type nativeEnvironment struct {
	sb *testutil.Sandbox
}

func (e *nativeEnvironment) WorkDir() string { return e.sb.Root }

// NativeRuntime runs task code as a plain OS subprocess. It never shells
// out through a container daemon; it is the "native subprocess as
// fallback" half of spec §4.8's two variants.
type NativeRuntime struct {
	logger      *zap.Logger
	interpreter string // e.g. "python3"; the command used to run task.Code
}

// NewNativeRuntime builds a NativeRuntime invoking interpreter to execute
// submitted code.
func NewNativeRuntime(interpreter string, logger *zap.Logger) *NativeRuntime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NativeRuntime{logger: logger, interpreter: interpreter}
}

func (r *NativeRuntime) Prepare(task *Task) (Environment, error) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		return nil, WrapError(KindExternal, "sandbox environment unavailable", err)
	}
	if err := sb.WriteFile("task.code", []byte(task.Code), 0600); err != nil {
		sb.Cleanup()
		return nil, WrapError(KindInternal, "failed to materialize task code", err)
	}
	input, err := json.Marshal(task.InputData)
	if err != nil {
		sb.Cleanup()
		return nil, WrapError(KindInternal, "failed to marshal input data", err)
	}
	if err := sb.WriteFile("input.json", input, 0600); err != nil {
		sb.Cleanup()
		return nil, WrapError(KindInternal, "failed to materialize input data", err)
	}
	return &nativeEnvironment{sb: sb}, nil
}

func (r *NativeRuntime) Run(ctx context.Context, env Environment, task *Task) (int, []byte, error) {
	native := env.(*nativeEnvironment)
	cmd := exec.CommandContext(ctx, r.interpreter, native.sb.Path("task.code"))
	cmd.Dir = native.WorkDir()
	cmd.Env = []string{} // no inherited env, so no proxy vars; network access is not otherwise restricted

	// On context cancellation (wall-clock timeout or an external Cancel),
	// os/exec calls Cancel instead of its default Kill, then escalates to
	// SIGKILL itself if the process hasn't exited within WaitDelay.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGracePeriod

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return -1, stdout.Bytes(), err
		}
	}
	return exitCode, stdout.Bytes(), nil
}

func (r *NativeRuntime) Kill(env Environment) error {
	// Run's cmd.Cancel/cmd.WaitDelay already perform the SIGTERM-then-
	// SIGKILL escalation as soon as the context passed to Run is done;
	// Kill exists only to satisfy Runtime for callers (or future runtime
	// variants, e.g. a container backend) that need an explicit signal
	// outside of context cancellation.
	return nil
}

func (r *NativeRuntime) Cleanup(env Environment) error {
	native := env.(*nativeEnvironment)
	return native.sb.Cleanup()
}

// TaskResult is a completed run's outcome (spec §3).
type TaskResult struct {
	TaskID               string
	NodeID               string
	Status               TaskStatus
	OutputData           map[string]any
	ErrorMessage         string
	ExecutionTimeSeconds float64
	ResultHash           string
	CreatedAt            time.Time
}

// Sandbox executes tasks through a Runtime and always reclaims the
// environment on every exit path (spec §4.8).
type Sandbox struct {
	runtime Runtime
	logger  *zap.Logger
	clock   Clock
}

// NewSandbox builds a Sandbox around runtime.
func NewSandbox(runtime Runtime, logger *zap.Logger, clock Clock) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{runtime: runtime, logger: logger, clock: defaultClock(clock)}
}

// Execute validates, prepares, runs, and tears down task, producing a
// TaskResult. It never mutates any other component's state (spec §4.8).
func (s *Sandbox) Execute(ctx context.Context, task *Task) *TaskResult {
	start := s.clock()
	nodeID := task.AssignedNodeID
	if nodeID == "" {
		nodeID = "unknown"
	}

	if err := validateTask(task); err != nil {
		return &TaskResult{TaskID: task.ID, NodeID: nodeID, Status: TaskFailed, ErrorMessage: err.Error(), CreatedAt: start}
	}

	env, err := s.runtime.Prepare(task)
	if err != nil {
		s.logger.Warn("sandbox prepare failed", zap.String("task_id", task.ID), zap.Error(err))
		return &TaskResult{TaskID: task.ID, NodeID: nodeID, Status: TaskFailed, ErrorMessage: err.Error(), CreatedAt: start}
	}
	defer func() {
		if err := s.runtime.Cleanup(env); err != nil {
			s.logger.Warn("sandbox cleanup failed", zap.String("task_id", task.ID), zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(task.TimeoutSeconds)*time.Second)
	defer cancel()

	exitCode, stdout, runErr := s.runtime.Run(runCtx, env, task)
	elapsed := s.clock().Sub(start).Seconds()

	switch runCtx.Err() {
	case context.DeadlineExceeded:
		s.runtime.Kill(env)
		return &TaskResult{TaskID: task.ID, NodeID: nodeID, Status: TaskTimeout, ErrorMessage: "wall-clock timeout exceeded", ExecutionTimeSeconds: elapsed, CreatedAt: s.clock()}
	case context.Canceled:
		// runCtx is WithTimeout(ctx, ...): its Err reports Canceled only
		// when the caller's ctx was cancelled before the deadline — i.e.
		// an external cancellation request, not a timeout (spec §5).
		s.runtime.Kill(env)
		return &TaskResult{TaskID: task.ID, NodeID: nodeID, Status: TaskCancelled, ErrorMessage: "task cancelled", ExecutionTimeSeconds: elapsed, CreatedAt: s.clock()}
	}
	if runErr != nil {
		return &TaskResult{TaskID: task.ID, NodeID: nodeID, Status: TaskFailed, ErrorMessage: runErr.Error(), ExecutionTimeSeconds: elapsed, CreatedAt: s.clock()}
	}

	output := parseOutput(stdout)
	hash := ResultHash(output)
	status := TaskCompleted
	errMsg := ""
	if exitCode != 0 {
		status = TaskFailed
		errMsg = "non-zero exit code"
	}

	return &TaskResult{
		TaskID:               task.ID,
		NodeID:               nodeID,
		Status:               status,
		OutputData:           output,
		ErrorMessage:         errMsg,
		ExecutionTimeSeconds: elapsed,
		ResultHash:           hash,
		CreatedAt:            s.clock(),
	}
}

func validateTask(task *Task) error {
	if task.Code == "" {
		return FieldError(KindValidation, "code", "code must not be empty")
	}
	if task.MemoryMB > globalMaxMemoryMB {
		return FieldError(KindValidation, "memory_mb", "memory_mb exceeds global cap")
	}
	if task.TimeoutSeconds > globalMaxTimeoutSeconds {
		return FieldError(KindValidation, "timeout_seconds", "timeout_seconds exceeds global cap")
	}
	return nil
}

// parseOutput interprets stdout as JSON when well-formed, otherwise wraps
// it as {"result": <stdout>} (spec §4.8).
func parseOutput(stdout []byte) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(stdout, &parsed); err == nil {
		return parsed
	}
	return map[string]any{"result": string(stdout)}
}
