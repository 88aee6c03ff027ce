package main

// task.go — cmd/duxnetd's task subcommand tree (C10 Scheduler, C13
// Orchestrator). "run-cycle" drives one scheduling+execution pass using the
// registry's live nodes as scheduling candidates; resource figures not
// tracked by the registry (CPU cores, memory) use the operator-supplied
// <cpu-cores>/<memory-mb> arguments applied uniformly, and avg execution
// time is left at zero, since per-node telemetry is out of scope for this
// CLI surface.

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type TaskController struct{}

func (TaskController) Submit(t *core.Task) error { return app.Orchestrator.Submit(t) }

// Cancel routes through the orchestrator rather than the scheduler directly,
// so a task already assigned or running reaches the sandbox's kill path
// instead of only being found in the scheduler's (now-empty) pending queues.
func (TaskController) Cancel(id string) bool { return app.Orchestrator.Cancel(id) }

func (TaskController) QueueDepth() int { return app.Scheduler.QueueDepth() }

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Submit and drive distributed task execution",
}

var taskSubmitCmd = &cobra.Command{
	Use:   "submit <service> <code-file-contents-or-id> <priority> <payment-amount> <timeout-seconds>",
	Short: "Submit a task for scheduling",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		payment, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return err
		}
		timeout, err := strconv.Atoi(args[4])
		if err != nil {
			return err
		}
		t := &core.Task{
			ID:             core.NewID(),
			ServiceName:    args[0],
			Code:           args[1],
			Priority:       priority,
			PaymentAmount:  core.Amount(payment),
			TimeoutSeconds: timeout,
		}
		if err := TaskController{}.Submit(t); err != nil {
			return err
		}
		return printJSON(cmd, t)
	},
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a pending task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, map[string]bool{"cancelled": TaskController{}.Cancel(args[0])})
	},
}

var taskQueueDepthCmd = &cobra.Command{
	Use:   "queue-depth",
	Short: "Show the total number of pending tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, map[string]int{"queue_depth": TaskController{}.QueueDepth()})
	},
}

var taskRunCycleCmd = &cobra.Command{
	Use:   "run-cycle <cpu-cores> <memory-mb>",
	Short: "Run one scheduling+execution pass against every active node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cpu, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		mem, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		nodes := make([]core.NodeCapabilityView, 0)
		for _, n := range app.Registry.ActiveNodes() {
			services := make(map[string]bool, len(n.Capabilities))
			for c := range n.Capabilities {
				services[c] = true
			}
			nodes = append(nodes, core.NodeCapabilityView{
				NodeID:            n.ID,
				CPUCores:          cpu,
				MemoryMB:          mem,
				SupportedServices: services,
				Reputation:        n.Reputation,
				SuccessRate:       1.0,
			})
		}
		// This CLI path has no persisted task store to resolve assignments
		// back to full Task rows, so lookups always miss and RunCycle simply
		// reports zero executions; the orchestrator library call is exact
		// for a caller that does track submitted tasks (see core/orchestrator_test.go).
		results := app.Orchestrator.RunCycle(context.Background(), nodes, func(string) (*core.Task, bool) { return nil, false })
		return printJSON(cmd, results)
	},
}

func init() {
	taskCmd.AddCommand(taskSubmitCmd, taskCancelCmd, taskQueueDepthCmd, taskRunCycleCmd)
}

// TaskRoute is exported for registration in the root CLI.
var TaskRoute = taskCmd
