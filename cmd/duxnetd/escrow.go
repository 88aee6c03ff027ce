package main

// escrow.go — cmd/duxnetd's escrow subcommand tree, following the
// teacher's cmd/cli/escrow.go shape exactly: a thin *Controller wrapping
// core calls, package-level *cobra.Command vars, RunE closures that
// marshal results with encoding/json to cmd.OutOrStdout().

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type EscrowController struct{}

func (EscrowController) Create(payer, provider, providerNode string, amount int64, currency, service, taskID string) (*core.Escrow, error) {
	return app.Escrows.Create(payer, provider, providerNode, core.Amount(amount), core.Currency(currency), service, taskID, nil)
}

func (EscrowController) Release(id, resultHash, signature string) (*core.Escrow, error) {
	return app.Escrows.Release(id, resultHash, nil, signature, time.Now().UTC())
}

func (EscrowController) Refund(id, reason string) (*core.Escrow, error) {
	return app.Escrows.Refund(id, reason)
}

func (EscrowController) Get(id string) (*core.Escrow, error) { return app.Escrows.Get(id) }

func (EscrowController) List(wallet string) []*core.Escrow {
	return app.Escrows.ListByWallet(wallet, "")
}

func (EscrowController) LockInfo(escrowID string) (core.FundLock, error) {
	return app.Ledger.LockInfo(escrowID)
}

var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Manage two-party payment escrows",
}

var escrowCreateCmd = &cobra.Command{
	Use:   "create <payer> <provider> <provider-node> <amount> <currency> <service> <task-id>",
	Short: "Create and fund a new escrow",
	Args:  cobra.ExactArgs(7),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		esc, err := EscrowController{}.Create(args[0], args[1], args[2], amount, args[4], args[5], args[6])
		if err != nil {
			return err
		}
		return printJSON(cmd, esc)
	},
}

var escrowReleaseCmd = &cobra.Command{
	Use:   "release <escrow-id> <result-hash> <provider-signature>",
	Short: "Verify and release an escrow to its provider",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		esc, err := EscrowController{}.Release(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(cmd, esc)
	},
}

var escrowRefundCmd = &cobra.Command{
	Use:   "refund <escrow-id> [reason]",
	Short: "Refund an escrow to its payer",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason := ""
		if len(args) > 1 {
			reason = args[1]
		}
		esc, err := EscrowController{}.Refund(args[0], reason)
		if err != nil {
			return err
		}
		return printJSON(cmd, esc)
	},
}

var escrowInfoCmd = &cobra.Command{
	Use:   "info <escrow-id>",
	Short: "Show escrow details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		esc, err := EscrowController{}.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, esc)
	},
}

var escrowListCmd = &cobra.Command{
	Use:   "list <wallet-id>",
	Short: "List escrows involving a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, EscrowController{}.List(args[0]))
	},
}

var escrowLocksCmd = &cobra.Command{
	Use:   "locks <escrow-id>",
	Short: "Show an escrow's locked-funds ledger row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lock, err := EscrowController{}.LockInfo(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, lock)
	},
}

func init() {
	escrowCmd.AddCommand(escrowCreateCmd, escrowReleaseCmd, escrowRefundCmd, escrowInfoCmd, escrowListCmd, escrowLocksCmd)
}

// EscrowRoute is exported for registration in the root CLI.
var EscrowRoute = escrowCmd

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
