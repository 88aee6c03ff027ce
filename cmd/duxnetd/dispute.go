package main

// dispute.go — cmd/duxnetd's dispute subcommand tree (C7).

import (
	"strconv"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type DisputeController struct{}

func (DisputeController) Create(escrowID, initiator, reason string) (*core.Dispute, error) {
	return app.Disputes.Create(escrowID, initiator, reason, nil)
}

func (DisputeController) AddEvidence(disputeID, walletID, note string) error {
	return app.Disputes.AddEvidence(disputeID, walletID, map[string]any{"note": note})
}

func (DisputeController) Resolve(disputeID, resolution, winner string, refundAmount int64) (*core.Dispute, error) {
	return app.Disputes.Resolve(disputeID, resolution, winner, core.Amount(refundAmount))
}

func (DisputeController) Reject(disputeID, reason string) (*core.Dispute, error) {
	return app.Disputes.Reject(disputeID, reason)
}

func (DisputeController) Get(disputeID string) (*core.Dispute, error) { return app.Disputes.Get(disputeID) }

func (DisputeController) ListByWallet(walletID string) []*core.Dispute {
	return app.Disputes.ListByWallet(walletID, "")
}

var disputeCmd = &cobra.Command{
	Use:   "dispute",
	Short: "Open, evidence, and resolve escrow disputes",
}

var disputeCreateCmd = &cobra.Command{
	Use:   "create <escrow-id> <initiator-wallet> <reason>",
	Short: "Open a dispute on an active or released escrow",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := DisputeController{}.Create(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	},
}

var disputeEvidenceCmd = &cobra.Command{
	Use:   "add-evidence <dispute-id> <wallet-id> <note>",
	Short: "Attach evidence to an open dispute",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return DisputeController{}.AddEvidence(args[0], args[1], args[2])
	},
}

var disputeResolveCmd = &cobra.Command{
	Use:   "resolve <dispute-id> <resolution> <winner-wallet> <refund-amount>",
	Short: "Resolve a dispute in favor of a wallet, with an optional partial-split refund amount",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		refund, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return err
		}
		d, err := DisputeController{}.Resolve(args[0], args[1], args[2], refund)
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	},
}

var disputeRejectCmd = &cobra.Command{
	Use:   "reject <dispute-id> <reason>",
	Short: "Reject a dispute without moving funds",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := DisputeController{}.Reject(args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	},
}

var disputeInfoCmd = &cobra.Command{
	Use:   "info <dispute-id>",
	Short: "Show dispute details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := DisputeController{}.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	},
}

var disputeListCmd = &cobra.Command{
	Use:   "list <wallet-id>",
	Short: "List disputes involving a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, DisputeController{}.ListByWallet(args[0]))
	},
}

func init() {
	disputeCmd.AddCommand(disputeCreateCmd, disputeEvidenceCmd, disputeResolveCmd, disputeRejectCmd, disputeInfoCmd, disputeListCmd)
}

// DisputeRoute is exported for registration in the root CLI.
var DisputeRoute = disputeCmd
