package main

// governance.go — cmd/duxnetd's governance subcommand tree (C9).

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type GovernanceController struct{}

func (GovernanceController) Propose(title, description string, category core.ProposalCategory, proposer string, quorum float64, votingDays int, execData map[string]any) (*core.Proposal, error) {
	return app.Governance.Propose(title, description, category, proposer, quorum, votingDays, execData)
}

func (GovernanceController) Activate(id string) error { return app.Governance.Activate(id) }

func (GovernanceController) Vote(id, voter string, vote core.VoteType, power float64, reason string) error {
	return app.Governance.Vote(id, voter, vote, power, reason)
}

func (GovernanceController) Finalize(id string) (*core.Proposal, error) { return app.Governance.Finalize(id) }

func (GovernanceController) Execute(id, executor string) (*core.Proposal, error) {
	return app.Governance.Execute(id, executor)
}

func (GovernanceController) Get(id string) (*core.Proposal, error) { return app.Governance.Get(id) }

var governanceCmd = &cobra.Command{
	Use:   "governance",
	Short: "Propose, vote on, and execute community governance items",
}

var governanceProposeCmd = &cobra.Command{
	Use:   "propose <title> <description> <category> <proposer-wallet> <quorum> <voting-days> [execution-data-json]",
	Short: "Create a draft proposal",
	Args:  cobra.RangeArgs(6, 7),
	RunE: func(cmd *cobra.Command, args []string) error {
		quorum, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return err
		}
		votingDays, err := strconv.Atoi(args[5])
		if err != nil {
			return err
		}
		var execData map[string]any
		if len(args) == 7 {
			if err := json.Unmarshal([]byte(args[6]), &execData); err != nil {
				return err
			}
		}
		p, err := GovernanceController{}.Propose(args[0], args[1], core.ProposalCategory(args[2]), args[3], quorum, votingDays, execData)
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}

var governanceActivateCmd = &cobra.Command{
	Use:   "activate <proposal-id>",
	Short: "Open a draft proposal for voting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return GovernanceController{}.Activate(args[0])
	},
}

var governanceVoteCmd = &cobra.Command{
	Use:   "vote <proposal-id> <voter-wallet> <yes|no|abstain> <voting-power> [reason]",
	Short: "Cast a weighted ballot on an active proposal",
	Args:  cobra.RangeArgs(4, 5),
	RunE: func(cmd *cobra.Command, args []string) error {
		power, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return err
		}
		reason := ""
		if len(args) > 4 {
			reason = args[4]
		}
		return GovernanceController{}.Vote(args[0], args[1], core.VoteType(args[2]), power, reason)
	},
}

var governanceFinalizeCmd = &cobra.Command{
	Use:   "finalize <proposal-id>",
	Short: "Tally votes and settle a proposal whose voting period has ended",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := GovernanceController{}.Finalize(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}

var governanceExecuteCmd = &cobra.Command{
	Use:   "execute <proposal-id> <executor-wallet>",
	Short: "Execute a passed proposal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := GovernanceController{}.Execute(args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}

var governanceInfoCmd = &cobra.Command{
	Use:   "info <proposal-id>",
	Short: "Show proposal details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := GovernanceController{}.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}

func init() {
	governanceCmd.AddCommand(governanceProposeCmd, governanceActivateCmd, governanceVoteCmd, governanceFinalizeCmd, governanceExecuteCmd, governanceInfoCmd)
}

// GovernanceRoute is exported for registration in the root CLI.
var GovernanceRoute = governanceCmd
