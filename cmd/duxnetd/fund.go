package main

// fund.go — cmd/duxnetd's community fund subcommand tree (C8).

import (
	"strconv"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type FundController struct{}

func (FundController) Donate(walletID string, amount int64) error {
	return app.Fund.Donate(walletID, core.Amount(amount))
}

func (FundController) Withdraw(walletID string, amount int64) error {
	return app.Fund.Withdraw(walletID, core.Amount(amount))
}

func (FundController) TriggerAirdrop() error { return app.Fund.TriggerAirdrop() }

func (FundController) Statistics() core.FundStatistics { return app.Fund.Statistics() }

var fundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Donate to, withdraw from, and trigger airdrops from the community fund",
}

var fundDonateCmd = &cobra.Command{
	Use:   "donate <wallet-id> <amount>",
	Short: "Credit a donation attributed to a wallet into the community fund (the wallet is not debited)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return err
		}
		return FundController{}.Donate(args[0], amount)
	},
}

var fundWithdrawCmd = &cobra.Command{
	Use:   "withdraw <wallet-id> <amount>",
	Short: "Withdraw from the community fund into a wallet (governance-triggered)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return err
		}
		return FundController{}.Withdraw(args[0], amount)
	},
}

var fundAirdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "Manually trigger an airdrop to top-reputation active nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return FundController{}.TriggerAirdrop()
	},
}

var fundStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the fund's current balance and airdrop history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, FundController{}.Statistics())
	},
}

func init() {
	fundCmd.AddCommand(fundDonateCmd, fundWithdrawCmd, fundAirdropCmd, fundStatsCmd)
}

// FundRoute is exported for registration in the root CLI.
var FundRoute = fundCmd
