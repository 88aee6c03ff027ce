package main

// wallet.go — cmd/duxnetd's wallet subcommand tree: observed-balance
// ledger operations (C5) plus a passthrough to whichever ChainAdapter (C1)
// the operator configures for a currency.

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type WalletController struct{}

func (WalletController) Balance(walletID string) core.Amount { return app.Ledger.Balance(walletID) }

func (WalletController) Credit(walletID string, amount int64) {
	app.Ledger.Credit(walletID, core.Amount(amount))
}

func (WalletController) Transfer(from, to string, amount int64, currency string) error {
	return app.Ledger.TransferBetweenWallets(from, to, core.Amount(amount), core.Currency(currency))
}

func (WalletController) TotalLocked() core.Amount { return app.Ledger.TotalLocked() }

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Inspect and move observed wallet balances",
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance <wallet-id>",
	Short: "Show a wallet's observed balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), WalletController{}.Balance(args[0]))
		return nil
	},
}

var walletCreditCmd = &cobra.Command{
	Use:   "credit <wallet-id> <amount>",
	Short: "Credit a wallet's observed balance (e.g. a confirmed deposit)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return err
		}
		WalletController{}.Credit(args[0], amount)
		return nil
	},
}

var walletTransferCmd = &cobra.Command{
	Use:   "transfer <from> <to> <amount> <currency>",
	Short: "Transfer between two wallets' observed balances",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return err
		}
		return WalletController{}.Transfer(args[0], args[1], amount, args[3])
	},
}

var walletLockedCmd = &cobra.Command{
	Use:   "locked-total",
	Short: "Show the total funds currently locked across all escrows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), WalletController{}.TotalLocked())
		return nil
	},
}

func init() {
	walletCmd.AddCommand(walletBalanceCmd, walletCreditCmd, walletTransferCmd, walletLockedCmd)
}

// WalletRoute is exported for registration in the root CLI.
var WalletRoute = walletCmd
