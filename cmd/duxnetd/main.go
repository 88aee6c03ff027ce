// Command duxnetd is DuxNet's node CLI and ops server entrypoint, following
// the teacher's cmd/synnergy root-command shape plus cmd/cli's
// one-subcommand-tree-per-component layout.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "duxnetd",
		Short: "DuxNet decentralized compute/API marketplace node",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
	}

	rootCmd.AddCommand(ServeRoute)
	rootCmd.AddCommand(EscrowRoute)
	rootCmd.AddCommand(WalletRoute)
	rootCmd.AddCommand(RegistryRoute)
	rootCmd.AddCommand(TaskRoute)
	rootCmd.AddCommand(GovernanceRoute)
	rootCmd.AddCommand(FundRoute)
	rootCmd.AddCommand(DisputeRoute)
	rootCmd.AddCommand(AuthRoute)

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
