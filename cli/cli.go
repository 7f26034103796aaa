package cli

import (
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/cli/node"
	"github.com/ssvlabs/ssv-multisig/cli/requests"
)

func init() {
	RootCmd.AddCommand(node.StartNode)
	RootCmd.AddCommand(node.GenerateNodeKeys)
	RootCmd.AddCommand(requests.Keygen)
	RootCmd.AddCommand(requests.Sign)
	RootCmd.AddCommand(requests.Status)
}

// RootCmd represents the root command of the multisig CLI
var RootCmd = &cobra.Command{
	Use:   "ssv-multisig",
	Short: "CLI for running threshold keygen and signing ceremonies",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
	},
}

// Execute executes the root command
func Execute(appName, version string) {
	RootCmd.Short = appName
	RootCmd.Version = version

	if err := RootCmd.Execute(); err != nil {
		log.Fatal("failed to execute root command", zap.Error(err))
	}
}
