package requests

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/cli/flags"
	cli_utils "github.com/ssvlabs/ssv-multisig/cli/utils"
	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/initiator"
)

func init() {
	flags.SetSignFlags(Sign)
}

var Sign = &cobra.Command{
	Use:   "sign",
	Short: "Instructs the signers to sign a message with a generated key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli_utils.SetViperConfig(cmd); err != nil {
			return err
		}
		if err := flags.BindSignFlags(cmd); err != nil {
			return err
		}
		c, logger, err := newInitiator("multisig-sign")
		if err != nil {
			return err
		}
		ids, err := initiator.ValidatedPeers(flags.Signers, c.Peers)
		if err != nil {
			logger.Error("😥 Failed to load signers", zap.Error(err))
			return err
		}
		if err := c.StartSigning(flags.CeremonyID, flags.KeyID, flags.Message, ids); err != nil {
			logger.Error("😥 Sign instruction was not accepted", zap.Error(err))
			return err
		}
		return awaitOutcomes(c, logger, ceremony.SigningKind, flags.CeremonyID, ids)
	},
}
