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
	flags.SetKeygenFlags(Keygen)
}

var Keygen = &cobra.Command{
	Use:   "keygen",
	Short: "Instructs the participants to generate a shared key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli_utils.SetViperConfig(cmd); err != nil {
			return err
		}
		if err := flags.BindKeygenFlags(cmd); err != nil {
			return err
		}
		c, logger, err := newInitiator("multisig-keygen")
		if err != nil {
			return err
		}
		ids, err := initiator.ValidatedPeers(flags.Participants, c.Peers)
		if err != nil {
			logger.Error("😥 Failed to load participants", zap.Error(err))
			return err
		}
		if err := c.StartKeygen(flags.CeremonyID, ids); err != nil {
			logger.Error("😥 Keygen instruction was not accepted", zap.Error(err))
			return err
		}
		return awaitOutcomes(c, logger, ceremony.KeygenKind, flags.CeremonyID, ids)
	},
}
