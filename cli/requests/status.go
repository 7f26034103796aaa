package requests

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/aquasecurity/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/cli/flags"
	cli_utils "github.com/ssvlabs/ssv-multisig/cli/utils"
	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
)

func init() {
	flags.SetStatusFlags(Status)
}

// Status pings the nodes and lists the ceremonies each of them holds
var Status = &cobra.Command{
	Use:   "status",
	Short: "Shows node health and live ceremonies",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli_utils.SetViperConfig(cmd); err != nil {
			return err
		}
		if err := flags.BindStatusFlags(cmd); err != nil {
			return err
		}
		c, logger, err := newInitiator("multisig-status")
		if err != nil {
			return err
		}
		ids := flags.OperatorIDs
		if len(ids) == 0 {
			for _, p := range c.Peers {
				ids = append(ids, p.ID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		pongs, errs := c.HealthCheck(ids)
		for id, err := range errs {
			logger.Error("😥 node is not healthy", zap.Uint64("id", id), zap.Error(err))
		}

		tbl := table.New(os.Stdout)
		tbl.SetHeaders("Node", "Version", "Ceremony", "Kind", "Authorization", "Stage", "Received", "Delayed", "Deadline")
		for _, id := range ids {
			pong, ok := pongs[id]
			if !ok {
				tbl.AddRow(fmt.Sprintf("%d", id), "offline", "", "", "", "", "", "", "")
				continue
			}
			infos, err := c.Ceremonies(id)
			if err != nil {
				logger.Error("😥 failed to list ceremonies", zap.Uint64("id", id), zap.Error(err))
				continue
			}
			if len(infos) == 0 {
				tbl.AddRow(fmt.Sprintf("%d", id), pong.Version, "-", "", "", "", "", "", "")
				continue
			}
			for _, info := range infos {
				tbl.AddRow(
					fmt.Sprintf("%d", id),
					pong.Version,
					fmt.Sprintf("%d", info.CeremonyID),
					info.Kind,
					info.Authorization,
					stageLabel(info),
					fmt.Sprintf("%d", info.Received),
					fmt.Sprintf("%d", info.Delayed),
					time.Unix(info.Deadline, 0).UTC().Format(time.RFC3339),
				)
			}
		}
		tbl.Render()
		if len(errs) > 0 {
			return fmt.Errorf("%d of %d nodes are not healthy", len(errs), len(ids))
		}
		return nil
	},
}

func stageLabel(info ceremony.Info) string {
	if info.Stage == ceremony.StageFinishedOrNotStarted {
		return "-"
	}
	return fmt.Sprintf("%d %s", info.Stage, info.StageName)
}
