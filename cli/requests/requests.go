package requests

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aquasecurity/table"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/cli/flags"
	cli_utils "github.com/ssvlabs/ssv-multisig/cli/utils"
	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/initiator"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

const outcomePollInterval = 500 * time.Millisecond

func newInitiator(name string) (*initiator.Initiator, *zap.Logger, error) {
	logger, err := cli_utils.SetGlobalLogger(name, flags.LogLevel, flags.LogFormat, flags.LogLevelFormat, flags.LogFilePath)
	if err != nil {
		return nil, nil, err
	}
	peers, err := cli_utils.ReadPeersInfoFile(flags.PeersInfoPath)
	if err != nil {
		return nil, nil, err
	}
	return initiator.New(peers, logger), logger, nil
}

// awaitOutcomes waits for every node to report, stores the reports and renders them
func awaitOutcomes(c *initiator.Initiator, logger *zap.Logger, kind ceremony.Kind, id uint64, ids []uint64) error {
	if flags.WaitTimeout == 0 {
		logger.Info("✅ instruction accepted by every node, not waiting for the outcome")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), flags.WaitTimeout)
	defer cancel()
	outcomes, err := c.WaitOutcomes(ctx, kind, id, ids, outcomePollInterval)
	if len(outcomes) > 0 {
		path, werr := cli_utils.WriteOutcomes(flags.OutputPath, kind.String(), id, outcomes)
		if werr != nil {
			logger.Error("😥 Failed to store outcomes", zap.Error(werr))
		} else {
			logger.Info("💾 outcomes stored", zap.String("path", path))
		}
		renderOutcomes(outcomes)
	}
	if err != nil {
		return err
	}
	for nodeID, o := range outcomes {
		if !o.Success {
			return fmt.Errorf("%s ceremony %d failed at node %d, blamed %v", kind, id, nodeID, o.Blamed)
		}
	}
	logger.Info("🎉 ceremony succeeded at every node", zap.String("kind", kind.String()), zap.Uint64("ceremony_id", id))
	return nil
}

func renderOutcomes(outcomes map[uint64]*wire.OutcomeJSON) {
	ids := make([]uint64, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	tbl := table.New(os.Stdout)
	tbl.SetHeaders("Node", "Success", "Key ID", "Result", "Blamed")
	for _, id := range ids {
		o := outcomes[id]
		tbl.AddRow(
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%t", o.Success),
			o.KeyID,
			o.Result.String(),
			joinIDs(o.Blamed),
		)
	}
	tbl.Render()
}

func joinIDs(ids []uint64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ",")
}
