package node

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/cli/flags"
	cli_utils "github.com/ssvlabs/ssv-multisig/cli/utils"
	"github.com/ssvlabs/ssv-multisig/pkgs/frost"
	"github.com/ssvlabs/ssv-multisig/pkgs/keystore"
	"github.com/ssvlabs/ssv-multisig/pkgs/metrics"
	"github.com/ssvlabs/ssv-multisig/pkgs/operator"
)

func init() {
	flags.SetNodeFlags(StartNode)
}

var StartNode = &cobra.Command{
	Use:   "start-node",
	Short: "Starts a ceremony node",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(`
		███╗   ███╗██╗   ██╗██╗  ████████╗██╗███████╗██╗ ██████╗
		████╗ ████║██║   ██║██║  ╚══██╔══╝██║██╔════╝██║██╔════╝
		██╔████╔██║██║   ██║██║     ██║   ██║███████╗██║██║  ███╗
		██║╚██╔╝██║██║   ██║██║     ██║   ██║╚════██║██║██║   ██║
		██║ ╚═╝ ██║╚██████╔╝███████╗██║   ██║███████║██║╚██████╔╝
		╚═╝     ╚═╝ ╚═════╝ ╚══════╝╚═╝   ╚═╝╚══════╝╚═╝ ╚═════╝`)
		if err := cli_utils.SetViperConfig(cmd); err != nil {
			return err
		}
		if err := flags.BindNodeFlags(cmd); err != nil {
			return err
		}
		logger, err := cli_utils.SetGlobalLogger("multisig-node", flags.LogLevel, flags.LogFormat, flags.LogLevelFormat, flags.LogFilePath)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		logger.Info("🔑 opening node RSA private key file")
		privateKey, err := cli_utils.OpenPrivateKey(flags.PrivKeyPassword, flags.PrivKey)
		if err != nil {
			logger.Fatal("😥 Failed to load private key: ", zap.Error(err))
		}
		peers, err := cli_utils.ReadPeersInfoFile(flags.PeersInfoPath)
		if err != nil {
			logger.Fatal("😥 Failed to load peers: ", zap.Error(err))
		}
		self := peers.ByID(flags.OperatorID)
		if self == nil {
			logger.Fatal("😥 operator ID not found in peers file", zap.Uint64("id", flags.OperatorID))
		}
		if !self.PubKey.Equal(&privateKey.PublicKey) {
			logger.Fatal("😥 private key does not match the public key in the peers file", zap.Uint64("id", flags.OperatorID))
		}
		var keys keystore.Store
		if flags.KeystorePath != "" {
			fs, err := keystore.OpenFileStore(flags.KeystorePath)
			if err != nil {
				logger.Fatal("😥 Failed to open keystore: ", zap.Error(err))
			}
			logger.Info("🗄️ keystore opened", zap.String("path", flags.KeystorePath))
			keys = fs
		} else {
			logger.Warn("⚠️ keystore path was not provided, generated keys are kept in memory only")
			keys = keystore.NewMemoryStore()
		}
		provider, err := frost.NewProvider(flags.Curve)
		if err != nil {
			logger.Fatal("😥 Failed to create threshold scheme: ", zap.Error(err))
		}
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := metrics.NewRecorder(reg)
		if err != nil {
			logger.Fatal("😥 Failed to register metrics: ", zap.Error(err))
		}
		srv, err := operator.New(&operator.SwitchOpts{
			Logger:                logger,
			ID:                    flags.OperatorID,
			PrivateKey:            privateKey,
			Version:               []byte(cmd.Root().Version),
			Peers:                 peers,
			Provider:              provider,
			Keys:                  keys,
			Metrics:               recorder,
			StageTimeout:          flags.StageTimeout,
			UnauthorizedTimeout:   flags.UnauthorizedTimeout,
			PendingRequestTimeout: flags.PendingRequestTimeout,
			TickInterval:          flags.TickInterval,
			OutcomeTTL:            flags.OutcomeTTL,
		}, reg)
		if err != nil {
			logger.Fatal("😥 Failed to create node: ", zap.Error(err))
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger.Info("🚀 Starting ceremony node", zap.Uint64("id", flags.OperatorID), zap.Uint64("port", flags.Port), zap.String("curve", flags.Curve))
		if err := srv.Start(ctx, uint16(flags.Port)); err != nil {
			logger.Error("😥 Node stopped with error", zap.Error(err))
			return err
		}
		logger.Info("👋 Node stopped")
		return nil
	},
}
