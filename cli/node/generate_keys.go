package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/cli/flags"
	cli_utils "github.com/ssvlabs/ssv-multisig/cli/utils"
	"github.com/ssvlabs/ssv-multisig/pkgs/crypto"
)

const passwordFlag = "password"

func init() {
	flags.SetBaseFlags(GenerateNodeKeys)
	flags.AddPersistentStringFlag(GenerateNodeKeys, passwordFlag, "", "Path to a file with the password used to encrypt the private key, generated at random if empty", false)
}

// GenerateNodeKeys writes a keystorev4 encrypted RSA key, its password and public key into outputPath
var GenerateNodeKeys = &cobra.Command{
	Use:   "generate-node-keys",
	Short: "Generates an encrypted RSA key pair for a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli_utils.SetViperConfig(cmd); err != nil {
			return err
		}
		if err := flags.BindBaseFlags(cmd); err != nil {
			return err
		}
		if err := viper.BindPFlag(passwordFlag, cmd.PersistentFlags().Lookup(passwordFlag)); err != nil {
			return err
		}
		logger, err := cli_utils.SetGlobalLogger("generate-node-keys", flags.LogLevel, flags.LogFormat, flags.LogLevelFormat, flags.LogFilePath)
		if err != nil {
			return err
		}
		passwordPath := viper.GetString(passwordFlag)
		sk, encrypted, password, err := cli_utils.GenerateRSAKeyPair(passwordPath)
		if err != nil {
			logger.Fatal("😥 Failed to generate keys", zap.Error(err))
		}
		pub, err := crypto.EncodeRSAPublicKey(&sk.PublicKey)
		if err != nil {
			logger.Fatal("😥 Failed to encode public key", zap.Error(err))
		}
		keyPath := filepath.Join(flags.OutputPath, "encrypted_private_key.json")
		if err := os.WriteFile(keyPath, encrypted, 0o600); err != nil {
			logger.Fatal("😥 Failed to write encrypted private key to file", zap.Error(err))
		}
		if passwordPath == "" {
			passwordPath = filepath.Join(flags.OutputPath, "password")
			if err := os.WriteFile(passwordPath, []byte(password), 0o600); err != nil {
				logger.Fatal("😥 Failed to write password to file", zap.Error(err))
			}
		}
		logger.Info("💾 Private key encrypted and stored", zap.String("path", keyPath), zap.String("password", passwordPath))
		fmt.Printf("🔑 public key (add it to the peers file): %s\n", string(pub))
		return nil
	},
}
