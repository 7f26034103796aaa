package utils

import (
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bloxapp/ssv/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/crypto"
	"github.com/ssvlabs/ssv-multisig/pkgs/utils"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

// SetViperConfig reads a yaml config file if provided
func SetViperConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlag("configYAML", cmd.PersistentFlags().Lookup("configYAML")); err != nil {
		return err
	}
	configYAML := viper.GetString("configYAML")
	if configYAML != "" {
		if _, err := os.Stat(configYAML); os.IsNotExist(err) {
			return err
		}
		viper.SetConfigType("yaml")
		viper.SetConfigFile(configYAML)
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
		fmt.Printf("🗄️ config yaml file found at %s, using it \n", configYAML)
		return nil
	}
	fmt.Println("⚠️ config file was not provided, using flag parameters")
	return nil
}

// SetGlobalLogger creates a logger
func SetGlobalLogger(name, level, format, levelFormat, filePath string) (*zap.Logger, error) {
	// If the log file doesn't exist, create it
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	if err := logging.SetGlobalLogger(level, format, levelFormat, &logging.LogFileOptions{FileName: filePath}); err != nil {
		return nil, fmt.Errorf("logging.SetGlobalLogger: %w", err)
	}
	logger := zap.L().Named(name)
	return logger, nil
}

// OpenPrivateKey reads an RSA key from file.
// If passwordFilePath is provided, treats privKeyPath as encrypted
// If passwordFilePath is not provided, treats privKeyPath as plaintext
func OpenPrivateKey(passwordFilePath, privKeyPath string) (*rsa.PrivateKey, error) {
	var privateKey *rsa.PrivateKey
	var err error
	if passwordFilePath != "" {
		fmt.Println("🔑 path to password file is provided - decrypting")
		// check if a password string a valid path, then read password from the file
		if _, err := os.Stat(passwordFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("😥 Password file doesn`t exist: %s", err)
		}
		encryptedRSAJSON, err := os.ReadFile(privKeyPath)
		if err != nil {
			return nil, fmt.Errorf("😥 Cant read operator`s key file: %s", err)
		}
		keyStorePassword, err := os.ReadFile(passwordFilePath)
		if err != nil {
			return nil, fmt.Errorf("😥 Error reading password file: %s", err)
		}
		privateKey, err = crypto.ConvertEncryptedPemToPrivateKey(encryptedRSAJSON, string(keyStorePassword))
		if err != nil {
			return nil, fmt.Errorf("😥 Error converting pem to priv key: %s", err)
		}
	} else {
		fmt.Println("🔑 password for key NOT provided - trying to read plaintext key")
		privateKey, err = crypto.PrivateKey(privKeyPath)
		if err != nil {
			return nil, fmt.Errorf("😥 Error reading plaintext private key from file: %s", err)
		}
	}
	return privateKey, nil
}

// GenerateRSAKeyPair generates a RSA key pair encrypted with keystorev4. Password either supplied as path or generated at random.
func GenerateRSAKeyPair(passwordFilePath string) (*rsa.PrivateKey, []byte, string, error) {
	var password string
	priv, _, err := crypto.GenerateKeys()
	if err != nil {
		return nil, nil, "", fmt.Errorf("😥 Failed to generate operator keys: %s", err)
	}
	if passwordFilePath != "" {
		fmt.Println("🔑 path to password file is provided")
		// check if a password string a valid path, then read password from the file
		if _, err := os.Stat(passwordFilePath); os.IsNotExist(err) {
			return nil, nil, "", fmt.Errorf("😥 Password file doesn`t exist: %s", err)
		}
		keyStorePassword, err := os.ReadFile(passwordFilePath)
		if err != nil {
			return nil, nil, "", fmt.Errorf("😥 Error reading password file: %s", err)
		}
		password = string(keyStorePassword)
	} else {
		password, err = crypto.GenerateSecurePassword()
		if err != nil {
			return nil, nil, "", fmt.Errorf("😥 Failed to generate operator keys: %s", err)
		}
	}
	encryptedRSAJSON, err := crypto.EncryptPrivateKey(priv, password)
	if err != nil {
		return nil, nil, "", fmt.Errorf("😥 Failed to encrypt private key: %s", err)
	}
	return priv, encryptedRSAJSON, password, nil
}

// ReadPeersInfoFile reads the peers file, path may point to a folder holding peers_info.json
func ReadPeersInfoFile(peersInfoPath string) (wire.Peers, error) {
	fmt.Printf("📖 looking peers info 'peers_info.json' file: %s \n", peersInfoPath)
	stat, err := os.Stat(peersInfoPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("😥 Failed to read peers info file: %s", err)
	}
	if stat.IsDir() {
		peersInfoPath = filepath.Join(peersInfoPath, "peers_info.json")
	}
	peers, err := wire.LoadPeers(peersInfoPath)
	if err != nil {
		return nil, fmt.Errorf("😥 Failed to load peers: %s", err)
	}
	return peers, nil
}

// WriteOutcomes stores the outcomes reported by every node as a single json file in dir
func WriteOutcomes(dir string, kind string, id uint64, outcomes map[uint64]*wire.OutcomeJSON) (string, error) {
	ids := make([]uint64, 0, len(outcomes))
	for opID := range outcomes {
		ids = append(ids, opID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ordered := make([]*wire.OutcomeJSON, 0, len(ids))
	for _, opID := range ids {
		ordered = append(ordered, outcomes[opID])
	}
	finalPath := filepath.Join(dir, fmt.Sprintf("%s-%d-%s.json", kind, id, time.Now().UTC().Format("20060102T150405")))
	if err := utils.WriteJSON(finalPath, ordered); err != nil {
		return "", fmt.Errorf("failed writing outcomes file: %w", err)
	}
	return finalPath, nil
}

// CreateDirIfNotExist creates the directory with its parents
func CreateDirIfNotExist(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(path, os.ModePerm); err != nil {
			return fmt.Errorf("😥 Failed to create directory %s: %w", path, err)
		}
	}
	return nil
}
