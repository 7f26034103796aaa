package flags

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/frost"
	"github.com/ssvlabs/ssv-multisig/pkgs/operator"
)

// Flag names.
const (
	privKey               = "privKey"
	privKeyPassword       = "privKeyPassword"
	nodePort              = "port"
	operatorID            = "operatorID"
	peersInfoPath         = "peersInfoPath"
	keystorePath          = "keystorePath"
	curve                 = "curve"
	stageTimeout          = "stageTimeout"
	unauthorizedTimeout   = "unauthorizedTimeout"
	pendingRequestTimeout = "pendingRequestTimeout"
	tickInterval          = "tickInterval"
	outcomeTTL            = "outcomeTTL"
)

// node flags
var (
	PrivKey               string
	PrivKeyPassword       string
	Port                  uint64
	OperatorID            uint64
	PeersInfoPath         string
	KeystorePath          string
	Curve                 string
	StageTimeout          time.Duration
	UnauthorizedTimeout   time.Duration
	PendingRequestTimeout time.Duration
	TickInterval          time.Duration
	OutcomeTTL            time.Duration
)

func SetNodeFlags(cmd *cobra.Command) {
	SetBaseFlags(cmd)
	PrivateKeyFlag(cmd)
	PrivateKeyPassFlag(cmd)
	NodePortFlag(cmd)
	OperatorIDFlag(cmd)
	PeersInfoPathFlag(cmd)
	KeystorePathFlag(cmd)
	CurveFlag(cmd)
	AddPersistentDurationFlag(cmd, stageTimeout, ceremony.DefaultStageTimeout, "Time a stage waits for peer data before proceeding with what arrived", false)
	AddPersistentDurationFlag(cmd, unauthorizedTimeout, ceremony.DefaultUnauthorizedTimeout, "Time buffered data for a ceremony not yet requested locally is kept", false)
	AddPersistentDurationFlag(cmd, pendingRequestTimeout, ceremony.DefaultPendingRequestTimeout, "Time a signing request waits for its key to be generated", false)
	AddPersistentDurationFlag(cmd, tickInterval, operator.DefaultTickInterval, "Interval of the timeout checks", false)
	AddPersistentDurationFlag(cmd, outcomeTTL, operator.DefaultOutcomeTTL, "Time a ceremony outcome stays queryable", false)
}

// BindNodeFlags binds flags to yaml config parameters for a ceremony node
func BindNodeFlags(cmd *cobra.Command) error {
	if err := BindBaseFlags(cmd); err != nil {
		return err
	}
	for _, name := range []string{privKey, privKeyPassword, nodePort, operatorID, peersInfoPath, keystorePath, curve,
		stageTimeout, unauthorizedTimeout, pendingRequestTimeout, tickInterval, outcomeTTL} {
		if err := viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
			return err
		}
	}
	PrivKey = filepath.Clean(viper.GetString(privKey))
	if PrivKey == "." || strings.Contains(PrivKey, "..") {
		return fmt.Errorf("😥 Failed to get private key path flag value")
	}
	PrivKeyPassword = viper.GetString(privKeyPassword)
	if PrivKeyPassword != "" {
		PrivKeyPassword = filepath.Clean(PrivKeyPassword)
	}
	if strings.Contains(PrivKeyPassword, "..") {
		return fmt.Errorf("😥 Failed to get password for private key flag value")
	}
	Port = viper.GetUint64(nodePort)
	if Port == 0 || Port > 65535 {
		return fmt.Errorf("😥 Wrong port provided")
	}
	OperatorID = viper.GetUint64(operatorID)
	if OperatorID == 0 {
		return fmt.Errorf("😥 Wrong operator ID provided")
	}
	PeersInfoPath = filepath.Clean(viper.GetString(peersInfoPath))
	if PeersInfoPath == "." || strings.Contains(PeersInfoPath, "..") {
		return fmt.Errorf("😥 wrong peersInfoPath flag")
	}
	KeystorePath = viper.GetString(keystorePath)
	if KeystorePath != "" {
		KeystorePath = filepath.Clean(KeystorePath)
	}
	if strings.Contains(KeystorePath, "..") {
		return fmt.Errorf("😥 keystorePath cant contain traversal")
	}
	Curve = viper.GetString(curve)
	if _, err := frost.GroupByName(Curve); err != nil {
		return fmt.Errorf("😥 %w", err)
	}
	StageTimeout = viper.GetDuration(stageTimeout)
	UnauthorizedTimeout = viper.GetDuration(unauthorizedTimeout)
	PendingRequestTimeout = viper.GetDuration(pendingRequestTimeout)
	TickInterval = viper.GetDuration(tickInterval)
	OutcomeTTL = viper.GetDuration(outcomeTTL)
	for name, d := range map[string]time.Duration{
		stageTimeout:          StageTimeout,
		unauthorizedTimeout:   UnauthorizedTimeout,
		pendingRequestTimeout: PendingRequestTimeout,
		tickInterval:          TickInterval,
		outcomeTTL:            OutcomeTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("😥 %s should be positive, got %s", name, d)
		}
	}
	return nil
}

// PrivateKeyFlag adds private key flag to the command
func PrivateKeyFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, privKey, "", "Path to the node's RSA private key file", false)
}

// PrivateKeyPassFlag adds private key password file flag to the command
func PrivateKeyPassFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, privKeyPassword, "", "Path to a file with the password to decrypt the node's private key. If empty the key is read as plaintext", false)
}

// NodePortFlag adds node listening port flag to the command
func NodePortFlag(c *cobra.Command) {
	AddPersistentIntFlag(c, nodePort, 3030, "Port the node listens on", false)
}

// OperatorIDFlag add operator ID flag to the command
func OperatorIDFlag(c *cobra.Command) {
	AddPersistentIntFlag(c, operatorID, 0, "ID of this node in the peers file", false)
}

// PeersInfoPathFlag adds path to the peers file flag to the command
func PeersInfoPathFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, peersInfoPath, "", "Path to a JSON file with the peers' IDs, addresses and RSA public keys e.g. [{\"id\": 1, \"ip\": \"http://10.0.0.1:3030\", \"public_key\": \"XXX\"}]", false)
}

// KeystorePathFlag sets the directory to persist generated key shares into
func KeystorePathFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, keystorePath, "", "Directory to persist generated key shares. If empty shares are kept in memory", false)
}

// CurveFlag selects the group used by keygen and signing
func CurveFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, curve, frost.CurveEd25519, fmt.Sprintf("Curve used by the threshold scheme: %s or %s", frost.CurveEd25519, frost.CurveBLS12381), false)
}
