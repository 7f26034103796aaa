package flags

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag names.
const (
	ceremonyID   = "ceremonyID"
	participants = "participants"
	signers      = "signers"
	keyID        = "keyID"
	message      = "message"
	waitTimeout  = "waitTimeout"
	operatorIDs  = "operatorIDs"
)

// request flags
var (
	CeremonyID   uint64
	Participants []uint64
	Signers      []uint64
	KeyID        string
	Message      []byte
	WaitTimeout  time.Duration
	OperatorIDs  []uint64
)

func setRequestFlags(cmd *cobra.Command) {
	SetBaseFlags(cmd)
	PeersInfoPathFlag(cmd)
	AddPersistentDurationFlag(cmd, waitTimeout, 2*time.Minute, "Time to wait for every node to report the outcome, 0 to return right after the request was accepted", false)
}

func SetKeygenFlags(cmd *cobra.Command) {
	setRequestFlags(cmd)
	AddPersistentIntFlag(cmd, ceremonyID, 0, "Unique keygen ceremony ID", false)
	AddPersistentStringSliceFlag(cmd, participants, []string{"1", "2", "3", "4"}, "IDs of the nodes generating the key", false)
}

func SetSignFlags(cmd *cobra.Command) {
	setRequestFlags(cmd)
	AddPersistentIntFlag(cmd, ceremonyID, 0, "Unique signing ceremony ID", false)
	AddPersistentStringSliceFlag(cmd, signers, []string{"1", "2", "3"}, "IDs of the nodes producing the signature", false)
	AddPersistentStringFlag(cmd, keyID, "", "Hex ID of the key to sign with, as reported by keygen", false)
	AddPersistentStringFlag(cmd, message, "", "Hex encoded message to sign", false)
}

func SetStatusFlags(cmd *cobra.Command) {
	SetBaseFlags(cmd)
	PeersInfoPathFlag(cmd)
	AddPersistentStringSliceFlag(cmd, operatorIDs, []string{}, "IDs of the nodes to query, all peers if empty", false)
}

func bindRequestFlags(cmd *cobra.Command) error {
	if err := BindBaseFlags(cmd); err != nil {
		return err
	}
	if err := viper.BindPFlag(peersInfoPath, cmd.PersistentFlags().Lookup(peersInfoPath)); err != nil {
		return err
	}
	PeersInfoPath = filepath.Clean(viper.GetString(peersInfoPath))
	if PeersInfoPath == "." || strings.Contains(PeersInfoPath, "..") {
		return fmt.Errorf("😥 wrong peersInfoPath flag")
	}
	return nil
}

func bindCeremonyFlags(cmd *cobra.Command) error {
	if err := bindRequestFlags(cmd); err != nil {
		return err
	}
	if err := viper.BindPFlag(ceremonyID, cmd.PersistentFlags().Lookup(ceremonyID)); err != nil {
		return err
	}
	if err := viper.BindPFlag(waitTimeout, cmd.PersistentFlags().Lookup(waitTimeout)); err != nil {
		return err
	}
	CeremonyID = viper.GetUint64(ceremonyID)
	if CeremonyID == 0 {
		return fmt.Errorf("😥 ceremony ID flag cant be empty")
	}
	WaitTimeout = viper.GetDuration(waitTimeout)
	if WaitTimeout < 0 {
		return fmt.Errorf("😥 waitTimeout cant be negative")
	}
	return nil
}

// BindKeygenFlags binds flags to yaml config parameters for a keygen request
func BindKeygenFlags(cmd *cobra.Command) error {
	if err := bindCeremonyFlags(cmd); err != nil {
		return err
	}
	if err := viper.BindPFlag(participants, cmd.PersistentFlags().Lookup(participants)); err != nil {
		return err
	}
	var err error
	Participants, err = StringSliceToUintArray(viper.GetStringSlice(participants))
	if err != nil {
		return err
	}
	if len(Participants) == 0 {
		return fmt.Errorf("😥 participants flag cant be empty")
	}
	return nil
}

// BindSignFlags binds flags to yaml config parameters for a signing request
func BindSignFlags(cmd *cobra.Command) error {
	if err := bindCeremonyFlags(cmd); err != nil {
		return err
	}
	for _, name := range []string{signers, keyID, message} {
		if err := viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
			return err
		}
	}
	var err error
	Signers, err = StringSliceToUintArray(viper.GetStringSlice(signers))
	if err != nil {
		return err
	}
	if len(Signers) == 0 {
		return fmt.Errorf("😥 signers flag cant be empty")
	}
	KeyID = viper.GetString(keyID)
	if KeyID == "" {
		return fmt.Errorf("😥 keyID flag cant be empty")
	}
	Message, err = hex.DecodeString(strings.TrimPrefix(viper.GetString(message), "0x"))
	if err != nil {
		return fmt.Errorf("😥 message should be hex encoded: %w", err)
	}
	if len(Message) == 0 {
		return fmt.Errorf("😥 message flag cant be empty")
	}
	return nil
}

// BindStatusFlags binds flags to yaml config parameters for a status query
func BindStatusFlags(cmd *cobra.Command) error {
	if err := bindRequestFlags(cmd); err != nil {
		return err
	}
	if err := viper.BindPFlag(operatorIDs, cmd.PersistentFlags().Lookup(operatorIDs)); err != nil {
		return err
	}
	var err error
	OperatorIDs, err = StringSliceToUintArray(viper.GetStringSlice(operatorIDs))
	return err
}

// StringSliceToUintArray converts the string slice to uint64 slice
func StringSliceToUintArray(flagdata []string) ([]uint64, error) {
	partsarr := make([]uint64, 0, len(flagdata))
	for i := 0; i < len(flagdata); i++ {
		opid, err := strconv.ParseUint(strings.TrimSpace(flagdata[i]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("😥 cant load operator err: %v , data: %v, ", err, flagdata[i])
		}
		partsarr = append(partsarr, opid)
	}
	return partsarr, nil
}
