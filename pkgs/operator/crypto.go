package operator

import (
	"crypto/rsa"
	"fmt"

	"github.com/hashicorp/go-version"

	"github.com/ssvlabs/ssv-multisig/pkgs/crypto"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

// stage numbers above this are never valid for any ceremony kind
const maxStage = 16

// VerifySig checks the RSA signature of a peer over the SSZ encoded transport
func VerifySig(incMsg *wire.SignedTransport, peerPubKey *rsa.PublicKey) error {
	marshalledWireMsg, err := incMsg.Message.MarshalSSZ()
	if err != nil {
		return err
	}
	err = crypto.VerifyRSA(peerPubKey, marshalledWireMsg, incMsg.Signature)
	if err != nil {
		return fmt.Errorf("signature isn't valid: %s", err.Error())
	}
	return nil
}

// checkVersion accepts peers running the same major and minor version
func checkVersion(local, remote []byte) error {
	lv, err := version.NewVersion(string(local))
	if err != nil {
		return fmt.Errorf("invalid local version %q: %w", local, err)
	}
	rv, err := version.NewVersion(string(remote))
	if err != nil {
		return fmt.Errorf("invalid remote version %q: %w", remote, err)
	}
	ls, rs := lv.Segments(), rv.Segments()
	if ls[0] != rs[0] || ls[1] != rs[1] {
		return fmt.Errorf("wrong version: remote %s local %s", rv, lv)
	}
	return nil
}
