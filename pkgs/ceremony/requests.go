package ceremony

import (
	"time"

	"github.com/ssvlabs/ssv-multisig/pkgs/keystore"
)

// RequestToSign authorizes a signing ceremony over Message with the key KeyID.
type RequestToSign struct {
	CeremonyID CeremonyID
	KeyID      keystore.KeyID
	Message    []byte
	Signers    []PartyID
}

// RequestToKeygen authorizes a keygen ceremony among Participants.
type RequestToKeygen struct {
	CeremonyID   CeremonyID
	Participants []PartyID
}

type pendingRequest struct {
	req      *RequestToSign
	deadline time.Time
}
