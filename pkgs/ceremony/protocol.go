package ceremony

import (
	"github.com/ssvlabs/ssv-multisig/pkgs/keystore"
)

// Contribution is the data this party sends in a contribution stage. Exactly one of the fields is set.
type Contribution struct {
	Broadcast []byte
	Private   map[PartyIndex][]byte
}

// Output is produced by a Protocol when a stage closes.
type Output struct {
	// Next is the contribution for the following contribution stage.
	Next *Contribution
	// Result is set when the last stage closes: a group public key or a signature.
	Result []byte
	// Secret is the key material to persist after a keygen.
	Secret []byte
}

// Protocol is the cryptographic capability driving one ceremony. Calls are synchronous and fast.
type Protocol interface {
	// Init returns the contribution for the first stage.
	Init() (*Contribution, error)
	// Process consumes the data of a closed stage (1-based). For a verification stage data holds
	// the majority-agreed values of every party, for a contribution stage what was actually received.
	// A *BlameError fails the ceremony blaming the named parties.
	Process(stage int, data map[PartyIndex][]byte) (*Output, error)
}

type KeygenParams struct {
	CeremonyID   CeremonyID
	Participants *PartySet
	Self         PartyIndex
	Threshold    int
}

type SigningParams struct {
	CeremonyID CeremonyID
	Signers    *PartySet
	Self       PartyIndex
	Key        *keystore.Key
	Message    []byte
}

// Provider builds protocols for new ceremonies.
type Provider interface {
	Keygen(params *KeygenParams) (Protocol, error)
	Signing(params *SigningParams) (Protocol, error)
}
