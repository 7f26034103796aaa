package wire

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// KeygenInstruction asks a node to take part in a keygen ceremony.
type KeygenInstruction struct {
	CeremonyID   uint64   `json:"ceremony_id"`
	Participants []uint64 `json:"participants"`
}

func (k *KeygenInstruction) Validate() error {
	if len(k.Participants) == 0 {
		return fmt.Errorf("no participants")
	}
	return nil
}

// SignInstruction asks a node to take part in a signing ceremony with a stored key.
type SignInstruction struct {
	CeremonyID uint64        `json:"ceremony_id"`
	KeyID      string        `json:"key_id"`
	Message    hexutil.Bytes `json:"message"`
	Signers    []uint64      `json:"signers"`
}

func (s *SignInstruction) Validate() error {
	if s.KeyID == "" {
		return fmt.Errorf("no key id")
	}
	if len(s.Message) == 0 {
		return fmt.Errorf("empty message")
	}
	if len(s.Signers) == 0 {
		return fmt.Errorf("no signers")
	}
	return nil
}

// OutcomeJSON is a terminated ceremony as served by the node API.
type OutcomeJSON struct {
	CeremonyID uint64        `json:"ceremony_id"`
	Kind       string        `json:"kind"`
	Success    bool          `json:"success"`
	Result     hexutil.Bytes `json:"result,omitempty"`
	KeyID      string        `json:"key_id,omitempty"`
	Blamed     []uint64      `json:"blamed"`
}

type Pong struct {
	ID      uint64 `json:"id"`
	PubKey  string `json:"public_key"`
	Version string `json:"version"`
}
