package wire

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	spec_crypto "github.com/ssvlabs/dkg-spec/crypto"

	"github.com/ssvlabs/ssv-multisig/pkgs/crypto"
)

// Peer is a node this node exchanges stage data with
type Peer struct {
	Addr   string
	ID     uint64
	PubKey *rsa.PublicKey
}

type peerJSON struct {
	Addr   string `json:"ip"`
	ID     uint64 `json:"id"`
	PubKey string `json:"public_key"`
}

func (p *Peer) MarshalJSON() ([]byte, error) {
	pk, err := crypto.EncodeRSAPublicKey(p.PubKey)
	if err != nil {
		return nil, err
	}
	return json.Marshal(peerJSON{
		Addr:   p.Addr,
		ID:     p.ID,
		PubKey: string(pk),
	})
}

func (p *Peer) UnmarshalJSON(data []byte) error {
	var op peerJSON
	if err := json.Unmarshal(data, &op); err != nil {
		return fmt.Errorf("failed to unmarshal peer: %s", err.Error())
	}
	if op.ID == 0 {
		return fmt.Errorf("peer id can not be 0")
	}
	_, err := url.ParseRequestURI(op.Addr)
	if err != nil {
		return fmt.Errorf("invalid peer URL %s", err.Error())
	}
	pk, err := spec_crypto.ParseRSAPublicKey([]byte(op.PubKey))
	if err != nil {
		return fmt.Errorf("invalid peer public key %s", err.Error())
	}
	*p = Peer{
		Addr:   strings.TrimRight(op.Addr, "/"),
		ID:     op.ID,
		PubKey: pk,
	}
	return nil
}

// Peers is the registry of every known node, including this one
type Peers []Peer

func (o Peers) ByID(id uint64) *Peer {
	for _, op := range o {
		if op.ID == id {
			return &op
		}
	}
	return nil
}

func (o Peers) Validate() error {
	seen := make(map[uint64]struct{}, len(o))
	for _, op := range o {
		if _, ok := seen[op.ID]; ok {
			return fmt.Errorf("duplicate peer id %d", op.ID)
		}
		seen[op.ID] = struct{}{}
	}
	return nil
}

func LoadJSONFile(file string, v interface{}) error {
	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &v)
}

func LoadPeers(path string) (Peers, error) {
	var peers Peers
	if err := LoadJSONFile(path, &peers); err != nil {
		return nil, fmt.Errorf("failed to load peers info: %w", err)
	}
	if err := peers.Validate(); err != nil {
		return nil, err
	}
	return peers, nil
}
