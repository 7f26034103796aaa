package keystore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

var ErrKeyNotFound = errors.New("key not found")

// KeyID references a generated key: the keccak256 hash of its group public key.
type KeyID [32]byte

func KeyIDFromGroupKey(groupKey []byte) KeyID {
	return KeyID(eth_crypto.Keccak256Hash(groupKey))
}

// ParseKeyID decodes a hex key id, with or without 0x prefix.
func ParseKeyID(s string) (KeyID, error) {
	var id KeyID
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("key id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id KeyID) String() string {
	return hex.EncodeToString(id[:])
}

// Key is the local outcome of a successful keygen.
type Key struct {
	ID           KeyID    `msgpack:"id"`
	CeremonyID   uint64   `msgpack:"ceremony_id"`
	GroupKey     []byte   `msgpack:"group_key"`
	Participants []uint64 `msgpack:"participants"`
	Threshold    int      `msgpack:"threshold"`
	// Secret is the provider specific encoding of this node's share
	Secret []byte `msgpack:"secret"`
}

// HasParticipant tells whether id took part in the keygen.
func (k *Key) HasParticipant(id uint64) bool {
	for _, p := range k.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Store keeps generated keys.
type Store interface {
	Get(id KeyID) (*Key, error)
	Put(k *Key) error
	List() ([]*Key, error)
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mtx  sync.RWMutex
	keys map[KeyID]*Key
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[KeyID]*Key)}
}

func (s *MemoryStore) Get(id KeyID) (*Key, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrKeyNotFound)
	}
	return k, nil
}

func (s *MemoryStore) Put(k *Key) error {
	if k == nil {
		return errors.New("nil key")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.keys[k.ID] = k
	return nil
}

func (s *MemoryStore) List() ([]*Key, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	out := make([]*Key, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CeremonyID < out[j].CeremonyID })
	return out, nil
}
