package ceremony

import (
	"fmt"
	"sort"

	"github.com/ssvlabs/ssv-multisig/pkgs/keystore"
)

// StageFinishedOrNotStarted is reported for ceremonies that are unknown, not yet authorized or already terminated.
const StageFinishedOrNotStarted = 0

// PartyID identifies a node across ceremonies.
type PartyID uint64

// PartyIndex is the dense zero-based position of a party inside one ceremony.
type PartyIndex int

// CeremonyID is unique per ceremony kind.
type CeremonyID uint64

// Kind distinguishes keygen ceremonies from signing ceremonies. Ids of different kinds never collide.
type Kind uint8

const (
	KeygenKind Kind = iota + 1
	SigningKind
)

func (k Kind) String() string {
	switch k {
	case KeygenKind:
		return "keygen"
	case SigningKind:
		return "signing"
	default:
		return "no type impl"
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	switch s {
	case "keygen":
		return KeygenKind, nil
	case "signing":
		return SigningKind, nil
	default:
		return 0, fmt.Errorf("unknown ceremony kind %q", s)
	}
}

// Authorization tells whether the request legitimizing a ceremony has been accepted.
type Authorization uint8

const (
	Unauthorized Authorization = iota
	Authorized
)

func (a Authorization) String() string {
	if a == Authorized {
		return "authorized"
	}
	return "unauthorized"
}

type ceremonyKey struct {
	kind Kind
	id   CeremonyID
}

// PartySet is an ordered participant set with a bidirectional id <-> index mapping.
type PartySet struct {
	ids   []PartyID
	index map[PartyID]PartyIndex
}

// NewPartySet sorts ids ascending and assigns indexes. Duplicates are rejected.
func NewPartySet(ids []PartyID) (*PartySet, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyParticipants
	}
	sorted := make([]PartyID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := make(map[PartyID]PartyIndex, len(sorted))
	for i, id := range sorted {
		if _, ok := index[id]; ok {
			return nil, fmt.Errorf("party %d: %w", id, ErrDuplicateSigner)
		}
		index[id] = PartyIndex(i)
	}
	return &PartySet{ids: sorted, index: index}, nil
}

func (ps *PartySet) Len() int {
	return len(ps.ids)
}

// Index returns the position of id inside the set.
func (ps *PartySet) Index(id PartyID) (PartyIndex, bool) {
	idx, ok := ps.index[id]
	return idx, ok
}

// ID returns the party at idx.
func (ps *PartySet) ID(idx PartyIndex) PartyID {
	return ps.ids[idx]
}

// IDs returns a copy of the ordered ids.
func (ps *PartySet) IDs() []PartyID {
	out := make([]PartyID, len(ps.ids))
	copy(out, ps.ids)
	return out
}

// Others returns every party except idx.
func (ps *PartySet) Others(idx PartyIndex) []PartyID {
	out := make([]PartyID, 0, len(ps.ids)-1)
	for i, id := range ps.ids {
		if PartyIndex(i) != idx {
			out = append(out, id)
		}
	}
	return out
}

func (ps *PartySet) toIDs(indexes []PartyIndex) []PartyID {
	out := make([]PartyID, 0, len(indexes))
	if ps == nil {
		return out
	}
	for _, idx := range indexes {
		if int(idx) >= 0 && int(idx) < len(ps.ids) {
			out = append(out, ps.ids[idx])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SuccessThreshold returns the minimal number of signers for a key shared among n parties.
func SuccessThreshold(n int) int {
	if n <= 0 {
		return 0
	}
	return (2*n-1)/3 + 1
}

// Message is stage data received from a peer.
type Message struct {
	CeremonyID CeremonyID
	Kind       Kind
	Stage      int
	Sender     PartyID
	Payload    []byte
}

// Outgoing is stage data this node sends. Delivery is fire-and-forget.
type Outgoing struct {
	CeremonyID CeremonyID
	Kind       Kind
	Stage      int
	Receivers  []PartyID
	Payload    []byte
}

// Outcome is reported exactly once per authorized ceremony.
type Outcome struct {
	CeremonyID CeremonyID
	Kind       Kind
	Result     []byte
	KeyID      keystore.KeyID
	Blamed     []PartyID
}

// Success tells whether the ceremony produced a result.
func (o *Outcome) Success() bool {
	return o.Result != nil && len(o.Blamed) == 0
}

// Info is a read-only snapshot of a live ceremony.
type Info struct {
	CeremonyID    CeremonyID `json:"ceremony_id"`
	Kind          string     `json:"kind"`
	Authorization string     `json:"authorization"`
	Stage         int        `json:"stage"`
	StageName     string     `json:"stage_name"`
	Participants  []PartyID  `json:"participants,omitempty"`
	Received      int        `json:"received"`
	Delayed       int        `json:"delayed"`
	Deadline      int64      `json:"deadline"`
}
