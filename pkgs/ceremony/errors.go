package ceremony

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrCeremonyIDUsed     = errors.New("ceremony id already used")
	ErrDuplicateRequest   = errors.New("request for this ceremony id is already pending")
	ErrDuplicateSigner    = errors.New("duplicate party in participant set")
	ErrEmptyParticipants  = errors.New("participant set is empty")
	ErrNotParticipating   = errors.New("local node is not in the participant set")
	ErrUnknownSigner      = errors.New("signer did not participate in the key generation")
	ErrNotEnoughSigners   = errors.New("not enough signers for the key threshold")
	ErrMaxUnauthorized    = errors.New("max number of unauthorized ceremonies reached")
	ErrUnsupportedKind    = errors.New("unsupported ceremony kind")
	ErrInvalidStageConfig = errors.New("invalid stage sequence")
)

// BlameError is returned by a Protocol when specific parties caused the failure.
type BlameError struct {
	Parties []PartyIndex
	Reason  string
}

// NewBlameError sorts and deduplicates the blamed parties.
func NewBlameError(reason string, parties ...PartyIndex) *BlameError {
	seen := make(map[PartyIndex]struct{}, len(parties))
	uniq := make([]PartyIndex, 0, len(parties))
	for _, p := range parties {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })
	return &BlameError{Parties: uniq, Reason: reason}
}

func (e *BlameError) Error() string {
	return fmt.Sprintf("%s: blamed %v", e.Reason, e.Parties)
}
