package frost

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/drand/kyber"
	kyber_share "github.com/drand/kyber/share"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

const (
	keygenStageComm         = 1
	keygenStageVerifyComm   = 2
	keygenStageShares       = 3
	keygenStageComplaints   = 4
	keygenStageVerifyBlames = 5
)

// keygen is a Pedersen DKG with proofs of knowledge, as used by FROST.
type keygen struct {
	g      kyber.Group
	rand   cipher.Stream
	params *ceremony.KeygenParams

	coeffs      []kyber.Scalar
	commitments map[ceremony.PartyIndex][]kyber.Point
	secret      kyber.Scalar
}

func newKeygen(g kyber.Group, rand cipher.Stream, params *ceremony.KeygenParams) *keygen {
	return &keygen{g: g, rand: rand, params: params}
}

func (k *keygen) context(idx ceremony.PartyIndex) []byte {
	b := binary.BigEndian.AppendUint64(nil, uint64(k.params.CeremonyID))
	return binary.BigEndian.AppendUint32(b, uint32(idx))
}

func (k *keygen) Init() (*ceremony.Contribution, error) {
	poly := kyber_share.NewPriPoly(k.g, k.params.Threshold, nil, k.rand)
	k.coeffs = poly.Coefficients()
	_, commits := poly.Commit(nil).Info()

	w := k.g.Scalar().Pick(k.rand)
	r := k.g.Point().Mul(w, nil)
	c0, err := commits[0].MarshalBinary()
	if err != nil {
		return nil, err
	}
	rb, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	c := hashToScalar(k.g, "frost-keygen-pok", k.context(k.params.Self), c0, rb)
	mu := k.g.Scalar().Add(w, k.g.Scalar().Mul(k.coeffs[0], c))
	mub, err := mu.MarshalBinary()
	if err != nil {
		return nil, err
	}
	encoded, err := marshalPoints(commits)
	if err != nil {
		return nil, err
	}
	payload, err := wire.MarshalCBOR(&commitmentsMsg{Commitments: encoded, R: rb, Mu: mub})
	if err != nil {
		return nil, err
	}
	return &ceremony.Contribution{Broadcast: payload}, nil
}

func (k *keygen) Process(stage int, data map[ceremony.PartyIndex][]byte) (*ceremony.Output, error) {
	switch stage {
	case keygenStageVerifyComm:
		return k.verifyCommitments(data)
	case keygenStageShares:
		return k.verifyShares(data)
	case keygenStageVerifyBlames:
		return k.finalize(data)
	default:
		return nil, fmt.Errorf("keygen has no processing for stage %d", stage)
	}
}

func (k *keygen) verifyCommitments(data map[ceremony.PartyIndex][]byte) (*ceremony.Output, error) {
	n := k.params.Participants.Len()
	k.commitments = make(map[ceremony.PartyIndex][]kyber.Point, n)
	var bad []ceremony.PartyIndex
	for i := 0; i < n; i++ {
		idx := ceremony.PartyIndex(i)
		commits, err := k.checkCommitment(idx, data[idx])
		if err != nil {
			bad = append(bad, idx)
			continue
		}
		k.commitments[idx] = commits
	}
	if len(bad) > 0 {
		return nil, ceremony.NewBlameError("invalid keygen commitments", bad...)
	}

	shares := make(map[ceremony.PartyIndex][]byte, n)
	for i := 0; i < n; i++ {
		s, err := evalPoly(k.g, k.coeffs, xCoord(k.g, i)).MarshalBinary()
		if err != nil {
			return nil, err
		}
		payload, err := wire.MarshalCBOR(&shareMsg{Share: s})
		if err != nil {
			return nil, err
		}
		shares[ceremony.PartyIndex(i)] = payload
	}
	return &ceremony.Output{Next: &ceremony.Contribution{Private: shares}}, nil
}

func (k *keygen) checkCommitment(idx ceremony.PartyIndex, payload []byte) ([]kyber.Point, error) {
	if payload == nil {
		return nil, fmt.Errorf("no commitment")
	}
	msg := &commitmentsMsg{}
	if err := wire.UnmarshalCBOR(payload, msg); err != nil {
		return nil, err
	}
	if len(msg.Commitments) != k.params.Threshold {
		return nil, fmt.Errorf("expected %d commitments, got %d", k.params.Threshold, len(msg.Commitments))
	}
	commits, err := unmarshalPoints(k.g, msg.Commitments)
	if err != nil {
		return nil, err
	}
	r, err := unmarshalPoint(k.g, msg.R)
	if err != nil {
		return nil, err
	}
	mu, err := unmarshalScalar(k.g, msg.Mu)
	if err != nil {
		return nil, err
	}
	c := hashToScalar(k.g, "frost-keygen-pok", k.context(idx), msg.Commitments[0], msg.R)
	// mu*G == R + c*C0
	lhs := k.g.Point().Mul(mu, nil)
	rhs := k.g.Point().Add(r, k.g.Point().Mul(c, commits[0]))
	if !lhs.Equal(rhs) {
		return nil, fmt.Errorf("invalid proof of knowledge")
	}
	return commits, nil
}

func (k *keygen) verifyShares(data map[ceremony.PartyIndex][]byte) (*ceremony.Output, error) {
	n := k.params.Participants.Len()
	x := xCoord(k.g, int(k.params.Self))
	secret := k.g.Scalar().Zero()
	accused := make([]uint32, 0)
	for i := 0; i < n; i++ {
		idx := ceremony.PartyIndex(i)
		s, err := k.checkShare(idx, x, data[idx])
		if err != nil {
			accused = append(accused, uint32(idx))
			continue
		}
		secret = k.g.Scalar().Add(secret, s)
	}
	k.secret = secret
	payload, err := wire.MarshalCBOR(&complaintsMsg{Accused: accused})
	if err != nil {
		return nil, err
	}
	return &ceremony.Output{Next: &ceremony.Contribution{Broadcast: payload}}, nil
}

func (k *keygen) checkShare(idx ceremony.PartyIndex, x kyber.Scalar, payload []byte) (kyber.Scalar, error) {
	if payload == nil {
		return nil, fmt.Errorf("no share")
	}
	msg := &shareMsg{}
	if err := wire.UnmarshalCBOR(payload, msg); err != nil {
		return nil, err
	}
	s, err := unmarshalScalar(k.g, msg.Share)
	if err != nil {
		return nil, err
	}
	if !k.g.Point().Mul(s, nil).Equal(evalCommitments(k.g, k.commitments[idx], x)) {
		return nil, fmt.Errorf("share does not match commitments")
	}
	return s, nil
}

func (k *keygen) finalize(data map[ceremony.PartyIndex][]byte) (*ceremony.Output, error) {
	n := k.params.Participants.Len()
	var blamed []ceremony.PartyIndex
	for i := 0; i < n; i++ {
		msg := &complaintsMsg{}
		if err := wire.UnmarshalCBOR(data[ceremony.PartyIndex(i)], msg); err != nil {
			blamed = append(blamed, ceremony.PartyIndex(i))
			continue
		}
		for _, a := range msg.Accused {
			if int(a) < n {
				blamed = append(blamed, ceremony.PartyIndex(a))
			}
		}
	}
	if len(blamed) > 0 {
		return nil, ceremony.NewBlameError("keygen complaints", blamed...)
	}

	aggregated := make([]kyber.Point, k.params.Threshold)
	for j := range aggregated {
		aggregated[j] = k.g.Point().Null()
		for i := 0; i < n; i++ {
			aggregated[j] = k.g.Point().Add(aggregated[j], k.commitments[ceremony.PartyIndex(i)][j])
		}
	}
	groupKey, err := aggregated[0].MarshalBinary()
	if err != nil {
		return nil, err
	}
	commits, err := marshalPoints(aggregated)
	if err != nil {
		return nil, err
	}
	s, err := k.secret.MarshalBinary()
	if err != nil {
		return nil, err
	}
	secret, err := wire.MarshalCBOR(&keyShare{Index: uint32(k.params.Self), Secret: s, Commitments: commits})
	if err != nil {
		return nil, err
	}
	return &ceremony.Output{Result: groupKey, Secret: secret}, nil
}
