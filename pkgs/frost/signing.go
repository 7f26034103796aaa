package frost

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/drand/kyber"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

const (
	signingStageVerifyComm = 2
	signingStageVerifySig  = 4
)

// signing is the two round FROST signing protocol. Each round is followed by a broadcast verification.
type signing struct {
	g      kyber.Group
	rand   cipher.Stream
	params *ceremony.SigningParams

	share    kyber.Scalar
	groupKey kyber.Point
	// aggregated keygen commitments
	commits []kyber.Point
	// x coordinate of every signer
	xs []kyber.Scalar

	d, e    kyber.Scalar
	nonces  []nonce
	binding []kyber.Scalar
	r       kyber.Point
	c       kyber.Scalar
}

type nonce struct {
	D, E kyber.Point
}

func newSigning(g kyber.Group, rand cipher.Stream, params *ceremony.SigningParams) (*signing, error) {
	key := params.Key
	if key == nil {
		return nil, errors.New("no key")
	}
	ks := &keyShare{}
	if err := wire.UnmarshalCBOR(key.Secret, ks); err != nil {
		return nil, fmt.Errorf("decode key share: %w", err)
	}
	share, err := unmarshalScalar(g, ks.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret share: %w", err)
	}
	commits, err := unmarshalPoints(g, ks.Commitments)
	if err != nil {
		return nil, fmt.Errorf("decode key commitments: %w", err)
	}
	groupKey, err := unmarshalPoint(g, key.GroupKey)
	if err != nil {
		return nil, fmt.Errorf("decode group key: %w", err)
	}
	if len(commits) == 0 || !commits[0].Equal(groupKey) {
		return nil, errors.New("key commitments do not match group key")
	}

	positions := make(map[uint64]int, len(key.Participants))
	for i, id := range key.Participants {
		positions[id] = i
	}
	ids := params.Signers.IDs()
	xs := make([]kyber.Scalar, len(ids))
	for i, id := range ids {
		pos, ok := positions[uint64(id)]
		if !ok {
			return nil, fmt.Errorf("signer %d is not a key holder", id)
		}
		if i == int(params.Self) && pos != int(ks.Index) {
			return nil, fmt.Errorf("key share index %d does not match position %d", ks.Index, pos)
		}
		xs[i] = xCoord(g, pos)
	}
	return &signing{
		g:        g,
		rand:     rand,
		params:   params,
		share:    share,
		groupKey: groupKey,
		commits:  commits,
		xs:       xs,
	}, nil
}

func (s *signing) Init() (*ceremony.Contribution, error) {
	s.d = s.g.Scalar().Pick(s.rand)
	s.e = s.g.Scalar().Pick(s.rand)
	d, err := s.g.Point().Mul(s.d, nil).MarshalBinary()
	if err != nil {
		return nil, err
	}
	e, err := s.g.Point().Mul(s.e, nil).MarshalBinary()
	if err != nil {
		return nil, err
	}
	payload, err := wire.MarshalCBOR(&nonceMsg{D: d, E: e})
	if err != nil {
		return nil, err
	}
	return &ceremony.Contribution{Broadcast: payload}, nil
}

func (s *signing) Process(stage int, data map[ceremony.PartyIndex][]byte) (*ceremony.Output, error) {
	switch stage {
	case signingStageVerifyComm:
		return s.commit(data)
	case signingStageVerifySig:
		return s.aggregate(data)
	default:
		return nil, fmt.Errorf("signing has no processing for stage %d", stage)
	}
}

func (s *signing) commit(data map[ceremony.PartyIndex][]byte) (*ceremony.Output, error) {
	n := len(s.xs)
	s.nonces = make([]nonce, n)
	var bad []ceremony.PartyIndex
	// the binding factors commit to the whole agreed nonce list
	var list []byte
	for i := 0; i < n; i++ {
		payload := data[ceremony.PartyIndex(i)]
		nc, err := s.decodeNonce(payload)
		if err != nil {
			bad = append(bad, ceremony.PartyIndex(i))
			continue
		}
		s.nonces[i] = nc
		list = binary.BigEndian.AppendUint32(list, uint32(len(payload)))
		list = append(list, payload...)
	}
	if len(bad) > 0 {
		return nil, ceremony.NewBlameError("invalid signing commitments", bad...)
	}

	ctx := binary.BigEndian.AppendUint64(nil, uint64(s.params.CeremonyID))
	s.binding = make([]kyber.Scalar, n)
	s.r = s.g.Point().Null()
	for i := 0; i < n; i++ {
		x, err := s.xs[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		s.binding[i] = hashToScalar(s.g, "frost-binding", ctx, x, s.params.Message, list)
		ri := s.g.Point().Add(s.nonces[i].D, s.g.Point().Mul(s.binding[i], s.nonces[i].E))
		s.r = s.g.Point().Add(s.r, ri)
	}
	c, err := challenge(s.g, s.r, s.groupKey, s.params.Message)
	if err != nil {
		return nil, err
	}
	s.c = c

	self := int(s.params.Self)
	lambda := lagrangeAtZero(s.g, s.xs[self], s.xs)
	// z = d + e*rho + lambda*s*c
	z := s.g.Scalar().Add(s.d, s.g.Scalar().Mul(s.e, s.binding[self]))
	z = s.g.Scalar().Add(z, s.g.Scalar().Mul(lambda, s.g.Scalar().Mul(s.share, s.c)))
	zb, err := z.MarshalBinary()
	if err != nil {
		return nil, err
	}
	payload, err := wire.MarshalCBOR(&sigShareMsg{Z: zb})
	if err != nil {
		return nil, err
	}
	return &ceremony.Output{Next: &ceremony.Contribution{Broadcast: payload}}, nil
}

func (s *signing) decodeNonce(payload []byte) (nonce, error) {
	msg := &nonceMsg{}
	if err := wire.UnmarshalCBOR(payload, msg); err != nil {
		return nonce{}, err
	}
	d, err := unmarshalPoint(s.g, msg.D)
	if err != nil {
		return nonce{}, err
	}
	e, err := unmarshalPoint(s.g, msg.E)
	if err != nil {
		return nonce{}, err
	}
	return nonce{D: d, E: e}, nil
}

func (s *signing) aggregate(data map[ceremony.PartyIndex][]byte) (*ceremony.Output, error) {
	n := len(s.xs)
	z := s.g.Scalar().Zero()
	var bad []ceremony.PartyIndex
	for i := 0; i < n; i++ {
		zi, err := s.checkSigShare(i, data[ceremony.PartyIndex(i)])
		if err != nil {
			bad = append(bad, ceremony.PartyIndex(i))
			continue
		}
		z = s.g.Scalar().Add(z, zi)
	}
	if len(bad) > 0 {
		return nil, ceremony.NewBlameError("invalid signature shares", bad...)
	}
	r, err := s.r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	zb, err := z.MarshalBinary()
	if err != nil {
		return nil, err
	}
	sig := append(r, zb...)
	if err := Verify(s.g, s.groupKey, s.params.Message, sig); err != nil {
		return nil, fmt.Errorf("aggregated signature: %w", err)
	}
	return &ceremony.Output{Result: sig}, nil
}

func (s *signing) checkSigShare(i int, payload []byte) (kyber.Scalar, error) {
	msg := &sigShareMsg{}
	if err := wire.UnmarshalCBOR(payload, msg); err != nil {
		return nil, err
	}
	zi, err := unmarshalScalar(s.g, msg.Z)
	if err != nil {
		return nil, err
	}
	// z_i*G == D_i + rho_i*E_i + c*lambda_i*Y_i
	yi := evalCommitments(s.g, s.commits, s.xs[i])
	lambda := lagrangeAtZero(s.g, s.xs[i], s.xs)
	rhs := s.g.Point().Add(s.nonces[i].D, s.g.Point().Mul(s.binding[i], s.nonces[i].E))
	rhs = s.g.Point().Add(rhs, s.g.Point().Mul(s.g.Scalar().Mul(s.c, lambda), yi))
	if !s.g.Point().Mul(zi, nil).Equal(rhs) {
		return nil, errors.New("signature share does not verify")
	}
	return zi, nil
}

func challenge(g kyber.Group, r, groupKey kyber.Point, msg []byte) (kyber.Scalar, error) {
	rb, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	yb, err := groupKey.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return hashToScalar(g, "frost-challenge", rb, yb, msg), nil
}

// Verify checks a R||z signature produced by a signing ceremony.
func Verify(g kyber.Group, groupKey kyber.Point, msg, sig []byte) error {
	pl := g.PointLen()
	if len(sig) != pl+g.ScalarLen() {
		return fmt.Errorf("signature length %d, expected %d", len(sig), pl+g.ScalarLen())
	}
	r, err := unmarshalPoint(g, sig[:pl])
	if err != nil {
		return fmt.Errorf("signature nonce: %w", err)
	}
	z, err := unmarshalScalar(g, sig[pl:])
	if err != nil {
		return fmt.Errorf("signature scalar: %w", err)
	}
	c, err := challenge(g, r, groupKey, msg)
	if err != nil {
		return err
	}
	if !g.Point().Mul(z, nil).Equal(g.Point().Add(r, g.Point().Mul(c, groupKey))) {
		return errors.New("invalid signature")
	}
	return nil
}

// VerifyWithKey is Verify with an encoded group key.
func VerifyWithKey(g kyber.Group, groupKey, msg, sig []byte) error {
	y, err := unmarshalPoint(g, groupKey)
	if err != nil {
		return fmt.Errorf("group key: %w", err)
	}
	return Verify(g, y, msg, sig)
}
