package frost

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/drand/kyber"
	"github.com/drand/kyber/group/edwards25519"
	"github.com/drand/kyber/util/random"
	"github.com/drand/kyber/xof/blake2xb"
	kyber_bls12381 "github.com/drand/kyber-bls12381"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
)

// Supported curves.
const (
	CurveEd25519  = "ed25519"
	CurveBLS12381 = "bls12381"
)

// GroupByName returns the group for a curve name.
func GroupByName(curve string) (kyber.Group, error) {
	switch curve {
	case CurveEd25519, "":
		return edwards25519.NewBlakeSHA256Ed25519(), nil
	case CurveBLS12381:
		return kyber_bls12381.NewBLS12381Suite().G1(), nil
	default:
		return nil, fmt.Errorf("unsupported curve %q", curve)
	}
}

// Provider runs FROST keygen and signing over one group.
type Provider struct {
	group kyber.Group
	rand  cipher.Stream
}

// NewProvider builds a provider for a named curve using crypto/rand.
func NewProvider(curve string) (*Provider, error) {
	g, err := GroupByName(curve)
	if err != nil {
		return nil, err
	}
	return NewProviderWithGroup(g, random.New()), nil
}

func NewProviderWithGroup(g kyber.Group, rand cipher.Stream) *Provider {
	return &Provider{group: g, rand: rand}
}

func (p *Provider) Keygen(params *ceremony.KeygenParams) (ceremony.Protocol, error) {
	if params.Threshold < 1 || params.Threshold > params.Participants.Len() {
		return nil, fmt.Errorf("invalid threshold %d for %d parties", params.Threshold, params.Participants.Len())
	}
	return newKeygen(p.group, p.rand, params), nil
}

func (p *Provider) Signing(params *ceremony.SigningParams) (ceremony.Protocol, error) {
	return newSigning(p.group, p.rand, params)
}

// hashToScalar derives a scalar from a domain tag and length-prefixed parts.
func hashToScalar(g kyber.Group, tag string, parts ...[]byte) kyber.Scalar {
	seed := make([]byte, 0, 64)
	seed = append(seed, tag...)
	for _, p := range parts {
		seed = binary.BigEndian.AppendUint32(seed, uint32(len(p)))
		seed = append(seed, p...)
	}
	return g.Scalar().Pick(blake2xb.New(seed))
}

func xCoord(g kyber.Group, idx int) kyber.Scalar {
	return g.Scalar().SetInt64(int64(idx + 1))
}

func evalPoly(g kyber.Group, coeffs []kyber.Scalar, x kyber.Scalar) kyber.Scalar {
	acc := g.Scalar().Zero()
	for k := len(coeffs) - 1; k >= 0; k-- {
		acc = g.Scalar().Add(g.Scalar().Mul(acc, x), coeffs[k])
	}
	return acc
}

func evalCommitments(g kyber.Group, commits []kyber.Point, x kyber.Scalar) kyber.Point {
	acc := g.Point().Null()
	for k := len(commits) - 1; k >= 0; k-- {
		acc = g.Point().Add(g.Point().Mul(x, acc), commits[k])
	}
	return acc
}

func lagrangeAtZero(g kyber.Group, xi kyber.Scalar, xs []kyber.Scalar) kyber.Scalar {
	num := g.Scalar().One()
	den := g.Scalar().One()
	for _, xj := range xs {
		if xj.Equal(xi) {
			continue
		}
		num = g.Scalar().Mul(num, xj)
		den = g.Scalar().Mul(den, g.Scalar().Sub(xj, xi))
	}
	return g.Scalar().Div(num, den)
}

func marshalPoints(points []kyber.Point) ([][]byte, error) {
	out := make([][]byte, len(points))
	for i, p := range points {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func unmarshalPoint(g kyber.Group, b []byte) (kyber.Point, error) {
	p := g.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return p, nil
}

func unmarshalPoints(g kyber.Group, bs [][]byte) ([]kyber.Point, error) {
	out := make([]kyber.Point, len(bs))
	for i, b := range bs {
		p, err := unmarshalPoint(g, b)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func unmarshalScalar(g kyber.Group, b []byte) (kyber.Scalar, error) {
	s := g.Scalar()
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return s, nil
}
