package ceremony

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ssvlabs/ssv-multisig/pkgs/keystore"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

var testMessage = []byte("message to sign")

func commitment(id PartyID) string {
	return fmt.Sprintf("comm1:%d", id)
}

func secretShare(from, to PartyID) string {
	return fmt.Sprintf("share:%d->%d", from, to)
}

func localSig(id PartyID, msg []byte) string {
	return fmt.Sprintf("sig:%d:%x", id, msg)
}

func fakeGroupKey(id CeremonyID, parties []PartyID) []byte {
	return []byte(fmt.Sprintf("groupkey:%d:%v", id, parties))
}

func fakeSignature(msg []byte) []byte {
	return []byte("signature:" + hex.EncodeToString(msg))
}

// fakeProvider builds deterministic protocols whose payloads are readable strings.
// A party with badStage set sends garbage in that stage.
type fakeProvider struct {
	badStage int
}

func (f *fakeProvider) Keygen(params *KeygenParams) (Protocol, error) {
	return &fakeProtocol{kind: KeygenKind, id: params.CeremonyID, parties: params.Participants, self: params.Self, badStage: f.badStage}, nil
}

func (f *fakeProvider) Signing(params *SigningParams) (Protocol, error) {
	return &fakeProtocol{kind: SigningKind, id: params.CeremonyID, parties: params.Signers, self: params.Self, message: params.Message, badStage: f.badStage}, nil
}

type fakeProtocol struct {
	kind     Kind
	id       CeremonyID
	parties  *PartySet
	self     PartyIndex
	message  []byte
	badStage int
}

func (p *fakeProtocol) payload(stage int, s string) []byte {
	if stage == p.badStage {
		return []byte("bad:" + s)
	}
	return []byte(s)
}

func (p *fakeProtocol) expectAll(data map[PartyIndex][]byte, want func(PartyID) string, reason string) error {
	var bad []PartyIndex
	for i := 0; i < p.parties.Len(); i++ {
		idx := PartyIndex(i)
		if string(data[idx]) != want(p.parties.ID(idx)) {
			bad = append(bad, idx)
		}
	}
	if len(bad) > 0 {
		return NewBlameError(reason, bad...)
	}
	return nil
}

func (p *fakeProtocol) Init() (*Contribution, error) {
	return &Contribution{Broadcast: p.payload(1, commitment(p.parties.ID(p.self)))}, nil
}

func (p *fakeProtocol) Process(stage int, data map[PartyIndex][]byte) (*Output, error) {
	self := p.parties.ID(p.self)
	switch {
	case stage == 2:
		if err := p.expectAll(data, commitment, "invalid commitment"); err != nil {
			return nil, err
		}
		if p.kind == SigningKind {
			return &Output{Next: &Contribution{Broadcast: p.payload(3, localSig(self, p.message))}}, nil
		}
		shares := make(map[PartyIndex][]byte, p.parties.Len())
		for i := 0; i < p.parties.Len(); i++ {
			shares[PartyIndex(i)] = p.payload(3, secretShare(self, p.parties.ID(PartyIndex(i))))
		}
		return &Output{Next: &Contribution{Private: shares}}, nil
	case p.kind == KeygenKind && stage == 3:
		accused := make([]uint32, 0)
		for i := 0; i < p.parties.Len(); i++ {
			idx := PartyIndex(i)
			if string(data[idx]) != secretShare(p.parties.ID(idx), self) {
				accused = append(accused, uint32(idx))
			}
		}
		b, err := wire.MarshalCBOR(accused)
		if err != nil {
			return nil, err
		}
		return &Output{Next: &Contribution{Broadcast: b}}, nil
	case p.kind == KeygenKind && stage == 5:
		var accused []PartyIndex
		for idx, v := range data {
			var list []uint32
			if err := wire.UnmarshalCBOR(v, &list); err != nil {
				accused = append(accused, idx)
				continue
			}
			for _, a := range list {
				accused = append(accused, PartyIndex(a))
			}
		}
		if len(accused) > 0 {
			return nil, NewBlameError("complaints raised", accused...)
		}
		return &Output{Result: fakeGroupKey(p.id, p.parties.IDs()), Secret: []byte(fmt.Sprintf("secret:%d", self))}, nil
	case p.kind == SigningKind && stage == 4:
		want := func(id PartyID) string { return localSig(id, p.message) }
		if err := p.expectAll(data, want, "invalid signature share"); err != nil {
			return nil, err
		}
		return &Output{Result: fakeSignature(p.message)}, nil
	}
	return nil, fmt.Errorf("unexpected stage %d", stage)
}

type envelope struct {
	from    PartyID
	to      PartyID
	kind    Kind
	id      CeremonyID
	stage   int
	payload []byte
}

type testNode struct {
	id       PartyID
	manager  *Manager
	provider *fakeProvider
	keys     *keystore.MemoryStore
	logs     *observer.ObservedLogs
	outcomes []*Outcome
}

func (n *testNode) hasTag(tag string) bool {
	return n.logs.FilterField(zap.String(TagKey, tag)).Len() > 0
}

func (n *testNode) outcome(kind Kind, id CeremonyID) *Outcome {
	for _, o := range n.outcomes {
		if o.Kind == kind && o.CeremonyID == id {
			return o
		}
	}
	return nil
}

type testNetwork struct {
	t     *testing.T
	ids   []PartyID
	nodes map[PartyID]*testNode
	queue []envelope
	now   time.Time
}

func newTestNetwork(t *testing.T, ids ...PartyID) *testNetwork {
	n := &testNetwork{
		t:     t,
		ids:   ids,
		nodes: make(map[PartyID]*testNode, len(ids)),
		now:   time.Unix(1700000000, 0),
	}
	for _, id := range ids {
		id := id
		core, logs := observer.New(zapcore.DebugLevel)
		node := &testNode{
			id:       id,
			provider: &fakeProvider{},
			keys:     keystore.NewMemoryStore(),
			logs:     logs,
		}
		node.manager = NewManager(&Opts{
			Logger:   zap.New(core).Named(fmt.Sprintf("node-%d", id)),
			ID:       id,
			Provider: node.provider,
			Keys:     node.keys,
			SendF: func(o *Outgoing) {
				for _, r := range o.Receivers {
					n.queue = append(n.queue, envelope{from: id, to: r, kind: o.Kind, id: o.CeremonyID, stage: o.Stage, payload: o.Payload})
				}
			},
			OutcomeF: func(o *Outcome) {
				node.outcomes = append(node.outcomes, o)
			},
			Now: func() time.Time { return n.now },
		})
		n.nodes[id] = node
	}
	return n
}

// take removes and returns everything sent so far.
func (n *testNetwork) take() []envelope {
	q := n.queue
	n.queue = nil
	return q
}

// deliver hands envelopes to their receivers. A rule returning false drops the envelope, rules may rewrite the payload.
func (n *testNetwork) deliver(envs []envelope, rules ...func(e *envelope) bool) {
	for _, e := range envs {
		e := e
		keep := true
		for _, rule := range rules {
			if !rule(&e) {
				keep = false
				break
			}
		}
		node, ok := n.nodes[e.to]
		if !keep || !ok {
			continue
		}
		node.manager.ProcessMessage(&Message{CeremonyID: e.id, Kind: e.kind, Stage: e.stage, Sender: e.from, Payload: e.payload})
	}
}

// run delivers round after round until nothing is left in flight.
func (n *testNetwork) run(rules ...func(e *envelope) bool) {
	for len(n.queue) > 0 {
		n.deliver(n.take(), rules...)
	}
}

func (n *testNetwork) forceTimeout(ids ...PartyID) {
	for _, id := range ids {
		n.nodes[id].manager.ForceStageTimeout()
	}
}

func (n *testNetwork) keygen(id CeremonyID) keystore.KeyID {
	for _, pid := range n.ids {
		require.NoError(n.t, n.nodes[pid].manager.RequestToKeygen(&RequestToKeygen{CeremonyID: id, Participants: n.ids}))
	}
	n.run()
	want := keystore.KeyIDFromGroupKey(fakeGroupKey(id, sortedIDs(n.ids)))
	for _, pid := range n.ids {
		o := n.nodes[pid].outcome(KeygenKind, id)
		require.NotNil(n.t, o)
		require.True(n.t, o.Success(), "node %d blamed %v", pid, o.Blamed)
		require.Equal(n.t, want, o.KeyID)
	}
	return want
}

func (n *testNetwork) requestSign(id CeremonyID, keyID keystore.KeyID, signers ...PartyID) {
	for _, pid := range signers {
		require.NoError(n.t, n.nodes[pid].manager.RequestToSign(&RequestToSign{CeremonyID: id, KeyID: keyID, Message: testMessage, Signers: signers}))
	}
}

func (n *testNetwork) requireBlamed(kind Kind, id CeremonyID, nodes []PartyID, blamed ...PartyID) {
	for _, pid := range nodes {
		o := n.nodes[pid].outcome(kind, id)
		require.NotNil(n.t, o, "node %d has no outcome", pid)
		require.False(n.t, o.Success())
		require.Equal(n.t, blamed, o.Blamed, "node %d", pid)
	}
}

func (n *testNetwork) requireSigned(id CeremonyID, nodes ...PartyID) {
	for _, pid := range nodes {
		o := n.nodes[pid].outcome(SigningKind, id)
		require.NotNil(n.t, o, "node %d has no outcome", pid)
		require.True(n.t, o.Success(), "node %d blamed %v", pid, o.Blamed)
		require.Equal(n.t, fakeSignature(testMessage), o.Result)
		require.Equal(n.t, StageFinishedOrNotStarted, n.nodes[pid].manager.Stage(SigningKind, id))
	}
}

func sortedIDs(ids []PartyID) []PartyID {
	ps, err := NewPartySet(ids)
	if err != nil {
		panic(err)
	}
	return ps.IDs()
}

func from(id PartyID) func(e *envelope) bool {
	return func(e *envelope) bool { return e.from != id }
}

func link(src, dst PartyID) func(e *envelope) bool {
	return func(e *envelope) bool { return e.from != src || e.to != dst }
}

func to(id PartyID) func(e *envelope) bool {
	return func(e *envelope) bool { return e.to == id }
}

func notTo(id PartyID) func(e *envelope) bool {
	return func(e *envelope) bool { return e.to != id }
}
