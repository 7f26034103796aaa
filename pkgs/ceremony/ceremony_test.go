package ceremony

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	nodeA PartyID = 1
	nodeB PartyID = 2
	nodeC PartyID = 3
	nodeD PartyID = 4
)

var allNodes = []PartyID{nodeA, nodeB, nodeC, nodeD}

func TestSignWithAllParties(t *testing.T) {
	n := newTestNetwork(t, allNodes...)
	keyID := n.keygen(1)
	for _, id := range allNodes {
		k, err := n.nodes[id].keys.Get(keyID)
		require.NoError(t, err)
		require.Equal(t, 3, k.Threshold)
		require.Equal(t, []uint64{1, 2, 3, 4}, k.Participants)
	}

	n.requestSign(1, keyID, allNodes...)
	n.run()
	n.requireSigned(1, allNodes...)
}

func TestSignWithThresholdSubset(t *testing.T) {
	n := newTestNetwork(t, allNodes...)
	keyID := n.keygen(1)
	n.requestSign(1, keyID, nodeA, nodeB, nodeC)
	n.run()
	n.requireSigned(1, nodeA, nodeB, nodeC)
	require.Nil(t, n.nodes[nodeD].outcome(SigningKind, 1))
}

func TestShouldDelayStageData(t *testing.T) {
	for stage := 1; stage < len(SigningStages); stage++ {
		stage := stage
		t.Run(SigningStages[stage-1].Name, func(t *testing.T) {
			n := newTestNetwork(t, allNodes...)
			keyID := n.keygen(1)
			n.requestSign(1, keyID, allNodes...)

			msgs := n.take()
			for s := 1; s < stage; s++ {
				n.deliver(msgs)
				msgs = n.take()
			}
			// everyone but A completes the stage
			n.deliver(msgs, notTo(nodeA))
			next := n.take()
			require.Equal(t, stage, n.nodes[nodeA].manager.Stage(SigningKind, 1))

			// A gets the next stage data first: it must be delayed
			n.deliver(next, to(nodeA))
			require.Equal(t, stage, n.nodes[nodeA].manager.Stage(SigningKind, 1))

			// the late data for the current stage unblocks A, and the delayed data completes the next one
			n.deliver(msgs, to(nodeA))
			want := stage + 2
			if want > len(SigningStages) {
				want = StageFinishedOrNotStarted
			}
			require.Equal(t, want, n.nodes[nodeA].manager.Stage(SigningKind, 1))
		})
	}
}

func TestShouldDelayComm1BeforeAuthorization(t *testing.T) {
	n := newTestNetwork(t, allNodes...)
	keyID := n.keygen(1)
	signers := allNodes
	for _, id := range []PartyID{nodeB, nodeC, nodeD} {
		require.NoError(t, n.nodes[id].manager.RequestToSign(&RequestToSign{CeremonyID: 1, KeyID: keyID, Message: testMessage, Signers: signers}))
	}
	msgs := n.take()
	n.deliver(msgs, to(nodeA))
	a := n.nodes[nodeA].manager
	require.Equal(t, StageFinishedOrNotStarted, a.Stage(SigningKind, 1))
	require.Equal(t, 1, a.UnauthorizedCount(SigningKind))
	require.False(t, a.Used(SigningKind, 1))

	require.NoError(t, a.RequestToSign(&RequestToSign{CeremonyID: 1, KeyID: keyID, Message: testMessage, Signers: signers}))
	require.Equal(t, 2, a.Stage(SigningKind, 1))
	require.Equal(t, 0, a.UnauthorizedCount(SigningKind))
	require.True(t, a.Used(SigningKind, 1))

	n.deliver(msgs, notTo(nodeA))
	n.run()
	n.requireSigned(1, allNodes...)
}

func TestShouldHandleInvalidLocalSig(t *testing.T) {
	n := newTestNetwork(t, allNodes...)
	keyID := n.keygen(1)
	n.nodes[nodeB].provider.badStage = 3
	n.requestSign(1, keyID, allNodes...)
	n.run()
	n.requireBlamed(SigningKind, 1, []PartyID{nodeA, nodeC, nodeD}, nodeB)
	for _, id := range allNodes {
		require.True(t, n.nodes[id].hasTag(TagSigningCeremonyFailed))
	}
}

func inconsistentBroadcast(src PartyID, stage int) func(e *envelope) bool {
	return func(e *envelope) bool {
		if e.from == src && e.stage == stage {
			e.payload = append(append([]byte{}, e.payload...), byte(e.to))
		}
		return true
	}
}

func TestShouldHandleInconsistentBroadcastComm1(t *testing.T) {
	n := newTestNetwork(t, allNodes...)
	keyID := n.keygen(1)
	n.requestSign(1, keyID, allNodes...)
	n.run(inconsistentBroadcast(nodeB, 1))
	n.requireBlamed(SigningKind, 1, allNodes, nodeB)
}

func TestShouldHandleInconsistentBroadcastSig3(t *testing.T) {
	n := newTestNetwork(t, allNodes...)
	keyID := n.keygen(1)
	n.requestSign(1, keyID, allNodes...)
	n.run(inconsistentBroadcast(nodeC, 3))
	n.requireBlamed(SigningKind, 1, allNodes, nodeC)
}

func TestShouldIgnoreUnexpectedMessageForStage(t *testing.T) {
	for stage := 1; stage <= len(SigningStages); stage++ {
		stage := stage
		t.Run(SigningStages[stage-1].Name, func(t *testing.T) {
			n := newTestNetwork(t, allNodes...)
			outsider := PartyID(5)
			keyID := n.keygen(1)
			// D holds a key share but is not a signer in this ceremony
			n.requestSign(1, keyID, nodeA, nodeB, nodeC)

			msgs := n.take()
			for s := 1; s < stage; s++ {
				n.deliver(msgs)
				msgs = n.take()
			}
			a := n.nodes[nodeA].manager
			require.Equal(t, stage, a.Stage(SigningKind, 1))

			var fromB, fromC envelope
			for _, e := range msgs {
				if e.to != nodeA {
					continue
				}
				if e.from == nodeB {
					fromB = e
				}
				if e.from == nodeC {
					fromC = e
				}
			}
			require.Equal(t, stage, fromB.stage)

			// stages other than current and current+1
			for ignored := 1; ignored <= len(SigningStages)+1; ignored++ {
				if ignored == stage || ignored == stage+1 {
					continue
				}
				a.ProcessMessage(&Message{CeremonyID: 1, Kind: SigningKind, Stage: ignored, Sender: nodeB, Payload: fromB.payload})
				require.Equal(t, stage, a.Stage(SigningKind, 1))
			}

			a.ProcessMessage(&Message{CeremonyID: 1, Kind: SigningKind, Stage: stage, Sender: nodeB, Payload: fromB.payload})
			require.Equal(t, stage, a.Stage(SigningKind, 1))

			// duplicate from B
			a.ProcessMessage(&Message{CeremonyID: 1, Kind: SigningKind, Stage: stage, Sender: nodeB, Payload: fromC.payload})
			require.Equal(t, stage, a.Stage(SigningKind, 1))
			require.True(t, n.nodes[nodeA].hasTag(TagDuplicateStageMessage))

			// unknown account and a key holder that is not signing
			for _, sender := range []PartyID{outsider, nodeD} {
				a.ProcessMessage(&Message{CeremonyID: 1, Kind: SigningKind, Stage: stage, Sender: sender, Payload: fromC.payload})
				require.Equal(t, stage, a.Stage(SigningKind, 1))
			}
			require.True(t, n.nodes[nodeA].hasTag(TagUnknownSender))

			// from itself
			a.ProcessMessage(&Message{CeremonyID: 1, Kind: SigningKind, Stage: stage, Sender: nodeA, Payload: fromC.payload})
			require.Equal(t, stage, a.Stage(SigningKind, 1))

			a.ProcessMessage(&Message{CeremonyID: 1, Kind: SigningKind, Stage: stage, Sender: nodeC, Payload: fromC.payload})
			want := stage + 1
			if want > len(SigningStages) {
				want = StageFinishedOrNotStarted
			}
			require.Equal(t, want, a.Stage(SigningKind, 1))
		})
	}
}

func TestRecoverIfPartyAppearsOfflineToMinority(t *testing.T) {
	for _, stage := range []int{1, 3} {
		stage := stage
		t.Run(SigningStages[stage-1].Name, func(t *testing.T) {
			n := newTestNetwork(t, allNodes...)
			keyID := n.keygen(1)
			n.requestSign(1, keyID, nodeA, nodeB, nodeC)

			msgs := n.take()
			for s := 1; s < stage; s++ {
				n.deliver(msgs)
				msgs = n.take()
			}
			// B's data never reaches A
			n.deliver(msgs, link(nodeB, nodeA))
			require.Equal(t, stage, n.nodes[nodeA].manager.Stage(SigningKind, 1))
			n.forceTimeout(nodeA)
			require.Equal(t, stage+1, n.nodes[nodeA].manager.Stage(SigningKind, 1))
			require.True(t, n.nodes[nodeA].hasTag(TagStageTimedOut))

			n.run()
			n.requireSigned(1, nodeA, nodeB, nodeC)
		})
	}
}

func TestOfflinePartyShouldBeReported(t *testing.T) {
	for _, stage := range []int{1, 3} {
		stage := stage
		t.Run(SigningStages[stage-1].Name, func(t *testing.T) {
			n := newTestNetwork(t, allNodes...)
			keyID := n.keygen(1)
			n.requestSign(1, keyID, allNodes...)

			msgs := n.take()
			for s := 1; s < stage; s++ {
				n.deliver(msgs)
				msgs = n.take()
			}
			// D sends nothing to anyone
			n.deliver(msgs, from(nodeD))
			n.forceTimeout(nodeA, nodeB, nodeC)
			n.run()
			n.requireBlamed(SigningKind, 1, allNodes, nodeD)
		})
	}
}

func TestRecoverIfAgreeOnValues(t *testing.T) {
	for _, stage := range []int{2, 4} {
		stage := stage
		t.Run(SigningStages[stage-1].Name, func(t *testing.T) {
			n := newTestNetwork(t, allNodes...)
			keyID := n.keygen(1)
			n.requestSign(1, keyID, nodeA, nodeB, nodeC)

			msgs := n.take()
			for s := 1; s < stage; s++ {
				n.deliver(msgs)
				msgs = n.take()
			}
			// B's verification report is lost
			n.deliver(msgs, from(nodeB))
			n.forceTimeout(nodeA, nodeC)
			n.run()
			n.requireSigned(1, nodeA, nodeB, nodeC)
		})
	}
}

func TestReportIfCannotAgreeOnValues(t *testing.T) {
	for _, stage := range []int{2, 4} {
		stage := stage
		t.Run(SigningStages[stage-1].Name, func(t *testing.T) {
			n := newTestNetwork(t, allNodes...)
			keyID := n.keygen(1)
			signers := []PartyID{nodeA, nodeB, nodeC}
			n.requestSign(1, keyID, signers...)
			bad1, bad2 := nodeA, nodeB

			msgs := n.take()
			for s := 1; s < stage-1; s++ {
				n.deliver(msgs)
				msgs = n.take()
			}
			// bad1 sends no contribution
			n.deliver(msgs, from(bad1))
			n.forceTimeout(bad2, nodeC)
			msgs = n.take()
			// bad2 sends no verification report
			n.deliver(msgs, from(bad2))
			n.forceTimeout(bad1, nodeC)
			n.run()
			// bad2 is not blamed for its own silence
			n.requireBlamed(SigningKind, 1, signers, bad1)
		})
	}
}

func TestStageTimeoutOnTimerTick(t *testing.T) {
	n := newTestNetwork(t, allNodes...)
	keyID := n.keygen(1)
	n.requestSign(1, keyID, allNodes...)
	n.deliver(n.take(), from(nodeD))

	a := n.nodes[nodeA].manager
	a.OnTimerTick()
	require.Equal(t, 1, a.Stage(SigningKind, 1))

	n.now = n.now.Add(DefaultStageTimeout - time.Second)
	a.OnTimerTick()
	require.Equal(t, 1, a.Stage(SigningKind, 1))

	n.now = n.now.Add(time.Second)
	a.OnTimerTick()
	require.Equal(t, 2, a.Stage(SigningKind, 1))
}
