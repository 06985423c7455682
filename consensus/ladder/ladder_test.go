package ladder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffcc/pact/consensus/ladder"
	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module/signature"
	"github.com/riffcc/pact/utils/unittest"
)

// ladderPair wires two ladders for the same payload into one test harness.
type ladderPair struct {
	alice *ladder.Ladder
	bob   *ladder.Ladder
}

func newLadderPair(t *testing.T, payload []byte) *ladderPair {
	log := unittest.Logger()
	alice, bob := unittest.PartyPairFixture(t)

	pair := &ladderPair{
		alice: ladder.New(log, alice, bob.Party(), payload),
		bob:   ladder.New(log, bob, alice.Party(), payload),
	}
	_, err := pair.alice.Bootstrap()
	require.NoError(t, err)
	_, err = pair.bob.Bootstrap()
	require.NoError(t, err)
	return pair
}

// deliver feeds one artifact into the receiving ladder via the handler
// matching its rung.
func deliver(t *testing.T, to *ladder.Ladder, artifact pact.Artifact) (bool, error) {
	t.Helper()
	switch a := artifact.(type) {
	case *pact.Commitment:
		return to.OnCommitment(a)
	case *pact.DoubleProof:
		return to.OnDoubleProof(a)
	case *pact.TripleProof:
		return to.OnTripleProof(a)
	case *pact.ReceiptHalf:
		return to.OnReceiptHalf(a)
	default:
		t.Fatalf("unexpected artifact type %T", artifact)
		return false, nil
	}
}

// exchange delivers every outstanding artifact of each side to the other,
// returning whether anything advanced.
func (p *ladderPair) exchange(t *testing.T) bool {
	t.Helper()
	advanced := false
	for _, artifact := range p.alice.Outstanding() {
		moved, err := deliver(t, p.bob, artifact)
		if err == nil && moved {
			advanced = true
		}
	}
	for _, artifact := range p.bob.Outstanding() {
		moved, err := deliver(t, p.alice, artifact)
		if err == nil && moved {
			advanced = true
		}
	}
	return advanced
}

func TestLadderClimbsToCompletion(t *testing.T) {
	pair := newLadderPair(t, []byte("meet at dawn"))

	require.Equal(t, pact.PhaseCommitment, pair.alice.Phase())
	require.Equal(t, pact.PhaseInit, pair.alice.PeerPhase())

	// each full exchange lets both sides cascade as far as their new
	// information allows; two exchanges reach Ready on both sides
	for i := 0; i < 4 && !(pair.alice.Complete() && pair.bob.Complete()); i++ {
		pair.exchange(t)
	}

	require.True(t, pair.alice.Complete())
	require.True(t, pair.bob.Complete())
	require.Equal(t, pact.PhaseReady, pair.alice.Phase())
	require.Equal(t, pact.PhaseReady, pair.bob.Phase())

	mine, err := pair.alice.Receipt()
	require.NoError(t, err)
	theirs, err := pair.bob.Receipt()
	require.NoError(t, err)
	assert.Equal(t, mine.ID(), theirs.ID())
}

func TestLadderBootstrapOnce(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))
	_, err := pair.alice.Bootstrap()
	assert.ErrorIs(t, err, pact.ErrDuplicateArtifact)
}

func TestLadderRejectsUnknownParty(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))
	stranger, _ := unittest.PartyPairFixture(t)

	commitment := &pact.Commitment{Party: stranger.NodeID(), Payload: []byte("payload")}
	sig, err := stranger.Sign(signature.CommitmentTag, commitment.Signable())
	require.NoError(t, err)
	commitment.Sig = sig

	advanced, err := pair.alice.OnCommitment(commitment)
	assert.False(t, advanced)
	assert.True(t, pact.IsInvalidArtifactError(err))
	assert.Equal(t, pact.PhaseInit, pair.alice.PeerPhase())
}

func TestLadderRejectsBadSignature(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))

	peerCommitment := pair.bob.Outstanding()[0].(*pact.Commitment)
	forged := &pact.Commitment{
		Party:   peerCommitment.Party,
		Payload: peerCommitment.Payload,
		Sig:     []byte("forged"),
	}
	advanced, err := pair.alice.OnCommitment(forged)
	assert.False(t, advanced)
	assert.ErrorIs(t, err, pact.ErrInvalidSignature)
}

func TestLadderDuplicateIsIdempotent(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))
	peerCommitment := pair.bob.Outstanding()[0].(*pact.Commitment)

	advanced, err := pair.alice.OnCommitment(peerCommitment)
	require.NoError(t, err)
	require.True(t, advanced)
	require.Equal(t, pact.PhaseDouble, pair.alice.Phase())

	advanced, err = pair.alice.OnCommitment(peerCommitment)
	assert.False(t, advanced)
	assert.ErrorIs(t, err, pact.ErrDuplicateArtifact)
	assert.Equal(t, pact.PhaseDouble, pair.alice.Phase())
}

func TestLadderRejectsPhaseSkip(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))

	// advance only bob so he can construct a double proof
	aliceCommitment := pair.alice.Outstanding()[0].(*pact.Commitment)
	_, err := pair.bob.OnCommitment(aliceCommitment)
	require.NoError(t, err)

	var peerDouble *pact.DoubleProof
	for _, artifact := range pair.bob.Outstanding() {
		if double, ok := artifact.(*pact.DoubleProof); ok {
			peerDouble = double
		}
	}
	require.NotNil(t, peerDouble)

	// alice never saw bob's commitment; the double must wait
	advanced, err := pair.alice.OnDoubleProof(peerDouble)
	assert.False(t, advanced)
	assert.True(t, pact.IsPhaseViolationError(err))
}

func TestLadderRejectsForeignReferences(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))
	other := newLadderPair(t, []byte("payload"))

	// complete an unrelated session between two different parties and try
	// to cross-feed its double proof
	for i := 0; i < 4; i++ {
		other.exchange(t)
	}

	aliceCommitment := pair.alice.Outstanding()[0].(*pact.Commitment)
	bobCommitment := pair.bob.Outstanding()[0].(*pact.Commitment)
	_, err := pair.alice.OnCommitment(bobCommitment)
	require.NoError(t, err)
	_, err = pair.bob.OnCommitment(aliceCommitment)
	require.NoError(t, err)

	// a structurally fine double proof whose references point at another
	// session's commitments
	rebound := &pact.DoubleProof{
		Party:          bobCommitment.Party,
		OwnCommitment:  unittest.IdentifierFixture(),
		PeerCommitment: aliceCommitment.ID(),
	}
	advanced, err := pair.alice.OnDoubleProof(rebound)
	assert.False(t, advanced)
	assert.True(t, pact.IsInvalidArtifactError(err))
}

// Outstanding must shrink as the peer evidences possession: an artifact at
// rung k embeds our rung k-1 artifact, so receiving it retires the rung
// below.
func TestLadderOutstandingRetires(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))

	require.Len(t, pair.alice.Outstanding(), 1)

	pair.exchange(t)

	// both sides now hold the peer double; the own commitment is evidenced
	// and retired while double and triple remain outstanding
	var levels []pact.Phase
	for _, artifact := range pair.alice.Outstanding() {
		levels = append(levels, artifact.Level())
	}
	assert.NotContains(t, levels, pact.PhaseCommitment)

	for i := 0; i < 4; i++ {
		pair.exchange(t)
	}
	require.True(t, pair.alice.Complete())

	// at completion only the own receipt half remains outstanding; the
	// peer's half never evidences it
	outstanding := pair.alice.Outstanding()
	require.Len(t, outstanding, 1)
	assert.Equal(t, pact.PhaseReady, outstanding[0].Level())
}

func TestLadderReceiptBeforeCompletion(t *testing.T) {
	pair := newLadderPair(t, []byte("payload"))
	_, err := pair.alice.Receipt()
	assert.ErrorIs(t, err, pact.ErrNoDecision)
}
