package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffcc/pact/consensus/tracker"
	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module/metrics"
	"github.com/riffcc/pact/module/signature"
	"github.com/riffcc/pact/utils/unittest"
)

// committee builds one tracker per committee member for the given round.
func committee(t *testing.T, f int, round uint64) ([]*tracker.Tracker, []*signature.ThresholdProvider) {
	providers := unittest.CommitteeFixture(t, f)
	trackers := make([]*tracker.Tracker, len(providers))
	for i, provider := range providers {
		trackers[i] = tracker.New(unittest.Logger(), metrics.NewNoopCollector(), provider, round)
	}
	return trackers, providers
}

// shareFor produces a valid share from the given provider for a round value.
func shareFor(t *testing.T, provider *signature.ThresholdProvider, round uint64, value []byte) *pact.Share {
	t.Helper()
	digest := pact.Round{Number: round, Value: value}.Digest()
	sig, err := provider.SignShare(signature.RoundShareTag, digest[:])
	require.NoError(t, err)
	return &pact.Share{
		Round:       round,
		Digest:      digest,
		SignerIndex: uint16(provider.Index()),
		Signature:   sig,
	}
}

func TestTrackerHappyPath(t *testing.T) {
	trackers, providers := committee(t, 1, 1) // n=4, T=3
	value := []byte("proceed with settlement")

	own, _, err := trackers[0].OnProposal(value)
	require.NoError(t, err)
	require.NotNil(t, own)
	require.Equal(t, tracker.Sharing, trackers[0].State())

	cert, err := trackers[0].OnShare(shareFor(t, providers[1], 1, value))
	require.NoError(t, err)
	require.Nil(t, cert)

	cert, err = trackers[0].OnShare(shareFor(t, providers[2], 1, value))
	require.NoError(t, err)
	require.NotNil(t, cert)
	require.Equal(t, tracker.Committed, trackers[0].State())
	assert.Equal(t, value, cert.Value)

	// the certificate is verifiable by a node that saw none of the shares
	adopted, err := trackers[3].OnCommit(cert)
	require.NoError(t, err)
	require.True(t, adopted)
	require.Equal(t, tracker.Committed, trackers[3].State())
}

// On an unordered channel shares can outrun the proposal. A quorum already
// held when the value is adopted must yield the certificate immediately,
// without waiting for re-deliveries that would bounce off the duplicate
// check.
func TestTrackerAggregatesSharesReceivedBeforeProposal(t *testing.T) {
	trackers, providers := committee(t, 1, 1) // n=4, T=3
	value := []byte("value")

	for i := 1; i < 4; i++ {
		cert, err := trackers[0].OnShare(shareFor(t, providers[i], 1, value))
		require.NoError(t, err)
		require.Nil(t, cert)
	}
	require.Equal(t, tracker.AwaitingProposal, trackers[0].State())

	own, cert, err := trackers[0].OnProposal(value)
	require.NoError(t, err)
	require.NotNil(t, own)
	require.NotNil(t, cert)
	require.Equal(t, tracker.Committed, trackers[0].State())
	assert.Equal(t, value, cert.Value)

	// the certificate is the same one any other quorum would build
	adopted, err := trackers[3].OnCommit(cert)
	require.NoError(t, err)
	require.True(t, adopted)
}

// The own share produced at adoption may itself complete the quorum.
func TestTrackerOwnShareCompletesEarlyQuorum(t *testing.T) {
	trackers, providers := committee(t, 1, 1)
	value := []byte("value")

	for i := 1; i < 3; i++ {
		cert, err := trackers[0].OnShare(shareFor(t, providers[i], 1, value))
		require.NoError(t, err)
		require.Nil(t, cert)
	}

	_, cert, err := trackers[0].OnProposal(value)
	require.NoError(t, err)
	require.NotNil(t, cert)
	require.Equal(t, tracker.Committed, trackers[0].State())
}

// A certificate must be identical regardless of which quorum produced it.
func TestTrackerCertificateDeterministic(t *testing.T) {
	trackers, providers := committee(t, 1, 1)
	value := []byte("value")

	_, _, err := trackers[0].OnProposal(value)
	require.NoError(t, err)
	_, _, err = trackers[3].OnProposal(value)
	require.NoError(t, err)

	// tracker 0 aggregates shares 0,1,2; tracker 3 aggregates 1,2,3
	_, err = trackers[0].OnShare(shareFor(t, providers[1], 1, value))
	require.NoError(t, err)
	certA, err := trackers[0].OnShare(shareFor(t, providers[2], 1, value))
	require.NoError(t, err)

	_, err = trackers[3].OnShare(shareFor(t, providers[1], 1, value))
	require.NoError(t, err)
	certB, err := trackers[3].OnShare(shareFor(t, providers[2], 1, value))
	require.NoError(t, err)

	require.NotNil(t, certA)
	require.NotNil(t, certB)
	assert.Equal(t, certA.Signature, certB.Signature)
	assert.Equal(t, certA.ID(), certB.ID())
}

// With n=4 and T=3, one equivocating signer cannot yield certificates for
// two values: the honest majority splits 3/0 at worst, never 3/3.
func TestTrackerConflictingCertificatesUnconstructible(t *testing.T) {
	trackers, providers := committee(t, 1, 1)
	valueA := []byte("value A")
	valueB := []byte("value B")

	// collector 0 adopts A, collector 3 adopts B
	_, _, err := trackers[0].OnProposal(valueA)
	require.NoError(t, err)
	_, _, err = trackers[3].OnProposal(valueB)
	require.NoError(t, err)

	// signer 1 equivocates: shares for both values; signer 2 is honest on A
	certA, err := trackers[0].OnShare(shareFor(t, providers[1], 1, valueA))
	require.NoError(t, err)
	require.Nil(t, certA)
	certA, err = trackers[0].OnShare(shareFor(t, providers[2], 1, valueA))
	require.NoError(t, err)
	require.NotNil(t, certA)

	// collector 3 holds shares for B from itself and the equivocator only:
	// one short of quorum, and no third signer exists for B
	certB, err := trackers[3].OnShare(shareFor(t, providers[1], 1, valueB))
	require.NoError(t, err)
	require.Nil(t, certB)
	require.Equal(t, tracker.Sharing, trackers[3].State())
}

func TestTrackerEquivocationEvidence(t *testing.T) {
	trackers, providers := committee(t, 1, 1)
	valueA := []byte("value A")
	valueB := []byte("value B")

	_, _, err := trackers[0].OnProposal(valueA)
	require.NoError(t, err)

	_, err = trackers[0].OnShare(shareFor(t, providers[1], 1, valueA))
	require.NoError(t, err)

	// the same signer's share over a different value is rejected for
	// aggregation but retained as evidence
	_, err = trackers[0].OnShare(shareFor(t, providers[1], 1, valueB))
	assert.ErrorIs(t, err, pact.ErrValueMismatch)

	evidence := trackers[0].Evidence()
	require.Len(t, evidence, 1)
	assert.Equal(t, uint16(providers[1].Index()), evidence[0].SignerIndex)
	assert.True(t, evidence[0].Valid())
}

func TestTrackerRejections(t *testing.T) {
	trackers, providers := committee(t, 1, 1)
	value := []byte("value")

	t.Run("round mismatch", func(t *testing.T) {
		_, err := trackers[0].OnShare(shareFor(t, providers[1], 9, value))
		assert.ErrorIs(t, err, pact.ErrRoundMismatch)
	})

	t.Run("empty proposal", func(t *testing.T) {
		_, _, err := trackers[0].OnProposal(nil)
		assert.True(t, pact.IsInvalidArtifactError(err))
	})

	t.Run("index mismatch", func(t *testing.T) {
		s := shareFor(t, providers[1], 1, value)
		s.SignerIndex = 2
		_, err := trackers[0].OnShare(s)
		assert.True(t, pact.IsInvalidArtifactError(err))
	})

	t.Run("corrupted signature", func(t *testing.T) {
		s := shareFor(t, providers[1], 1, value)
		s.Signature[len(s.Signature)-1] ^= 0xff
		_, err := trackers[0].OnShare(s)
		assert.ErrorIs(t, err, pact.ErrInvalidSignature)
	})

	t.Run("duplicate share", func(t *testing.T) {
		_, _, err := trackers[0].OnProposal(value)
		require.NoError(t, err)
		s := shareFor(t, providers[1], 1, value)
		_, err = trackers[0].OnShare(s)
		require.NoError(t, err)
		_, err = trackers[0].OnShare(s)
		assert.ErrorIs(t, err, pact.ErrDuplicateArtifact)
	})

	t.Run("second proposal ignored", func(t *testing.T) {
		_, _, err := trackers[0].OnProposal([]byte("a different value"))
		assert.ErrorIs(t, err, pact.ErrDuplicateArtifact)
		assert.Equal(t, value, trackers[0].Value())
	})
}

func TestTrackerRejectsForgedCommit(t *testing.T) {
	trackers, _ := committee(t, 1, 1)

	forged := &pact.Certificate{
		Round:     1,
		Value:     []byte("value"),
		Signature: []byte("not a group signature"),
	}
	adopted, err := trackers[0].OnCommit(forged)
	assert.False(t, adopted)
	assert.ErrorIs(t, err, pact.ErrInvalidSignature)
	assert.Equal(t, tracker.AwaitingProposal, trackers[0].State())
}

// An observer collects and combines without contributing a share.
func TestTrackerObserver(t *testing.T) {
	_, providers := committee(t, 1, 1)
	observer := tracker.New(unittest.Logger(), metrics.NewNoopCollector(), unittest.ObserverFixture(t, providers[0]), 1)
	value := []byte("value")

	own, _, err := observer.OnProposal(value)
	require.NoError(t, err)
	require.Nil(t, own)

	for i := 0; i < 2; i++ {
		cert, err := observer.OnShare(shareFor(t, providers[i], 1, value))
		require.NoError(t, err)
		require.Nil(t, cert)
	}
	cert, err := observer.OnShare(shareFor(t, providers[2], 1, value))
	require.NoError(t, err)
	require.NotNil(t, cert)
}
