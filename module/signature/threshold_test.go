package signature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module/signature"
	"github.com/riffcc/pact/utils/unittest"
)

func TestThresholdSignCombineVerify(t *testing.T) {
	providers := unittest.CommitteeFixture(t, 1) // n=4, T=3
	digest := pact.MakeID(pact.Round{Number: 1, Value: []byte("value")})

	sigs := make([][]byte, 0, 3)
	for _, provider := range providers[:3] {
		sig, err := provider.SignShare(signature.RoundShareTag, digest[:])
		require.NoError(t, err)
		require.NoError(t, provider.VerifyShare(signature.RoundShareTag, digest[:], sig))

		index, err := signature.ShareIndex(sig)
		require.NoError(t, err)
		require.Equal(t, provider.Index(), int(index))

		sigs = append(sigs, sig)
	}

	combined, err := providers[0].Combine(signature.RoundShareTag, digest[:], sigs)
	require.NoError(t, err)
	require.NoError(t, providers[3].VerifyCombined(signature.RoundShareTag, digest[:], combined))
}

// Any quorum of distinct shares must recover the identical group signature,
// which is what makes the certificate deterministic.
func TestThresholdCombineDeterministic(t *testing.T) {
	providers := unittest.CommitteeFixture(t, 1)
	digest := pact.MakeID(pact.Round{Number: 2, Value: []byte("value")})

	sigs := make([][]byte, len(providers))
	for i, provider := range providers {
		var err error
		sigs[i], err = provider.SignShare(signature.RoundShareTag, digest[:])
		require.NoError(t, err)
	}

	first, err := providers[0].Combine(signature.RoundShareTag, digest[:], sigs[:3])
	require.NoError(t, err)
	second, err := providers[0].Combine(signature.RoundShareTag, digest[:], sigs[1:])
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestThresholdCombineRejectsBelowQuorum(t *testing.T) {
	providers := unittest.CommitteeFixture(t, 1)
	digest := pact.MakeID(pact.Round{Number: 3, Value: []byte("value")})

	sigOne, err := providers[0].SignShare(signature.RoundShareTag, digest[:])
	require.NoError(t, err)
	sigTwo, err := providers[1].SignShare(signature.RoundShareTag, digest[:])
	require.NoError(t, err)

	_, err = providers[0].Combine(signature.RoundShareTag, digest[:], [][]byte{sigOne, sigTwo})
	assert.ErrorIs(t, err, signature.ErrInsufficientShares)

	// repeats of one signer must not count toward the quorum
	_, err = providers[0].Combine(signature.RoundShareTag, digest[:], [][]byte{sigOne, sigOne, sigTwo})
	assert.ErrorIs(t, err, signature.ErrDuplicatedSigner)
}

func TestThresholdShareValidation(t *testing.T) {
	providers := unittest.CommitteeFixture(t, 1)
	digest := pact.MakeID(pact.Round{Number: 4, Value: []byte("value")})

	sig, err := providers[0].SignShare(signature.RoundShareTag, digest[:])
	require.NoError(t, err)

	t.Run("wrong message", func(t *testing.T) {
		other := pact.MakeID(pact.Round{Number: 4, Value: []byte("other")})
		assert.Error(t, providers[1].VerifyShare(signature.RoundShareTag, other[:], sig))
	})

	t.Run("truncated share", func(t *testing.T) {
		_, err := signature.ShareIndex([]byte{0x01})
		assert.ErrorIs(t, err, signature.ErrInvalidFormat)
	})
}

func TestThresholdObserver(t *testing.T) {
	providers := unittest.CommitteeFixture(t, 1)
	observer := unittest.ObserverFixture(t, providers[0])
	digest := pact.MakeID(pact.Round{Number: 5, Value: []byte("value")})

	require.Equal(t, -1, observer.Index())
	_, err := observer.SignShare(signature.RoundShareTag, digest[:])
	require.Error(t, err)

	sigs := make([][]byte, 3)
	for i := 0; i < 3; i++ {
		sigs[i], err = providers[i].SignShare(signature.RoundShareTag, digest[:])
		require.NoError(t, err)
	}
	combined, err := observer.Combine(signature.RoundShareTag, digest[:], sigs)
	require.NoError(t, err)
	require.NoError(t, observer.VerifyCombined(signature.RoundShareTag, digest[:], combined))
}
