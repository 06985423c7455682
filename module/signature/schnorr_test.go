package signature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module/signature"
	"github.com/riffcc/pact/utils/unittest"
)

func TestSchnorrSignVerify(t *testing.T) {
	local, other := unittest.PartyPairFixture(t)
	msg := []byte("artifact body")

	sig, err := local.Sign(signature.CommitmentTag, msg)
	require.NoError(t, err)
	require.NoError(t, signature.Verify(local.Party(), signature.CommitmentTag, msg, sig))

	t.Run("wrong key", func(t *testing.T) {
		err := signature.Verify(other.Party(), signature.CommitmentTag, msg, sig)
		assert.ErrorIs(t, err, pact.ErrInvalidSignature)
	})

	t.Run("wrong message", func(t *testing.T) {
		err := signature.Verify(local.Party(), signature.CommitmentTag, []byte("tampered"), sig)
		assert.ErrorIs(t, err, pact.ErrInvalidSignature)
	})

	t.Run("garbage key", func(t *testing.T) {
		bogus := pact.NewParty([]byte("not a curve point"))
		err := signature.Verify(bogus, signature.CommitmentTag, msg, sig)
		assert.ErrorIs(t, err, pact.ErrInvalidSignature)
	})
}

// A signature produced under one domain tag must not verify under another,
// otherwise an artifact could be replayed as a different rung.
func TestSchnorrDomainSeparation(t *testing.T) {
	local, _ := unittest.PartyPairFixture(t)
	msg := []byte("artifact body")

	sig, err := local.Sign(signature.CommitmentTag, msg)
	require.NoError(t, err)

	err = signature.Verify(local.Party(), signature.DoubleProofTag, msg, sig)
	assert.ErrorIs(t, err, pact.ErrInvalidSignature)
}

func TestSchnorrNodeIDBoundToKey(t *testing.T) {
	local, _ := unittest.PartyPairFixture(t)
	assert.True(t, local.Party().Valid())
	assert.Equal(t, pact.HashToID(local.Party().Key), local.NodeID())
}
