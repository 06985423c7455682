package unittest

import (
	"crypto/cipher"
	crand "crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/xof/blake2xb"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module/signature"
)

func IdentifierFixture() pact.Identifier {
	var id pact.Identifier
	_, _ = crand.Read(id[:])
	return id
}

func IdentifierListFixture(n int) pact.IdentifierList {
	list := make(pact.IdentifierList, n)
	for i := 0; i < n; i++ {
		list[i] = IdentifierFixture()
	}
	return list
}

func PayloadFixture(n int) []byte {
	payload := make([]byte, n)
	_, _ = crand.Read(payload)
	return payload
}

// RandomStream returns a deterministic randomness source for key fixtures,
// so tests that need reproducibility can seed it.
func RandomStream(seed ...byte) cipher.Stream {
	if len(seed) == 0 {
		seed = []byte("pact-unittest")
	}
	return blake2xb.New(seed)
}

func SchnorrLocalFixture(t testing.TB, rng cipher.Stream) *signature.SchnorrLocal {
	local, err := signature.GenerateSchnorrLocal(rng)
	require.NoError(t, err)
	return local
}

// PartyPairFixture creates the two keyed locals of a bilateral session,
// with fresh random keys on every call.
func PartyPairFixture(t testing.TB) (*signature.SchnorrLocal, *signature.SchnorrLocal) {
	return SchnorrLocalFixture(t, nil), SchnorrLocalFixture(t, nil)
}

// CommitteeFixture deals threshold keys for a committee tolerating f
// faults: n = 3f+1 members, threshold T = 2f+1. It returns one provider per
// member, index-aligned.
func CommitteeFixture(t testing.TB, f int, seed ...byte) []*signature.ThresholdProvider {
	n := 3*f + 1
	threshold := 2*f + 1

	public, shares, err := signature.GenerateThresholdKeys(threshold, n, RandomStream(seed...))
	require.NoError(t, err)

	providers := make([]*signature.ThresholdProvider, n)
	for i := 0; i < n; i++ {
		providers[i], err = signature.NewThresholdProvider(public, shares[i], threshold, n)
		require.NoError(t, err)
	}
	return providers
}

// ObserverFixture creates a provider holding the committee's public key but
// no private share: it verifies and combines, but cannot sign.
func ObserverFixture(t testing.TB, member *signature.ThresholdProvider) *signature.ThresholdProvider {
	observer, err := signature.NewThresholdProvider(member.Public(), nil, member.Threshold(), member.Size())
	require.NoError(t, err)
	return observer
}
