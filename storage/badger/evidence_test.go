package badger_test

import (
	"testing"

	badgerdb "github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffcc/pact/model/pact"
	badgerstorage "github.com/riffcc/pact/storage/badger"
	"github.com/riffcc/pact/utils/unittest"
)

func equivocationFixture(round uint64, signer uint16) *pact.Equivocation {
	return &pact.Equivocation{
		Round:       round,
		SignerIndex: signer,
		First:       &pact.Share{Round: round, Digest: unittest.IdentifierFixture(), SignerIndex: signer, Signature: []byte{0, byte(signer), 1}},
		Second:      &pact.Share{Round: round, Digest: unittest.IdentifierFixture(), SignerIndex: signer, Signature: []byte{0, byte(signer), 2}},
	}
}

func TestEvidenceStoreAndRetrieveByRound(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		evidence := badgerstorage.NewEvidence(db)

		inRound := []*pact.Equivocation{
			equivocationFixture(5, 1),
			equivocationFixture(5, 2),
		}
		other := equivocationFixture(6, 1)

		for _, ev := range append(inRound, other) {
			require.NoError(t, evidence.Store(ev))
		}

		retrieved, err := evidence.ByRound(5)
		require.NoError(t, err)
		assert.ElementsMatch(t, inRound, retrieved)

		retrieved, err = evidence.ByRound(6)
		require.NoError(t, err)
		assert.ElementsMatch(t, []*pact.Equivocation{other}, retrieved)
	})
}

// Evidence is content-addressed; re-storing the same equivocation must not
// create a second entry.
func TestEvidenceStoreIdempotent(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		evidence := badgerstorage.NewEvidence(db)
		ev := equivocationFixture(7, 3)

		require.NoError(t, evidence.Store(ev))
		require.NoError(t, evidence.Store(ev))

		retrieved, err := evidence.ByRound(7)
		require.NoError(t, err)
		assert.Len(t, retrieved, 1)
	})
}

func TestEvidenceEmptyRound(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		evidence := badgerstorage.NewEvidence(db)
		retrieved, err := evidence.ByRound(99)
		require.NoError(t, err)
		assert.Empty(t, retrieved)
	})
}
