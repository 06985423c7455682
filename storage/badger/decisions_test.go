package badger_test

import (
	"testing"

	badgerdb "github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/storage"
	badgerstorage "github.com/riffcc/pact/storage/badger"
	"github.com/riffcc/pact/utils/unittest"
)

func TestDecisionsStoreRetrieve(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		decisions := badgerstorage.NewDecisions(db)

		record := &pact.DecisionRecord{
			SessionID:   unittest.IdentifierFixture(),
			Decision:    pact.DecisionProceed,
			DecidedAtMS: 1700000000000,
			Receipt: &pact.Receipt{
				Own:  &pact.ReceiptHalf{Party: unittest.IdentifierFixture(), Sig: []byte("sig a")},
				Peer: &pact.ReceiptHalf{Party: unittest.IdentifierFixture(), Sig: []byte("sig b")},
			},
		}
		require.NoError(t, decisions.Store(record))

		retrieved, err := decisions.BySessionID(record.SessionID)
		require.NoError(t, err)
		assert.Equal(t, record, retrieved)
	})
}

// The decision invariant is write-once; the store enforces it at the
// persistence boundary too.
func TestDecisionsWriteOnce(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		decisions := badgerstorage.NewDecisions(db)
		sessionID := unittest.IdentifierFixture()

		first := &pact.DecisionRecord{SessionID: sessionID, Decision: pact.DecisionAbort}
		require.NoError(t, decisions.Store(first))

		flipped := &pact.DecisionRecord{SessionID: sessionID, Decision: pact.DecisionProceed}
		err := decisions.Store(flipped)
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		retrieved, err := decisions.BySessionID(sessionID)
		require.NoError(t, err)
		assert.Equal(t, pact.DecisionAbort, retrieved.Decision)
	})
}

func TestDecisionsNotFound(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		decisions := badgerstorage.NewDecisions(db)
		_, err := decisions.BySessionID(unittest.IdentifierFixture())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
