package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/riffcc/pact/model/pact"
)

// InsertDecision stores a terminal decision record, keyed by session.
// Decisions are write-once, so insertion of a second record for the same
// session fails with storage.ErrAlreadyExists.
func InsertDecision(sessionID pact.Identifier, record *pact.DecisionRecord) func(*badger.Txn) error {
	return insert(makePrefix(codeDecision, sessionID), record)
}

// RetrieveDecision retrieves the decision record for a session.
func RetrieveDecision(sessionID pact.Identifier, record *pact.DecisionRecord) func(*badger.Txn) error {
	return retrieve(makePrefix(codeDecision, sessionID), record)
}
