// Package badger implements the storage interfaces on badger.
package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/storage"
	"github.com/riffcc/pact/storage/badger/operation"
)

// Decisions implements persistence for terminal decision records.
type Decisions struct {
	db *badger.DB
}

var _ storage.Decisions = (*Decisions)(nil)

func NewDecisions(db *badger.DB) *Decisions {
	return &Decisions{db: db}
}

func (d *Decisions) Store(record *pact.DecisionRecord) error {
	err := d.db.Update(operation.InsertDecision(record.SessionID, record))
	if err != nil {
		return fmt.Errorf("could not store decision for session %x: %w", record.SessionID, err)
	}
	return nil
}

func (d *Decisions) BySessionID(sessionID pact.Identifier) (*pact.DecisionRecord, error) {
	var record pact.DecisionRecord
	err := d.db.View(operation.RetrieveDecision(sessionID, &record))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve decision for session %x: %w", sessionID, err)
	}
	return &record, nil
}
