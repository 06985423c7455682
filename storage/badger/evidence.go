package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/storage"
	"github.com/riffcc/pact/storage/badger/operation"
)

// Evidence implements append-only persistence for equivocation evidence.
type Evidence struct {
	db *badger.DB
}

var _ storage.Evidence = (*Evidence)(nil)

func NewEvidence(db *badger.DB) *Evidence {
	return &Evidence{db: db}
}

func (e *Evidence) Store(equivocation *pact.Equivocation) error {
	err := e.db.Update(operation.UpsertEquivocation(equivocation))
	if err != nil {
		return fmt.Errorf("could not store equivocation evidence for round %d: %w", equivocation.Round, err)
	}
	return nil
}

func (e *Evidence) ByRound(round uint64) ([]*pact.Equivocation, error) {
	var evidence []*pact.Equivocation
	err := e.db.View(operation.TraverseEquivocations(round, func(ev *pact.Equivocation) error {
		evidence = append(evidence, ev)
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve equivocation evidence for round %d: %w", round, err)
	}
	return evidence, nil
}
