// Package storage defines the persistence interfaces for the protocol's
// durable outputs: terminal decision records and equivocation evidence.
// Intermediate session state is deliberately not persisted: a restarted
// party that has not decided must look exactly like a crashed one, which
// the protocol already tolerates.
package storage

import (
	"github.com/riffcc/pact/model/pact"
)

// Decisions persists terminal decision records, keyed by session
// identifier. Records are immutable once stored, mirroring the write-once
// decision invariant.
type Decisions interface {
	// Store persists a decision record.
	// Returns storage.ErrAlreadyExists if the session already decided.
	Store(record *pact.DecisionRecord) error

	// BySessionID retrieves the decision record for a session.
	// Returns storage.ErrNotFound if no decision has been stored.
	BySessionID(sessionID pact.Identifier) (*pact.DecisionRecord, error)
}

// Evidence persists equivocation evidence for later export. Evidence is
// append-only.
type Evidence interface {
	// Store persists one piece of evidence. Re-storing the same evidence is
	// a no-op.
	Store(equivocation *pact.Equivocation) error

	// ByRound retrieves all evidence recorded for a round.
	ByRound(round uint64) ([]*pact.Equivocation, error)
}
