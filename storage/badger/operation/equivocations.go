package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/riffcc/pact/model/pact"
)

// UpsertEquivocation stores one piece of equivocation evidence, keyed by
// round and evidence identifier. The identifier is content-derived, so
// re-recording the same evidence overwrites it with itself.
func UpsertEquivocation(equivocation *pact.Equivocation) func(*badger.Txn) error {
	return upsert(makePrefix(codeEquivocation, equivocation.Round, equivocation.ID()), equivocation)
}

// TraverseEquivocations iterates all evidence recorded for a round.
func TraverseEquivocations(round uint64, handle func(*pact.Equivocation) error) func(*badger.Txn) error {
	return traverse(
		makePrefix(codeEquivocation, round),
		func() interface{} { return &pact.Equivocation{} },
		func(entity interface{}) error { return handle(entity.(*pact.Equivocation)) },
	)
}
