package pact

// Phase is the position of a party on the bilateral proof ladder. Phases are
// strictly ordered and only ever advance; a regression indicates a
// programming error, not adversarial input.
type Phase uint8

const (
	// PhaseInit is the starting phase, before the party has committed.
	PhaseInit Phase = iota
	// PhaseCommitment means the party has produced its Commitment.
	PhaseCommitment
	// PhaseDouble means the party has produced its DoubleProof.
	PhaseDouble
	// PhaseTriple means the party has produced its TripleProof.
	PhaseTriple
	// PhaseReady means the party has produced its ReceiptHalf and is ready
	// to proceed as soon as it observes the peer's.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "Init"
	case PhaseCommitment:
		return "Commitment"
	case PhaseDouble:
		return "Double"
	case PhaseTriple:
		return "Triple"
	case PhaseReady:
		return "Ready"
	default:
		return "Unknown"
	}
}
