package pact

// Decision is the terminal verdict of a session. It transitions from
// Pending to exactly one of Proceed or Abort and never changes thereafter,
// regardless of any artifacts that arrive later.
type Decision uint8

const (
	// DecisionPending means no verdict has been reached yet.
	DecisionPending Decision = iota
	// DecisionProceed is the positive verdict: this party holds both
	// receipt halves (bilateral) or a valid certificate (threshold).
	DecisionProceed
	// DecisionAbort is the negative verdict, reached when the session
	// deadline elapses before the success condition holds.
	DecisionAbort
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "Pending"
	case DecisionProceed:
		return "Proceed"
	case DecisionAbort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the decision is final.
func (d Decision) Terminal() bool {
	return d != DecisionPending
}

// DecisionRecord is what a completed session hands to downstream consumers
// and what gets persisted: the verdict plus the closing evidence. Exactly
// one of Receipt and Certificate is set for a Proceed verdict; both are nil
// for an Abort.
type DecisionRecord struct {
	SessionID   Identifier
	Decision    Decision
	DecidedAtMS int64
	Receipt     *Receipt
	Certificate *Certificate
}
