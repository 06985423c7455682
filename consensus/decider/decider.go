// Package decider converts state-machine completion or deadline expiry into
// the session's terminal verdict. It performs no I/O and no cryptography;
// it is polled with the success condition on each session tick.
package decider

import (
	"time"

	"github.com/riffcc/pact/model/pact"
)

// Decider holds the write-once verdict for one session. Once set, the
// decision never changes, regardless of artifacts arriving later. Partial
// peer progress at the deadline is a plain Abort, with no partial credit.
type Decider struct {
	deadline  time.Time
	decision  pact.Decision
	decidedAt time.Time
}

// New creates a decider with the session's wall-clock deadline.
func New(deadline time.Time) *Decider {
	return &Decider{
		deadline: deadline,
		decision: pact.DecisionPending,
	}
}

// Poll evaluates the verdict at the given instant: Proceed the moment the
// success condition holds, Abort once the deadline has elapsed without it.
// The second return reports whether this call performed the transition.
func (d *Decider) Poll(now time.Time, complete bool) (pact.Decision, bool) {
	if d.decision != pact.DecisionPending {
		return d.decision, false
	}
	if complete {
		d.decision = pact.DecisionProceed
		d.decidedAt = now
		return d.decision, true
	}
	if !now.Before(d.deadline) {
		d.decision = pact.DecisionAbort
		d.decidedAt = now
		return d.decision, true
	}
	return pact.DecisionPending, false
}

// Decision returns the current verdict.
func (d *Decider) Decision() pact.Decision {
	return d.decision
}

// DecidedAt returns the instant of the terminal transition; zero while
// pending.
func (d *Decider) DecidedAt() time.Time {
	return d.decidedAt
}

// Deadline returns the session deadline.
func (d *Decider) Deadline() time.Time {
	return d.deadline
}
