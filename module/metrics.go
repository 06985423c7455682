package module

import (
	"time"
)

// FloodMetrics exposes the retransmission layer's state.
type FloodMetrics interface {
	// FloodRate records the controller's current rate in packets/second.
	FloodRate(rate float64)

	// OutstandingArtifacts records the size of the non-superseded flood set.
	OutstandingArtifacts(count uint)

	// ArtifactSent counts one retransmission of the given message type.
	ArtifactSent(msgType string)
}

// ConsensusMetrics counts protocol events for both the bilateral and the
// threshold protocol.
type ConsensusMetrics interface {
	// ArtifactReceived counts one accepted inbound artifact.
	ArtifactReceived(msgType string)

	// ArtifactDropped counts one dropped inbound artifact by reason.
	ArtifactDropped(msgType string, reason string)

	// ShareCollected counts one accepted threshold signature share.
	ShareCollected()

	// EquivocationRecorded counts one piece of recorded equivocation
	// evidence.
	EquivocationRecorded()

	// DecisionReached records a terminal decision and the time it took from
	// session start.
	DecisionReached(outcome string, duration time.Duration)
}
