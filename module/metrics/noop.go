package metrics

import (
	"time"
)

// NoopCollector implements all metrics interfaces with no-ops, for tests
// and metrics-free deployments.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) FloodRate(rate float64)                                  {}
func (nc *NoopCollector) OutstandingArtifacts(count uint)                         {}
func (nc *NoopCollector) ArtifactSent(msgType string)                             {}
func (nc *NoopCollector) ArtifactReceived(msgType string)                         {}
func (nc *NoopCollector) ArtifactDropped(msgType string, reason string)           {}
func (nc *NoopCollector) ShareCollected()                                         {}
func (nc *NoopCollector) EquivocationRecorded()                                   {}
func (nc *NoopCollector) DecisionReached(outcome string, duration time.Duration)  {}
