package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/riffcc/pact/module"
)

// ConsensusCollector counts protocol events for both the bilateral ladder
// and the threshold rounds.
type ConsensusCollector struct {
	artifactsReceived *prometheus.CounterVec
	artifactsDropped  *prometheus.CounterVec
	sharesCollected   prometheus.Counter
	equivocations     prometheus.Counter
	decisions         *prometheus.CounterVec
	timeToDecision    prometheus.Histogram
}

var _ module.ConsensusMetrics = (*ConsensusCollector)(nil)

// NewConsensusCollector creates and registers the consensus collectors.
func NewConsensusCollector(registerer prometheus.Registerer) *ConsensusCollector {
	artifactsReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespacePact,
		Subsystem: subsystemConsensus,
		Name:      "artifacts_received_total",
		Help:      "number of accepted inbound artifacts by message type",
	}, []string{LabelMessage})
	artifactsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespacePact,
		Subsystem: subsystemConsensus,
		Name:      "artifacts_dropped_total",
		Help:      "number of dropped inbound artifacts by message type and drop reason",
	}, []string{LabelMessage, LabelReason})
	sharesCollected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespacePact,
		Subsystem: subsystemConsensus,
		Name:      "shares_collected_total",
		Help:      "number of valid threshold signature shares collected",
	})
	equivocations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespacePact,
		Subsystem: subsystemConsensus,
		Name:      "equivocations_recorded_total",
		Help:      "number of recorded equivocation evidence objects",
	})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespacePact,
		Subsystem: subsystemConsensus,
		Name:      "decisions_total",
		Help:      "number of terminal decisions by outcome",
	}, []string{LabelOutcome})
	timeToDecision := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespacePact,
		Subsystem: subsystemConsensus,
		Name:      "time_to_decision_seconds",
		Help:      "duration from session start to terminal decision in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	registerer.MustRegister(
		artifactsReceived,
		artifactsDropped,
		sharesCollected,
		equivocations,
		decisions,
		timeToDecision,
	)
	return &ConsensusCollector{
		artifactsReceived: artifactsReceived,
		artifactsDropped:  artifactsDropped,
		sharesCollected:   sharesCollected,
		equivocations:     equivocations,
		decisions:         decisions,
		timeToDecision:    timeToDecision,
	}
}

func (cc *ConsensusCollector) ArtifactReceived(msgType string) {
	cc.artifactsReceived.WithLabelValues(msgType).Inc()
}

func (cc *ConsensusCollector) ArtifactDropped(msgType string, reason string) {
	cc.artifactsDropped.WithLabelValues(msgType, reason).Inc()
}

func (cc *ConsensusCollector) ShareCollected() {
	cc.sharesCollected.Inc()
}

func (cc *ConsensusCollector) EquivocationRecorded() {
	cc.equivocations.Inc()
}

func (cc *ConsensusCollector) DecisionReached(outcome string, duration time.Duration) {
	cc.decisions.WithLabelValues(outcome).Inc()
	cc.timeToDecision.Observe(duration.Seconds())
}
