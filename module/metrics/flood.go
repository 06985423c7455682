package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/riffcc/pact/module"
)

// FloodCollector reports the retransmission layer's state.
type FloodCollector struct {
	rate        prometheus.Gauge
	outstanding prometheus.Gauge
	sent        *prometheus.CounterVec
}

var _ module.FloodMetrics = (*FloodCollector)(nil)

// NewFloodCollector creates and registers the flood collectors.
func NewFloodCollector(registerer prometheus.Registerer) *FloodCollector {
	rate := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespacePact,
		Subsystem: subsystemFlood,
		Name:      "current_rate",
		Help:      "current adaptive flood rate in packets per second per outstanding artifact",
	})
	outstanding := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespacePact,
		Subsystem: subsystemFlood,
		Name:      "outstanding_artifacts",
		Help:      "number of artifacts in the non-superseded flood set",
	})
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespacePact,
		Subsystem: subsystemFlood,
		Name:      "artifacts_sent_total",
		Help:      "number of artifact retransmissions by message type",
	}, []string{LabelMessage})
	registerer.MustRegister(rate, outstanding, sent)
	return &FloodCollector{
		rate:        rate,
		outstanding: outstanding,
		sent:        sent,
	}
}

func (fc *FloodCollector) FloodRate(rate float64) {
	fc.rate.Set(rate)
}

func (fc *FloodCollector) OutstandingArtifacts(count uint) {
	fc.outstanding.Set(float64(count))
}

func (fc *FloodCollector) ArtifactSent(msgType string) {
	fc.sent.WithLabelValues(msgType).Inc()
}
