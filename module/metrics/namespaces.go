package metrics

// Prometheus namespace and subsystems for all collectors.
const (
	namespacePact = "pact"

	subsystemFlood     = "flood"
	subsystemConsensus = "consensus"
)
