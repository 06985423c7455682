package metrics

const (
	LabelMessage = "message"
	LabelReason  = "reason"
	LabelOutcome = "outcome"
)
