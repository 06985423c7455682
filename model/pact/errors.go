package pact

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature indicates an artifact whose signature does not
	// verify under the claimed sender's key. Adversarial noise; callers
	// drop the artifact and continue.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrDuplicateArtifact indicates re-delivery of an artifact that was
	// already processed. Idempotently ignored.
	ErrDuplicateArtifact = errors.New("duplicate artifact")

	// ErrRoundMismatch indicates a threshold-protocol message for a round
	// this tracker is not running.
	ErrRoundMismatch = errors.New("message for different round")

	// ErrValueMismatch indicates a share over a different digest than the
	// value this tracker adopted.
	ErrValueMismatch = errors.New("share attests different value")

	// ErrNoDecision indicates a request for terminal output (receipt,
	// certificate, record) before the session has decided.
	ErrNoDecision = errors.New("session has not decided yet")
)

// InvalidArtifactError indicates an artifact that is structurally unsound:
// malformed embedding, a reference that does not match what this party
// holds, or an identity that does not match the signing key.
type InvalidArtifactError struct {
	ArtifactID Identifier
	Err        error
}

func NewInvalidArtifactErrorf(artifactID Identifier, msg string, args ...interface{}) error {
	return InvalidArtifactError{
		ArtifactID: artifactID,
		Err:        fmt.Errorf(msg, args...),
	}
}

func (e InvalidArtifactError) Error() string {
	return fmt.Sprintf("invalid artifact %x: %s", e.ArtifactID, e.Err.Error())
}

func (e InvalidArtifactError) Unwrap() error {
	return e.Err
}

// IsInvalidArtifactError returns whether err is an InvalidArtifactError.
func IsInvalidArtifactError(err error) bool {
	var target InvalidArtifactError
	return errors.As(err, &target)
}

// PhaseViolationError indicates an artifact that references a proof level
// this party cannot reach yet, e.g. a TripleProof arriving before the
// corresponding DoubleProof chain is held. Such artifacts are dropped; the
// sender's flooding will re-deliver them once the prerequisites land.
type PhaseViolationError struct {
	Have Phase
	Got  Phase
}

func NewPhaseViolationError(have Phase, got Phase) error {
	return PhaseViolationError{Have: have, Got: got}
}

func (e PhaseViolationError) Error() string {
	return fmt.Sprintf("phase violation: holding %s, received artifact for %s", e.Have, e.Got)
}

// IsPhaseViolationError returns whether err is a PhaseViolationError.
func IsPhaseViolationError(err error) bool {
	var target PhaseViolationError
	return errors.As(err, &target)
}
