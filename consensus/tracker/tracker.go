// Package tracker implements the per-round state machine of the N-party
// threshold protocol: collect partial signatures for the round's value,
// combine any quorum-sized set into a certificate, and adopt the first
// valid certificate observed, whether built locally or received.
//
// Safety is carried by arithmetic, not coordination: with n = 3f+1
// arbitrators and threshold T = 2f+1, two conflicting certificates in one
// round would require 4f+2 distinct signers, which do not exist. Any node
// may aggregate; there is no leader.
package tracker

import (
	"bytes"

	"github.com/rs/zerolog"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module"
	"github.com/riffcc/pact/module/signature"
)

// State is the tracker's position in the round lifecycle.
type State uint8

const (
	// AwaitingProposal means no value has been adopted for the round yet.
	AwaitingProposal State = iota
	// Sharing means a value is adopted and shares are being collected.
	Sharing
	// Committed means a valid certificate for the round is held.
	Committed
)

func (s State) String() string {
	switch s {
	case AwaitingProposal:
		return "AwaitingProposal"
	case Sharing:
		return "Sharing"
	case Committed:
		return "Committed"
	default:
		return "Unknown"
	}
}

// Tracker tracks one round. Synchronous core, not concurrency safe; the
// arbiter engine serializes all access.
type Tracker struct {
	log      zerolog.Logger
	metrics  module.ConsensusMetrics
	provider *signature.ThresholdProvider
	round    uint64

	state  State
	value  []byte
	digest pact.Identifier

	// valid shares per digest per signer; shares for digests other than the
	// adopted one are retained for equivocation detection
	shares map[pact.Identifier]map[uint16]*pact.Share

	ownShare    *pact.Share
	certificate *pact.Certificate
	evidence    []*pact.Equivocation
}

// New creates a tracker for the given round number.
func New(log zerolog.Logger, metrics module.ConsensusMetrics, provider *signature.ThresholdProvider, round uint64) *Tracker {
	return &Tracker{
		log: log.With().
			Str("component", "round_tracker").
			Uint64("round", round).
			Logger(),
		metrics:  metrics,
		provider: provider,
		round:    round,
		state:    AwaitingProposal,
		shares:   make(map[pact.Identifier]map[uint16]*pact.Share),
	}
}

// Round returns the round number this tracker runs.
func (t *Tracker) Round() uint64 {
	return t.round
}

// State returns the tracker's current state.
func (t *Tracker) State() State {
	return t.state
}

// Value returns the adopted value, nil while awaiting a proposal.
func (t *Tracker) Value() []byte {
	return t.value
}

// OwnShare returns the local arbitrator's share, nil before a value is
// adopted or when running as an observer.
func (t *Tracker) OwnShare() *pact.Share {
	return t.ownShare
}

// Certificate returns the round's certificate.
func (t *Tracker) Certificate() (*pact.Certificate, error) {
	if t.certificate == nil {
		return nil, pact.ErrNoDecision
	}
	return t.certificate, nil
}

// Evidence returns all equivocation evidence recorded so far.
func (t *Tracker) Evidence() []*pact.Equivocation {
	return t.evidence
}

// OnProposal adopts the first well-formed value proposed for this round and
// produces the local share over its digest. Subsequent proposals, identical
// or conflicting, are idempotently ignored: the shares decide, not the
// proposer. Shares may outrun the proposal on an unordered channel, so the
// adopted digest can already hold a quorum; in that case the certificate is
// built and returned right here.
func (t *Tracker) OnProposal(value []byte) (*pact.Share, *pact.Certificate, error) {
	if t.state != AwaitingProposal {
		return nil, nil, pact.ErrDuplicateArtifact
	}
	if len(value) == 0 {
		return nil, nil, pact.NewInvalidArtifactErrorf(pact.ZeroID, "proposal with empty value")
	}

	t.value = value
	t.digest = pact.Round{Number: t.round, Value: value}.Digest()
	t.state = Sharing
	t.log.Debug().Hex("digest", t.digest[:]).Msg("adopted proposed value")

	var own *pact.Share
	if t.provider.Index() >= 0 {
		// observers collect and combine, but contribute no share
		sig, err := t.provider.SignShare(signature.RoundShareTag, t.digest[:])
		if err != nil {
			return nil, nil, err
		}
		own = &pact.Share{
			Round:       t.round,
			Digest:      t.digest,
			SignerIndex: uint16(t.provider.Index()),
			Signature:   sig,
		}
		t.ownShare = own
		t.storeShare(own)
	}

	cert, err := t.tryAggregate()
	if err != nil {
		return nil, nil, err
	}
	return own, cert, nil
}

// OnShare processes one arbitrator's share. If it completes a quorum for
// the adopted value, the resulting certificate is returned; until then the
// return is (nil, nil) for an accepted share and an error for a rejected
// one. Shares over a different digest than the adopted value, and shares
// arriving after commitment, are verified and retained as equivocation
// material but never advance the round.
func (t *Tracker) OnShare(s *pact.Share) (*pact.Certificate, error) {
	if s.Round != t.round {
		return nil, pact.ErrRoundMismatch
	}
	claimed, err := signature.ShareIndex(s.Signature)
	if err != nil {
		return nil, pact.NewInvalidArtifactErrorf(s.ID(), "share signature carries no signer index: %s", err)
	}
	if claimed != s.SignerIndex {
		return nil, pact.NewInvalidArtifactErrorf(s.ID(), "share claims signer %d but signature encodes %d", s.SignerIndex, claimed)
	}
	if prev, held := t.shares[s.Digest][s.SignerIndex]; held && bytes.Equal(prev.Signature, s.Signature) {
		return nil, pact.ErrDuplicateArtifact
	}
	err = t.provider.VerifyShare(signature.RoundShareTag, s.Digest[:], s.Signature)
	if err != nil {
		return nil, err
	}

	t.detectEquivocation(s)
	t.storeShare(s)

	if t.state == Sharing && s.Digest != t.digest {
		// the share attests another value; it cannot contribute here, but
		// it was worth verifying as equivocation material
		return nil, pact.ErrValueMismatch
	}
	if t.state != Sharing {
		// no value adopted yet, or already committed; early shares wait in
		// the store until adoption, late shares are held for evidence
		return nil, nil
	}

	return t.tryAggregate()
}

// OnCommit adopts a received certificate. A valid certificate is
// self-certifying: it is accepted even while awaiting a proposal or holding
// a different value, since a conflicting valid certificate cannot exist.
func (t *Tracker) OnCommit(cert *pact.Certificate) (bool, error) {
	if cert.Round != t.round {
		return false, pact.ErrRoundMismatch
	}
	if t.certificate != nil {
		return false, pact.ErrDuplicateArtifact
	}
	digest := cert.Digest()
	err := t.provider.VerifyCombined(signature.RoundShareTag, digest[:], cert.Signature)
	if err != nil {
		return false, err
	}
	t.adopt(cert)
	return true, nil
}

// tryAggregate combines the shares for the adopted digest once a quorum is
// present. Fewer than the threshold is not an error, just not yet.
func (t *Tracker) tryAggregate() (*pact.Certificate, error) {
	quorum := t.shares[t.digest]
	if len(quorum) < t.provider.Threshold() {
		return nil, nil
	}

	sigs := make([][]byte, 0, len(quorum))
	for _, s := range quorum {
		sigs = append(sigs, s.Signature)
	}
	combined, err := t.provider.Combine(signature.RoundShareTag, t.digest[:], sigs)
	if err != nil {
		return nil, err
	}

	cert := &pact.Certificate{
		Round:     t.round,
		Value:     t.value,
		Signature: combined,
	}
	t.adopt(cert)
	return cert, nil
}

func (t *Tracker) adopt(cert *pact.Certificate) {
	t.certificate = cert
	t.value = cert.Value
	t.digest = cert.Digest()
	t.state = Committed
	t.log.Debug().Hex("digest", t.digest[:]).Msg("round committed")
}

func (t *Tracker) storeShare(s *pact.Share) {
	bySigner, ok := t.shares[s.Digest]
	if !ok {
		bySigner = make(map[uint16]*pact.Share)
		t.shares[s.Digest] = bySigner
	}
	bySigner[s.SignerIndex] = s
	t.metrics.ShareCollected()
}

// detectEquivocation records evidence whenever the same signer has produced
// valid shares over two different digests in this round. Processing
// continues afterwards; punitive action is not this layer's concern.
func (t *Tracker) detectEquivocation(s *pact.Share) {
	for digest, bySigner := range t.shares {
		if digest == s.Digest {
			continue
		}
		prev, held := bySigner[s.SignerIndex]
		if !held {
			continue
		}
		ev := &pact.Equivocation{
			Round:       t.round,
			SignerIndex: s.SignerIndex,
			First:       prev,
			Second:      s,
		}
		t.evidence = append(t.evidence, ev)
		t.metrics.EquivocationRecorded()
		t.log.Warn().
			Uint16("signer_index", s.SignerIndex).
			Msg("arbitrator equivocated within round")
	}
}
