// Package ladder implements the two-party proof-escalation state machine.
// Each party climbs Commitment → DoubleProof → TripleProof → ReceiptHalf,
// where every rung signs over both parties' artifacts of the previous rung.
// Holding both receipt halves is the bilateral success condition.
//
// The ladder is a synchronous core: it performs no I/O and no scheduling,
// and it is not concurrency safe. The session engine owns it under a
// single-writer discipline and wires its outputs into the flood controller.
package ladder

import (
	"github.com/rs/zerolog"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module"
	"github.com/riffcc/pact/module/signature"
)

// Ladder tracks both parties' artifacts for one bilateral session. Safety
// rests on a single rule: the ladder only ever acts on artifacts it has
// verified itself, never on what the peer claims to hold.
type Ladder struct {
	log     zerolog.Logger
	local   module.Local
	peer    *pact.Party
	payload []byte

	phase     pact.Phase // own phase, strictly monotonic
	peerPhase pact.Phase // highest peer phase evidenced by a verified artifact

	ownCommitment *pact.Commitment
	ownDouble     *pact.DoubleProof
	ownTriple     *pact.TripleProof
	ownHalf       *pact.ReceiptHalf

	peerCommitment *pact.Commitment
	peerDouble     *pact.DoubleProof
	peerTriple     *pact.TripleProof
	peerHalf       *pact.ReceiptHalf
}

// New creates a ladder for one session against the given peer. The payload
// is the intent both parties commit to.
func New(log zerolog.Logger, local module.Local, peer *pact.Party, payload []byte) *Ladder {
	return &Ladder{
		log: log.With().
			Str("component", "ladder").
			Hex("peer", peer.NodeID[:]).
			Logger(),
		local:   local,
		peer:    peer,
		payload: payload,
		phase:   pact.PhaseInit,
	}
}

// Bootstrap constructs the local party's Commitment, moving it to the
// Commitment phase. It is called exactly once at session start.
func (l *Ladder) Bootstrap() (*pact.Commitment, error) {
	if l.ownCommitment != nil {
		return nil, pact.ErrDuplicateArtifact
	}
	commitment := &pact.Commitment{
		Party:   l.local.NodeID(),
		Payload: l.payload,
	}
	sig, err := l.local.Sign(signature.CommitmentTag, commitment.Signable())
	if err != nil {
		return nil, err
	}
	commitment.Sig = sig
	l.ownCommitment = commitment
	l.phase = pact.PhaseCommitment
	l.log.Debug().Hex("commitment", logID(commitment)).Msg("bootstrapped own commitment")
	return commitment, nil
}

// Phase returns the local party's current phase.
func (l *Ladder) Phase() pact.Phase {
	return l.phase
}

// PeerPhase returns the highest peer phase this party has verified evidence
// for.
func (l *Ladder) PeerPhase() pact.Phase {
	return l.peerPhase
}

// Complete reports whether this party holds both receipt halves, i.e. the
// bilateral success condition.
func (l *Ladder) Complete() bool {
	return l.ownHalf != nil && l.peerHalf != nil
}

// Receipt returns the completed bilateral receipt.
func (l *Ladder) Receipt() (*pact.Receipt, error) {
	if !l.Complete() {
		return nil, pact.ErrNoDecision
	}
	return &pact.Receipt{Own: l.ownHalf, Peer: l.peerHalf}, nil
}

// Outstanding returns the own artifacts the peer has not yet evidenced
// possession of. A peer artifact at rung k structurally embeds our rung k-1
// artifact, so observing it retires everything below k from the flood set.
func (l *Ladder) Outstanding() []pact.Artifact {
	var held []pact.Artifact
	if l.ownCommitment != nil {
		held = append(held, l.ownCommitment)
	}
	if l.ownDouble != nil {
		held = append(held, l.ownDouble)
	}
	if l.ownTriple != nil {
		held = append(held, l.ownTriple)
	}
	if l.ownHalf != nil {
		held = append(held, l.ownHalf)
	}
	var out []pact.Artifact
	for _, artifact := range held {
		if artifact.Level() >= l.peerPhase {
			out = append(out, artifact)
		}
	}
	return out
}

// OnCommitment processes the peer's Commitment. It returns whether the
// ladder advanced, and an error classifying any rejection. All rejection
// errors are benign: the caller drops the artifact and continues.
func (l *Ladder) OnCommitment(commitment *pact.Commitment) (bool, error) {
	if commitment.Party != l.peer.NodeID {
		return false, pact.NewInvalidArtifactErrorf(commitment.ID(), "commitment from unknown party %x", commitment.Party)
	}
	if l.peerCommitment != nil {
		if l.peerCommitment.ID() == commitment.ID() {
			return false, pact.ErrDuplicateArtifact
		}
		return false, pact.NewInvalidArtifactErrorf(commitment.ID(), "conflicting commitment from peer")
	}
	err := signature.Verify(l.peer, signature.CommitmentTag, commitment.Signable(), commitment.Sig)
	if err != nil {
		return false, err
	}
	l.peerCommitment = commitment
	l.advancePeerPhase(pact.PhaseCommitment)
	return l.climb()
}

// OnDoubleProof processes the peer's DoubleProof. The proof must reference
// the exact commitments this party holds; a reference to anything else means
// the peer signed over different prerequisites and the proof is worthless
// here.
func (l *Ladder) OnDoubleProof(double *pact.DoubleProof) (bool, error) {
	if double.Party != l.peer.NodeID {
		return false, pact.NewInvalidArtifactErrorf(double.ID(), "double proof from unknown party %x", double.Party)
	}
	if l.peerDouble != nil {
		if l.peerDouble.ID() == double.ID() {
			return false, pact.ErrDuplicateArtifact
		}
		return false, pact.NewInvalidArtifactErrorf(double.ID(), "conflicting double proof from peer")
	}
	if l.peerCommitment == nil || l.ownCommitment == nil {
		return false, pact.NewPhaseViolationError(l.peerPhase, pact.PhaseDouble)
	}
	if double.OwnCommitment != l.peerCommitment.ID() || double.PeerCommitment != l.ownCommitment.ID() {
		return false, pact.NewInvalidArtifactErrorf(double.ID(), "double proof references unknown commitments")
	}
	err := signature.Verify(l.peer, signature.DoubleProofTag, double.Signable(), double.Sig)
	if err != nil {
		return false, err
	}
	l.peerDouble = double
	l.advancePeerPhase(pact.PhaseDouble)
	return l.climb()
}

// OnTripleProof processes the peer's TripleProof.
func (l *Ladder) OnTripleProof(triple *pact.TripleProof) (bool, error) {
	if triple.Party != l.peer.NodeID {
		return false, pact.NewInvalidArtifactErrorf(triple.ID(), "triple proof from unknown party %x", triple.Party)
	}
	if l.peerTriple != nil {
		if l.peerTriple.ID() == triple.ID() {
			return false, pact.ErrDuplicateArtifact
		}
		return false, pact.NewInvalidArtifactErrorf(triple.ID(), "conflicting triple proof from peer")
	}
	if l.peerDouble == nil || l.ownDouble == nil {
		return false, pact.NewPhaseViolationError(l.peerPhase, pact.PhaseTriple)
	}
	if triple.OwnDouble != l.peerDouble.ID() || triple.PeerDouble != l.ownDouble.ID() {
		return false, pact.NewInvalidArtifactErrorf(triple.ID(), "triple proof references unknown double proofs")
	}
	err := signature.Verify(l.peer, signature.TripleProofTag, triple.Signable(), triple.Sig)
	if err != nil {
		return false, err
	}
	l.peerTriple = triple
	l.advancePeerPhase(pact.PhaseTriple)
	return l.climb()
}

// OnReceiptHalf processes the peer's receipt half. Accepting it completes
// the ladder, provided this party has reached Ready itself.
func (l *Ladder) OnReceiptHalf(half *pact.ReceiptHalf) (bool, error) {
	if half.Party != l.peer.NodeID {
		return false, pact.NewInvalidArtifactErrorf(half.ID(), "receipt half from unknown party %x", half.Party)
	}
	if l.peerHalf != nil {
		if l.peerHalf.ID() == half.ID() {
			return false, pact.ErrDuplicateArtifact
		}
		return false, pact.NewInvalidArtifactErrorf(half.ID(), "conflicting receipt half from peer")
	}
	if l.peerTriple == nil || l.ownTriple == nil {
		return false, pact.NewPhaseViolationError(l.peerPhase, pact.PhaseReady)
	}
	if half.OwnTriple != l.peerTriple.ID() || half.PeerTriple != l.ownTriple.ID() {
		return false, pact.NewInvalidArtifactErrorf(half.ID(), "receipt half references unknown triple proofs")
	}
	err := signature.Verify(l.peer, signature.ReceiptTag, half.Signable(), half.Sig)
	if err != nil {
		return false, err
	}
	l.peerHalf = half
	l.advancePeerPhase(pact.PhaseReady)
	return l.climb()
}

// climb constructs every own artifact that has become constructible. The
// construction at each rung is deterministic in its inputs, so two parties
// in the same information state build byte-identical bodies.
func (l *Ladder) climb() (bool, error) {
	advanced := false

	if l.ownDouble == nil && l.ownCommitment != nil && l.peerCommitment != nil {
		double := &pact.DoubleProof{
			Party:          l.local.NodeID(),
			OwnCommitment:  l.ownCommitment.ID(),
			PeerCommitment: l.peerCommitment.ID(),
		}
		sig, err := l.local.Sign(signature.DoubleProofTag, double.Signable())
		if err != nil {
			return advanced, err
		}
		double.Sig = sig
		l.ownDouble = double
		l.phase = pact.PhaseDouble
		advanced = true
		l.log.Debug().Hex("double", logID(double)).Msg("constructed double proof")
	}

	if l.ownTriple == nil && l.ownDouble != nil && l.peerDouble != nil {
		triple := &pact.TripleProof{
			Party:      l.local.NodeID(),
			OwnDouble:  l.ownDouble.ID(),
			PeerDouble: l.peerDouble.ID(),
		}
		sig, err := l.local.Sign(signature.TripleProofTag, triple.Signable())
		if err != nil {
			return advanced, err
		}
		triple.Sig = sig
		l.ownTriple = triple
		l.phase = pact.PhaseTriple
		advanced = true
		l.log.Debug().Hex("triple", logID(triple)).Msg("constructed triple proof")
	}

	if l.ownHalf == nil && l.ownTriple != nil && l.peerTriple != nil {
		half := &pact.ReceiptHalf{
			Party:      l.local.NodeID(),
			OwnTriple:  l.ownTriple.ID(),
			PeerTriple: l.peerTriple.ID(),
		}
		sig, err := l.local.Sign(signature.ReceiptTag, half.Signable())
		if err != nil {
			return advanced, err
		}
		half.Sig = sig
		l.ownHalf = half
		l.phase = pact.PhaseReady
		advanced = true
		l.log.Debug().Hex("receipt_half", logID(half)).Msg("constructed receipt half")
	}

	return advanced, nil
}

func (l *Ladder) advancePeerPhase(phase pact.Phase) {
	if phase > l.peerPhase {
		l.peerPhase = phase
	}
}

func logID(artifact pact.Artifact) []byte {
	id := artifact.ID()
	return id[:]
}
