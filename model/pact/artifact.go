package pact

import (
	"github.com/riffcc/pact/model/encoding"
)

// Artifact is any signed proof object exchanged on the bilateral ladder.
// The identifier is the content address of the unsigned body, the signable
// bytes are that body's canonical encoding, and the level places the
// artifact on the escalation ladder.
type Artifact interface {
	ID() Identifier
	Signable() []byte
	Signer() Identifier
	Level() Phase
}

// Commitment is the first rung: a party's signature over a fixed intent
// payload. Created once, unilaterally.
type Commitment struct {
	Party   Identifier
	Payload []byte
	Sig     []byte
}

type commitmentBody struct {
	Party   Identifier
	Payload []byte
}

func (c *Commitment) Signable() []byte {
	return encoding.Fingerprint(commitmentBody{Party: c.Party, Payload: c.Payload})
}

func (c *Commitment) ID() Identifier {
	return HashToID(c.Signable())
}

func (c *Commitment) Signer() Identifier { return c.Party }
func (c *Commitment) Level() Phase       { return PhaseCommitment }

// DoubleProof is the second rung: a signature binding the party's own
// Commitment to the peer's. Constructible only once the peer's Commitment
// is held; the references are content addresses, so the proof commits to
// the exact prerequisite bytes without carrying them.
type DoubleProof struct {
	Party          Identifier
	OwnCommitment  Identifier
	PeerCommitment Identifier
	Sig            []byte
}

type doubleProofBody struct {
	Party          Identifier
	OwnCommitment  Identifier
	PeerCommitment Identifier
}

func (d *DoubleProof) Signable() []byte {
	return encoding.Fingerprint(doubleProofBody{
		Party:          d.Party,
		OwnCommitment:  d.OwnCommitment,
		PeerCommitment: d.PeerCommitment,
	})
}

func (d *DoubleProof) ID() Identifier {
	return HashToID(d.Signable())
}

func (d *DoubleProof) Signer() Identifier { return d.Party }
func (d *DoubleProof) Level() Phase       { return PhaseDouble }

// TripleProof is the third rung, over both DoubleProofs. By construction it
// transitively embeds both Commitments.
type TripleProof struct {
	Party      Identifier
	OwnDouble  Identifier
	PeerDouble Identifier
	Sig        []byte
}

type tripleProofBody struct {
	Party      Identifier
	OwnDouble  Identifier
	PeerDouble Identifier
}

func (t *TripleProof) Signable() []byte {
	return encoding.Fingerprint(tripleProofBody{
		Party:      t.Party,
		OwnDouble:  t.OwnDouble,
		PeerDouble: t.PeerDouble,
	})
}

func (t *TripleProof) ID() Identifier {
	return HashToID(t.Signable())
}

func (t *TripleProof) Signer() Identifier { return t.Party }
func (t *TripleProof) Level() Phase       { return PhaseTriple }

// ReceiptHalf is the final rung, over both TripleProofs. Each half is
// independently sufficient evidence that the other half is constructible;
// the pair forms the bilateral receipt.
type ReceiptHalf struct {
	Party      Identifier
	OwnTriple  Identifier
	PeerTriple Identifier
	Sig        []byte
}

type receiptHalfBody struct {
	Party      Identifier
	OwnTriple  Identifier
	PeerTriple Identifier
}

func (r *ReceiptHalf) Signable() []byte {
	return encoding.Fingerprint(receiptHalfBody{
		Party:      r.Party,
		OwnTriple:  r.OwnTriple,
		PeerTriple: r.PeerTriple,
	})
}

func (r *ReceiptHalf) ID() Identifier {
	return HashToID(r.Signable())
}

func (r *ReceiptHalf) Signer() Identifier { return r.Party }
func (r *ReceiptHalf) Level() Phase       { return PhaseReady }

// Receipt is the completed bilateral receipt: the pair of halves whose
// mutual existence certifies symmetric decision readiness. It is the only
// ladder object handed to downstream consumers.
type Receipt struct {
	Own  *ReceiptHalf
	Peer *ReceiptHalf
}

// ID is identical for both parties: it hashes the two halves' identifiers
// in canonical order, independent of which side holds the receipt.
func (r *Receipt) ID() Identifier {
	halves := IdentifierList{r.Own.ID(), r.Peer.ID()}.Sort()
	return MakeID(halves)
}
