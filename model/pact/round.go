package pact

import (
	"bytes"

	"github.com/riffcc/pact/model/encoding"
)

// Round identifies one attempt of the threshold protocol: a round number
// paired with the value proposed in it.
type Round struct {
	Number uint64
	Value  []byte
}

// Digest is the content address of the round; it is the message that
// arbitrator shares and the recovered certificate signature attest.
func (r Round) Digest() Identifier {
	return MakeID(r)
}

// Share is one arbitrator's partial signature over a round digest. The
// signer index identifies the arbitrator within the committee; the
// signature is a threshold-scheme share which itself encodes the same
// index, and the two must agree.
type Share struct {
	Round       uint64
	Digest      Identifier
	SignerIndex uint16
	Signature   []byte
}

func (s *Share) ID() Identifier {
	return MakeID(s)
}

// Certificate is the deterministic combination of a quorum of distinct
// valid shares for one round: unforgeable proof that at least the
// threshold number of arbitrators signed the value in that round.
type Certificate struct {
	Round     uint64
	Value     []byte
	Signature []byte
}

type certificateBody struct {
	Round uint64
	Value []byte
}

// Digest returns the round digest this certificate's signature verifies
// against.
func (c *Certificate) Digest() Identifier {
	return Round{Number: c.Round, Value: c.Value}.Digest()
}

func (c *Certificate) ID() Identifier {
	return MakeID(certificateBody{Round: c.Round, Value: c.Value})
}

// Equivocation is public evidence that one arbitrator signed two different
// values within one round: two validly-signed shares from the same signer
// index over different digests. Recording it is this layer's whole
// responsibility; punitive action happens elsewhere.
type Equivocation struct {
	Round       uint64
	SignerIndex uint16
	First       *Share
	Second      *Share
}

// Valid checks the structural conditions for evidence: same round, same
// signer, different digests. Signature validity is checked by the caller
// before evidence is recorded, since it requires the committee key.
func (e *Equivocation) Valid() bool {
	return e.First != nil && e.Second != nil &&
		e.First.Round == e.Round && e.Second.Round == e.Round &&
		e.First.SignerIndex == e.SignerIndex && e.Second.SignerIndex == e.SignerIndex &&
		!bytes.Equal(e.First.Digest[:], e.Second.Digest[:])
}

func (e *Equivocation) ID() Identifier {
	return MakeID(e)
}

// SessionID derives the deterministic identifier of a bilateral session
// from the intent payload and the participating parties. Both parties
// derive the same identifier regardless of perspective.
func SessionID(payload []byte, parties ...Identifier) Identifier {
	sorted := IdentifierList(parties).Sort()
	return HashToID(append(encoding.Fingerprint(sorted), payload...))
}
