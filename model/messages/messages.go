// Package messages contains the wire-level message types exchanged between
// protocol participants. They are tagged variants carried over an unordered,
// duplicate-tolerant datagram transport; the network codec maps each type to
// a one-byte envelope code.
package messages

import (
	"github.com/riffcc/pact/model/pact"
)

// Commitment carries a party's first-rung artifact.
type Commitment struct {
	Commitment *pact.Commitment
}

// DoubleProof carries a second-rung artifact.
type DoubleProof struct {
	DoubleProof *pact.DoubleProof
}

// TripleProof carries a third-rung artifact.
type TripleProof struct {
	TripleProof *pact.TripleProof
}

// ReceiptHalf carries a final-rung artifact.
type ReceiptHalf struct {
	ReceiptHalf *pact.ReceiptHalf
}

// Proposal opens a threshold round with a candidate value. Any node may
// propose; the proposal itself carries no signature, since only the shares
// it provokes carry cryptographic weight.
type Proposal struct {
	Round uint64
	Value []byte
}

// Share carries one arbitrator's partial signature for a round.
type Share struct {
	Share *pact.Share
}

// Commit carries a completed threshold certificate for a round.
type Commit struct {
	Certificate *pact.Certificate
}
