package signature

// List of domain separation tags for protocol signatures.
//
// Every signature in the protocol is computed over a tagged message. The tag
// scopes the signature to one sub-protocol level, so a signature produced
// for one level can never be replayed as a signature for another.

// protocol prefix
const protocolPrefix = "PACT-"

// protocol version
const protocolVersion = "-V00"

func tag(domain string) string {
	return protocolPrefix + domain + protocolVersion
}

var (
	// CommitmentTag scopes signatures over intent payloads.
	CommitmentTag = tag("Commitment")
	// DoubleProofTag scopes signatures over commitment pairs.
	DoubleProofTag = tag("Double_Proof")
	// TripleProofTag scopes signatures over double-proof pairs.
	TripleProofTag = tag("Triple_Proof")
	// ReceiptTag scopes signatures over triple-proof pairs.
	ReceiptTag = tag("Receipt_Half")
	// RoundShareTag scopes threshold signature shares over round digests.
	RoundShareTag = tag("Round_Share")
)
