package pact

// Party is one protocol participant. Its identity is its public key: the
// node identifier is derived from the key bytes, so a party cannot claim an
// identity it does not hold the key for. Immutable for a session's lifetime.
type Party struct {
	// NodeID is the hash of the public key bytes.
	NodeID Identifier
	// Key is the marshaled public key under which this party's artifact
	// signatures verify.
	Key []byte
}

// NewParty derives a Party from its public key bytes.
func NewParty(key []byte) *Party {
	return &Party{
		NodeID: HashToID(key),
		Key:    key,
	}
}

// Valid checks that the claimed node identifier matches the key.
func (p *Party) Valid() bool {
	return p.NodeID == HashToID(p.Key)
}
