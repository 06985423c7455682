package module

import (
	"github.com/riffcc/pact/model/pact"
)

// Local encapsulates the identity and signing capability of the local node.
// Signing is stateless with respect to the protocol and safe for concurrent
// use.
type Local interface {
	// NodeID is the identifier derived from the local public key.
	NodeID() pact.Identifier

	// Party is the local node's public identity.
	Party() *pact.Party

	// Sign signs the given message under the given domain separation tag
	// with the node's private key.
	Sign(tag string, msg []byte) ([]byte, error)
}
