package pact

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
	"golang.org/x/exp/slices"

	"github.com/riffcc/pact/model/encoding"
)

// Identifier is the content address of a protocol entity: the SHA3-256 hash
// of its canonical encoding. Artifact embedding is expressed as identifier
// references, which keeps message size flat as proof levels escalate while
// preserving the property that a higher-level artifact commits to the exact
// bytes of its prerequisites.
type Identifier [32]byte

// ZeroID is the lowest value in the identifier space, used as a placeholder
// for references that are not set.
var ZeroID = Identifier{}

// MakeID hashes the canonical encoding of the given value.
func MakeID(v interface{}) Identifier {
	return HashToID(encoding.Fingerprint(v))
}

// HashToID hashes arbitrary bytes into the identifier space.
func HashToID(data []byte) Identifier {
	return Identifier(sha3.Sum256(data))
}

// HexStringToIdentifier parses a 64-character hex string into an Identifier.
func HexStringToIdentifier(s string) (Identifier, error) {
	var id Identifier
	n, err := hex.Decode(id[:], []byte(s))
	if err != nil {
		return ZeroID, err
	}
	if n != len(id) {
		return ZeroID, fmt.Errorf("malformed identifier: expected %d bytes, got %d", len(id), n)
	}
	return id, nil
}

func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}

func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identifier) UnmarshalText(text []byte) error {
	var err error
	*id, err = HexStringToIdentifier(string(text))
	return err
}

// IdentifierList is an ordered collection of identifiers.
type IdentifierList []Identifier

// Sort returns a lexicographically sorted copy. Canonical ordering matters
// wherever a set of identifiers feeds a fingerprint.
func (l IdentifierList) Sort() IdentifierList {
	dup := slices.Clone(l)
	slices.SortFunc(dup, func(a, b Identifier) bool {
		return bytes.Compare(a[:], b[:]) < 0
	})
	return dup
}

func (l IdentifierList) Contains(target Identifier) bool {
	return slices.Contains(l, target)
}
