package signature

import (
	"crypto/cipher"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/sign/schnorr"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module"
)

// suite is the group used for all bilateral artifact signatures.
var suite = edwards25519.NewBlakeSHA256Ed25519()

// SchnorrLocal implements module.Local with a Schnorr keypair over
// edwards25519. Signing is stateless and safe for concurrent use.
type SchnorrLocal struct {
	private kyber.Scalar
	party   *pact.Party
}

var _ module.Local = (*SchnorrLocal)(nil)

// NewSchnorrLocal wraps an existing private key.
func NewSchnorrLocal(private kyber.Scalar) (*SchnorrLocal, error) {
	public := suite.Point().Mul(private, nil)
	keyBytes, err := public.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("could not marshal public key: %w", err)
	}
	return &SchnorrLocal{
		private: private,
		party:   pact.NewParty(keyBytes),
	}, nil
}

// GenerateSchnorrLocal creates a fresh keypair from the given randomness
// source, or from the suite's secure source when rng is nil.
func GenerateSchnorrLocal(rng cipher.Stream) (*SchnorrLocal, error) {
	if rng == nil {
		rng = suite.RandomStream()
	}
	return NewSchnorrLocal(suite.Scalar().Pick(rng))
}

func (l *SchnorrLocal) NodeID() pact.Identifier {
	return l.party.NodeID
}

func (l *SchnorrLocal) Party() *pact.Party {
	return l.party
}

// Sign signs the tagged message with the local private key.
func (l *SchnorrLocal) Sign(tag string, msg []byte) ([]byte, error) {
	sig, err := schnorr.Sign(suite, l.private, taggedMessage(tag, msg))
	if err != nil {
		return nil, fmt.Errorf("could not sign message: %w", err)
	}
	return sig, nil
}

// Verify checks sig over the tagged message against the party's public key.
// Returns pact.ErrInvalidSignature for any failure to verify, including an
// unparsable key, since both are equally adversarial on the receive path.
func Verify(party *pact.Party, tag string, msg []byte, sig []byte) error {
	public := suite.Point()
	err := public.UnmarshalBinary(party.Key)
	if err != nil {
		return fmt.Errorf("could not unmarshal public key: %w", pact.ErrInvalidSignature)
	}
	err = schnorr.Verify(suite, public, taggedMessage(tag, msg), sig)
	if err != nil {
		return fmt.Errorf("%s: %w", err.Error(), pact.ErrInvalidSignature)
	}
	return nil
}

func taggedMessage(tag string, msg []byte) []byte {
	tagged := make([]byte, 0, len(tag)+len(msg))
	tagged = append(tagged, []byte(tag)...)
	return append(tagged, msg...)
}
