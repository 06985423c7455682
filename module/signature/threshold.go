package signature

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/sign/tbls"

	"github.com/riffcc/pact/model/pact"
)

// thresholdSuite is the pairing suite for threshold signatures: shares and
// recovered signatures live in G1, public key material in G2.
var thresholdSuite = bn256.NewSuite()

// ThresholdProvider wraps one arbitrator's view of the committee's threshold
// signature scheme: the shared public polynomial commitment, the node's own
// private share, and the committee parameters. Any quorum-sized set of
// distinct valid shares combines into the same group signature, which is
// what makes certificates deterministic.
//
// A provider without a private share (private == nil) can verify and combine
// but not sign; that is the observer configuration.
type ThresholdProvider struct {
	public  *share.PubPoly
	private *share.PriShare
	t       int
	n       int
}

// NewThresholdProvider creates a provider for a committee of size n with
// threshold t.
func NewThresholdProvider(public *share.PubPoly, private *share.PriShare, t int, n int) (*ThresholdProvider, error) {
	if t < 1 || n < t {
		return nil, fmt.Errorf("invalid committee parameters: t=%d, n=%d", t, n)
	}
	if private != nil && (private.I < 0 || private.I >= n) {
		return nil, fmt.Errorf("private share index %d outside committee of %d: %w", private.I, n, ErrInvalidSignerIndex)
	}
	return &ThresholdProvider{
		public:  public,
		private: private,
		t:       t,
		n:       n,
	}, nil
}

// Public returns the committee's public polynomial commitment.
func (p *ThresholdProvider) Public() *share.PubPoly { return p.public }

// Threshold returns the minimum number of distinct shares for a certificate.
func (p *ThresholdProvider) Threshold() int { return p.t }

// Size returns the committee size.
func (p *ThresholdProvider) Size() int { return p.n }

// Index returns the local signer index, or -1 for an observer.
func (p *ThresholdProvider) Index() int {
	if p.private == nil {
		return -1
	}
	return p.private.I
}

// SignShare produces the local arbitrator's signature share over the tagged
// message. The share encodes the signer index.
func (p *ThresholdProvider) SignShare(tag string, msg []byte) ([]byte, error) {
	if p.private == nil {
		return nil, fmt.Errorf("provider holds no private share")
	}
	sig, err := tbls.Sign(thresholdSuite, p.private, taggedMessage(tag, msg))
	if err != nil {
		return nil, fmt.Errorf("could not sign share: %w", err)
	}
	return sig, nil
}

// VerifyShare checks a signature share over the tagged message against the
// committee's public polynomial. Failures map to pact.ErrInvalidSignature.
func (p *ThresholdProvider) VerifyShare(tag string, msg []byte, sig []byte) error {
	err := tbls.Verify(thresholdSuite, p.public, taggedMessage(tag, msg), sig)
	if err != nil {
		return fmt.Errorf("%s: %w", err.Error(), pact.ErrInvalidSignature)
	}
	return nil
}

// ShareIndex extracts the signer index a share claims to originate from.
func ShareIndex(sig []byte) (uint16, error) {
	if len(sig) < 2 {
		return 0, fmt.Errorf("share of %d bytes carries no index: %w", len(sig), ErrInvalidFormat)
	}
	return binary.BigEndian.Uint16(sig), nil
}

// Combine recovers the group signature from the given shares. The shares
// must be individually valid; Combine enforces that at least t distinct
// signer indices are present before attempting recovery, so a certificate
// can never be built from fewer signers than the threshold.
func (p *ThresholdProvider) Combine(tag string, msg []byte, sigs [][]byte) ([]byte, error) {
	seen := make(map[uint16]struct{}, len(sigs))
	for _, sig := range sigs {
		idx, err := ShareIndex(sig)
		if err != nil {
			return nil, err
		}
		if int(idx) >= p.n {
			return nil, fmt.Errorf("share index %d outside committee of %d: %w", idx, p.n, ErrInvalidSignerIndex)
		}
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("share index %d included twice: %w", idx, ErrDuplicatedSigner)
		}
		seen[idx] = struct{}{}
	}
	if len(seen) < p.t {
		return nil, fmt.Errorf("have %d distinct shares, need %d: %w", len(seen), p.t, ErrInsufficientShares)
	}

	combined, err := tbls.Recover(thresholdSuite, p.public, taggedMessage(tag, msg), sigs, p.t, p.n)
	if err != nil {
		return nil, fmt.Errorf("could not recover group signature: %w", err)
	}
	return combined, nil
}

// VerifyCombined checks a recovered group signature over the tagged message
// against the committee's group public key.
func (p *ThresholdProvider) VerifyCombined(tag string, msg []byte, sig []byte) error {
	err := bls.Verify(thresholdSuite, p.public.Commit(), taggedMessage(tag, msg), sig)
	if err != nil {
		return fmt.Errorf("%s: %w", err.Error(), pact.ErrInvalidSignature)
	}
	return nil
}

// GenerateThresholdKeys deals a fresh (t, n) threshold key: the public
// polynomial commitment shared by the whole committee and one private share
// per arbitrator. Used by trusted setup and test fixtures; production key
// material would come from a DKG, which is outside this module.
func GenerateThresholdKeys(t int, n int, rng cipher.Stream) (*share.PubPoly, []*share.PriShare, error) {
	if t < 1 || n < t {
		return nil, nil, fmt.Errorf("invalid committee parameters: t=%d, n=%d", t, n)
	}
	if rng == nil {
		rng = thresholdSuite.RandomStream()
	}
	priPoly := share.NewPriPoly(thresholdSuite.G2(), t, nil, rng)
	pubPoly := priPoly.Commit(thresholdSuite.G2().Point().Base())
	return pubPoly, priPoly.Shares(n), nil
}
