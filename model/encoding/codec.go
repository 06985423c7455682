package encoding

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// EncMode is the deterministic CBOR encoding mode used for all canonical
// serialization: fingerprints, signable messages, and wire payloads. Both
// parties who hold the same information state must produce byte-identical
// encodings, so every option that could introduce nondeterminism is pinned.
var EncMode cbor.EncMode

// DecMode is the matching decoding mode. Duplicate map keys are rejected so
// an adversarial payload cannot smuggle two values for one field.
var DecMode cbor.DecMode

func init() {
	var err error
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	EncMode, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("could not create canonical cbor encoding mode: %s", err))
	}
	decOpts := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}
	DecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("could not create cbor decoding mode: %s", err))
	}
}

// Fingerprint returns the canonical encoding of the given value. It is the
// byte string that identifiers are derived from and that signatures are
// computed over. An encoding failure indicates a programming error (a type
// that cannot be canonically encoded), hence the panic.
func Fingerprint(v interface{}) []byte {
	bz, err := EncMode.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("could not fingerprint value (%T): %s", v, err))
	}
	return bz
}
