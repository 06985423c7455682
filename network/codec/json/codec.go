// Package json provides an alternate wire codec with the same one-byte
// envelope as the CBOR codec but a JSON payload, for environments where
// wire-level inspectability outweighs compactness.
package json

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/riffcc/pact/network"
	"github.com/riffcc/pact/network/codec"
)

// Codec represents a JSON codec for our network.
type Codec struct {
}

var _ network.Codec = (*Codec)(nil)

// NewCodec creates a new JSON codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode will encode the given entity and return the bytes.
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	code, what, err := codec.MessageCodeFromInterface(v)
	if err != nil {
		return nil, errors.Wrap(err, "could not determine message code")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode %s", what)
	}

	data := make([]byte, 0, len(payload)+1)
	data = append(data, code)
	data = append(data, payload...)
	return data, nil
}

// Decode will decode the given data and return the message. The expected
// error returns mirror the CBOR codec's.
func (c *Codec) Decode(data []byte) (interface{}, error) {
	if len(data) < 2 {
		return nil, codec.ErrInvalidEncoding
	}

	v, what, err := codec.InterfaceFromMessageCode(data[0])
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(data[1:], v)
	if err != nil {
		return nil, codec.NewMsgUnmarshalErr(data[0], what, err)
	}

	return v, nil
}
