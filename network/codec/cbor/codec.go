// Package cbor provides the default wire codec: a one-byte envelope code
// followed by the canonical CBOR encoding of the payload.
package cbor

import (
	"github.com/pkg/errors"

	"github.com/riffcc/pact/model/encoding"
	"github.com/riffcc/pact/network"
	"github.com/riffcc/pact/network/codec"
)

// Codec represents a CBOR codec for our network.
type Codec struct {
}

var _ network.Codec = (*Codec)(nil)

// NewCodec creates a new CBOR codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode will encode the given entity and return the bytes.
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	code, what, err := codec.MessageCodeFromInterface(v)
	if err != nil {
		return nil, errors.Wrap(err, "could not determine message code")
	}

	payload, err := encoding.EncMode.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode %s", what)
	}

	data := make([]byte, 0, len(payload)+1)
	data = append(data, code)
	data = append(data, payload...)
	return data, nil
}

// Decode will decode the given data and return the message.
// Expected error returns during normal operations:
//   - codec.ErrInvalidEncoding if the data carries no envelope
//   - codec.UnknownMsgCodeErr if the envelope code is unknown
//   - codec.MsgUnmarshalErr if the payload does not decode into the coded type
func (c *Codec) Decode(data []byte) (interface{}, error) {
	if len(data) < 2 {
		return nil, codec.ErrInvalidEncoding
	}

	v, what, err := codec.InterfaceFromMessageCode(data[0])
	if err != nil {
		return nil, err
	}

	err = encoding.DecMode.Unmarshal(data[1:], v)
	if err != nil {
		return nil, codec.NewMsgUnmarshalErr(data[0], what, err)
	}

	return v, nil
}
