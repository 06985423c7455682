package operation

import (
	"github.com/vmihailenco/msgpack/v4"

	"github.com/riffcc/pact/module/irrecoverable"
)

// encodeEntity encodes the given entity using msgpack. An encoding failure
// here is an exception: the entities are our own types and must encode.
func encodeEntity(entity interface{}) ([]byte, error) {
	val, err := msgpack.Marshal(entity)
	if err != nil {
		return nil, irrecoverable.NewExceptionf("could not encode entity: %w", err)
	}
	return val, nil
}

// decodeValue decodes a stored value into the given entity using msgpack.
func decodeValue(val []byte, entity interface{}) error {
	err := msgpack.Unmarshal(val, entity)
	if err != nil {
		return irrecoverable.NewExceptionf("could not decode entity: %w", err)
	}
	return nil
}
