// Package network defines the transport abstraction the engines speak to.
// The underlying channel is an unordered, duplicate-tolerant datagram
// transport: loss, reordering, and duplication are all expected and must be
// absorbed by the protocol layer, never by the transport.
package network

import (
	"github.com/riffcc/pact/model/pact"
)

// Conduit is an engine's handle for sending events to its peers.
type Conduit interface {
	// Publish submits an event for delivery to every other participant.
	// Delivery is best-effort; the flood layer compensates.
	Publish(event interface{}) error

	// Unicast submits an event for delivery to one target participant.
	Unicast(event interface{}, targetID pact.Identifier) error
}

// MessageProcessor consumes inbound events. Implementations must be
// non-blocking: the transport's delivery goroutine only enqueues.
type MessageProcessor interface {
	// Process handles one inbound event from the given origin. Errors
	// indicate a dropped message, never a transport failure.
	Process(originID pact.Identifier, event interface{}) error
}

// Codec provides factories for encoding and decoding wire messages.
type Codec interface {
	// Encode encodes a message into its enveloped wire form.
	Encode(v interface{}) ([]byte, error)

	// Decode decodes an enveloped wire form back into a message.
	Decode(data []byte) (interface{}, error)
}
