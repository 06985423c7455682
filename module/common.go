package module

import (
	"errors"

	"github.com/riffcc/pact/module/irrecoverable"
)

// ErrMultipleStartup is returned when Start is called on a component more
// than once.
var ErrMultipleStartup = errors.New("component may only be started once")

// ReadyDoneAware provides an interface to wait for component startup and
// shutdown. Components implementing it support a single start-stop cycle and
// will not restart after shutdown has commenced.
type ReadyDoneAware interface {
	// Ready returns a channel that is closed once startup has completed.
	// This is an idempotent method.
	Ready() <-chan struct{}

	// Done returns a channel that is closed once shutdown has completed.
	// This is an idempotent method.
	Done() <-chan struct{}
}

// Startable provides an interface to start a component. Once started, the
// component can be stopped by cancelling the given context.
type Startable interface {
	// Start starts the component. Any irrecoverable errors encountered while
	// the component is running are thrown with the given context.
	Start(irrecoverable.SignalerContext)
}
