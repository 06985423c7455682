package irrecoverable

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/atomic"
)

// Signaler sends the first irrecoverable error it is given out through its
// error channel and terminates the throwing goroutine. Subsequent errors are
// logged and discarded, since by then shutdown is already underway.
type Signaler struct {
	errors  chan error
	defunct *atomic.Bool
}

func NewSignaler() (*Signaler, <-chan error) {
	errors := make(chan error, 1)
	signaler := &Signaler{
		errors:  errors,
		defunct: atomic.NewBool(false),
	}
	return signaler, errors
}

// Throw is a narrow drop-in replacement for panic, log.Fatal, log.Panic, etc
// anywhere there's something connected to the error channel. It does not
// return: the calling goroutine exits.
func (s *Signaler) Throw(err error) {
	defer runtime.Goexit()
	if s.defunct.CompareAndSwap(false, true) {
		s.errors <- err
		close(s.errors)
	} else {
		// another goroutine has already thrown; the component is coming down
		fmt.Fprintf(os.Stderr, "additional irrecoverable error after shutdown commenced: %v\n", err)
	}
}

// SignalerContext is a constrained drop-in replacement for context.Context,
// adding the ability to throw irrecoverable errors up the component tree.
type SignalerContext interface {
	context.Context
	Throw(err error) // delegates to the signaler
	sealed()         // private, to constrain construction to WithSignaler
}

type signalerCtx struct {
	context.Context
	*Signaler
}

func (sc signalerCtx) sealed() {}

// WithSignaler is the one way to get a SignalerContext: it couples a fresh
// Signaler to the parent context and returns the channel on which thrown
// errors surface.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	sig, errChan := NewSignaler()
	return signalerCtx{parent, sig}, errChan
}

// WithSignalerContext wires an existing Signaler to a (possibly derived)
// context.
func WithSignalerContext(parent context.Context, sig *Signaler) SignalerContext {
	return signalerCtx{parent, sig}
}

// Throw recovers the SignalerContext hiding behind a plain context.Context
// and throws through it. If the context does not support irrecoverables the
// process dies loudly, because swallowing the error would be worse.
func Throw(ctx context.Context, err error) {
	signalerAbleContext, ok := ctx.(SignalerContext)
	if ok {
		signalerAbleContext.Throw(err)
	}
	fmt.Fprintf(os.Stderr, "irrecoverable error signaler not found for context, unhandled irrecoverable error: %v\n", err)
	os.Exit(1)
}
