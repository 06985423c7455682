package engine

// Notifier is a concurrency primitive for informing worker routines about
// the arrival of new work. It provides the guarantee that if Notify is
// called after some work was queued, the worker will always receive at
// least one notification, while collapsing any number of concurrent
// notifications into one.
//
// Notifier is safe to pass by value.
type Notifier struct {
	notifier chan struct{}
}

// NewNotifier instantiates a Notifier with no pending notification.
func NewNotifier() Notifier {
	// the buffer of one covers the blind period between a worker observing
	// an empty queue and re-subscribing to the channel: a notification
	// arriving in between is buffered instead of lost
	return Notifier{notifier: make(chan struct{}, 1)}
}

// Notify sends a notification, unless an unconsumed one is already pending.
func (n Notifier) Notify() {
	select {
	case n.notifier <- struct{}{}:
	default:
	}
}

// Channel returns the channel notifications are received on.
func (n Notifier) Channel() <-chan struct{} {
	return n.notifier
}
