package ggbuffer

import "sync"

// Listener is notified when a newly rendered buffer becomes current.
//
// BufferAvailable runs synchronously on the worker goroutine that
// committed the buffer, right after the commit. Listeners that need to
// touch state owned by the frame loop must hand off to it themselves.
type Listener interface {
	BufferAvailable()
}

// FailureListener is optionally implemented by a Listener that wants to
// hear about renders that failed. BufferFailed runs on the worker
// goroutine; err wraps ErrDrawFailed, ErrDrawPanic or ErrResourceExhausted.
type FailureListener interface {
	BufferFailed(err error)
}

// notifier is the subscriber set of a Buffer.
type notifier struct {
	mu        sync.Mutex
	listeners []Listener
}

func (n *notifier) subscribe(l Listener) {
	if l == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.listeners {
		if x == l {
			return
		}
	}
	n.listeners = append(n.listeners, l)
}

func (n *notifier) unsubscribe(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, x := range n.listeners {
		if x == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// snapshot copies the subscriber list so callbacks run without the lock
// held; a listener may unsubscribe itself from inside its callback.
func (n *notifier) snapshot() []Listener {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Listener(nil), n.listeners...)
}

func (n *notifier) available() {
	for _, l := range n.snapshot() {
		l.BufferAvailable()
	}
}

func (n *notifier) failed(err error) {
	for _, l := range n.snapshot() {
		if fl, ok := l.(FailureListener); ok {
			fl.BufferFailed(err)
		}
	}
}
