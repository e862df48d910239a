package proto

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardnew/remoteplugin/fifo"
	"github.com/ardnew/remoteplugin/pkg"
)

// DefaultBusyInterval is how often WaitForReply services the busy callback
// while polling for a reply with busy=true, used when an Endpoint's
// BusyInterval is left zero. The protocol calls for "up to ~50ms"; this is
// the host UI-thread accommodation described there.
const DefaultBusyInterval = 50 * time.Millisecond

// Dispatcher handles one received Message and reports whether the endpoint
// should keep running. Returning false means "terminate": the host and
// child dispatchers (package hostproto, package childproto) implement this.
type Dispatcher func(Message) bool

// Endpoint is the symmetric protocol base shared by the host and child
// sides: it sends and receives framed messages over a pair of FIFOs and
// dispatches received messages to a Dispatcher hook.
type Endpoint struct {
	incoming *fifo.FIFO
	outgoing *fifo.FIFO
	dispatch Dispatcher

	sendMu sync.Mutex

	// BusyPoll, if set, is invoked by WaitForReply(busy=true) once per
	// BusyInterval while waiting with no message pending — the host uses
	// this to pump its UI event loop without starving it. Child endpoints
	// never set this and ignore the busy flag.
	BusyPoll func()

	// BusyInterval overrides DefaultBusyInterval. Set by the embedding
	// package (hostproto.New copies its busyInterval argument here) before
	// the endpoint starts running; zero means DefaultBusyInterval.
	BusyInterval time.Duration
}

// NewEndpoint builds an Endpoint over the given incoming/outgoing FIFOs.
// dispatch is consulted for every message delivered through
// FetchAndDispatchOne and DrainPending, and for every message WaitForReply
// receives other than the one it returns. Receive does not dispatch.
func NewEndpoint(incoming, outgoing *fifo.FIFO, dispatch Dispatcher) *Endpoint {
	return &Endpoint{incoming: incoming, outgoing: outgoing, dispatch: dispatch, BusyInterval: DefaultBusyInterval}
}

// Send encodes and transmits msg on the outgoing FIFO. Concurrent Sends
// from multiple goroutines in the same process are serialized.
func (e *Endpoint) Send(msg Message) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	return Encode(e.outgoing, msg)
}

// Receive blocks until a complete message is available on the incoming
// FIFO and returns it, without dispatching it.
func (e *Endpoint) Receive() (Message, error) {
	return Decode(e.incoming)
}

// FetchAndDispatchOne receives one message, dispatches it, and returns it
// along with whatever the dispatcher decided (via the returned bool: false
// means the caller should stop processing).
func (e *Endpoint) FetchAndDispatchOne() (Message, bool, error) {
	msg, err := e.Receive()
	if err != nil {
		return Message{}, false, err
	}
	keepRunning := e.dispatch(msg)
	return msg, keepRunning, nil
}

// DrainPending dispatches every message currently queued on the incoming
// FIFO without blocking for new ones. Returns false if any dispatched
// message signaled termination.
func (e *Endpoint) DrainPending() (bool, error) {
	for e.incoming.MessagesPending() {
		_, keepRunning, err := e.FetchAndDispatchOne()
		if err != nil {
			return false, err
		}
		if !keepRunning {
			return false, nil
		}
	}
	return true, nil
}

// WaitForReply receives and dispatches every message that arrives until one
// with id == expectedID or id == GeneralFailure shows up, which it returns
// without re-dispatching. If busy is true and BusyPoll is set, BusyPoll is
// invoked roughly every BusyInterval while no message is pending, letting
// the host service its event loop instead of blocking silently.
func (e *Endpoint) WaitForReply(expectedID ID, busy bool) (Message, error) {
	for {
		if busy && e.BusyPoll != nil && !e.incoming.MessagesPending() {
			e.BusyPoll()
			interval := e.BusyInterval
			if interval <= 0 {
				interval = DefaultBusyInterval
			}
			time.Sleep(interval)
			if !e.incoming.MessagesPending() {
				continue
			}
		}

		msg, err := e.Receive()
		if err != nil {
			return Message{}, err
		}
		if msg.ID == expectedID || msg.ID == GeneralFailure {
			return msg, nil
		}
		if !e.dispatch(msg) {
			return Message{}, pkg.ErrPeerExited
		}
	}
}

// WaitForReplyContext behaves like WaitForReply but also returns early if
// ctx is done first. The underlying receive is not itself interruptible
// (the FIFO has no cancellable wait), so a goroutine is left to finish
// receiving that one message and discard it; this only matters for
// bounding how long a caller blocks, not for releasing the FIFO.
func (e *Endpoint) WaitForReplyContext(ctx context.Context, expectedID ID, busy bool) (Message, error) {
	type result struct {
		msg Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := e.WaitForReply(expectedID, busy)
		done <- result{msg, err}
	}()

	select {
	case r := <-done:
		return r.msg, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Message{}, pkg.ErrTimeout
		}
		return Message{}, pkg.ErrCancelled
	}
}
