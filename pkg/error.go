package pkg

import "errors"

// Transport errors.
var (
	// ErrAllocationFailed indicates a shared-memory segment could not be
	// created or mapped. The key search skips keys already in use without
	// an upper bound; any other creation or mapping error ends it with this
	// error.
	ErrAllocationFailed = errors.New("shared memory allocation failed")

	// ErrNotFound indicates an attach was attempted against a key that
	// does not exist.
	ErrNotFound = errors.New("shared memory segment not found")

	// ErrSemaphoreInit indicates a process-shared semaphore failed to
	// initialize.
	ErrSemaphoreInit = errors.New("semaphore initialization failed")

	// ErrProtocol indicates a malformed or unexpected message on the wire.
	ErrProtocol = errors.New("protocol error")

	// ErrGeneralFailure indicates the peer reported IdGeneralFailure.
	ErrGeneralFailure = errors.New("peer reported general failure")

	// ErrNotConfigured indicates the host's audio region manager was asked
	// to process before EnsureCapacity had allocated a region.
	ErrNotConfigured = errors.New("child not configured")

	// ErrInvalidState indicates an operation was attempted outside the
	// lifecycle state that permits it.
	ErrInvalidState = errors.New("invalid transport state")

	// ErrAlreadyRunning indicates Run was called on a running endpoint.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates an operation was attempted on a stopped
	// endpoint.
	ErrNotRunning = errors.New("not running")

	// ErrCancelled indicates a blocking wait was cancelled via context.
	ErrCancelled = errors.New("wait cancelled")

	// ErrTimeout indicates a bounded wait exceeded its deadline.
	ErrTimeout = errors.New("wait timed out")

	// ErrBufferTooSmall indicates the provided buffer cannot hold the
	// requested data.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidParameter indicates an invalid argument to a constructor
	// or operation (e.g. a non-positive segment size).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrPeerExited indicates a wait for a reply ended because a message
	// dispatched during the wait signaled termination.
	ErrPeerExited = errors.New("peer process exited")
)
