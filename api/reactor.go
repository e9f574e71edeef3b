// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for event-driven IO Reactors
// used to multiplex connections across poll-mode backends (epoll, IOCP, io_uring, etc.)

package api

// Event encapsulates the result of an OS-level readiness notification
type Event struct {
	Fd       uintptr // file descriptor or system handle
	UserData uintptr // opaque application value, usually a pointer-to-connection/context

	// Readable/Writable report which readiness condition fired, when the
	// backend's polling primitive exposes that distinction (epoll masks
	// EPOLLIN/EPOLLOUT separately). IOCP's completion model has no
	// equivalent notion; both stay false there and BytesTransferred
	// carries the real count instead.
	Readable bool
	Writable bool

	// BytesTransferred is the platform-reported completion size, when the
	// polling primitive gives one directly (IOCP's GetQueuedCompletionStatus
	// qty parameter). Zero on backends whose readiness model has no
	// natural byte count of its own.
	BytesTransferred uint32

	// Err is a completion-time failure the reactor observed directly
	// (IOCP surfaces these from GetQueuedCompletionStatus; epoll reports
	// EPOLLERR/EPOLLHUP the same way on Linux).
	Err error
}

// Reactor defines the common interface for an event-loop that dispatches I/O events
// regardless of specific polling mechanism used.
type Reactor interface {
	// Register must associate a socket/file handle with the event loop
	Register(fd uintptr, userData uintptr) error

	// Unregister releases a previously registered handle's interest so a
	// later Register of the same fd does not collide with a stale
	// registration (epoll's EPOLL_CTL_ADD fails EEXIST otherwise).
	Unregister(fd uintptr) error

	// Wait must block and fill events into output buffer when IO is ready
	Wait(events []Event) (int, error)

	// Close must cleanup the internal poller backend
	Close() error
}
