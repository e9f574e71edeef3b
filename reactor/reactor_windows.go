//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP (I/O Completion Port) reactor implementation and factory.

package reactor

import (
	"errors"
	"golang.org/x/sys/windows"
	"unsafe"
)

// windowsReactor is an IOCP-based event reactor.
type windowsReactor struct {
	iocp windows.Handle
}

// NewReactor constructs a new platform-specific EventReactor for Windows.
func NewReactor() (EventReactor, error) {
	port, err := windows.CreateIoCompletionPort(
		windows.InvalidHandle,
		0,
		0,
		0,
	)
	if err != nil {
		return nil, err
	}
	return &windowsReactor{
		iocp: port,
	}, nil
}

// Register associates a handle with IOCP.
func (r *windowsReactor) Register(handle uintptr, userData uintptr) error {
	h := windows.Handle(handle)
	_, err := windows.CreateIoCompletionPort(
		h,
		r.iocp,
		userData,
		0,
	)
	return err
}

// Unregister has no IOCP equivalent: a handle can only be detached from a
// completion port by closing it. CancelIoEx best-effort cancels any I/O
// still pending against handle so a stale registration cannot deliver a
// late completion after the caller considers it released.
func (r *windowsReactor) Unregister(fd uintptr) error {
	return windows.CancelIoEx(windows.Handle(fd), nil)
}

// Wait blocks for IO events and fills output slice. A non-nil err with a
// non-nil overlapped is still a valid completion for a failed I/O (e.g.
// the peer closing the connection); only a nil overlapped means Wait
// itself failed with no completion to report. The reported Event's Fd
// carries the completed OVERLAPPED's address, not the handle.
func (r *windowsReactor) Wait(events []Event) (int, error) {
	if len(events) == 0 {
		return 0, errors.New("reactor: empty event buffer")
	}

	var qty uint32
	var key uintptr
	var overlapped *windows.Overlapped

	err := windows.GetQueuedCompletionStatus(r.iocp, &qty, &key, &overlapped, windows.INFINITE)
	if overlapped == nil {
		return 0, err
	}
	events[0] = Event{
		Fd:               uintptr(unsafe.Pointer(overlapped)),
		UserData:         key,
		BytesTransferred: qty,
		Err:              err,
	}
	return 1, nil
}

// Close closes the IOCP handle.
func (r *windowsReactor) Close() error {
	return windows.CloseHandle(r.iocp)
}
