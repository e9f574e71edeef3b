//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// errEpollFailure reports EPOLLERR/EPOLLHUP observed on a watched fd.
var errEpollFailure = errors.New("reactor: epoll reported EPOLLERR/EPOLLHUP")

// linuxReactor is an epoll-based event reactor.
type linuxReactor struct {
	epfd int
}

// NewReactor constructs a new platform-specific EventReactor for Linux.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &linuxReactor{epfd: epfd}, nil
}

// Register adds file descriptor to epoll.
func (r *linuxReactor) Register(fd uintptr, udata uintptr) error {
	event := &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLET,
		Fd:     int32(fd),
	}
	*(*uintptr)(unsafe.Pointer(&event.Pad)) = udata
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), event)
}

// Unregister removes fd from the epoll interest list so a later Register
// of the same fd does not collide with EEXIST.
func (r *linuxReactor) Unregister(fd uintptr) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

// Wait waits for epoll events and fills the result into events slice.
func (r *linuxReactor) Wait(events []Event) (int, error) {
	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, rawEvents, -1)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		re := rawEvents[i]
		ev := Event{
			Fd:       uintptr(re.Fd),
			UserData: *(*uintptr)(unsafe.Pointer(&re.Pad)),
			Readable: re.Events&unix.EPOLLIN != 0,
			Writable: re.Events&unix.EPOLLOUT != 0,
		}
		if re.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ev.Err = errEpollFailure
		}
		events[i] = ev
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}
