//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// IO Manager stub backing for platforms with neither epoll nor IOCP.
// internal/concurrency/io_engine_other.go does not call this NewReactor; it
// reports its own unsupported-platform error, wrapped as an EngineError.

package reactor

import "errors"

// NewReactor reports that this platform has no wired reactor backend.
func NewReactor() (EventReactor, error) {
	return nil, errors.New("reactor: no epoll or IOCP backend on this platform")
}
