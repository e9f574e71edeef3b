//go:build !linux && !windows
// +build !linux,!windows

// File: internal/concurrency/io_engine_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IO engine stub for platforms with neither epoll nor IOCP, grounded on
// reactor/reactor_stub.go's unsupported-platform contract.

package concurrency

import "github.com/momentics/tpcore/api"

// IOCompletion mirrors the Linux engine's completion shape so callers in
// internal/dispatch compile unconditionally.
type IOCompletion struct {
	UserData uintptr
	Outcome  api.IOOutcome
}

// IOEngine is a no-op stand-in reporting ErrNotSupported from every
// operation on platforms without a wired IO engine.
type IOEngine struct{}

// NewIOEngine returns an EngineError on unsupported platforms.
func NewIOEngine() (*IOEngine, error) {
	return nil, api.WrapEngineError(errUnsupportedPlatform)
}

func (e *IOEngine) Arm(source api.IOSource, userData uintptr) error {
	return api.WrapEngineError(errUnsupportedPlatform)
}

func (e *IOEngine) Disarm(source api.IOSource) error {
	return api.WrapEngineError(errUnsupportedPlatform)
}

func (e *IOEngine) Abort(source api.IOSource) error {
	return api.WrapEngineError(errUnsupportedPlatform)
}

func (e *IOEngine) PendingArms() int64 { return 0 }

func (e *IOEngine) Completions() <-chan IOCompletion { return nil }

func (e *IOEngine) Close() error { return nil }

var errUnsupportedPlatform = platformError("concurrency: IO engine not supported on this platform")

type platformError string

func (p platformError) Error() string { return string(p) }
