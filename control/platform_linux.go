//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes reporting the epoll-backed IO engine this
// build runs (internal/concurrency/io_engine_linux.go, grounded on
// reactor/reactor_linux.go).

package control

import (
	"runtime"
)

// RegisterPlatformProbes wires Linux-specific debug probes into dp.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.io_backend", func() any {
		return "epoll"
	})
}
