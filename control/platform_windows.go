//go:build windows
// +build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific debug probes reporting the IOCP-backed IO engine this
// build runs (internal/concurrency/io_engine_windows.go, grounded on
// reactor/reactor_windows.go).

package control

import (
	"runtime"
)

// RegisterPlatformProbes wires Windows-specific debug probes into dp.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.io_backend", func() any {
		return "iocp"
	})
}
