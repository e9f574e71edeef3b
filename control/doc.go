// Package control
// Author: momentics <momentics@gmail.com>
//
// Ambient runtime layer for the tpcore callback-dispatch thread pool:
// Environment normalization (System/Custom flavor sizing), the process-wide
// log sink, the metrics registry, and the debug probe reflector the Pool
// Façade exposes through api.Debug.
//
// This package is cross-platform and build-tag-partitioned where a probe
// needs platform-specific data (platform_linux.go/platform_windows.go).
package control
