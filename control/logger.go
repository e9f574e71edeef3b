// control/logger.go
// Author: momentics <momentics@gmail.com>
//
// Process-wide, atomically-swappable log sink (spec Design Note 9.7).
// Generalizes MetricsRegistry's RWMutex-guarded map down to a single
// atomic.Pointer swap, since the payload here is one function value rather
// than a keyed collection.

package control

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/tpcore/api"
)

var currentSink atomic.Pointer[api.Sink]

func init() {
	var noop api.Sink = func(api.Severity, string) {}
	currentSink.Store(&noop)
}

// SetLogger installs sink as the process-wide log sink and returns the
// previously installed one, mirroring ntp::logger::SetLogger's return-the-
// old-handler contract.
func SetLogger(sink api.Sink) api.Sink {
	if sink == nil {
		sink = func(api.Severity, string) {}
	}
	old := currentSink.Swap(&sink)
	return *old
}

// Logger returns the currently installed sink.
func Logger() api.Sink {
	return *currentSink.Load()
}

// Log formats and emits a record at the given severity through the
// currently installed sink.
func Log(sev api.Severity, format string, args ...any) {
	Logger()(sev, fmt.Sprintf(format, args...))
}
