// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral contract for the dispatcher's IO engine backend. The
// concrete epoll/IOCP/stub implementations in this package all build against
// this file's aliases so callers in internal/concurrency depend on a single
// vocabulary regardless of platform.

package reactor

import "github.com/momentics/tpcore/api"

// Event is the readiness/completion notification the reactor reports.
type Event = api.Event

// EventReactor is the per-platform IO multiplexer the IO Manager arms
// completions against.
type EventReactor = api.Reactor
