// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics registry for the Pool Façade (C7): a thread-safe map of
// named gauges plus per-kind submit counters, read back through
// api.Debug's DumpState via the "metrics.snapshot" probe facade/pool.go
// registers in New.

package control

import (
	"sync"
	"time"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key to an arbitrary value (a gauge).
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Incr adds delta to the int64 counter at key, creating it at delta if the
// key is absent or was last Set to a non-int64 value. Used by the Pool
// Façade to count per-kind submit operations (e.g. "work.submitted").
func (mr *MetricsRegistry) Incr(key string, delta int64) {
	mr.mu.Lock()
	cur, _ := mr.metrics[key].(int64)
	mr.metrics[key] = cur + delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
