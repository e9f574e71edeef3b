// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency is the worker engine substrate the dispatcher core
// arms its four callback kinds against: a shared goroutine pool for Work,
// a lock-free MPMC stack feeding it, a container/heap timer scheduler for
// Timer, a cooperative watch loop for Wait, and a platform IO reactor for
// IO. None of this is visible to callers of the facade Pool; it exists
// because this repository has no OS-native threadpool underneath it.
package concurrency
