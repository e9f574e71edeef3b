// Package api
// Author: momentics <momentics@gmail.com>
//
// Opaque handles returned by every Submit* operation. Each id pairs a
// registry slot index with a generation counter so a stale id from a freed
// slot can never be mistaken for a live one, per the registry's stable
// reference guarantee (spec Design Note 9.2).

package api

import "fmt"

// id is the common shape shared by every kind-specific handle.
type id struct {
	index      uint32
	generation uint32
}

func (i id) String() string { return fmt.Sprintf("%d.%d", i.index, i.generation) }

// WorkID identifies an armed Work Manager submission.
type WorkID struct{ id }

// WaitID identifies an armed Wait Manager submission.
type WaitID struct{ id }

// TimerID identifies an armed Timer Manager submission.
type TimerID struct{ id }

// IOID identifies an armed IO Manager submission.
type IOID struct{ id }

// MakeWorkID constructs a WorkID from a registry slot index and generation.
func MakeWorkID(index, generation uint32) WorkID { return WorkID{id{index, generation}} }

// MakeWaitID constructs a WaitID from a registry slot index and generation.
func MakeWaitID(index, generation uint32) WaitID { return WaitID{id{index, generation}} }

// MakeTimerID constructs a TimerID from a registry slot index and generation.
func MakeTimerID(index, generation uint32) TimerID { return TimerID{id{index, generation}} }

// MakeIOID constructs an IOID from a registry slot index and generation.
func MakeIOID(index, generation uint32) IOID { return IOID{id{index, generation}} }

func (w WorkID) Index() uint32  { return w.index }
func (w WorkID) Gen() uint32    { return w.generation }
func (w WaitID) Index() uint32  { return w.index }
func (w WaitID) Gen() uint32    { return w.generation }
func (t TimerID) Index() uint32 { return t.index }
func (t TimerID) Gen() uint32   { return t.generation }
func (o IOID) Index() uint32    { return o.index }
func (o IOID) Gen() uint32      { return o.generation }
