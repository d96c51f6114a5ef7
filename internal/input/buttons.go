// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package input converts falling edges on the two push-button lines into
// debounced, edge-triggered button events.
//
// Edges are delivered by Edge, normally from a GPIO watcher goroutine (see
// WatchPin). Events are consumed by Poll or Next from the control loop. Each
// line has exactly one writer (its watcher) and one reader (the loop), and
// all shared fields are atomics.
package input

import (
	"sync/atomic"
	"time"
)

// DebounceWindow is the minimum spacing between two accepted edges on one line.
const DebounceWindow = 250 * time.Millisecond

// Source identifies a push button.
type Source int

const (
	Primary Source = iota
	Secondary
	numSources
)

func (s Source) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Event is one accepted button press.
type Event struct {
	Source    Source
	Timestamp uint32 // ms since boot
}

type line struct {
	pending  atomic.Bool
	seen     atomic.Bool
	accepted atomic.Uint32 // timestamp of the last accepted edge
}

// Buttons holds the debounce state for both lines. The zero value is ready to use.
type Buttons struct {
	lines  [numSources]line
	window uint32
}

// NewButtons returns Buttons using the given debounce window. A zero window
// selects DebounceWindow.
func NewButtons(window time.Duration) *Buttons {
	if window <= 0 {
		window = DebounceWindow
	}
	return &Buttons{window: uint32(window / time.Millisecond)}
}

func (b *Buttons) windowMs() uint32 {
	if b.window == 0 {
		return uint32(DebounceWindow / time.Millisecond)
	}
	return b.window
}

// Edge records a falling edge on src observed at nowMs. It reports whether
// the edge was accepted. Edges closer than the debounce window to the last
// accepted edge on the same line are dropped.
func (b *Buttons) Edge(src Source, nowMs uint32) bool {
	if src < 0 || src >= numSources {
		return false
	}
	l := &b.lines[src]
	// unsigned subtraction keeps this correct across clock wraparound
	if l.seen.Load() && nowMs-l.accepted.Load() < b.windowMs() {
		return false
	}
	l.accepted.Store(nowMs)
	l.seen.Store(true)
	l.pending.Store(true)
	return true
}

// Poll reports whether a press is pending on src and clears it. It returns
// true at most once per accepted edge and never blocks.
func (b *Buttons) Poll(src Source) bool {
	_, ok := b.Next(src)
	return ok
}

// Next is like Poll but also returns the event.
func (b *Buttons) Next(src Source) (Event, bool) {
	if src < 0 || src >= numSources {
		return Event{}, false
	}
	l := &b.lines[src]
	if !l.pending.CompareAndSwap(true, false) {
		return Event{}, false
	}
	return Event{Source: src, Timestamp: l.accepted.Load()}, true
}

// Clock returns milliseconds since a fixed origin.
type Clock func() uint32

// NewClock returns a monotonic millisecond clock starting at zero now.
func NewClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start) / time.Millisecond)
	}
}
