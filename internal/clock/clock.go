// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clock provides the two coarse ticks the eviction core reads on
// every access and every sampling pass: a wrapping LRU clock at
// LRUClockResolutionMs resolution, and a wrapping LFU "minutes" clock.
package clock

import (
	"sync/atomic"
	"time"
)

const (
	// LRUClockResolutionMs is the default tick period of the LRU clock.
	LRUClockResolutionMs = 1000

	// LRUClockMax is the modulus of the 24-bit LRU clock.
	LRUClockMax = 1 << 24
)

// Clock is the server's periodically-refreshed LRU clock, cached at
// frequency Hz so hot paths (object access) don't call time.Now on every
// touch. When Hz is too low for that (hz <= 0, or a refresh period 1000/Hz
// longer than LRUClockResolutionMs), LRUClock falls through to a live read.
type Clock struct {
	hz      int64
	cached  atomic.Uint32
	stopped atomic.Bool
	done    chan struct{}
}

// New creates a Clock ticking the periodic-task frequency hz (the server's
// "hz" config option). hz <= 0 means "always read live".
func New(hz int) *Clock {
	c := &Clock{done: make(chan struct{})}
	c.hz = int64(hz)
	c.cached.Store(liveLRUClock())
	return c
}

// Run starts the background refresh goroutine. It blocks until Stop is
// called (with hz <= 0 it returns at once); call it in its own goroutine.
func (c *Clock) Run() {
	if c.hz <= 0 {
		return
	}
	interval := time.Second / time.Duration(c.hz)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.cached.Store(liveLRUClock())
		}
	}
}

// Stop halts the background refresh goroutine.
func (c *Clock) Stop() {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.done)
	}
}

// LRUClock returns the current LRU clock reading. If the configured Hz
// refreshes at least as often as LRUClockResolutionMs, the cached value is
// used; otherwise a live read is taken so idle estimates stay accurate.
func (c *Clock) LRUClock() uint32 {
	if c.hz > 0 && 1000/c.hz <= LRUClockResolutionMs {
		return c.cached.Load()
	}
	return liveLRUClock()
}

func liveLRUClock() uint32 {
	return uint32((time.Now().UnixMilli() / LRUClockResolutionMs) % LRUClockMax)
}

// LFUNowMinutes returns (unix_seconds / 60) mod 2^16.
func LFUNowMinutes() uint32 {
	return uint32((time.Now().Unix() / 60) % (1 << 16))
}

// IdleMs estimates elapsed idle time in milliseconds for an object whose
// stored LRU tick is o, handling a single clock wrap (multiple wraps are
// indistinguishable, and acceptable: the clock period is ~194 days at 1s
// resolution).
func IdleMs(now, o uint32) int64 {
	var ticks uint32
	if now >= o {
		ticks = now - o
	} else {
		ticks = now + (LRUClockMax - o)
	}
	return int64(ticks) * LRUClockResolutionMs
}
