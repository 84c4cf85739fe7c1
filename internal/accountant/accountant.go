// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package accountant implements the memory-state computation the eviction
// loop consults before and during every cycle: total allocator usage minus
// transient replication/append-log overhead, compared against maxmemory.
package accountant

import (
	"runtime"
	"sync/atomic"

	"github.com/nyxkv/nyxdb/pkg/utils"
)

// Allocator reports the process's allocator-attributed used-byte count.
type Allocator interface {
	UsedBytes() int64
}

// OverheadSource reports the transient buffer sizes excluded from the
// logical memory figure: replication output buffers and append-log buffers,
// which are self-draining and would otherwise cause eviction storms that
// make themselves grow further.
type OverheadSource interface {
	ReplicaBufferBytes() int64
	AppendLogBufferBytes() int64
	AppendLogRewriteBufferBytes() int64
}

// MemorySnapshot is the result of a maxmemory_state() query.
type MemorySnapshot struct {
	Over         bool
	TotalBytes   int64
	LogicalBytes int64
	ToFreeBytes  int64
	Level        float64
}

// Accountant computes MemorySnapshot against a configured maxmemory budget.
type Accountant struct {
	alloc     Allocator
	overhead  OverheadSource
	maxMemory atomic.Int64
}

// New creates an Accountant. overhead may be nil if the caller never wires
// replication or append-log buffers; it is then treated as all-zero.
func New(alloc Allocator, overhead OverheadSource, maxMemory int64) *Accountant {
	a := &Accountant{alloc: alloc, overhead: overhead}
	a.maxMemory.Store(maxMemory)
	return a
}

// SetMaxMemory updates the budget at runtime (the config equivalent of
// `CONFIG SET maxmemory`).
func (a *Accountant) SetMaxMemory(bytes int64) {
	a.maxMemory.Store(bytes)
}

// MaxMemory returns the configured budget, 0 meaning unlimited.
func (a *Accountant) MaxMemory() int64 {
	return a.maxMemory.Load()
}

// UsedBytes returns the allocator's current reading, the same value both
// State() and the eviction loop's before/after delta read.
func (a *Accountant) UsedBytes() int64 {
	return a.alloc.UsedBytes()
}

// State computes the current memory state.
func (a *Accountant) State() MemorySnapshot {
	total := a.alloc.UsedBytes()
	maxMemory := a.maxMemory.Load()

	if maxMemory == 0 || total <= maxMemory {
		return MemorySnapshot{
			TotalBytes:   total,
			LogicalBytes: total,
			Level:        levelOf(total, maxMemory),
		}
	}

	overhead := a.overheadBytes()
	logical := utils.Max(total-overhead, 0)

	if logical <= maxMemory {
		return MemorySnapshot{
			TotalBytes:   total,
			LogicalBytes: logical,
			Level:        levelOf(logical, maxMemory),
		}
	}

	return MemorySnapshot{
		Over:         true,
		TotalBytes:   total,
		LogicalBytes: logical,
		ToFreeBytes:  logical - maxMemory,
		Level:        levelOf(logical, maxMemory),
	}
}

func (a *Accountant) overheadBytes() int64 {
	if a.overhead == nil {
		return 0
	}
	return a.overhead.ReplicaBufferBytes() +
		a.overhead.AppendLogBufferBytes() +
		a.overhead.AppendLogRewriteBufferBytes()
}

func levelOf(bytes, maxMemory int64) float64 {
	if maxMemory <= 0 {
		return 0
	}
	return float64(bytes) / float64(maxMemory)
}

// AtomicAllocator is an injectable, test- and synthetic-workload-friendly
// Allocator backed by a single atomic counter.
type AtomicAllocator struct {
	used atomic.Int64
}

// UsedBytes implements Allocator.
func (a *AtomicAllocator) UsedBytes() int64 {
	return a.used.Load()
}

// Add adjusts the counter by delta (positive on allocation, negative on
// free) and returns the new total.
func (a *AtomicAllocator) Add(delta int64) int64 {
	return a.used.Add(delta)
}

// Set overwrites the counter, mainly useful in tests that want to assert a
// specific starting point.
func (a *AtomicAllocator) Set(bytes int64) {
	a.used.Store(bytes)
}

// RuntimeAllocator reports live process heap usage via runtime.MemStats,
// used by the demo server binary instead of the synthetic AtomicAllocator.
type RuntimeAllocator struct{}

// UsedBytes implements Allocator.
func (RuntimeAllocator) UsedBytes() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc)
}
