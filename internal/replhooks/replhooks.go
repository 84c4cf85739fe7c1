// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package replhooks defines the replication/append-log collaborator the
// eviction loop notifies on every victim delete, and an in-memory
// implementation for tests and the demo server. Modeled on the teacher's
// persistence/aof.AOF buffer-size bookkeeping fields.
package replhooks

import "sync/atomic"

// PropagatedExpire records one PropagateExpire call, kept for tests that
// want to assert the loop notified replication before deleting.
type PropagatedExpire struct {
	DB   int
	Key  string
	Lazy bool
}

// SimBuffers is an in-memory stand-in for a replica output buffer and an
// append-log writer: just the byte counters the accountant needs, plus
// Grow* methods (and FlushReplicaBuffers, which empties the replica buffer)
// so tests can exercise the "logical memory excludes transient buffers"
// behavior without a real replica or AOF file.
type SimBuffers struct {
	replicaBuf    atomic.Int64
	appendBuf     atomic.Int64
	appendRewrite atomic.Int64
	flushes       atomic.Int64

	mu          chanMutex
	propagated  []PropagatedExpire
}

// chanMutex is a tiny mutex built from a buffered channel, matching the
// teacher's preference for channel-based synchronization over sync.Mutex in
// its persistence layer.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	m := make(chanMutex, 1)
	m <- struct{}{}
	return m
}

func (m chanMutex) Lock()   { <-m }
func (m chanMutex) Unlock() { m <- struct{}{} }

// NewSimBuffers creates an empty SimBuffers.
func NewSimBuffers() *SimBuffers {
	return &SimBuffers{mu: newChanMutex()}
}

// PropagateExpire records the expiry notification. lazy mirrors whether the
// delete was routed through the background free worker.
func (s *SimBuffers) PropagateExpire(db int, key string, lazy bool) {
	s.mu.Lock()
	s.propagated = append(s.propagated, PropagatedExpire{DB: db, Key: key, Lazy: lazy})
	s.mu.Unlock()
}

// FlushReplicaBuffers simulates draining the replica output buffer.
func (s *SimBuffers) FlushReplicaBuffers() {
	s.replicaBuf.Store(0)
	s.flushes.Add(1)
}

// ReplicaBufferBytes implements accountant.OverheadSource.
func (s *SimBuffers) ReplicaBufferBytes() int64 { return s.replicaBuf.Load() }

// AppendLogBufferBytes implements accountant.OverheadSource.
func (s *SimBuffers) AppendLogBufferBytes() int64 { return s.appendBuf.Load() }

// AppendLogRewriteBufferBytes implements accountant.OverheadSource.
func (s *SimBuffers) AppendLogRewriteBufferBytes() int64 { return s.appendRewrite.Load() }

// GrowReplicaBuffer simulates replication traffic accumulating, for tests.
func (s *SimBuffers) GrowReplicaBuffer(n int64) { s.replicaBuf.Add(n) }

// GrowAppendLogBuffer simulates append-log writes accumulating, for tests.
func (s *SimBuffers) GrowAppendLogBuffer(n int64) { s.appendBuf.Add(n) }

// GrowAppendLogRewriteBuffer simulates an AOF rewrite buffer growing.
func (s *SimBuffers) GrowAppendLogRewriteBuffer(n int64) { s.appendRewrite.Add(n) }

// Flushes returns how many times FlushReplicaBuffers has been called.
func (s *SimBuffers) Flushes() int64 { return s.flushes.Load() }

// Propagated returns a snapshot of every PropagateExpire call recorded so
// far, for test assertions.
func (s *SimBuffers) Propagated() []PropagatedExpire {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PropagatedExpire, len(s.propagated))
	copy(out, s.propagated)
	return out
}
