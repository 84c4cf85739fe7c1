// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eviction implements the memory-bounded key eviction core: the
// candidate pool, the sampler that scores keys under the active policy, the
// eviction loop and its stop conditions, and the safety wrapper. Everything
// outside this package — the key/value store, replication, the append log,
// the background free worker, the event notifier — is consumed only
// through the interfaces in interfaces.go.
package eviction

import (
	"sync/atomic"
	"time"

	"github.com/nyxkv/nyxdb/internal/accountant"
	"github.com/nyxkv/nyxdb/internal/clock"
)

// Config holds the eviction-relevant subset of server configuration.
type Config struct {
	Policy               PolicyType
	MaxMemorySamples     int
	LFULogFactor         int
	LFUDecayTimeMinutes  int
	LazyFreeLazyEviction bool
}

// DefaultConfig mirrors the reference defaults from spec.md §6.
func DefaultConfig() Config {
	return Config{
		Policy:              PolicyNoEviction,
		MaxMemorySamples:    5,
		LFULogFactor:        10,
		LFUDecayTimeMinutes: 1,
	}
}

// Observer receives eviction-cycle telemetry. Implemented by
// pkg/metrics.Collector; nil is a valid, silent Observer.
type Observer interface {
	ObserveEvictionCycle(d time.Duration)
	ObserveDelete(d time.Duration)
	ObserveLazyFree(d time.Duration)
	IncEvicted(n int64)
	IncCycles()
	IncOOM()
	SetMemory(totalBytes, logicalBytes int64)
}

// Manager is the process-wide eviction context: the pool, the next_db
// round-robin cursor, and the collaborator handles the loop drives. It is
// single-threaded cooperative — callers must invoke its methods from one
// goroutine at a time; see spec.md §5.
type Manager struct {
	cfg      Config
	clock    *clock.Clock
	selector DBSelector
	account  *accountant.Accountant
	free     FreeWorker
	repl     ReplHooks
	notifier Notifier
	observer Observer

	pool        *Pool
	nextDB      int
	evictedKeys atomic.Int64
}

// New builds a Manager. selector and account are required; free, repl,
// notifier and observer may be nil, in which case their corresponding
// behavior (backstop wait, replication/append-log notification, keyspace
// events, telemetry) is simply skipped.
func New(cfg Config, clk *clock.Clock, selector DBSelector, account *accountant.Accountant) *Manager {
	return &Manager{
		cfg:      cfg,
		clock:    clk,
		selector: selector,
		account:  account,
		pool:     NewPool(),
	}
}

// SetFreeWorker wires the background free worker the backstop polls.
func (m *Manager) SetFreeWorker(f FreeWorker) { m.free = f }

// SetReplHooks wires the replication/append-log collaborator.
func (m *Manager) SetReplHooks(r ReplHooks) { m.repl = r }

// SetNotifier wires the keyspace-event collaborator.
func (m *Manager) SetNotifier(n Notifier) { m.notifier = n }

// SetObserver wires the metrics/latency collaborator.
func (m *Manager) SetObserver(o Observer) { m.observer = o }

// SetPolicy updates the active eviction policy.
func (m *Manager) SetPolicy(p PolicyType) { m.cfg.Policy = p }

// Policy returns the active eviction policy.
func (m *Manager) Policy() PolicyType { return m.cfg.Policy }

// Config returns the manager's current configuration snapshot.
func (m *Manager) Config() Config { return m.cfg }

// SetConfig replaces the manager's configuration wholesale (used by the
// config loader on `CONFIG SET`-equivalent changes).
func (m *Manager) SetConfig(cfg Config) { m.cfg = cfg }

// EvictedKeys returns the lifetime count of keys this manager has evicted.
func (m *Manager) EvictedKeys() int64 { return m.evictedKeys.Load() }

// Pool exposes the candidate pool, mainly for `stats`-style introspection
// and tests.
func (m *Manager) Pool() *Pool { return m.pool }

// Accountant exposes the memory accountant, for `stats`-style introspection.
func (m *Manager) Accountant() *accountant.Accountant { return m.account }
