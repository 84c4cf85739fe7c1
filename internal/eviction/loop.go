// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eviction

import (
	"time"

	"github.com/nyxkv/nyxdb/internal/clock"
)

// RuntimeFlags carries the two caller-observed conditions that make
// TryFreeMemory a no-op before it even consults the accountant.
type RuntimeFlags struct {
	// ReplicaIgnoreMaxmemory mirrors replica-ignore-maxmemory: a replica
	// following its master's dataset exactly never evicts on its own.
	ReplicaIgnoreMaxmemory bool

	// ClientsPaused means the dataset must appear static to clients.
	ClientsPaused bool
}

// TryFreeMemory is the top-level eviction loop. It returns nil when the
// accountant reports under budget on entry or after work; otherwise one of
// the sentinel errors in errors.go.
func (m *Manager) TryFreeMemory(flags RuntimeFlags) error {
	if flags.ReplicaIgnoreMaxmemory {
		return nil
	}
	if flags.ClientsPaused {
		return nil
	}

	cycleStart := time.Now()
	defer func() {
		if m.observer != nil {
			m.observer.ObserveEvictionCycle(time.Since(cycleStart))
			m.observer.IncCycles()
		}
	}()

	snapshot := m.account.State()
	if m.observer != nil {
		m.observer.SetMemory(snapshot.TotalBytes, snapshot.LogicalBytes)
	}
	if !snapshot.Over {
		return nil
	}

	if m.cfg.Policy == PolicyNoEviction {
		if m.observer != nil {
			m.observer.IncOOM()
		}
		return m.backstop(ErrPolicyForbids)
	}

	freed := int64(0)
	target := snapshot.ToFreeBytes
	freedKeysThisCall := int64(0)

	for freed < target {
		dbid, key, ok := m.selectVictim()
		if !ok {
			if freedKeysThisCall == 0 {
				return m.backstop(ErrNoCandidates)
			}
			return m.backstop(ErrInsufficientProgress)
		}

		delStart := time.Now()
		freedKeysThisCall++

		usedBefore := m.account.UsedBytes()

		if m.repl != nil {
			m.repl.PropagateExpire(dbid, key, m.cfg.LazyFreeLazyEviction)
		}

		db := m.selector.DB(dbid)
		if m.cfg.LazyFreeLazyEviction {
			db.DeleteAsync(key)
			if m.observer != nil {
				m.observer.ObserveLazyFree(time.Since(delStart))
			}
		} else {
			db.DeleteSync(key)
		}

		usedAfter := m.account.UsedBytes()
		freed += usedBefore - usedAfter

		if m.notifier != nil {
			m.notifier.NotifyEvicted(dbid, key)
			m.notifier.SignalModifiedKey(dbid, key)
		}
		m.evictedKeys.Add(1)
		if m.observer != nil {
			m.observer.IncEvicted(1)
			m.observer.ObserveDelete(time.Since(delStart))
		}

		if m.repl != nil {
			m.repl.FlushReplicaBuffers()
		}

		if m.cfg.LazyFreeLazyEviction && freedKeysThisCall%16 == 0 {
			if st := m.account.State(); !st.Over {
				return nil
			}
		}
	}

	return nil
}

// selectVictim dispatches to the pool-based or random-cursor victim
// selection strategy depending on the active policy.
func (m *Manager) selectVictim() (dbid int, key string, ok bool) {
	if m.cfg.Policy.UsesPool() {
		return m.selectPoolVictim()
	}
	return m.selectRandomVictim()
}

func (m *Manager) selectPoolVictim() (int, string, bool) {
	n := m.selector.Len()
	now := m.nowSnapshot()

	anyNonEmpty := false
	for d := 0; d < n; d++ {
		db := m.selector.DB(d)
		table := sourceTable(db, m.cfg.Policy)
		if table.Size() == 0 {
			continue
		}
		anyNonEmpty = true
		populate(d, db, m.cfg.Policy, m.pool, m.cfg.MaxMemorySamples, now, m.cfg.LFULogFactor, m.cfg.LFUDecayTimeMinutes)
	}
	if !anyNonEmpty {
		return 0, "", false
	}

	return m.pool.PopValidVictim(func(dbid int, key string) bool {
		db := m.selector.DB(dbid)
		return sourceTable(db, m.cfg.Policy).Find(key)
	})
}

func (m *Manager) selectRandomVictim() (int, string, bool) {
	n := m.selector.Len()
	if n == 0 {
		return 0, "", false
	}

	for i := 0; i < n; i++ {
		d := (m.nextDB + i) % n
		db := m.selector.DB(d)
		table := sourceTable(db, m.cfg.Policy)
		if table.Size() == 0 {
			continue
		}
		if key, ok := table.RandomEntry(); ok {
			m.nextDB = (d + 1) % n
			return d, key, true
		}
	}
	return 0, "", false
}

func (m *Manager) nowSnapshot() clockSnapshot {
	return clockSnapshot{
		lruTick:    m.clock.LRUClock(),
		lfuMinutes: clock.LFUNowMinutes(),
	}
}
