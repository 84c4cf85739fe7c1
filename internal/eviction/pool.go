// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eviction

const (
	// PoolSize is the fixed candidate pool capacity (EVPOOL_SIZE).
	PoolSize = 16

	// cachedKeySize is the inline buffer size each slot carries, sized so
	// most real keys never force a heap allocation (EVPOOL_CACHED_SIZE).
	cachedKeySize = 255
)

// keyRef is the pool slot's small-buffer-optimized key storage: either the
// slot's own inline array, or a fresh heap allocation for keys longer than
// cachedKeySize.
type keyRef struct {
	inline [cachedKeySize]byte
	heap   []byte
	length int
	onHeap bool
}

func (k *keyRef) set(key string) {
	if len(key) > cachedKeySize {
		k.heap = append(k.heap[:0], key...)
		k.onHeap = true
		k.length = len(key)
		return
	}
	n := copy(k.inline[:], key)
	k.length = n
	k.onHeap = false
	k.heap = nil
}

func (k *keyRef) String() string {
	if k.onHeap {
		return string(k.heap)
	}
	return string(k.inline[:k.length])
}

func (k *keyRef) clear() {
	k.heap = nil
	k.onHeap = false
	k.length = 0
}

// poolSlot is one entry of the eviction pool: a score, the candidate's
// owning database, and its key storage.
type poolSlot struct {
	idle     uint64
	dbid     int
	key      keyRef
	occupied bool
}

func (s *poolSlot) set(idle uint64, dbid int, key string) {
	s.idle = idle
	s.dbid = dbid
	s.key.set(key)
	s.occupied = true
}

// copyValuesFrom moves score/dbid/key content from src into s without
// disturbing s's own inline buffer array — the Go analogue of the reference
// implementation's "preserve the slot's cached buffer across shifts": the
// buffer is never reallocated, only its contents and length are overwritten.
func (s *poolSlot) copyValuesFrom(src *poolSlot) {
	s.idle = src.idle
	s.dbid = src.dbid
	s.occupied = src.occupied
	if !src.occupied {
		s.key.clear()
		return
	}
	s.key.set(src.key.String())
}

// Pool is the process-wide fixed-capacity ordered buffer of eviction
// candidates: a 16-slot array sorted ascending by idle score, with occupied
// slots contiguous from index 0 and empty slots after them on the right.
// It is not safe for concurrent use; the eviction
// core is single-threaded cooperative.
type Pool struct {
	slots [PoolSize]poolSlot
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Insert attempts to add a new candidate, maintaining ascending order and
// dropping the candidate if it is worse than every current occupant of a
// full pool.
func (p *Pool) Insert(idle uint64, dbid int, key string) {
	n := len(p.slots)

	// A key already resident in the pool from an earlier cycle must not
	// gain a second slot. Drop the stale occupant if the new sample is
	// better, otherwise leave the existing slot alone.
	for i := 0; i < n; i++ {
		if !p.slots[i].occupied || p.slots[i].dbid != dbid || p.slots[i].key.String() != key {
			continue
		}
		if idle <= p.slots[i].idle {
			return
		}
		for j := i; j < n-1; j++ {
			p.slots[j].copyValuesFrom(&p.slots[j+1])
		}
		p.slots[n-1].clear()
		break
	}

	k := 0
	for k < n && p.slots[k].occupied && p.slots[k].idle < idle {
		k++
	}

	if k == 0 && p.slots[n-1].occupied {
		return
	}

	if k < n && !p.slots[k].occupied {
		p.slots[k].set(idle, dbid, key)
		return
	}

	if !p.slots[n-1].occupied {
		for i := n - 1; i > k; i-- {
			p.slots[i].copyValuesFrom(&p.slots[i-1])
		}
		p.slots[k].set(idle, dbid, key)
		return
	}

	k--
	for i := 0; i < k; i++ {
		p.slots[i].copyValuesFrom(&p.slots[i+1])
	}
	p.slots[k].set(idle, dbid, key)
}

// PopValidVictim scans the pool from the highest-score slot downward,
// unconditionally clearing every slot it visits (ghost references included)
// and stopping at the first key resolve confirms still exists.
func (p *Pool) PopValidVictim(resolve func(dbid int, key string) bool) (dbid int, key string, ok bool) {
	for i := len(p.slots) - 1; i >= 0; i-- {
		if !p.slots[i].occupied {
			continue
		}
		d := p.slots[i].dbid
		k := p.slots[i].key.String()
		p.slots[i].clear()
		if resolve(d, k) {
			return d, k, true
		}
	}
	return 0, "", false
}

func (s *poolSlot) clear() {
	s.occupied = false
	s.dbid = 0
	s.idle = 0
	s.key.clear()
}

// Occupied reports whether slot i currently holds a candidate, for tests
// that check the slot layout (occupied slots first, empty slots after).
func (p *Pool) Occupied(i int) bool {
	return p.slots[i].occupied
}

// Idle returns slot i's score; only meaningful when Occupied(i).
func (p *Pool) Idle(i int) uint64 {
	return p.slots[i].idle
}

// Key returns slot i's key; only meaningful when Occupied(i).
func (p *Pool) Key(i int) string {
	return p.slots[i].key.String()
}

// Len returns the pool's fixed capacity.
func (p *Pool) Len() int {
	return len(p.slots)
}
