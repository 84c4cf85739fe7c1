// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"sync"
	"sync/atomic"

	"github.com/jamiealquiza/fnv"
)

// Dict is a generic hash table implementation with incremental rehash. It
// backs a DB's all_keys and expiring_keys sets, and exposes the bucket-level
// sampling primitive the eviction pool needs to stay O(1) regardless of
// dict size.
type Dict struct {
	mu sync.RWMutex

	// Hash tables for rehashing
	ht [2]*dictTable

	// Rehash index: -1 means not rehashing
	rehashIdx int

	// Iterator count
	iterators uint32

	// Total number of keys
	size int
}

// dictTable is a single hash table
type dictTable struct {
	table    []*dictEntry
	size     uint64 // Number of slots
	sizemask uint64 // size - 1, used for modulo
	used     uint64 // Number of used slots
}

// dictEntry represents a key-value pair in the hash table
type dictEntry struct {
	key   string
	value interface{}
	next  *dictEntry // For chaining
}

const (
	// Initial hash table size
	dictInitialSize = 4

	// expand skips growing past dictForceResizeRatio*dictInitialSize slots
	// while fewer than dictForceResizeRatio entries are stored
	dictForceResizeRatio = 5
)

// NewDict creates a new dictionary
func NewDict() *Dict {
	d := &Dict{
		rehashIdx: -1,
	}

	d.ht[0] = &dictTable{
		table:    make([]*dictEntry, dictInitialSize),
		size:     dictInitialSize,
		sizemask: dictInitialSize - 1,
		used:     0,
	}

	d.ht[1] = &dictTable{
		table:    nil,
		size:     0,
		sizemask: 0,
		used:     0,
	}

	return d
}

// Len returns the number of entries in the dictionary
func (d *Dict) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

// Get returns the value for a key
func (d *Dict) Get(key string) (interface{}, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.size == 0 {
		return nil, false
	}

	for i := 0; i < 2; i++ {
		if d.ht[i].used == 0 {
			if !d.isRehashing() {
				break
			}
			continue
		}

		idx := d.hash(key, d.ht[i].sizemask)
		ent := d.ht[i].table[idx]

		for ent != nil {
			if ent.key == key {
				return ent.value, true
			}
			ent = ent.next
		}

		if !d.isRehashing() {
			break
		}
	}

	return nil, false
}

// Set sets a key-value pair, returning true if the key was newly inserted.
func (d *Dict) Set(key string, value interface{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRehashing() {
		d.rehash(1)
	}

	for i := 0; i < 2; i++ {
		if d.ht[i].used == 0 {
			if !d.isRehashing() {
				break
			}
			continue
		}

		idx := d.hash(key, d.ht[i].sizemask)
		ent := d.ht[i].table[idx]

		for ent != nil {
			if ent.key == key {
				ent.value = value
				return false
			}
			ent = ent.next
		}

		if !d.isRehashing() {
			break
		}
	}

	// While rehashing, new entries go to the table being filled so the
	// incremental move never has to revisit buckets it already emptied.
	htIdx := 0
	if d.isRehashing() {
		htIdx = 1
	}
	d.addToHT(htIdx, key, value)
	d.size++

	if !d.isRehashing() && d.ht[0].used >= d.ht[0].size {
		d.expand()
	}
	return true
}

// Delete removes a key from the dictionary
func (d *Dict) Delete(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRehashing() {
		d.rehash(1)
	}

	for i := 0; i < 2; i++ {
		if d.ht[i].used == 0 {
			if !d.isRehashing() {
				break
			}
			continue
		}

		idx := d.hash(key, d.ht[i].sizemask)
		ent := d.ht[i].table[idx]

		var prev *dictEntry
		for ent != nil {
			if ent.key == key {
				if prev == nil {
					d.ht[i].table[idx] = ent.next
				} else {
					prev.next = ent.next
				}
				d.ht[i].used--
				d.size--
				return true
			}
			prev = ent
			ent = ent.next
		}

		if !d.isRehashing() {
			break
		}
	}

	return false
}

// Exists checks if a key exists
func (d *Dict) Exists(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// RandomKey returns a random key from the dictionary
func (d *Dict) RandomKey() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.size == 0 {
		return "", false
	}

	maxTries := 100
	for try := 0; try < maxTries; try++ {
		if d.ht[0].used > 0 {
			idx := fastrandn(d.ht[0].size)
			if ent := d.ht[0].table[idx]; ent != nil {
				return ent.key, true
			}
		}

		if d.isRehashing() && d.ht[1].used > 0 {
			idx := fastrandn(d.ht[1].size)
			if ent := d.ht[1].table[idx]; ent != nil {
				return ent.key, true
			}
		}
	}

	return d.iterateForRandomKey()
}

func (d *Dict) iterateForRandomKey() (string, bool) {
	for i := uint64(0); i < d.ht[0].size; i++ {
		if ent := d.ht[0].table[i]; ent != nil {
			return ent.key, true
		}
	}

	if d.isRehashing() {
		for i := uint64(0); i < d.ht[1].size; i++ {
			if ent := d.ht[1].table[i]; ent != nil {
				return ent.key, true
			}
		}
	}

	return "", false
}

// SampleKeys implements the dictGetSomeKeys contract the eviction sampler
// relies on: up to n distinct keys drawn from pseudo-random buckets across
// the live table(s). No ordering guarantee, no duplicates within one call,
// and fewer than n keys are returned once the table runs dry.
func (d *Dict) SampleKeys(n int) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.size == 0 || n <= 0 {
		return nil
	}
	if n > d.size {
		n = d.size
	}

	seen := make(map[string]struct{}, n)
	result := make([]string, 0, n)

	maxEmptyVisits := n * 20
	empty := 0
	for len(result) < n && empty < maxEmptyVisits {
		table := 0
		if d.isRehashing() && d.ht[1].used > 0 && fastrandn(2) == 0 {
			table = 1
		}
		ht := d.ht[table]
		if ht.used == 0 {
			empty++
			continue
		}

		idx := fastrandn(ht.size)
		ent := ht.table[idx]
		if ent == nil {
			empty++
			continue
		}

		found := false
		for ; ent != nil && len(result) < n; ent = ent.next {
			if _, dup := seen[ent.key]; dup {
				continue
			}
			seen[ent.key] = struct{}{}
			result = append(result, ent.key)
			found = true
		}
		if !found {
			empty++
		}
	}
	return result
}

// Keys returns all keys in the dictionary
func (d *Dict) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, d.size)

	for i := 0; i < 2; i++ {
		if d.ht[i].table == nil {
			continue
		}

		for j := uint64(0); j < d.ht[i].size; j++ {
			ent := d.ht[i].table[j]
			for ent != nil {
				keys = append(keys, ent.key)
				ent = ent.next
			}
		}

		if !d.isRehashing() {
			break
		}
	}

	return keys
}

// Clear removes all entries from the dictionary
func (d *Dict) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ht[0] = &dictTable{
		table:    make([]*dictEntry, dictInitialSize),
		size:     dictInitialSize,
		sizemask: dictInitialSize - 1,
		used:     0,
	}

	d.ht[1] = &dictTable{
		table:    nil,
		size:     0,
		sizemask: 0,
		used:     0,
	}

	d.rehashIdx = -1
	d.size = 0
}

// isRehashing returns true if the dictionary is rehashing
func (d *Dict) isRehashing() bool {
	return d.rehashIdx != -1
}

// expand expands the hash table
func (d *Dict) expand() {
	newSize := d.ht[0].size * 2
	if newSize > dictForceResizeRatio*dictInitialSize && d.ht[0].used < dictForceResizeRatio {
		return
	}

	d.rehashTo(int(newSize))
}

// rehashTo starts rehashing to a new table of the given size
func (d *Dict) rehashTo(size int) {
	d.ht[1] = &dictTable{
		table:    make([]*dictEntry, size),
		size:     uint64(size),
		sizemask: uint64(size) - 1,
		used:     0,
	}

	d.rehashIdx = 0
}

// rehash performs incremental rehashing
func (d *Dict) rehash(steps int) {
	if d.rehashIdx == -1 {
		return
	}

	for ; steps > 0; steps-- {
		if d.ht[0].used == 0 {
			d.ht[0] = d.ht[1]
			d.ht[1] = &dictTable{
				table:    nil,
				size:     0,
				sizemask: 0,
				used:     0,
			}
			d.rehashIdx = -1
			return
		}

		for uint64(d.rehashIdx) < d.ht[0].size && d.ht[0].table[d.rehashIdx] == nil {
			d.rehashIdx++
		}
		if uint64(d.rehashIdx) >= d.ht[0].size {
			return
		}

		ent := d.ht[0].table[d.rehashIdx]
		for ent != nil {
			next := ent.next

			idx := d.hash(ent.key, d.ht[1].sizemask)

			ent.next = d.ht[1].table[idx]
			d.ht[1].table[idx] = ent
			d.ht[1].used++

			ent = next
			d.ht[0].used--
		}

		d.ht[0].table[d.rehashIdx] = nil
		d.rehashIdx++
	}
}

// addToHT adds an entry to the specified hash table
func (d *Dict) addToHT(htIdx int, key string, value interface{}) {
	idx := d.hash(key, d.ht[htIdx].sizemask)

	ent := &dictEntry{
		key:   key,
		value: value,
		next:  d.ht[htIdx].table[idx],
	}

	d.ht[htIdx].table[idx] = ent
	d.ht[htIdx].used++
}

// hash delegates to the pack's allocation-free FNV-1a implementation,
// replacing the teacher's hand-rolled murmur64.
func (d *Dict) hash(key string, mask uint64) uint64 {
	return fnv.Hash64a(key) & mask
}

var randSeed uint64 = 1

// fastrandn returns a random number in [0, n)
func fastrandn(n uint64) uint64 {
	for {
		seed := atomic.LoadUint64(&randSeed)
		next := seed
		next ^= next << 13
		next ^= next >> 17
		next ^= next << 5
		if atomic.CompareAndSwapUint64(&randSeed, seed, next) {
			return next % n
		}
	}
}

// Iterator returns an iterator for the dictionary
func (d *Dict) Iterator() *DictIterator {
	d.mu.Lock()
	atomic.AddUint32(&d.iterators, 1)
	d.mu.Unlock()

	return &DictIterator{
		dict:   d,
		table:  0,
		bucket: 0,
		ent:    nil,
	}
}

// DictIterator iterates over dictionary entries
type DictIterator struct {
	dict   *Dict
	table  int
	bucket uint64
	ent    *dictEntry
}

// Next moves to the next entry
func (it *DictIterator) Next() bool {
	if it.ent != nil && it.ent.next != nil {
		it.ent = it.ent.next
		return true
	}

	it.dict.mu.Lock()
	defer it.dict.mu.Unlock()

	for {
		if it.table >= 2 {
			return false
		}

		table := it.dict.ht[it.table]
		if table == nil || table.table == nil {
			it.table++
			it.bucket = 0
			continue
		}

		if it.bucket >= table.size {
			it.table++
			it.bucket = 0
			continue
		}

		it.ent = table.table[it.bucket]
		it.bucket++
		if it.ent != nil {
			return true
		}
	}
}

// Entry returns the current entry
func (it *DictIterator) Entry() (string, interface{}) {
	if it.ent == nil {
		return "", nil
	}
	return it.ent.key, it.ent.value
}

// Close closes the iterator
func (it *DictIterator) Close() {
	if it.dict != nil {
		atomic.AddUint32(&it.dict.iterators, ^uint32(0))
		it.dict = nil
	}
}
