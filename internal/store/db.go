// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"sync"
	"time"

	"github.com/nyxkv/nyxdb/internal/eviction"
	"github.com/nyxkv/nyxdb/internal/objmeta"
)

// DirtyKeyCallback is called when a key is modified
type DirtyKeyCallback func(key string)

// AsyncDeleter hands a value's destructor to a background worker. DB itself
// stays ignorant of the worker's implementation; it only needs somewhere to
// post the closure.
type AsyncDeleter func(job func())

// DB represents a single logical database: a main key table (all_keys) and
// the subset of keys carrying a TTL (expiring_keys), whose mapped value is
// the key's absolute expiry timestamp in milliseconds.
type DB struct {
	id      int
	dict    *Dict
	expires *Dict
	mu      sync.RWMutex

	keysCount int64

	dirtyKeyCallback DirtyKeyCallback
	asyncDelete      AsyncDeleter
}

// NewDB creates a new database
func NewDB(id int) *DB {
	return &DB{
		id:      id,
		dict:    NewDict(),
		expires: NewDict(),
	}
}

// SetDirtyKeyCallback sets the callback for marking dirty keys
func (db *DB) SetDirtyKeyCallback(cb DirtyKeyCallback) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dirtyKeyCallback = cb
}

// SetAsyncDeleter wires the background free worker's enqueue function, used
// by DeleteAsync. Without one, DeleteAsync degrades to a synchronous delete.
func (db *DB) SetAsyncDeleter(d AsyncDeleter) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.asyncDelete = d
}

func (db *DB) markDirty(key string) {
	if db.dirtyKeyCallback != nil {
		db.dirtyKeyCallback(key)
	}
}

// ID returns the database ID.
func (db *DB) ID() int {
	return db.id
}

// Get returns the value for a key, with lazy expiration on access
func (db *DB) Get(key string) (*Object, bool) {
	db.mu.RLock()
	raw, ok := db.dict.Get(key)
	if !ok {
		db.mu.RUnlock()
		return nil, false
	}

	expired := db.isExpiredLocked(key)
	if !expired {
		defer db.mu.RUnlock()
		return raw.(*Object), true
	}

	db.mu.RUnlock()
	db.mu.Lock()
	defer db.mu.Unlock()

	raw, ok = db.dict.Get(key)
	if ok && db.isExpiredLocked(key) {
		db.dict.Delete(key)
		db.expires.Delete(key)
		db.keysCount--
		return nil, false
	}
	if ok {
		return raw.(*Object), true
	}
	return nil, false
}

// Set sets a key-value pair
func (db *DB) Set(key string, value *Object) {
	db.mu.Lock()
	defer db.mu.Unlock()

	wasNew := !db.dict.Exists(key) || db.isExpiredLocked(key)
	db.dict.Set(key, value)

	if wasNew {
		db.keysCount++
	}

	db.markDirty(key)
}

// Delete removes keys from the database
func (db *DB) Delete(keys ...string) int {
	db.mu.Lock()
	defer db.mu.Unlock()

	deleted := 0
	for _, key := range keys {
		if db.dict.Exists(key) {
			db.dict.Delete(key)
			db.expires.Delete(key)
			db.keysCount--
			deleted++
			db.markDirty(key)
		}
	}
	return deleted
}

// Expire sets an expiration time for a key (in seconds)
func (db *DB) Expire(key string, seconds int) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.dict.Exists(key) {
		return false
	}

	expireAt := time.Now().Add(time.Duration(seconds) * time.Second).UnixMilli()
	db.expires.Set(key, expireAt)
	return true
}

// ExpireAt sets an absolute expiration timestamp (milliseconds) for a key
func (db *DB) ExpireAt(key string, timestampMs int64) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.dict.Exists(key) {
		return false
	}

	db.expires.Set(key, timestampMs)
	return true
}

// TTL returns the time to live for a key (in seconds)
func (db *DB) TTL(key string) int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if !db.dict.Exists(key) {
		return -2
	}

	exp, ok := db.expires.Get(key)
	if !ok {
		return -1
	}

	ttl := (exp.(int64) - time.Now().UnixMilli()) / 1000
	if ttl <= 0 {
		return -2
	}
	return ttl
}

// DBSize returns the number of non-expired keys in the database
func (db *DB) DBSize() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, key := range db.dict.Keys() {
		if !db.isExpiredLocked(key) {
			count++
		}
	}
	return count
}

// FlushDB removes all keys from the database
func (db *DB) FlushDB() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.dict.Clear()
	db.expires.Clear()
	db.keysCount = 0
}

func (db *DB) isExpiredLocked(key string) bool {
	exp, ok := db.expires.Get(key)
	if !ok {
		return false
	}
	return exp.(int64) <= time.Now().UnixMilli()
}

// Stats returns database statistics
func (db *DB) Stats() DBStats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return DBStats{
		ID:      db.id,
		Keys:    db.keysCount,
		Expires: db.expires.Len(),
	}
}

// DBStats holds database statistics
type DBStats struct {
	ID      int
	Keys    int64
	Expires int
}

// MemoryUsage returns the approximate memory usage of the database: object
// and key bytes of unexpired keys plus a fixed per-entry overhead. The
// accountant does not read it; it measures through its own Allocator.
func (db *DB) MemoryUsage() int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var total int64
	for _, key := range db.dict.Keys() {
		if db.isExpiredLocked(key) {
			continue
		}
		if raw, ok := db.dict.Get(key); ok {
			if o, ok := raw.(*Object); ok {
				total += o.Size()
				total += int64(len(key))
			}
		}
	}
	const perEntryOverhead = 16
	total += int64(db.dict.Len()) * perEntryOverhead
	return total
}

// ==================== eviction.Database ====================

// keyTableView adapts a Dict to eviction.KeyTable.
type keyTableView struct {
	d *Dict
}

func (v keyTableView) Size() int { return v.d.Len() }
func (v keyTableView) Find(key string) bool {
	return v.d.Exists(key)
}
func (v keyTableView) RandomEntry() (string, bool) { return v.d.RandomKey() }
func (v keyTableView) SampleN(n int) []string      { return v.d.SampleKeys(n) }

// AllKeys returns the eviction.KeyTable view over every key.
func (db *DB) AllKeys() eviction.KeyTable {
	return keyTableView{d: db.dict}
}

// ExpiringKeys returns the eviction.KeyTable view over keys with a TTL.
func (db *DB) ExpiringKeys() eviction.KeyTable {
	return keyTableView{d: db.expires}
}

// AccessMeta returns the object's access-metadata word for LRU/LFU scoring.
func (db *DB) AccessMeta(key string) (objmeta.Word, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	raw, ok := db.dict.Get(key)
	if !ok {
		return 0, false
	}
	o, ok := raw.(*Object)
	if !ok {
		return 0, false
	}
	return o.Meta, true
}

// ExpiryMillis returns the absolute expiry timestamp backing volatile-ttl
// scoring: the value stored directly in expiring_keys, never a main-table
// lookup.
func (db *DB) ExpiryMillis(key string) (int64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	exp, ok := db.expires.Get(key)
	if !ok {
		return 0, false
	}
	return exp.(int64), true
}

// DeleteSync removes a key immediately, returning true if it existed.
func (db *DB) DeleteSync(key string) bool {
	db.mu.Lock()
	if !db.dict.Exists(key) {
		db.mu.Unlock()
		return false
	}
	db.dict.Delete(key)
	db.expires.Delete(key)
	db.keysCount--
	db.mu.Unlock()
	return true
}

// DeleteAsync removes the key from the tables synchronously (key tables are
// not safe to mutate from a background goroutine under this module's
// single-threaded-cooperative model) but hands the value's destructor to the
// background free worker when one is wired, so the byte accounting for its
// payload lags the key's visible removal.
func (db *DB) DeleteAsync(key string) bool {
	db.mu.Lock()
	raw, ok := db.dict.Get(key)
	if !ok {
		db.mu.Unlock()
		return false
	}
	db.dict.Delete(key)
	db.expires.Delete(key)
	db.keysCount--
	deleter := db.asyncDelete
	db.mu.Unlock()

	if deleter != nil {
		if o, ok := raw.(*Object); ok {
			deleter(func() { _ = o })
		}
	}
	return true
}

var _ eviction.Database = (*DB)(nil)
