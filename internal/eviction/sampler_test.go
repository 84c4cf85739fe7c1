// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxkv/nyxdb/internal/objmeta"
)

// fakeTable is a minimal in-memory KeyTable for sampler tests.
type fakeTable struct {
	keys []string
}

func (f *fakeTable) Size() int { return len(f.keys) }
func (f *fakeTable) Find(key string) bool {
	for _, k := range f.keys {
		if k == key {
			return true
		}
	}
	return false
}
func (f *fakeTable) RandomEntry() (string, bool) {
	if len(f.keys) == 0 {
		return "", false
	}
	return f.keys[0], true
}
func (f *fakeTable) SampleN(n int) []string {
	if n > len(f.keys) {
		n = len(f.keys)
	}
	return append([]string(nil), f.keys[:n]...)
}

// fakeDB is a minimal Database implementation for sampler/manager tests.
type fakeDB struct {
	id        int
	all       *fakeTable
	expiring  *fakeTable
	meta      map[string]objmeta.Word
	expiryMs  map[string]int64
	deletedSync  []string
	deletedAsync []string
}

func newFakeDB(id int) *fakeDB {
	return &fakeDB{
		id:       id,
		all:      &fakeTable{},
		expiring: &fakeTable{},
		meta:     map[string]objmeta.Word{},
		expiryMs: map[string]int64{},
	}
}

func (d *fakeDB) ID() int             { return d.id }
func (d *fakeDB) AllKeys() KeyTable      { return d.all }
func (d *fakeDB) ExpiringKeys() KeyTable { return d.expiring }

func (d *fakeDB) AccessMeta(key string) (objmeta.Word, bool) {
	w, ok := d.meta[key]
	return w, ok
}

func (d *fakeDB) ExpiryMillis(key string) (int64, bool) {
	ms, ok := d.expiryMs[key]
	return ms, ok
}

func (d *fakeDB) DeleteSync(key string) bool {
	if !d.all.Find(key) {
		return false
	}
	d.removeKey(key)
	d.deletedSync = append(d.deletedSync, key)
	return true
}

func (d *fakeDB) DeleteAsync(key string) bool {
	if !d.all.Find(key) {
		return false
	}
	d.removeKey(key)
	d.deletedAsync = append(d.deletedAsync, key)
	return true
}

func (d *fakeDB) addKey(key string, meta objmeta.Word) {
	d.all.keys = append(d.all.keys, key)
	d.meta[key] = meta
}

func (d *fakeDB) addExpiringKey(key string, expiryMs int64) {
	d.expiring.keys = append(d.expiring.keys, key)
	d.expiryMs[key] = expiryMs
}

func (d *fakeDB) removeKey(key string) {
	d.all.keys = removeString(d.all.keys, key)
	d.expiring.keys = removeString(d.expiring.keys, key)
	delete(d.meta, key)
	delete(d.expiryMs, key)
}

func removeString(s []string, key string) []string {
	out := s[:0]
	for _, k := range s {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

var _ Database = (*fakeDB)(nil)

func TestPopulateLRUScoresByIdleTime(t *testing.T) {
	t.Parallel()

	db := newFakeDB(0)
	db.addKey("old", objmeta.EncodeLRU(10))
	db.addKey("new", objmeta.EncodeLRU(90))

	pool := NewPool()
	now := clockSnapshot{lruTick: 100}
	populate(0, db, PolicyAllKeysLRU, pool, 10, now, 10, 1)

	// "old" was touched longer ago, so it should score a higher idle time
	// than "new" and land at the highest occupied index.
	_, key, ok := pool.PopValidVictim(func(dbid int, key string) bool { return db.all.Find(key) })
	require.True(t, ok)
	assert.Equal(t, "old", key)
}

func TestPopulateVolatileTTLUsesExpiringKeysOnly(t *testing.T) {
	t.Parallel()

	db := newFakeDB(0)
	db.addKey("a", objmeta.EncodeLRU(0))
	db.addExpiringKey("b", 5000)

	pool := NewPool()
	now := clockSnapshot{}
	populate(0, db, PolicyVolatileTTL, pool, 10, now, 10, 1)

	_, key, ok := pool.PopValidVictim(func(dbid int, key string) bool { return db.expiring.Find(key) })
	require.True(t, ok)
	assert.Equal(t, "b", key)
}

func TestPopulateVolatileTTLPrefersEarlierExpiry(t *testing.T) {
	t.Parallel()

	db := newFakeDB(0)
	db.addExpiringKey("soon", 1000)
	db.addExpiringKey("later", 9000)

	pool := NewPool()
	now := clockSnapshot{}
	populate(0, db, PolicyVolatileTTL, pool, 10, now, 10, 1)

	_, key, ok := pool.PopValidVictim(func(dbid int, key string) bool { return db.expiring.Find(key) })
	require.True(t, ok)
	assert.Equal(t, "soon", key)
}

func TestPopulateSkipsEmptyTable(t *testing.T) {
	t.Parallel()

	db := newFakeDB(0)
	pool := NewPool()
	populate(0, db, PolicyAllKeysLRU, pool, 10, clockSnapshot{}, 10, 1)

	assert.False(t, pool.Occupied(0))
}

func TestPopulateLFUScoresLowerCounterAsMoreEvictable(t *testing.T) {
	t.Parallel()

	db := newFakeDB(0)
	db.addKey("cold", objmeta.EncodeLFU(0, 5))
	db.addKey("hot", objmeta.EncodeLFU(0, 200))

	pool := NewPool()
	now := clockSnapshot{lfuMinutes: 0}
	populate(0, db, PolicyAllKeysLFU, pool, 10, now, 10, 0)

	_, key, ok := pool.PopValidVictim(func(dbid int, key string) bool { return db.all.Find(key) })
	require.True(t, ok)
	assert.Equal(t, "cold", key)
}
