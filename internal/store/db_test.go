// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBSetGet(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))

	o, ok := db.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", o.String())
}

func TestDBSetIncrementsKeysCountOnce(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))
	db.Set("a", NewStringObject("2", 0))

	assert.Equal(t, 1, db.DBSize())
	assert.Equal(t, int64(1), db.Stats().Keys)
}

func TestDBDeleteRemovesKeyAndTTL(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))
	db.Expire("a", 100)

	assert.Equal(t, 1, db.Delete("a"))
	_, ok := db.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(-2), db.TTL("a"))
}

func TestDBExpireLazyOnGet(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))
	db.ExpireAt("a", 1) // already in the past

	_, ok := db.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, db.DBSize())
}

func TestDBTTLNoExpiry(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))
	assert.Equal(t, int64(-1), db.TTL("a"))
}

func TestDBTTLMissingKey(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	assert.Equal(t, int64(-2), db.TTL("missing"))
}

func TestDBFlushDB(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))
	db.Set("b", NewStringObject("2", 0))
	db.FlushDB()

	assert.Equal(t, 0, db.DBSize())
}

func TestDBDirtyKeyCallbackFiresOnSetAndDelete(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	var dirty []string
	db.SetDirtyKeyCallback(func(key string) { dirty = append(dirty, key) })

	db.Set("a", NewStringObject("1", 0))
	db.Delete("a")

	assert.Equal(t, []string{"a", "a"}, dirty)
}

func TestDBDeleteAsyncUsesWorkerWhenWired(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))

	var ran bool
	db.SetAsyncDeleter(func(job func()) {
		ran = true
		job()
	})

	assert.True(t, db.DeleteAsync("a"))
	assert.True(t, ran)

	_, ok := db.Get("a")
	assert.False(t, ok)
}

func TestDBDeleteAsyncWithoutWorkerStillRemovesKey(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))

	assert.True(t, db.DeleteAsync("a"))
	_, ok := db.Get("a")
	assert.False(t, ok)
}

func TestDBAccessMetaReflectsStoredObject(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewObject(ObjTypeString, ObjEncodingRaw, "v", 77))

	meta, ok := db.AccessMeta("a")
	require.True(t, ok)
	assert.Equal(t, uint32(77), meta.DecodeLRU())

	_, ok = db.AccessMeta("missing")
	assert.False(t, ok)
}

func TestDBExpiryMillisReadsExpiringKeysDirectly(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))
	db.ExpireAt("a", 123456)

	ms, ok := db.ExpiryMillis("a")
	require.True(t, ok)
	assert.Equal(t, int64(123456), ms)
}

func TestDBAllKeysAndExpiringKeysViews(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	db.Set("a", NewStringObject("1", 0))
	db.Set("b", NewStringObject("2", 0))
	db.Expire("a", 100)

	assert.Equal(t, 2, db.AllKeys().Size())
	assert.Equal(t, 1, db.ExpiringKeys().Size())
	assert.True(t, db.ExpiringKeys().Find("a"))
	assert.False(t, db.ExpiringKeys().Find("b"))
}

func TestDBMemoryUsageGrowsWithKeys(t *testing.T) {
	t.Parallel()

	db := NewDB(0)
	before := db.MemoryUsage()
	db.Set("a", NewStringObject("some longer value", 0))
	after := db.MemoryUsage()

	assert.Greater(t, after, before)
}
