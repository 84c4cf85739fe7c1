// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictSetGetDelete(t *testing.T) {
	t.Parallel()

	d := NewDict()
	assert.True(t, d.Set("a", 1))
	assert.False(t, d.Set("a", 2))

	v, ok := d.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.True(t, d.Delete("a"))
	assert.False(t, d.Delete("a"))

	_, ok = d.Get("a")
	assert.False(t, ok)
}

func TestDictLenAndExists(t *testing.T) {
	t.Parallel()

	d := NewDict()
	for i := 0; i < 50; i++ {
		d.Set(fmt.Sprintf("key:%d", i), i)
	}
	assert.Equal(t, 50, d.Len())
	assert.True(t, d.Exists("key:10"))
	assert.False(t, d.Exists("key:nope"))
}

func TestDictSurvivesIncrementalRehash(t *testing.T) {
	t.Parallel()

	d := NewDict()
	const n = 2000
	for i := 0; i < n; i++ {
		d.Set(fmt.Sprintf("key:%d", i), i)
	}
	require.Equal(t, n, d.Len())

	for i := 0; i < n; i++ {
		v, ok := d.Get(fmt.Sprintf("key:%d", i))
		require.True(t, ok, "key:%d missing after growth", i)
		assert.Equal(t, i, v)
	}
}

func TestDictClear(t *testing.T) {
	t.Parallel()

	d := NewDict()
	d.Set("a", 1)
	d.Set("b", 2)
	d.Clear()

	assert.Equal(t, 0, d.Len())
	assert.False(t, d.Exists("a"))
}

func TestDictRandomKeyOnEmpty(t *testing.T) {
	t.Parallel()

	d := NewDict()
	_, ok := d.RandomKey()
	assert.False(t, ok)
}

func TestDictRandomKeyReturnsExistingKey(t *testing.T) {
	t.Parallel()

	d := NewDict()
	want := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key:%d", i)
		d.Set(key, i)
		want[key] = struct{}{}
	}

	key, ok := d.RandomKey()
	require.True(t, ok)
	_, known := want[key]
	assert.True(t, known)
}

func TestDictSampleKeysNoDuplicates(t *testing.T) {
	t.Parallel()

	d := NewDict()
	for i := 0; i < 100; i++ {
		d.Set(fmt.Sprintf("key:%d", i), i)
	}

	sample := d.SampleKeys(10)
	assert.Len(t, sample, 10)

	seen := map[string]struct{}{}
	for _, k := range sample {
		_, dup := seen[k]
		assert.False(t, dup, "duplicate key %q in sample", k)
		seen[k] = struct{}{}
	}
}

func TestDictSampleKeysCapsAtSize(t *testing.T) {
	t.Parallel()

	d := NewDict()
	d.Set("a", 1)
	d.Set("b", 2)

	sample := d.SampleKeys(100)
	assert.Len(t, sample, 2)
}

func TestDictSampleKeysEmpty(t *testing.T) {
	t.Parallel()

	d := NewDict()
	assert.Nil(t, d.SampleKeys(5))
}

func TestDictKeysMatchesContents(t *testing.T) {
	t.Parallel()

	d := NewDict()
	inserted := []string{"a", "b", "c"}
	for _, k := range inserted {
		d.Set(k, 1)
	}

	keys := d.Keys()
	assert.ElementsMatch(t, inserted, keys)
}

func TestDictIteratorNoDuplicatesAndTerminates(t *testing.T) {
	t.Parallel()

	d := NewDict()
	want := map[string]int{}
	for i := 0; i < 30; i++ {
		key := fmt.Sprintf("key:%d", i)
		d.Set(key, i)
		want[key] = i
	}

	it := d.Iterator()
	defer it.Close()

	seen := map[string]struct{}{}
	for it.Next() {
		k, v := it.Entry()
		_, dup := seen[k]
		assert.False(t, dup, "iterator revisited %q", k)
		seen[k] = struct{}{}
		wantV, known := want[k]
		require.True(t, known, "iterator produced unknown key %q", k)
		assert.Equal(t, wantV, v)
	}
}
