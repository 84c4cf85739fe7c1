// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBSelectorDefaultsCount(t *testing.T) {
	t.Parallel()

	s := NewDBSelector(0)
	assert.Equal(t, 16, s.Count())
}

func TestDBSelectorGetDBRange(t *testing.T) {
	t.Parallel()

	s := NewDBSelector(4)
	db, err := s.GetDB(2)
	require.NoError(t, err)
	assert.Equal(t, 2, db.ID())

	_, err = s.GetDB(99)
	assert.Error(t, err)
}

func TestDBSelectorFlushAll(t *testing.T) {
	t.Parallel()

	s := NewDBSelector(2)
	db0, _ := s.GetDB(0)
	db1, _ := s.GetDB(1)
	db0.Set("a", NewStringObject("1", 0))
	db1.Set("b", NewStringObject("2", 0))

	s.FlushAll()
	assert.Equal(t, 0, s.TotalKeys())
}

func TestDBSelectorTotalKeys(t *testing.T) {
	t.Parallel()

	s := NewDBSelector(2)
	db0, _ := s.GetDB(0)
	db1, _ := s.GetDB(1)
	db0.Set("a", NewStringObject("1", 0))
	db1.Set("b", NewStringObject("2", 0))
	db1.Set("c", NewStringObject("3", 0))

	assert.Equal(t, 3, s.TotalKeys())
}

func TestDBSelectorStatsPerDB(t *testing.T) {
	t.Parallel()

	s := NewDBSelector(2)
	db0, _ := s.GetDB(0)
	db0.Set("a", NewStringObject("1", 0))

	stats := s.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, int64(1), stats[0].Keys)
	assert.Equal(t, int64(0), stats[1].Keys)
}

func TestDBSelectorEvictionInterfaceAdapter(t *testing.T) {
	t.Parallel()

	s := NewDBSelector(3)
	assert.Equal(t, 3, s.Len())

	db := s.DB(1)
	assert.Equal(t, 1, db.ID())
}

func TestDBSelectorTotalMemoryUsage(t *testing.T) {
	t.Parallel()

	s := NewDBSelector(1)
	db, _ := s.GetDB(0)
	before := s.TotalMemoryUsage()
	db.Set("a", NewStringObject("some value", 0))
	after := s.TotalMemoryUsage()

	assert.Greater(t, after, before)
}
