// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"sync"

	"github.com/nyxkv/nyxdb/internal/eviction"
)

// DBSelector owns the fixed set of logical databases a server process
// exposes. It implements eviction.DBSelector so the eviction Manager can
// iterate databases without importing this package.
type DBSelector struct {
	mu  sync.RWMutex
	dbs []*DB
}

// NewDBSelector creates a selector with the given number of databases.
func NewDBSelector(count int) *DBSelector {
	if count <= 0 {
		count = 16
	}

	dbs := make([]*DB, count)
	for i := 0; i < count; i++ {
		dbs[i] = NewDB(i)
	}

	return &DBSelector{dbs: dbs}
}

// GetDB returns a database by index.
func (s *DBSelector) GetDB(index int) (*DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.dbs) {
		return nil, fmt.Errorf("db index out of range: %d", index)
	}
	return s.dbs[index], nil
}

// GetDefaultDB returns database 0.
func (s *DBSelector) GetDefaultDB() *DB {
	return s.dbs[0]
}

// Count returns the number of databases.
func (s *DBSelector) Count() int {
	return len(s.dbs)
}

// FlushAll flushes all databases.
func (s *DBSelector) FlushAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, db := range s.dbs {
		db.FlushDB()
	}
}

// TotalKeys returns the total key count across all databases.
func (s *DBSelector) TotalKeys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, db := range s.dbs {
		total += db.DBSize()
	}
	return total
}

// Stats returns per-database statistics.
func (s *DBSelector) Stats() []DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]DBStats, len(s.dbs))
	for i, db := range s.dbs {
		stats[i] = db.Stats()
	}
	return stats
}

// TotalMemoryUsage sums MemoryUsage across every database. The accountant
// does not read it; it measures through its own Allocator.
func (s *DBSelector) TotalMemoryUsage() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, db := range s.dbs {
		total += db.MemoryUsage()
	}
	return total
}

// ==================== eviction.DBSelector ====================

// Len returns the number of databases.
func (s *DBSelector) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dbs)
}

// DB returns the database at index i as an eviction.Database.
func (s *DBSelector) DB(i int) eviction.Database {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dbs[i]
}

var _ eviction.DBSelector = (*DBSelector)(nil)
