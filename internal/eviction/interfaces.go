// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eviction

import "github.com/nyxkv/nyxdb/internal/objmeta"

// KeyTable is one of a database's two key sets (all_keys or expiring_keys),
// the sampling surface the pool-based policies and the random policies both
// read from.
type KeyTable interface {
	Size() int
	Find(key string) bool
	RandomEntry() (string, bool)
	SampleN(n int) []string
}

// Database is the per-database collaborator the eviction loop deletes
// through. It is implemented by internal/store.DB; the eviction core never
// depends on the store package directly.
type Database interface {
	ID() int
	AllKeys() KeyTable
	ExpiringKeys() KeyTable

	// AccessMeta returns the stored access-metadata word for a key in the
	// main table, used to score *-lru and *-lfu candidates.
	AccessMeta(key string) (objmeta.Word, bool)

	// ExpiryMillis returns the absolute expiry timestamp for a key in the
	// expiring subset, the value volatile-ttl scores directly.
	ExpiryMillis(key string) (int64, bool)

	DeleteSync(key string) bool
	DeleteAsync(key string) bool
}

// DBSelector exposes the fixed set of databases a process hosts.
type DBSelector interface {
	Len() int
	DB(i int) Database
}

// ReplHooks is the replication/append-log side-effect surface the loop
// notifies on every victim delete.
type ReplHooks interface {
	PropagateExpire(db int, key string, lazy bool)
	FlushReplicaBuffers()
}

// Notifier is the keyspace-event surface the loop signals on every victim
// delete.
type Notifier interface {
	NotifyEvicted(db int, key string)
	SignalModifiedKey(db int, key string)
}

// FreeWorker reports how many lazy-free jobs are still pending, the signal
// the backstop polls while waiting for the background worker to catch up.
type FreeWorker interface {
	PendingJobs() int
}
