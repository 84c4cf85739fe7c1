// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eviction

import (
	"math"

	"github.com/nyxkv/nyxdb/internal/clock"
	"github.com/nyxkv/nyxdb/internal/objmeta"
)

// clockSnapshot bundles the two coarse ticks a populate pass scores
// against, read once per database loop so every candidate in a cycle is
// judged against the same instant.
type clockSnapshot struct {
	lruTick    uint32
	lfuMinutes uint32
}

// populate draws up to sampleSize keys from db's policy-appropriate table
// and scores each under policy, inserting survivors into pool. lookup_source
// from spec.md's populate(dbid, sample_source, lookup_source, pool) is
// always db's main table, reached through db.AccessMeta.
func populate(dbid int, db Database, policy PolicyType, pool *Pool, sampleSize int, now clockSnapshot, lfuLogFactor, lfuDecayTimeMinutes int) {
	table := sourceTable(db, policy)
	if table.Size() == 0 {
		return
	}

	for _, key := range table.SampleN(sampleSize) {
		idle, ok := scoreCandidate(db, key, policy, now, lfuLogFactor, lfuDecayTimeMinutes)
		if !ok {
			continue
		}
		pool.Insert(idle, dbid, key)
	}
}

func sourceTable(db Database, policy PolicyType) KeyTable {
	if policy.ScansAllKeys() {
		return db.AllKeys()
	}
	return db.ExpiringKeys()
}

func scoreCandidate(db Database, key string, policy PolicyType, now clockSnapshot, lfuLogFactor, lfuDecayTimeMinutes int) (uint64, bool) {
	switch policy.family() {
	case familyLRU:
		meta, ok := db.AccessMeta(key)
		if !ok {
			return 0, false
		}
		return uint64(clock.IdleMs(now.lruTick, meta.DecodeLRU())), true

	case familyLFU:
		meta, ok := db.AccessMeta(key)
		if !ok {
			return 0, false
		}
		ldt, counter := meta.DecodeLFU()
		decayed := objmeta.Decay(ldt, counter, now.lfuMinutes, lfuDecayTimeMinutes)
		return uint64(255 - decayed), true

	case familyTTL:
		expiresAt, ok := db.ExpiryMillis(key)
		if !ok {
			return 0, false
		}
		return math.MaxUint64 - uint64(expiresAt), true

	default:
		return 0, false
	}
}
