// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keyspace adapts the teacher's pubsub.Manager channel/subscriber
// bookkeeping into the eviction loop's Notifier collaborator: publishing
// keyspace-event-style notifications on eviction and tracking a per-db
// dirty counter, without any of the original's wire-protocol framing.
package keyspace

import (
	"fmt"
	"sync"
)

// Event is one keyspace notification delivered to subscribers.
type Event struct {
	Channel string
	DB      int
	Key     string
}

// channelSubscribers mirrors the teacher's per-channel subscriber set,
// keyed by an opaque subscriber id instead of a *net.Conn.
type channelSubscribers struct {
	mu          sync.RWMutex
	subscribers map[int]chan<- Event
}

func newChannelSubscribers() *channelSubscribers {
	return &channelSubscribers{subscribers: make(map[int]chan<- Event)}
}

func (c *channelSubscribers) add(id int, ch chan<- Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[id] = ch
}

func (c *channelSubscribers) remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, id)
}

func (c *channelSubscribers) isEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers) == 0
}

func (c *channelSubscribers) snapshot() []chan<- Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]chan<- Event, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		out = append(out, ch)
	}
	return out
}

// Notifier implements eviction.Notifier: it publishes a "evicted" event on
// the per-db __keyevent@<db>__:evicted channel and bumps a per-db dirty
// counter on every key modification, the way a real server would track
// work pending a BGSAVE.
type Notifier struct {
	mu       sync.RWMutex
	channels map[string]*channelSubscribers
	nextID   int

	dirtyMu sync.Mutex
	dirty   map[int]int64
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{
		channels: make(map[string]*channelSubscribers),
		dirty:    make(map[int]int64),
	}
}

// Subscribe registers ch to receive every Event published on channel and
// returns an id usable with Unsubscribe.
func (n *Notifier) Subscribe(channel string, ch chan<- Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channels[channel] == nil {
		n.channels[channel] = newChannelSubscribers()
	}
	n.nextID++
	id := n.nextID
	n.channels[channel].add(id, ch)
	return id
}

// Unsubscribe removes the subscription with the given id from channel.
func (n *Notifier) Unsubscribe(channel string, id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs, ok := n.channels[channel]
	if !ok {
		return
	}
	subs.remove(id)
	if subs.isEmpty() {
		delete(n.channels, channel)
	}
}

// Publish delivers message to every subscriber of channel. Delivery is
// non-blocking: a subscriber with a full buffer misses the event rather
// than stalling the eviction loop.
func (n *Notifier) Publish(channel string, msg Event) int {
	n.mu.RLock()
	subs, ok := n.channels[channel]
	n.mu.RUnlock()
	if !ok {
		return 0
	}

	count := 0
	for _, ch := range subs.snapshot() {
		select {
		case ch <- msg:
			count++
		default:
		}
	}
	return count
}

// NotifyEvicted publishes to __keyevent@<db>__:evicted, matching the
// reference server's keyspace notification naming convention.
func (n *Notifier) NotifyEvicted(db int, key string) {
	channel := evictedChannel(db)
	n.Publish(channel, Event{Channel: channel, DB: db, Key: key})
}

// SignalModifiedKey increments db's dirty counter, the quantity a
// background-save scheduler would watch to decide when to snapshot.
func (n *Notifier) SignalModifiedKey(db int, key string) {
	n.dirtyMu.Lock()
	n.dirty[db]++
	n.dirtyMu.Unlock()
}

// DirtyCount returns how many keys have been signaled modified in db since
// the last ResetDirty.
func (n *Notifier) DirtyCount(db int) int64 {
	n.dirtyMu.Lock()
	defer n.dirtyMu.Unlock()
	return n.dirty[db]
}

// ResetDirty zeroes db's dirty counter.
func (n *Notifier) ResetDirty(db int) {
	n.dirtyMu.Lock()
	n.dirty[db] = 0
	n.dirtyMu.Unlock()
}

func evictedChannel(db int) string {
	return fmt.Sprintf("__keyevent@%d__:evicted", db)
}
