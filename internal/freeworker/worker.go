// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package freeworker implements the background lazy-free worker the
// eviction loop hands deleted values to when lazyfree-lazy-eviction is on.
// It is grounded on the teacher's AOF manager's single-purpose-channel
// idiom (fsyncChan/closeChan) and on Krishna8167-tempuscache's minimal
// list+map teardown shape.
package freeworker

import (
	"sync"
	"sync/atomic"
)

const defaultQueueSize = 1024

// Worker runs a small pool of goroutines draining a bounded job channel.
// Its only externally observable state is PendingJobs, which the eviction
// loop's backstop polls.
type Worker struct {
	jobs    chan func()
	pending atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup
}

// New starts a Worker with the given goroutine count and job queue
// capacity. workers <= 0 defaults to 1; queueSize <= 0 defaults to 1024.
func New(workers, queueSize int) *Worker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	w := &Worker{
		jobs: make(chan func(), queueSize),
		done: make(chan struct{}),
	}

	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go w.run()
	}
	return w
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			job()
			w.pending.Add(-1)
		}
	}
}

// Enqueue posts job to the worker pool. It blocks if the job queue is full,
// applying backpressure rather than growing unbounded.
func (w *Worker) Enqueue(job func()) {
	w.pending.Add(1)
	w.jobs <- job
}

// PendingJobs returns the number of jobs enqueued but not yet completed,
// the value the eviction loop's backstop polls while waiting for the
// allocator's used-bytes counter to catch up.
func (w *Worker) PendingJobs() int {
	return int(w.pending.Load())
}

// Close stops all worker goroutines, waiting for in-flight jobs to finish.
// Queued-but-not-started jobs may be dropped: a goroutine that sees both the
// stop signal and a queued job picks either one.
func (w *Worker) Close() {
	close(w.done)
	w.wg.Wait()
}
