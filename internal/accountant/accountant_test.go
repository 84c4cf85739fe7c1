// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accountant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeOverhead struct {
	replica, appendLog, appendRewrite int64
}

func (f *fakeOverhead) ReplicaBufferBytes() int64         { return f.replica }
func (f *fakeOverhead) AppendLogBufferBytes() int64       { return f.appendLog }
func (f *fakeOverhead) AppendLogRewriteBufferBytes() int64 { return f.appendRewrite }

func TestStateUnlimitedMaxMemory(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Set(1_000_000)
	a := New(alloc, nil, 0)

	snap := a.State()
	assert.False(t, snap.Over)
	assert.Equal(t, int64(1_000_000), snap.TotalBytes)
	assert.Equal(t, int64(1_000_000), snap.LogicalBytes)
}

func TestStateUnderBudget(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Set(500)
	a := New(alloc, nil, 1000)

	snap := a.State()
	assert.False(t, snap.Over)
	assert.Equal(t, int64(0), snap.ToFreeBytes)
}

func TestStateOverBudgetNoOverheadSource(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Set(1500)
	a := New(alloc, nil, 1000)

	snap := a.State()
	assert.True(t, snap.Over)
	assert.Equal(t, int64(500), snap.ToFreeBytes)
	assert.Equal(t, int64(1500), snap.LogicalBytes)
}

func TestStateExcludesTransientOverheadFromLogicalBytes(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Set(2000)
	overhead := &fakeOverhead{replica: 300, appendLog: 200, appendRewrite: 100}
	a := New(alloc, overhead, 1000)

	snap := a.State()
	// logical = 2000 - 600 = 1400, still over the 1000 budget by 400.
	assert.True(t, snap.Over)
	assert.Equal(t, int64(1400), snap.LogicalBytes)
	assert.Equal(t, int64(400), snap.ToFreeBytes)
}

func TestStateOverheadCanPullBackUnderBudget(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Set(1200)
	overhead := &fakeOverhead{replica: 500}
	a := New(alloc, overhead, 1000)

	snap := a.State()
	// logical = 1200 - 500 = 700, under the 1000 budget despite the raw
	// total being over it.
	assert.False(t, snap.Over)
	assert.Equal(t, int64(700), snap.LogicalBytes)
}

func TestStateLogicalBytesNeverNegative(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Set(100)
	overhead := &fakeOverhead{replica: 1000}
	// The budget sits below the raw total so State subtracts the overhead:
	// 100 - 1000 clamps to 0, which is under the 50-byte budget.
	a := New(alloc, overhead, 50)

	snap := a.State()
	assert.Equal(t, int64(0), snap.LogicalBytes)
	assert.False(t, snap.Over)
}

func TestSetMaxMemoryUpdatesBudget(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Set(1500)
	a := New(alloc, nil, 0)
	assert.False(t, a.State().Over)

	a.SetMaxMemory(1000)
	assert.True(t, a.State().Over)
	assert.Equal(t, int64(1000), a.MaxMemory())
}

func TestAtomicAllocatorAddAndSet(t *testing.T) {
	t.Parallel()

	alloc := &AtomicAllocator{}
	alloc.Add(100)
	alloc.Add(50)
	assert.Equal(t, int64(150), alloc.UsedBytes())

	alloc.Set(10)
	assert.Equal(t, int64(10), alloc.UsedBytes())
}

func TestRuntimeAllocatorReportsPositiveUsage(t *testing.T) {
	t.Parallel()

	var alloc RuntimeAllocator
	assert.Greater(t, alloc.UsedBytes(), int64(0))
}
