// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeLRU(t *testing.T) {
	t.Parallel()

	w := EncodeLRU(12345)
	assert.Equal(t, uint32(12345), w.DecodeLRU())
}

func TestEncodeLRUMasksOverflow(t *testing.T) {
	t.Parallel()

	w := EncodeLRU(1<<24 + 7)
	assert.Equal(t, uint32(7), w.DecodeLRU())
}

func TestEncodeDecodeLFU(t *testing.T) {
	t.Parallel()

	w := EncodeLFU(1000, 42)
	ldt, counter := w.DecodeLFU()
	assert.Equal(t, uint32(1000), ldt)
	assert.Equal(t, uint8(42), counter)
}

func TestEncodeLFUWrapsLDT(t *testing.T) {
	t.Parallel()

	w := EncodeLFU(ldtModulus+3, 1)
	ldt, _ := w.DecodeLFU()
	assert.Equal(t, uint32(3), ldt)
}

func TestLogIncrementSaturates(t *testing.T) {
	t.Parallel()

	always := func() float64 { return 0 }
	assert.Equal(t, uint8(lfuCounterMax), LogIncrement(lfuCounterMax, 10, always))
}

func TestLogIncrementAlwaysAdvancesAtInitCounter(t *testing.T) {
	t.Parallel()

	always := func() float64 { return 0 }
	got := LogIncrement(LFUInitVal, 10, always)
	assert.Equal(t, uint8(LFUInitVal+1), got)
}

func TestLogIncrementNeverAdvancesWhenUnlucky(t *testing.T) {
	t.Parallel()

	never := func() float64 { return 0.999999 }
	got := LogIncrement(200, 10, never)
	assert.Equal(t, uint8(200), got)
}

func TestLogIncrementHigherCounterIsLessLikely(t *testing.T) {
	t.Parallel()

	const trials = 5000
	rng := newLCG(1)

	low := countAdvances(t, trials, LFUInitVal, rng)
	high := countAdvances(t, trials, 200, rng)

	assert.Greater(t, low, high)
}

func countAdvances(t *testing.T, trials int, counter uint8, rng func() float64) int {
	t.Helper()
	advances := 0
	for i := 0; i < trials; i++ {
		if LogIncrement(counter, 10, rng) > counter {
			advances++
		}
	}
	return advances
}

// newLCG returns a small deterministic linear-congruential generator
// producing values in [0, 1), so probabilistic tests stay reproducible
// without pulling in math/rand state.
func newLCG(seed uint64) func() float64 {
	state := seed
	return func() float64 {
		state = state*6364136223846793005 + 1442695040888963407
		return float64(state>>11) / float64(1<<53)
	}
}

func TestDecayNoopWhenDisabled(t *testing.T) {
	t.Parallel()

	got := Decay(100, 50, 900, 0)
	assert.Equal(t, uint8(50), got)
}

func TestDecayReducesCounterByElapsedPeriods(t *testing.T) {
	t.Parallel()

	// 10 minutes elapsed, 1 period per minute -> 10 periods of decay.
	got := Decay(0, 50, 10, 1)
	assert.Equal(t, uint8(40), got)
}

func TestDecayFloorsAtZero(t *testing.T) {
	t.Parallel()

	got := Decay(0, 5, 1000, 1)
	assert.Equal(t, uint8(0), got)
}

func TestDecayHandlesLDTWrap(t *testing.T) {
	t.Parallel()

	// ldt is near the top of the 16-bit range, now has wrapped past zero.
	ldt := uint32(ldtModulus - 2)
	now := uint32(3)
	// elapsed = (65536 - 65534) + 3 = 5 minutes.
	got := Decay(ldt, 50, now, 1)
	assert.Equal(t, uint8(45), got)
}

func TestLFUCounterMax(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint8(255), LFUCounterMax())
}
