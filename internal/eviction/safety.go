// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eviction

import "time"

// backstopPollInterval is the sleep between accountant re-checks while the
// background free worker drains its queue after the loop has exhausted
// candidates.
const backstopPollInterval = time.Millisecond

// SafetyState reports the transient conditions that forbid entering the
// eviction loop at all.
type SafetyState struct {
	// Loading is true while the server is restoring persistent state.
	Loading bool

	// ScriptBusy reports whether an embedded script is running past its
	// configured timeout. Nil means "never busy".
	ScriptBusy func() bool
}

func (s SafetyState) blocked() bool {
	if s.Loading {
		return true
	}
	return s.ScriptBusy != nil && s.ScriptBusy()
}

// TryFreeMemorySafely wraps TryFreeMemory with the forbidden-state check
// from spec §4.7: a transient decline surfaces as OK (nil), never as an
// error, because the caller cannot distinguish "nothing to free" from
// "declined to look" and must not treat either as a failed write.
func (m *Manager) TryFreeMemorySafely(flags RuntimeFlags, safety SafetyState) error {
	if safety.blocked() {
		return nil
	}
	return m.TryFreeMemory(flags)
}

// backstop implements step 9 of the eviction loop: while the result is an
// error and the background free worker still has pending jobs, poll the
// accountant; a crossing back under budget converts the result to OK.
func (m *Manager) backstop(result error) error {
	if m.free == nil {
		return result
	}

	for m.free.PendingJobs() > 0 {
		time.Sleep(backstopPollInterval)
		if st := m.account.State(); !st.Over {
			return nil
		}
	}
	return result
}
