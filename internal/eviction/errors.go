// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eviction

import "errors"

// Sentinel errors returned by TryFreeMemory. Callers branch on which
// condition occurred via errors.Is, rather than matching strings.
var (
	// ErrPolicyForbids is returned when the active policy is noeviction and
	// memory is over budget.
	ErrPolicyForbids = errors.New("eviction: noeviction policy forbids freeing memory")

	// ErrNoCandidates is returned when the accountant reports over budget
	// but every database is empty of eligible keys for the active policy.
	ErrNoCandidates = errors.New("eviction: no eligible eviction candidates")

	// ErrInsufficientProgress is returned when the loop exhausts candidates
	// before reaching its target and the backstop also fails to observe
	// the accountant cross back under budget.
	ErrInsufficientProgress = errors.New("eviction: could not free enough memory to reach target")

	// ErrTransientBlocked marks a safety-wrapper decline (loading, script
	// timeout, paused clients). It is never returned to a TryFreeMemory
	// caller as an error — TryFreeMemorySafely surfaces it as a nil (OK)
	// result — but is exposed for logging and tests that want to
	// distinguish "declined" from "nothing to do".
	ErrTransientBlocked = errors.New("eviction: declined during a transient forbidden state")
)
