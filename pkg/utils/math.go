// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package utils

// Max returns the maximum of two integers
func Max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Min returns the minimum of two integers
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
