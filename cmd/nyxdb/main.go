// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nyxdb demonstrates the memory-bounded eviction core against a
// synthetic write workload: `serve` runs it continuously with a metrics
// endpoint, `stats` reports a one-shot configuration/memory summary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:     "nyxdb",
		Short:   "A memory-bounded key-value eviction demo server",
		Version: fmt.Sprintf("%s (build %s, commit %s)", Version, BuildTime, GitCommit),
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newStatsCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
