// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nyxkv/nyxdb/internal/config"
)

func newStatsCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a one-shot configuration and memory-budget summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path")

	return cmd
}

func runStats(configFile string) error {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	fmt.Printf("nyxdb %s\n", Version)
	fmt.Printf("  listen:               %s\n", cfg.GetAddr())
	fmt.Printf("  databases:            %d\n", cfg.Databases)
	fmt.Printf("  log level:            %s\n", cfg.LogLevel)
	fmt.Println()

	maxMemory := "unlimited"
	if cfg.MaxMemory > 0 {
		maxMemory = humanize.IBytes(uint64(cfg.MaxMemory))
	}
	fmt.Printf("  maxmemory:            %s\n", maxMemory)
	fmt.Printf("  maxmemory-policy:     %s\n", cfg.MaxMemoryPolicy)
	fmt.Printf("  maxmemory-samples:    %d\n", cfg.MaxMemorySamples)
	fmt.Printf("  lfu-log-factor:       %d\n", cfg.LFULogFactor)
	fmt.Printf("  lfu-decay-time:       %d min\n", cfg.LFUDecayTimeMinutes)
	fmt.Printf("  lazyfree-lazy-evict:  %t\n", cfg.LazyFreeLazyEviction)
	fmt.Printf("  replica-ignore-mm:    %t\n", cfg.ReplicaIgnoreMaxmemory)
	fmt.Printf("  hz:                   %d\n", cfg.HZ)

	return nil
}
