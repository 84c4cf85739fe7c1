// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyxkv/nyxdb/internal/accountant"
	"github.com/nyxkv/nyxdb/internal/clock"
	"github.com/nyxkv/nyxdb/internal/config"
	"github.com/nyxkv/nyxdb/internal/eviction"
	"github.com/nyxkv/nyxdb/internal/freeworker"
	"github.com/nyxkv/nyxdb/internal/keyspace"
	"github.com/nyxkv/nyxdb/internal/replhooks"
	"github.com/nyxkv/nyxdb/internal/scriptguard"
	"github.com/nyxkv/nyxdb/internal/store"
	"github.com/nyxkv/nyxdb/pkg/log"
	"github.com/nyxkv/nyxdb/pkg/metrics"
)

type serveOptions struct {
	configFile  string
	metricsAddr string
	workloadRPS int
	valueSize   int
	volatilePct int
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the eviction core against a synthetic write workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "Address to serve /metrics on")
	cmd.Flags().IntVar(&opts.workloadRPS, "workload-rps", 2000, "Synthetic SET operations per second")
	cmd.Flags().IntVar(&opts.valueSize, "value-size", 512, "Synthetic value size in bytes")
	cmd.Flags().IntVar(&opts.volatilePct, "volatile-pct", 30, "Percentage of synthetic keys stamped with a TTL")

	return cmd
}

func runServe(opts *serveOptions) error {
	cfg := config.Default()
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	log.SetLevelString(cfg.LogLevel)

	log.Info("nyxdb %s starting...", Version)
	log.Info("PID: %d", os.Getpid())

	clk := clock.New(cfg.HZ)
	go clk.Run()
	defer clk.Stop()

	dbSelector := store.NewDBSelector(cfg.Databases)

	buffers := replhooks.NewSimBuffers()
	alloc := &accountant.RuntimeAllocator{}
	acct := accountant.New(alloc, buffers, cfg.MaxMemory)

	worker := freeworker.New(4, 4096)
	defer worker.Close()

	notifier := keyspace.New()
	for i := 0; i < dbSelector.Len(); i++ {
		db := dbSelector.DB(i)
		concrete, ok := db.(*store.DB)
		if !ok {
			continue
		}
		concrete.SetAsyncDeleter(worker.Enqueue)
		dbID := concrete.ID()
		concrete.SetDirtyKeyCallback(func(key string) {
			notifier.SignalModifiedKey(dbID, key)
		})
	}

	collector := metrics.New()

	mgr := eviction.New(cfg.EvictionConfig(), clk, dbSelector, acct)
	mgr.SetFreeWorker(worker)
	mgr.SetReplHooks(buffers)
	mgr.SetNotifier(notifier)
	mgr.SetObserver(collector)

	log.Info("Eviction policy: %s maxmemory: %d", mgr.Policy().String(), acct.MaxMemory())

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	metricsServer := &http.Server{Addr: opts.metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server: %v", err)
		}
	}()
	log.Info("Metrics listening on %s", opts.metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guard := scriptguard.New(5 * time.Second)

	go runWorkload(ctx, dbSelector, clk, opts)
	go runEvictionLoop(ctx, mgr, guard)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Received shutdown signal")
	cancel()
	_ = metricsServer.Close()
	log.Info("nyxdb shutdown complete; evicted %d keys lifetime", mgr.EvictedKeys())
	return nil
}

// runWorkload continuously writes random keys into db 0, simulating load
// that eventually exceeds maxmemory and forces the eviction loop to act.
func runWorkload(ctx context.Context, selector *store.DBSelector, clk *clock.Clock, opts *serveOptions) {
	if opts.workloadRPS <= 0 {
		return
	}
	interval := time.Second / time.Duration(opts.workloadRPS)
	if interval <= 0 {
		interval = time.Microsecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	db, err := selector.GetDB(0)
	if err != nil {
		log.Error("workload: %v", err)
		return
	}

	value := make([]byte, opts.valueSize)
	seq := int64(0)
	var lastVolatileKey string

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			rand.Read(value)
			key := "key:" + strconv.FormatInt(seq, 10)
			obj := store.NewBulkStringObject(value, clk.LRUClock())
			obj.InitLFU(clock.LFUNowMinutes())
			db.Set(key, obj)

			// Stamp a configurable fraction of keys with a TTL so the
			// volatile-* policy families have expiring keys to sample,
			// not just the allkeys-* families.
			if opts.volatilePct > 0 && rand.Intn(100) < opts.volatilePct {
				db.Expire(key, 1+rand.Intn(60))
				lastVolatileKey = key
			}

			if lastVolatileKey != "" && seq%1000 == 0 {
				log.Debug("workload: %s ttl=%ds", lastVolatileKey, db.TTL(lastVolatileKey))
			}
		}
	}
}

// runEvictionLoop drives TryFreeMemorySafely on a fixed tick, the demo
// stand-in for the reference server's serverCron call site.
func runEvictionLoop(ctx context.Context, mgr *eviction.Manager, guard *scriptguard.Guard) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	safety := eviction.SafetyState{ScriptBusy: guard.Busy}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := mgr.TryFreeMemorySafely(eviction.RuntimeFlags{}, safety)
			if err != nil {
				log.Debug("eviction cycle: %v", err)
			}
		}
	}
}
