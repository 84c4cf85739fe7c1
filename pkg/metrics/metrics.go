// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics implements the eviction.Observer collaborator: Prometheus
// counters/gauges for the long-running server, and three
// jamiealquiza/tachymeter instances (one per latency class) in the style of
// bicache's bgAutoEvict stats loop. LatencySnapshot is their only reader;
// nothing in this module logs them.
package metrics

import (
	"net/http"
	"time"

	"github.com/jamiealquiza/tachymeter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const tachymeterSize = 256

// Collector implements eviction.Observer and serves a Prometheus /metrics
// endpoint.
type Collector struct {
	registry *prometheus.Registry

	evictedTotal  prometheus.Counter
	cyclesTotal   prometheus.Counter
	oomTotal      prometheus.Counter
	memoryUsed    prometheus.Gauge
	memoryLogical prometheus.Gauge

	cycleLatency    *tachymeter.Tachymeter
	deleteLatency   *tachymeter.Tachymeter
	lazyFreeLatency *tachymeter.Tachymeter
}

// New creates a Collector registered against a fresh prometheus.Registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		evictedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "nyxdb_evicted_keys_total",
			Help: "Total number of keys evicted to satisfy maxmemory.",
		}),
		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "nyxdb_eviction_cycles_total",
			Help: "Total number of TryFreeMemory invocations.",
		}),
		oomTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "nyxdb_oom_errors_total",
			Help: "Total number of eviction cycles that hit noeviction over budget.",
		}),
		memoryUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nyxdb_memory_used_bytes",
			Help: "Total allocator-attributed bytes in use, including transient overhead.",
		}),
		memoryLogical: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nyxdb_memory_logical_bytes",
			Help: "Allocator-attributed bytes excluding transient replication/append-log overhead.",
		}),
		cycleLatency:    tachymeter.New(&tachymeter.Config{Size: tachymeterSize}),
		deleteLatency:   tachymeter.New(&tachymeter.Config{Size: tachymeterSize}),
		lazyFreeLatency: tachymeter.New(&tachymeter.Config{Size: tachymeterSize}),
	}

	return c
}

// Handler returns the http.Handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveEvictionCycle implements eviction.Observer.
func (c *Collector) ObserveEvictionCycle(d time.Duration) {
	c.cycleLatency.AddTime(d)
}

// ObserveDelete implements eviction.Observer.
func (c *Collector) ObserveDelete(d time.Duration) {
	c.deleteLatency.AddTime(d)
}

// ObserveLazyFree implements eviction.Observer.
func (c *Collector) ObserveLazyFree(d time.Duration) {
	c.lazyFreeLatency.AddTime(d)
}

// IncEvicted implements eviction.Observer.
func (c *Collector) IncEvicted(n int64) {
	c.evictedTotal.Add(float64(n))
}

// IncCycles implements eviction.Observer.
func (c *Collector) IncCycles() {
	c.cyclesTotal.Inc()
}

// IncOOM implements eviction.Observer.
func (c *Collector) IncOOM() {
	c.oomTotal.Inc()
}

// SetMemory implements eviction.Observer.
func (c *Collector) SetMemory(totalBytes, logicalBytes int64) {
	c.memoryUsed.Set(float64(totalBytes))
	c.memoryLogical.Set(float64(logicalBytes))
}

// LatencySnapshot reports the current tachymeter calc for each latency
// class, resetting all three. Intended for a periodic stats-logging loop,
// mirroring bicache's bgAutoEvict reporting cadence.
func (c *Collector) LatencySnapshot() (cycle, del, lazyFree *tachymeter.Metrics) {
	cycle = c.cycleLatency.Calc()
	del = c.deleteLatency.Calc()
	lazyFree = c.lazyFreeLatency.Calc()
	c.cycleLatency.Reset()
	c.deleteLatency.Reset()
	c.lazyFreeLatency.Reset()
	return cycle, del, lazyFree
}
