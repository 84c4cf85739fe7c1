// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config parses server configuration in the reference
// `key value` line format, restricted to the options nyxdb actually
// consults: network/logging basics plus the maxmemory/eviction family.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/nyxkv/nyxdb/internal/eviction"
)

// Config holds the server configuration.
type Config struct {
	// Network / general
	Bind      string
	Port      int
	Databases int
	LogLevel  string

	// Eviction (spec.md §6)
	MaxMemory               int64
	MaxMemoryPolicy         string
	MaxMemorySamples        int
	LFULogFactor            int
	LFUDecayTimeMinutes     int
	LazyFreeLazyEviction    bool
	ReplicaIgnoreMaxmemory  bool
	HZ                      int

	mu sync.RWMutex
}

// Default returns the reference default configuration.
func Default() *Config {
	return &Config{
		Bind:      "0.0.0.0",
		Port:      6379,
		Databases: 16,
		LogLevel:  "notice",

		MaxMemory:              0,
		MaxMemoryPolicy:        "noeviction",
		MaxMemorySamples:       5,
		LFULogFactor:           10,
		LFUDecayTimeMinutes:    1,
		LazyFreeLazyEviction:   false,
		ReplicaIgnoreMaxmemory: true,
		HZ:                     10,
	}
}

// LoadFile reads and parses a configuration file.
func LoadFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := c.Parse(string(content)); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse applies `key value` lines from content on top of c's current
// values. Unknown keys are ignored, matching the reference server's
// forward-compatible config file handling.
func (c *Config) Parse(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "#"); idx > 0 {
			line = strings.TrimSpace(line[:idx])
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		key := strings.ToLower(parts[0])
		value := strings.Join(parts[1:], " ")

		if err := c.setConfig(key, value); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

func (c *Config) setConfig(key, value string) error {
	switch key {
	case "bind":
		c.Bind = value
	case "port":
		p, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.Port = p
	case "databases":
		d, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.Databases = d
	case "loglevel":
		c.LogLevel = strings.ToLower(value)
	case "maxmemory":
		if value == "0" || value == "" {
			c.MaxMemory = 0
		} else {
			m, err := parseMemory(value)
			if err != nil {
				return err
			}
			c.MaxMemory = m
		}
	case "maxmemory-policy":
		c.MaxMemoryPolicy = strings.ToLower(value)
	case "maxmemory-samples":
		s, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.MaxMemorySamples = s
	case "lfu-log-factor":
		f, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.LFULogFactor = f
	case "lfu-decay-time":
		d, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.LFUDecayTimeMinutes = d
	case "lazyfree-lazy-eviction":
		c.LazyFreeLazyEviction = strings.ToLower(value) == "yes"
	case "replica-ignore-maxmemory":
		c.ReplicaIgnoreMaxmemory = strings.ToLower(value) == "yes"
	case "hz":
		h, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.HZ = h
	default:
		// Unknown config key, ignore.
	}
	return nil
}

// parseMemory parses memory size strings like "1gb", "500mb", "256kb".
func parseMemory(s string) (int64, error) {
	s = strings.ToLower(s)
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "gb"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "gb")
	case strings.HasSuffix(s, "mb"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "mb")
	case strings.HasSuffix(s, "kb"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "kb")
	}
	val, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return val * multiplier, nil
}

// Get returns a configuration value by key, for a CONFIG-GET-equivalent
// introspection command.
func (c *Config) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch strings.ToLower(key) {
	case "bind":
		return c.Bind, true
	case "port":
		return strconv.Itoa(c.Port), true
	case "databases":
		return strconv.Itoa(c.Databases), true
	case "loglevel":
		return c.LogLevel, true
	case "maxmemory":
		return strconv.FormatInt(c.MaxMemory, 10), true
	case "maxmemory-policy":
		return c.MaxMemoryPolicy, true
	case "maxmemory-samples":
		return strconv.Itoa(c.MaxMemorySamples), true
	case "lfu-log-factor":
		return strconv.Itoa(c.LFULogFactor), true
	case "lfu-decay-time":
		return strconv.Itoa(c.LFUDecayTimeMinutes), true
	case "lazyfree-lazy-eviction":
		return boolToStr(c.LazyFreeLazyEviction), true
	case "replica-ignore-maxmemory":
		return boolToStr(c.ReplicaIgnoreMaxmemory), true
	case "hz":
		return strconv.Itoa(c.HZ), true
	default:
		return "", false
	}
}

// Set sets a configuration value by key, for a CONFIG-SET-equivalent
// command.
func (c *Config) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setConfig(key, value)
}

func boolToStr(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// GetAddr returns the network address to bind to.
func (c *Config) GetAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// EvictionConfig projects the eviction-relevant fields into an
// eviction.Config, the shape the Manager actually consumes.
func (c *Config) EvictionConfig() eviction.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	policy, err := eviction.PolicyFromString(c.MaxMemoryPolicy)
	if err != nil {
		policy = eviction.PolicyNoEviction
	}

	return eviction.Config{
		Policy:               policy,
		MaxMemorySamples:     c.MaxMemorySamples,
		LFULogFactor:         c.LFULogFactor,
		LFUDecayTimeMinutes:  c.LFUDecayTimeMinutes,
		LazyFreeLazyEviction: c.LazyFreeLazyEviction,
	}
}
