// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scriptguard wraps the teacher's gopher-lua script execution
// setup with a deadline, exposing a Busy predicate the eviction safety
// wrapper consults before starting a new cycle: a long-running script
// forbids eviction the same way the reference server's busy-script state
// does.
package scriptguard

import (
	"fmt"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Guard runs Lua scripts with a wall-clock timeout and tracks whether a
// script is currently executing past that timeout.
type Guard struct {
	timeout  time.Duration
	running  atomic.Bool
	overtime atomic.Bool
}

// New creates a Guard that treats any script still running after timeout
// as busy. timeout <= 0 disables the busy state entirely (scripts never
// block eviction).
func New(timeout time.Duration) *Guard {
	return &Guard{timeout: timeout}
}

// Busy reports whether a script is currently running past its timeout,
// the signal eviction.SafetyState.ScriptBusy consults.
func (g *Guard) Busy() bool {
	return g.overtime.Load()
}

// Running reports whether a script is currently executing at all.
func (g *Guard) Running() bool {
	return g.running.Load()
}

// Run executes script with KEYS and ARGV bound as in the reference
// server's EVAL, returning its single return value converted to a Go
// value (string, int64, float64, bool, []interface{}, or nil).
func (g *Guard) Run(script string, keys, argv []string) (interface{}, error) {
	g.running.Store(true)
	defer g.running.Store(false)

	var timer *time.Timer
	if g.timeout > 0 {
		timer = time.AfterFunc(g.timeout, func() { g.overtime.Store(true) })
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		g.overtime.Store(false)
	}()

	L := lua.NewState()
	defer L.Close()

	keysTbl := L.NewTable()
	for i, key := range keys {
		L.RawSetInt(keysTbl, i+1, lua.LString(key))
	}
	L.SetGlobal("KEYS", keysTbl)

	argvTbl := L.NewTable()
	for i, arg := range argv {
		L.RawSetInt(argvTbl, i+1, lua.LString(arg))
	}
	L.SetGlobal("ARGV", argvTbl)

	if err := L.DoString(script); err != nil {
		return nil, fmt.Errorf("scriptguard: compiling script: %w", err)
	}

	ret := L.Get(-1)
	if ret == lua.LNil {
		return nil, nil
	}
	return luaToGo(L, ret), nil
}

func luaToGo(L *lua.LState, v lua.LValue) interface{} {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		items := make([]interface{}, 0)
		for i := 1; ; i++ {
			elem := L.RawGetInt(val, i)
			if elem == lua.LNil {
				break
			}
			items = append(items, luaToGo(L, elem))
		}
		return items
	default:
		return nil
	}
}
