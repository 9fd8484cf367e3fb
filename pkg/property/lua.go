// Copyright 2020-2022 The MGC Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package property

import (
	"math"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// luaEvaluator evaluates "expression" and "dynamic" properties.
//
// An expression is a single Lua expression, a dynamic property is a
// full chunk that must return a value and may keep state in the
// `state` table between evaluations. Both run in a sandbox with only
// the base and math libraries, plus `time`, `frame`, `fps`, `lerp`
// and `clamp` in scope.
type luaEvaluator struct {
	chunk bool

	mu     sync.Mutex
	vm     *lua.LState
	states map[*Property]*lua.LTable
}

func newLuaEvaluator(chunk bool) *luaEvaluator {
	return &luaEvaluator{
		chunk:  chunk,
		states: map[*Property]*lua.LTable{},
	}
}

func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	L.SetGlobal("lerp", L.NewFunction(func(L *lua.LState) int {
		a := float64(L.CheckNumber(1))
		b := float64(L.CheckNumber(2))
		u := float64(L.CheckNumber(3))
		L.Push(lua.LNumber(a + (b-a)*u))
		return 1
	}))
	L.SetGlobal("clamp", L.NewFunction(func(L *lua.LState) int {
		v := float64(L.CheckNumber(1))
		lo := float64(L.CheckNumber(2))
		hi := float64(L.CheckNumber(3))
		L.Push(lua.LNumber(math.Min(math.Max(v, lo), hi)))
		return 1
	}))
	return L
}

func (e *luaEvaluator) Evaluate(p *Property, t float64, fps float64) Value {
	if p.Expression == "" {
		return p.Value
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.vm == nil {
		e.vm = newSandbox()
	}
	L := e.vm

	L.SetGlobal("time", lua.LNumber(t))
	L.SetGlobal("frame", lua.LNumber(math.Round(t*fps)))
	L.SetGlobal("fps", lua.LNumber(fps))

	src := p.Expression
	if e.chunk {
		state, exist := e.states[p]
		if !exist {
			state = L.NewTable()
			e.states[p] = state
		}
		L.SetGlobal("state", state)
	} else {
		src = "return " + src
	}

	top := L.GetTop()
	if err := L.DoString(src); err != nil {
		return p.Value
	}
	if L.GetTop() <= top {
		return p.Value
	}
	ret := L.Get(-1)
	L.SetTop(top)

	return fromLua(ret)
}

func fromLua(v lua.LValue) Value {
	switch val := v.(type) {
	case lua.LNumber:
		return Number(float64(val))
	case lua.LString:
		return String(string(val))
	case lua.LBool:
		return Boolean(bool(val))
	case *lua.LTable:
		return fromLuaTable(val)
	}
	return Value{}
}

func fromLuaTable(table *lua.LTable) Value {
	field := func(key string) (float64, bool) {
		v := table.RawGetString(key)
		n, ok := v.(lua.LNumber)
		return float64(n), ok
	}

	if r, ok := field("r"); ok {
		g, _ := field("g")
		b, _ := field("b")
		a, aOK := field("a")
		if !aOK {
			a = 255
		}
		return ColorValue(Color{
			R: colorComponent(r),
			G: colorComponent(g),
			B: colorComponent(b),
			A: colorComponent(a),
		})
	}
	if x, ok := field("x"); ok {
		y, _ := field("y")
		if w, ok := field("w"); ok {
			z, _ := field("z")
			return Vec4(x, y, z, w)
		}
		if z, ok := field("z"); ok {
			return Vec3(x, y, z)
		}
		return Vec2(x, y)
	}

	if n := table.MaxN(); n > 0 {
		items := make([]Value, 0, n)
		for i := 1; i <= n; i++ {
			items = append(items, fromLua(table.RawGetInt(i)))
		}
		return Array(items)
	}

	entries := map[string]Value{}
	table.ForEach(func(k, v lua.LValue) {
		if key, ok := k.(lua.LString); ok {
			entries[string(key)] = fromLua(v)
		}
	})
	return Map(entries)
}
