package engine

import (
	lua "github.com/yuin/gopher-lua"
)

// installSandbox opens exactly the library whitelist spec.md §4.1
// demands (base, table, string, math) plus the Redis-compat modules,
// then scrubs every nondeterministic/IO-capable global and
// package-registry entry.
//
// Grounded on tile38's lStatePool.New (lua.Options{SkipOpenLibs: true}
// plus selective OpenXxx calls) and dshills-keystorm's Sandbox.Install
// (removing dofile/loadfile/load/loadstring, clearing package.path,
// locking down require).
func installSandbox(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	installRedisCompatLibs(L)

	scrubGlobal(L, "io")
	scrubGlobal(L, "os")
	scrubGlobal(L, "debug")
	scrubGlobal(L, "package")
	scrubGlobal(L, "require")
	scrubGlobal(L, "dofile")
	scrubGlobal(L, "loadfile")
	scrubGlobal(L, "load")
	scrubGlobal(L, "loadstring")
	scrubGlobal(L, "collectgarbage")
	scrubGlobal(L, "print")

	nullOutField(L, "math", "random")
	nullOutField(L, "math", "randomseed")
}

func scrubGlobal(L *lua.LState, name string) {
	L.SetGlobal(name, lua.LNil)
}

func nullOutField(L *lua.LState, table, field string) {
	v := L.GetGlobal(table)
	t, ok := v.(*lua.LTable)
	if !ok {
		return
	}
	t.RawSetString(field, lua.LNil)
}
