package engine

import (
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

// installCJSON exposes Redis's cjson.encode/cjson.decode table using
// layeh.com/gopher-json's encode/decode implementation, renamed from
// "json" to "cjson" to match Redis scripting's module name.
//
// Grounded on tile38's internal/server/scripts.go, which installs the
// identical library (`L.SetGlobal("json", L.Get(luajson.Loader(L)))`)
// for its own Lua sandbox.
func installCJSON(L *lua.LState) {
	luajson.Loader(L)
	mod := L.Get(-1)
	L.Pop(1)
	L.SetGlobal("cjson", mod)
}
