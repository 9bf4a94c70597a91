// Package redisbridge installs the redis.* table inside a sandboxed
// gopher-lua VM and marshals Lua values to and from pkg/reply.Reply,
// routing redis.call/redis.pcall across a host-supplied Host.
//
// Grounded on faizanhussain2310-GoRedis's internal/lua/engine.go
// (registerRedisAPI, convertLuaToGo/convertGoToLua), tile38's
// internal/server/scripts.go (ConvertToLua/ConvertToRESP, Sha1Sum,
// error_reply/status_reply), and mnorrsken-pg-kv-backend's
// internal/handler/lua.go (the same redis table shape against
// gopher-lua).
package redisbridge

import (
	"fmt"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/lua-redis-sandbox/luasandbox/internal/sha1id"
	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

// Log level constants exported on the redis table, per spec.md §4.3.
const (
	LogDebug   = 0
	LogVerbose = 1
	LogNotice  = 2
	LogWarning = 3
)

// Host is the collaborator contract spec.md §6 calls RedisHost: the
// three operations a host adapter must provide so redis.call/pcall/log
// have somewhere to go (redis.sha1hex is computed in-process and never
// reaches the Host). It is implemented in this repository by
// internal/memstore for the demo CLI; pkg/abi's Module takes one as its
// host.
type Host interface {
	// Call executes a command for redis.call; a non-nil error becomes a
	// raised Lua error. redis.pcall goes through PCall instead.
	Call(args [][]byte) (reply.Reply, error)
	// PCall is identical to Call but must never itself fail — any
	// failure is expected to already be folded into the returned Reply
	// as an Error variant (spec.md §6 host import contract).
	PCall(args [][]byte) reply.Reply
	// Log is best-effort and must not fail.
	Log(level int, msg []byte)
}

// FuelDebiter lets the engine account for every host-call crossing
// against the fuel budget (see SPEC_FULL.md §4). Returning an error
// aborts the call with that error's message.
type FuelDebiter func(cost int64) error

// crossingCost is the fixed instruction-equivalent debited per
// redis.call/pcall/log/sha1hex invocation.
const crossingCost = 50

// Install creates the `redis` table on L and wires it to host. debit, if
// non-nil, is invoked before each crossing to enforce the fuel budget.
func Install(L *lua.LState, host Host, debit FuelDebiter) {
	redisTable := L.NewTable()

	redisTable.RawSetString("call", L.NewFunction(func(L *lua.LState) int {
		if err := chargeCrossing(debit); err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		args, err := collectArgs(L)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		rep, err := host.Call(args)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		if rep.IsError() {
			L.RaiseError("%s", string(rep.Bulk))
			return 0
		}
		L.Push(ReplyToLua(L, rep))
		return 1
	}))

	redisTable.RawSetString("pcall", L.NewFunction(func(L *lua.LState) int {
		if err := chargeCrossing(debit); err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		args, err := collectArgs(L)
		if err != nil {
			errTbl := L.NewTable()
			errTbl.RawSetString("err", lua.LString(err.Error()))
			L.Push(errTbl)
			return 1
		}
		rep := host.PCall(args)
		L.Push(ReplyToLua(L, rep))
		return 1
	}))

	redisTable.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		if err := chargeCrossing(debit); err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		level := L.CheckInt(1)
		msg := L.CheckString(2)
		host.Log(level, []byte(msg))
		return 0
	}))

	redisTable.RawSetString("sha1hex", L.NewFunction(func(L *lua.LState) int {
		if err := chargeCrossing(debit); err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		s := L.CheckString(1)
		L.Push(lua.LString(sha1id.Of(s)))
		return 1
	}))

	redisTable.RawSetString("status_reply", L.NewFunction(func(L *lua.LState) int {
		s := L.CheckString(1)
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(s))
		L.Push(t)
		return 1
	}))

	redisTable.RawSetString("error_reply", L.NewFunction(func(L *lua.LState) int {
		s := L.CheckString(1)
		t := L.NewTable()
		t.RawSetString("err", lua.LString(s))
		L.Push(t)
		return 1
	}))

	redisTable.RawSetString("setresp", L.NewFunction(func(L *lua.LState) int {
		prev := currentResp
		v := L.CheckInt(1)
		if v != 2 && v != 3 {
			L.RaiseError("RESP version must be 2 or 3")
			return 0
		}
		currentResp = v
		L.Push(lua.LNumber(prev))
		return 1
	}))

	redisTable.RawSetString("LOG_DEBUG", lua.LNumber(LogDebug))
	redisTable.RawSetString("LOG_VERBOSE", lua.LNumber(LogVerbose))
	redisTable.RawSetString("LOG_NOTICE", lua.LNumber(LogNotice))
	redisTable.RawSetString("LOG_WARNING", lua.LNumber(LogWarning))

	L.SetGlobal("redis", redisTable)
}

// currentResp is process-local RESP-mode bookkeeping per spec.md's
// "redis.setresp records but does not act on the chosen RESP version"
// note. Deliberately not engine state: no other component depends on it.
var currentResp = 2

func chargeCrossing(debit FuelDebiter) error {
	if debit == nil {
		return nil
	}
	return debit(crossingCost)
}

// collectArgs serializes the varargs of a call/pcall invocation into an
// ArgArray, coercing numbers/booleans to their decimal/"1"|"0" string
// forms per spec.md §4.3, and rejecting unsupported argument types.
func collectArgs(L *lua.LState) ([][]byte, error) {
	n := L.GetTop()
	if n < 1 {
		return nil, fmt.Errorf("ERR Please specify at least one argument for redis.call()")
	}
	args := make([][]byte, n)
	for i := 1; i <= n; i++ {
		v := L.Get(i)
		s, err := luaArgToBytes(v)
		if err != nil {
			return nil, err
		}
		args[i-1] = s
	}
	return args, nil
}

func luaArgToBytes(v lua.LValue) ([]byte, error) {
	switch val := v.(type) {
	case lua.LString:
		return []byte(val), nil
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return []byte(strconv.FormatInt(int64(f), 10)), nil
		}
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	case lua.LBool:
		if val {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	default:
		return nil, fmt.Errorf("ERR invalid argument to redis.call")
	}
}

// ReplyToLua converts a decoded Reply into the matching Lua shape, per
// spec.md §4.3's table.
func ReplyToLua(L *lua.LState, r reply.Reply) lua.LValue {
	switch r.Type {
	case reply.TypeNull:
		return lua.LNil
	case reply.TypeInt:
		return lua.LNumber(r.Int)
	case reply.TypeBulk:
		return lua.LString(string(r.Bulk))
	case reply.TypeStatus:
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(string(r.Bulk)))
		return t
	case reply.TypeError:
		t := L.NewTable()
		t.RawSetString("err", lua.LString(string(r.Bulk)))
		return t
	case reply.TypeArray:
		t := L.NewTable()
		for i, item := range r.Array {
			t.RawSetInt(i+1, ReplyToLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}
