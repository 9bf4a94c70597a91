package engine

import (
	"errors"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

// ErrUnsupportedReturnType is the engine-level error for a script whose
// final value is a function, userdata or thread, per spec.md §4.1's
// error-surfacing table.
var ErrUnsupportedReturnType = errors.New("ERR unsupported Lua return type")

// luaValueToReply implements spec.md §4.3's "Lua → Reply encoding at
// script return" table. Table string keys "ok"/"err" take precedence
// over treating the table as a sequence; "ok" takes precedence over
// "err" when both are present.
//
// Grounded on faizanhussain2310-GoRedis's convertLuaToGo and tile38's
// ConvertToRESP, generalized to spec.md's exact precedence rules.
func luaValueToReply(v lua.LValue) (reply.Reply, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return reply.Null(), nil
	case lua.LBool:
		if val {
			return reply.Int(1), nil
		}
		return reply.Null(), nil
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return reply.Int(int64(f)), nil
		}
		return reply.BulkString(strconv.FormatFloat(f, 'f', -1, 64)), nil
	case lua.LString:
		return reply.BulkString(string(val)), nil
	case *lua.LTable:
		return luaTableToReply(val)
	default:
		return reply.Reply{}, ErrUnsupportedReturnType
	}
}

func luaTableToReply(t *lua.LTable) (reply.Reply, error) {
	if ok, isString := asLuaString(t.RawGetString("ok")); isString {
		return reply.Status(ok), nil
	}
	if errVal, isString := asLuaString(t.RawGetString("err")); isString {
		return reply.ErrorReply(errVal), nil
	}

	n := t.Len()
	items := make([]reply.Reply, 0, n)
	for i := 1; i <= n; i++ {
		item, err := luaValueToReply(t.RawGetInt(i))
		if err != nil {
			return reply.Reply{}, err
		}
		items = append(items, item)
	}
	return reply.Array(items), nil
}

func asLuaString(v lua.LValue) (string, bool) {
	s, ok := v.(lua.LString)
	if !ok {
		return "", false
	}
	return string(s), true
}
