package redisbridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

type fakeHost struct {
	callReply reply.Reply
	callErr   error
	logged    []string
}

func (h *fakeHost) Call(args [][]byte) (reply.Reply, error) {
	if h.callErr != nil {
		return reply.Reply{}, h.callErr
	}
	return h.callReply, nil
}

func (h *fakeHost) PCall(args [][]byte) reply.Reply {
	if h.callErr != nil {
		return reply.ErrorReply(h.callErr.Error())
	}
	return h.callReply
}

func (h *fakeHost) Log(level int, msg []byte) {
	h.logged = append(h.logged, string(msg))
}

func newState(t *testing.T, host Host) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	Install(L, host, nil)
	return L
}

func run(t *testing.T, L *lua.LState, src string) error {
	t.Helper()
	fn, err := L.LoadString(src)
	require.NoError(t, err)
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil)
}

func TestCallReturnsDecodedReply(t *testing.T) {
	host := &fakeHost{callReply: reply.Status("PONG")}
	L := newState(t, host)
	require.NoError(t, run(t, L, "result = redis.call('PING')"))
	tbl, ok := L.GetGlobal("result").(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, lua.LString("PONG"), tbl.RawGetString("ok"))
}

func TestCallRaisesOnHostError(t *testing.T) {
	host := &fakeHost{callErr: errors.New("ERR boom")}
	L := newState(t, host)
	err := run(t, L, "redis.call('X')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR boom")
}

func TestPCallReturnsErrTableOnHostError(t *testing.T) {
	host := &fakeHost{callErr: errors.New("ERR boom")}
	L := newState(t, host)
	require.NoError(t, run(t, L, "result = redis.pcall('X')"))
	tbl, ok := L.GetGlobal("result").(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, lua.LString("ERR boom"), tbl.RawGetString("err"))
}

func TestLogForwardsToHost(t *testing.T) {
	host := &fakeHost{}
	L := newState(t, host)
	require.NoError(t, run(t, L, "redis.log(redis.LOG_WARNING, 'hello')"))
	require.Len(t, host.logged, 1)
	assert.Equal(t, "hello", host.logged[0])
}

func TestStatusAndErrorReplyHelpers(t *testing.T) {
	host := &fakeHost{}
	L := newState(t, host)
	require.NoError(t, run(t, L, "s = redis.status_reply('OK'); e = redis.error_reply('nope')"))
	sTbl := L.GetGlobal("s").(*lua.LTable)
	assert.Equal(t, lua.LString("OK"), sTbl.RawGetString("ok"))
	eTbl := L.GetGlobal("e").(*lua.LTable)
	assert.Equal(t, lua.LString("nope"), eTbl.RawGetString("err"))
}

func TestSetrespReturnsPreviousValue(t *testing.T) {
	host := &fakeHost{}
	L := newState(t, host)
	require.NoError(t, run(t, L, "a = redis.setresp(3); b = redis.setresp(2)"))
	assert.Equal(t, lua.LNumber(2), L.GetGlobal("a"))
	assert.Equal(t, lua.LNumber(3), L.GetGlobal("b"))
}

func TestCollectArgsCoercesNumbersAndBooleans(t *testing.T) {
	var captured [][]byte
	host := &recordingHost{fakeHost: fakeHost{callReply: reply.Status("OK")}, capture: &captured}
	L := newState(t, host)
	require.NoError(t, run(t, L, "redis.call('SET', 'k', 1, true, false, 1.5)"))
	require.Len(t, captured, 6)
	assert.Equal(t, [][]byte{
		[]byte("SET"), []byte("k"), []byte("1"), []byte("1"), []byte("0"), []byte("1.5"),
	}, captured)
}

func TestCollectArgsRejectsUnsupportedType(t *testing.T) {
	host := &fakeHost{}
	L := newState(t, host)
	err := run(t, L, "redis.call('X', {})")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR invalid argument to redis.call")
}

// recordingHost wraps fakeHost to capture the ArgArray redis.call
// serializes, for asserting on the number/boolean coercion rules.
type recordingHost struct {
	fakeHost
	capture *[][]byte
}

func (h *recordingHost) Call(args [][]byte) (reply.Reply, error) {
	*h.capture = append(*h.capture, args...)
	return h.fakeHost.Call(args)
}

func TestDecorateUserScriptError(t *testing.T) {
	decorated := DecorateUserScriptError("user_script:3: attempt to call a nil value", "deadbeef")
	assert.Equal(t, "user_script:3: attempt to call a nil value script: deadbeef, on @user_script:3.", decorated)
}

func TestDecorateUserScriptErrorPassesThroughOtherMessages(t *testing.T) {
	msg := "some other error entirely"
	assert.Equal(t, msg, DecorateUserScriptError(msg, "deadbeef"))
}

func TestReplyToLuaArray(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	v := ReplyToLua(L, reply.Array([]reply.Reply{reply.Int(1), reply.BulkString("two")}))
	tbl, ok := v.(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, lua.LNumber(1), tbl.RawGetInt(1))
	assert.Equal(t, lua.LString("two"), tbl.RawGetInt(2))
}
