package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

type nullHost struct{}

func (nullHost) Call(args [][]byte) (reply.Reply, error) { return reply.Null(), nil }
func (nullHost) PCall(args [][]byte) reply.Reply         { return reply.Null() }
func (nullHost) Log(level int, msg []byte)               {}

func newTestModule(t *testing.T) *Module {
	t.Helper()
	m := NewModule(nullHost{}, 0)
	require.NoError(t, m.Init())
	t.Cleanup(m.Close)
	return m
}

func TestModuleEvalPackedConvention(t *testing.T) {
	m := newTestModule(t)
	scriptPtr, scriptLen, err := m.WriteBytes([]byte("return 1+1"))
	require.NoError(t, err)

	packed, err := m.Eval(scriptPtr, scriptLen)
	require.NoError(t, err)

	pl := reply.UnpackPtrLen(packed)
	encoded, err := m.ReadBytes(pl.Ptr, pl.Len)
	require.NoError(t, err)

	rep, _, err := reply.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, reply.Int(2), rep)
}

func TestModuleEvalSretConvention(t *testing.T) {
	m := newTestModule(t)
	scriptPtr, scriptLen, err := m.WriteBytes([]byte("return 'hi'"))
	require.NoError(t, err)

	outPtr, err := m.Alloc(reply.SretSize)
	require.NoError(t, err)
	require.NoError(t, m.EvalSret(scriptPtr, scriptLen, outPtr))

	sretBytes, err := m.ReadBytes(outPtr, reply.SretSize)
	require.NoError(t, err)
	pl, ok := reply.ReadSret(sretBytes)
	require.True(t, ok)

	encoded, err := m.ReadBytes(pl.Ptr, pl.Len)
	require.NoError(t, err)
	rep, _, err := reply.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, reply.BulkString("hi"), rep)
}

func TestModuleEvalWithArgs(t *testing.T) {
	m := newTestModule(t)
	scriptPtr, scriptLen, err := m.WriteBytes([]byte("return ARGV[1]"))
	require.NoError(t, err)

	encodedArgs := reply.EncodeArgArray(reply.ArgArray{[]byte("only-arg")})
	argsPtr, argsLen, err := m.WriteBytes(encodedArgs)
	require.NoError(t, err)

	packed, err := m.EvalWithArgs(scriptPtr, scriptLen, argsPtr, argsLen, 0)
	require.NoError(t, err)
	pl := reply.UnpackPtrLen(packed)
	encoded, err := m.ReadBytes(pl.Ptr, pl.Len)
	require.NoError(t, err)
	rep, _, err := reply.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, reply.BulkString("only-arg"), rep)
}

func TestModuleResetIsIdempotentAfterInit(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Reset())
	require.NoError(t, m.Reset())

	scriptPtr, scriptLen, err := m.WriteBytes([]byte("return 9"))
	require.NoError(t, err)
	packed, err := m.Eval(scriptPtr, scriptLen)
	require.NoError(t, err)

	pl := reply.UnpackPtrLen(packed)
	encoded, err := m.ReadBytes(pl.Ptr, pl.Len)
	require.NoError(t, err)
	rep, _, err := reply.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, reply.Int(9), rep)
}
