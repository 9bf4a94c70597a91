package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

func TestHostSetGetRoundTrip(t *testing.T) {
	h := NewHost(New())
	rep, err := h.Call([][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	require.NoError(t, err)
	assert.Equal(t, reply.Status("OK"), rep)

	rep, err = h.Call([][]byte{[]byte("GET"), []byte("k")})
	require.NoError(t, err)
	assert.Equal(t, reply.BulkString("v"), rep)
}

func TestHostGetMissingIsNull(t *testing.T) {
	h := NewHost(New())
	rep, err := h.Call([][]byte{[]byte("GET"), []byte("missing")})
	require.NoError(t, err)
	assert.Equal(t, reply.Null(), rep)
}

func TestHostUnknownCommand(t *testing.T) {
	h := NewHost(New())
	_, err := h.Call([][]byte{[]byte("NOPE")})
	assert.Error(t, err)
}

func TestHostPCallFoldsErrorsIntoReply(t *testing.T) {
	h := NewHost(New())
	rep := h.PCall([][]byte{[]byte("NOPE")})
	assert.Equal(t, reply.TypeError, rep.Type)
}

func TestHostIncrDecr(t *testing.T) {
	h := NewHost(New())
	rep, err := h.Call([][]byte{[]byte("INCR"), []byte("n")})
	require.NoError(t, err)
	assert.Equal(t, reply.Int(1), rep)

	rep, err = h.Call([][]byte{[]byte("INCRBY"), []byte("n"), []byte("9")})
	require.NoError(t, err)
	assert.Equal(t, reply.Int(10), rep)

	rep, err = h.Call([][]byte{[]byte("DECR"), []byte("n")})
	require.NoError(t, err)
	assert.Equal(t, reply.Int(9), rep)
}

func TestHostExistsAndDel(t *testing.T) {
	h := NewHost(New())
	_, err := h.Call([][]byte{[]byte("SET"), []byte("a"), []byte("1")})
	require.NoError(t, err)

	rep, err := h.Call([][]byte{[]byte("EXISTS"), []byte("a"), []byte("b")})
	require.NoError(t, err)
	assert.Equal(t, reply.Int(1), rep)

	rep, err = h.Call([][]byte{[]byte("DEL"), []byte("a"), []byte("b")})
	require.NoError(t, err)
	assert.Equal(t, reply.Int(1), rep)
}

func TestHostLogDoesNotPanic(t *testing.T) {
	h := NewHost(New())
	assert.NotPanics(t, func() { h.Log(0, []byte("hello")) })
}
