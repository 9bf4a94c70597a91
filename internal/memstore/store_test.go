package memstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	s := New()
	s.Set("k", "v")
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestGetMissing(t *testing.T) {
	s := New()
	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestDel(t *testing.T) {
	s := New()
	s.Set("k", "v")
	assert.True(t, s.Del("k"))
	assert.False(t, s.Del("k"))
}

func TestIncrBy(t *testing.T) {
	s := New()
	v, err := s.IncrBy("counter", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = s.IncrBy("counter", 41)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestIncrByOnNonIntegerValue(t *testing.T) {
	s := New()
	s.Set("k", "not-a-number")
	_, err := s.IncrBy("k", 1)
	assert.Error(t, err)
}

func TestAppendAndStrLen(t *testing.T) {
	s := New()
	n := s.Append("k", "hello")
	assert.Equal(t, 5, n)
	n = s.Append("k", " world")
	assert.Equal(t, 11, n)
	assert.Equal(t, 11, s.StrLen("k"))
}

func TestExpireAndTTL(t *testing.T) {
	s := New()
	assert.False(t, s.Expire("missing", 10))

	s.Set("k", "v")
	assert.Equal(t, int64(-1), s.TTL("k"))

	require.True(t, s.Expire("k", 10))
	ttl := s.TTL("k")
	assert.Greater(t, ttl, int64(0))
	assert.LessOrEqual(t, ttl, int64(10))
}

func TestExpiredKeyIsGone(t *testing.T) {
	s := New()
	s.Set("k", "v")
	require.True(t, s.Expire("k", 0))
	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(-2), s.TTL("k"))
}

func TestKeys(t *testing.T) {
	s := New()
	s.Set("a", "1")
	s.Set("b", "2")
	assert.ElementsMatch(t, []string{"a", "b"}, s.Keys())
}
