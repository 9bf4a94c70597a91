package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaWriteReadRoundTrip(t *testing.T) {
	a := NewArena(0)
	ptr, err := a.Alloc(5)
	require.NoError(t, err)
	require.NoError(t, a.Write(ptr, []byte("hello")))

	got, err := a.Read(ptr, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestArenaZeroSizeAllocIsNoop(t *testing.T) {
	a := NewArena(0)
	ptr, err := a.Alloc(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ptr)
}

func TestArenaFreeThenReuse(t *testing.T) {
	a := NewArena(0)
	ptr1, err := a.Alloc(16)
	require.NoError(t, err)
	require.NoError(t, a.Free(ptr1))

	ptr2, err := a.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, ptr1, ptr2, "first-fit reuse should return the freed block's offset")
}

func TestArenaFreeUnknownPointerErrors(t *testing.T) {
	a := NewArena(0)
	err := a.Free(9999)
	assert.ErrorIs(t, err, ErrInvalidPointer)
}

func TestArenaOutOfMemory(t *testing.T) {
	a := NewArena(8)
	_, err := a.Alloc(4)
	require.NoError(t, err)
	_, err = a.Alloc(8)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestArenaReadPastEndErrors(t *testing.T) {
	a := NewArena(0)
	ptr, err := a.Alloc(4)
	require.NoError(t, err)
	_, err = a.Read(ptr, 8)
	assert.ErrorIs(t, err, ErrInvalidPointer)
}
