// Package abi implements spec.md §4.2/§6's host/guest binary ABI: a
// linear-memory arena addressed by (ptr,len) pairs, and the exported
// functions a WASM guest would provide (Init/Reset/Eval/EvalWithArgs/
// SetLimits/Alloc/Free).
//
// This module is a native Go library rather than a compiled WASM
// guest, so there is no real wasm.Memory to borrow: Arena stands in for
// it, simulating the single linear-memory region and its bump/free-list
// allocator in a plain []byte, while preserving the ABI's ownership
// rules (the host allocates every pointer it hands the guest, and frees
// every pointer the guest hands back).
package abi

import "errors"

// ErrOutOfMemory is returned by Alloc once the arena's configured cap
// would be exceeded.
var ErrOutOfMemory = errors.New("ERR abi arena exhausted")

// ErrInvalidPointer is returned by Free for a pointer that does not name
// a currently-allocated block, and by Read/Write for a range that runs
// past the end of the arena.
var ErrInvalidPointer = errors.New("ERR invalid abi pointer")

type block struct {
	offset uint32
	length uint32
	free   bool
}

// Arena is a single growable linear-memory region with a bump allocator
// backed by a first-fit free list for reuse after Free.
type Arena struct {
	buf    []byte
	blocks []block // sorted by offset, contiguous from offset 1, no gaps
	max    uint32  // 0 means unbounded
}

// NewArena constructs an arena capped at maxBytes (0 for unbounded),
// mirroring Limits.MaxMemoryBytes.
func NewArena(maxBytes uint32) *Arena {
	return &Arena{max: maxBytes}
}

// Alloc reserves size contiguous bytes and returns their offset. A
// zero-size request is a no-op that returns offset 0 without recording
// a block, matching the ABI's treatment of an empty buffer as a null
// pointer with length 0.
func (a *Arena) Alloc(size uint32) (uint32, error) {
	if size == 0 {
		return 0, nil
	}
	for i, b := range a.blocks {
		if b.free && b.length >= size {
			if b.length > size {
				a.splitBlock(i, size)
			}
			a.blocks[i].free = false
			return a.blocks[i].offset, nil
		}
	}

	if len(a.buf) == 0 {
		// Offset 0 is the null pointer; no block ever starts there.
		a.buf = append(a.buf, 0)
	}
	offset := uint32(len(a.buf))
	if a.max > 0 && uint64(offset)+uint64(size) > uint64(a.max) {
		return 0, ErrOutOfMemory
	}
	a.buf = append(a.buf, make([]byte, size)...)
	a.blocks = append(a.blocks, block{offset: offset, length: size})
	return offset, nil
}

func (a *Arena) splitBlock(i int, size uint32) {
	b := a.blocks[i]
	remainder := block{offset: b.offset + size, length: b.length - size, free: true}
	a.blocks[i].length = size
	tail := append([]block{remainder}, a.blocks[i+1:]...)
	a.blocks = append(a.blocks[:i+1], tail...)
}

// Free marks ptr's block available for reuse. Freeing an unknown
// pointer is an error, matching a WASM host trapping on a guest
// double-free.
func (a *Arena) Free(ptr uint32) error {
	if ptr == 0 {
		return nil
	}
	for i, b := range a.blocks {
		if b.offset == ptr && !b.free {
			a.blocks[i].free = true
			return nil
		}
	}
	return ErrInvalidPointer
}

// Write copies data into the arena starting at ptr. ptr need not be the
// start of an allocated block's accounting entry as long as [ptr,
// ptr+len(data)) lies within the backing buffer.
func (a *Arena) Write(ptr uint32, data []byte) error {
	end := uint64(ptr) + uint64(len(data))
	if end > uint64(len(a.buf)) {
		return ErrInvalidPointer
	}
	copy(a.buf[ptr:], data)
	return nil
}

// Read returns a copy of the length bytes starting at ptr.
func (a *Arena) Read(ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	end := uint64(ptr) + uint64(length)
	if end > uint64(len(a.buf)) {
		return nil, ErrInvalidPointer
	}
	out := make([]byte, length)
	copy(out, a.buf[ptr:end])
	return out, nil
}
