package abi

import (
	"github.com/lua-redis-sandbox/luasandbox/pkg/engine"
	"github.com/lua-redis-sandbox/luasandbox/pkg/redisbridge"
	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

// Module is the exported-function surface of spec.md §6: Init, Reset,
// Eval, EvalWithArgs, SetLimits, Alloc and Free, operating on arguments
// and results addressed through Arena rather than function-call values
// directly, the way a WASM host/guest boundary would.
type Module struct {
	arena  *Arena
	engine *engine.Engine
}

// NewModule builds a Module with its own arena and Engine bound to
// host. maxMemoryBytes caps the arena (0 for unbounded).
func NewModule(host redisbridge.Host, maxMemoryBytes uint32) *Module {
	return &Module{
		arena:  NewArena(maxMemoryBytes),
		engine: engine.New(host),
	}
}

// Init matches spec.md §6's `init() -> i32`.
func (m *Module) Init() error {
	return m.engine.Init()
}

// Reset matches spec.md §6's `reset() -> i32`.
func (m *Module) Reset() error {
	return m.engine.Reset()
}

// Close releases the underlying VM.
func (m *Module) Close() {
	m.engine.Close()
}

// SetLimits matches spec.md §6's `set_limits(max_fuel, max_reply_bytes,
// max_arg_bytes)`.
func (m *Module) SetLimits(maxFuel, maxReplyBytes, maxArgBytes int64) {
	m.engine.SetLimits(engine.Limits{
		MaxFuel:       maxFuel,
		MaxReplyBytes: maxReplyBytes,
		MaxArgBytes:   maxArgBytes,
	})
}

// Alloc matches spec.md §6's `alloc(size) -> ptr`: the host calls this
// before writing a script or ArgArray into the arena.
func (m *Module) Alloc(size uint32) (uint32, error) {
	return m.arena.Alloc(size)
}

// Free matches spec.md §6's `free(ptr, size)`. size is accepted for
// ABI-table fidelity but unused: Arena tracks each block's length
// internally from the matching Alloc.
func (m *Module) Free(ptr, size uint32) error {
	_ = size
	return m.arena.Free(ptr)
}

// WriteBytes copies data into a freshly allocated arena block and
// returns its (ptr,len), a convenience for in-process callers (such as
// the tests) that would otherwise have to Alloc then Write.
func (m *Module) WriteBytes(data []byte) (uint32, uint32, error) {
	ptr, err := m.arena.Alloc(uint32(len(data)))
	if err != nil {
		return 0, 0, err
	}
	if err := m.arena.Write(ptr, data); err != nil {
		return 0, 0, err
	}
	return ptr, uint32(len(data)), nil
}

// ReadBytes reads length bytes back out of the arena, the counterpart
// to WriteBytes.
func (m *Module) ReadBytes(ptr, length uint32) ([]byte, error) {
	return m.arena.Read(ptr, length)
}

// Eval matches spec.md §6's `eval(script_ptr, script_len) -> PtrLen`
// using the packed 64-bit convention: it reads the script out of the
// arena, evaluates it, writes the encoded Reply into a new arena block
// and returns that block's packed PtrLen.
func (m *Module) Eval(scriptPtr, scriptLen uint32) (uint64, error) {
	script, err := m.arena.Read(scriptPtr, scriptLen)
	if err != nil {
		return 0, err
	}
	rep := m.engine.Eval(script)
	return m.storeReply(rep)
}

// EvalWithArgs matches spec.md §6's
// `eval_with_args(script_ptr, script_len, args_ptr, args_len, keys_count) -> PtrLen`.
func (m *Module) EvalWithArgs(scriptPtr, scriptLen, argsPtr, argsLen, keysCount uint32) (uint64, error) {
	script, err := m.arena.Read(scriptPtr, scriptLen)
	if err != nil {
		return 0, err
	}
	args, err := m.arena.Read(argsPtr, argsLen)
	if err != nil {
		return 0, err
	}
	rep := m.engine.EvalWithArgs(script, args, int(keysCount))
	return m.storeReply(rep)
}

// EvalSret is the sret-convention twin of Eval for hosts that prefer an
// 8-byte out-pointer record over a packed uint64 (spec.md §4.2).
func (m *Module) EvalSret(scriptPtr, scriptLen, outPtr uint32) error {
	packed, err := m.Eval(scriptPtr, scriptLen)
	if err != nil {
		return err
	}
	return m.writeSret(outPtr, packed)
}

// EvalWithArgsSret is the sret-convention twin of EvalWithArgs.
func (m *Module) EvalWithArgsSret(scriptPtr, scriptLen, argsPtr, argsLen, keysCount, outPtr uint32) error {
	packed, err := m.EvalWithArgs(scriptPtr, scriptLen, argsPtr, argsLen, keysCount)
	if err != nil {
		return err
	}
	return m.writeSret(outPtr, packed)
}

func (m *Module) writeSret(outPtr uint32, packed uint64) error {
	pl := reply.UnpackPtrLen(packed)
	buf := reply.AppendSret(make([]byte, 0, reply.SretSize), pl)
	return m.arena.Write(outPtr, buf)
}

func (m *Module) storeReply(rep reply.Reply) (uint64, error) {
	encoded := reply.Encode(rep)
	ptr, err := m.arena.Alloc(uint32(len(encoded)))
	if err != nil {
		return 0, err
	}
	if err := m.arena.Write(ptr, encoded); err != nil {
		return 0, err
	}
	return reply.PtrLen{Ptr: ptr, Len: uint32(len(encoded))}.Pack(), nil
}
