// Package engine implements the Interpreter Core from spec.md §4.1: a
// single sandboxed gopher-lua VM, its fuel meter and size caps, and the
// eval/eval_with_args entrypoints.
//
// Grounded throughout on faizanhussain2310-GoRedis's
// internal/lua/engine.go (ScriptEngine: Eval/EvalSHA/LoadScript/
// ScriptExists/ScriptFlush, registerRedisAPI, setGlobals) and on
// tile38's cmdEvalUnified (chunkname-based Load, PCall, context
// cancellation).
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/lua-redis-sandbox/luasandbox/internal/sha1id"
	"github.com/lua-redis-sandbox/luasandbox/pkg/redisbridge"
	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

type lifecycle int

const (
	stateUninit lifecycle = iota
	stateReady
)

// Engine owns exactly one Lua VM plus its fuel counter, limits and
// Redis bridge, per spec.md §3's "Engine state". Its entrypoints take a
// mutex, so calls from several goroutines run one at a time; evals never
// overlap. The mutex is not reentrant: a host callback that calls back
// into the same Engine during an eval blocks forever on it.
type Engine struct {
	mu     sync.Mutex
	L      *lua.LState
	host   redisbridge.Host
	limits Limits
	meter  *fuelMeter
	state  lifecycle

	scripts map[string]string // sha1 -> source, for LoadScript/EvalSHA
}

// New constructs an Engine bound to host but does not yet create a VM;
// call Init before the first Eval.
func New(host redisbridge.Host) *Engine {
	return &Engine{
		host:    host,
		limits:  DefaultLimits(),
		meter:   newFuelMeter(0),
		scripts: make(map[string]string),
	}
}

// Init creates the VM, opens the library whitelist and Redis-compat
// modules, installs the redis table, and removes every sandboxed
// global — spec.md §4.1's Uninit -> Ready transition.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initLocked()
}

func (e *Engine) initLocked() error {
	if e.L != nil {
		e.L.Close()
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	installSandbox(L)
	redisbridge.Install(L, e.host, func(cost int64) error { return e.meter.Debit(cost) })
	e.L = L
	e.state = stateReady
	return nil
}

// Reset destroys and recreates the VM atomically, valid only after a
// prior Init. Semantically equivalent to a fresh Init.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateReady {
		return errors.New("ERR engine not initialized")
	}
	return e.initLocked()
}

// Close releases the VM. The Engine must not be used afterward.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
	e.state = stateUninit
}

// SetLimits configures the caps; zero means unenforced. Takes effect on
// subsequent evals.
func (e *Engine) SetLimits(l Limits) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limits = l
}

// Eval runs script with empty KEYS/ARGV.
func (e *Engine) Eval(script []byte) reply.Reply {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evalLocked(string(script), nil, nil)
}

// EvalWithArgs decodes argArrayBytes, splits it at keysCount into
// KEYS/ARGV, and runs script against them.
func (e *Engine) EvalWithArgs(script []byte, argArrayBytes []byte, keysCount int) reply.Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.limits.MaxArgBytes > 0 && int64(len(argArrayBytes)) > e.limits.MaxArgBytes {
		return reply.ErrorReply("ERR KEYS/ARGV exceeds configured limit")
	}
	args, err := reply.DecodeArgArray(argArrayBytes)
	if err != nil {
		return reply.ErrorReply("ERR invalid KEYS/ARGV encoding")
	}
	if keysCount < 0 || keysCount > len(args) {
		return reply.ErrorReply("ERR invalid KEYS/ARGV encoding")
	}
	keys := args[:keysCount]
	argv := args[keysCount:]
	return e.evalLocked(string(script), keys, argv)
}

// LoadScript caches script under its SHA1 identity, for hosts
// implementing SCRIPT LOAD / EVALSHA on top of this core (SPEC_FULL.md
// §5); this state lives outside the single-VM core and never touches
// Lua globals.
func (e *Engine) LoadScript(script []byte) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	sha := sha1id.OfBytes(script)
	e.scripts[sha] = string(script)
	return sha
}

// EvalSHA evaluates a previously-loaded script by its SHA1 identity.
func (e *Engine) EvalSHA(sha string, argArrayBytes []byte, keysCount int) reply.Reply {
	e.mu.Lock()
	script, ok := e.scripts[strings.ToLower(sha)]
	e.mu.Unlock()
	if !ok {
		return reply.ErrorReply("NOSCRIPT No matching script. Please use EVAL.")
	}
	return e.EvalWithArgs([]byte(script), argArrayBytes, keysCount)
}

// ScriptExists reports, for each sha1 in shas, whether it is cached.
func (e *Engine) ScriptExists(shas []string) []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]bool, len(shas))
	for i, sha := range shas {
		_, out[i] = e.scripts[strings.ToLower(sha)]
	}
	return out
}

// FlushScripts clears the script cache.
func (e *Engine) FlushScripts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts = make(map[string]string)
}

func (e *Engine) evalLocked(script string, keys, argv [][]byte) reply.Reply {
	if e.state != stateReady {
		return reply.ErrorReply("ERR engine not initialized")
	}
	L := e.L
	e.meter = newFuelMeter(e.limits.MaxFuel)

	setKeysArgv(L, keys, argv)
	defer clearKeysArgv(L)

	ctx := context.Background()
	if timeout := fuelToTimeout(e.limits.MaxFuel); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	L.SetContext(ctx)
	defer L.RemoveContext()

	fn, loadErr := L.Load(strings.NewReader(script), "@user_script")
	if loadErr != nil {
		L.SetTop(0)
		return reply.ErrorReply(loadErr.Error())
	}

	L.Push(fn)
	if callErr := L.PCall(0, lua.MultRet, nil); callErr != nil {
		L.SetTop(0)
		return e.decorateError(callErr, script)
	}

	var ret lua.LValue
	if L.GetTop() > 0 {
		ret = L.Get(1)
	}
	L.SetTop(0)

	var rep reply.Reply
	if ret == nil {
		rep = reply.Status("OK")
	} else {
		converted, convErr := luaValueToReply(ret)
		if convErr != nil {
			return reply.ErrorReply(convErr.Error())
		}
		rep = converted
	}

	if e.limits.MaxReplyBytes > 0 && int64(reply.Size(rep)) > e.limits.MaxReplyBytes {
		return reply.ErrorReply("ERR reply exceeds configured limit")
	}
	return rep
}

func (e *Engine) decorateError(err error, script string) reply.Reply {
	msg := err.Error()
	if strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, ErrFuelExhausted.Error()) {
		return reply.ErrorReply(ErrFuelExhausted.Error())
	}
	decorated := redisbridge.DecorateUserScriptError(msg, sha1id.Of(script))
	return reply.ErrorReply(decorated)
}

func setKeysArgv(L *lua.LState, keys, argv [][]byte) {
	keysTbl := L.NewTable()
	for i, k := range keys {
		keysTbl.RawSetInt(i+1, lua.LString(string(k)))
	}
	L.SetGlobal("KEYS", keysTbl)

	argvTbl := L.NewTable()
	for i, a := range argv {
		argvTbl.RawSetInt(i+1, lua.LString(string(a)))
	}
	L.SetGlobal("ARGV", argvTbl)
}

func clearKeysArgv(L *lua.LState) {
	L.SetGlobal("KEYS", L.NewTable())
	L.SetGlobal("ARGV", L.NewTable())
}
