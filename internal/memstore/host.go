package memstore

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

// Host adapts a Store to redisbridge.Host, dispatching the string
// command names redis.call/pcall pass through, in the same manner as
// faizanhussain2310-GoRedis's RedisExecutor.ExecuteCommand but
// returning pkg/reply.Reply directly instead of interface{}.
type Host struct {
	store  *Store
	Logger *log.Logger // nil uses the standard logger, per the teacher's plain `log` ambient stack
}

// NewHost builds a Host over store.
func NewHost(store *Store) *Host {
	return &Host{store: store}
}

// Call implements redisbridge.Host.
func (h *Host) Call(args [][]byte) (reply.Reply, error) {
	return h.execute(args)
}

// PCall implements redisbridge.Host: any error is folded into an Error
// reply instead of propagating.
func (h *Host) PCall(args [][]byte) reply.Reply {
	rep, err := h.execute(args)
	if err != nil {
		return reply.ErrorReply(err.Error())
	}
	return rep
}

// Log implements redisbridge.Host.
func (h *Host) Log(level int, msg []byte) {
	logger := h.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[lua level=%d] %s", level, msg)
}

func (h *Host) execute(args [][]byte) (reply.Reply, error) {
	if len(args) == 0 {
		return reply.Reply{}, fmt.Errorf("ERR Please specify at least one argument for redis.call()")
	}
	cmd := strings.ToUpper(string(args[0]))
	rest := args[1:]

	switch cmd {
	case "GET":
		if len(rest) < 1 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'get' command")
		}
		v, ok := h.store.Get(string(rest[0]))
		if !ok {
			return reply.Null(), nil
		}
		return reply.BulkString(v), nil

	case "SET":
		if len(rest) < 2 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'set' command")
		}
		h.store.Set(string(rest[0]), string(rest[1]))
		return reply.Status("OK"), nil

	case "DEL":
		if len(rest) < 1 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'del' command")
		}
		count := int64(0)
		for _, k := range rest {
			if h.store.Del(string(k)) {
				count++
			}
		}
		return reply.Int(count), nil

	case "EXISTS":
		if len(rest) < 1 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'exists' command")
		}
		count := int64(0)
		for _, k := range rest {
			if h.store.Exists(string(k)) {
				count++
			}
		}
		return reply.Int(count), nil

	case "INCR":
		if len(rest) < 1 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'incr' command")
		}
		v, err := h.store.IncrBy(string(rest[0]), 1)
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.Int(v), nil

	case "DECR":
		if len(rest) < 1 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'decr' command")
		}
		v, err := h.store.IncrBy(string(rest[0]), -1)
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.Int(v), nil

	case "INCRBY":
		if len(rest) < 2 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'incrby' command")
		}
		delta, err := strconv.ParseInt(string(rest[1]), 10, 64)
		if err != nil {
			return reply.Reply{}, fmt.Errorf("ERR value is not an integer or out of range")
		}
		v, err := h.store.IncrBy(string(rest[0]), delta)
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.Int(v), nil

	case "DECRBY":
		if len(rest) < 2 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'decrby' command")
		}
		delta, err := strconv.ParseInt(string(rest[1]), 10, 64)
		if err != nil {
			return reply.Reply{}, fmt.Errorf("ERR value is not an integer or out of range")
		}
		v, err := h.store.IncrBy(string(rest[0]), -delta)
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.Int(v), nil

	case "APPEND":
		if len(rest) < 2 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'append' command")
		}
		n := h.store.Append(string(rest[0]), string(rest[1]))
		return reply.Int(int64(n)), nil

	case "STRLEN":
		if len(rest) < 1 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'strlen' command")
		}
		return reply.Int(int64(h.store.StrLen(string(rest[0])))), nil

	case "EXPIRE":
		if len(rest) < 2 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'expire' command")
		}
		seconds, err := strconv.ParseInt(string(rest[1]), 10, 64)
		if err != nil {
			return reply.Reply{}, fmt.Errorf("ERR value is not an integer or out of range")
		}
		if h.store.Expire(string(rest[0]), seconds) {
			return reply.Int(1), nil
		}
		return reply.Int(0), nil

	case "TTL":
		if len(rest) < 1 {
			return reply.Reply{}, fmt.Errorf("ERR wrong number of arguments for 'ttl' command")
		}
		return reply.Int(h.store.TTL(string(rest[0]))), nil

	case "KEYS":
		keys := h.store.Keys()
		items := make([]reply.Reply, len(keys))
		for i, k := range keys {
			items[i] = reply.BulkString(k)
		}
		return reply.Array(items), nil

	default:
		return reply.Reply{}, fmt.Errorf("ERR unknown command '%s' called from script", cmd)
	}
}
