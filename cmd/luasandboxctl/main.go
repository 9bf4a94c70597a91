// Command luasandboxctl is a demo host adapter: it reads a Lua script
// from disk, wires it against an in-process memstore.Host, and prints
// the decoded Reply. It plays the role spec.md §6 calls the "host
// adapter" — the only piece outside the sandboxed core allowed to talk
// to a real data store.
//
// Grounded on faizanhussain2310-GoRedis's cmd/server/main.go for the
// flag-based, plain-log ambient style.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lua-redis-sandbox/luasandbox/internal/memstore"
	"github.com/lua-redis-sandbox/luasandbox/pkg/engine"
	"github.com/lua-redis-sandbox/luasandbox/pkg/reply"
)

func main() {
	scriptPath := flag.String("script", "", "path to a Lua script to evaluate")
	keysFlag := flag.String("keys", "", "comma-separated KEYS values")
	argvFlag := flag.String("argv", "", "comma-separated ARGV values")
	maxFuel := flag.Int64("max-fuel", 1_000_000, "fuel budget, 0 disables enforcement")
	maxReplyBytes := flag.Int64("max-reply-bytes", 512*1024, "max encoded reply size, 0 disables enforcement")
	maxArgBytes := flag.Int64("max-arg-bytes", 64*1024, "max encoded KEYS/ARGV size, 0 disables enforcement")
	flag.Parse()

	if *scriptPath == "" {
		log.Fatal("missing required -script flag")
	}
	script, err := os.ReadFile(*scriptPath)
	if err != nil {
		log.Fatalf("reading script: %v", err)
	}

	store := memstore.New()
	host := memstore.NewHost(store)
	eng := engine.New(host)
	if err := eng.Init(); err != nil {
		log.Fatalf("engine init: %v", err)
	}
	eng.SetLimits(engine.Limits{
		MaxFuel:       *maxFuel,
		MaxReplyBytes: *maxReplyBytes,
		MaxArgBytes:   *maxArgBytes,
	})

	keys := splitNonEmpty(*keysFlag)
	argv := splitNonEmpty(*argvFlag)

	var rep reply.Reply
	if len(keys) == 0 && len(argv) == 0 {
		rep = eng.Eval(script)
	} else {
		argBytes := make([][]byte, 0, len(keys)+len(argv))
		for _, k := range keys {
			argBytes = append(argBytes, []byte(k))
		}
		for _, a := range argv {
			argBytes = append(argBytes, []byte(a))
		}
		encoded := reply.EncodeArgArray(argBytes)
		rep = eng.EvalWithArgs(script, encoded, len(keys))
	}

	fmt.Println(formatReply(rep))
	if rep.IsError() {
		os.Exit(1)
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func formatReply(r reply.Reply) string {
	switch r.Type {
	case reply.TypeNull:
		return "(nil)"
	case reply.TypeInt:
		return "(integer) " + strconv.FormatInt(r.Int, 10)
	case reply.TypeBulk:
		return strconv.Quote(string(r.Bulk))
	case reply.TypeStatus:
		return "+" + string(r.Bulk)
	case reply.TypeError:
		return "(error) " + string(r.Bulk)
	case reply.TypeArray:
		parts := make([]string, len(r.Array))
		for i, item := range r.Array {
			parts[i] = fmt.Sprintf("%d) %s", i+1, formatReply(item))
		}
		return strings.Join(parts, "\n")
	default:
		return "(unknown reply)"
	}
}
