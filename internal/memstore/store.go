// Package memstore is a minimal in-process key/value store used by
// cmd/luasandboxctl as a concrete redisbridge.Host — a stand-in for a
// real Redis instance, just enough to exercise redis.call/pcall end to
// end.
//
// Trimmed down from faizanhussain2310-GoRedis's internal/storage.Store
// and internal/lua/redis_executor.go: this module only needs a host
// that can answer a handful of commands, not a full data engine with
// lists/sets/zsets/AOF/cluster, so only the string and key-expiry
// subset of that dispatch survives here, adapted to return
// pkg/reply.Reply instead of interface{}.
package memstore

import (
	"strconv"
	"sync"
	"time"
)

// Store is a goroutine-safe string-keyed key/value table with
// per-key expiry, grounded on storage.Store's data/dataWithExpiry maps.
type Store struct {
	mu      sync.Mutex
	data    map[string]string
	expires map[string]time.Time
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		data:    make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (s *Store) expiredLocked(key string) bool {
	at, ok := s.expires[key]
	if !ok {
		return false
	}
	if time.Now().After(at) {
		delete(s.data, key)
		delete(s.expires, key)
		return true
	}
	return false
}

// Get returns a key's value and whether it exists (and hasn't expired).
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked(key) {
		return "", false
	}
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key, clearing any prior expiry.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	delete(s.expires, key)
}

// Del removes key, returning whether it was present.
func (s *Store) Del(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked(key) {
		return false
	}
	_, ok := s.data[key]
	delete(s.data, key)
	delete(s.expires, key)
	return ok
}

// Exists reports whether key is present and unexpired.
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked(key) {
		return false
	}
	_, ok := s.data[key]
	return ok
}

// IncrBy parses the key's current value as a base-10 int64, adds
// delta, and stores the result as a decimal string, creating the key
// at delta if absent. Mirrors RedisExecutor.increment.
func (s *Store) IncrBy(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiredLocked(key)

	var current int64
	if v, ok := s.data[key]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errNotAnInteger
		}
		current = parsed
	}
	next := current + delta
	s.data[key] = strconv.FormatInt(next, 10)
	return next, nil
}

// Append concatenates value onto key's current string (empty if
// absent) and returns the new length.
func (s *Store) Append(key, value string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiredLocked(key)
	next := s.data[key] + value
	s.data[key] = next
	return len(next)
}

// StrLen returns the byte length of key's value, 0 if absent.
func (s *Store) StrLen(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked(key) {
		return 0
	}
	return len(s.data[key])
}

// Expire sets key's TTL to seconds from now, returning false if key is
// absent.
func (s *Store) Expire(key string, seconds int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked(key) {
		return false
	}
	if _, ok := s.data[key]; !ok {
		return false
	}
	s.expires[key] = time.Now().Add(time.Duration(seconds) * time.Second)
	return true
}

// TTL returns the remaining seconds on key, -1 if it has no expiry, or
// -2 if it does not exist — Redis's TTL return convention.
func (s *Store) TTL(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked(key) {
		return -2
	}
	if _, ok := s.data[key]; !ok {
		return -2
	}
	at, ok := s.expires[key]
	if !ok {
		return -1
	}
	remaining := time.Until(at)
	if remaining < 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// Keys returns every unexpired key, in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		if s.expiredLocked(k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

var errNotAnInteger = &strconvError{"ERR value is not an integer or out of range"}

type strconvError struct{ msg string }

func (e *strconvError) Error() string { return e.msg }
