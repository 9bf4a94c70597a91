// Package reply implements the wire codec described in the design's
// Wire Codec component: the Reply sum type and its byte-exact layout.
// This package owns byte-level encoding only — no memory ownership, no I/O.
package reply

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Type tags the reply kinds. Values are fixed on the wire; never reorder.
type Type uint8

const (
	TypeNull   Type = 0x00
	TypeInt    Type = 0x01
	TypeBulk   Type = 0x02
	TypeArray  Type = 0x03
	TypeStatus Type = 0x04
	TypeError  Type = 0x05
)

// ErrDecodeFailed and ErrUnknownType are the two decoder failure modes
// spec'd for the codec.
var (
	ErrDecodeFailed = errors.New("ERR reply decoding failed")
	ErrUnknownType  = errors.New("ERR unknown reply type")
)

// Reply is the universal value crossing the host/guest boundary. Exactly
// one of the fields is meaningful, selected by Type.
type Reply struct {
	Type   Type
	Int    int64
	Bulk   []byte // used for Bulk, Status, Error payloads
	Array  []Reply
}

func Null() Reply                { return Reply{Type: TypeNull} }
func Int(v int64) Reply          { return Reply{Type: TypeInt, Int: v} }
func Bulk(b []byte) Reply        { return Reply{Type: TypeBulk, Bulk: b} }
func BulkString(s string) Reply  { return Reply{Type: TypeBulk, Bulk: []byte(s)} }
func Array(items []Reply) Reply  { return Reply{Type: TypeArray, Array: items} }
func Status(s string) Reply      { return Reply{Type: TypeStatus, Bulk: []byte(s)} }
func ErrorReply(s string) Reply  { return Reply{Type: TypeError, Bulk: []byte(s)} }

// IsError reports whether r is an Error reply.
func (r Reply) IsError() bool { return r.Type == TypeError }

// Encode serializes r as `u8 type || u32le count_or_len || payload`,
// recursively for Array, one call per nesting level. Neither Encode nor
// its callers in this module limit the nesting depth.
func Encode(r Reply) []byte {
	buf := make([]byte, 0, 16)
	return appendReply(buf, r)
}

func appendReply(buf []byte, r Reply) []byte {
	buf = append(buf, byte(r.Type))
	switch r.Type {
	case TypeNull:
		buf = appendU32(buf, 0)
	case TypeInt:
		buf = appendU32(buf, 8)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(r.Int))
		buf = append(buf, b[:]...)
	case TypeBulk, TypeStatus, TypeError:
		buf = appendU32(buf, uint32(len(r.Bulk)))
		buf = append(buf, r.Bulk...)
	case TypeArray:
		buf = appendU32(buf, uint32(len(r.Array)))
		for _, item := range r.Array {
			buf = appendReply(buf, item)
		}
	default:
		// Unreachable for values produced inside this module.
		buf = appendU32(buf, 0)
	}
	return buf
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// Decode parses a single Reply from buf, returning the reply and the
// number of bytes consumed, or an error on truncation/unknown tag.
func Decode(buf []byte) (Reply, int, error) {
	if len(buf) < 5 {
		return Reply{}, 0, ErrDecodeFailed
	}
	t := Type(buf[0])
	n := binary.LittleEndian.Uint32(buf[1:5])
	rest := buf[5:]

	switch t {
	case TypeNull:
		return Reply{Type: TypeNull}, 5, nil
	case TypeInt:
		if n != 8 || len(rest) < 8 {
			return Reply{}, 0, ErrDecodeFailed
		}
		v := int64(binary.LittleEndian.Uint64(rest[:8]))
		return Reply{Type: TypeInt, Int: v}, 5 + 8, nil
	case TypeBulk, TypeStatus, TypeError:
		ln := int(n)
		if ln < 0 || len(rest) < ln {
			return Reply{}, 0, ErrDecodeFailed
		}
		payload := make([]byte, ln)
		copy(payload, rest[:ln])
		return Reply{Type: t, Bulk: payload}, 5 + ln, nil
	case TypeArray:
		count := int(n)
		items := make([]Reply, 0, count)
		consumed := 5
		remaining := rest
		for i := 0; i < count; i++ {
			item, used, err := Decode(remaining)
			if err != nil {
				return Reply{}, 0, err
			}
			items = append(items, item)
			consumed += used
			remaining = remaining[used:]
		}
		return Reply{Type: TypeArray, Array: items}, consumed, nil
	default:
		return Reply{}, 0, ErrUnknownType
	}
}

// DecodeOne decodes exactly one Reply and errors if trailing bytes remain.
func DecodeOne(buf []byte) (Reply, error) {
	r, used, err := Decode(buf)
	if err != nil {
		return Reply{}, err
	}
	if used != len(buf) {
		return Reply{}, fmt.Errorf("%w: trailing bytes", ErrDecodeFailed)
	}
	return r, nil
}

// Size returns the encoded byte length of r without allocating the buffer,
// used to enforce MaxReplyBytes before a full Encode.
func Size(r Reply) int {
	switch r.Type {
	case TypeNull:
		return 5
	case TypeInt:
		return 5 + 8
	case TypeBulk, TypeStatus, TypeError:
		return 5 + len(r.Bulk)
	case TypeArray:
		total := 5
		for _, item := range r.Array {
			total += Size(item)
		}
		return total
	default:
		return 5
	}
}
