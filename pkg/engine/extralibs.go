package engine

import (
	"encoding/binary"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// installRedisCompatLibs wires cjson plus the three Redis-scripting
// modules with no gopher-lua ecosystem library behind them anywhere in
// the retrieved corpus: cmsgpack, struct and bit. They are implemented
// directly against gopher-lua's Go API, in the same spirit as the
// teacher's and tile38's bespoke status_reply/error_reply/sha1hex
// functions — there is no dependency to wire them to (see DESIGN.md).
func installRedisCompatLibs(L *lua.LState) {
	installCJSON(L)
	installCMsgpack(L)
	installStruct(L)
	installBit(L)
}

// ---- bit ----------------------------------------------------------------

func installBit(L *lua.LState) {
	mod := L.NewTable()
	reg := func(name string, fn lua.LGFunction) { mod.RawSetString(name, L.NewFunction(fn)) }

	reg("tobit", func(L *lua.LState) int {
		L.Push(lua.LNumber(int32(L.CheckNumber(1))))
		return 1
	})
	reg("band", func(L *lua.LState) int { return bitFold(L, func(a, b int32) int32 { return a & b }) })
	reg("bor", func(L *lua.LState) int { return bitFold(L, func(a, b int32) int32 { return a | b }) })
	reg("bxor", func(L *lua.LState) int { return bitFold(L, func(a, b int32) int32 { return a ^ b }) })
	reg("bnot", func(L *lua.LState) int {
		v := int32(L.CheckNumber(1))
		L.Push(lua.LNumber(^v))
		return 1
	})
	reg("lshift", func(L *lua.LState) int {
		v := uint32(int32(L.CheckNumber(1)))
		n := uint(L.CheckNumber(2)) & 31
		L.Push(lua.LNumber(int32(v << n)))
		return 1
	})
	reg("rshift", func(L *lua.LState) int {
		v := uint32(int32(L.CheckNumber(1)))
		n := uint(L.CheckNumber(2)) & 31
		L.Push(lua.LNumber(int32(v >> n)))
		return 1
	})
	reg("arshift", func(L *lua.LState) int {
		v := int32(L.CheckNumber(1))
		n := uint(L.CheckNumber(2)) & 31
		L.Push(lua.LNumber(v >> n))
		return 1
	})
	reg("tohex", func(L *lua.LState) int {
		v := uint32(int32(L.CheckNumber(1)))
		L.Push(lua.LString(fmt.Sprintf("%08x", v)))
		return 1
	})

	L.SetGlobal("bit", mod)
}

func bitFold(L *lua.LState, op func(a, b int32) int32) int {
	n := L.GetTop()
	acc := int32(L.CheckNumber(1))
	for i := 2; i <= n; i++ {
		acc = op(acc, int32(L.CheckNumber(i)))
	}
	L.Push(lua.LNumber(acc))
	return 1
}

// ---- cmsgpack -------------------------------------------------------------
// A compact MessagePack encoder/decoder covering the subset Redis
// scripts exercise: nil, bool, integers, floats, strings and
// arrays/maps (a table with #t > 0 is packed as an array of t[1..#t],
// dropping any other keys; any other table as a map).

func installCMsgpack(L *lua.LState) {
	mod := L.NewTable()
	mod.RawSetString("pack", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		var buf []byte
		for i := 1; i <= n; i++ {
			buf = msgpackEncode(buf, L.Get(i))
		}
		L.Push(lua.LString(string(buf)))
		return 1
	}))
	mod.RawSetString("unpack", L.NewFunction(func(L *lua.LState) int {
		data := []byte(L.CheckString(1))
		var results []lua.LValue
		for len(data) > 0 {
			v, rest, err := msgpackDecode(L, data)
			if err != nil {
				L.RaiseError("ERR %s", err.Error())
				return 0
			}
			results = append(results, v)
			data = rest
		}
		for _, v := range results {
			L.Push(v)
		}
		return len(results)
	}))
	L.SetGlobal("cmsgpack", mod)
}

// msgpackEncode follows the real MessagePack wire format (not just an
// ad hoc TLV scheme) so that e.g. cmsgpack.pack({1,2,3}) produces the
// canonical fixarray-of-fixints bytes scripts and tests expect.
func msgpackEncode(buf []byte, v lua.LValue) []byte {
	switch val := v.(type) {
	case *lua.LNilType:
		return append(buf, 0xc0)
	case lua.LBool:
		if val {
			return append(buf, 0xc3)
		}
		return append(buf, 0xc2)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return msgpackEncodeInt(buf, int64(f))
		}
		var b [9]byte
		b[0] = 0xcb
		binary.BigEndian.PutUint64(b[1:], math.Float64bits(f))
		return append(buf, b[:]...)
	case lua.LString:
		return msgpackEncodeStr(buf, string(val))
	case *lua.LTable:
		n := val.Len()
		if n > 0 {
			buf = msgpackEncodeArrayHeader(buf, n)
			for i := 1; i <= n; i++ {
				buf = msgpackEncode(buf, val.RawGetInt(i))
			}
			return buf
		}
		var pairs []lua.LValue
		val.ForEach(func(k, v lua.LValue) {
			pairs = append(pairs, k, v)
		})
		buf = msgpackEncodeMapHeader(buf, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			buf = msgpackEncode(buf, pairs[i])
			buf = msgpackEncode(buf, pairs[i+1])
		}
		return buf
	default:
		return append(buf, 0xc0)
	}
}

func msgpackEncodeInt(buf []byte, v int64) []byte {
	switch {
	case v >= 0 && v <= 0x7f:
		return append(buf, byte(v))
	case v < 0 && v >= -32:
		return append(buf, byte(0xe0|(v+32)))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return append(buf, 0xd0, byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(int16(v)))
		return append(append(buf, 0xd1), b[:]...)
	case v >= math.MinInt32 && v <= math.MaxInt32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int32(v)))
		return append(append(buf, 0xd2), b[:]...)
	default:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v))
		return append(append(buf, 0xd3), b[:]...)
	}
}

func msgpackEncodeStr(buf []byte, s string) []byte {
	n := len(s)
	switch {
	case n <= 31:
		buf = append(buf, 0xa0|byte(n))
	case n <= 0xff:
		buf = append(buf, 0xd9, byte(n))
	case n <= 0xffff:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		buf = append(append(buf, 0xda), b[:]...)
	default:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		buf = append(append(buf, 0xdb), b[:]...)
	}
	return append(buf, s...)
}

func msgpackEncodeArrayHeader(buf []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(buf, 0x90|byte(n))
	case n <= 0xffff:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		return append(append(buf, 0xdc), b[:]...)
	default:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return append(append(buf, 0xdd), b[:]...)
	}
}

func msgpackEncodeMapHeader(buf []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(buf, 0x80|byte(n))
	case n <= 0xffff:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		return append(append(buf, 0xde), b[:]...)
	default:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return append(append(buf, 0xdf), b[:]...)
	}
}

func msgpackDecode(L *lua.LState, data []byte) (lua.LValue, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("unexpected end of cmsgpack data")
	}
	tag := data[0]
	rest := data[1:]

	switch {
	case tag <= 0x7f:
		return lua.LNumber(int8(tag)), rest, nil
	case tag >= 0xe0:
		return lua.LNumber(int8(tag)), rest, nil
	case tag>>5 == 0b101: // fixstr 0xa0-0xbf
		n := int(tag & 0x1f)
		return msgpackDecodeStr(rest, n)
	case tag>>4 == 0x9: // fixarray 0x90-0x9f
		return msgpackDecodeArray(L, rest, int(tag&0x0f))
	case tag>>4 == 0x8: // fixmap 0x80-0x8f
		return msgpackDecodeMap(L, rest, int(tag&0x0f))
	}

	switch tag {
	case 0xc0:
		return lua.LNil, rest, nil
	case 0xc2:
		return lua.LFalse, rest, nil
	case 0xc3:
		return lua.LTrue, rest, nil
	case 0xd0:
		if len(rest) < 1 {
			return nil, nil, fmt.Errorf("truncated cmsgpack int8")
		}
		return lua.LNumber(int8(rest[0])), rest[1:], nil
	case 0xd1:
		if len(rest) < 2 {
			return nil, nil, fmt.Errorf("truncated cmsgpack int16")
		}
		return lua.LNumber(int16(binary.BigEndian.Uint16(rest[:2]))), rest[2:], nil
	case 0xd2:
		if len(rest) < 4 {
			return nil, nil, fmt.Errorf("truncated cmsgpack int32")
		}
		return lua.LNumber(int32(binary.BigEndian.Uint32(rest[:4]))), rest[4:], nil
	case 0xd3:
		if len(rest) < 8 {
			return nil, nil, fmt.Errorf("truncated cmsgpack int64")
		}
		v := int64(binary.BigEndian.Uint64(rest[:8]))
		return lua.LNumber(v), rest[8:], nil
	case 0xcb:
		if len(rest) < 8 {
			return nil, nil, fmt.Errorf("truncated cmsgpack float")
		}
		v := math.Float64frombits(binary.BigEndian.Uint64(rest[:8]))
		return lua.LNumber(v), rest[8:], nil
	case 0xd9:
		if len(rest) < 1 {
			return nil, nil, fmt.Errorf("truncated cmsgpack str8 header")
		}
		return msgpackDecodeStr(rest[1:], int(rest[0]))
	case 0xda:
		if len(rest) < 2 {
			return nil, nil, fmt.Errorf("truncated cmsgpack str16 header")
		}
		n := int(binary.BigEndian.Uint16(rest[:2]))
		return msgpackDecodeStr(rest[2:], n)
	case 0xdb:
		if len(rest) < 4 {
			return nil, nil, fmt.Errorf("truncated cmsgpack str32 header")
		}
		n := int(binary.BigEndian.Uint32(rest[:4]))
		return msgpackDecodeStr(rest[4:], n)
	case 0xdc:
		if len(rest) < 2 {
			return nil, nil, fmt.Errorf("truncated cmsgpack array16 header")
		}
		n := int(binary.BigEndian.Uint16(rest[:2]))
		return msgpackDecodeArray(L, rest[2:], n)
	case 0xdd:
		if len(rest) < 4 {
			return nil, nil, fmt.Errorf("truncated cmsgpack array32 header")
		}
		n := int(binary.BigEndian.Uint32(rest[:4]))
		return msgpackDecodeArray(L, rest[4:], n)
	case 0xde:
		if len(rest) < 2 {
			return nil, nil, fmt.Errorf("truncated cmsgpack map16 header")
		}
		n := int(binary.BigEndian.Uint16(rest[:2]))
		return msgpackDecodeMap(L, rest[2:], n)
	case 0xdf:
		if len(rest) < 4 {
			return nil, nil, fmt.Errorf("truncated cmsgpack map32 header")
		}
		n := int(binary.BigEndian.Uint32(rest[:4]))
		return msgpackDecodeMap(L, rest[4:], n)
	default:
		return nil, nil, fmt.Errorf("unsupported cmsgpack tag 0x%02x", tag)
	}
}

func msgpackDecodeStr(rest []byte, n int) (lua.LValue, []byte, error) {
	if uint64(len(rest)) < uint64(n) {
		return nil, nil, fmt.Errorf("truncated cmsgpack string")
	}
	return lua.LString(string(rest[:n])), rest[n:], nil
}

func msgpackDecodeArray(L *lua.LState, rest []byte, count int) (lua.LValue, []byte, error) {
	tbl := L.NewTable()
	for i := 0; i < count; i++ {
		var v lua.LValue
		var err error
		v, rest, err = msgpackDecode(L, rest)
		if err != nil {
			return nil, nil, err
		}
		tbl.RawSetInt(i+1, v)
	}
	return tbl, rest, nil
}

func msgpackDecodeMap(L *lua.LState, rest []byte, count int) (lua.LValue, []byte, error) {
	tbl := L.NewTable()
	for i := 0; i < count; i++ {
		var k, v lua.LValue
		var err error
		k, rest, err = msgpackDecode(L, rest)
		if err != nil {
			return nil, nil, err
		}
		v, rest, err = msgpackDecode(L, rest)
		if err != nil {
			return nil, nil, err
		}
		tbl.RawSet(k, v)
	}
	return tbl, rest, nil
}

// ---- struct ---------------------------------------------------------------
// A subset of the classic Lua struct library: supports '<'/'>' byte
// order markers and B/b (u8/i8), H/h (u16/i16), I/i/L/l (u32/i32), d
// (float64) format characters, enough for the fixed-width binary
// records Redis scripts typically pack.

func installStruct(L *lua.LState) {
	mod := L.NewTable()
	mod.RawSetString("pack", L.NewFunction(structPack))
	mod.RawSetString("unpack", L.NewFunction(structUnpack))
	L.SetGlobal("struct", mod)
}

func structByteOrder(format string) (binary.ByteOrder, string) {
	if len(format) > 0 && (format[0] == '<' || format[0] == '>' || format[0] == '=') {
		if format[0] == '>' {
			return binary.BigEndian, format[1:]
		}
		return binary.LittleEndian, format[1:]
	}
	return binary.LittleEndian, format
}

func structPack(L *lua.LState) int {
	format := L.CheckString(1)
	order, format := structByteOrder(format)
	argIdx := 2
	var buf []byte
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case 'b', 'B':
			buf = append(buf, byte(int8(L.CheckNumber(argIdx))))
			argIdx++
		case 'h', 'H':
			var b [2]byte
			order.PutUint16(b[:], uint16(int16(L.CheckNumber(argIdx))))
			buf = append(buf, b[:]...)
			argIdx++
		case 'i', 'I', 'l', 'L':
			var b [4]byte
			order.PutUint32(b[:], uint32(int32(L.CheckNumber(argIdx))))
			buf = append(buf, b[:]...)
			argIdx++
		case 'd':
			var b [8]byte
			order.PutUint64(b[:], math.Float64bits(float64(L.CheckNumber(argIdx))))
			buf = append(buf, b[:]...)
			argIdx++
		default:
			L.RaiseError("ERR unsupported struct format character %q", string(format[i]))
			return 0
		}
	}
	L.Push(lua.LString(string(buf)))
	return 1
}

func structUnpack(L *lua.LState) int {
	format := L.CheckString(1)
	data := []byte(L.CheckString(2))
	order, format := structByteOrder(format)
	pos := 0
	nret := 0
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case 'b':
			if pos+1 > len(data) {
				L.RaiseError("ERR data too short for struct.unpack")
				return 0
			}
			L.Push(lua.LNumber(int8(data[pos])))
			pos++
		case 'B':
			if pos+1 > len(data) {
				L.RaiseError("ERR data too short for struct.unpack")
				return 0
			}
			L.Push(lua.LNumber(data[pos]))
			pos++
		case 'h':
			if pos+2 > len(data) {
				L.RaiseError("ERR data too short for struct.unpack")
				return 0
			}
			L.Push(lua.LNumber(int16(order.Uint16(data[pos : pos+2]))))
			pos += 2
		case 'H':
			if pos+2 > len(data) {
				L.RaiseError("ERR data too short for struct.unpack")
				return 0
			}
			L.Push(lua.LNumber(order.Uint16(data[pos : pos+2])))
			pos += 2
		case 'i', 'l':
			if pos+4 > len(data) {
				L.RaiseError("ERR data too short for struct.unpack")
				return 0
			}
			L.Push(lua.LNumber(int32(order.Uint32(data[pos : pos+4]))))
			pos += 4
		case 'I', 'L':
			if pos+4 > len(data) {
				L.RaiseError("ERR data too short for struct.unpack")
				return 0
			}
			L.Push(lua.LNumber(order.Uint32(data[pos : pos+4])))
			pos += 4
		case 'd':
			if pos+8 > len(data) {
				L.RaiseError("ERR data too short for struct.unpack")
				return 0
			}
			L.Push(lua.LNumber(math.Float64frombits(order.Uint64(data[pos : pos+8]))))
			pos += 8
		default:
			L.RaiseError("ERR unsupported struct format character %q", string(format[i]))
			return 0
		}
		nret++
	}
	L.Push(lua.LNumber(pos + 1))
	return nret + 1
}
