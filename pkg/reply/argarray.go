package reply

import "encoding/binary"

// ArgArray is the ordered sequence of opaque byte strings used both for
// the host-to-guest KEYS+ARGV input and for the guest-to-host argument
// vector of redis.call/redis.pcall. Layout: `u32le count || {u32le len ||
// len bytes} x count`.
type ArgArray [][]byte

// EncodeArgArray serializes a per the layout above.
func EncodeArgArray(a ArgArray) []byte {
	size := 4
	for _, elem := range a {
		size += 4 + len(elem)
	}
	buf := make([]byte, 0, size)
	buf = appendU32(buf, uint32(len(a)))
	for _, elem := range a {
		buf = appendU32(buf, uint32(len(elem)))
		buf = append(buf, elem...)
	}
	return buf
}

// DecodeArgArray parses an ArgArray, failing on truncation or a length
// field that would read past the end of buf.
func DecodeArgArray(buf []byte) (ArgArray, error) {
	if len(buf) < 4 {
		return nil, ErrDecodeFailed
	}
	count := binary.LittleEndian.Uint32(buf[:4])
	rest := buf[4:]

	out := make(ArgArray, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return nil, ErrDecodeFailed
		}
		ln := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(len(rest)) < uint64(ln) {
			return nil, ErrDecodeFailed
		}
		elem := make([]byte, ln)
		copy(elem, rest[:ln])
		rest = rest[ln:]
		out = append(out, elem)
	}
	return out, nil
}

// EncodedArgArraySize returns the byte length EncodeArgArray(a) would
// produce, without allocating.
func EncodedArgArraySize(a ArgArray) int {
	size := 4
	for _, elem := range a {
		size += 4 + len(elem)
	}
	return size
}
