package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := map[string]Reply{
		"null":        Null(),
		"int":         Int(42),
		"negative":    Int(-7),
		"bulk":        BulkString("hello"),
		"empty bulk":  Bulk([]byte{}),
		"nul bulk":    Bulk([]byte{0x00, 0x01, 0x00, 0x02}),
		"status":      Status("OK"),
		"error":       ErrorReply("ERR boom"),
		"empty array": Array(nil),
		"array": Array([]Reply{
			Int(1),
			BulkString("two"),
			Array([]Reply{Status("nested")}),
		}),
	}

	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			encoded := Encode(r)
			assert.Equal(t, len(encoded), Size(r))

			decoded, err := DecodeOne(encoded)
			require.NoError(t, err)
			assert.Equal(t, r.Type, decoded.Type)
			assert.Equal(t, r.Int, decoded.Int)
			assert.Equal(t, r.Bulk, decoded.Bulk)
			assert.Equal(t, len(r.Array), len(decoded.Array))
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	full := Encode(BulkString("hello world"))
	_, _, err := Decode(full[:len(full)-2])
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestDecodeUnknownType(t *testing.T) {
	buf := []byte{0xFF, 0, 0, 0, 0}
	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeOneRejectsTrailingBytes(t *testing.T) {
	buf := append(Encode(Int(1)), 0x00)
	_, err := DecodeOne(buf)
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestArgArrayRoundTrip(t *testing.T) {
	a := ArgArray{
		[]byte("PING"),
		[]byte{0x00, 0x01, 0x02},
		[]byte{},
	}
	encoded := EncodeArgArray(a)
	assert.Equal(t, len(encoded), EncodedArgArraySize(a))

	decoded, err := DecodeArgArray(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(a))
	for i := range a {
		assert.Equal(t, a[i], []byte(decoded[i]))
	}
}

func TestArgArrayDecodeTruncated(t *testing.T) {
	encoded := EncodeArgArray(ArgArray{[]byte("hello")})
	_, err := DecodeArgArray(encoded[:len(encoded)-2])
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestPtrLenPackRoundTrip(t *testing.T) {
	pl := PtrLen{Ptr: 0xDEADBEEF, Len: 0x12345678}
	packed := pl.Pack()
	assert.Equal(t, pl, UnpackPtrLen(packed))
}

func TestSretRoundTrip(t *testing.T) {
	pl := PtrLen{Ptr: 100, Len: 200}
	buf := AppendSret(nil, pl)
	assert.Len(t, buf, SretSize)

	decoded, ok := ReadSret(buf)
	require.True(t, ok)
	assert.Equal(t, pl, decoded)

	_, ok = ReadSret(buf[:4])
	assert.False(t, ok)
}
