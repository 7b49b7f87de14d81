package redis

import (
	"bytes"
	"io"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encode(v *RespValue) []byte {
	b := new(bytes.Buffer)
	enc := NewEncoder(b, 4096)
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
	if err := enc.Flush(); err != nil {
		panic(err)
	}
	return b.Bytes()
}

func decode(s string) (*RespValue, error) {
	return NewDecoder(bytes.NewBufferString(s), 4096).Decode()
}

func TestDecodeSimpleString(t *testing.T) {
	v, err := decode("+OK\r\n")
	assert.NoError(t, err)
	assert.Equal(t, SimpleString, v.Type)
	assert.Equal(t, []byte("OK"), v.Text)
}

func TestDecodeErrorReply(t *testing.T) {
	v, err := decode("-ERR bad arg\r\n")
	assert.NoError(t, err)
	assert.Equal(t, Error, v.Type)

	serr := v.Err()
	assert.Error(t, serr)
	assert.Equal(t, "ERR bad arg", serr.Error())
	assert.IsType(t, &ServerError{}, serr)
}

func TestDecodeInteger(t *testing.T) {
	for _, c := range []struct {
		raw  string
		want int64
	}{
		{":0\r\n", 0},
		{":-1\r\n", -1},
		{":1024\r\n", 1024},
		{":9223372036854775807\r\n", math.MaxInt64},
	} {
		v, err := decode(c.raw)
		assert.NoError(t, err)
		assert.Equal(t, Integer, v.Type)
		assert.Equal(t, c.want, v.Int)
	}
}

func TestDecodeBulkString(t *testing.T) {
	v, err := decode("$5\r\nhello\r\n")
	assert.NoError(t, err)
	assert.Equal(t, BulkString, v.Type)
	assert.Equal(t, []byte("hello"), v.Text)

	// binary safe: the payload may contain CRLF
	v, err = decode("$4\r\na\r\nb\r\n")
	assert.NoError(t, err)
	assert.Equal(t, []byte("a\r\nb"), v.Text)

	// empty is not null
	v, err = decode("$0\r\n\r\n")
	assert.NoError(t, err)
	assert.False(t, v.IsNull())
	assert.Equal(t, 0, len(v.Text))
}

func TestDecodeNullBulkString(t *testing.T) {
	v, err := decode("$-1\r\n")
	assert.NoError(t, err)
	assert.Equal(t, BulkString, v.Type)
	assert.True(t, v.IsNull())
	assert.Nil(t, v.Text)
}

func TestDecodeNullArray(t *testing.T) {
	v, err := decode("*-1\r\n")
	assert.NoError(t, err)
	assert.Equal(t, Array, v.Type)
	assert.True(t, v.IsNull())
	assert.Nil(t, v.Array)
}

func TestDecodeEmptyArray(t *testing.T) {
	v, err := decode("*0\r\n")
	assert.NoError(t, err)
	assert.False(t, v.IsNull())
	assert.Equal(t, 0, len(v.Array))
}

func TestDecodeNestedArray(t *testing.T) {
	v, err := decode("*2\r\n*1\r\n:1\r\n:2\r\n")
	assert.NoError(t, err)
	assert.Equal(t, Array, v.Type)
	assert.Equal(t, 2, len(v.Array))

	inner := v.Array[0]
	assert.Equal(t, Array, inner.Type)
	assert.Equal(t, 1, len(inner.Array))
	assert.Equal(t, int64(1), inner.Array[0].Int)
	assert.Equal(t, int64(2), v.Array[1].Int)
}

func TestDecodeUnexpectedType(t *testing.T) {
	_, err := decode("?foo\r\n")
	assert.Equal(t, ErrUnexpectedType, err)
}

func TestDecodeBareLF(t *testing.T) {
	_, err := decode("+OK\n")
	assert.Equal(t, ErrBadCRLFEnd, err)
}

func TestDecodeMissingLF(t *testing.T) {
	_, err := decode("+OK\rX\n")
	assert.Equal(t, ErrBadCRLFEnd, err)
}

func TestDecodeBadBulkStringLen(t *testing.T) {
	_, err := decode("$-2\r\n")
	assert.Equal(t, ErrBadBulkStringLen, err)
}

func TestDecodeBulkStringLenTooLarge(t *testing.T) {
	_, err := decode("$" + strconv.FormatInt(math.MaxInt32+1, 10) + "\r\n")
	assert.Equal(t, ErrBulkStringLenTooLarge, err)
}

func TestDecodeBadArrayLen(t *testing.T) {
	_, err := decode("*-2\r\n")
	assert.Equal(t, ErrBadArrayLen, err)
}

func TestDecodeBadBulkStringEnd(t *testing.T) {
	_, err := decode("$3\r\nfooXY")
	assert.Equal(t, ErrBadCRLFEnd, err)
}

func TestDecodeErrIsSticky(t *testing.T) {
	d := NewDecoder(bytes.NewBufferString("?\r\n+OK\r\n"), 4096)
	_, err := d.Decode()
	assert.Equal(t, ErrUnexpectedType, err)

	// the stream is left in an indeterminate position, decoding must
	// not resume.
	_, err = d.Decode()
	assert.Equal(t, ErrUnexpectedType, err)
}

func TestDecodeEOF(t *testing.T) {
	_, err := decode("")
	assert.Equal(t, io.EOF, err)
}

func TestEncodeCommand(t *testing.T) {
	b := new(bytes.Buffer)
	enc := NewEncoder(b, 4096)
	assert.NoError(t, enc.EncodeCommand("get", "a"))
	// EncodeCommand flushes, the bytes must already be on the wire.
	assert.Equal(t, "*2\r\n$3\r\nget\r\n$1\r\na\r\n", b.String())
}

func TestEncodeInteger(t *testing.T) {
	for _, c := range []struct {
		in   int64
		want string
	}{
		{0, ":0\r\n"},
		{-1, ":-1\r\n"},
		{math.MaxInt64, ":9223372036854775807\r\n"},
	} {
		assert.Equal(t, c.want, string(encode(NewInteger(c.in))))
	}
}

func TestEncodeBulkString(t *testing.T) {
	assert.Equal(t, "$5\r\nhello\r\n", string(encode(NewBulkString("hello"))))
	// byte length, not rune count
	assert.Equal(t, "$6\r\n你好\r\n", string(encode(NewBulkString("你好"))))
	assert.Equal(t, "$-1\r\n", string(encode(NewNullBulkString())))
}

func TestEncodeArray(t *testing.T) {
	v := NewArray([]RespValue{
		*NewInteger(1),
		*NewBulkString("a"),
		*NewArray([]RespValue{*NewInteger(2)}),
	})
	assert.Equal(t, "*3\r\n:1\r\n$1\r\na\r\n*1\r\n:2\r\n", string(encode(v)))
	assert.Equal(t, "*-1\r\n", string(encode(NewNullArray())))
}

func TestEncodeUnsupportedType(t *testing.T) {
	enc := NewEncoder(new(bytes.Buffer), 4096)
	err := enc.Encode(&RespValue{Type: '?'})
	assert.Equal(t, ErrUnsupportedType, err)

	// the failure is sticky
	err = enc.Encode(NewInteger(1))
	assert.Equal(t, ErrUnsupportedType, err)
}

func TestRoundTripCommand(t *testing.T) {
	args := []string{"set", "", "\x00\x01\xff", "a\r\nb", "你好"}

	b := new(bytes.Buffer)
	enc := NewEncoder(b, 4096)
	assert.NoError(t, enc.EncodeCommand(args...))

	v, err := NewDecoder(b, 4096).Decode()
	assert.NoError(t, err)
	assert.Equal(t, Array, v.Type)
	assert.Equal(t, len(args), len(v.Array))
	for i, arg := range args {
		assert.Equal(t, BulkString, v.Array[i].Type)
		assert.Equal(t, arg, string(v.Array[i].Text))
	}
}

func TestIsProtocolError(t *testing.T) {
	for _, err := range []error{
		ErrUnexpectedType, ErrBadCRLFEnd, ErrBadArrayLen,
		ErrBadBulkStringLen, ErrBulkStringLenTooLarge,
	} {
		assert.True(t, IsProtocolError(err))
	}
	assert.False(t, IsProtocolError(io.EOF))
	assert.False(t, IsProtocolError(ErrUnsupportedType))
	assert.False(t, IsProtocolError(&ServerError{Msg: "ERR oops"}))
}

func TestBtoi64(t *testing.T) {
	for _, c := range []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"-1", -1},
		{"+42", 42},
		{"123456789", 123456789},
		{"9223372036854775807", math.MaxInt64},
		{"-9223372036854775808", math.MinInt64},
	} {
		n, err := btoi64([]byte(c.in))
		assert.NoError(t, err)
		assert.Equal(t, c.want, n)
	}

	_, err := btoi64([]byte("12a"))
	assert.Error(t, err)
	_, err = btoi64([]byte(""))
	assert.Error(t, err)
}
