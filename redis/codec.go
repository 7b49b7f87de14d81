package redis

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
)

var (
	// ErrUnexpectedType means the leading byte of a reply is not one of
	// the five RESP type tags.
	ErrUnexpectedType = errors.New("unexpected input, bad resp type")

	// ErrBadCRLFEnd means a malformed line terminator: a CR not
	// followed by LF, or a bare LF with no preceding CR.
	ErrBadCRLFEnd = errors.New("bad CRLF end, expected LF")

	// ErrBadArrayLen for an invalid array len.
	ErrBadArrayLen = errors.New("bad array len")

	// ErrBadBulkStringLen for an invalid bulk string len.
	ErrBadBulkStringLen = errors.New("bad bulk string len")
	// ErrBulkStringLenTooLarge for a bulk string len beyond the supported
	// bound.
	ErrBulkStringLenTooLarge = errors.New("bad bulk string len, too large")

	// ErrUnsupportedType means the caller asked to encode a value whose
	// type tag is not one of the five RESP types. It is a programming
	// contract violation, not a protocol error.
	ErrUnsupportedType = errors.New("unsupported value type")
)

// The declared bulk string length arrives as a 64-bit integer but lengths
// beyond int32 are rejected for practicality.
const maxBulkStringLen = math.MaxInt32

const (
	CR byte = '\r'
	LF byte = '\n'
)

// CRLF is the line delimiter of the redis protocol.
var CRLF = []byte{CR, LF}

// IsProtocolError reports whether err marks malformed peer input. After a
// protocol error the stream position is indeterminate and the connection
// must not be reused; no resynchronization is attempted.
func IsProtocolError(err error) bool {
	switch err {
	case ErrUnexpectedType, ErrBadCRLFEnd, ErrBadArrayLen,
		ErrBadBulkStringLen, ErrBulkStringLenTooLarge:
		return true
	}
	return false
}

// Decoder parses one RESP value per Decode call, reading from a buffered
// view of the underlying stream. It blocks until a complete value is
// available. After the first failure every subsequent call returns the
// same error.
//
// Not safe for concurrent use.
type Decoder struct {
	br   *bufio.Reader
	line []byte
	err  error
}

func NewDecoder(r io.Reader, bufSize int) *Decoder {
	return &Decoder{br: bufio.NewReaderSize(r, bufSize)}
}

// Decode reads exactly one value. Error replies decode into an
// Error-typed value, not a Go error; use RespValue.Err to convert.
func (d *Decoder) Decode() (*RespValue, error) {
	if d.err != nil {
		return nil, d.err
	}
	v, err := d.decode()
	if err != nil {
		d.err = err
	}
	return v, err
}

func (d *Decoder) decode() (*RespValue, error) {
	b, err := d.br.ReadByte()
	if err != nil {
		return nil, err
	}

	v := &RespValue{Type: RespType(b)}
	switch v.Type {
	case Integer:
		v.Int, err = d.decodeInt()
	case SimpleString, Error:
		v.Text, err = d.decodeLine()
	case BulkString:
		v.Text, err = d.decodeBulkString()
	case Array:
		v.Array, err = d.decodeArray()
	default:
		return nil, ErrUnexpectedType
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// scanLine reads byte by byte until CR, then requires LF. A bare LF
// before the CR is a protocol violation. The returned slice is valid
// until the next scan.
func (d *Decoder) scanLine() ([]byte, error) {
	d.line = d.line[:0]
	for {
		b, err := d.br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == CR {
			break
		}
		if b == LF {
			return nil, ErrBadCRLFEnd
		}
		d.line = append(d.line, b)
	}
	b, err := d.br.ReadByte()
	if err != nil {
		return nil, err
	}
	if b != LF {
		return nil, ErrBadCRLFEnd
	}
	return d.line, nil
}

func (d *Decoder) decodeLine() ([]byte, error) {
	line, err := d.scanLine()
	if err != nil {
		return nil, err
	}
	text := make([]byte, len(line))
	copy(text, line)
	return text, nil
}

func (d *Decoder) decodeInt() (int64, error) {
	line, err := d.scanLine()
	if err != nil {
		return 0, err
	}
	return btoi64(line)
}

// btoi64 parses bytes to int64.
func btoi64(b []byte) (int64, error) {
	if len(b) != 0 && len(b) < 10 {
		// better performance and zero alloc.
		var neg, i = false, 0
		switch b[0] {
		case '-':
			neg = true
			fallthrough
		case '+':
			i++
		}
		if len(b) != i {
			var n int64
			for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
				n = int64(b[i]-'0') + n*10
			}
			if len(b) == i {
				if neg {
					n = -n
				}
				return n, nil
			}
		}
	}
	return strconv.ParseInt(string(b), 10, 64)
}

func (d *Decoder) decodeBulkString() ([]byte, error) {
	n, err := d.decodeInt()
	if err != nil {
		return nil, err
	}
	switch {
	case n < -1:
		return nil, ErrBadBulkStringLen
	case n > maxBulkStringLen:
		return nil, ErrBulkStringLenTooLarge
	case n == -1:
		return nil, nil
	}
	b := make([]byte, int(n)+2)
	if _, err := io.ReadFull(d.br, b); err != nil {
		return nil, err
	}
	if b[n] != CR || b[n+1] != LF {
		return nil, ErrBadCRLFEnd
	}
	return b[:n], nil
}

func (d *Decoder) decodeArray() ([]RespValue, error) {
	n, err := d.decodeInt()
	if err != nil {
		return nil, err
	}
	switch {
	case n < -1:
		return nil, ErrBadArrayLen
	case n == -1:
		return nil, nil
	}
	array := make([]RespValue, n)
	for i := range array {
		v, err := d.decode()
		if err != nil {
			return nil, err
		}
		array[i] = *v
	}
	return array, nil
}

// Encoder serializes RESP values onto a buffered view of the underlying
// stream. Encode buffers; a command write through EncodeCommand flushes.
// After the first failure every subsequent call returns the same error.
//
// Not safe for concurrent use.
type Encoder struct {
	bw  *bufio.Writer
	err error
}

func NewEncoder(w io.Writer, bufSize int) *Encoder {
	return &Encoder{bw: bufio.NewWriterSize(w, bufSize)}
}

// Encode writes v into the buffer without flushing. Callers emitting a
// top-level value directly must call Flush to guarantee transmission;
// EncodeCommand does both for the command form.
func (e *Encoder) Encode(v *RespValue) error {
	if e.err != nil {
		return e.err
	}
	err := e.encode(v)
	if err != nil {
		e.err = err
	}
	return err
}

// EncodeCommand writes args as an array of bulk strings and flushes,
// guaranteeing the command is actually transmitted rather than sitting in
// the write buffer.
func (e *Encoder) EncodeCommand(args ...string) error {
	if err := e.Encode(NewCommand(args...)); err != nil {
		return err
	}
	return e.Flush()
}

func (e *Encoder) encode(v *RespValue) error {
	err := e.bw.WriteByte(byte(v.Type))
	if err != nil {
		return err
	}
	switch v.Type {
	case Integer:
		return e.encodeInt(v.Int)
	case Error, SimpleString:
		return e.encodeTextBytes(v.Text)
	case BulkString:
		return e.encodeBulkBytes(v.Text)
	case Array:
		return e.encodeArray(v.Array)
	default:
		return ErrUnsupportedType
	}
}

func (e *Encoder) encodeInt(i int64) error {
	return e.encodeTextString(itoa(i))
}

const (
	minItoa = -128
	maxItoa = 32768
)

var (
	itoaOffset [maxItoa - minItoa + 1]uint32
	itoaBuffer string
)

func init() {
	// make itoa buffer to speed up conversion
	var b bytes.Buffer
	for i := range itoaOffset {
		itoaOffset[i] = uint32(b.Len())
		b.WriteString(strconv.Itoa(i + minItoa))
	}
	itoaBuffer = b.String()
}

func itoa(i int64) string {
	if i >= minItoa && i <= maxItoa {
		beg := itoaOffset[i-minItoa]
		if i == maxItoa {
			return itoaBuffer[beg:]
		}
		end := itoaOffset[i-minItoa+1]
		return itoaBuffer[beg:end]
	}
	return strconv.FormatInt(i, 10)
}

func (e *Encoder) encodeTextBytes(b []byte) error {
	if _, err := e.bw.Write(b); err != nil {
		return err
	}
	return e.writeCRLF()
}

func (e *Encoder) encodeTextString(s string) error {
	if _, err := e.bw.WriteString(s); err != nil {
		return err
	}
	return e.writeCRLF()
}

func (e *Encoder) writeCRLF() (err error) {
	_, err = e.bw.Write(CRLF)
	return err
}

func (e *Encoder) encodeBulkBytes(b []byte) error {
	if b == nil {
		return e.encodeInt(-1)
	}
	if err := e.encodeInt(int64(len(b))); err != nil {
		return err
	}
	return e.encodeTextBytes(b)
}

func (e *Encoder) encodeArray(array []RespValue) error {
	if array == nil {
		return e.encodeInt(-1)
	}
	if err := e.encodeInt(int64(len(array))); err != nil {
		return err
	}
	for _, v := range array {
		if err := e.encode(&v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.bw.Flush(); err != nil {
		e.err = err
	}
	return e.err
}
