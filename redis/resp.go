package redis

// RespType is the single-byte type tag of a RESP value, equal to its
// leading byte on the wire.
type RespType byte

const (
	SimpleString RespType = '+'
	Error        RespType = '-'
	Integer      RespType = ':'
	BulkString   RespType = '$'
	Array        RespType = '*'
)

// RespValue is a decoded RESP value. Exactly one payload field is
// meaningful, selected by Type: Int for Integer, Text for SimpleString,
// Error and BulkString, Array for Array. A null bulk string or null array
// has a nil payload.
type RespValue struct {
	Type RespType

	Int   int64
	Text  []byte
	Array []RespValue
}

// IsNull reports whether v is a null bulk string or a null array. Note a
// null array is distinct from an empty one.
func (v *RespValue) IsNull() bool {
	switch v.Type {
	case BulkString:
		return v.Text == nil
	case Array:
		return v.Array == nil
	}
	return false
}

// Err returns the reply as a *ServerError if it is an error reply, nil
// otherwise.
func (v *RespValue) Err() error {
	if v.Type != Error {
		return nil
	}
	return &ServerError{Msg: string(v.Text)}
}

// ServerError is a well-formed error reply from the server. It is an
// application-level outcome, not a transport fault; the connection remains
// usable after receiving one.
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string { return e.Msg }

func NewError(s string) *RespValue {
	return &RespValue{
		Type: Error,
		Text: []byte(s),
	}
}

func NewSimpleString(s string) *RespValue {
	return &RespValue{
		Type: SimpleString,
		Text: []byte(s),
	}
}

func NewBulkString(s string) *RespValue {
	return &RespValue{
		Type: BulkString,
		Text: []byte(s),
	}
}

func NewNullBulkString() *RespValue {
	return &RespValue{Type: BulkString}
}

func NewInteger(i int64) *RespValue {
	return &RespValue{
		Type: Integer,
		Int:  i,
	}
}

func NewArray(array []RespValue) *RespValue {
	return &RespValue{
		Type:  Array,
		Array: array,
	}
}

func NewNullArray() *RespValue {
	return &RespValue{Type: Array}
}

// NewCommand builds the request form of a command: an array of bulk
// strings, one per argument.
func NewCommand(args ...string) *RespValue {
	array := make([]RespValue, len(args))
	for i, arg := range args {
		array[i] = RespValue{Type: BulkString, Text: []byte(arg)}
	}
	return &RespValue{
		Type:  Array,
		Array: array,
	}
}
