package redis

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/kirk91/stats"
)

const (
	encBufSize = 4096
	decBufSize = 8192
)

// ErrEmptyCommand is returned when a command with no arguments is issued.
var ErrEmptyCommand = errors.New("empty command")

type commandStats struct {
	Total         *stats.Counter
	Success       *stats.Counter
	Error         *stats.Counter
	LatencyMicros *stats.Histogram
}

func newCommandStats(scope *stats.Scope, cmd string) *commandStats {
	cmdScope := scope.NewChild(cmd)
	return &commandStats{
		Total:         cmdScope.Counter("total"),
		Success:       cmdScope.Counter("success"),
		Error:         cmdScope.Counter("error"),
		LatencyMicros: cmdScope.Histogram("latency_micros"),
	}
}

// Client binds an encoder/decoder pair to a caller-supplied connection.
// It owns the buffered views of the connection for its lifetime but never
// opens, closes, or configures the underlying transport; once the stream
// fails the client bound to it is permanently unusable.
//
// A client is not safe for concurrent use. One logical thread of control
// must own the connection at a time; a Pipeline obtained from a client
// shares the same stream and the same restriction.
type Client struct {
	enc *Encoder
	dec *Decoder

	scope    *stats.Scope
	cmdStats map[string]*commandStats
}

// NewClient wraps conn. scope may be nil to disable instrumentation.
func NewClient(conn io.ReadWriter, scope *stats.Scope) *Client {
	return &Client{
		enc:      NewEncoder(conn, encBufSize),
		dec:      NewDecoder(conn, decBufSize),
		scope:    scope,
		cmdStats: make(map[string]*commandStats),
	}
}

// Do writes one command, flushes, and blocks for its reply. An error
// reply is returned as a *ServerError; the connection stays usable after
// one. Any other error is connection-fatal.
func (c *Client) Do(args ...string) (*RespValue, error) {
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}

	cs := c.statsFor(args[0])
	if cs != nil {
		cs.Total.Inc()
	}
	begin := time.Now()

	if err := c.enc.EncodeCommand(args...); err != nil {
		if cs != nil {
			cs.Error.Inc()
		}
		return nil, err
	}
	v, err := c.dec.Decode()
	if err != nil {
		if cs != nil {
			cs.Error.Inc()
		}
		return nil, err
	}
	if cs != nil {
		cs.LatencyMicros.Record(uint64(time.Since(begin) / time.Microsecond))
	}

	if serr := v.Err(); serr != nil {
		if cs != nil {
			cs.Error.Inc()
		}
		return nil, serr
	}
	if cs != nil {
		cs.Success.Inc()
	}
	return v, nil
}

// Pipeline starts a new batch on the client's connection. The pipeline
// and the client share one stream; do not interleave Do calls with an
// unfinished pipeline.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{c: c}
}

func (c *Client) statsFor(cmd string) *commandStats {
	if c.scope == nil {
		return nil
	}
	cmd = strings.ToLower(cmd)
	cs, ok := c.cmdStats[cmd]
	if !ok {
		cs = newCommandStats(c.scope, cmd)
		c.cmdStats[cmd] = cs
	}
	return cs
}
