package redis

// Pipeline batches commands on a client's connection: every Call writes a
// command without waiting for its reply, a final Read drains the replies
// in call order. Amortizes round-trip latency over the batch.
//
// Not safe for concurrent use; the caller serializes access, as with the
// owning client.
type Pipeline struct {
	c *Client

	// commands written but not yet matched by a decoded reply, in
	// call order. len(cmds) is the outstanding-reply count.
	cmds []string
	err  error
}

// Call encodes and writes the command immediately, then returns the
// pipeline for chaining. A failure is sticky: it is reported by Read and
// every later Call is a no-op. Commands written before the failure still
// have replies in flight; Read accounts for them.
func (p *Pipeline) Call(args ...string) *Pipeline {
	if p.err != nil {
		return p
	}
	if len(args) == 0 {
		p.err = ErrEmptyCommand
		return p
	}

	if cs := p.c.statsFor(args[0]); cs != nil {
		cs.Total.Inc()
	}
	if err := p.c.enc.EncodeCommand(args...); err != nil {
		p.err = err
		return p
	}
	p.cmds = append(p.cmds, args[0])
	return p
}

// Len returns the number of replies outstanding.
func (p *Pipeline) Len() int {
	return len(p.cmds)
}

// Read decodes one reply per outstanding command and returns them in
// call order, resetting the pipeline for reuse.
//
// Error replies do not abort the drain: every outstanding reply is
// consumed so the connection stays synchronized, error slots are present
// in the returned slice as Error-typed values, and the first one is also
// returned as a *ServerError. The same holds for a batch poisoned by an
// empty Call: the replies of the commands that were written are drained
// before ErrEmptyCommand is reported. Only a protocol or I/O error
// aborts the drain, and it permanently invalidates the connection.
func (p *Pipeline) Read() ([]*RespValue, error) {
	stickyErr := p.err
	p.err = nil
	if stickyErr != nil && stickyErr != ErrEmptyCommand {
		// a write failure is connection-fatal, there is nothing
		// left to drain.
		p.cmds = p.cmds[:0]
		return nil, stickyErr
	}

	ret := make([]*RespValue, 0, len(p.cmds))
	var serverErr error
	for _, cmd := range p.cmds {
		v, err := p.c.dec.Decode()
		if err != nil {
			p.cmds = p.cmds[:0]
			return nil, err
		}
		ret = append(ret, v)

		cs := p.c.statsFor(cmd)
		if verr := v.Err(); verr != nil {
			if cs != nil {
				cs.Error.Inc()
			}
			if serverErr == nil {
				serverErr = verr
			}
		} else if cs != nil {
			cs.Success.Inc()
		}
	}
	p.cmds = p.cmds[:0]
	if stickyErr != nil {
		return ret, stickyErr
	}
	return ret, serverErr
}
