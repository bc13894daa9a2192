package rmt

import (
	"io"

	"github.com/gopherarchive/rmt/internal/debug"
	"github.com/gopherarchive/rmt/internal/errors"
)

// transport is a bidirectional byte pipe to a remote process: a line-safe
// command writer and a byte-exact payload reader, per §4.3. It wraps the
// read/write endpoints of one handle-table session.
type transport struct {
	rd io.Reader
	wr io.Writer
}

// sendCommand writes buf in full, masking SIGPIPE around the write so that a
// dead peer produces an error return instead of killing the process. A
// short write (the peer closed mid-write) is a protocol-fatal condition.
func (t *transport) sendCommand(buf []byte) error {
	restore := maskSIGPIPE()
	defer restore()

	written := 0
	for written < len(buf) {
		n, err := t.wr.Write(buf[written:])
		written += n
		if err != nil {
			debug.Log("rmt: short write after %d/%d bytes: %v", written, len(buf), err)
			return errors.Wrap(errors.Fatal("rmt: write failed"), err.Error())
		}
	}
	return nil
}

// readPayload reads exactly n bytes from the transport, looping past short
// reads. Any read that returns zero bytes with no error, or an error, before
// n bytes have been collected is a protocol-fatal condition.
func (t *transport) readPayload(n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := t.rd.Read(buf[read:])
		read += m
		if read == n {
			break
		}
		if m <= 0 && err == nil {
			return nil, errors.Fatal("rmt: short read (peer produced no data)")
		}
		if err != nil {
			debug.Log("rmt: short read after %d/%d bytes: %v", read, n, err)
			return nil, errors.Wrap(errors.Fatal("rmt: read failed"), err.Error())
		}
	}
	return buf, nil
}

// readStatusLine reads bytes one at a time until a newline or
// statusLineLimit bytes have been read without finding one, per §4.2. The
// returned slice excludes the trailing newline.
func (t *transport) readStatusLine() ([]byte, error) {
	var line []byte
	one := make([]byte, 1)

	for len(line) < statusLineLimit {
		n, err := t.rd.Read(one)
		if n == 0 {
			if err != nil {
				return nil, errors.Wrap(errors.Fatal("rmt: failed to read status line"), err.Error())
			}
			continue
		}

		if one[0] == '\n' {
			return line, nil
		}
		line = append(line, one[0])
	}

	return nil, errors.Fatal("rmt: status line exceeds buffer without newline")
}

// discardLine reads and discards bytes up to and including the next
// newline, used to consume the human-readable message line that follows an
// "E"/"F" status.
func (t *transport) discardLine() error {
	one := make([]byte, 1)
	for {
		n, err := t.rd.Read(one)
		if n > 0 && one[0] == '\n' {
			return nil
		}
		if err != nil {
			return errors.Wrap(errors.Fatal("rmt: failed to read message line"), err.Error())
		}
	}
}
