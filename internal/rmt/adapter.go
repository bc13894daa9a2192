package rmt

import (
	"github.com/gopherarchive/rmt/internal/errors"
)

// Archiver is the narrow interface (§6) a generic buffered-archive layer
// would drive: open/read/write/seek/close plus Release, the "destructor"
// callback for discarding a handle without an orderly protocol close (used
// when a fatal error has already killed the session).
type Archiver interface {
	Open() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
	Release()
}

// Connection adapts C5's free functions to the Archiver interface for one
// named remote endpoint, tracking its own handle and bias so the caller
// never has to juggle raw integers. It is the concrete analogue of the
// teacher's per-backend state struct (e.g. SFTP's {c, p, cmd, result}).
type Connection struct {
	name  string
	flags OpenFlags
	cfg   Config

	handle int
	open   bool
}

// NewConnection returns an Archiver for name ("[user@]host:file"), which
// must not be used when cfg.ForceLocal is set -- per §9's open question,
// the core has no local-file fallback and the caller (the adapter's own
// caller, conceptually the archive engine) must route local paths
// elsewhere before ever constructing a Connection.
func NewConnection(name string, flags OpenFlags, cfg Config) (*Connection, error) {
	if cfg.ForceLocal {
		return nil, errors.New("rmt: force-local is set, this connection should not have been created")
	}
	return &Connection{name: name, flags: flags, cfg: cfg, handle: -1}, nil
}

func (c *Connection) Open() error {
	biased, err := Open(c.cfg, c.name, c.flags)
	if err != nil {
		return err
	}
	c.handle = biased - c.cfg.Bias
	c.open = true
	return nil
}

func (c *Connection) Read(p []byte) (int, error) {
	if !c.open {
		return 0, errors.Fatal("rmt: read on unopened connection")
	}
	n, err := Read(c.handle, p)
	if err != nil {
		c.markDeadIfFatal(err)
	}
	return n, err
}

func (c *Connection) Write(p []byte) (int, error) {
	if !c.open {
		return 0, errors.Fatal("rmt: write on unopened connection")
	}
	n, err := Write(c.handle, p)
	if err != nil {
		c.markDeadIfFatal(err)
	}
	return n, err
}

func (c *Connection) Seek(offset int64, whence int) (int64, error) {
	if !c.open {
		return -1, errors.Fatal("rmt: seek on unopened connection")
	}
	off, err := Seek(c.handle, offset, whence)
	if err != nil {
		c.markDeadIfFatal(err)
	}
	return off, err
}

func (c *Connection) Close() error {
	if !c.open {
		return nil
	}
	c.open = false
	_, err := Close(c.handle)
	return err
}

// Release is the destructor callback: it discards the connection's handle
// without attempting the "C" handshake, for use after a fatal error has
// already torn the session down on the wire.
func (c *Connection) Release() {
	if !c.open {
		return
	}
	c.open = false
	defaultTable.release(c.handle)
}

func (c *Connection) markDeadIfFatal(err error) {
	if pe, ok := err.(*PeerError); ok && !pe.Fatal {
		return
	}
	c.open = false
}

// Ioctl is exposed directly on Connection rather than through the narrow
// Archiver interface, since the buffered-archive abstraction in §6 only
// names the six generic callbacks; tape-specific ioctls are an extension a
// tar/dump-style caller reaches for explicitly.
func (c *Connection) Ioctl(request uintptr, op MTOp) (int64, MTGet, error) {
	if !c.open {
		return -1, MTGet{}, errors.Fatal("rmt: ioctl on unopened connection")
	}
	result, get, err := Ioctl(c.handle, request, op)
	if err != nil && err != ErrIoctlNotSupported {
		c.markDeadIfFatal(err)
	}
	return result, get, err
}
