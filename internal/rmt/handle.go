package rmt

import (
	"io"
	"sync"

	"github.com/gopherarchive/rmt/internal/errors"
)

// MaxConnections is the fixed capacity of the handle table. It mirrors the
// historical rmt client's MAXUNIT: a small, compile-time bound on the number
// of simultaneous remote-tape sessions a single process may hold open.
const MaxConnections = 4

// session is one slot in the handle table. Its two endpoints are either both
// open or both nil -- never mixed.
type session struct {
	rd io.ReadCloser
	wr io.WriteCloser
}

func (s *session) inUse() bool {
	return s.rd != nil || s.wr != nil
}

// handleTable is a fixed-capacity registry of active rmt sessions,
// identified by small non-negative integers. Per spec §5, callers are
// responsible for serializing operations *against a given handle*
// themselves -- the protocol has no multiplexing and a handle's session
// must see one command in flight at a time. The table itself, however, is
// shared process-wide state that the slot scan/allocate/release methods
// below guard with mu, since nothing stops two callers from opening or
// closing *different* handles concurrently (cmd/rmtclient's bench
// subcommand does exactly that).
type handleTable struct {
	mu    sync.Mutex
	slots [MaxConnections]session
}

// defaultTable is the package-level handle table used by the public
// operations in client.go, mirroring the original rmt client's reliance on a
// single process-wide connection table. The table is a type rather than bare
// package globals, so tests can build isolated instances; handleTable is
// unexported and every public operation uses this one instance.
var defaultTable = &handleTable{}

// ErrTooManyOpen is returned by allocate when every slot is occupied.
var ErrTooManyOpen = errors.New("too many open files")

// hasCapacity reports whether at least one slot is free. It lets the
// launcher fail fast, before forking a child, when the table is already
// full (§4.4 step 1).
func (t *handleTable) hasCapacity() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if !t.slots[i].inUse() {
			return true
		}
	}
	return false
}

// allocate scans the table for the first free slot in ascending order and
// marks it in-use by installing the given endpoints. Deterministic,
// lowest-index-first reuse makes handle assignment predictable for tests.
func (t *handleTable) allocate(rd io.ReadCloser, wr io.WriteCloser) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if !t.slots[i].inUse() {
			t.slots[i] = session{rd: rd, wr: wr}
			return i, nil
		}
	}
	return -1, ErrTooManyOpen
}

// release closes both endpoints of handle (tolerating nil/closed endpoints)
// and frees the slot for reuse. It is safe to call on an already-released
// handle.
func (t *handleTable) release(handle int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if handle < 0 || handle >= len(t.slots) {
		return
	}

	s := &t.slots[handle]
	if s.rd != nil {
		_ = s.rd.Close()
	}
	if s.wr != nil {
		_ = s.wr.Close()
	}
	s.rd = nil
	s.wr = nil
}

// endpoints returns the read and write endpoints for handle, or an error if
// the handle is out of range or not currently in use.
func (t *handleTable) endpoints(handle int) (io.ReadCloser, io.WriteCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if handle < 0 || handle >= len(t.slots) {
		return nil, nil, errors.Fatal("rmt: handle out of range")
	}

	s := &t.slots[handle]
	if !s.inUse() {
		return nil, nil, errors.Fatal("rmt: handle is not open")
	}

	return s.rd, s.wr, nil
}
