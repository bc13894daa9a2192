// Package rmt implements a client for the remote magnetic-tape (rmt)
// protocol: the handle table (C1), wire codec (C2), transport (C3),
// connection launcher (C4), and the public operation layer (C5) that
// composes them.
package rmt

import (
	"github.com/gopherarchive/rmt/internal/debug"
	"github.com/gopherarchive/rmt/internal/errors"
)

func transportFor(handle int) (*transport, error) {
	rd, wr, err := defaultTable.endpoints(handle)
	if err != nil {
		return nil, err
	}
	return &transport{rd: rd, wr: wr}, nil
}

// Close sends the "C" command and unconditionally tears the session down
// (even on success), per §4.5. The reported status is returned to the
// caller for its own diagnostics even though the handle is already gone by
// the time Close returns.
func Close(handle int) (int64, error) {
	t, err := transportFor(handle)
	if err != nil {
		return -1, err
	}
	defer defaultTable.release(handle)

	if err := t.sendCommand(encodeClose()); err != nil {
		return -1, err
	}

	n, err := readAck(t)
	if err != nil {
		if pe, ok := err.(*PeerError); ok {
			return -1, pe
		}
		return -1, err
	}
	return n, nil
}

// Read implements POSIX read(2) semantics over the protocol: it requests up
// to len(buf) bytes, then copies exactly as many bytes as the remote
// acknowledges into buf. A zero return with a nil error signals EOF.
func Read(handle int, buf []byte) (int, error) {
	t, err := transportFor(handle)
	if err != nil {
		return 0, err
	}

	if err := t.sendCommand(encodeRead(len(buf))); err != nil {
		defaultTable.release(handle)
		return 0, err
	}

	n, err := readAck(t)
	if err != nil {
		if pe, ok := err.(*PeerError); ok {
			if pe.Fatal {
				defaultTable.release(handle)
			}
			return 0, pe
		}
		defaultTable.release(handle)
		return 0, err
	}

	if n < 0 || n > int64(len(buf)) {
		defaultTable.release(handle)
		return 0, errors.Fatal("rmt: read ack out of bounds")
	}

	payload, err := t.readPayload(int(n))
	if err != nil {
		defaultTable.release(handle)
		return 0, err
	}

	copy(buf, payload)
	return int(n), nil
}

// Write implements POSIX write(2) semantics: it sends the payload, then
// interprets the remote's ack as the number of bytes actually written.
//
// If the payload could not be fully transmitted, the session is dead and 0
// is returned (we can't know how much, if any, reached the remote). If
// transmission succeeded but the remote reports a short write or an error,
// that is returned without treating it as this layer's own failure -- an
// "E" reply (as opposed to "F") leaves the session alive, per spec.md §8
// scenario 4.
func Write(handle int, buf []byte) (int, error) {
	t, err := transportFor(handle)
	if err != nil {
		return 0, err
	}

	if err := t.sendCommand(encodeWriteHeader(len(buf))); err != nil {
		defaultTable.release(handle)
		return 0, err
	}
	if err := t.sendCommand(buf); err != nil {
		defaultTable.release(handle)
		return 0, err
	}

	n, err := readAck(t)
	if err != nil {
		if pe, ok := err.(*PeerError); ok {
			if pe.Fatal {
				defaultTable.release(handle)
			}
			return 0, pe
		}
		defaultTable.release(handle)
		return 0, err
	}

	if n > int64(len(buf)) {
		defaultTable.release(handle)
		return 0, errors.Fatal("rmt: write ack exceeds payload size")
	}

	return int(n), nil
}

// Seek sends the "L" command and returns the remote's reported offset,
// parsed with overflow detection, per §4.5.
func Seek(handle int, offset int64, whence int) (int64, error) {
	t, err := transportFor(handle)
	if err != nil {
		return -1, err
	}

	cmd, err := encodeSeek(whence, offset)
	if err != nil {
		return -1, err
	}

	if err := t.sendCommand(cmd); err != nil {
		defaultTable.release(handle)
		return -1, err
	}

	off, err := readAckOffset(t)
	if err != nil {
		if pe, ok := err.(*PeerError); ok {
			if pe.Fatal {
				defaultTable.release(handle)
			}
			return -1, pe
		}
		defaultTable.release(handle)
		return -1, err
	}

	return off, nil
}

// ErrIoctlNotSupported is returned by Ioctl for any request other than the
// two supported by the protocol, without touching the wire, per §4.5.
var ErrIoctlNotSupported = errors.New("operation not supported")

// Ioctl dispatches a generic ioctl(2)-shaped request to IoctlOp or IoctlGet.
// Any request other than MTIOCTOP/MTIOCGET is rejected immediately with
// ErrIoctlNotSupported, without touching the wire, per §4.5.
func Ioctl(handle int, request uintptr, op MTOp) (result int64, get MTGet, err error) {
	switch request {
	case MTIOCTOP:
		result, err = IoctlOp(handle, op)
		return result, MTGet{}, err
	case MTIOCGET:
		get, err = IoctlGet(handle)
		return 0, get, err
	default:
		return -1, MTGet{}, ErrIoctlNotSupported
	}
}

// IoctlOp issues a tape operation (the MTIOCTOP equivalent): "I<op>\n<count>\n".
func IoctlOp(handle int, op MTOp) (int64, error) {
	t, err := transportFor(handle)
	if err != nil {
		return -1, err
	}

	if err := t.sendCommand(encodeIoctlOp(op.Op, op.Count)); err != nil {
		defaultTable.release(handle)
		return -1, err
	}

	n, err := readAck(t)
	if err != nil {
		if pe, ok := err.(*PeerError); ok {
			if pe.Fatal {
				defaultTable.release(handle)
			}
			return -1, pe
		}
		defaultTable.release(handle)
		return -1, err
	}

	return n, nil
}

// IoctlGet retrieves the remote's tape status (the MTIOCGET equivalent):
// "S" (no trailing newline, per §9), then reads exactly sizeof(MTGet) bytes
// of raw status structure, applying the legacy byte-swap heuristic.
func IoctlGet(handle int) (MTGet, error) {
	t, err := transportFor(handle)
	if err != nil {
		return MTGet{}, err
	}

	if err := t.sendCommand(encodeIoctlGet()); err != nil {
		defaultTable.release(handle)
		return MTGet{}, err
	}

	n, err := readAck(t)
	if err != nil {
		if pe, ok := err.(*PeerError); ok {
			if pe.Fatal {
				defaultTable.release(handle)
			}
			return MTGet{}, pe
		}
		defaultTable.release(handle)
		return MTGet{}, err
	}

	if n != mtGetSize {
		defaultTable.release(handle)
		return MTGet{}, errors.Fatal("rmt: ioctl-get ack does not match status structure size")
	}

	payload, err := t.readPayload(int(n))
	if err != nil {
		defaultTable.release(handle)
		return MTGet{}, err
	}

	g, err := decodeMTGet(payload)
	if err != nil {
		defaultTable.release(handle)
		return MTGet{}, err
	}

	debug.Log("rmt: ioctl-get status %+v", g)
	return g, nil
}
