package rmt

import (
	"io"
	"net"
	"os/exec"

	"github.com/gopherarchive/rmt/internal/debug"
	"github.com/gopherarchive/rmt/internal/errors"
)

// spawnedShell bundles the parent-side pipe endpoints of a forked remote
// shell together with the *exec.Cmd so the caller can tear it down.
type spawnedShell struct {
	rd  io.ReadCloser
	wr  io.WriteCloser
	cmd *exec.Cmd
}

// buildShellArgs builds the remote-shell argv tail: "host [-l user]
// rmt_command", per §4.4 step 5.
func buildShellArgs(ep Endpoint, cfg Config) []string {
	args := []string{ep.Host}
	if ep.User != "" {
		args = append(args, "-l", ep.User)
	}
	args = append(args, cfg.remoteCommand())
	return args
}

func (s *spawnedShell) Close() {
	if s.rd != nil {
		_ = s.rd.Close()
	}
	if s.wr != nil {
		_ = s.wr.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		// The parent does not reap children explicitly (§5); closing both
		// pipes causes the child to observe EOF on stdin and exit on its
		// own. We still call Wait in a goroutine so the process does not
		// linger as a zombie once it does exit.
		go func() { _ = s.cmd.Wait() }()
	}
}

// Open implements C4+C5's open operation: it parses name, resolves the
// host, spawns the remote-shell child, and performs the rmt "O" handshake.
// On success it returns the allocated handle plus cfg.Bias.
func Open(cfg Config, name string, flags OpenFlags) (int, error) {
	ep, err := ParseEndpoint(name)
	if err != nil {
		return -1, err
	}

	if cfg.RemoteShell == "" {
		return -1, errors.Fatal("rmt: no remote shell configured")
	}

	if !defaultTable.hasCapacity() {
		return -1, ErrTooManyOpen
	}

	// Best-effort host resolution: a failure aborts the open even though
	// the protocol itself does not strictly require the address beyond
	// letting the remote-shell binary locate its target, per §4.4 step 3.
	if _, err := net.LookupHost(ep.Host); err != nil {
		debug.Log("rmt: failed to resolve host %q: %v", ep.Host, err)
		return -1, errors.Wrap(errors.Fatal("rmt: unable to resolve host"), err.Error())
	}

	shell, err := spawnRemoteShell(cfg, ep)
	if err != nil {
		return -1, err
	}

	handle, err := defaultTable.allocate(shell.rd, shell.wr)
	if err != nil {
		shell.Close()
		return -1, err
	}

	t := &transport{rd: shell.rd, wr: shell.wr}
	if err := sendOpen(t, ep.File, flags); err != nil {
		defaultTable.release(handle)
		return -1, err
	}

	return handle + cfg.Bias, nil
}

// sendOpen transmits the "O" command and parses its status, per §4.2/§4.4
// step 7.
func sendOpen(t *transport, file string, flags OpenFlags) error {
	if err := t.sendCommand(encodeOpen(file, flags)); err != nil {
		return err
	}

	_, err := readAck(t)
	return err
}

// readReply reads one status line and classifies it. For an "A" reply it
// returns the raw decimal remainder for the caller to parse (as a count or
// as a wide offset, depending on the operation). For "E"/"F" it consumes
// the following message line and returns a *PeerError.
func readReply(t *transport) (ackRest []byte, err error) {
	line, err := t.readStatusLine()
	if err != nil {
		return nil, err
	}

	kind, rest, err := parseStatusLine(line)
	if err != nil {
		return nil, err
	}

	switch kind {
	case statusAck:
		return rest, nil
	case statusErr, statusFatal:
		errno, perr := parseErrno(rest)
		_ = t.discardLine()
		if perr != nil {
			return nil, perr
		}
		return nil, &PeerError{Errno: errno, Fatal: kind == statusFatal}
	default:
		return nil, errors.Fatal("rmt: unreachable status kind")
	}
}

// readAck reads a reply and parses a successful ack as a bounded count.
func readAck(t *transport) (int64, error) {
	rest, err := readReply(t)
	if err != nil {
		return 0, err
	}
	return parseAckCount(rest)
}

// readAckOffset reads a reply and parses a successful ack as a wide signed
// offset, used by seek.
func readAckOffset(t *transport) (int64, error) {
	rest, err := readReply(t)
	if err != nil {
		return 0, err
	}
	return parseAckOffset(rest)
}

// PeerError wraps an errno reported by the remote rmt helper via an "E" or
// "F" reply, per §3/§7(v). The core never translates the errno: it is
// trusted verbatim, per spec.md §1's stated non-goal.
type PeerError struct {
	Errno int
	Fatal bool
}

func (e *PeerError) Error() string {
	if e.Fatal {
		return "rmt: remote reported fatal error"
	}
	return "rmt: remote reported error"
}
