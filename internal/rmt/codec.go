package rmt

import (
	"strconv"
	"strings"

	"github.com/gopherarchive/rmt/internal/errors"
)

// OpenFlags mirrors the POSIX open(2) flag bits as understood by the remote
// host, not Go's os.O_* constants (which are portable abstractions and do
// not share numeric values with the wire-transmitted bits, nor with each
// other across platforms). The protocol has always assumed client and
// remote share the same numeric encoding; these values are the generic
// Linux/glibc fcntl.h bit layout, which is what essentially every rmt
// server in practice expects regardless of the architecture the client
// itself runs on.
type OpenFlags int

const (
	O_RDONLY   OpenFlags = 0x0000
	O_WRONLY   OpenFlags = 0x0001
	O_RDWR     OpenFlags = 0x0002
	O_CREAT    OpenFlags = 0x0040
	O_EXCL     OpenFlags = 0x0080
	O_TRUNC    OpenFlags = 0x0200
	O_APPEND   OpenFlags = 0x0400
	O_NONBLOCK OpenFlags = 0x0800
	O_SYNC     OpenFlags = 0x101000
)

// oflagName pairs one POSIX open-flag bit with its canonical symbolic name,
// in the fixed order the wire format expects them joined by '|'.
type oflagName struct {
	bit  int
	name string
}

// accessModes lists the three mutually exclusive access-mode bits; exactly
// one is emitted per §4.2.
var accessModes = []oflagName{
	{int(O_RDONLY), "O_RDONLY"},
	{int(O_WRONLY), "O_WRONLY"},
	{int(O_RDWR), "O_RDWR"},
}

// otherFlags lists the remaining flags in the order the symbolic form
// prefers them.
var otherFlags = []oflagName{
	{int(O_CREAT), "O_CREAT"},
	{int(O_EXCL), "O_EXCL"},
	{int(O_TRUNC), "O_TRUNC"},
	{int(O_APPEND), "O_APPEND"},
	{int(O_NONBLOCK), "O_NONBLOCK"},
	{int(O_SYNC), "O_SYNC"},
}

// encodeOpenFlags renders flags as the numeric value (authoritative) and
// the canonical symbolic text (informational), per §4.2.
func encodeOpenFlags(flags OpenFlags) (numeric int, symbolic string) {
	numeric = int(flags)

	var names []string

	// Exactly one access mode is emitted. O_RDONLY is conventionally 0, so
	// it only appears explicitly when none of the other two bits are set.
	accessBits := O_RDONLY | O_WRONLY | O_RDWR
	switch flags & accessBits {
	case O_WRONLY:
		names = append(names, "O_WRONLY")
	case O_RDWR:
		names = append(names, "O_RDWR")
	default:
		names = append(names, "O_RDONLY")
	}

	for _, f := range otherFlags {
		if int(flags)&f.bit != 0 {
			names = append(names, f.name)
		}
	}

	return numeric, strings.Join(names, "|")
}

// encodeOpen builds the "O<file>\n<flags> <symbolic>\n" command.
func encodeOpen(file string, flags OpenFlags) []byte {
	numeric, symbolic := encodeOpenFlags(flags)
	return []byte("O" + file + "\n" + strconv.Itoa(numeric) + " " + symbolic + "\n")
}

func encodeClose() []byte {
	return []byte("C\n")
}

func encodeRead(n int) []byte {
	return []byte("R" + strconv.Itoa(n) + "\n")
}

func encodeWriteHeader(n int) []byte {
	return []byte("W" + strconv.Itoa(n) + "\n")
}

// whence values on the wire: SET->0, CUR->1, END->2. These happen to
// coincide with io.SeekStart/SeekCurrent/SeekEnd, but the mapping is spelled
// out explicitly since the wire format, not io's constants, is what's
// authoritative here.
const (
	seekSet = 0
	seekCur = 1
	seekEnd = 2
)

func encodeWhence(whence int) (int, error) {
	switch whence {
	case seekSet, seekCur, seekEnd:
		return whence, nil
	default:
		return 0, errors.Fatal("rmt: invalid whence")
	}
}

func encodeSeek(whence int, offset int64) ([]byte, error) {
	w, err := encodeWhence(whence)
	if err != nil {
		return nil, err
	}
	return []byte("L" + strconv.Itoa(w) + "\n" + strconv.FormatInt(offset, 10) + "\n"), nil
}

func encodeIoctlOp(op int32, count int32) []byte {
	return []byte("I" + strconv.FormatInt(int64(op), 10) + "\n" + strconv.FormatInt(int64(count), 10) + "\n")
}

// encodeIoctlGet is the legacy "S" command: no trailing newline, per §9's
// open question -- this is deliberate, not an omission.
func encodeIoctlGet() []byte {
	return []byte("S")
}

// statusLineLimit is the maximum number of bytes read while looking for the
// status line's terminating newline. A line that fills this buffer without
// a newline desynchronises the connection.
const statusLineLimit = 64

// statusKind distinguishes the three reply shapes from §3.
type statusKind byte

const (
	statusAck statusKind = 'A'
	statusErr statusKind = 'E'
	statusFatal statusKind = 'F'
)

// parseStatusLine strips leading spaces and classifies the first
// non-space byte. The remainder (without the leading letter) is returned
// for the caller to decode further.
func parseStatusLine(line []byte) (statusKind, []byte, error) {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	if i >= len(line) {
		return 0, nil, errors.Fatal("rmt: empty status line")
	}

	switch line[i] {
	case 'A':
		return statusAck, line[i+1:], nil
	case 'E':
		return statusErr, line[i+1:], nil
	case 'F':
		return statusFatal, line[i+1:], nil
	default:
		return 0, nil, errors.Fatal("rmt: desynchronised connection: unexpected status byte " + strconv.Quote(string(line[i])))
	}
}

// parseAckCount parses the decimal remainder of an "A" reply as a count
// that must fit in an int32 and be non-negative (used by read/write/ioctl-op
// acks, whose counts are always small relative to a single command).
func parseAckCount(rest []byte) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(rest)), 10, 32)
	if err != nil {
		return 0, errors.Wrap(errors.Fatal("rmt: malformed ack count"), err.Error())
	}
	if n < 0 {
		return 0, errors.Fatal("rmt: negative ack count")
	}
	return n, nil
}

// parseAckOffset parses the decimal remainder of an "A" reply as a wide
// signed file offset, detecting overflow of the 64-bit range explicitly
// (ParseInt itself returns a range error in that case, which is surfaced as
// an IO error per §4.2).
func parseAckOffset(rest []byte) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(rest)), 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.Fatal("rmt: offset overflow or malformed ack"), err.Error())
	}
	if n < 0 {
		return 0, errors.Fatal("rmt: negative ack offset")
	}
	return n, nil
}

// parseErrno parses the decimal remainder of an "E"/"F" reply. Values <= 0
// are treated as an IO error per §4.2, since a peer-reported errno must be a
// positive errno value.
func parseErrno(rest []byte) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(rest)), 10, 32)
	if err != nil {
		return 0, errors.Wrap(errors.Fatal("rmt: malformed errno"), err.Error())
	}
	if n <= 0 {
		return 0, errors.Fatal("rmt: non-positive errno")
	}
	return int(n), nil
}
