package rmt

import (
	"strings"

	"github.com/gopherarchive/rmt/internal/errors"
)

// Endpoint is the parsed form of "[user@]host:file". All three fields are
// owned strings; User is empty when absent. Grounded on the teacher's own
// "[user@]host:path" parser (internal/backend/sftp/config.go's
// "sftp:user@host:path" branch): a single left-to-right pass over one owned
// buffer, splitting on the first '@' before the first ':' and ignoring any
// further occurrences of either separator.
type Endpoint struct {
	User string
	Host string
	File string
}

// ErrInvalidName reports a malformed "[user@]host:file" string: empty,
// containing a newline, or missing the ':' that separates host from file.
var ErrInvalidName = errors.New("no such file or directory")

// ParseEndpoint parses name as "[user@]host:file". The file portion is
// mandatory and must follow the first ':'; everything before the first '@'
// (if any occurs before that ':') is the user. Newlines anywhere make the
// name unusable, since the wire protocol is newline-delimited and a
// filename containing one could never be framed unambiguously.
func ParseEndpoint(name string) (Endpoint, error) {
	if name == "" {
		return Endpoint{}, ErrInvalidName
	}
	if strings.ContainsRune(name, '\n') {
		return Endpoint{}, errors.Wrap(ErrInvalidName, "name contains a newline")
	}

	rest := name
	var user string
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		if colon := strings.IndexByte(rest, ':'); colon < 0 || at < colon {
			user = rest[:at]
			rest = rest[at+1:]
		}
	}

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return Endpoint{}, errors.Wrap(ErrInvalidName, "missing ':' before file name")
	}

	host := rest[:colon]
	file := rest[colon+1:]

	if host == "" {
		return Endpoint{}, errors.Wrap(ErrInvalidName, "empty host")
	}
	if file == "" {
		return Endpoint{}, errors.Wrap(ErrInvalidName, "empty file name")
	}

	return Endpoint{User: user, Host: host, File: file}, nil
}
