package rmt

import (
	"strings"
	"testing"
)

func TestEncodeOpenFlagsAccessModeAgreement(t *testing.T) {
	// For every valid combination of flags, the numeric and symbolic forms
	// must agree, and exactly one access mode name must appear, per
	// spec.md §8's invariant.
	cases := []struct {
		flags OpenFlags
		want  string
	}{
		{O_RDONLY, "O_RDONLY"},
		{O_WRONLY, "O_WRONLY"},
		{O_RDWR, "O_RDWR"},
		{O_WRONLY | O_CREAT | O_TRUNC, "O_WRONLY|O_CREAT|O_TRUNC"},
		{O_RDONLY | O_NONBLOCK, "O_RDONLY|O_NONBLOCK"},
		{O_WRONLY | O_CREAT | O_EXCL | O_APPEND | O_SYNC, "O_WRONLY|O_CREAT|O_EXCL|O_APPEND|O_SYNC"},
	}

	for _, c := range cases {
		numeric, symbolic := encodeOpenFlags(c.flags)
		if numeric != int(c.flags) {
			t.Errorf("flags %v: numeric form %d != input %d", c.flags, numeric, int(c.flags))
		}
		if symbolic != c.want {
			t.Errorf("flags %v: symbolic form %q, want %q", c.flags, symbolic, c.want)
		}

		modes := 0
		for _, name := range []string{"O_RDONLY", "O_WRONLY", "O_RDWR"} {
			if strings.Contains(symbolic, name) {
				modes++
			}
		}
		if modes != 1 {
			t.Errorf("flags %v: symbolic form %q names %d access modes, want exactly 1", c.flags, symbolic, modes)
		}
	}
}

func TestEncodeOpen(t *testing.T) {
	got := string(encodeOpen("/dev/tape", O_RDONLY))
	want := "O/dev/tape\n0 O_RDONLY\n"
	if got != want {
		t.Fatalf("encodeOpen() = %q, want %q", got, want)
	}
}

func TestEncodeClose(t *testing.T) {
	if got, want := string(encodeClose()), "C\n"; got != want {
		t.Fatalf("encodeClose() = %q, want %q", got, want)
	}
}

func TestEncodeRead(t *testing.T) {
	if got, want := string(encodeRead(100)), "R100\n"; got != want {
		t.Fatalf("encodeRead() = %q, want %q", got, want)
	}
}

func TestEncodeWriteHeader(t *testing.T) {
	if got, want := string(encodeWriteHeader(10)), "W10\n"; got != want {
		t.Fatalf("encodeWriteHeader() = %q, want %q", got, want)
	}
}

func TestEncodeSeek(t *testing.T) {
	buf, err := encodeSeek(seekCur, -5)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(buf), "L1\n-5\n"; got != want {
		t.Fatalf("encodeSeek() = %q, want %q", got, want)
	}

	if _, err := encodeSeek(99, 0); err == nil {
		t.Fatal("expected error for invalid whence")
	}
}

func TestEncodeIoctlOp(t *testing.T) {
	if got, want := string(encodeIoctlOp(1, 3)), "I1\n3\n"; got != want {
		t.Fatalf("encodeIoctlOp() = %q, want %q", got, want)
	}
}

func TestEncodeIoctlGetHasNoTrailingNewline(t *testing.T) {
	// §9's open question: "S" is deliberately sent with no newline, unlike
	// every other command.
	if got, want := string(encodeIoctlGet()), "S"; got != want {
		t.Fatalf("encodeIoctlGet() = %q, want %q", got, want)
	}
}

func TestParseStatusLine(t *testing.T) {
	cases := []struct {
		line     string
		wantKind statusKind
		wantRest string
		wantErr  bool
	}{
		{"A0", statusAck, "0", false},
		{"  A42", statusAck, "42", false},
		{"E13", statusErr, "13", false},
		{"  F5", statusFatal, "5", false},
		{"Xnonsense", 0, "", true},
		{"   ", 0, "", true},
		{"", 0, "", true},
	}

	for _, c := range cases {
		kind, rest, err := parseStatusLine([]byte(c.line))
		if c.wantErr {
			if err == nil {
				t.Errorf("parseStatusLine(%q): expected error, got none", c.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseStatusLine(%q): unexpected error %v", c.line, err)
			continue
		}
		if kind != c.wantKind || string(rest) != c.wantRest {
			t.Errorf("parseStatusLine(%q) = (%c, %q), want (%c, %q)", c.line, kind, rest, c.wantKind, c.wantRest)
		}
	}
}

func TestParseAckCount(t *testing.T) {
	if n, err := parseAckCount([]byte("42")); err != nil || n != 42 {
		t.Fatalf("parseAckCount(42) = (%d, %v)", n, err)
	}
	if _, err := parseAckCount([]byte("-1")); err == nil {
		t.Fatal("expected error for negative ack count")
	}
	if _, err := parseAckCount([]byte("not a number")); err == nil {
		t.Fatal("expected error for malformed ack count")
	}
}

func TestParseAckOffsetOverflow(t *testing.T) {
	if _, err := parseAckOffset([]byte("99999999999999999999999999")); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestParseErrno(t *testing.T) {
	if n, err := parseErrno([]byte("13")); err != nil || n != 13 {
		t.Fatalf("parseErrno(13) = (%d, %v)", n, err)
	}
	if _, err := parseErrno([]byte("0")); err == nil {
		t.Fatal("expected error for non-positive errno")
	}
	if _, err := parseErrno([]byte("-5")); err == nil {
		t.Fatal("expected error for non-positive errno")
	}
}
