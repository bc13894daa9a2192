//go:build windows

package rmt

import (
	"bufio"
	"os/exec"
	"path/filepath"

	"github.com/gopherarchive/rmt/internal/debug"
	"github.com/gopherarchive/rmt/internal/errors"
)

// spawnRemoteShell spawns the remote shell without attempting any privilege
// drop: Windows has no POSIX uid/gid model for §4.4 step 5 to apply to, so
// the child simply inherits the parent's security context, matching the
// teacher's own "just start the process and hope for the best" fallback for
// platform-specific process setup (internal/backend/foreground_windows.go).
func spawnRemoteShell(cfg Config, ep Endpoint) (*spawnedShell, error) {
	args := buildShellArgs(ep, cfg)

	cmd := &exec.Cmd{
		Path: cfg.RemoteShell,
		Args: append([]string{filepath.Base(cfg.RemoteShell)}, args...),
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "cmd.StderrPipe")
	}

	wr, err := cmd.StdinPipe()
	if err != nil {
		_ = stderr.Close()
		return nil, errors.Wrap(err, "cmd.StdinPipe")
	}

	rd, err := cmd.StdoutPipe()
	if err != nil {
		_ = stderr.Close()
		_ = wr.Close()
		return nil, errors.Wrap(err, "cmd.StdoutPipe")
	}

	if err := cmd.Start(); err != nil {
		_ = stderr.Close()
		_ = wr.Close()
		_ = rd.Close()
		return nil, errors.Wrap(err, "cmd.Start")
	}

	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			debug.Log("rmt: remote shell stderr: %s", sc.Text())
		}
	}()

	return &spawnedShell{rd: rd, wr: wr, cmd: cmd}, nil
}
