//go:build !windows

package rmt

import (
	"bufio"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gopherarchive/rmt/internal/debug"
	"github.com/gopherarchive/rmt/internal/errors"
)

// spawnRemoteShell implements §4.4 steps 3-6: it builds the remote-shell
// argv, wires bidirectional pipes, and starts the child with its privileges
// dropped to the real uid/gid.
//
// Rather than hand-rolling fork(2) and calling setgroups/setgid/setuid
// between fork and exec (the historical C approach), this uses
// os/exec.Cmd's SysProcAttr.Credential: the Go runtime performs exactly that
// sequence -- setgroups, then setgid, then setuid -- in the forked child
// before exec, which is both the idiomatic Go mechanism for this and an
// exact match for the ordering spec.md §4.4 step 5 describes.
func spawnRemoteShell(cfg Config, ep Endpoint) (*spawnedShell, error) {
	args := buildShellArgs(ep, cfg)
	base := filepath.Base(cfg.RemoteShell)

	cred, err := realCredential()
	if err != nil {
		debug.Log("rmt: could not determine privilege-drop credential: %v", err)
	}

	shell, err := startShell(cfg.RemoteShell, base, args, cred)
	if err != nil && cred != nil && isPermissionDenied(err) {
		// §4.4 step 5: EPERM while dropping privileges is tolerated --
		// best effort when the process is not privileged enough to change
		// uid/gid in the first place. Retry once without attempting the
		// drop.
		debug.Log("rmt: privilege drop failed with EPERM, retrying without it")
		shell, err = startShell(cfg.RemoteShell, base, args, nil)
	}
	if err != nil {
		return nil, err
	}

	return shell, nil
}

// startShell starts one attempt at spawning the remote shell with the given
// credential (nil meaning "don't touch privileges").
func startShell(path, argv0 string, args []string, cred *syscall.Credential) (*spawnedShell, error) {
	cmd := &exec.Cmd{
		Path: path,
		Args: append([]string{argv0}, args...),
	}

	if cred != nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
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

// realCredential builds the syscall.Credential that drops the child to the
// real uid/gid and the real uid's supplementary groups, per §4.4 step 5. It
// returns nil (no drop attempted) when the effective and real ids already
// match, since there would be nothing to drop.
func realCredential() (*syscall.Credential, error) {
	ruid, euid := os.Getuid(), os.Geteuid()
	rgid, egid := os.Getgid(), os.Getegid()

	if ruid == euid && rgid == egid {
		return nil, nil
	}

	u, err := user.LookupId(strconv.Itoa(ruid))
	if err != nil {
		return nil, errors.Wrap(err, "user.LookupId")
	}

	groupIDs, err := u.GroupIds()
	if err != nil {
		return nil, errors.Wrap(err, "GroupIds")
	}

	groups := make([]uint32, 0, len(groupIDs))
	for _, g := range groupIDs {
		n, err := strconv.Atoi(g)
		if err != nil {
			continue
		}
		groups = append(groups, uint32(n))
	}

	return &syscall.Credential{
		Uid:         uint32(ruid),
		Gid:         uint32(rgid),
		Groups:      groups,
		NoSetGroups: false,
	}, nil
}

func isPermissionDenied(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM)
}
