// Command rmtclient is a small diagnostic tool for poking at an rmt server
// by hand, in the spirit of the teacher's cmd/restic command tree and
// pkg/sftp's examples/gsftp: it is not an archive engine, just a thin shell
// around the protocol client for manual testing.
package main

import (
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/gopherarchive/rmt/internal/rmt"
)

// openWithRetry retries conn.Open() with exponential backoff, for callers
// driving this tool against a shell/network that flakes on the initial
// connect. A *rmt.PeerError means the remote itself answered and rejected
// the open (e.g. ENOENT on the tape file); retrying a rejection the remote
// already gave us a definitive answer to would just burn time, so that case
// is wrapped in backoff.Permanent to stop immediately.
func openWithRetry(conn *rmt.Connection, retries int) error {
	if retries <= 0 {
		return conn.Open()
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries))
	return backoff.Retry(func() error {
		err := conn.Open()
		if err == nil {
			return nil
		}
		if pe, ok := err.(*rmt.PeerError); ok {
			return backoff.Permanent(pe)
		}
		return err
	}, b)
}

var globalCfg rmt.Config

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rmtclient:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rmtclient",
		Short: "manually drive an rmt protocol connection",
	}

	flags := root.PersistentFlags()
	flags.StringVar(&globalCfg.RemoteShell, "remote-shell", "", "path to the remote-shell binary (e.g. ssh)")
	flags.StringVar(&globalCfg.RemoteCommand, "remote-command", "", "path to the rmt helper on the remote host")
	flags.IntVar(&globalCfg.Bias, "bias", 0, "additive offset applied to returned handles")

	root.AddCommand(newSessionCmd())
	root.AddCommand(newBenchCmd())

	return root
}

// newSessionCmd opens a connection, performs one operation, and closes it
// again: each invocation is a fresh process, matching the protocol's own
// stateless-per-invocation feel when driven from a shell.
func newSessionCmd() *cobra.Command {
	var (
		readLen     int
		writeStr    string
		seekOff     int64
		seekWhence  int
		ioctlOp     int32
		ioctlCnt    int32
		doGet       bool
		openRetries int
	)

	cmd := &cobra.Command{
		Use:   "session [user@]host:file",
		Short: "open a connection, run the requested operation, and close it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rmt.NewConnection(args[0], rmt.O_RDWR, globalCfg)
			if err != nil {
				return err
			}

			if err := openWithRetry(conn, openRetries); err != nil {
				return err
			}
			defer conn.Close()

			switch {
			case readLen > 0:
				buf := make([]byte, readLen)
				n, err := conn.Read(buf)
				if err != nil {
					return err
				}
				fmt.Printf("read %d bytes: %q\n", n, buf[:n])
			case writeStr != "":
				n, err := conn.Write([]byte(writeStr))
				if err != nil {
					return err
				}
				fmt.Printf("wrote %d bytes\n", n)
			case doGet:
				_, get, err := conn.Ioctl(rmt.MTIOCGET, rmt.MTOp{})
				if err != nil {
					return err
				}
				fmt.Printf("status: %+v\n", get)
			case ioctlOp != 0:
				n, _, err := conn.Ioctl(rmt.MTIOCTOP, rmt.MTOp{Op: ioctlOp, Count: ioctlCnt})
				if err != nil {
					return err
				}
				fmt.Printf("ioctl ack %d\n", n)
			default:
				off, err := conn.Seek(seekOff, seekWhence)
				if err != nil {
					return err
				}
				fmt.Printf("seeked to %d\n", off)
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&readLen, "read", 0, "read this many bytes")
	f.StringVar(&writeStr, "write", "", "write this string")
	f.Int64Var(&seekOff, "seek", 0, "seek to this offset")
	f.IntVar(&seekWhence, "whence", 0, "seek whence: 0=set 1=cur 2=end")
	f.Int32Var(&ioctlOp, "ioctl-op", 0, "issue this MTIOCTOP operation code")
	f.Int32Var(&ioctlCnt, "ioctl-count", 1, "repeat count for --ioctl-op")
	f.BoolVar(&doGet, "status", false, "fetch MTIOCGET status")
	f.IntVar(&openRetries, "open-retries", 0, "retry a failed open this many times with exponential backoff")

	return cmd
}

// newBenchCmd opens N connections concurrently, bounded to the handle
// table's fixed capacity, to exercise the allocate/release contention path
// (C1) the way the teacher's mkdirAllDataSubdirs exercises concurrent sftp
// round trips with errgroup.
func newBenchCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "bench [user@]host:file",
		Short: "open and close N connections concurrently via errgroup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return benchConcurrentOpens(args[0], globalCfg, n)
		},
	}

	cmd.Flags().IntVar(&n, "n", rmt.MaxConnections*2, "number of connections to attempt")
	return cmd
}
