package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gopherarchive/rmt/internal/rmt"
)

// benchConcurrentOpens opens n connections to name concurrently (bounded to
// the handle table's capacity), reads its status, and closes each one, to
// give a quick sense of how the table behaves once it fills up.
func benchConcurrentOpens(name string, cfg rmt.Config, n int) error {
	g := new(errgroup.Group)
	g.SetLimit(rmt.MaxConnections)

	results := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			conn, err := rmt.NewConnection(name, rmt.O_RDONLY, cfg)
			if err != nil {
				results[i] = err
				return nil
			}

			if err := conn.Open(); err != nil {
				results[i] = err
				return nil
			}
			defer conn.Close()

			_, _, err = conn.Ioctl(rmt.MTIOCGET, rmt.MTOp{})
			results[i] = err
			return nil
		})
	}

	// g.Wait only ever returns an error from a Go func that itself returns
	// one; this bench intentionally swallows per-connection errors into
	// results so one slow/failed peer doesn't abort the others.
	_ = g.Wait()

	ok := 0
	for i, err := range results {
		if err == nil {
			ok++
			continue
		}
		fmt.Printf("connection %d: %v\n", i, err)
	}
	fmt.Printf("%d/%d connections succeeded\n", ok, n)
	return nil
}
