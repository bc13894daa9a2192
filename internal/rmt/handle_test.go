package rmt

import (
	"io"
	"sync"
	"testing"
)

type nopCloser struct{ closed bool }

func (c *nopCloser) Read(p []byte) (int, error)  { return 0, io.EOF }
func (c *nopCloser) Write(p []byte) (int, error) { return len(p), nil }
func (c *nopCloser) Close() error                { c.closed = true; return nil }

func TestAllocateFillsSlotsInAscendingOrder(t *testing.T) {
	tbl := &handleTable{}

	var closers []*nopCloser
	for i := 0; i < MaxConnections; i++ {
		c := &nopCloser{}
		closers = append(closers, c)
		h, err := tbl.allocate(c, c)
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if h != i {
			t.Fatalf("allocate %d returned handle %d, want deterministic %d", i, h, i)
		}
	}

	if _, err := tbl.allocate(&nopCloser{}, &nopCloser{}); err != ErrTooManyOpen {
		t.Fatalf("allocate on full table = %v, want ErrTooManyOpen", err)
	}
}

func TestReleaseFreesSlotForReuse(t *testing.T) {
	tbl := &handleTable{}
	c1 := &nopCloser{}
	h, err := tbl.allocate(c1, c1)
	if err != nil {
		t.Fatal(err)
	}

	tbl.release(h)
	if !c1.closed {
		t.Fatal("release did not close the endpoint")
	}

	c2 := &nopCloser{}
	h2, err := tbl.allocate(c2, c2)
	if err != nil {
		t.Fatal(err)
	}
	if h2 != h {
		t.Fatalf("reused handle = %d, want %d (lowest free slot)", h2, h)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	tbl := &handleTable{}
	c := &nopCloser{}
	h, err := tbl.allocate(c, c)
	if err != nil {
		t.Fatal(err)
	}

	tbl.release(h)
	tbl.release(h) // must not panic or double-close in a way that errors.
	tbl.release(999)
	tbl.release(-1)
}

func TestEndpointsOnUnusedHandleFails(t *testing.T) {
	tbl := &handleTable{}
	if _, _, err := tbl.endpoints(0); err == nil {
		t.Fatal("expected error for unused handle")
	}
	if _, _, err := tbl.endpoints(MaxConnections); err == nil {
		t.Fatal("expected error for out-of-range handle")
	}
}

func TestNewlyAllocatedSlotEndpointsAreBothSentinelBeforeUse(t *testing.T) {
	tbl := &handleTable{}
	for i := range tbl.slots {
		if tbl.slots[i].inUse() {
			t.Fatalf("slot %d is in use before any allocation", i)
		}
	}
}

// TestAllocateIsSafeForConcurrentCallers exercises the same contention path
// cmd/rmtclient's bench subcommand drives against the package-level table:
// many goroutines racing allocate/release against a shared handleTable.
// Before mu guarded the slot scan, two goroutines could observe the same
// free slot and both write it, handing out the same handle twice while both
// sessions were still supposedly live.
func TestAllocateIsSafeForConcurrentCallers(t *testing.T) {
	tbl := &handleTable{}

	var mu sync.Mutex
	live := make(map[int]bool)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c := &nopCloser{}
				h, err := tbl.allocate(c, c)
				if err == ErrTooManyOpen {
					continue
				}
				if err != nil {
					t.Errorf("allocate: %v", err)
					continue
				}

				mu.Lock()
				if live[h] {
					t.Errorf("handle %d allocated twice while still in use", h)
				}
				live[h] = true
				mu.Unlock()

				mu.Lock()
				delete(live, h)
				mu.Unlock()

				tbl.release(h)
			}
		}()
	}
	wg.Wait()
}

func TestHasCapacity(t *testing.T) {
	tbl := &handleTable{}
	if !tbl.hasCapacity() {
		t.Fatal("empty table should have capacity")
	}

	for i := 0; i < MaxConnections; i++ {
		c := &nopCloser{}
		if _, err := tbl.allocate(c, c); err != nil {
			t.Fatal(err)
		}
	}

	if tbl.hasCapacity() {
		t.Fatal("full table should report no capacity")
	}
}
