//go:build windows

package rmt

// maskSIGPIPE is a no-op on Windows: there is no SIGPIPE to mask, since
// pipes there report broken-pipe conditions through a normal error return.
func maskSIGPIPE() func() {
	return func() {}
}
