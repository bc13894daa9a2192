package rmt

// DefaultRemoteCommand is the build-time default path of the rmt helper
// invoked on the remote host when Config.RemoteCommand is unset, matching
// the historical rmt(8) installation path.
const DefaultRemoteCommand = "/etc/rmt"

// Config collects the knobs the surrounding archive engine exposes to the
// core, per §6.
type Config struct {
	// RemoteShell is the absolute path of the transport binary (e.g. an ssh
	// or rsh client). If empty, Open fails with an IO error.
	RemoteShell string

	// RemoteCommand is the absolute path of the rmt helper to run on the
	// remote host. Empty selects DefaultRemoteCommand.
	RemoteCommand string

	// ForceLocal, if true, suppresses any interpretation of "host:file"
	// syntax; callers are expected to check this before ever calling into
	// this package, per §9's open question -- the core itself has no
	// local-file code path to fall back to.
	ForceLocal bool

	// Bias is added to handles returned to callers, so archive code can
	// distinguish remote descriptors from local ones by numeric range.
	Bias int
}

func (c Config) remoteCommand() string {
	if c.RemoteCommand != "" {
		return c.RemoteCommand
	}
	return DefaultRemoteCommand
}
