// Package debug implements the rmt client's debug logging. Unlike a large
// multi-package codebase with hundreds of call sites needing per-file or
// per-function selectivity, this client has a handful of call sites (short
// read/write, privilege-drop fallback, remote-shell stderr) that are either
// all worth seeing or not -- so logging here is a single on/off switch,
// optionally redirected to a file for a caller that doesn't want the noise
// on stderr.
package debug

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
)

var (
	enabled bool
	logger  *log.Logger
)

// make sure initialization runs before any init() functions that might call
// Log, cf https://golang.org/ref/spec#Package_initialization
var _ = initDebug()

func initDebug() bool {
	if debugfile := os.Getenv("RMT_DEBUG_LOG"); debugfile != "" {
		f, err := os.OpenFile(debugfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to open debug log file: %v\n", err)
			os.Exit(2)
		}
		logger = log.New(f, "", log.LstdFlags)
		enabled = true
		return true
	}

	if os.Getenv("RMT_DEBUG") != "" {
		logger = log.New(os.Stderr, "", log.LstdFlags)
		enabled = true
	}

	return enabled
}

// Log prints a message tagged with its caller's file and line, if debugging
// has been enabled via RMT_DEBUG or RMT_DEBUG_LOG. It is a no-op call with
// negligible cost otherwise.
func Log(f string, args ...interface{}) {
	if !enabled {
		return
	}

	pos := "???"
	if _, file, line, ok := runtime.Caller(1); ok {
		pos = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	if len(f) == 0 || f[len(f)-1] != '\n' {
		f += "\n"
	}

	logger.Printf("%s\t%s", pos, fmt.Sprintf(f, args...))
}
