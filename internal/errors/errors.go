// Package errors provides the error handling used across the rmt client. It
// re-exports the parts of github.com/pkg/errors that the rest of the code
// needs plus a notion of "fatal" errors: ones that must never be retried by
// a caller, regardless of how transient they might otherwise look.
package errors

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// New, Errorf, Wrap, Wrapf and WithStack are re-exported from
// github.com/pkg/errors so call sites don't need to import both packages.
var (
	New    = pkgerrors.New
	Errorf = pkgerrors.Errorf
	Wrap   = pkgerrors.Wrap
	Wrapf  = pkgerrors.Wrapf

	WithStack = pkgerrors.WithStack
	Cause     = pkgerrors.Cause
)

// Is and As are re-exported from the standard errors package.
var (
	Is = errors.Is
	As = errors.As
)

// fatalError marks an error that must not be retried by any caller-side
// retry logic: the session producing it is dead and trying again cannot
// help.
type fatalError struct {
	msg string
}

func (e *fatalError) Error() string {
	return e.msg
}

// Fatal returns an error that reports true for IsFatal.
func Fatal(s string) error {
	return &fatalError{msg: s}
}

// Fatalf is like Fatal but with fmt.Sprintf-style formatting.
func Fatalf(s string, args ...interface{}) error {
	return &fatalError{msg: pkgerrors.Errorf(s, args...).Error()}
}

// IsFatal returns whether err is a fatal error produced by Fatal or Fatalf.
func IsFatal(err error) bool {
	var f *fatalError
	return As(err, &f)
}
