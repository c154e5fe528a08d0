// Package xerror wraps github.com/pkg/errors with the small surface the
// rest of the module needs.
package xerror

import (
	"github.com/pkg/errors"
)

// Wrap annotates err with message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// WithStack records the caller's stack on err.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// Cause returns the innermost error of a wrap chain.
func Cause(err error) error {
	return errors.Cause(err)
}

func Assert(err error) {
	if err != nil {
		panic(err)
	}
}
