package main

import (
	"errors"
	"fmt"

	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/engine"
	"github.com/tartampluch/bday/internal/store"
	"github.com/urfave/cli/v2"
)

// usageError marks invalid command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	return &usageError{err: err}
}

// commandError is a failure while executing a well-formed command.
type commandError struct {
	kind string
	err  error
}

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

// fail wraps err as a command failure. Store and zone errors are reported under
// their own kind whatever the command.
func fail(kind string, err error) error {
	var (
		tzErr    *engine.UnknownTimezoneError
		parseErr *store.ParseError
		ioErr    *store.IOError
	)
	switch {
	case errors.As(err, &tzErr):
		kind = config.ErrKindTimezone
	case errors.As(err, &parseErr):
		kind = config.ErrKindParse
	case errors.As(err, &ioErr):
		kind = config.ErrKindIO
	}
	return &commandError{kind: kind, err: err}
}

// onUsageError turns flag parsing failures into usage errors.
func onUsageError(_ *cli.Context, err error, _ bool) error {
	return usage(err)
}

// exitCodeFor is the single place where errors become exit codes. Anything that
// did not come out of a command action was raised by the argument parser.
func exitCodeFor(err error) int {
	var (
		uerr *usageError
		cerr *commandError
	)
	switch {
	case err == nil:
		return config.ExitCodeSuccess
	case errors.As(err, &uerr):
		return config.ExitCodeUsage
	case errors.As(err, &cerr):
		return config.ExitCodeConfig
	default:
		return config.ExitCodeUsage
	}
}

// describe renders err as one line prefixed with its kind.
func describe(err error) string {
	var cerr *commandError
	if errors.As(err, &cerr) {
		return fmt.Sprintf("%s: %v", cerr.kind, cerr.err)
	}
	return fmt.Sprintf("%s: %v (%s)", config.ErrKindUsage, err, config.HintUsage)
}
