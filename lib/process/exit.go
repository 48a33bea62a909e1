// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Replaced in tests.
var (
	osExit           = os.Exit
	exit             = osExit
	stderr io.Writer = os.Stderr
)

// Coder is implemented by errors that carry a process exit code.
type Coder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors where no logger exists.
func Fatal(err error) {
	fmt.Fprintf(stderr, "error: %v\n", err)
	exit(1)
}

// Exit terminates the process according to err. A nil err exits 0.
// An error carrying an exit code exits with that code silently: the
// command has already reported. Any other error is passed to Fatal.
func Exit(err error) {
	var coder Coder
	switch {
	case err == nil:
		exit(0)
	case errors.As(err, &coder):
		exit(coder.ExitCode())
	default:
		Fatal(err)
	}
}
