// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSpawn matches every SpawnError.
	ErrSpawn = errors.New("bridge spawn failed")

	// ErrExit matches every ExitError.
	ErrExit = errors.New("bridge exited")
)

// SpawnError reports that the bridge process could not be created: the
// binary is missing, not executable, fails digest verification, or the
// scratch directory cannot be prepared.
type SpawnError struct {
	BinaryPath string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("supervisor: starting bridge %s: %v", e.BinaryPath, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSpawn.
func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// ExitError reports that the bridge exited after it was launched.
type ExitError struct {
	// Code is the exit status, or -1 when the process was killed by a
	// signal or could not be waited on.
	Code int

	// Output holds the last lines the bridge wrote before exiting.
	Output []string
}

func (e *ExitError) Error() string {
	message := fmt.Sprintf("supervisor: bridge exited with code %d", e.Code)
	if len(e.Output) > 0 {
		message += ": " + strings.TrimSpace(e.Output[len(e.Output)-1])
	}
	return message
}

// Is reports whether target is ErrExit.
func (e *ExitError) Is(target error) bool { return target == ErrExit }
