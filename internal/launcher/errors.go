// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"fmt"
)

const (
	// PhaseSynthesis covers writing the bootstrap file and building the command.
	PhaseSynthesis Phase = "synthesis"
	// PhaseSpawn covers locating the JVM, starting it and attaching the console.
	PhaseSpawn Phase = "spawn"
)

var (
	// ErrSynthesis is wrapped by every PhaseError raised during synthesis.
	ErrSynthesis = errors.New("bootstrap synthesis failed")
	// ErrSpawn is wrapped by every PhaseError raised during spawn.
	ErrSpawn = errors.New("process spawn failed")
	// ErrNoWorkDir is returned by New when Options.WorkDir is empty.
	ErrNoWorkDir = errors.New("work directory not set")
	// ErrAlreadyRun is returned when Run is called twice on one Launcher.
	ErrAlreadyRun = errors.New("launcher already ran")
)

type (
	// Phase names the step of a launch that failed.
	Phase string

	// PhaseError reports a fatal launch failure and the phase it happened in.
	// It matches both the phase sentinel and the underlying cause with errors.Is.
	PhaseError struct {
		Phase Phase
		Err   error
	}

	// ExitError is returned when the framework exits on its own with a
	// non-zero status.
	ExitError struct {
		Code int
		Err  error
	}
)

// Error implements the error interface.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

// Unwrap returns the phase sentinel and the cause.
func (e *PhaseError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *PhaseError) sentinel() error {
	if e.Phase == PhaseSpawn {
		return ErrSpawn
	}
	return ErrSynthesis
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("framework exited with code %d", e.Code)
}

// Unwrap returns the underlying *exec.ExitError.
func (e *ExitError) Unwrap() error {
	return e.Err
}
