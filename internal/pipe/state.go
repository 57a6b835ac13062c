// SPDX-License-Identifier: MPL-2.0

package pipe

import (
	"errors"
	"fmt"
)

const (
	// StateIdle indicates the pipe was created but Start() not called.
	StateIdle State = iota
	// StateRunning indicates the pump goroutine is forwarding bytes.
	StateRunning
	// StateStopped is terminal: the source ended or Stop() was called.
	StateStopped
)

// ErrInvalidState is returned when a State value is not one of the defined states.
var ErrInvalidState = errors.New("invalid state")

type (
	// State represents the lifecycle state of a pipe.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}
)

// String returns a human-readable representation of the pipe state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=idle, 1=running, 2=stopped)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil if the State is one of the defined states.
func (s State) Validate() error {
	switch s {
	case StateIdle, StateRunning, StateStopped:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal returns true if the state is StateStopped.
func (s State) IsTerminal() bool {
	return s == StateStopped
}
