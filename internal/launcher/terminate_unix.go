// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package launcher

import (
	"os"
	"syscall"
)

// interrupt asks the process to shut down cleanly.
func interrupt(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
