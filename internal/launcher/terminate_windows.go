// SPDX-License-Identifier: MPL-2.0

//go:build windows

package launcher

import "os"

// interrupt kills the process; Windows cannot deliver SIGTERM to a JVM.
func interrupt(proc *os.Process) error {
	return proc.Kill()
}
