// SPDX-License-Identifier: MPL-2.0

//go:build windows

package launcher

import (
	"os/exec"

	"github.com/charmbracelet/log"
)

// startPTY falls back to pipes; Windows has no pseudo-terminal to attach a JVM to.
func startPTY(cmd *exec.Cmd, opts Options, logger *log.Logger) (*console, error) {
	logger.Warn("pty mode is not supported on windows, using pipes")
	return startPipes(cmd, opts, logger)
}
