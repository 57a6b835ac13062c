// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package launcher

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/invowk/paxrun/internal/pipe"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"golang.org/x/term"
)

// startPTY starts cmd on a new pseudo-terminal. When the console input is a
// terminal it is switched to raw mode for the lifetime of the launch and the
// child's window size follows it.
func startPTY(cmd *exec.Cmd, opts Options, logger *log.Logger) (*console, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	con := &console{cleanups: []func(){closeQuietly(logger, ptmx)}}

	if tty, ok := opts.Stdin.(*os.File); ok && term.IsTerminal(int(tty.Fd())) {
		con.cleanups = append(con.cleanups, followWindowSize(tty, ptmx, logger))

		fd := int(tty.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			logger.Warn("cannot switch console to raw mode", "err", err)
		} else {
			con.cleanups = append(con.cleanups, func() {
				if err := term.Restore(fd, state); err != nil {
					logger.Debug("restore console", "err", err)
				}
			})
		}
	}

	if opts.Stdin != nil {
		con.input = pipe.New("pty-in", opts.Stdin, ptmx, pipe.WithLogger(logger))
	}
	if opts.Stdout != nil {
		con.outputs = append(con.outputs, pipe.New("pty-out", ptmx, opts.Stdout, pipe.WithLogger(logger)))
	}

	if err := con.start(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		con.close(0, logger)
		return nil, err
	}
	return con, nil
}

// followWindowSize copies the size of tty onto ptmx now and on every SIGWINCH.
// The returned func stops following.
func followWindowSize(tty, ptmx *os.File, logger *log.Logger) func() {
	resize := func() {
		if err := pty.InheritSize(tty, ptmx); err != nil {
			logger.Debug("resize pty", "err", err)
		}
	}
	resize()

	winch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for {
			select {
			case <-winch:
				resize()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(winch)
		close(done)
	}
}
