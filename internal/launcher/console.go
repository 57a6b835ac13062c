// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/invowk/paxrun/internal/pipe"

	"github.com/charmbracelet/log"
)

// console is the set of bridges attached to one child process.
type console struct {
	input    *pipe.Pipe
	outputs  []*pipe.Pipe
	cleanups []func()
}

func (c *console) start() error {
	if c.input != nil {
		if err := c.input.Start(); err != nil {
			return err
		}
	}
	for _, p := range c.outputs {
		if err := p.Start(); err != nil {
			return err
		}
	}
	return nil
}

// close stops the input bridge, lets the output bridges drain what the child
// wrote before exiting, then releases the parent's stream ends.
func (c *console) close(drain time.Duration, logger *log.Logger) {
	if c.input != nil {
		c.input.Stop()
	}

	timer := time.NewTimer(drain)
	defer timer.Stop()
	for _, p := range c.outputs {
		select {
		case <-p.Done():
		case <-timer.C:
			logger.Debug("output still open after child exit", "pipe", p.Name())
		}
		p.Stop()
		if err := p.Wait(); err != nil {
			logger.Debug("output bridge ended", "pipe", p.Name(), "err", err)
		}
	}

	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
}

func closeQuietly(logger *log.Logger, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Debug("close stream", "err", err)
		}
	}
}

// startPipes starts cmd with one OS pipe per standard stream and bridges them
// to the configured console streams.
func startPipes(cmd *exec.Cmd, opts Options, logger *log.Logger) (*console, error) {
	con := &console{}
	var childEnds []*os.File
	fail := func(err error) (*console, error) {
		for _, f := range childEnds {
			_ = f.Close()
		}
		for _, fn := range con.cleanups {
			fn()
		}
		return nil, err
	}

	if opts.Stdin != nil {
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}
		cmd.Stdin = r
		childEnds = append(childEnds, r)
		con.cleanups = append(con.cleanups, closeQuietly(logger, w))
		// EOF on the console closes the child's stdin.
		con.input = pipe.New("stdin", opts.Stdin, w,
			pipe.WithLogger(logger),
			pipe.WithOnExit(closeQuietly(logger, w)))
	}

	for _, out := range []struct {
		name string
		dst  io.Writer
		set  func(*os.File)
	}{
		{"stdout", opts.Stdout, func(f *os.File) { cmd.Stdout = f }},
		{"stderr", opts.Stderr, func(f *os.File) { cmd.Stderr = f }},
	} {
		if out.dst == nil {
			continue
		}
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}
		out.set(w)
		childEnds = append(childEnds, w)
		con.cleanups = append(con.cleanups, closeQuietly(logger, r))
		con.outputs = append(con.outputs, pipe.New(out.name, r, out.dst,
			pipe.WithLogger(logger),
			pipe.WithCloseOnStop(r)))
	}

	if err := cmd.Start(); err != nil {
		return fail(err)
	}
	// The child holds its own copies now; EOF on our read ends depends on these
	// being closed.
	for _, f := range childEnds {
		_ = f.Close()
	}

	if err := con.start(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		con.close(0, logger)
		return nil, err
	}
	return con, nil
}
