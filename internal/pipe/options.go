// SPDX-License-Identifier: MPL-2.0

package pipe

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultChunkSize bounds a single read. Small enough that interactive
	// input is forwarded as soon as it is typed.
	DefaultChunkSize = 512
	// DefaultRetryDelay is the pause after a transient I/O error.
	DefaultRetryDelay = 50 * time.Millisecond
)

// Option configures a Pipe.
type Option func(*Pipe)

// WithLogger sets the logger used for transient I/O errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithChunkSize sets the maximum number of bytes read per iteration.
func WithChunkSize(size int) Option {
	return func(p *Pipe) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithRetryDelay sets the pause after a transient I/O error.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipe) {
		if d >= 0 {
			p.retryDelay = d
		}
	}
}

// WithCloseOnStop registers a closer invoked by Stop to wake a blocked read on
// sources cancelreader cannot interrupt (sockets, in-memory pipes).
func WithCloseOnStop(c io.Closer) Option {
	return func(p *Pipe) {
		p.closeOnStop = c
	}
}

// WithOnExit registers a callback run on the pump goroutine after it ends,
// for whatever reason. The launcher uses it to close the child's stdin once
// the console input is exhausted.
func WithOnExit(fn func()) Option {
	return func(p *Pipe) {
		p.onExit = fn
	}
}
