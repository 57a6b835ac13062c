// SPDX-License-Identifier: MPL-2.0

package pipe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/cancelreader"
)

// ErrNotIdle is returned by Start when the pipe was already started or stopped.
var ErrNotIdle = errors.New("pipe is not idle")

type (
	// Pipe pumps bytes from a source to a sink until the source ends or Stop
	// is called.
	Pipe struct {
		name        string
		src         io.Reader
		dst         io.Writer
		logger      *log.Logger
		chunkSize   int
		retryDelay  time.Duration
		closeOnStop io.Closer
		onExit      func()

		state         atomic.Int32
		stopRequested atomic.Bool
		stopOnce      sync.Once
		stopCh        chan struct{}
		done          chan struct{}

		// mu guards reader and err.
		mu     sync.Mutex
		reader cancelreader.CancelReader
		err    error
	}

	// flusher is implemented by buffered sinks (bufio.Writer, ssh channels).
	flusher interface {
		Flush() error
	}
)

// New creates an idle pipe copying src to dst. The name shows up in logs.
func New(name string, src io.Reader, dst io.Writer, opts ...Option) *Pipe {
	p := &Pipe{
		name:       name,
		src:        src,
		dst:        dst,
		logger:     log.Default().WithPrefix("pipe"),
		chunkSize:  DefaultChunkSize,
		retryDelay: DefaultRetryDelay,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	p.state.Store(int32(StateIdle))

	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("pipe", name)

	return p
}

// Name returns the pipe's name.
func (p *Pipe) Name() string {
	return p.name
}

// State returns the current state (atomic, lock-free read).
func (p *Pipe) State() State {
	return State(p.state.Load())
}

// Start launches the pump goroutine. It fails if the pipe is not idle.
func (p *Pipe) Start() error {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("%w (state: %s)", ErrNotIdle, p.State())
	}

	var r io.Reader = p.src
	cr, err := cancelreader.NewReader(p.src)
	if err != nil {
		// epoll and kqueue refuse regular files; those never block anyway.
		p.logger.Debug("source read cannot be canceled", "err", err)
	} else {
		r = cr
		p.mu.Lock()
		p.reader = cr
		if p.stopRequested.Load() {
			cr.Cancel()
		}
		p.mu.Unlock()
	}

	go p.pump(r)
	return nil
}

// Stop asks the pump to end and wakes it if it is blocked in Read. It does not
// wait; use Wait or Done for that. Calling Stop more than once is a no-op, and
// stopping an idle pipe moves it straight to StateStopped.
func (p *Pipe) Stop() {
	p.stopOnce.Do(func() {
		p.stopRequested.Store(true)
		close(p.stopCh)

		if p.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
			if p.onExit != nil {
				p.onExit()
			}
			close(p.done)
			return
		}

		p.mu.Lock()
		if p.reader != nil {
			p.reader.Cancel()
		}
		p.mu.Unlock()

		if p.closeOnStop != nil {
			if err := p.closeOnStop.Close(); err != nil {
				p.logger.Debug("close on stop", "err", err)
			}
		}
	})
}

// Done returns a channel closed once the pump has ended.
func (p *Pipe) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the pump has ended. It returns nil when the source was
// exhausted or Stop was called, and the error that closed the stream otherwise.
func (p *Pipe) Wait() error {
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipe) pump(r io.Reader) {
	defer p.finish()

	buf := make([]byte, p.chunkSize)
	for !p.stopRequested.Load() {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := p.forward(buf[:n]); werr != nil && p.handleError("write", werr) {
				return
			}
		}
		if err != nil && p.handleError("read", err) {
			return
		}
	}
}

func (p *Pipe) finish() {
	p.mu.Lock()
	if p.reader != nil {
		if err := p.reader.Close(); err != nil {
			p.logger.Debug("close cancel reader", "err", err)
		}
		p.reader = nil
	}
	p.mu.Unlock()

	p.state.Store(int32(StateStopped))
	if p.onExit != nil {
		p.onExit()
	}
	close(p.done)
}

func (p *Pipe) forward(chunk []byte) error {
	if _, err := p.dst.Write(chunk); err != nil {
		return err
	}
	if f, ok := p.dst.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// handleError reports whether the pump must end. Errors after Stop are
// expected and dropped; closed streams end the pump; anything else is logged
// and retried after a short pause.
func (p *Pipe) handleError(op string, err error) bool {
	if p.stopRequested.Load() {
		return true
	}

	if isClosed(err) {
		if !errors.Is(err, io.EOF) {
			p.logger.Debug("stream closed", "op", op, "err", err)
			p.mu.Lock()
			p.err = fmt.Errorf("%s %s: %w", p.name, op, err)
			p.mu.Unlock()
		}
		return true
	}

	p.logger.Warn("I/O error, continuing", "op", op, "err", err)
	select {
	case <-p.stopCh:
		return true
	case <-time.After(p.retryDelay):
		return false
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, cancelreader.ErrCanceled) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE) ||
		// A pty master reads EIO once the child side is gone.
		errors.Is(err, syscall.EIO)
}
