// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/invowk/paxrun/internal/framework"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	// DefaultJava is looked up on PATH when Options.Java is empty.
	DefaultJava = "java"
	// DefaultGracePeriod is how long a stopped framework may take to exit
	// before it is killed.
	DefaultGracePeriod = 10 * time.Second
	// DefaultDrainTimeout bounds how long output bridges may keep forwarding
	// after the child exited.
	DefaultDrainTimeout = 2 * time.Second
)

type (
	// Options configures a Launcher.
	Options struct {
		// WorkDir is owned by the launch; the bootstrap file goes to its
		// configuration subdirectory and the JVM runs inside it.
		WorkDir string
		// Java is the JVM executable, a name resolved on PATH or a path.
		Java string
		// Framework renders Config. Defaults to Equinox.
		Framework framework.Framework
		// Config describes bundles, properties and JVM settings.
		Config framework.Configuration
		// Env is the child's environment; nil inherits the parent's.
		Env []string

		// Stdin feeds the child's console. Nil gives the child no input.
		Stdin io.Reader
		// Stdout receives the child's console output. Nil discards it.
		Stdout io.Writer
		// Stderr receives the child's error stream in pipe mode. Nil discards it.
		Stderr io.Writer
		// PTY attaches the child to a pseudo-terminal instead of pipes.
		PTY bool

		Logger       *log.Logger
		GracePeriod  time.Duration
		DrainTimeout time.Duration
	}

	// Launcher runs one framework launch. It is single-use.
	Launcher struct {
		opts   Options
		id     string
		logger *log.Logger

		ran           atomic.Bool
		stopRequested atomic.Bool
		stopOnce      sync.Once
		stopCh        chan struct{}
		startedCh     chan struct{}

		mu  sync.Mutex
		pid int
	}
)

// New validates opts, fills in defaults and assigns a launch id.
func New(opts Options) (*Launcher, error) {
	if opts.WorkDir == "" {
		return nil, ErrNoWorkDir
	}
	if opts.Java == "" {
		opts.Java = DefaultJava
	}
	if opts.Framework == nil {
		opts.Framework = framework.NewEquinox()
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("launcher")
	}

	id := uuid.NewString()
	return &Launcher{
		opts:      opts,
		id:        id,
		logger:    logger.With("launch", id),
		stopCh:    make(chan struct{}),
		startedCh: make(chan struct{}),
	}, nil
}

// ID returns the launch id used in log lines.
func (l *Launcher) ID() string {
	return l.id
}

// Started returns a channel closed once the JVM process is running.
func (l *Launcher) Started() <-chan struct{} {
	return l.startedCh
}

// PID returns the child's process id, or 0 before it started.
func (l *Launcher) PID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pid
}

// Stop asks a running launch to end: console bridges are stopped and the child
// is asked to terminate, then killed after the grace period. Run returns nil
// for a stopped launch. Stop does not wait for Run to return.
func (l *Launcher) Stop() {
	l.stopOnce.Do(func() {
		l.stopRequested.Store(true)
		close(l.stopCh)
	})
}

// Run performs the launch and blocks until the framework exits, Stop is
// called, or ctx is cancelled. Synthesis and spawn failures are returned as
// *PhaseError; a non-zero exit the launcher did not request as *ExitError.
func (l *Launcher) Run(ctx context.Context) error {
	if !l.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	fw := l.opts.Framework
	bootstrap, err := fw.WriteBootstrap(framework.ConfigDir(l.opts.WorkDir), l.opts.Config)
	if err != nil {
		return &PhaseError{Phase: PhaseSynthesis, Err: err}
	}
	args, err := fw.Command(l.opts.Config, l.opts.WorkDir)
	if err != nil {
		return &PhaseError{Phase: PhaseSynthesis, Err: err}
	}
	l.logger.Debug("bootstrap written", "framework", fw.Name(), "path", bootstrap)

	if l.stopRequested.Load() || ctx.Err() != nil {
		l.logger.Debug("stop requested before spawn")
		return nil
	}

	java, err := exec.LookPath(l.opts.Java)
	if err != nil {
		return &PhaseError{Phase: PhaseSpawn, Err: err}
	}

	cmd := exec.Command(java, args...)
	cmd.Dir = l.opts.WorkDir
	cmd.Env = l.opts.Env

	var con *console
	if l.opts.PTY {
		con, err = startPTY(cmd, l.opts, l.logger)
	} else {
		con, err = startPipes(cmd, l.opts, l.logger)
	}
	if err != nil {
		return &PhaseError{Phase: PhaseSpawn, Err: err}
	}

	l.mu.Lock()
	l.pid = cmd.Process.Pid
	l.mu.Unlock()
	close(l.startedCh)

	logger := l.logger.With("pid", cmd.Process.Pid)
	logger.Info("framework started", "java", java, "workdir", l.opts.WorkDir, "pty", l.opts.PTY)
	logger.Debug("command", "args", framework.LaunchCommand(args).String())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var (
		waitErr   error
		requested bool
	)
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		requested = true
		logger.Info("context cancelled, stopping framework")
		waitErr = l.terminate(cmd.Process, waitCh, logger)
	case <-l.stopCh:
		requested = true
		logger.Info("stop requested, stopping framework")
		waitErr = l.terminate(cmd.Process, waitCh, logger)
	}

	con.close(l.opts.DrainTimeout, logger)

	if requested {
		return nil
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			logger.Info("framework exited", "code", exitErr.ExitCode())
			return &ExitError{Code: exitErr.ExitCode(), Err: waitErr}
		}
		return fmt.Errorf("wait for framework: %w", waitErr)
	}
	logger.Info("framework exited", "code", 0)
	return nil
}

// terminate asks the process to exit and kills it once the grace period is over.
func (l *Launcher) terminate(proc *os.Process, waitCh <-chan error, logger *log.Logger) error {
	if err := interrupt(proc); err != nil {
		logger.Debug("interrupt failed", "err", err)
	}

	timer := time.NewTimer(l.opts.GracePeriod)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		return err
	case <-timer.C:
		logger.Warn("framework did not exit in time, killing", "grace", l.opts.GracePeriod)
		if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("kill failed", "err", err)
		}
		return <-waitCh
	}
}
