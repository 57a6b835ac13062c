// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/invowk/paxrun/internal/framework"
	"github.com/invowk/paxrun/internal/testutil"
	"github.com/invowk/paxrun/pkg/bundle"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const runTimeout = 10 * time.Second

func testOptions(t *testing.T, java string) Options {
	t.Helper()
	return Options{
		WorkDir: t.TempDir(),
		Java:    java,
		Config: framework.Configuration{
			SystemBundle:   "/opt/equinox/org.eclipse.osgi.jar",
			DefaultBundles: []bundle.Location{"http://repo/default.jar"},
			Bundles:        []bundle.Entry{{Location: "http://repo/app.jar", StartLevel: 5, Autostart: true}},
			StartLevel:     6,
		},
		Logger:      log.New(io.Discard),
		GracePeriod: 2 * time.Second,
	}
}

func runLauncher(t *testing.T, opts Options) error {
	t.Helper()

	l, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(t.Context(), runTimeout)
	defer cancel()
	return l.Run(ctx)
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); !errors.Is(err, ErrNoWorkDir) {
		t.Errorf("New() without work dir = %v, want ErrNoWorkDir", err)
	}

	l, err := New(Options{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := uuid.Parse(l.ID()); err != nil {
		t.Errorf("ID() = %q is not a uuid: %v", l.ID(), err)
	}
	if l.opts.Java != DefaultJava || l.opts.GracePeriod != DefaultGracePeriod {
		t.Errorf("defaults not applied: %+v", l.opts)
	}
	if l.opts.Framework == nil || l.opts.Framework.Name() != framework.EquinoxName {
		t.Errorf("default framework = %v, want equinox", l.opts.Framework)
	}
}

func TestRun_BridgesConsole(t *testing.T) {
	t.Parallel()

	opts := testOptions(t, testutil.FakeJava(t, "exec cat"))
	out := &testutil.SyncBuffer{}
	opts.Stdin = strings.NewReader("ss\nexit\n")
	opts.Stdout = out

	if err := runLauncher(t, opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := out.String(); got != "ss\nexit\n" {
		t.Errorf("console output = %q, want echoed input", got)
	}

	ini := filepath.Join(opts.WorkDir, "configuration", "config.ini")
	data, err := os.ReadFile(ini)
	if err != nil {
		t.Fatalf("bootstrap not written: %v", err)
	}
	if !strings.Contains(string(data), "reference:http://repo/app.jar@5:start") {
		t.Errorf("bootstrap missing caller bundle:\n%s", data)
	}
}

func TestRun_CommandAndWorkDir(t *testing.T) {
	t.Parallel()

	opts := testOptions(t, testutil.FakeJava(t, `pwd; for a in "$@"; do echo "$a"; done`))
	out := &testutil.SyncBuffer{}
	opts.Stdout = out

	if err := runLauncher(t, opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	wantDir, err := filepath.EvalSymlinks(opts.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if lines[0] != wantDir && lines[0] != opts.WorkDir {
		t.Errorf("child cwd = %q, want %q", lines[0], wantDir)
	}

	want, err := framework.NewEquinox().Command(opts.Config, opts.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	got := lines[1:]
	if len(got) != len(want) {
		t.Fatalf("child args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRun_ExitCodeAndStderr(t *testing.T) {
	t.Parallel()

	opts := testOptions(t, testutil.FakeJava(t, "echo oops >&2; exit 3"))
	stderr := &testutil.SyncBuffer{}
	opts.Stderr = stderr

	err := runLauncher(t, opts)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("ExitError.Code = %d, want 3", exitErr.Code)
	}
	if got := stderr.String(); got != "oops\n" {
		t.Errorf("stderr = %q, want %q", got, "oops\n")
	}
}

func TestRun_SynthesisFailure(t *testing.T) {
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "spawned")
	opts := testOptions(t, testutil.FakeJava(t, "touch "+marker))
	workFile := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(workFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	opts.WorkDir = workFile

	err := runLauncher(t, opts)

	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Phase != PhaseSynthesis {
		t.Fatalf("Run() error = %v, want synthesis PhaseError", err)
	}
	if !errors.Is(err, ErrSynthesis) {
		t.Errorf("error does not match ErrSynthesis: %v", err)
	}
	if _, statErr := os.Stat(marker); !errors.Is(statErr, fs.ErrNotExist) {
		t.Error("process was spawned after synthesis failure")
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	t.Parallel()

	opts := testOptions(t, filepath.Join(t.TempDir(), "no-such-java"))

	err := runLauncher(t, opts)

	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("Run() error = %v, want ErrSpawn", err)
	}
	if errors.Is(err, ErrSynthesis) {
		t.Errorf("spawn failure also matches ErrSynthesis: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(opts.WorkDir, "configuration", "config.ini")); statErr != nil {
		t.Errorf("bootstrap should be written before spawn: %v", statErr)
	}
}

func TestRun_StopTerminatesChild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		grace  time.Duration
	}{
		{"terminates on signal", "exec sleep 30", 5 * time.Second},
		{"killed after grace period", "trap '' TERM; exec sleep 30", 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := testOptions(t, testutil.FakeJava(t, tt.script))
			opts.GracePeriod = tt.grace
			l, err := New(opts)
			if err != nil {
				t.Fatal(err)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- l.Run(t.Context()) }()

			select {
			case <-l.Started():
			case err := <-errCh:
				t.Fatalf("Run() returned before start: %v", err)
			case <-time.After(runTimeout):
				t.Fatal("framework did not start")
			}
			if l.PID() <= 0 {
				t.Errorf("PID() = %d after start", l.PID())
			}

			l.Stop()
			select {
			case err := <-errCh:
				if err != nil {
					t.Errorf("Run() after Stop = %v, want nil", err)
				}
			case <-time.After(runTimeout):
				t.Fatal("Run() did not return after Stop")
			}
		})
	}
}

func TestRun_ContextCancel(t *testing.T) {
	t.Parallel()

	opts := testOptions(t, testutil.FakeJava(t, "exec sleep 30"))
	l, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-l.Started():
	case <-time.After(runTimeout):
		t.Fatal("framework did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(runTimeout):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_StopBeforeRun(t *testing.T) {
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "spawned")
	l, err := New(testOptions(t, testutil.FakeJava(t, "touch "+marker)))
	if err != nil {
		t.Fatal(err)
	}

	l.Stop()
	if err := l.Run(t.Context()); err != nil {
		t.Fatalf("Run() after Stop = %v, want nil", err)
	}
	if _, statErr := os.Stat(marker); !errors.Is(statErr, fs.ErrNotExist) {
		t.Error("process spawned although stop was requested")
	}
	if err := l.Run(t.Context()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("second Run() = %v, want ErrAlreadyRun", err)
	}
}

func TestPhaseError(t *testing.T) {
	t.Parallel()

	cause := fs.ErrPermission
	err := error(&PhaseError{Phase: PhaseSpawn, Err: cause})

	if !errors.Is(err, ErrSpawn) || !errors.Is(err, cause) {
		t.Errorf("PhaseError does not match sentinel and cause: %v", err)
	}
	if want := "process spawn failed: permission denied"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
