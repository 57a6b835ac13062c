// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/invowk/paxrun/pkg/bundle"
)

const (
	// EquinoxName is the registry name of the Equinox framework.
	EquinoxName = "equinox"
	// EquinoxBootstrapFile is the bootstrap file Equinox reads on startup.
	EquinoxBootstrapFile = "config.ini"
	// EquinoxMainClass is the JVM entry point for Equinox.
	EquinoxMainClass = "org.eclipse.core.runtime.adaptor.EclipseStarter"

	bundleSeparator = ",\\"
)

// Equinox renders launches for the Eclipse Equinox framework.
type Equinox struct{}

// NewEquinox creates the Equinox framework.
func NewEquinox() *Equinox {
	return &Equinox{}
}

// Name implements Framework.
func (e *Equinox) Name() string {
	return EquinoxName
}

// BootstrapFileName implements Framework.
func (e *Equinox) BootstrapFileName() string {
	return EquinoxBootstrapFile
}

// WriteBootstrap implements Framework. The file is synced before it is closed
// so the child process never sees a partially written bootstrap.
func (e *Equinox) WriteBootstrap(configDir string, cfg Configuration) (_ string, err error) {
	if err = cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}
	if err = os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create configuration directory: %w", err)
	}

	path := filepath.Join(configDir, EquinoxBootstrapFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", EquinoxBootstrapFile, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", EquinoxBootstrapFile, closeErr)
		}
	}()

	w := bufio.NewWriter(f)
	if err = e.RenderBootstrap(w, cfg); err != nil {
		return "", err
	}
	if err = w.Flush(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", EquinoxBootstrapFile, err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync %s: %w", EquinoxBootstrapFile, err)
	}
	return path, nil
}

// RenderBootstrap writes the config.ini content for cfg to w.
func (e *Equinox) RenderBootstrap(w io.Writer, cfg Configuration) error {
	var b strings.Builder

	if cfg.Clean {
		b.WriteString("osgi.clean=true\n")
	}
	b.WriteString("eclipse.ignoreApp=true\n")
	b.WriteString("osgi.startLevel=" + strconv.Itoa(int(cfg.StartLevel)) + "\n")
	b.WriteString("osgi.bundles=\\\n")

	first := true
	writeEntry := func(ref string, level bundle.StartLevel, autostart bool) {
		if !first {
			b.WriteString(bundleSeparator + "\n")
		}
		first = false
		b.WriteString("reference:" + ref + "@" + strconv.Itoa(int(level)))
		if autostart {
			b.WriteString(":start")
		}
	}

	for _, loc := range cfg.DefaultBundles {
		ref, err := loc.Reference()
		if err != nil {
			return fmt.Errorf("default bundle %q: %w", loc, err)
		}
		writeEntry(ref, bundle.DefaultStartLevel, true)
	}
	for _, entry := range cfg.Bundles {
		ref, err := entry.Location.Reference()
		if err != nil {
			return fmt.Errorf("bundle %q: %w", entry.Location, err)
		}
		writeEntry(ref, entry.StartLevel, entry.Autostart)
	}
	b.WriteString("\n\n")

	for _, p := range cfg.Properties {
		b.WriteString(escapePropertyKey(p.Key) + "=" + escapePropertyValue(p.Value) + "\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write %s: %w", EquinoxBootstrapFile, err)
	}
	return nil
}

// Command implements Framework.
func (e *Equinox) Command(cfg Configuration, workDir string) (LaunchCommand, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}

	bootDelegation := cfg.BootDelegation
	if len(bootDelegation) == 0 {
		bootDelegation = DefaultBootDelegation
	}
	systemPackages := cfg.SystemPackages
	if len(systemPackages) == 0 {
		systemPackages = DefaultSystemPackages
	}

	classpath := cfg.SystemBundle
	if cfg.Classpath != "" {
		classpath += string(os.PathListSeparator) + cfg.Classpath
	}

	args := make(LaunchCommand, 0, len(cfg.VMOptions)+10)
	args = append(args, cfg.VMOptions...)
	args = append(args,
		"-Dorg.osgi.framework.bootdelegation="+strings.Join(bootDelegation, ","),
		"-Dorg.osgi.framework.system.packages="+strings.Join(systemPackages, ","),
		"-cp", classpath,
		EquinoxMainClass,
	)
	if !cfg.NoConsole {
		args = append(args, "-console")
	}
	args = append(args,
		"-configuration", ConfigDir(absWorkDir),
		"-install", absWorkDir,
	)
	return args, nil
}
