// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invowk/paxrun/pkg/bundle"

	"mvdan.cc/sh/v3/syntax"
)

// ConfigurationDirName is the directory inside the work dir that holds the
// bootstrap file.
const ConfigurationDirName = "configuration"

var (
	// ErrUnknownFramework is returned by Lookup for unregistered names.
	ErrUnknownFramework = errors.New("unknown framework")
	// ErrMissingSystemBundle is returned when no system bundle is configured.
	ErrMissingSystemBundle = errors.New("system bundle not configured")
)

// DefaultBootDelegation delegates the platform's own namespaces to the boot class loader.
var DefaultBootDelegation = []string{"java.*"}

// DefaultSystemPackages are the JRE packages exported through the system bundle
// when the configuration names none.
var DefaultSystemPackages = []string{
	"javax.management",
	"javax.naming",
	"javax.net",
	"javax.net.ssl",
	"javax.security.auth",
	"javax.security.auth.callback",
	"javax.security.auth.login",
	"javax.sql",
	"javax.xml.parsers",
	"javax.xml.transform",
	"javax.xml.transform.dom",
	"javax.xml.transform.stream",
	"org.w3c.dom",
	"org.xml.sax",
	"org.xml.sax.helpers",
}

type (
	// Property is one system property. Properties keep their declaration order
	// all the way into the bootstrap file.
	Property struct {
		Key   string
		Value string
	}

	// Configuration is everything a framework needs for one launch. It is built
	// once per launch and treated as read-only afterwards.
	Configuration struct {
		// SystemBundle is the framework jar put first on the classpath.
		SystemBundle string
		// DefaultBundles are installed before all others at start level 1 and always started.
		DefaultBundles []bundle.Location
		// Bundles are the caller's bundles, each with its own level and autostart flag.
		Bundles []bundle.Entry
		// Properties are written to the bootstrap file in order.
		Properties []Property
		// StartLevel is the framework's target start level.
		StartLevel bundle.StartLevel
		// Clean discards cached framework state on startup.
		Clean bool
		// NoConsole suppresses the framework's interactive console.
		NoConsole bool
		// Classpath is appended to the system bundle on the JVM classpath.
		Classpath string
		// BootDelegation lists namespaces loaded from the boot class loader.
		BootDelegation []string
		// SystemPackages lists packages exported by the system bundle.
		SystemPackages []string
		// VMOptions are passed to the JVM before any framework argument.
		VMOptions []string
	}

	// LaunchCommand is the JVM argument vector, without the java executable.
	LaunchCommand []string

	// Framework renders a Configuration for one framework implementation.
	Framework interface {
		// Name identifies the implementation (e.g. "equinox").
		Name() string
		// BootstrapFileName is the file written into the configuration directory.
		BootstrapFileName() string
		// RenderBootstrap writes the bootstrap file content to w.
		RenderBootstrap(w io.Writer, cfg Configuration) error
		// WriteBootstrap writes the bootstrap file into configDir, creating the
		// directory if needed, and returns the file's path.
		WriteBootstrap(configDir string, cfg Configuration) (string, error)
		// Command derives the JVM arguments for a launch rooted at workDir.
		Command(cfg Configuration, workDir string) (LaunchCommand, error)
	}
)

var registry = map[string]func() Framework{
	EquinoxName: func() Framework { return NewEquinox() },
}

// Lookup returns the framework registered under name.
func Lookup(name string) (Framework, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFramework, name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

// Names lists the registered framework names in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ConfigDir returns the configuration directory of a launch rooted at workDir.
func ConfigDir(workDir string) string {
	return filepath.Join(workDir, ConfigurationDirName)
}

// Validate checks the parts of the configuration every framework relies on.
func (c Configuration) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SystemBundle) == "" {
		errs = append(errs, ErrMissingSystemBundle)
	}
	if ok, levelErrs := c.StartLevel.IsValid(); !ok {
		errs = append(errs, levelErrs...)
	}
	for i, b := range c.Bundles {
		if ok, bErrs := b.Location.IsValid(); !ok {
			errs = append(errs, fmt.Errorf("bundles[%d]: %w", i, errors.Join(bErrs...)))
		}
		if ok, bErrs := b.StartLevel.IsValid(); !ok {
			errs = append(errs, fmt.Errorf("bundles[%d]: %w", i, errors.Join(bErrs...)))
		}
	}
	for i, p := range c.Properties {
		if strings.TrimSpace(p.Key) == "" {
			errs = append(errs, fmt.Errorf("properties[%d]: empty key", i))
		}
	}
	return errors.Join(errs...)
}

// String renders the command as a bash-quoted line for display.
func (c LaunchCommand) String() string {
	quoted := make([]string, len(c))
	for i, arg := range c {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", arg)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}
