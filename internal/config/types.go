// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/paxrun/pkg/bundle"
)

const (
	// LogLevelDebug logs launch internals (bootstrap path, command line, bridge errors).
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs launch start and exit.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only recoverable problems.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"

	// FrameworkEquinox is the only framework paxrun currently launches.
	FrameworkEquinox FrameworkName = "equinox"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidFrameworkName is returned when a FrameworkName value is not recognized.
	ErrInvalidFrameworkName = errors.New("invalid framework name")
	// ErrInvalidGracePeriod is returned when the grace period is not a positive duration.
	ErrInvalidGracePeriod = errors.New("invalid grace period")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// FrameworkName selects the OSGi framework implementation.
	FrameworkName string

	// InvalidFrameworkNameError is returned when a FrameworkName value is not recognized.
	// It wraps ErrInvalidFrameworkName for errors.Is() compatibility.
	InvalidFrameworkNameError struct {
		Value FrameworkName
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// WorkDir is the launch working directory.
		WorkDir string `json:"work_dir" mapstructure:"work_dir" toml:"work_dir"`
		// Java configures the JVM.
		Java JavaConfig `json:"java" mapstructure:"java" toml:"java"`
		// Framework configures the OSGi framework.
		Framework FrameworkConfig `json:"framework" mapstructure:"framework" toml:"framework"`
		// Bundles are installed after the framework's default bundles.
		Bundles []BundleConfig `json:"bundles" mapstructure:"bundles" toml:"bundles"`
		// Properties are written to the bootstrap file in order.
		Properties []PropertyConfig `json:"properties" mapstructure:"properties" toml:"properties"`
		// Console configures how the framework console is attached.
		Console ConsoleConfig `json:"console" mapstructure:"console" toml:"console"`
		// Log configures logging.
		Log LogConfig `json:"log" mapstructure:"log" toml:"log"`
	}

	// JavaConfig configures the JVM executable and its arguments.
	JavaConfig struct {
		Executable string `json:"executable" mapstructure:"executable" toml:"executable"`
		// VMOptions is split with shell quoting rules.
		VMOptions string `json:"vm_options" mapstructure:"vm_options" toml:"vm_options"`
		Classpath string `json:"classpath" mapstructure:"classpath" toml:"classpath"`
	}

	// FrameworkConfig configures the OSGi framework.
	FrameworkConfig struct {
		Name           FrameworkName `json:"name" mapstructure:"name" toml:"name"`
		SystemBundle   string        `json:"system_bundle" mapstructure:"system_bundle" toml:"system_bundle"`
		DefaultBundles []string      `json:"default_bundles" mapstructure:"default_bundles" toml:"default_bundles"`
		BootDelegation []string      `json:"boot_delegation" mapstructure:"boot_delegation" toml:"boot_delegation"`
		SystemPackages []string      `json:"system_packages" mapstructure:"system_packages" toml:"system_packages"`
		StartLevel     int           `json:"start_level" mapstructure:"start_level" toml:"start_level"`
		// BundleLevel is the start level of bundles that do not set their own.
		BundleLevel int    `json:"bundle_level" mapstructure:"bundle_level" toml:"bundle_level"`
		Clean       bool   `json:"clean" mapstructure:"clean" toml:"clean"`
		NoConsole   bool   `json:"no_console" mapstructure:"no_console" toml:"no_console"`
		GracePeriod string `json:"grace_period" mapstructure:"grace_period" toml:"grace_period"`
	}

	// BundleConfig is one configured bundle.
	BundleConfig struct {
		Location string `json:"location" mapstructure:"location" toml:"location"`
		// StartLevel 0 means framework.bundle_level.
		StartLevel int `json:"start_level,omitempty" mapstructure:"start_level" toml:"start_level,omitempty"`
		// Autostart nil means true.
		Autostart *bool `json:"autostart,omitempty" mapstructure:"autostart" toml:"autostart,omitempty"`
	}

	// PropertyConfig is one system property.
	PropertyConfig struct {
		Name  string `json:"name" mapstructure:"name" toml:"name"`
		Value string `json:"value" mapstructure:"value" toml:"value"`
	}

	// ConsoleConfig configures the framework console.
	ConsoleConfig struct {
		// PTY attaches the framework to a pseudo-terminal.
		PTY bool `json:"pty" mapstructure:"pty" toml:"pty"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level" toml:"level"`
	}
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the FrameworkName.
func (n FrameworkName) String() string { return string(n) }

// IsValid returns whether the FrameworkName is a supported framework.
func (n FrameworkName) IsValid() (bool, []error) {
	switch FrameworkName(strings.ToLower(string(n))) {
	case FrameworkEquinox:
		return true, nil
	default:
		return false, []error{&InvalidFrameworkNameError{Value: n}}
	}
}

// Error implements the error interface for InvalidFrameworkNameError.
func (e *InvalidFrameworkNameError) Error() string {
	return fmt.Sprintf("invalid framework %q (valid: equinox)", e.Value)
}

// Unwrap returns ErrInvalidFrameworkName for errors.Is() compatibility.
func (e *InvalidFrameworkNameError) Unwrap() error { return ErrInvalidFrameworkName }

// GraceDuration parses GracePeriod.
func (c FrameworkConfig) GraceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.GracePeriod)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidGracePeriod, c.GracePeriod, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w %q: must be positive", ErrInvalidGracePeriod, c.GracePeriod)
	}
	return d, nil
}

// IsValid returns whether the FrameworkConfig has valid fields.
func (c FrameworkConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Name.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := bundle.StartLevel(c.StartLevel).IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := bundle.StartLevel(c.BundleLevel).IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := c.GraceDuration(); err != nil {
		errs = append(errs, err)
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the Config has valid fields.
// The system bundle is checked when a launch is assembled, not here, so that
// commands which never launch (config show, package) work without one.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.WorkDir) == "" {
		errs = append(errs, errors.New("work_dir must not be empty"))
	}
	if valid, fieldErrs := c.Framework.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for i, b := range c.Bundles {
		if valid, fieldErrs := bundle.Location(b.Location).IsValid(); !valid {
			errs = append(errs, fmt.Errorf("bundles[%d]: %w", i, errors.Join(fieldErrs...)))
		}
		if b.StartLevel != 0 {
			if valid, fieldErrs := bundle.StartLevel(b.StartLevel).IsValid(); !valid {
				errs = append(errs, fmt.Errorf("bundles[%d]: %w", i, errors.Join(fieldErrs...)))
			}
		}
	}
	for i, p := range c.Properties {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("properties[%d]: name must not be empty", i))
		}
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		WorkDir: "runner",
		Java: JavaConfig{
			Executable: "java",
		},
		Framework: FrameworkConfig{
			Name:           FrameworkEquinox,
			DefaultBundles: []string{},
			BootDelegation: []string{"java.*"},
			SystemPackages: []string{},
			StartLevel:     6,
			BundleLevel:    5,
			GracePeriod:    "10s",
		},
		Bundles:    []BundleConfig{},
		Properties: []PropertyConfig{},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}
