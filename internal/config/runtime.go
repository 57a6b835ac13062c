// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"

	"github.com/invowk/paxrun/internal/framework"
	"github.com/invowk/paxrun/pkg/bundle"

	"mvdan.cc/sh/v3/shell"
)

// VMOptions splits java.vm_options with shell quoting rules. Variable
// references expand from the process environment.
func (c *Config) VMOptions() ([]string, error) {
	if c.Java.VMOptions == "" {
		return nil, nil
	}
	fields, err := shell.Fields(c.Java.VMOptions, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("invalid java.vm_options %q: %w", c.Java.VMOptions, err)
	}
	return fields, nil
}

// Entries turns the configured bundles into launch entries. Bundles without
// their own level start at framework.bundle_level; autostart defaults to true.
// Relative paths resolve against baseDir.
func (c *Config) Entries(baseDir string) ([]bundle.Entry, error) {
	entries := make([]bundle.Entry, 0, len(c.Bundles))
	for i, b := range c.Bundles {
		level := bundle.StartLevel(c.Framework.BundleLevel)
		if b.StartLevel != 0 {
			level = bundle.StartLevel(b.StartLevel)
		}
		autostart := true
		if b.Autostart != nil {
			autostart = *b.Autostart
		}
		e, err := bundle.New(bundle.Location(b.Location).Resolve(baseDir), level, autostart)
		if err != nil {
			return nil, fmt.Errorf("bundles[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FrameworkConfiguration assembles the framework configuration of a launch.
// Configured bundles come first, followed by extra in the given order.
// Relative paths in the configuration resolve against baseDir, normally the
// directory of the loaded config file.
func (c *Config) FrameworkConfiguration(baseDir string, extra ...bundle.Entry) (framework.Configuration, error) {
	vmOptions, err := c.VMOptions()
	if err != nil {
		return framework.Configuration{}, err
	}

	entries, err := c.Entries(baseDir)
	if err != nil {
		return framework.Configuration{}, err
	}
	entries = append(entries, extra...)

	defaults := make([]bundle.Location, len(c.Framework.DefaultBundles))
	for i, loc := range c.Framework.DefaultBundles {
		defaults[i] = bundle.Location(loc).Resolve(baseDir)
	}

	props := make([]framework.Property, len(c.Properties))
	for i, p := range c.Properties {
		props[i] = framework.Property{Key: p.Name, Value: p.Value}
	}

	systemBundle := c.Framework.SystemBundle
	if systemBundle != "" {
		systemBundle = string(bundle.Location(systemBundle).Resolve(baseDir))
	}

	fc := framework.Configuration{
		SystemBundle:   systemBundle,
		DefaultBundles: defaults,
		Bundles:        entries,
		Properties:     props,
		StartLevel:     bundle.StartLevel(c.Framework.StartLevel),
		Clean:          c.Framework.Clean,
		NoConsole:      c.Framework.NoConsole,
		Classpath:      c.Java.Classpath,
		BootDelegation: c.Framework.BootDelegation,
		SystemPackages: c.Framework.SystemPackages,
		VMOptions:      vmOptions,
	}
	if err := fc.Validate(); err != nil {
		return framework.Configuration{}, err
	}
	return fc, nil
}
