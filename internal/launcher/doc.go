// SPDX-License-Identifier: MPL-2.0

// Package launcher runs an OSGi framework as a child JVM.
//
// A launch happens in two phases. Synthesis writes the framework's bootstrap
// file into <workDir>/configuration and derives the JVM argument vector.
// Spawn starts the JVM with the work directory as its current directory and
// attaches the console: by default three pipes bridged by internal/pipe, or a
// pseudo-terminal when Options.PTY is set. Run blocks until the child exits,
// Stop is called, or the context is cancelled.
package launcher
