// SPDX-License-Identifier: MPL-2.0

// Package framework turns an abstract OSGi launch description into what a
// concrete framework implementation expects on disk and on its command line.
//
// A Configuration says which bundles to install, at which start level, with
// which system properties. A Framework renders it into a bootstrap file inside
// the launch's configuration directory and derives the JVM argument vector.
// Equinox is the implementation shipped here.
package framework
