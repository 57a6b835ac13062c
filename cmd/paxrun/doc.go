// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the paxrun CLI: launching an OSGi framework with
// its console bridged to the terminal, previewing a launch, packaging bundle
// directories into jars, and managing configuration.
package cmd
