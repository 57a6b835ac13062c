// SPDX-License-Identifier: MPL-2.0

// Package archive assembles installable bundle archives from directory trees.
//
// An Archive maps slash-separated paths to Resources. A Resource only knows
// how to open a fresh byte stream; it carries no path of its own, so the same
// Resource may be registered under several paths.
//
// Build walks a directory depth-first and registers every regular file as a
// FileResource keyed by its root-relative path. Directories whose base name
// matches the ExclusionRule are skipped together with their whole subtree.
// Unreadable entries do not abort the walk; they are reported in the
// BuildReport so that callers can tell an empty tree from a permission problem.
//
// WriteJar serializes an Archive as a deflated jar and Digest computes a stable
// content digest over it.
package archive
