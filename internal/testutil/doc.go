// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by paxrun tests: file tree
// fixtures, a fake JVM and a concurrency-safe output buffer.
package testutil
