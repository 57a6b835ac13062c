// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of well-known
// failures with Markdown guidance rendered through glamour.
package issue
