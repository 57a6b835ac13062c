// SPDX-License-Identifier: MPL-2.0

// Package pipe forwards bytes from a source stream to a sink stream on its own
// goroutine, flushing after every chunk so interactive consoles see output
// immediately.
//
// A Pipe is single-use: Idle until Start, Running while it pumps, Stopped once
// the source is exhausted or Stop is called. Stop wakes a pump blocked in Read
// on file-backed sources (via cancelreader) or by closing a source registered
// with WithCloseOnStop.
package pipe
