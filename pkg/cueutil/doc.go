// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user-written CUE files against an embedded schema
// definition and decodes them, either into a Go struct (bundle sets) or into a
// generic map that can be layered into viper (configuration).
//
// Errors carry the file name and a JSON-style path to the offending field:
//
//	paxrun.cue: framework.start_level: invalid value 0 (out of bound >=1)
package cueutil
