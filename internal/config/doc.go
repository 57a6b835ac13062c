// SPDX-License-Identifier: MPL-2.0

// Package config handles paxrun configuration using Viper with CUE as the file format.
//
// Configuration is loaded from an explicit --config file, else from
// <configdir>/paxrun/config.cue (XDG on Linux, ~/Library/Application Support on
// macOS, %APPDATA% on Windows), else from ./paxrun.cue. Files are validated
// against the embedded config_schema.cue. Built-in defaults fill everything a
// file leaves unset and PAXRUN_* environment variables override both.
package config
