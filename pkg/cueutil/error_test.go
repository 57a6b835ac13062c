// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"work_dir"}, "work_dir"},
		{"nested", []string{"framework", "start_level"}, "framework.start_level"},
		{"index", []string{"bundles", "0", "location"}, "bundles[0].location"},
		{"trailing index", []string{"properties", "3"}, "properties[3]"},
		{"leading number is a field", []string{"0", "x"}, "0.x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := formatPath(tt.path); got != tt.want {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	if err := FormatError(nil, "x.cue"); err != nil {
		t.Errorf("FormatError(nil) = %v, want nil", err)
	}

	plain := errors.New("disk on fire")
	err := FormatError(plain, "x.cue")
	if !errors.Is(err, plain) {
		t.Errorf("non-CUE error not wrapped: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "x.cue: ") {
		t.Errorf("error lacks file name: %v", err)
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "a.cue"); err != nil {
		t.Errorf("CheckFileSize() at limit = %v, want nil", err)
	}

	err := CheckFileSize(make([]byte, 11), 10, "a.cue")
	if err == nil {
		t.Fatal("CheckFileSize() over limit = nil")
	}
	for _, want := range []string{"a.cue", "11", "10"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
