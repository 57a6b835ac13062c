// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"io"
	"testing"
)

func TestArchivePutOverwrites(t *testing.T) {
	t.Parallel()

	a := New()
	if err := a.Put("a/b.txt", NewBytesResource([]byte("first"))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := a.Put("a/b.txt", NewBytesResource([]byte("second"))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if a.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.Len())
	}
	r, ok := a.Get("a/b.txt")
	if !ok {
		t.Fatal("Get() found nothing")
	}
	if got := readAll(t, r); got != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}
}

func TestArchivePutNormalizesBackslashes(t *testing.T) {
	t.Parallel()

	a := New()
	if err := a.Put(`dir\sub\file.txt`, NewBytesResource(nil)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if paths := a.Paths(); len(paths) != 1 || paths[0] != "dir/sub/file.txt" {
		t.Errorf("Paths() = %v, want [dir/sub/file.txt]", paths)
	}
}

func TestArchivePutRejectsInvalidPaths(t *testing.T) {
	t.Parallel()

	tests := []string{"", "/abs", "dir/", "a/../b", "../up", "./x", ".."}
	for _, p := range tests {
		t.Run(p, func(t *testing.T) {
			t.Parallel()

			err := New().Put(p, NewBytesResource(nil))
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Put(%q) error = %v, want ErrInvalidPath", p, err)
			}
		})
	}
}

func TestArchivePathsSorted(t *testing.T) {
	t.Parallel()

	a := New()
	for _, p := range []string{"z.txt", "a/b.txt", "m/n/o.txt"} {
		if err := a.Put(p, NewBytesResource(nil)); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"a/b.txt", "m/n/o.txt", "z.txt"}
	got := a.Paths()
	if len(got) != len(want) {
		t.Fatalf("Paths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Paths()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func readAll(t *testing.T, r Resource) string {
	t.Helper()

	rc, err := r.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(data)
}
