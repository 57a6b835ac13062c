// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyChunkSize bounds the buffer used by Copy. Each call owns its buffer.
const copyChunkSize = 20000

type (
	// Resource is a byte stream that can be opened on demand.
	// Every call to Open returns an independent stream that the caller must close.
	Resource interface {
		Open() (io.ReadCloser, error)
	}

	// FileResource is a Resource backed by a file on disk. The file is opened
	// lazily, so a FileResource stays valid even if the file changes between reads.
	FileResource struct {
		path string
	}

	// BytesResource is a Resource backed by in-memory content.
	BytesResource struct {
		data []byte
	}
)

// NewFileResource returns a Resource reading the file at path.
func NewFileResource(path string) *FileResource {
	return &FileResource{path: path}
}

// Open opens the underlying file.
func (r *FileResource) Open() (io.ReadCloser, error) {
	return os.Open(r.path)
}

// Path returns the filesystem path backing the resource.
func (r *FileResource) Path() string {
	return r.path
}

// String returns ":<base name>:", which is how resources appear in diagnostics.
func (r *FileResource) String() string {
	return ":" + filepath.Base(r.path) + ":"
}

// NewBytesResource returns a Resource serving a private copy of data.
func NewBytesResource(data []byte) *BytesResource {
	return &BytesResource{data: bytes.Clone(data)}
}

// Open returns a reader over the content.
func (r *BytesResource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.data)), nil
}

// Copy writes the full content of resource to sink and returns the number of
// bytes written. The resource stream is closed exactly once on every path,
// whether the copy succeeds or fails on read or write.
//
// Copy is safe for concurrent use on independent resource/sink pairs: every
// call pairs one dedicated input stream with its sink and owns its buffer.
func Copy(resource Resource, sink io.Writer) (written int64, err error) {
	in, err := resource.Open()
	if err != nil {
		return 0, fmt.Errorf("open resource: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close resource: %w", closeErr))
		}
	}()

	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			w, writeErr := sink.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, fmt.Errorf("write resource: %w", writeErr)
			}
			if w != n {
				return written, fmt.Errorf("write resource: %w", io.ErrShortWrite)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read resource: %w", readErr)
		}
	}
}
