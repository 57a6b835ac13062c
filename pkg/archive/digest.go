// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// DigestPrefix tags digests produced by Digest.
const DigestPrefix = "blake3:"

// Digest returns a stable content digest of a. Two archives with the same
// paths and the same bytes under each path have the same digest, regardless
// of insertion order or where the bytes came from.
func Digest(a *Archive) (string, error) {
	h := blake3.New()
	var size [8]byte

	for _, p := range a.Paths() {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		_, _ = h.Write(size[:])
		_, _ = h.Write([]byte(p))

		resource, _ := a.Get(p)
		counter := &countingWriter{w: h}
		if _, err := Copy(resource, counter); err != nil {
			return "", fmt.Errorf("digest %s: %w", p, err)
		}
		binary.BigEndian.PutUint64(size[:], uint64(counter.n))
		_, _ = h.Write(size[:])
	}

	return DigestPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
