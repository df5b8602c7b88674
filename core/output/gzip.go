package output

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Appending to an existing .gz adds a new member, which readers concatenate.
func newGzipWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}
