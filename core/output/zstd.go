package output

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

func newZstdWriter(w io.Writer) (io.WriteCloser, error) {
	zstdWriter, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("error creating zstd writer: %w", err)
	}
	return zstdWriter, nil
}
