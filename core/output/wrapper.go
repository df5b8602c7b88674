package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// bufferedWriteCloser wraps a WriteCloser with buffered I/O
type bufferedWriteCloser struct {
	*bufio.Writer
	underlying io.WriteCloser
}

// Close flushes the buffer and closes the underlying writer
func (bwc *bufferedWriteCloser) Close() error {
	if err := bwc.Writer.Flush(); err != nil {
		bwc.underlying.Close() // still release the file
		return fmt.Errorf("error flushing buffer: %w", err)
	}
	return bwc.underlying.Close()
}

func newBufferedWriteCloser(wc io.WriteCloser, size int) io.WriteCloser {
	return &bufferedWriteCloser{
		Writer:     bufio.NewWriterSize(wc, size),
		underlying: wc,
	}
}

// closeAll closes layers in order, outermost first, and keeps going after a
// failure so the file handle is always released.
func closeAll(layers []io.Closer) error {
	var errs []error
	for _, c := range layers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type compositeWriteCloser struct {
	io.Writer
	closeFunc func() error
}

// Close implements io.WriteCloser.
func (c *compositeWriteCloser) Close() error {
	if c.closeFunc == nil {
		return nil
	}
	return c.closeFunc()
}
