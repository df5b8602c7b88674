package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/spf13/afero"
)

const (
	None = "none"
	GZIP = "gzip"
	ZIP  = "zip"
	ZSTD = "zstd"
	LZ4  = "lz4"
)

// bufferSize of the outermost layer; large exports are dominated by small row writes.
const bufferSize = 256 * 1024

// OutputConfig holds configuration for output file creation.
type OutputConfig struct {
	// Fs defaults to the OS filesystem.
	Fs          afero.Fs
	Path        string
	Compression string
	// Format is the file extension of the payload, used for zip entry names.
	Format    string
	Append    bool
	Encoding  string
	EnableBOM bool
	// CharRefs writes unencodable runes as XML character references.
	CharRefs bool
}

func (cfg OutputConfig) compression() string {
	c := strings.ToLower(strings.TrimSpace(cfg.Compression))
	if c == "" {
		return None
	}
	return c
}

// FinalPath is the path actually written, with the compression extension applied.
func (cfg OutputConfig) FinalPath() string {
	path := cfg.Path
	suffix := ""
	switch cfg.compression() {
	case GZIP:
		suffix = ".gz"
	case ZSTD:
		suffix = ".zst"
	case LZ4:
		suffix = ".lz4"
	case ZIP:
		return fixExtension(path, ".zip")
	}
	if suffix != "" && !strings.HasSuffix(strings.ToLower(path), suffix) {
		path += suffix
	}
	return path
}

// CreateWriter opens the output file and returns a buffered writer that
// encodes text and compresses it as configured. Closing the writer flushes and
// closes every layer including the file.
// Supports various compression formats: none, gzip, zip, zstd, lz4.
func CreateWriter(cfg OutputConfig) (io.WriteCloser, error) {
	start := time.Now()
	compression := cfg.compression()

	var newCompressor func(io.Writer) (io.WriteCloser, error)
	switch compression {
	case None:
	case GZIP:
		newCompressor = newGzipWriter
	case ZSTD:
		newCompressor = newZstdWriter
	case LZ4:
		newCompressor = newLz4Writer
	case ZIP:
		if cfg.Append {
			return nil, fmt.Errorf("zip compression cannot be combined with append mode")
		}
		newCompressor = func(w io.Writer) (io.WriteCloser, error) {
			return newZipWriter(w, cfg.Path, cfg.Format)
		}
	default:
		return nil, fmt.Errorf("unsupported compression type %q", cfg.Compression)
	}

	enc, err := ResolveEncoding(cfg.Encoding, cfg.EnableBOM)
	if err != nil {
		return nil, err
	}

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	path := cfg.FinalPath()

	file, empty, err := openFile(fs, path, cfg.Append)
	if err != nil {
		return nil, err
	}

	var sink io.Writer = file
	// closed from the outside in
	layers := []io.Closer{file}

	if newCompressor != nil {
		comp, err := newCompressor(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		sink = comp
		layers = append([]io.Closer{comp}, layers...)
	}

	if len(enc.BOM) > 0 && empty {
		if _, err := sink.Write(enc.BOM); err != nil {
			closeAll(layers)
			return nil, fmt.Errorf("error writing byte order mark: %w", err)
		}
	}

	encoded := enc.NewWriter(sink)
	if cfg.CharRefs {
		encoded = enc.NewXMLWriter(sink)
	}
	layers = append([]io.Closer{encoded}, layers...)

	logger.Debug("Output ready: %s (compression=%s, encoding=%s, append=%v)", path, compression, enc.Name, cfg.Append)

	closeWithLog := &compositeWriteCloser{
		Writer: encoded,
		closeFunc: func() error {
			err := closeAll(layers)
			logger.Debug("Output file %s closed in %v", path, time.Since(start))
			return err
		},
	}
	return newBufferedWriteCloser(closeWithLog, bufferSize), nil
}
