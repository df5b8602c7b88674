package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/klauspost/compress/zip"
)

// newZipWriter creates a single entry archive. Close finishes the archive
// but leaves w open.
func newZipWriter(w io.Writer, path, format string) (io.WriteCloser, error) {
	zipWriter := zip.NewWriter(w)
	entryName := determineZipEntryName(path, format)
	logger.Debug("Creating zip entry: %s", entryName)
	entryWriter, err := zipWriter.Create(entryName)
	if err != nil {
		zipWriter.Close()
		return nil, fmt.Errorf("error creating zip entry: %w", err)
	}
	return &compositeWriteCloser{
		Writer:    entryWriter,
		closeFunc: zipWriter.Close,
	}, nil
}

func determineZipEntryName(outputPath, format string) string {
	base := filepath.Base(outputPath)
	lowerBase := strings.ToLower(base)

	name := strings.TrimSuffix(lowerBase, ".zip")

	if name == "" {
		name = "export"
	}

	if format != "" && !strings.HasSuffix(name, "."+format) {
		name = fmt.Sprintf("%s.%s", name, format)
	}

	return name
}

func fixExtension(path, extension string) string {
	ext := filepath.Ext(path)

	if strings.ToLower(ext) != extension {
		path = path[:len(path)-len(ext)] + extension
	}
	return path
}
