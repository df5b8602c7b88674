package output

import (
	"fmt"
	"os"

	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/spf13/afero"
)

// openFile opens path for writing, truncating it unless appending.
// It reports whether the file was empty when opened.
func openFile(fs afero.Fs, path string, appendMode bool) (afero.File, bool, error) {
	flags := os.O_CREATE | os.O_WRONLY
	mode := "overwrite"
	if appendMode {
		flags |= os.O_APPEND
		mode = "append"
	} else {
		flags |= os.O_TRUNC
	}

	logger.Debug("Opening output file: %s (mode=%s)", path, mode)
	file, err := fs.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("error creating file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, false, fmt.Errorf("error inspecting file: %w", err)
	}
	return file, info.Size() == 0, nil
}
