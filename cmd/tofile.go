package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fbz-tec/pgxquery/core/config"
	"github.com/fbz-tec/pgxquery/core/exporters"
	"github.com/fbz-tec/pgxquery/core/output"
	"github.com/fbz-tec/pgxquery/core/task"
	"github.com/fbz-tec/pgxquery/core/validation"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/fbz-tec/pgxquery/internal/ui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	outputPath  string
	appendMode  bool
	encoding    string
	enableBOM   bool
	compression string
	failOnEmpty bool
)

var compressions = []string{output.None, output.GZIP, output.ZIP, output.ZSTD, output.LZ4}

var toFileCmd = &cobra.Command{
	Use:   "to-file",
	Short: "Run a query and write the rows to a file",
	Example: heredoc.Doc(`
		# CSV in Windows-1252, appended to a daily file
		pgxquery to-file -s "SELECT * FROM events WHERE day = :day" -P day:date=2024-05-01 \
		  -o events.csv --encoding windows-1252 --append

		# Gzipped JSON
		pgxquery to-file -F report.sql -f json -o report.json -z gzip

		# UTF-8 XML with a byte order mark
		pgxquery to-file -s "SELECT * FROM orders" -f xml -o orders.xml --bom
	`),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("Validating export parameters")
		if err := validateQueryFlags(); err != nil {
			return err
		}
		return validateFileFlags()
	},
	RunE: runToFile,
}

func init() {
	addQueryFlags(toFileCmd)

	flags := toFileCmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "", "Output file path (required)")
	flags.BoolVarP(&appendMode, "append", "a", false, "Append to the file instead of overwriting it")
	flags.StringVarP(&encoding, "encoding", "e", "utf-8", "File encoding (utf-8, ascii, ansi, windows-1252, iso-8859-1, 850, ...)")
	flags.BoolVar(&enableBOM, "bom", false, "Write a UTF-8 byte order mark when the file is empty")
	flags.StringVarP(&compression, "compression", "z", output.None, "Compression to apply to the output file ("+strings.Join(compressions, ", ")+")")
	flags.BoolVarP(&failOnEmpty, "fail-on-empty", "x", false, "Exit with error if query returns 0 rows")

	if err := toFileCmd.MarkFlagRequired("output"); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func validateFileFlags() error {
	compression = strings.ToLower(strings.TrimSpace(compression))
	if compression == "" {
		compression = output.None
	}
	if !lo.Contains(compressions, compression) {
		return fmt.Errorf("error: Invalid compression '%s'. Valid options are: %s",
			compression, strings.Join(compressions, ", "))
	}
	if compression == output.ZIP && appendMode {
		return fmt.Errorf("error: --append cannot be used with zip compression")
	}
	if err := validation.ValidateEncoding(encoding); err != nil {
		return fmt.Errorf("error: %w", err)
	}
	return nil
}

func runToFile(cmd *cobra.Command, args []string) error {
	query, err := queryParameters()
	if err != nil {
		return err
	}
	out, err := exportOptions()
	if err != nil {
		return err
	}
	conn, err := connectionInfo()
	if err != nil {
		return err
	}

	file := exporters.FileOptions{
		Path:        outputPath,
		Append:      appendMode,
		Encoding:    encoding,
		EnableBOM:   enableBOM,
		Compression: compression,
	}
	return writeFile(cmd, query, out, file, conn, taskOptions())
}

// writeFile runs the query into file, showing progress unless quiet.
func writeFile(cmd *cobra.Command, query task.QueryParameters, out exporters.ExportOptions, file exporters.FileOptions, conn config.ConnectionInfo, opts task.Options) error {
	var progress *ui.RowProgress
	if !logger.IsQuiet() && !logger.IsVerbose() {
		progress = ui.NewRowProgress(cmd.ErrOrStderr())
		out.Progress = progress.Row
	}

	res, err := task.ExecuteQueryToFile(cmd.Context(), query, task.FileOutputProperties{Export: out, File: file}, conn, opts)
	progress.Finish()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if !res.Success {
		logger.Error("Export failed: %s", res.Message)
		return nil
	}
	return handleExportResult(res.Rows, res.Path)
}

func handleExportResult(rowCount int, path string) error {
	if rowCount == 0 {
		if failOnEmpty {
			return fmt.Errorf("export failed: query returned 0 rows")
		}
		logger.Warn("Query returned 0 rows. File created at %s but contains no data rows", path)
		return nil
	}

	logger.Success("Export completed: %d rows -> %s", rowCount, path)
	return nil
}
