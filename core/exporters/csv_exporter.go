package exporters

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fbz-tec/pgxquery/core/formatters"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/samber/lo"
)

// writeCSV writes delimited text. encoding/csv is not used: its quoting
// doubles embedded quotes, these rules escape them as \".
func writeCSV(ctx context.Context, w io.Writer, rows Rows, f *formatters.Formatter, opts ExportOptions) (int, error) {
	csvOpts := opts.Csv
	delimiter := string(csvOpts.Delimiter)
	if csvOpts.Delimiter == 0 {
		delimiter = ";"
	}
	lineBreak := string(csvOpts.LineBreak)
	if lineBreak == "" {
		lineBreak = string(CRLF)
	}

	logger.Debug("Preparing CSV export (delimiter=%q, headers=%v, sanitize=%v)",
		delimiter, csvOpts.IncludeHeaders, csvOpts.SanitizeHeaders)

	bw := bufio.NewWriter(w)
	cols := selectColumns(rows.FieldDescriptions(), opts.ColumnsToInclude)

	if csvOpts.IncludeHeaders {
		headers := lo.Map(cols, func(c column, _ int) string {
			return formatters.FormatHeader(c.name, csvOpts.SanitizeHeaders)
		})
		if _, err := bw.WriteString(strings.Join(headers, delimiter) + lineBreak); err != nil {
			return 0, fmt.Errorf("error writing headers: %w", err)
		}
		logger.Debug("CSV headers written: %s", strings.Join(headers, delimiter))
	}

	record := make([]string, len(cols))
	rowCount := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return rowCount, flushAfter(bw, err)
		}

		values, err := rows.Values()
		if err != nil {
			return rowCount, flushAfter(bw, fmt.Errorf("error reading row: %w", err))
		}

		for i, c := range cols {
			record[i] = f.CSV(values[c.index], c.oid)
		}
		if _, err := bw.WriteString(strings.Join(record, delimiter) + lineBreak); err != nil {
			return rowCount, fmt.Errorf("error writing row %d: %w", rowCount+1, err)
		}

		rowCount++
		opts.progress(rowCount)
	}

	if err := rowsErr(ctx, rows); err != nil {
		return rowCount, flushAfter(bw, err)
	}

	if err := bw.Flush(); err != nil {
		return rowCount, fmt.Errorf("error flushing CSV: %w", err)
	}
	return rowCount, nil
}

// flushAfter keeps the complete rows already buffered and returns cause.
func flushAfter(bw *bufio.Writer, cause error) error {
	if err := bw.Flush(); err != nil {
		logger.Warn("Could not flush partial output: %v", err)
	}
	return cause
}

// rowsErr reports the cursor error, replaced by the context error when the
// cursor stopped because ctx ended.
func rowsErr(ctx context.Context, rows Rows) error {
	err := rows.Err()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("error iterating rows: %w", err)
}
