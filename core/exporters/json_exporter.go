package exporters

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/fbz-tec/pgxquery/core/encoders"
	"github.com/fbz-tec/pgxquery/core/formatters"
	"github.com/fbz-tec/pgxquery/internal/logger"
)

// writeJSON writes a JSON array with one object per row. A cancelled export
// leaves the array open.
func writeJSON(ctx context.Context, w io.Writer, rows Rows, f *formatters.Formatter, opts ExportOptions) (int, error) {
	indent := opts.Json.Indent
	logger.Debug("Preparing JSON export (indent=%v, nullAsEmpty=%v)", indent, opts.Json.NullAsEmptyString)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("["); err != nil {
		return 0, fmt.Errorf("error writing start of JSON array: %w", err)
	}

	cols := selectColumns(rows.FieldDescriptions(), opts.ColumnsToInclude)
	orderedEncoder := encoders.NewOrderedJsonEncoder(f, indent, opts.Json.NullAsEmptyString)

	rowCount := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return rowCount, flushAfter(bw, err)
		}

		values, err := rows.Values()
		if err != nil {
			return rowCount, flushAfter(bw, fmt.Errorf("error reading row: %w", err))
		}

		rowData := orderedmap.NewOrderedMap[string, encoders.Cell]()
		for _, c := range cols {
			rowData.Set(c.name, encoders.Cell{Value: values[c.index], OID: c.oid})
		}

		jsonBytes, err := orderedEncoder.EncodeRow(rowData)
		if err != nil {
			return rowCount, flushAfter(bw, fmt.Errorf("error encoding JSON for row %d: %w", rowCount+1, err))
		}

		sep := ""
		if rowCount > 0 {
			sep = ","
		}
		if indent {
			sep += "\n  "
		}
		if _, err := bw.WriteString(sep); err != nil {
			return rowCount, fmt.Errorf("error writing JSON separator for row %d: %w", rowCount+1, err)
		}
		if _, err := bw.Write(jsonBytes); err != nil {
			return rowCount, fmt.Errorf("error writing JSON object for row %d: %w", rowCount+1, err)
		}

		rowCount++
		opts.progress(rowCount)
	}

	if err := rowsErr(ctx, rows); err != nil {
		return rowCount, flushAfter(bw, err)
	}

	closing := "]\n"
	if indent && rowCount > 0 {
		closing = "\n]\n"
	}
	if _, err := bw.WriteString(closing); err != nil {
		return rowCount, fmt.Errorf("error writing end of JSON array: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return rowCount, fmt.Errorf("error flushing JSON: %w", err)
	}
	return rowCount, nil
}
