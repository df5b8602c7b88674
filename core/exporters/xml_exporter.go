package exporters

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/fbz-tec/pgxquery/core/formatters"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/samber/lo"
)

// writeXML writes <root><row><column>text</column>...</row>...</root>.
// On cancellation the root element is still closed so the document stays well formed.
func writeXML(ctx context.Context, w io.Writer, rows Rows, f *formatters.Formatter, opts ExportOptions) (int, error) {
	xmlOpts := opts.Xml
	rootName := formatters.EncodeXMLName(lo.CoalesceOrEmpty(xmlOpts.RootElementName, "ROWSET"))
	rowName := formatters.EncodeXMLName(lo.CoalesceOrEmpty(xmlOpts.RowElementName, "ROW"))
	declEncoding := lo.CoalesceOrEmpty(xmlOpts.Encoding, "UTF-8")

	logger.Debug("Preparing XML export (root=%s, row=%s, encoding=%s)", rootName, rowName, declEncoding)

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "<?xml version=\"1.0\" encoding=\"%s\"?>\n", declEncoding); err != nil {
		return 0, fmt.Errorf("error writing XML header: %w", err)
	}

	encoder := xml.NewEncoder(bw)
	encoder.Indent("", "  ")

	cols := selectColumns(rows.FieldDescriptions(), opts.ColumnsToInclude)
	elems := lo.Map(cols, func(c column, _ int) xml.StartElement {
		return xml.StartElement{Name: xml.Name{Local: formatters.EncodeXMLName(c.name)}}
	})

	startRoot := xml.StartElement{Name: xml.Name{Local: rootName}}
	if err := encoder.EncodeToken(startRoot); err != nil {
		return 0, fmt.Errorf("error starting <%s>: %w", rootName, err)
	}

	// closeRoot ends the document after cancellation.
	closeRoot := func(rowCount int, cause error) (int, error) {
		if err := encoder.EncodeToken(startRoot.End()); err != nil {
			return rowCount, errors.Join(cause, fmt.Errorf("error ending </%s>: %w", rootName, err))
		}
		if err := encoder.Flush(); err != nil {
			return rowCount, errors.Join(cause, fmt.Errorf("error flushing XML encoder: %w", err))
		}
		bw.WriteString("\n")
		return rowCount, flushAfter(bw, cause)
	}
	// abort keeps what was written without repairing the document.
	abort := func(rowCount int, cause error) (int, error) {
		if err := encoder.Flush(); err != nil {
			logger.Warn("Could not flush partial XML: %v", err)
		}
		return rowCount, flushAfter(bw, cause)
	}

	startRow := xml.StartElement{Name: xml.Name{Local: rowName}}
	rowCount := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return closeRoot(rowCount, err)
		}

		values, err := rows.Values()
		if err != nil {
			return abort(rowCount, fmt.Errorf("error reading row: %w", err))
		}

		if err := encoder.EncodeToken(startRow); err != nil {
			return abort(rowCount, fmt.Errorf("error opening <%s>: %w", rowName, err))
		}
		for i, c := range cols {
			val := f.XML(values[c.index], c.oid)
			if err := encoder.EncodeElement(val, elems[i]); err != nil {
				return abort(rowCount, fmt.Errorf("error encoding field %s: %w", c.name, err))
			}
		}
		if err := encoder.EncodeToken(startRow.End()); err != nil {
			return abort(rowCount, fmt.Errorf("error closing </%s>: %w", rowName, err))
		}

		rowCount++
		opts.progress(rowCount)
	}

	if err := rowsErr(ctx, rows); err != nil {
		if ctx.Err() != nil {
			return closeRoot(rowCount, err)
		}
		return abort(rowCount, err)
	}

	if err := encoder.EncodeToken(startRoot.End()); err != nil {
		return rowCount, fmt.Errorf("error ending </%s>: %w", rootName, err)
	}
	if err := encoder.Flush(); err != nil {
		return rowCount, fmt.Errorf("error flushing XML encoder: %w", err)
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return rowCount, fmt.Errorf("error writing final newline: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return rowCount, fmt.Errorf("error flushing XML: %w", err)
	}
	return rowCount, nil
}
