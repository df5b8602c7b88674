package encoders

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/fbz-tec/pgxquery/core/formatters"
)

// Cell is one column value of a row together with its PostgreSQL type OID.
type Cell struct {
	Value any
	OID   uint32
}

// OrderedJsonEncoder encodes one row as a JSON object, keeping column order.
type OrderedJsonEncoder struct {
	formatter   *formatters.Formatter
	indent      bool
	nullAsEmpty bool
}

func NewOrderedJsonEncoder(f *formatters.Formatter, indent, nullAsEmpty bool) OrderedJsonEncoder {
	return OrderedJsonEncoder{
		formatter:   f,
		indent:      indent,
		nullAsEmpty: nullAsEmpty,
	}
}

// EncodeRow renders the row object. Indented rows are laid out for an array
// indented by two spaces: fields at four spaces, closing brace at two.
func (o OrderedJsonEncoder) EncodeRow(rowData *orderedmap.OrderedMap[string, Cell]) ([]byte, error) {
	if rowData.Len() == 0 {
		return []byte("{}"), nil
	}

	var row bytes.Buffer
	row.Grow(rowData.Len() * 32)

	fieldSep, fieldIndent, keySep, closing := ",", "", ":", "}"
	if o.indent {
		fieldSep, fieldIndent, keySep, closing = ",\n", "    ", ": ", "\n  }"
		row.WriteString("{\n")
	} else {
		row.WriteString("{")
	}

	i := 0
	for k, cell := range rowData.AllFromFront() {
		if i > 0 {
			row.WriteString(fieldSep)
		}
		row.WriteString(fieldIndent)

		keyJSON, err := marshalWithoutHTMLEscape(k, "")
		if err != nil {
			return nil, fmt.Errorf("error marshaling key %q: %w", k, err)
		}
		row.Write(keyJSON)
		row.WriteString(keySep)

		var value any
		if cell.Value == nil && o.nullAsEmpty {
			value = ""
		} else {
			value = o.formatter.JSON(cell.Value, cell.OID)
		}

		prefix := ""
		if o.indent {
			prefix = "    "
		}
		valueJSON, err := marshalWithoutHTMLEscape(value, prefix)
		if err != nil {
			return nil, fmt.Errorf("error marshaling value for key %q: %w", k, err)
		}
		row.Write(valueJSON)
		i++
	}

	row.WriteString(closing)
	return row.Bytes(), nil
}

// nested objects and arrays are indented relative to prefix when it is set
func marshalWithoutHTMLEscape(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if prefix != "" {
		switch v.(type) {
		case map[string]any, []any:
			encoder.SetIndent(prefix, "  ")
		}
	}

	if err := encoder.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
