package exporters

import (
	"context"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestExportPostgresTypes(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	query := `
		SELECT
			1::integer AS int_col,
			3.14::numeric AS numeric_col,
			'text value'::text AS text_col,
			true AS bool_col,
			NULL::text AS null_col,
			'2024-01-15'::date AS date_col,
			'2024-01-15 10:30:00'::timestamp AS ts_col,
			'{"a": [1, 2]}'::jsonb AS doc_col,
			'6ba7b810-9dad-11d1-80b4-00c04fd430c8'::uuid AS uuid_col`

	ctx := context.Background()

	t.Run("json", func(t *testing.T) {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			t.Fatalf("Failed to execute query: %v", err)
		}
		defer rows.Close()

		out, err := FormatAsJSON(ctx, rows, DefaultExportOptions())
		if err != nil {
			t.Fatalf("FormatAsJSON() error: %v", err)
		}
		checks := map[string]string{
			"0.int_col":     "1",
			"0.numeric_col": "3.14",
			"0.bool_col":    "true",
			"0.null_col":    "null",
			"0.date_col":    `"2024-01-15"`,
			"0.ts_col":      `"2024-01-15 10:30:00"`,
			"0.uuid_col":    `"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`,
		}
		for path, raw := range checks {
			if got := gjson.Get(out, path).Raw; got != raw {
				t.Errorf("%s = %s, want %s", path, got, raw)
			}
		}
		if got := gjson.Get(out, "0.doc_col.a.1").Int(); got != 2 {
			t.Errorf("jsonb not embedded: %s", gjson.Get(out, "0.doc_col").Raw)
		}
	})

	t.Run("csv", func(t *testing.T) {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			t.Fatalf("Failed to execute query: %v", err)
		}
		defer rows.Close()

		opts := DefaultExportOptions()
		opts.Csv.IncludeHeaders = false
		out, err := FormatAsCSV(ctx, rows, opts)
		if err != nil {
			t.Fatalf("FormatAsCSV() error: %v", err)
		}
		want := `1;3.14;"text value";true;"";"2024-01-15";"2024-01-15 10:30:00";"{\"a\":[1,2]}";6ba7b810-9dad-11d1-80b4-00c04fd430c8`
		if got := strings.TrimSuffix(out, "\r\n"); got != want {
			t.Errorf("CSV row = %s\nwant      %s", got, want)
		}
	})
}
