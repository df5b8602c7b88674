package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fbz-tec/pgxquery/core/db"
	"github.com/fbz-tec/pgxquery/core/exporters"
)

// resetFlags restores the query flag defaults after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		sqlQuery, sqlFile, params = "", "", nil
		format, columns = "csv", nil
		dateFormat, timeFormat, timeZone, culture = "", "yyyy-MM-dd HH:mm:ss", "", ""
		delimiter, lineBreak = ";", "CRLF"
		noHeader, rawHeaders, noQuotes, noDateQuotes = false, false, false, false
		xmlRootElement, xmlRowElement = "ROWSET", "ROW"
		jsonCompact, jsonNullEmpty, readOnly, noThrow = false, false, false, false
		compression, encoding, appendMode = "none", "utf-8", false
		connString, timeoutSec = "", 0
	})
}

func TestValidateQueryFlags(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		wantErr string
	}{
		{"valid", func() { sqlQuery = "SELECT 1" }, ""},
		{"no query", func() {}, "Either --sql or --sqlfile"},
		{"both sources", func() { sqlQuery, sqlFile = "SELECT 1", "q.sql" }, "Cannot use both"},
		{"bad format", func() { sqlQuery, format = "SELECT 1", "xlsx" }, "Invalid format"},
		{"bad zone", func() { sqlQuery, timeZone = "SELECT 1", "Mars/Olympus" }, "Invalid timezone"},
		{"bad culture", func() { sqlQuery, culture = "SELECT 1", "??" }, "Invalid culture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			sqlQuery, sqlFile, format, timeZone, culture = "", "", "csv", "", ""
			timeFormat = "yyyy-MM-dd HH:mm:ss"
			tt.setup()

			err := validateQueryFlags()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validateQueryFlags() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateQueryFlags() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestExportOptionsFromFlags(t *testing.T) {
	resetFlags(t)
	format = "JSON"
	delimiter = "pipe"
	lineBreak = "lf"
	columns = []string{"id", "name"}
	noHeader = true
	jsonCompact = true
	xmlRootElement = "Root"

	opts, err := exportOptions()
	if err != nil {
		t.Fatalf("exportOptions() error: %v", err)
	}
	if opts.Format != exporters.FormatJSON {
		t.Errorf("Format = %v", opts.Format)
	}
	if opts.Csv.Delimiter != '|' || opts.Csv.LineBreak != exporters.LF || opts.Csv.IncludeHeaders {
		t.Errorf("Csv = %+v", opts.Csv)
	}
	if opts.Json.Indent {
		t.Error("Json.Indent should be off with --compact")
	}
	if opts.Xml.RootElementName != "Root" || len(opts.ColumnsToInclude) != 2 {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.Csv.AddQuotesToDates || !opts.Csv.SanitizeHeaders {
		t.Errorf("defaults lost: %+v", opts.Csv)
	}

	delimiter = ";;"
	if _, err := exportOptions(); err == nil {
		t.Error("expected error for multi character delimiter")
	}
}

func TestQueryParametersFromFlags(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "q.sql")
	if err := os.WriteFile(path, []byte("SELECT * FROM t WHERE id = :id"), 0o644); err != nil {
		t.Fatal(err)
	}
	sqlFile = path
	params = []string{"id:int=7", "name=Ville"}

	q, err := queryParameters()
	if err != nil {
		t.Fatalf("queryParameters() error: %v", err)
	}
	if q.Query != "SELECT * FROM t WHERE id = :id" {
		t.Errorf("Query = %q", q.Query)
	}
	if len(q.Parameters) != 2 || q.Parameters[0].Value.Kind() != db.KindInt || q.Parameters[1].Value.Kind() != db.KindString {
		t.Errorf("Parameters = %+v", q.Parameters)
	}

	params = []string{"broken"}
	if _, err := queryParameters(); err == nil {
		t.Error("expected error for parameter without value")
	}
}

func TestValidateFileFlags(t *testing.T) {
	resetFlags(t)

	compression, encoding = " GZIP ", "utf-8"
	if err := validateFileFlags(); err != nil || compression != "gzip" {
		t.Errorf("validateFileFlags() = %v, compression = %q", err, compression)
	}

	compression = "rar"
	if err := validateFileFlags(); err == nil {
		t.Error("expected error for unknown compression")
	}

	compression, appendMode = "zip", true
	if err := validateFileFlags(); err == nil {
		t.Error("expected error for zip with append")
	}

	compression, appendMode, encoding = "none", false, "klingon"
	if err := validateFileFlags(); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestConnectionInfoFromDSNFlag(t *testing.T) {
	resetFlags(t)
	connString = "Host=db;Database=app"
	timeoutSec = 9

	info, err := connectionInfo()
	if err != nil {
		t.Fatalf("connectionInfo() error: %v", err)
	}
	if info.ConnectionString != "Host=db;Database=app" || info.TimeoutSeconds != 9 {
		t.Errorf("info = %+v", info)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(out.String(), "pgxquery ") {
		t.Errorf("version output = %q", out.String())
	}
}
