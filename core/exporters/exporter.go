package exporters

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fbz-tec/pgxquery/core/formatters"
	"github.com/fbz-tec/pgxquery/core/output"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/afero"
)

// Rows is the forward-only cursor the exporters consume. pgx.Rows satisfies it.
type Rows interface {
	FieldDescriptions() []pgconn.FieldDescription
	Next() bool
	Values() ([]any, error)
	Err() error
}

type LineBreak string

const (
	CRLF LineBreak = "\r\n"
	LF   LineBreak = "\n"
	CR   LineBreak = "\r"
)

// ParseLineBreak accepts CRLF, LF and CR in any case.
func ParseLineBreak(name string) (LineBreak, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "CRLF":
		return CRLF, nil
	case "LF":
		return LF, nil
	case "CR":
		return CR, nil
	}
	return "", fmt.Errorf("unsupported line break %q (available: CRLF, LF, CR)", name)
}

// ParseDelimiter accepts a single character, \t, or one of the names
// comma, semicolon, pipe and tab.
func ParseDelimiter(delim string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(delim)) {
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	case "tab", `\t`:
		return '\t', nil
	}

	if delim == "" {
		return 0, fmt.Errorf("delimiter cannot be empty")
	}
	runes := []rune(delim)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character (use \\t for tab)")
	}
	return runes[0], nil
}

type XmlOptions struct {
	RootElementName string
	RowElementName  string
	// Encoding is the name written in the XML declaration. WriteToFile sets
	// it from the file encoding when empty.
	Encoding string
}

type JsonOptions struct {
	NullAsEmptyString bool
	Indent            bool
}

type CsvOptions struct {
	IncludeHeaders   bool
	SanitizeHeaders  bool
	Delimiter        rune
	LineBreak        LineBreak
	AddQuotesToDates bool
	NoQuotes         bool
}

// ExportOptions holds export configuration
type ExportOptions struct {
	Format           Format
	ColumnsToInclude []string
	DateFormat       string
	DateTimeFormat   string
	TimeZone         string
	Culture          string

	Xml  XmlOptions
	Json JsonOptions
	Csv  CsvOptions

	// Progress, when set, is called after every written row with the running count.
	Progress func(rows int)
}

// FileOptions describes the file sink of WriteToFile.
type FileOptions struct {
	Path        string
	Append      bool
	Encoding    string
	EnableBOM   bool
	Compression string
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:         FormatCSV,
		DateFormat:     formatters.DefaultDateFormat,
		DateTimeFormat: formatters.DefaultDateTimeFormat,
		Xml: XmlOptions{
			RootElementName: "ROWSET",
			RowElementName:  "ROW",
		},
		Json: JsonOptions{Indent: true},
		Csv: CsvOptions{
			IncludeHeaders:   true,
			SanitizeHeaders:  true,
			Delimiter:        ';',
			LineBreak:        CRLF,
			AddQuotesToDates: true,
		},
	}
}

// Validate checks the options that do not depend on the cursor, including
// the date patterns, time zone and culture.
func (o ExportOptions) Validate() error {
	if _, err := o.Format.ext(); err != nil {
		return err
	}
	switch o.Csv.LineBreak {
	case "", CRLF, LF, CR:
	default:
		return fmt.Errorf("unsupported line break %q", string(o.Csv.LineBreak))
	}
	if o.Format == FormatCSV && (o.Csv.Delimiter == '\r' || o.Csv.Delimiter == '\n') {
		return fmt.Errorf("invalid CSV delimiter %q", o.Csv.Delimiter)
	}
	_, err := o.formatter()
	return err
}

func (o ExportOptions) formatter() (*formatters.Formatter, error) {
	return formatters.New(formatters.Config{
		DateFormat:       o.DateFormat,
		DateTimeFormat:   o.DateTimeFormat,
		TimeZone:         o.TimeZone,
		Culture:          o.Culture,
		AddQuotesToDates: o.Csv.AddQuotesToDates,
		NoQuotes:         o.Csv.NoQuotes,
	})
}

func (o ExportOptions) progress(count int) {
	if o.Progress != nil {
		o.Progress(count)
	}
	if count%10000 == 0 {
		logger.Debug("%d %s rows written...", count, o.Format)
	}
}

// Export streams rows to w in the selected format and returns the number of
// complete data rows written. When ctx is cancelled between rows the export
// stops, ctx.Err() is returned and nothing already written is taken back.
func Export(ctx context.Context, w io.Writer, rows Rows, opts ExportOptions) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	f, err := opts.formatter()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	logger.Debug("Starting %s export", opts.Format)

	var n int
	switch opts.Format {
	case FormatCSV:
		n, err = writeCSV(ctx, w, rows, f, opts)
	case FormatJSON:
		n, err = writeJSON(ctx, w, rows, f, opts)
	case FormatXML:
		n, err = writeXML(ctx, w, rows, f, opts)
	default:
		return 0, unsupportedFormat(opts.Format.String())
	}
	if err != nil {
		return n, err
	}

	logger.Debug("%s export completed successfully: %d rows written in %v", opts.Format, n, time.Since(start))
	return n, nil
}

func exportString(ctx context.Context, rows Rows, opts ExportOptions, format Format) (string, error) {
	opts.Format = format
	var sb strings.Builder
	if _, err := Export(ctx, &sb, rows, opts); err != nil {
		return sb.String(), err
	}
	return sb.String(), nil
}

// FormatAsXML renders the whole result as an XML document.
func FormatAsXML(ctx context.Context, rows Rows, opts ExportOptions) (string, error) {
	return exportString(ctx, rows, opts, FormatXML)
}

// FormatAsJSON renders the whole result as a JSON array of objects.
func FormatAsJSON(ctx context.Context, rows Rows, opts ExportOptions) (string, error) {
	return exportString(ctx, rows, opts, FormatJSON)
}

// FormatAsCSV renders the whole result as delimited text.
func FormatAsCSV(ctx context.Context, rows Rows, opts ExportOptions) (string, error) {
	return exportString(ctx, rows, opts, FormatCSV)
}

// ToString renders the result in opts.Format.
func ToString(ctx context.Context, rows Rows, opts ExportOptions) (string, error) {
	return exportString(ctx, rows, opts, opts.Format)
}

// WriteToFile streams the result into the file described by file and returns
// the number of data rows written. The file is closed on every path.
func WriteToFile(ctx context.Context, rows Rows, opts ExportOptions, file FileOptions) (n int, err error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}

	cfg := OutputConfig(opts, file)
	if opts.Format == FormatXML && opts.Xml.Encoding == "" {
		enc, err := output.ResolveEncoding(file.Encoding, file.EnableBOM)
		if err != nil {
			return 0, err
		}
		opts.Xml.Encoding = enc.Name
	}

	w, err := output.CreateWriter(cfg)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing %s: %w", cfg.FinalPath(), cerr)
		}
	}()

	return Export(ctx, w, rows, opts)
}

// OutputConfig maps the export and file options onto the file sink configuration.
func OutputConfig(opts ExportOptions, file FileOptions) output.OutputConfig {
	ext, _ := opts.Format.ext()
	return output.OutputConfig{
		Fs:          file.Fs,
		Path:        file.Path,
		Compression: file.Compression,
		Format:      ext,
		Append:      file.Append,
		Encoding:    file.Encoding,
		EnableBOM:   file.EnableBOM,
		CharRefs:    opts.Format == FormatXML,
	}
}
