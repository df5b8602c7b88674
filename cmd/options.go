package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fbz-tec/pgxquery/core/db"
	"github.com/fbz-tec/pgxquery/core/exporters"
	"github.com/fbz-tec/pgxquery/core/task"
	"github.com/fbz-tec/pgxquery/core/validation"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/spf13/cobra"
)

var (
	sqlQuery   string
	sqlFile    string
	params     []string
	format     string
	columns    []string
	dateFormat string
	timeFormat string
	timeZone   string
	culture    string
	readOnly   bool
	noThrow    bool
	// CSV options
	delimiter    string
	lineBreak    string
	noHeader     bool
	rawHeaders   bool
	noQuotes     bool
	noDateQuotes bool
	// XML options
	xmlRootElement string
	xmlRowElement  string
	// JSON options
	jsonCompact   bool
	jsonNullEmpty bool
)

// addQueryFlags registers the flags shared by every command that runs a query.
func addQueryFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.SortFlags = false

	// QUERY INPUT
	flags.StringVarP(&sqlQuery, "sql", "s", "", "SQL query to execute")
	flags.StringVarP(&sqlFile, "sqlfile", "F", "", "Path to SQL file containing the query")
	flags.StringArrayVarP(&params, "param", "P", nil, "Named parameter as name=value or name:type=value (repeatable)")
	flags.BoolVar(&readOnly, "read-only", false, "Reject statements other than SELECT and WITH")

	// OUTPUT FORMAT
	flags.StringVarP(&format, "format", "f", "csv", "Output format ("+strings.Join(exporters.ListFormats(), ", ")+")")
	flags.StringSliceVarP(&columns, "columns", "c", nil, "Only emit these columns, in result order")
	flags.StringVar(&dateFormat, "date-format", "", "Date pattern for date columns (default: date part of --time-format)")
	flags.StringVarP(&timeFormat, "time-format", "T", "yyyy-MM-dd HH:mm:ss", "Date-time pattern (e.g. yyyy-MM-ddTHH:mm:ss.fff)")
	flags.StringVarP(&timeZone, "time-zone", "Z", "", "Time zone for timestamptz values (e.g. UTC, Europe/Paris). Defaults to local time zone.")
	flags.StringVar(&culture, "culture", "", "Culture for XML decimal separators (e.g. fi-FI)")

	// CSV options
	flags.StringVarP(&delimiter, "delimiter", "D", ";", "CSV delimiter character, or comma, semicolon, pipe, tab")
	flags.StringVar(&lineBreak, "line-break", "CRLF", "CSV line break (CRLF, LF, CR)")
	flags.BoolVarP(&noHeader, "no-header", "n", false, "Skip header row in CSV output")
	flags.BoolVar(&rawHeaders, "raw-headers", false, "Keep CSV header names as returned by the query")
	flags.BoolVar(&noQuotes, "no-quotes", false, "Do not quote CSV string values")
	flags.BoolVar(&noDateQuotes, "no-date-quotes", false, "Do not quote CSV date values")

	// XML options
	flags.StringVar(&xmlRootElement, "xml-root-tag", "ROWSET", "Sets the root element name for XML output")
	flags.StringVar(&xmlRowElement, "xml-row-tag", "ROW", "Sets the row element name for XML output")

	// JSON options
	flags.BoolVar(&jsonCompact, "compact", false, "Write JSON without indentation")
	flags.BoolVar(&jsonNullEmpty, "null-as-empty", false, "Write JSON nulls as empty strings")

	flags.BoolVar(&noThrow, "no-throw", false, "Report failures as a result line and exit 0")
}

func validateQueryFlags() error {
	if sqlQuery == "" && sqlFile == "" {
		return fmt.Errorf("error: Either --sql or --sqlfile must be provided")
	}
	if sqlQuery != "" && sqlFile != "" {
		return fmt.Errorf("error: Cannot use both --sql and --sqlfile at the same time")
	}
	if _, err := exporters.ParseFormat(format); err != nil {
		return fmt.Errorf("error: Invalid format '%s'. Valid formats are: %s",
			format, strings.Join(exporters.ListFormats(), ", "))
	}
	if err := validation.ValidateTimeFormat(timeFormat); err != nil {
		return fmt.Errorf("error: Invalid time format '%s'. Use format like 'yyyy-MM-dd HH:mm:ss'", timeFormat)
	}
	if dateFormat != "" {
		if err := validation.ValidateTimeFormat(dateFormat); err != nil {
			return fmt.Errorf("error: Invalid date format '%s'. Use format like 'yyyy-MM-dd'", dateFormat)
		}
	}
	if timeZone != "" {
		if err := validation.ValidateTimeZone(timeZone); err != nil {
			return fmt.Errorf("error: Invalid timezone '%s'. Use format like 'UTC' or 'Europe/Paris'", timeZone)
		}
	}
	if culture != "" {
		if err := validation.ValidateCulture(culture); err != nil {
			return fmt.Errorf("error: Invalid culture '%s'. Use a BCP 47 tag like 'fi-FI'", culture)
		}
	}
	return nil
}

func queryParameters() (task.QueryParameters, error) {
	query := sqlQuery
	if sqlFile != "" {
		logger.Debug("Reading SQL from file: %s", sqlFile)
		content, err := os.ReadFile(sqlFile)
		if err != nil {
			return task.QueryParameters{}, fmt.Errorf("error reading SQL file: %w", err)
		}
		query = string(content)
		logger.Debug("SQL query loaded from file (%d characters)", len(query))
	} else {
		logger.Debug("Using inline SQL query (%d characters)", len(query))
	}

	bound := make([]db.Parameter, 0, len(params))
	for _, arg := range params {
		p, err := db.ParseParameter(arg)
		if err != nil {
			return task.QueryParameters{}, err
		}
		bound = append(bound, p)
	}
	return task.QueryParameters{Query: query, Parameters: bound}, nil
}

func exportOptions() (exporters.ExportOptions, error) {
	f, err := exporters.ParseFormat(format)
	if err != nil {
		return exporters.ExportOptions{}, err
	}
	delim, err := exporters.ParseDelimiter(delimiter)
	if err != nil {
		return exporters.ExportOptions{}, fmt.Errorf("invalid delimiter: %w", err)
	}
	lb, err := exporters.ParseLineBreak(lineBreak)
	if err != nil {
		return exporters.ExportOptions{}, err
	}

	opts := exporters.DefaultExportOptions()
	opts.Format = f
	opts.ColumnsToInclude = columns
	opts.DateFormat = dateFormat
	opts.DateTimeFormat = timeFormat
	opts.TimeZone = timeZone
	opts.Culture = culture
	opts.Xml.RootElementName = xmlRootElement
	opts.Xml.RowElementName = xmlRowElement
	opts.Json.Indent = !jsonCompact
	opts.Json.NullAsEmptyString = jsonNullEmpty
	opts.Csv.Delimiter = delim
	opts.Csv.LineBreak = lb
	opts.Csv.IncludeHeaders = !noHeader
	opts.Csv.SanitizeHeaders = !rawHeaders
	opts.Csv.NoQuotes = noQuotes
	opts.Csv.AddQuotesToDates = !noDateQuotes

	logger.Debug("Output: format=%s delimiter=%q columns=%v", f, string(delim), columns)
	return opts, nil
}

func taskOptions() task.Options {
	opts := task.DefaultOptions()
	opts.ThrowOnFailure = !noThrow
	opts.ReadOnly = readOnly
	return opts
}
