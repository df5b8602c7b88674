package task

import (
	"fmt"

	"github.com/fbz-tec/pgxquery/core/config"
	"github.com/fbz-tec/pgxquery/core/db"
	"github.com/fbz-tec/pgxquery/core/exporters"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Task is a complete invocation read from a task file. File is nil when the
// rows are returned in memory.
type Task struct {
	Connection config.ConnectionInfo
	Query      QueryParameters
	Output     exporters.ExportOptions
	File       *exporters.FileOptions
	Options    Options
}

type taskDoc struct {
	Connection config.ConnectionInfo `yaml:"connection"`
	Query      string                `yaml:"query"`
	Parameters []db.Parameter        `yaml:"parameters"`
	Output     outputDoc             `yaml:"output"`
	File       *fileDoc              `yaml:"file"`
	Options    optionsDoc            `yaml:"options"`
}

type outputDoc struct {
	Format           exporters.Format `yaml:"format"`
	ColumnsToInclude []string         `yaml:"columnsToInclude"`
	DateFormat       string           `yaml:"dateFormat"`
	DateTimeFormat   string           `yaml:"dateTimeFormat"`
	TimeZone         string           `yaml:"timeZone"`
	Culture          string           `yaml:"culture"`
	Xml              xmlDoc           `yaml:"xml"`
	Json             jsonDoc          `yaml:"json"`
	Csv              csvDoc           `yaml:"csv"`
}

type xmlDoc struct {
	RootElementName string `yaml:"rootElementName"`
	RowElementName  string `yaml:"rowElementName"`
}

type jsonDoc struct {
	NullAsEmptyString bool `yaml:"nullAsEmptyString"`
	Indent            bool `yaml:"indent"`
}

type csvDoc struct {
	IncludeHeaders   bool   `yaml:"includeHeaders"`
	SanitizeHeaders  bool   `yaml:"sanitizeHeaders"`
	Delimiter        string `yaml:"delimiter"`
	LineBreak        string `yaml:"lineBreak"`
	AddQuotesToDates bool   `yaml:"addQuotesToDates"`
	NoQuotes         bool   `yaml:"noQuotes"`
}

type fileDoc struct {
	Path        string `yaml:"path"`
	Append      bool   `yaml:"append"`
	Encoding    string `yaml:"encoding"`
	EnableBOM   bool   `yaml:"enableBom"`
	Compression string `yaml:"compression"`
}

type optionsDoc struct {
	ThrowOnFailure bool `yaml:"throwOnFailure"`
	ReadOnly       bool `yaml:"readOnly"`
}

// defaultDoc carries the defaults a task file overrides key by key.
func defaultDoc() taskDoc {
	def := exporters.DefaultExportOptions()
	return taskDoc{
		Output: outputDoc{
			Format:         def.Format,
			DateFormat:     def.DateFormat,
			DateTimeFormat: def.DateTimeFormat,
			Xml: xmlDoc{
				RootElementName: def.Xml.RootElementName,
				RowElementName:  def.Xml.RowElementName,
			},
			Json: jsonDoc{Indent: def.Json.Indent},
			Csv: csvDoc{
				IncludeHeaders:   def.Csv.IncludeHeaders,
				SanitizeHeaders:  def.Csv.SanitizeHeaders,
				Delimiter:        string(def.Csv.Delimiter),
				LineBreak:        "CRLF",
				AddQuotesToDates: def.Csv.AddQuotesToDates,
			},
		},
		Options: optionsDoc{ThrowOnFailure: true},
	}
}

// LoadFile reads a YAML task file from fs.
func LoadFile(fs afero.Fs, path string) (Task, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Task{}, fmt.Errorf("unable to read task file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return Task{}, fmt.Errorf("task file %s: %w", path, err)
	}
	logger.Debug("Task loaded from %s (%d parameter(s))", path, len(t.Query.Parameters))
	return t, nil
}

// Parse decodes a YAML task document.
func Parse(data []byte) (Task, error) {
	doc := defaultDoc()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Task{}, fmt.Errorf("invalid YAML: %w", err)
	}

	out, err := doc.Output.exportOptions()
	if err != nil {
		return Task{}, err
	}

	t := Task{
		Connection: doc.Connection,
		Query:      QueryParameters{Query: doc.Query, Parameters: doc.Parameters},
		Output:     out,
		Options: Options{
			ThrowOnFailure: doc.Options.ThrowOnFailure,
			ReadOnly:       doc.Options.ReadOnly,
		},
	}
	if doc.File != nil {
		t.File = &exporters.FileOptions{
			Path:        doc.File.Path,
			Append:      doc.File.Append,
			Encoding:    doc.File.Encoding,
			EnableBOM:   doc.File.EnableBOM,
			Compression: doc.File.Compression,
		}
	}
	return t, nil
}

func (o outputDoc) exportOptions() (exporters.ExportOptions, error) {
	delim, err := exporters.ParseDelimiter(o.Csv.Delimiter)
	if err != nil {
		return exporters.ExportOptions{}, fmt.Errorf("output.csv.delimiter: %w", err)
	}
	lineBreak, err := exporters.ParseLineBreak(o.Csv.LineBreak)
	if err != nil {
		return exporters.ExportOptions{}, fmt.Errorf("output.csv.lineBreak: %w", err)
	}

	return exporters.ExportOptions{
		Format:           o.Format,
		ColumnsToInclude: o.ColumnsToInclude,
		DateFormat:       o.DateFormat,
		DateTimeFormat:   o.DateTimeFormat,
		TimeZone:         o.TimeZone,
		Culture:          o.Culture,
		Xml: exporters.XmlOptions{
			RootElementName: o.Xml.RootElementName,
			RowElementName:  o.Xml.RowElementName,
		},
		Json: exporters.JsonOptions{
			NullAsEmptyString: o.Json.NullAsEmptyString,
			Indent:            o.Json.Indent,
		},
		Csv: exporters.CsvOptions{
			IncludeHeaders:   o.Csv.IncludeHeaders,
			SanitizeHeaders:  o.Csv.SanitizeHeaders,
			Delimiter:        delim,
			LineBreak:        lineBreak,
			AddQuotesToDates: o.Csv.AddQuotesToDates,
			NoQuotes:         o.Csv.NoQuotes,
		},
	}, nil
}
