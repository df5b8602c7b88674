package exporters

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Format is the closed set of output kinds.
type Format int

const (
	FormatCSV Format = iota + 1
	FormatJSON
	FormatXML
)

var ErrUnsupportedFormat = errors.New("unsupported format")

var formatNames = map[string]Format{
	"csv":  FormatCSV,
	"json": FormatJSON,
	"xml":  FormatXML,
}

func (f Format) String() string {
	for name, v := range formatNames {
		if v == f {
			return name
		}
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ext is the file extension used for zip entries and validation.
func (f Format) ext() (string, error) {
	switch f {
	case FormatCSV, FormatJSON, FormatXML:
		return f.String(), nil
	}
	return "", unsupportedFormat(f.String())
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(name string) (Format, error) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, unsupportedFormat(name)
	}
	return f, nil
}

// ListFormats returns the accepted format names, sorted.
func ListFormats() []string {
	formats := make([]string, 0, len(formatNames))
	for name := range formatNames {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

func unsupportedFormat(name string) error {
	return fmt.Errorf("%w: %q (available: %s)", ErrUnsupportedFormat, name, strings.Join(ListFormats(), ", "))
}

// UnmarshalText lets the format be read from YAML task files and flags.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f Format) MarshalText() ([]byte, error) {
	if _, err := f.ext(); err != nil {
		return nil, err
	}
	return []byte(f.String()), nil
}
