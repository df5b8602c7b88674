package formatters

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
)

const (
	DefaultDateFormat     = "yyyy-MM-dd"
	DefaultDateTimeFormat = "yyyy-MM-dd HH:mm:ss"
)

// Kind groups PostgreSQL column types by the formatting rule they follow.
type Kind int

const (
	KindOther Kind = iota
	KindString
	KindDate
	KindDateTime
	KindInteger
	KindFloat
	KindDecimal
	KindBool
)

// KindOf classifies a column by its type OID.
func KindOf(oid uint32) Kind {
	switch oid {
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID,
		pgtype.QCharOID, pgtype.XMLOID, pgtype.JSONOID, pgtype.JSONBOID:
		return KindString
	case pgtype.DateOID:
		return KindDate
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return KindDateTime
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID, pgtype.OIDOID:
		return KindInteger
	case pgtype.Float4OID, pgtype.Float8OID:
		return KindFloat
	case pgtype.NumericOID:
		return KindDecimal
	case pgtype.BoolOID:
		return KindBool
	}
	return KindOther
}

func isJSONType(oid uint32) bool {
	return oid == pgtype.JSONOID || oid == pgtype.JSONBOID
}

// Config selects the rendering rules of one formatting pass.
type Config struct {
	DateFormat     string
	DateTimeFormat string
	TimeZone       string
	Culture        string
	// CSV only
	AddQuotesToDates bool
	NoQuotes         bool
}

// Formatter renders row values. It is built once per export and holds no
// state shared between exports.
type Formatter struct {
	datePattern     TimePattern
	dateTimePattern TimePattern
	loc            *time.Location
	decimalSep     string
	quoteDates     bool
	noQuotes       bool
}

func New(cfg Config) (*Formatter, error) {
	dateTimeFmt := cfg.DateTimeFormat
	if dateTimeFmt == "" {
		dateTimeFmt = DefaultDateTimeFormat
	}
	dateFmt := cfg.DateFormat
	if dateFmt == "" {
		dateFmt = ExtractDateFormat(dateTimeFmt)
	}

	datePattern, err := CompileTimePattern(dateFmt)
	if err != nil {
		return nil, err
	}
	dateTimePattern, err := CompileTimePattern(dateTimeFmt)
	if err != nil {
		return nil, err
	}
	loc, err := LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, err
	}

	f := &Formatter{
		datePattern:     datePattern,
		dateTimePattern: dateTimePattern,
		loc:            loc,
		decimalSep:     ".",
		quoteDates:     cfg.AddQuotesToDates,
		noQuotes:       cfg.NoQuotes,
	}

	if cfg.Culture != "" {
		tag, err := language.Parse(cfg.Culture)
		if err != nil {
			return nil, fmt.Errorf("invalid culture %q: %w", cfg.Culture, err)
		}
		f.decimalSep = decimalSeparator(tag)
	}
	return f, nil
}

// FormatTime applies the date pattern to date columns and the date-time
// pattern to everything else; timestamptz values are moved to the configured zone.
func (f *Formatter) FormatTime(t time.Time, oid uint32) string {
	switch oid {
	case pgtype.DateOID:
		return f.datePattern.Format(t)
	case pgtype.TimestamptzOID:
		return f.dateTimePattern.Format(t.In(f.loc))
	default:
		return f.dateTimePattern.Format(t)
	}
}

// Text is the default, locale independent string form of v. Null is "".
func (f *Formatter) Text(v any, oid uint32) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return f.FormatTime(x, oid)
	case float64:
		return exactFloat(x, 64)
	case float32:
		return exactFloat(float64(x), 32)
	case pgtype.Numeric:
		return NumericText(x)
	case bool:
		return strconv.FormatBool(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return `\x` + hex.EncodeToString(x)
	}

	if isJSONType(oid) {
		return compactJSON(v)
	}

	switch x := v.(type) {
	case []any:
		elems := make([]string, len(x))
		for i, e := range x {
			if e == nil {
				elems[i] = "NULL"
				continue
			}
			elems[i] = f.Text(e, 0)
		}
		return "{" + strings.Join(elems, ",") + "}"
	case map[string]any:
		return compactJSON(x)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil || dv == nil {
			return ""
		}
		return f.Text(dv, oid)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// CSV renders v following the delimited-text rules: strings quoted with
// embedded quotes escaped as \" and line breaks folded into spaces, dates
// through the configured patterns, floats and decimals with at most
// MaxFractionDigits fractional digits.
func (f *Formatter) CSV(v any, oid uint32) string {
	kind := KindOf(oid)

	if v == nil {
		switch {
		case f.noQuotes:
			return ""
		case kind == KindString, (kind == KindDate || kind == KindDateTime) && f.quoteDates:
			return `""`
		}
		return ""
	}

	if kind == KindOther {
		if _, ok := v.(string); ok {
			kind = KindString
		}
	}

	switch kind {
	case KindString:
		s := EscapeCSVString(f.Text(v, oid))
		if f.noQuotes {
			return s
		}
		return `"` + s + `"`

	case KindDate, KindDateTime:
		out := f.Text(v, oid)
		if f.quoteDates {
			return `"` + out + `"`
		}
		return out
	}

	switch x := v.(type) {
	case float64:
		return FormatFloat(x, 64)
	case float32:
		return FormatFloat(float64(x), 32)
	case pgtype.Numeric:
		return FormatNumeric(x)
	}
	return f.Text(v, oid)
}

var csvLineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// EscapeCSVString escapes double quotes as \" and replaces CR LF, CR and LF
// with a single space so the value stays on one line.
func EscapeCSVString(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	return csvLineBreaks.Replace(s)
}

// XML renders the element text for v. Floats and decimals use the decimal
// separator of the configured culture.
func (f *Formatter) XML(v any, oid uint32) string {
	out := f.Text(v, oid)
	if f.decimalSep == "." {
		return out
	}
	switch v.(type) {
	case float32, float64, pgtype.Numeric:
		return strings.Replace(out, ".", f.decimalSep, 1)
	}
	return out
}

// JSON returns the value handed to the JSON encoder: numbers and booleans
// stay native, json/jsonb content is embedded, times use the patterns.
// Values JSON cannot carry (NaN, infinities, binary, uuid) become strings.
func (f *Formatter) JSON(v any, oid uint32) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return FormatFloat(x, 64)
		}
		return x
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return FormatFloat(float64(x), 32)
		}
		return x
	case pgtype.Numeric:
		if s, special := numericSpecial(x); special {
			if !x.Valid {
				return nil
			}
			return s
		}
		return json.Number(NumericText(x))
	case time.Time:
		return f.FormatTime(x, oid)
	case map[string]any:
		return x
	case []any:
		if isJSONType(oid) {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = f.JSON(e, 0)
		}
		return out
	}
	if isJSONType(oid) {
		return v
	}
	return f.Text(v, oid)
}

func exactFloat(f float64, bitSize int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return FormatFloat(f, bitSize)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
