package db

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"gopkg.in/yaml.v3"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindDecimal
	KindTime
	KindBool
)

var kindNames = map[Kind]string{
	KindNull:    "null",
	KindString:  "string",
	KindInt:     "int",
	KindFloat:   "float",
	KindDecimal: "decimal",
	KindTime:    "time",
	KindBool:    "bool",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a query parameter value: null, string, integer, float, decimal,
// date/time or boolean. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	d    pgtype.Numeric
	t    time.Time
	b    bool
}

func Null() Value            { return Value{} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

// Decimal parses an exact decimal such as "12.50".
func Decimal(text string) (Value, error) {
	var n pgtype.Numeric
	if err := n.Scan(strings.TrimSpace(text)); err != nil {
		return Value{}, fmt.Errorf("invalid decimal %q: %w", text, err)
	}
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return Value{}, fmt.Errorf("invalid decimal %q", text)
	}
	return Value{kind: KindDecimal, d: n, s: strings.TrimSpace(text)}, nil
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Arg returns the value handed to the driver.
func (v Value) Arg() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d
	case KindTime:
		return v.t
	case KindBool:
		return v.b
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindString, KindDecimal:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseValue converts text according to typ. An empty typ means string.
func ParseValue(typ, text string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "string", "str", "text":
		return String(text), nil
	case "null":
		return Null(), nil
	case "int", "integer", "bigint":
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid integer %q", text)
		}
		return Int(i), nil
	case "float", "double":
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float %q", text)
		}
		return Float(f), nil
	case "decimal", "numeric":
		return Decimal(text)
	case "time", "date", "datetime", "timestamp":
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(text)); err == nil {
				return Time(t), nil
			}
		}
		return Value{}, fmt.Errorf("invalid time %q (use RFC 3339, yyyy-MM-dd HH:mm:ss or yyyy-MM-dd)", text)
	case "bool", "boolean":
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("invalid boolean %q", text)
		}
		return Bool(b), nil
	}
	return Value{}, fmt.Errorf("unknown parameter type %q", typ)
}

// UnmarshalYAML reads a plain scalar using its resolved tag, or a
// {type, value} mapping for explicit typing.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var err error
		switch node.ShortTag() {
		case "!!null":
			*v = Null()
		case "!!int":
			*v, err = ParseValue("int", node.Value)
		case "!!float":
			*v, err = ParseValue("float", node.Value)
		case "!!bool":
			var b bool
			err = node.Decode(&b)
			*v = Bool(b)
		case "!!timestamp":
			var t time.Time
			err = node.Decode(&t)
			*v = Time(t)
		default:
			*v = String(node.Value)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		return nil

	case yaml.MappingNode:
		var typed struct {
			Type  string `yaml:"type"`
			Value string `yaml:"value"`
		}
		if err := node.Decode(&typed); err != nil {
			return err
		}
		parsed, err := ParseValue(typed.Type, typed.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*v = parsed
		return nil
	}
	return fmt.Errorf("line %d: parameter value must be a scalar or a {type, value} mapping", node.Line)
}

// Parameter binds a value to a named placeholder.
type Parameter struct {
	Name  string `yaml:"name"`
	Value Value  `yaml:"value"`
}

// ParseParameter reads the command line form name=value or name:type=value.
func ParseParameter(arg string) (Parameter, error) {
	key, text, ok := strings.Cut(arg, "=")
	if !ok {
		return Parameter{}, fmt.Errorf("invalid parameter %q (expected name=value or name:type=value)", arg)
	}
	name, typ, _ := strings.Cut(key, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Parameter{}, fmt.Errorf("invalid parameter %q: missing name", arg)
	}
	value, err := ParseValue(typ, text)
	if err != nil {
		return Parameter{}, fmt.Errorf("parameter %s: %w", name, err)
	}
	return Parameter{Name: name, Value: value}, nil
}
