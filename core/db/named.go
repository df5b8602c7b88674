package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fbz-tec/pgxquery/core/sqltext"
)

// BindNamed rewrites :name and @name placeholders into positional $n
// parameters and returns the matching argument list.
//
// Placeholders are recognised only in code, never inside string literals,
// quoted identifiers, dollar-quoted bodies or comments. "::" casts are left
// alone. A :name without a binding is an error; @name is only a placeholder
// when a binding exists, since @ is also an operator character. Names match
// case-insensitively and bindings the query does not use are ignored.
func BindNamed(query string, params []Parameter) (string, []any, error) {
	bindings := make(map[string]Value, len(params))
	for _, p := range params {
		bindings[normalizeParamName(p.Name)] = p.Value
	}

	positions := map[string]int{}
	var args []any
	position := func(name string) (int, bool) {
		key := normalizeParamName(name)
		if pos, ok := positions[key]; ok {
			return pos, true
		}
		v, ok := bindings[key]
		if !ok {
			return 0, false
		}
		args = append(args, v.Arg())
		positions[key] = len(args)
		return len(args), true
	}

	var b strings.Builder
	b.Grow(len(query))

	for _, seg := range sqltext.Split(query) {
		if seg.Kind != sqltext.Code {
			b.WriteString(seg.Text)
			continue
		}

		code := seg.Text
		for i := 0; i < len(code); i++ {
			c := code[i]
			if c != ':' && c != '@' {
				b.WriteByte(c)
				continue
			}
			if c == ':' && i+1 < len(code) && code[i+1] == ':' {
				b.WriteString("::")
				i++
				continue
			}
			if i+1 >= len(code) || !isParamStart(code[i+1]) {
				b.WriteByte(c)
				continue
			}

			end := i + 1
			for end < len(code) && isParamByte(code[end]) {
				end++
			}
			name := code[i+1 : end]

			pos, ok := position(name)
			if !ok {
				if c == ':' {
					return "", nil, fmt.Errorf("no value bound for parameter :%s", name)
				}
				b.WriteString(code[i:end])
				i = end - 1
				continue
			}
			b.WriteString("$" + strconv.Itoa(pos))
			i = end - 1
		}
	}

	return b.String(), args, nil
}

func normalizeParamName(name string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(name), ":@"))
}

func isParamStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isParamByte(c byte) bool {
	return isParamStart(c) || (c >= '0' && c <= '9')
}
