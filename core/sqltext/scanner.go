// Package sqltext splits PostgreSQL query text into code, literal and comment
// segments so callers can inspect or rewrite the code parts only.
package sqltext

import "strings"

type SegmentKind int

const (
	Code SegmentKind = iota
	StringLiteral
	QuotedIdent
	DollarQuoted
	LineComment
	BlockComment
)

// Segment is a contiguous slice of the query. Concatenating the Text of all
// segments returned by Split gives back the original query.
type Segment struct {
	Kind SegmentKind
	Text string
}

func (s Segment) IsComment() bool {
	return s.Kind == LineComment || s.Kind == BlockComment
}

// Split cuts query into segments. Unterminated literals and comments run to
// the end of the input.
func Split(query string) []Segment {
	var segs []Segment
	start := 0
	emit := func(kind SegmentKind, end int) {
		if end > start {
			segs = append(segs, Segment{Kind: kind, Text: query[start:end]})
		}
		start = end
	}

	i := 0
	for i < len(query) {
		c := query[i]
		switch {
		case c == '\'':
			emit(Code, i)
			i = scanQuoted(query, i, '\'', isEscapeStringPrefix(query, i))
			emit(StringLiteral, i)

		case c == '"':
			emit(Code, i)
			i = scanQuoted(query, i, '"', false)
			emit(QuotedIdent, i)

		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			emit(Code, i)
			// the newline itself stays in the following code segment
			if nl := strings.IndexByte(query[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(query)
			}
			emit(LineComment, i)

		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			emit(Code, i)
			i = scanBlockComment(query, i)
			emit(BlockComment, i)

		case c == '$':
			tag, ok := dollarTag(query, i)
			if !ok {
				i++
				continue
			}
			emit(Code, i)
			if end := strings.Index(query[i+len(tag):], tag); end >= 0 {
				i += len(tag) + end + len(tag)
			} else {
				i = len(query)
			}
			emit(DollarQuoted, i)

		default:
			i++
		}
	}
	emit(Code, len(query))
	return segs
}

// CodeOnly returns query with comments removed and every literal or quoted
// identifier replaced by a single space, preserving word boundaries.
func CodeOnly(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, s := range Split(query) {
		if s.Kind == Code {
			b.WriteString(s.Text)
			continue
		}
		b.WriteByte(' ')
	}
	return b.String()
}

// IsIdentStart reports whether c may start an unquoted identifier.
func IsIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

// IsIdentByte reports whether c may continue an unquoted identifier.
func IsIdentByte(c byte) bool {
	return IsIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

func scanQuoted(q string, i int, quote byte, backslash bool) int {
	j := i + 1
	for j < len(q) {
		switch {
		case backslash && q[j] == '\\':
			j += 2
		case q[j] == quote:
			if j+1 < len(q) && q[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		default:
			j++
		}
	}
	return len(q)
}

func scanBlockComment(q string, i int) int {
	depth := 0
	j := i
	for j < len(q) {
		if j+1 < len(q) && q[j] == '/' && q[j+1] == '*' {
			depth++
			j += 2
			continue
		}
		if j+1 < len(q) && q[j] == '*' && q[j+1] == '/' {
			depth--
			j += 2
			if depth == 0 {
				return j
			}
			continue
		}
		j++
	}
	return len(q)
}

// E'...' strings accept backslash escapes.
func isEscapeStringPrefix(q string, i int) bool {
	if i == 0 || (q[i-1] != 'E' && q[i-1] != 'e') {
		return false
	}
	return i < 2 || !IsIdentByte(q[i-2])
}

// dollarTag returns the opening tag ($$ or $name$) starting at i.
func dollarTag(q string, i int) (string, bool) {
	if i > 0 && IsIdentByte(q[i-1]) {
		return "", false
	}
	j := i + 1
	if j < len(q) && q[j] == '$' {
		return "$$", true
	}
	if j >= len(q) || !IsIdentStart(q[j]) {
		return "", false
	}
	for j < len(q) && q[j] != '$' {
		if !IsIdentByte(q[j]) {
			return "", false
		}
		j++
	}
	if j >= len(q) {
		return "", false
	}
	return q[i : j+1], true
}
