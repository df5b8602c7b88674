package formatters

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Letters that act as specifiers in a custom date pattern. S is the
// Java style fraction digit and behaves like f.
const timeSpecifiers = "yMdhHmsfFStzKg"

// timeToken is one specifier run such as "yyyy" or one piece of literal text.
type timeToken struct {
	spec  byte // zero for literal text
	count int
	text  string
	bare  bool // literal taken from an unquoted letter
	end   int  // byte offset just past the token
}

// TimePattern is a compiled custom date and time pattern written in the
// yyyy-MM-dd HH:mm:ss notation, single letter specifiers included.
type TimePattern struct {
	tokens []timeToken
}

// CompileTimePattern parses pattern. Quoted text ('...' or "...") and
// backslash escaped characters are copied literally, as are letters that
// are not specifiers.
func CompileTimePattern(pattern string) (TimePattern, error) {
	tokens, err := scanTimePattern(pattern)
	if err != nil {
		return TimePattern{}, err
	}
	return TimePattern{tokens: tokens}, nil
}

// ValidateTimePattern is CompileTimePattern that also rejects unquoted
// letters it does not know, except the ISO separators T and Z.
func ValidateTimePattern(pattern string) error {
	tokens, err := scanTimePattern(pattern)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		if tok.bare && tok.text != "T" && tok.text != "Z" {
			return fmt.Errorf("unknown specifier %q in time format %q", tok.text, pattern)
		}
	}
	return nil
}

func scanTimePattern(p string) ([]timeToken, error) {
	var tokens []timeToken
	for i := 0; i < len(p); {
		c := p[i]
		switch {
		case c == '\'' || c == '"':
			j := strings.IndexByte(p[i+1:], c)
			if j < 0 {
				return nil, fmt.Errorf("unterminated quote in time format %q", p)
			}
			tokens = append(tokens, timeToken{text: p[i+1 : i+1+j], end: i + j + 2})
			i += j + 2
		case c == '\\':
			if i+1 >= len(p) {
				return nil, fmt.Errorf("trailing backslash in time format %q", p)
			}
			_, size := utf8.DecodeRuneInString(p[i+1:])
			tokens = append(tokens, timeToken{text: p[i+1 : i+1+size], end: i + 1 + size})
			i += 1 + size
		case c == '%':
			// marks a lone specifier such as "%d"
			i++
		case strings.IndexByte(timeSpecifiers, c) >= 0:
			j := i
			for j < len(p) && p[j] == c {
				j++
			}
			tokens = append(tokens, timeToken{spec: c, count: j - i, end: j})
			i = j
		default:
			r, size := utf8.DecodeRuneInString(p[i:])
			tokens = append(tokens, timeToken{text: p[i : i+size], bare: unicode.IsLetter(r), end: i + size})
			i += size
		}
	}
	return tokens, nil
}

// Format renders t.
func (tp TimePattern) Format(t time.Time) string {
	var b strings.Builder
	for _, tok := range tp.tokens {
		if tok.spec == 0 {
			b.WriteString(tok.text)
			continue
		}
		b.WriteString(tok.format(t))
	}
	return b.String()
}

func (tok timeToken) format(t time.Time) string {
	n := tok.count
	switch tok.spec {
	case 'y':
		switch n {
		case 1:
			return strconv.Itoa(t.Year() % 100)
		case 2:
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), n)
	case 'M':
		switch n {
		case 1, 2:
			return pad(int(t.Month()), n)
		case 3:
			return t.Format("Jan")
		}
		return t.Format("January")
	case 'd':
		switch n {
		case 1, 2:
			return pad(t.Day(), n)
		case 3:
			return t.Format("Mon")
		}
		return t.Format("Monday")
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, min(n, 2))
	case 'H':
		return pad(t.Hour(), min(n, 2))
	case 'm':
		return pad(t.Minute(), min(n, 2))
	case 's':
		return pad(t.Second(), min(n, 2))
	case 'f', 'S':
		return fraction(t, n)
	case 'F':
		return strings.TrimRight(fraction(t, n), "0")
	case 't':
		ampm := "AM"
		if t.Hour() >= 12 {
			ampm = "PM"
		}
		if n == 1 {
			return ampm[:1]
		}
		return ampm
	case 'z':
		_, off := t.Zone()
		sign := "+"
		if off < 0 {
			sign, off = "-", -off
		}
		switch n {
		case 1:
			return sign + strconv.Itoa(off/3600)
		case 2:
			return sign + pad(off/3600, 2)
		}
		return sign + pad(off/3600, 2) + ":" + pad(off%3600/60, 2)
	case 'K':
		return t.Format("Z07:00")
	case 'g':
		return "A.D."
	}
	return ""
}

func pad(v, width int) string {
	return fmt.Sprintf("%0*d", width, v)
}

// fraction returns the first n digits of the second fraction.
func fraction(t time.Time, n int) string {
	n = min(n, 9)
	div := 1
	for i := n; i < 9; i++ {
		div *= 10
	}
	return pad(t.Nanosecond()/div, n)
}

// ExtractDateFormat keeps only the date portion of a datetime pattern.
// "yyyy-MM-dd HH:mm:ss" becomes "yyyy-MM-dd".
func ExtractDateFormat(userFmt string) string {
	tokens, err := scanTimePattern(userFmt)
	if err != nil {
		return userFmt
	}
	last := -1
	for _, tok := range tokens {
		if tok.spec == 'y' || tok.spec == 'M' || tok.spec == 'd' {
			last = tok.end
		}
	}
	if last == -1 {
		return userFmt
	}
	return strings.TrimSpace(userFmt[:last])
}

// LoadLocation resolves timeZone, empty meaning the local zone.
func LoadLocation(timeZone string) (*time.Location, error) {
	if timeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timeZone, err)
	}
	return loc, nil
}
