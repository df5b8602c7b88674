package formatters

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	disallowedHeaderChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	leadingDigits         = regexp.MustCompile(`^[0-9_]+`)
)

// SanitizeHeader keeps [a-zA-Z0-9_-], strips leading digits and underscores,
// and lowercases the result. Applying it twice gives the same string.
func SanitizeHeader(header string) string {
	header = disallowedHeaderChars.ReplaceAllString(header, "")
	header = leadingDigits.ReplaceAllString(header, "")
	return strings.ToLower(header)
}

// FormatHeader returns the CSV header text for a column name.
func FormatHeader(name string, sanitize bool) string {
	if !sanitize {
		return name
	}
	return SanitizeHeader(name)
}

// EncodeXMLName makes name usable as an XML element name. Runes that are not
// allowed at their position are written as _xHHHH_, and an underscore that
// would be read as the start of such an escape is escaped itself.
func EncodeXMLName(name string) string {
	if name == "" {
		return "_"
	}

	var b strings.Builder
	first := true
	for i, r := range name {
		valid := isNameChar(r)
		if first {
			valid = isNameStartChar(r)
		}
		if r == '_' && strings.HasPrefix(name[i:], "_x") && looksLikeEscape(name[i:]) {
			valid = false
		}
		if valid {
			b.WriteRune(r)
		} else {
			fmt.Fprintf(&b, "_x%04X_", r)
		}
		first = false
	}
	return b.String()
}

func isNameStartChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStartChar(r) || unicode.IsDigit(r) || r == '-' || r == '.' ||
		unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

// looksLikeEscape reports whether s starts with _xHHHH_.
func looksLikeEscape(s string) bool {
	if len(s) < 7 || s[6] != '_' {
		return false
	}
	for _, c := range s[2:6] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
