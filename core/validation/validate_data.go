package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/fbz-tec/pgxquery/core/formatters"
	"github.com/fbz-tec/pgxquery/core/output"
	"golang.org/x/text/language"
)

// ValidateTimeZone checks if a timezone string is valid.
// Empty string is considered valid (uses local time).
func ValidateTimeZone(timezone string) error {
	if timezone == "" {
		return nil
	}

	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return nil
}

// ValidateTimeFormat checks a user date pattern (yyyy-MM-dd HH:mm:ss style,
// single letter specifiers such as d.M.yyyy included). Unquoted letters
// that are not specifiers are rejected.
func ValidateTimeFormat(format string) error {
	if strings.TrimSpace(format) == "" {
		return fmt.Errorf("time format cannot be empty")
	}
	if err := formatters.ValidateTimePattern(format); err != nil {
		return fmt.Errorf("invalid time format: %w", err)
	}
	return nil
}

// ValidateCulture checks that culture is a well-formed BCP 47 tag such as
// "fi-FI" or "en-US". Empty means invariant and is valid.
func ValidateCulture(culture string) error {
	if culture == "" {
		return nil
	}
	if _, err := language.Parse(culture); err != nil {
		return fmt.Errorf("invalid culture %q: %w", culture, err)
	}
	return nil
}

// ValidateEncoding checks that name resolves to a supported text encoding.
func ValidateEncoding(name string) error {
	_, err := output.ResolveEncoding(name, false)
	return err
}
