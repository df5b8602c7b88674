package formatters

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxFractionDigits bounds the fractional part of rendered floats and decimals.
const MaxFractionDigits = 11

// FormatFloat renders f with at most MaxFractionDigits fractional digits,
// rounding half away from zero and trimming trailing zeros.
// bitSize is 32 for float4 columns so their shortest representation is used.
func FormatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return roundDecimalString(strconv.FormatFloat(f, 'g', -1, bitSize))
}

// FormatNumeric renders a PostgreSQL numeric with the same rules as FormatFloat.
func FormatNumeric(n pgtype.Numeric) string {
	if s, special := numericSpecial(n); special {
		return s
	}
	return trimFraction(numericRat(n).FloatString(MaxFractionDigits))
}

// NumericText renders n exactly, keeping every digit of its scale.
func NumericText(n pgtype.Numeric) string {
	if s, special := numericSpecial(n); special {
		return s
	}
	scale := 0
	if n.Exp < 0 {
		scale = int(-n.Exp)
	}
	return numericRat(n).FloatString(scale)
}

func numericSpecial(n pgtype.Numeric) (string, bool) {
	switch {
	case !n.Valid:
		return "", true
	case n.NaN:
		return "NaN", true
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity", true
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity", true
	}
	return "", false
}

func numericRat(n pgtype.Numeric) *big.Rat {
	if n.Int == nil {
		return new(big.Rat)
	}
	r := new(big.Rat).SetInt(n.Int)
	if n.Exp == 0 {
		return r
	}
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs32(n.Exp))), nil)
	if n.Exp > 0 {
		return r.Mul(r, new(big.Rat).SetInt(pow))
	}
	return r.Quo(r, new(big.Rat).SetInt(pow))
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func roundDecimalString(s string) string {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return s
	}
	return trimFraction(r.FloatString(MaxFractionDigits))
}

func trimFraction(s string) string {
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// decimalSeparator returns the separator the culture uses between integer and
// fractional digits, falling back to "." when it cannot be isolated.
func decimalSeparator(tag language.Tag) string {
	s := message.NewPrinter(tag).Sprintf("%.1f", 1.5)
	if len(s) >= 3 && strings.HasPrefix(s, "1") && strings.HasSuffix(s, "5") {
		return s[1 : len(s)-1]
	}
	return "."
}
