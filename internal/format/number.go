// Package format renders numbers and timestamps for user-facing rows.
package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const LangFa = "fa"

var maxGrouped = decimal.NewFromInt(math.MaxInt64)

var persianDigits = strings.NewReplacer(
	"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
	"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
)

// Number truncates v to 0, 2 or 6 decimal places depending on its
// magnitude, groups thousands with commas and drops trailing zeros.
// For "fa" the digits are transliterated to Persian.
func Number(v float64, lang string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}

	d := decimal.NewFromFloat(v).Truncate(places(math.Abs(v)))
	text := group(d)
	if lang == LangFa {
		return PersianDigits(text)
	}
	return text
}

func PersianDigits(s string) string {
	return persianDigits.Replace(s)
}

func places(abs float64) int32 {
	switch {
	case abs >= 1000:
		return 0
	case abs >= 1:
		return 2
	default:
		return 6
	}
}

// group formats d with comma thousands separators. The fractional part
// keeps only significant digits.
func group(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	abs := d.Abs()
	if !abs.LessThan(maxGrouped) {
		return sign + abs.String()
	}

	whole := abs.Truncate(0)
	frac := strings.TrimPrefix(abs.Sub(whole).String(), "0")
	return sign + message.NewPrinter(language.English).Sprintf("%d", whole.IntPart()) + frac
}
