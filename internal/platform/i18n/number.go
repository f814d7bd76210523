// Package i18n formats player-facing numbers for a locale.
package i18n

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// BaseLocale is used when no locale is configured or it fails to parse.
const BaseLocale = "en-US"

const maxFractionDigits = 2

// NumberFormatter renders numbers with locale-style digit grouping.
type NumberFormatter struct {
	locale  language.Tag
	printer *message.Printer
}

// NewNumberFormatter returns a formatter for locale, falling back to
// BaseLocale.
func NewNumberFormatter(locale string) *NumberFormatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || strings.TrimSpace(locale) == "" {
		tag = language.MustParse(BaseLocale)
	}
	return &NumberFormatter{locale: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the resolved locale tag.
func (f *NumberFormatter) Locale() string {
	return f.locale.String()
}

// Format renders value with grouping and at most two fraction digits.
func (f *NumberFormatter) Format(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return f.printer.Sprint(value)
	}
	return f.printer.Sprintf("%v", number.Decimal(value, number.MaxFractionDigits(maxFractionDigits)))
}
