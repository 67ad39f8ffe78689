// Package format renders money, counts and percentages for a congregation's
// locale.
package format

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter formats values for one locale
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// New creates a formatter; unknown locales fall back to American English
func New(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Tag returns the locale in use
func (f *Formatter) Tag() language.Tag {
	return f.tag
}

// Money formats an amount in minor units, e.g. 123450 USD as $1,234.50.
// The currency's standard scale decides how many minor digits there are.
func (f *Formatter) Money(minor int64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return f.printer.Sprintf("%s %v", strings.ToUpper(code), number.Decimal(float64(minor)/100, number.Scale(2)))
	}

	scale, _ := currency.Standard.Rounding(unit)
	major := float64(minor) / math.Pow10(scale)
	sign := ""
	if major < 0 {
		sign = "-"
		major = -major
	}
	return sign + f.printer.Sprint(currency.NarrowSymbol(unit)) + f.printer.Sprint(number.Decimal(major, number.Scale(scale)))
}

// Number formats an integer with locale grouping
func (f *Formatter) Number(n int64) string {
	return f.printer.Sprint(number.Decimal(n))
}

// Percent formats a signed percentage with one decimal, e.g. +12.5%
func (f *Formatter) Percent(p float64) string {
	sign := ""
	switch {
	case p > 0:
		sign = "+"
	case p < 0:
		sign = "-"
		p = -p
	}
	return sign + f.printer.Sprint(number.Decimal(p, number.Scale(1))) + "%"
}

// Sprintf formats with the locale printer; positional verbs like %[2]s are allowed
func (f *Formatter) Sprintf(format string, args ...interface{}) string {
	return f.printer.Sprintf(format, args...)
}
