// Package report turns dashboard statistics into the exported summary
// table and its CSV encoding.
package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"thongke/internal/core"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "vi"

// Formatter renders counts, amounts and areas with locale digit grouping.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a Formatter for the BCP 47 tag locale, falling
// back to DefaultLocale for an empty or unknown tag.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.Vietnamese
	}
	return Formatter{p: message.NewPrinter(tag)}
}

func (f Formatter) printer() *message.Printer {
	if f.p == nil {
		return message.NewPrinter(language.Vietnamese)
	}
	return f.p
}

// Int formats n with digit grouping, e.g. 1.234.567.
func (f Formatter) Int(n int) string {
	return f.printer().Sprintf("%d", n)
}

// Money formats an amount in đồng without a currency suffix.
func (f Formatter) Money(m core.Money) string {
	return f.printer().Sprintf("%d", m.Dong)
}

// Area formats an area with at most three fraction digits.
func (f Formatter) Area(a core.SquareMeters) string {
	return f.printer().Sprintf("%v", number.Decimal(float64(a), number.MaxFractionDigits(3)))
}
