package metrics

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Vietnamese)

// FormatNumber renders v with Vietnamese digit grouping and at most decimals fraction
// digits, e.g. 1234567.5 -> "1.234.567,5".
func FormatNumber(v float64, decimals int) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(decimals)))
}

// FormatPercent renders a percentage value with one fraction digit and a trailing "%".
func FormatPercent(v float64) string {
	return FormatNumber(v, 1) + "%"
}
