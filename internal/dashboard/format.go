package dashboard

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.MustParse("es-AR"))

// FormatKilos renders a quantity the way the operators read it: dot
// thousands separator, comma decimals, at most three fraction digits.
func FormatKilos(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.Round(3).InexactFloat64(), number.MaxFractionDigits(3)))
}
