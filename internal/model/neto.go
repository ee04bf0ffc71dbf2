package model

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ComputeNeto returns bruto − tara − merma. Unparseable or empty inputs count
// as zero, the same way the operator sees an instant preview while typing.
func ComputeNeto(bruto, tara, merma string) decimal.Decimal {
	return parseLoose(bruto).Sub(parseLoose(tara)).Sub(parseLoose(merma))
}

// FormatNeto renders a neto the way the table shows it ("88.00").
func FormatNeto(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// NetoAnomaly reports a negative neto. The subtraction is kept as-is; a
// negative result is surfaced to the operator instead of silently accepted.
func NetoAnomaly(d decimal.Decimal) bool {
	return d.IsNegative()
}

// FormatWeight renders an optional server weight for a cell ("" when absent).
func FormatWeight(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseLoose(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
