// Package core provides the ledger model and its primitives.
//
// This file contains helpers for rounding, parsing and formatting monetary
// amounts. Amounts are plain decimal currency units; there is no currency
// conversion anywhere in the ledger.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RoundMoney rounds x to cents. NaN and infinities become 0.
//
// Examples:
//
//	RoundMoney(12.345) -> 12.35
//	RoundMoney(0.1+0.2) -> 0.3
//	RoundMoney(math.NaN()) -> 0
func RoundMoney(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// ParseAmount converts user input into a rounded amount. Both dot and comma
// decimal separators are accepted. Anything that is not a finite number
// becomes 0; the ledger coerces rather than failing.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return RoundMoney(f)
}

// SumMoney adds amounts exactly and rounds the result to cents.
func SumMoney(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// MoneyFormatter renders amounts for display. Output is never parsed back.
type MoneyFormatter struct {
	Symbol string
	tag    language.Tag
}

// NewMoneyFormatter builds a formatter for a currency symbol and a BCP 47
// locale. An unknown locale falls back to Spanish.
func NewMoneyFormatter(symbol, locale string) MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return MoneyFormatter{Symbol: symbol, tag: tag}
}

// Format returns the amount with the currency symbol and locale separators.
func (f MoneyFormatter) Format(x float64) string {
	v := RoundMoney(x)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	p := message.NewPrinter(f.tag)
	return sign + f.Symbol + " " + p.Sprintf("%.2f", v)
}

var defaultFormatter = NewMoneyFormatter("S/", "es")

// FormatMoney formats x with the default Peruvian sol formatter.
func FormatMoney(x float64) string {
	return defaultFormatter.Format(x)
}
