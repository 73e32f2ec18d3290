package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const Currency = "GNF"

var printer = message.NewPrinter(language.French)

// Number formats a whole amount with French digit grouping. Grouping
// separators are plain spaces so the text survives single-byte PDF fonts.
func Number(amount int64) string {
	return asciiSpaces(printer.Sprintf("%d", amount))
}

func Format(amount int64) string {
	return Number(amount) + " " + Currency
}

// Rate renders a fraction as a French percentage, e.g. 0.015 as "1,5 %".
func Rate(rate decimal.Decimal) string {
	pct := rate.Mul(decimal.NewFromInt(100))
	return strings.Replace(pct.String(), ".", ",", 1) + " %"
}

func Hours(h float64) string {
	return asciiSpaces(printer.Sprintf("%.2f", h))
}

func asciiSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u202f', '\u2009':
			return ' '
		}
		return r
	}, s)
}
